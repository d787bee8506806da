/*
 * KI10 - Telnet server, listener.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package telnet serves the console teletype over a telnet connection.
// One session is connected at a time, further connections are told the
// console is busy and dropped. Session events are posted to the core.
package telnet

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rcornwell/KI10/emu/master"
)

// Terminal devices accept telnet sessions.
type Terminal interface {
	Connect(conn net.Conn)
	ReceiveChar(data []byte)
	Disconnect()
}

type Server struct {
	wg       sync.WaitGroup
	listener net.Listener
	shutdown chan struct{}
	devNum   uint16        // Device sessions are connected to.
	post     master.Poster // Where to send session events.
	mu       sync.Mutex
	active   net.Conn // Current session.
}

// Listen for connections to device.
func Listen(address string, devNum uint16, post master.Poster) (*Server, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on address %s: %w", address, err)
	}

	s := &Server{
		listener: listener,
		shutdown: make(chan struct{}),
		devNum:   devNum,
		post:     post,
	}
	slog.Info("telnet server started", "address", listener.Addr().String(), "device", fmt.Sprintf("%03o", devNum))
	s.wg.Add(1)
	go s.acceptConnections()
	return s, nil
}

// Address server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Accept connections until shutdown.
func (s *Server) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				continue
			}
		}
		s.mu.Lock()
		busy := s.active != nil
		if !busy {
			s.active = conn
		}
		s.mu.Unlock()
		if busy {
			fmt.Fprintf(conn, "Console in use\r\n")
			conn.Close()
			continue
		}
		slog.Info("telnet connection", "remote", conn.RemoteAddr().String())
		s.wg.Add(1)
		go s.handleClient(conn)
	}
}

// Run session until client goes away.
func (s *Server) handleClient(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		conn.Close()
		s.mu.Lock()
		s.active = nil
		s.mu.Unlock()
		s.post.Post(master.Packet{Msg: master.TelDisconnect, DevNum: s.devNum})
	}()

	state := newState(conn)
	if err := state.start(); err != nil {
		return
	}
	s.post.Post(master.Packet{Msg: master.TelConnect, DevNum: s.devNum, Conn: conn})

	buffer := make([]byte, 1024)
	for {
		num, err := conn.Read(buffer)
		if num > 0 {
			out := state.filter(buffer[:num])
			if len(out) != 0 {
				s.post.Post(master.Packet{Msg: master.TelReceive, DevNum: s.devNum, Data: out})
			}
		}
		if err != nil {
			slog.Debug("telnet session ended", "error", err)
			return
		}
	}
}

// Stop server and drop any session.
func (s *Server) Stop() {
	close(s.shutdown)
	s.listener.Close()
	s.mu.Lock()
	if s.active != nil {
		s.active.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("Timed out waiting for connections to finish.")
	}
}
