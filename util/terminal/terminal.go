/*
 * KI10 - Console terminal host.
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

// Package terminal connects the console teletype to a local terminal
// or a serial line. Output is written a character at a time, input is
// read on its own goroutine and posted to the core.
package terminal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jacobsa/go-serial/serial"
	"github.com/rcornwell/KI10/emu/master"
	"golang.org/x/term"
)

// Escape returns control to the operator when typed on the local console.
const Escape byte = 0o034 // ^\

type Terminal struct {
	rw     io.ReadWriter
	closer io.Closer
	fd     int
	state  *term.State // Saved state of local terminal.
	name   string
}

type stdio struct{}

func (stdio) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdio) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

// New terminal on a byte stream.
func New(name string, rw io.ReadWriter) *Terminal {
	return &Terminal{rw: rw, name: name}
}

// Open local console, putting it in raw mode.
func OpenConsole() (*Terminal, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("standard input is not a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("unable to set raw mode: %w", err)
	}
	return &Terminal{rw: stdio{}, fd: fd, state: state, name: "console"}, nil
}

// Open serial line at baud.
func OpenSerial(port string, baud uint) (*Terminal, error) {
	p, err := serial.Open(serial.OpenOptions{
		PortName:        port,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open serial port %s: %w", port, err)
	}
	return &Terminal{rw: p, closer: p, name: port}, nil
}

// Name of terminal.
func (t *Terminal) Name() string {
	return t.name
}

// Put character to terminal.
func (t *Terminal) Put(_ int, b byte) {
	if _, err := t.rw.Write([]byte{b}); err != nil {
		slog.Warn("terminal write failed", "terminal", t.name, "error", err)
	}
}

// Run posts input to device until escape is typed or input ends. A
// zero escape disables it.
func (t *Terminal) Run(devNum uint16, post master.Poster, escape byte) error {
	buf := make([]byte, 256)
	for {
		n, err := t.rw.Read(buf)
		if n > 0 {
			data := buf[:n]
			stop := false
			if escape != 0 {
				if i := bytes.IndexByte(data, escape); i >= 0 {
					data = data[:i]
					stop = true
				}
			}
			if len(data) != 0 {
				post.Post(master.Packet{Msg: master.ConsoleInput, DevNum: devNum, Data: bytes.Clone(data)})
			}
			if stop {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Close terminal, restoring local console.
func (t *Terminal) Close() error {
	var err error
	if t.state != nil {
		err = term.Restore(t.fd, t.state)
		t.state = nil
	}
	if t.closer != nil {
		if cerr := t.closer.Close(); err == nil {
			err = cerr
		}
		t.closer = nil
	}
	return err
}
