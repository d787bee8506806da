/*
 * KI10 - Telnet server tests.
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

package telnet

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/rcornwell/KI10/emu/master"
	"github.com/stretchr/testify/assert"
)

type fakeConn struct {
	net.Conn
	out bytes.Buffer
}

func (f *fakeConn) Write(b []byte) (int, error) {
	return f.out.Write(b)
}

func TestFilterData(t *testing.T) {
	conn := &fakeConn{}
	state := newState(conn)
	out := state.filter([]byte("AB\r\000C\r\nD"))
	assert.Equal(t, []byte("AB\rC\rD"), out)

	// Doubled IAC is data.
	out = state.filter([]byte{tnIAC, tnIAC, 'x'})
	assert.Equal(t, []byte{tnIAC, 'x'}, out)

	// Break is a ^C.
	out = state.filter([]byte{tnIAC, tnBRK})
	assert.Equal(t, []byte{0o003}, out)
	assert.Zero(t, conn.out.Len())
}

func TestFilterOptions(t *testing.T) {
	conn := &fakeConn{}
	state := newState(conn)

	// Offered options are not answered again.
	out := state.filter([]byte{tnIAC, tnDO, tnOptionEcho, tnIAC, tnDO, tnOptionSGA})
	assert.Empty(t, out)
	assert.Zero(t, conn.out.Len())

	// Terminal type refused.
	state.filter([]byte{tnIAC, tnWILL, 24})
	assert.Equal(t, []byte{tnIAC, tnDONT, 24}, conn.out.Bytes())
	conn.out.Reset()

	// Binary accepted once.
	state.filter([]byte{tnIAC, tnWILL, tnOptionBinary, tnIAC, tnWILL, tnOptionBinary})
	assert.Equal(t, []byte{tnIAC, tnDO, tnOptionBinary}, conn.out.Bytes())
	conn.out.Reset()

	// Unknown DO refused.
	state.filter([]byte{tnIAC, tnDO, 31})
	assert.Equal(t, []byte{tnIAC, tnWONT, 31}, conn.out.Bytes())
	conn.out.Reset()

	// Sub negotiation skipped.
	out = state.filter([]byte{tnIAC, tnSB, 24, 0, 'V', 'T', tnIAC, tnSE, 'z'})
	assert.Equal(t, []byte{'z'}, out)
}

func waitPacket(t *testing.T, ch master.Channel) master.Packet {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for packet")
	}
	return master.Packet{}
}

func TestServer(t *testing.T) {
	ch := make(master.Channel, 10)
	s, err := Listen("127.0.0.1:0", 0o120, ch)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer s.Stop()

	conn, err := net.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	greeting := make([]byte, len(initString))
	_, err = io.ReadFull(conn, greeting)
	assert.NoError(t, err)
	assert.Equal(t, initString, greeting)

	p := waitPacket(t, ch)
	assert.Equal(t, master.TelConnect, p.Msg)
	assert.Equal(t, uint16(0o120), p.DevNum)
	assert.NotNil(t, p.Conn)

	_, err = conn.Write([]byte("hi"))
	assert.NoError(t, err)
	data := []byte{}
	for len(data) < 2 {
		p = waitPacket(t, ch)
		assert.Equal(t, master.TelReceive, p.Msg)
		data = append(data, p.Data...)
	}
	assert.Equal(t, []byte("hi"), data)

	// Second session is turned away.
	other, err := net.Dial("tcp", s.Addr())
	if err == nil {
		line, _ := bufio.NewReader(other).ReadString('\n')
		assert.Equal(t, "Console in use\r\n", line)
		other.Close()
	}

	conn.Close()
	p = waitPacket(t, ch)
	assert.Equal(t, master.TelDisconnect, p.Msg)
}
