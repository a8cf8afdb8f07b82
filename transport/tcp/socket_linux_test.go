//go:build linux
// +build linux

package tcp_test

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/momentics/linerelay/api"
	"github.com/momentics/linerelay/transport/tcp"
)

// acceptOne polls the non-blocking listener until a connection shows up.
func acceptOne(t *testing.T, ln *tcp.Listener) api.Socket {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s, err := ln.Accept()
		if err == nil {
			return s
		}
		if !errors.Is(err, api.ErrWouldBlock) {
			t.Fatalf("Accept: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no connection accepted")
	return nil
}

func TestListenerAcceptWouldBlock(t *testing.T) {
	ln, err := tcp.Listen("127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	if _, err := ln.Accept(); !errors.Is(err, api.ErrWouldBlock) {
		t.Errorf("Accept on idle listener = %v, want ErrWouldBlock", err)
	}
}

func TestSocketReadWritev(t *testing.T) {
	ln, err := tcp.Listen("127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	client, err := net.Dial("tcp", ln.Addr())
	if err != nil {
		t.Fatalf("Dial %s: %v", ln.Addr(), err)
	}
	defer client.Close()

	s := acceptOne(t, ln)
	defer s.Close()
	if s.RemoteAddr() != client.LocalAddr().String() {
		t.Errorf("RemoteAddr() = %q, want %q", s.RemoteAddr(), client.LocalAddr())
	}

	buf := make([]byte, 16)
	if _, err := s.Read(buf); !errors.Is(err, api.ErrWouldBlock) {
		t.Errorf("Read with no data = %v, want ErrWouldBlock", err)
	}

	n, err := s.Writev([][]byte{[]byte("A: "), []byte("hi"), []byte("\n")})
	if err != nil || n != 6 {
		t.Fatalf("Writev = (%d, %v), want (6, nil)", n, err)
	}
	got := make([]byte, 6)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(client, got); err != nil {
		t.Fatalf("client read: %v", err)
	}
	if string(got) != "A: hi\n" {
		t.Errorf("client received %q", got)
	}

	client.Write([]byte("yo\n"))
	deadline := time.Now().Add(2 * time.Second)
	for {
		n, err = s.Read(buf)
		if err == nil || !errors.Is(err, api.ErrWouldBlock) || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err != nil || string(buf[:n]) != "yo\n" {
		t.Errorf("Read = (%q, %v)", buf[:n], err)
	}

	client.Close()
	deadline = time.Now().Add(2 * time.Second)
	for {
		n, err = s.Read(buf)
		if !errors.Is(err, api.ErrWouldBlock) || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if n != 0 || err != nil {
		t.Errorf("Read after peer close = (%d, %v), want (0, nil)", n, err)
	}
}

func TestSocketCloseIdempotent(t *testing.T) {
	ln, err := tcp.Listen("127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	client, err := net.Dial("tcp", ln.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	s := acceptOne(t, ln)
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := s.Read(make([]byte, 1)); !errors.Is(err, api.ErrClosed) {
		t.Errorf("Read after Close = %v, want ErrClosed", err)
	}
}
