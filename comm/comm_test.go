package comm_test

import (
	"bufio"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/nasa-jpl/mmadapters/comm"
)

// tcpEchoServer echoes every line it gets, upper-cased terminator and all
func tcpEchoServer(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() { io.Copy(conn, conn) }()
		}
	}()
	return ln.Addr().String()
}

func TestSendRecvTCP(t *testing.T) {
	addr := tcpEchoServer(t)
	rd := comm.NewRemoteDevice(addr, false, nil, nil)
	if err := rd.Open(); err != nil {
		t.Fatal(err)
	}
	defer rd.Close()
	for _, msg := range []string{"stat,0", "mess,1", ""} {
		resp, err := rd.SendRecv([]byte(msg))
		if err != nil {
			t.Fatal(err)
		}
		if string(resp) != msg {
			t.Errorf("got %q, expected %q", resp, msg)
		}
	}
}

func TestCustomTerminators(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	rd := comm.NewRemoteDevice("pipe", false, &comm.Terminators{Rx: '\n', Tx: ';'}, nil)
	rd.Dialer = func() (io.ReadWriteCloser, error) { return a, nil }
	if err := rd.Open(); err != nil {
		t.Fatal(err)
	}
	defer rd.Close()
	go func() {
		line, err := bufio.NewReader(b).ReadString(';')
		if err != nil {
			return
		}
		b.Write([]byte("re:" + line[:len(line)-1] + "\n"))
	}()
	resp, err := rd.SendRecv([]byte("ver"))
	if err != nil {
		t.Fatal(err)
	}
	if string(resp) != "re:ver" {
		t.Errorf("got %q, expected re:ver", resp)
	}
}

func TestNotConnected(t *testing.T) {
	rd := comm.NewRemoteDevice("nowhere", false, nil, nil)
	if _, err := rd.SendRecv([]byte("x")); !errors.Is(err, comm.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestSerialWithoutConfig(t *testing.T) {
	rd := comm.NewRemoteDevice("/dev/null", true, nil, nil)
	if err := rd.Open(); !errors.Is(err, comm.ErrNoSerialConf) {
		t.Errorf("expected ErrNoSerialConf, got %v", err)
	}
}

func TestRecvTimesOut(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	go io.Copy(io.Discard, b)
	rd := comm.NewRemoteDevice("pipe", false, nil, nil)
	rd.Timeout = 20 * time.Millisecond
	rd.Dialer = func() (io.ReadWriteCloser, error) { return a, nil }
	if err := rd.Open(); err != nil {
		t.Fatal(err)
	}
	defer rd.Close()
	_, err := rd.SendRecv([]byte("mess,0"))
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		t.Errorf("expected a timeout, got %v", err)
	}
}

func TestCloseEventually(t *testing.T) {
	addr := tcpEchoServer(t)
	rd := comm.NewRemoteDevice(addr, false, nil, nil)
	rd.IdleClose = 10 * time.Millisecond
	if err := rd.Open(); err != nil {
		t.Fatal(err)
	}
	rd.CloseEventually()
	time.Sleep(100 * time.Millisecond)
	rd.Lock()
	conn := rd.Conn
	rd.Unlock()
	if conn != nil {
		t.Error("connection still open after IdleClose elapsed")
	}
	// reopening after the idle close works
	if err := rd.Open(); err != nil {
		t.Fatal(err)
	}
	rd.Close()
}
