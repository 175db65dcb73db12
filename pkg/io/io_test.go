package io

import (
	"bytes"
	"testing"

	"osspd/pkg/proto"

	"golang.org/x/sys/unix"
)

func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestReadFillExact(t *testing.T) {
	a, b := socketPair(t)
	sent := []byte("0123456789abcdef")
	go func() {
		// two partial writes; ReadFill must assemble them
		unix.Write(b, sent[:7])
		unix.Write(b, sent[7:])
	}()
	buf := make([]byte, len(sent))
	if err := ReadFill(a, buf); err != nil {
		t.Fatalf("ReadFill: %v", err)
	}
	if !bytes.Equal(buf, sent) {
		t.Errorf("read %q, want %q", buf, sent)
	}
}

func TestReadFillPeerClose(t *testing.T) {
	a, b := socketPair(t)
	go func() {
		unix.Write(b, []byte("shor"))
		unix.Close(b)
	}()
	buf := make([]byte, 16)
	if err := ReadFill(a, buf); err != proto.ErrIO {
		t.Errorf("expected ErrIO on mid-section close, got %v", err)
	}
}

func TestWriteFillEmptyIsNoop(t *testing.T) {
	a, _ := socketPair(t)
	if err := WriteFill(a, nil); err != nil {
		t.Errorf("empty WriteFill: %v", err)
	}
}

func TestWriteFillRoundTrip(t *testing.T) {
	a, b := socketPair(t)
	payload := bytes.Repeat([]byte{0xa5}, 8192)
	done := make(chan error, 1)
	go func() {
		done <- WriteFill(b, payload)
	}()
	buf := make([]byte, len(payload))
	if err := ReadFill(a, buf); err != nil {
		t.Fatalf("ReadFill: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("WriteFill: %v", err)
	}
	if !bytes.Equal(buf, payload) {
		t.Errorf("payload mismatch")
	}
}

func TestRecvCmdCleanClose(t *testing.T) {
	a, b := socketPair(t)
	unix.Close(b)
	buf := make([]byte, proto.CmdHeaderSize)
	oob := make([]byte, OobSpace)
	n, fd, err := RecvCmd(a, buf, oob)
	if err != nil {
		t.Fatalf("RecvCmd: %v", err)
	}
	if n != 0 || fd.IsValid() {
		t.Errorf("clean close: n=%d valid=%v", n, fd.IsValid())
	}
}

func TestRecvCmdWithDescriptor(t *testing.T) {
	a, b := socketPair(t)
	pass, peer := socketPair(t)

	msg := []byte("0123456789abcdef")
	if err := SendCmd(b, msg, pass); err != nil {
		t.Fatalf("SendCmd: %v", err)
	}
	buf := make([]byte, len(msg))
	oob := make([]byte, OobSpace)
	n, fd, err := RecvCmd(a, buf, oob)
	if err != nil {
		t.Fatalf("RecvCmd: %v", err)
	}
	if n != len(msg) {
		t.Fatalf("n = %d, want %d", n, len(msg))
	}
	if !fd.IsValid() {
		t.Fatal("expected a passed descriptor")
	}

	// prove the received fd is connected to peer
	raw := fd.Release()
	defer unix.Close(raw)
	if _, err := unix.Write(raw, []byte("x")); err != nil {
		t.Fatalf("write on passed fd: %v", err)
	}
	one := make([]byte, 1)
	if _, err := unix.Read(peer, one); err != nil || one[0] != 'x' {
		t.Errorf("peer read: %v %q", err, one)
	}
}

func TestRecvCmdWithoutDescriptor(t *testing.T) {
	a, b := socketPair(t)
	msg := []byte("0123456789abcdef")
	if err := SendCmd(b, msg, -1); err != nil {
		t.Fatalf("SendCmd: %v", err)
	}
	buf := make([]byte, len(msg))
	oob := make([]byte, OobSpace)
	n, fd, err := RecvCmd(a, buf, oob)
	if err != nil {
		t.Fatalf("RecvCmd: %v", err)
	}
	if n != len(msg) || fd.IsValid() {
		t.Errorf("n=%d valid=%v", n, fd.IsValid())
	}
}

func TestFDReleaseAndClose(t *testing.T) {
	f := NewFD(-5)
	if f.IsValid() {
		t.Error("negative raw fd must be invalid")
	}
	a, _ := socketPair(t)
	g := NewFD(a)
	raw := g.Release()
	if raw != a || g.IsValid() {
		t.Errorf("Release: raw=%d valid=%v", raw, g.IsValid())
	}
	// Close after Release must not touch the descriptor
	g.Close()
	if _, err := unix.Write(a, []byte("y")); err != nil {
		t.Errorf("fd closed after Release: %v", err)
	}
}
