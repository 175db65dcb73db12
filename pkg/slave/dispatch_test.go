//
//  Copyright 2026 OSS Proxy Authors
//
//  Licensed to the Apache Software Foundation (ASF) under one or more
//  contributor license agreements.  See the NOTICE file distributed with
//  this work for additional information regarding copyright ownership.
//  The ASF licenses this file to You under the Apache License, Version 2.0
//  (the "License"); you may not use this file except in compliance with
//  the License.  You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

package slave

import (
	"bytes"
	"errors"
	"testing"

	"golang.org/x/sys/unix"

	"osspd/pkg/io"
	"osspd/pkg/proto"
)

// peer drives the coordinator side of the command channel. Payloads in
// these tests are far below the socket buffer size, so each exchange can
// run sequentially: send, dispatch, read the reply.
type peer struct {
	t  *testing.T
	fd int
}

func newPair(t *testing.T, reg *Registry, opts ...SessionOption) (*Session, *peer) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	p := &peer{t: t, fd: fds[1]}
	t.Cleanup(func() {
		unix.Close(fds[0])
		p.close()
	})
	return NewSession(fds[0], reg, opts...), p
}

func (p *peer) close() {
	if p.fd >= 0 {
		unix.Close(p.fd)
		p.fd = -1
	}
}

func (p *peer) sendCmd(op proto.OpCode, carg, din []byte, doutSize uint32, rawFD int) {
	p.t.Helper()
	hdr := proto.NewCmdHeader(op, uint32(len(din)), doutSize)
	var raw [proto.CmdHeaderSize]byte
	hdr.Encode(raw[:])
	if err := io.SendCmd(p.fd, raw[:], rawFD); err != nil {
		p.t.Fatalf("send header: %v", err)
	}
	if err := io.WriteFill(p.fd, carg); err != nil {
		p.t.Fatalf("send carg: %v", err)
	}
	if err := io.WriteFill(p.fd, din); err != nil {
		p.t.Fatalf("send din: %v", err)
	}
}

func (p *peer) recvReply(op proto.OpCode) (proto.ReplyHeader, []byte, []byte) {
	p.t.Helper()
	var raw [proto.ReplyHeaderSize]byte
	if err := io.ReadFill(p.fd, raw[:]); err != nil {
		p.t.Fatalf("read reply header: %v", err)
	}
	hdr, err := proto.DecodeReplyHeader(raw[:])
	if err != nil {
		p.t.Fatalf("decode reply header: %v", err)
	}
	if hdr.Result.IsError() {
		return hdr, nil, nil
	}
	sizes, err := proto.ArgSizes(op)
	if err != nil {
		p.t.Fatalf("arg sizes for %v: %v", op, err)
	}
	rarg := make([]byte, sizes.RargSize)
	if err := io.ReadFill(p.fd, rarg); err != nil {
		p.t.Fatalf("read rarg: %v", err)
	}
	dout := make([]byte, hdr.DoutSize)
	if err := io.ReadFill(p.fd, dout); err != nil {
		p.t.Fatalf("read dout: %v", err)
	}
	return hdr, rarg, dout
}

func mustRegister(t *testing.T, reg *Registry, op proto.OpCode, fn HandlerFunc) {
	t.Helper()
	if err := reg.Register(op, fn); err != nil {
		t.Fatalf("register %v: %v", op, err)
	}
}

func mustProcess(t *testing.T, s *Session) {
	t.Helper()
	more, err := s.ProcessCommand()
	if err != nil || !more {
		t.Fatalf("ProcessCommand() = (%v, %v), want (true, nil)", more, err)
	}
}

func TestCommandRoundTrip(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, proto.OpCodeDspGetSpace, func(req *Request) proto.Result {
		var arg proto.DspSpaceArg
		if err := arg.Decode(req.CArg); err != nil {
			t.Fatalf("decode carg: %v", err)
		}
		if arg.Dir != 1 {
			t.Errorf("carg Dir = %d, want 1", arg.Dir)
		}
		rep := proto.DspSpaceRep{Bytes: 65536, Fragments: 16, FragSize: 4096, FragsTotal: 16}
		rep.Encode(req.RArg)
		return proto.ResultOK
	})
	s, p := newPair(t, reg)

	carg := make([]byte, proto.DspSpaceArgSize)
	(&proto.DspSpaceArg{Dir: 1}).Encode(carg)
	p.sendCmd(proto.OpCodeDspGetSpace, carg, nil, 0, -1)
	mustProcess(t, s)

	hdr, rarg, dout := p.recvReply(proto.OpCodeDspGetSpace)
	if hdr.Result != proto.ResultOK {
		t.Fatalf("result = %v, want ok", hdr.Result)
	}
	if len(dout) != 0 {
		t.Errorf("dout size = %d, want 0", len(dout))
	}
	var rep proto.DspSpaceRep
	if err := rep.Decode(rarg); err != nil {
		t.Fatalf("decode rarg: %v", err)
	}
	if rep.FragSize != 4096 || rep.FragsTotal != 16 {
		t.Errorf("rarg = %+v", rep)
	}
}

func TestDataSections(t *testing.T) {
	wrote := []byte("pcm frames go here")
	reg := NewRegistry()
	mustRegister(t, reg, proto.OpCodeDspWrite, func(req *Request) proto.Result {
		if !bytes.Equal(req.DataIn, wrote) {
			t.Errorf("din = %q, want %q", req.DataIn, wrote)
		}
		return proto.Result(len(req.DataIn))
	})
	mustRegister(t, reg, proto.OpCodeDspRead, func(req *Request) proto.Result {
		for i := range req.DataOut {
			req.DataOut[i] = byte(i)
		}
		// short read: hand back half of what was asked for
		req.DoutSize = len(req.DataOut) / 2
		return proto.Result(req.DoutSize)
	})
	s, p := newPair(t, reg)

	p.sendCmd(proto.OpCodeDspWrite, nil, wrote, 0, -1)
	mustProcess(t, s)
	hdr, _, _ := p.recvReply(proto.OpCodeDspWrite)
	if hdr.Result != proto.Result(len(wrote)) {
		t.Fatalf("write result = %v, want %d", hdr.Result, len(wrote))
	}

	p.sendCmd(proto.OpCodeDspRead, nil, nil, 64, -1)
	mustProcess(t, s)
	hdr, _, dout := p.recvReply(proto.OpCodeDspRead)
	if hdr.Result != proto.Result(32) || len(dout) != 32 {
		t.Fatalf("read result = %v dout = %d, want 32", hdr.Result, len(dout))
	}
	for i, b := range dout {
		if b != byte(i) {
			t.Fatalf("dout[%d] = %d, want %d", i, b, i)
		}
	}
}

func TestErrorSuppressesPayload(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, proto.OpCodeMixer, func(req *Request) proto.Result {
		// fill the reply arg, then fail: none of it may reach the wire
		(&proto.MixerVol{Vol: [2]int32{99, 99}}).Encode(req.RArg)
		return proto.ErrnoResult(unix.ENODEV)
	})
	mustRegister(t, reg, proto.OpCodeDspPost, func(req *Request) proto.Result {
		return proto.ResultOK
	})
	s, p := newPair(t, reg)

	carg := make([]byte, proto.MixerArgSize)
	(&proto.MixerArg{Set: -1}).Encode(carg)
	p.sendCmd(proto.OpCodeMixer, carg, nil, 0, -1)
	mustProcess(t, s)
	hdr, _, _ := p.recvReply(proto.OpCodeMixer)
	if hdr.Result.Errno() != unix.ENODEV {
		t.Fatalf("result = %v, want -ENODEV", hdr.Result)
	}
	if hdr.DoutSize != 0 {
		t.Fatalf("dout size = %d on failure, want 0", hdr.DoutSize)
	}

	// the failing reply must not desync framing for the next command
	p.sendCmd(proto.OpCodeDspPost, nil, nil, 0, -1)
	mustProcess(t, s)
	if hdr, _, _ := p.recvReply(proto.OpCodeDspPost); hdr.Result != proto.ResultOK {
		t.Fatalf("followup result = %v, want ok", hdr.Result)
	}
}

func TestDescriptorPassing(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, proto.OpCodeDspPoll, func(req *Request) proto.Result {
		if !req.FD.IsValid() {
			t.Fatal("handler received no descriptor")
		}
		raw := req.FD.Release()
		defer unix.Close(raw)
		if _, err := unix.Write(raw, []byte{0x5a}); err != nil {
			t.Fatalf("write to passed fd: %v", err)
		}
		(&proto.DspPollRep{Revents: 1}).Encode(req.RArg)
		return proto.ResultOK
	})
	s, p := newPair(t, reg)

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])

	carg := make([]byte, proto.DspPollArgSize)
	(&proto.DspPollArg{Events: 1}).Encode(carg)
	p.sendCmd(proto.OpCodeDspPoll, carg, nil, 0, fds[1])
	unix.Close(fds[1]) // session holds its own copy now
	mustProcess(t, s)

	hdr, rarg, _ := p.recvReply(proto.OpCodeDspPoll)
	if hdr.Result != proto.ResultOK {
		t.Fatalf("result = %v, want ok", hdr.Result)
	}
	var rep proto.DspPollRep
	rep.Decode(rarg)
	if rep.Revents != 1 {
		t.Errorf("revents = %d, want 1", rep.Revents)
	}

	// the handler wrote through the passed descriptor
	var b [1]byte
	if err := io.ReadFill(fds[0], b[:]); err != nil || b[0] != 0x5a {
		t.Fatalf("read from kept end: %v %x", err, b[0])
	}
}

func TestDescriptorMissing(t *testing.T) {
	ran := false
	reg := NewRegistry()
	mustRegister(t, reg, proto.OpCodeDspPoll, func(req *Request) proto.Result {
		ran = true
		return proto.ResultOK
	})
	s, p := newPair(t, reg)

	carg := make([]byte, proto.DspPollArgSize)
	p.sendCmd(proto.OpCodeDspPoll, carg, nil, 0, -1)
	more, err := s.ProcessCommand()
	if more || !errors.Is(err, proto.ErrBadDescriptor) {
		t.Fatalf("ProcessCommand() = (%v, %v), want descriptor mismatch", more, err)
	}
	if ran {
		t.Fatal("handler ran on a rejected command")
	}
	if hdr, _, _ := p.recvReply(proto.OpCodeDspPoll); hdr.Result.Errno() != unix.EINVAL {
		t.Fatalf("reply result = %v, want -EINVAL", hdr.Result)
	}
}

func TestUnexpectedDescriptor(t *testing.T) {
	ran := false
	reg := NewRegistry()
	mustRegister(t, reg, proto.OpCodeDspPost, func(req *Request) proto.Result {
		ran = true
		return proto.ResultOK
	})
	s, p := newPair(t, reg)

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	p.sendCmd(proto.OpCodeDspPost, nil, nil, 0, fds[1])
	unix.Close(fds[1])

	more, err := s.ProcessCommand()
	if more || !errors.Is(err, proto.ErrBadDescriptor) {
		t.Fatalf("ProcessCommand() = (%v, %v), want descriptor mismatch", more, err)
	}
	if ran {
		t.Fatal("handler ran on a rejected command")
	}
}

// Ancillary data of any type other than SCM_RIGHTS is a protocol
// violation: the peer gets a failing reply, not a silent EIO teardown.
// SO_PASSCRED makes the kernel attach SCM_CREDENTIALS to the message.
func TestUnexpectedControlMessage(t *testing.T) {
	ran := false
	reg := NewRegistry()
	mustRegister(t, reg, proto.OpCodeDspPost, func(req *Request) proto.Result {
		ran = true
		return proto.ResultOK
	})
	s, p := newPair(t, reg)

	if err := unix.SetsockoptInt(s.sock, unix.SOL_SOCKET, unix.SO_PASSCRED, 1); err != nil {
		t.Fatalf("SO_PASSCRED: %v", err)
	}
	p.sendCmd(proto.OpCodeDspPost, nil, nil, 0, -1)

	more, err := s.ProcessCommand()
	if more || !errors.Is(err, proto.ErrBadControlMsg) {
		t.Fatalf("ProcessCommand() = (%v, %v), want bad control message", more, err)
	}
	if ran {
		t.Fatal("handler ran on a rejected command")
	}
	if hdr, _, _ := p.recvReply(proto.OpCodeDspPost); hdr.Result.Errno() != unix.EINVAL {
		t.Fatalf("reply result = %v, want -EINVAL", hdr.Result)
	}
}

func TestBadMagic(t *testing.T) {
	s, p := newPair(t, NewRegistry())

	var raw [proto.CmdHeaderSize]byte
	hdr := proto.NewCmdHeader(proto.OpCodeDspPost, 0, 0)
	hdr.Encode(raw[:])
	raw[0] ^= 0xff
	if err := io.WriteFill(p.fd, raw[:]); err != nil {
		t.Fatalf("send: %v", err)
	}

	more, err := s.ProcessCommand()
	if more || !errors.Is(err, proto.ErrMalformedFrame) {
		t.Fatalf("ProcessCommand() = (%v, %v), want malformed frame", more, err)
	}
	if hdr, _, _ := p.recvReply(proto.OpCodeDspPost); hdr.Result.Errno() != unix.EINVAL {
		t.Fatalf("reply result = %v, want -EINVAL", hdr.Result)
	}
}

func TestOpcodeOutOfRange(t *testing.T) {
	s, p := newPair(t, NewRegistry())

	p.sendCmd(proto.NumOpCodes+3, nil, nil, 0, -1)
	more, err := s.ProcessCommand()
	if more || !errors.Is(err, proto.ErrUnknownOpcode) {
		t.Fatalf("ProcessCommand() = (%v, %v), want unknown opcode", more, err)
	}
	if hdr, _, _ := p.recvReply(proto.OpCodeDspPost); hdr.Result.Errno() != unix.EINVAL {
		t.Fatalf("reply result = %v, want -EINVAL", hdr.Result)
	}
}

// An in-range opcode with no registered handler fails the command but
// keeps the session alive: the frame was well-formed and fully consumed.
func TestUnregisteredOpcode(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, proto.OpCodeDspPost, func(req *Request) proto.Result {
		return proto.ResultOK
	})
	s, p := newPair(t, reg)

	p.sendCmd(proto.OpCodeDspFlush, nil, nil, 0, -1)
	mustProcess(t, s)
	if hdr, _, _ := p.recvReply(proto.OpCodeDspFlush); hdr.Result.Errno() != unix.EINVAL {
		t.Fatalf("reply result = %v, want -EINVAL", hdr.Result)
	}

	p.sendCmd(proto.OpCodeDspPost, nil, nil, 0, -1)
	mustProcess(t, s)
	if hdr, _, _ := p.recvReply(proto.OpCodeDspPost); hdr.Result != proto.ResultOK {
		t.Fatalf("followup result = %v, want ok", hdr.Result)
	}
}

func TestAcquireReleaseBracket(t *testing.T) {
	var acquires, releases, handled int
	reg := NewRegistry()
	mustRegister(t, reg, proto.OpCodeDspPost, func(req *Request) proto.Result {
		handled++
		if acquires != handled {
			t.Errorf("handler ran with %d acquires after %d commands", acquires, handled)
		}
		if releases != handled-1 {
			t.Errorf("release ran before handler finished")
		}
		return proto.ResultOK
	})
	reg.SetBracket(
		func() proto.Result { acquires++; return proto.ResultOK },
		func() { releases++ },
	)
	s, p := newPair(t, reg)

	for i := 0; i < 3; i++ {
		p.sendCmd(proto.OpCodeDspPost, nil, nil, 0, -1)
		mustProcess(t, s)
		p.recvReply(proto.OpCodeDspPost)
	}
	if acquires != 3 || releases != 3 || handled != 3 {
		t.Fatalf("acquires=%d releases=%d handled=%d, want 3 each", acquires, releases, handled)
	}
}

// The release hook runs exactly once even when the handler fails.
func TestReleaseRunsOnHandlerFailure(t *testing.T) {
	var acquires, releases int
	reg := NewRegistry()
	mustRegister(t, reg, proto.OpCodeDspPost, func(req *Request) proto.Result {
		return proto.ErrnoResult(unix.EIO)
	})
	reg.SetBracket(
		func() proto.Result { acquires++; return proto.ResultOK },
		func() { releases++ },
	)
	s, p := newPair(t, reg)

	p.sendCmd(proto.OpCodeDspPost, nil, nil, 0, -1)
	mustProcess(t, s)
	if hdr, _, _ := p.recvReply(proto.OpCodeDspPost); hdr.Result.Errno() != unix.EIO {
		t.Fatalf("reply result = %v, want -EIO", hdr.Result)
	}
	if acquires != 1 || releases != 1 {
		t.Fatalf("acquires=%d releases=%d after a failing handler, want 1 each", acquires, releases)
	}
}

func TestAcquireFailureSkipsHandler(t *testing.T) {
	var releases int
	reg := NewRegistry()
	mustRegister(t, reg, proto.OpCodeDspPost, func(req *Request) proto.Result {
		t.Fatal("handler ran after acquire failed")
		return proto.ResultOK
	})
	reg.SetBracket(
		func() proto.Result { return proto.ErrnoResult(unix.EBUSY) },
		func() { releases++ },
	)
	s, p := newPair(t, reg)

	p.sendCmd(proto.OpCodeDspPost, nil, nil, 0, -1)
	mustProcess(t, s)
	if hdr, _, _ := p.recvReply(proto.OpCodeDspPost); hdr.Result.Errno() != unix.EBUSY {
		t.Fatalf("reply result = %v, want -EBUSY", hdr.Result)
	}
	if releases != 0 {
		t.Fatalf("release ran %d times after failed acquire, want 0", releases)
	}
}

func TestOversizedData(t *testing.T) {
	s, p := newPair(t, NewRegistry(), WithMaxDataSize(64))

	// only the header goes out; the engine must reject before staging din
	hdr := proto.NewCmdHeader(proto.OpCodeDspWrite, 128, 0)
	var raw [proto.CmdHeaderSize]byte
	hdr.Encode(raw[:])
	if err := io.WriteFill(p.fd, raw[:]); err != nil {
		t.Fatalf("send: %v", err)
	}

	more, err := s.ProcessCommand()
	if more || !errors.Is(err, proto.ErrOverSize) {
		t.Fatalf("ProcessCommand() = (%v, %v), want size cap violation", more, err)
	}
	if hdr, _, _ := p.recvReply(proto.OpCodeDspWrite); hdr.Result.Errno() != unix.ENOMEM {
		t.Fatalf("reply result = %v, want -ENOMEM", hdr.Result)
	}
}

func TestCleanClose(t *testing.T) {
	s, p := newPair(t, NewRegistry())
	p.close()
	more, err := s.ProcessCommand()
	if more || err != nil {
		t.Fatalf("ProcessCommand() = (%v, %v), want (false, nil)", more, err)
	}
}

func TestScratchBuffersPersist(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, proto.OpCodeDspWrite, func(req *Request) proto.Result {
		return proto.Result(len(req.DataIn))
	})
	s, p := newPair(t, reg)

	p.sendCmd(proto.OpCodeDspWrite, nil, make([]byte, 300), 0, -1)
	mustProcess(t, s)
	p.recvReply(proto.OpCodeDspWrite)
	grown := s.din.Cap()
	if grown < 300 {
		t.Fatalf("din cap = %d after 300-byte command", grown)
	}

	p.sendCmd(proto.OpCodeDspWrite, nil, make([]byte, 10), 0, -1)
	mustProcess(t, s)
	p.recvReply(proto.OpCodeDspWrite)
	if s.din.Cap() != grown {
		t.Fatalf("din cap changed %d -> %d on a smaller command", grown, s.din.Cap())
	}
}

func TestDoutSizeClamped(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, proto.OpCodeDspRead, func(req *Request) proto.Result {
		req.DoutSize = len(req.DataOut) + 100
		return proto.ResultOK
	})
	s, p := newPair(t, reg)

	p.sendCmd(proto.OpCodeDspRead, nil, nil, 16, -1)
	mustProcess(t, s)
	hdr, _, dout := p.recvReply(proto.OpCodeDspRead)
	if hdr.DoutSize != 16 || len(dout) != 16 {
		t.Fatalf("dout size = %d, want clamped to 16", hdr.DoutSize)
	}
}

func TestRegistryValidation(t *testing.T) {
	reg := NewRegistry()
	h := HandlerFunc(func(req *Request) proto.Result { return proto.ResultOK })
	if err := reg.Register(proto.NumOpCodes, h); err == nil {
		t.Error("out-of-range opcode registered")
	}
	if err := reg.Register(proto.OpCodeDspPost, nil); err == nil {
		t.Error("nil handler registered")
	}
	if err := reg.Register(proto.OpCodeDspPost, h); err != nil {
		t.Errorf("first registration failed: %v", err)
	}
	if err := reg.Register(proto.OpCodeDspPost, h); err == nil {
		t.Error("duplicate registration accepted")
	}
}
