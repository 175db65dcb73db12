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

// Package slave implements the command dispatch engine of an audio proxy
// slave process. A session owns the inherited command channel, receives
// framed commands with optional passed descriptors, stages their payload
// in persistent scratch buffers, brackets handler invocation with the
// registry's acquire/release hooks and frames the reply.
package slave

import (
	"time"

	"github.com/golang/glog"

	"osspd/pkg/io"
	"osspd/pkg/logging"
	"osspd/pkg/logging/otel"
	"osspd/pkg/proto"
	"osspd/pkg/stats"
	"osspd/pkg/util"
)

// DefaultMaxDataSize caps the din/dout section of a single command.
// Audio fragments are a few KiB; anything near this cap is a protocol
// violation, not a workload.
const DefaultMaxDataSize = 1 << 20

type Session struct {
	sock    int
	reg     *Registry
	maxData int
	stats   *stats.CmdStats

	// Scratch buffers persist across commands and only ever grow.
	carg util.SizedBuf
	din  util.SizedBuf
	rarg util.SizedBuf
	dout util.SizedBuf

	hdrBuf   [proto.CmdHeaderSize]byte
	replyBuf [proto.ReplyHeaderSize]byte
	oobBuf   []byte
}

type SessionOption func(*Session)

// WithMaxDataSize overrides the per-command din/dout size cap.
func WithMaxDataSize(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.maxData = n
		}
	}
}

// WithStats attaches a latency/error recorder to the session.
func WithStats(st *stats.CmdStats) SessionOption {
	return func(s *Session) {
		s.stats = st
	}
}

// NewSession wraps the inherited command channel descriptor. The session
// is single-threaded; the caller drives it by calling ProcessCommand in
// a loop.
func NewSession(sock int, reg *Registry, opts ...SessionOption) *Session {
	s := &Session{
		sock:    sock,
		reg:     reg,
		maxData: DefaultMaxDataSize,
		oobBuf:  make([]byte, io.OobSpace),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessCommand receives, dispatches and replies to exactly one
// command. It returns more=true when the session should continue,
// more=false with a nil error on a clean peer close, and more=false
// with an error when the channel is no longer usable. A handler
// failure is reported to the peer in the reply and is not an error
// here.
func (s *Session) ProcessCommand() (more bool, err error) {
	n, fd, rerr := io.RecvCmd(s.sock, s.hdrBuf[:], s.oobBuf)
	if rerr != nil {
		// A typed failure is a protocol violation by a live peer and
		// gets a failing reply; anything else is a dead channel.
		if perr, ok := rerr.(*proto.Error); ok {
			glog.Errorf("dropping connection: %v", perr)
			fd.Close()
			return false, s.reject(perr)
		}
		io.LogError(rerr)
		return false, s.fatal(proto.ErrIO)
	}
	if n == 0 && !fd.IsValid() {
		logging.LogDebug.Infof("command channel closed by peer")
		return false, nil
	}

	hdr, derr := proto.DecodeCmdHeader(s.hdrBuf[:n])
	if derr != nil {
		glog.Errorf("dropping connection: %v, %s", derr,
			logging.NewKVBuffer().AddInt("len", n))
		fd.Close()
		return false, s.reject(derr)
	}

	sizes, serr := hdr.ArgSizes()
	if serr != nil {
		glog.Errorf("dropping connection: %v, %s", serr,
			logging.NewKVBuffer().AddUint32("opcode", uint32(hdr.Op)))
		fd.Close()
		return false, s.reject(serr)
	}
	if fd.IsValid() != sizes.HasFD {
		glog.Errorf("dropping connection: %v, %s", proto.ErrBadDescriptor,
			logging.NewKVBuffer().AddStringer("op", hdr.Op).
				Add("expected", boolStr(sizes.HasFD)).
				Add("received", boolStr(fd.IsValid())))
		fd.Close()
		return false, s.reject(proto.ErrBadDescriptor)
	}
	if int(hdr.DinSize) > s.maxData || int(hdr.DoutSize) > s.maxData {
		glog.Errorf("dropping connection: %v, %s", proto.ErrOverSize,
			logging.NewKVBuffer().AddStringer("op", hdr.Op).
				AddUint32("din", hdr.DinSize).
				AddUint32("dout", hdr.DoutSize).
				AddInt("cap", s.maxData))
		fd.Close()
		return false, s.reject(proto.ErrOverSize)
	}

	carg := s.carg.Ensure(sizes.CargSize)
	din := s.din.Ensure(int(hdr.DinSize))
	rarg := s.rarg.Ensure(sizes.RargSize)
	dout := s.dout.Ensure(int(hdr.DoutSize))

	// The frame is trusted from here on: carg and din sections follow
	// the header on the stream and must arrive in full.
	if ferr := io.ReadFill(s.sock, carg); ferr != nil {
		io.LogError(ferr)
		fd.Close()
		return false, s.fatal(proto.ErrIO)
	}
	if ferr := io.ReadFill(s.sock, din); ferr != nil {
		io.LogError(ferr)
		fd.Close()
		return false, s.fatal(proto.ErrIO)
	}

	tmStart := time.Now()
	res, doutLen := s.invoke(&hdr, carg, din, rarg, dout, &fd)
	if s.stats != nil {
		s.stats.Put(hdr.Op, time.Since(tmStart), res)
	}

	rargLen := sizes.RargSize
	if res.IsError() {
		// A failed command never carries payload.
		rargLen = 0
		doutLen = 0
	}

	reply := proto.NewReplyHeader(res, uint32(doutLen))
	reply.Encode(s.replyBuf[:])
	if werr := io.WriteFill(s.sock, s.replyBuf[:]); werr != nil {
		io.LogError(werr)
		return false, s.fatal(proto.ErrIO)
	}
	if werr := io.WriteFill(s.sock, rarg[:rargLen]); werr != nil {
		io.LogError(werr)
		return false, s.fatal(proto.ErrIO)
	}
	if werr := io.WriteFill(s.sock, dout[:doutLen]); werr != nil {
		io.LogError(werr)
		return false, s.fatal(proto.ErrIO)
	}

	logging.LogVerbose.Infof("%v done, %s", hdr.Op,
		logging.NewKVBuffer().AddStringer("res", res).AddInt("dout", doutLen))
	return true, nil
}

// invoke runs the handler under the acquire/release bracket and applies
// the output length postcondition. The descriptor is closed here on
// every path where the handler never ran.
func (s *Session) invoke(hdr *proto.CmdHeader, carg, din, rarg, dout []byte, fd *io.FD) (proto.Result, int) {
	h := s.reg.handler(hdr.Op)
	if h == nil {
		logging.LogWarn.Infof("%v has no handler registered", hdr.Op)
		fd.Close()
		return proto.ErrUnknownOpcode.Result(), 0
	}

	if res := s.reg.acquireHook(); res != proto.ResultOK {
		logging.LogWarn.Infof("%v rejected by acquire hook, %s", hdr.Op,
			logging.NewKVBuffer().AddStringer("res", res))
		fd.Close()
		return res, 0
	}

	req := &Request{
		Op:       hdr.Op,
		CArg:     carg,
		DataIn:   din,
		RArg:     rarg,
		DataOut:  dout,
		DoutSize: len(dout),
		FD:       fd,
	}
	res := func() proto.Result {
		defer s.reg.releaseHook()
		return h.Handle(req)
	}()

	doutLen := req.DoutSize
	if doutLen < 0 || doutLen > len(dout) {
		logging.LogWarn.Infof("%v returned out of range dout size, %s", hdr.Op,
			logging.NewKVBuffer().AddInt("got", doutLen).AddInt("limit", len(dout)))
		if doutLen < 0 {
			doutLen = 0
		} else {
			doutLen = len(dout)
		}
	}
	return res, doutLen
}

// reject answers a rejected command with a bare failing reply before the
// channel is torn down. The peer may already be gone; the reply is best
// effort and the original failure is what propagates.
func (s *Session) reject(err error) error {
	perr, ok := err.(*proto.Error)
	if !ok {
		perr = proto.ErrIO
	}
	reply := proto.NewReplyHeader(perr.Result(), 0)
	reply.Encode(s.replyBuf[:])
	if werr := io.WriteFill(s.sock, s.replyBuf[:]); werr != nil {
		io.LogError(werr)
	}
	return s.fatal(perr)
}

func (s *Session) fatal(perr *proto.Error) error {
	if otel.IsEnabled() {
		otel.RecordCount(otel.ChannelFatal, "")
	}
	return perr
}

func boolStr(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
