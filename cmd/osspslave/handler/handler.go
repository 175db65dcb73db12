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

// Package handler implements the null audio backend: a device that
// accepts every stream, plays writes into the void and reads back
// silence. It exists to give a coordinator a working slave on hosts
// with no audio hardware, and it is the reference for what a real
// backend has to implement.
package handler

import (
	"sync"

	"golang.org/x/sys/unix"

	"osspd/pkg/logging"
	"osspd/pkg/proto"
	"osspd/pkg/slave"
)

const (
	maxVolume = 100

	fragSize   = 4096
	fragsTotal = 16
)

// NullBackend holds the device state shared by all handlers. The
// dispatch bracket serializes handler execution, so the mutex only
// guards against notifier callers touching state concurrently.
type NullBackend struct {
	mtx sync.Mutex

	vol     [2]int32
	param   proto.DspParam
	opened  bool
	running bool

	bytesWritten uint64
	bytesRead    uint64

	notifier *slave.Notifier
}

func NewNullBackend(rate, channels uint32, notifier *slave.Notifier) *NullBackend {
	return &NullBackend{
		vol:      [2]int32{maxVolume, maxVolume},
		param:    proto.DspParam{Rate: rate, Channels: channels, Format: 16},
		running:  true,
		notifier: notifier,
	}
}

// RegisterAll wires every opcode plus the device bracket into reg.
func (b *NullBackend) RegisterAll(reg *slave.Registry) error {
	handlers := map[proto.OpCode]slave.HandlerFunc{
		proto.OpCodeMixer:       b.mixer,
		proto.OpCodeDspOpen:     b.open,
		proto.OpCodeDspRead:     b.read,
		proto.OpCodeDspWrite:    b.write,
		proto.OpCodeDspPoll:     b.poll,
		proto.OpCodeDspMmap:     b.mmap,
		proto.OpCodeDspGetParam: b.getParam,
		proto.OpCodeDspSetParam: b.setParam,
		proto.OpCodeDspGetSpace: b.getSpace,
		proto.OpCodeDspTrigger:  b.trigger,
		proto.OpCodeDspPost:     b.post,
		proto.OpCodeDspFlush:    b.flush,
	}
	for op, h := range handlers {
		if err := reg.Register(op, h); err != nil {
			return err
		}
	}
	reg.SetBracket(b.acquire, b.release)
	return nil
}

func (b *NullBackend) acquire() proto.Result {
	b.mtx.Lock()
	return proto.ResultOK
}

func (b *NullBackend) release() {
	b.mtx.Unlock()
}

func clampVolume(v int32) int32 {
	if v < 0 {
		return 0
	}
	if v > maxVolume {
		return maxVolume
	}
	return v
}

// mixer reads the volume, or sets it and announces the change on the
// notify channel. The reply always carries the resulting volume.
func (b *NullBackend) mixer(req *slave.Request) proto.Result {
	var arg proto.MixerArg
	if err := arg.Decode(req.CArg); err != nil {
		return proto.ErrnoResult(unix.EINVAL)
	}
	if arg.Set >= 0 {
		b.vol[0] = clampVolume(arg.Vol[0])
		b.vol[1] = clampVolume(arg.Vol[1])
		logging.LogDebug.Infof("mixer volume set to %d/%d", b.vol[0], b.vol[1])
		if b.notifier != nil {
			b.notifier.Send(proto.NotifyVolChange)
		}
	}
	rep := proto.MixerVol{Vol: b.vol}
	rep.Encode(req.RArg)
	return proto.ResultOK
}

func (b *NullBackend) open(req *slave.Request) proto.Result {
	var arg proto.DspOpenArg
	if err := arg.Decode(req.CArg); err != nil {
		return proto.ErrnoResult(unix.EINVAL)
	}
	if b.opened {
		return proto.ErrnoResult(unix.EBUSY)
	}
	if arg.Rate != 0 {
		b.param.Rate = arg.Rate
	}
	if arg.Channels != 0 {
		b.param.Channels = arg.Channels
	}
	if arg.Format != 0 {
		b.param.Format = arg.Format
	}
	b.opened = true
	logging.LogInfo.Infof("dsp opened, %s", logging.NewKVBuffer().
		AddUint32("rate", b.param.Rate).
		AddUint32("channels", b.param.Channels).
		AddUint32("format", b.param.Format))
	return proto.ResultOK
}

// read fills the requested output section with silence.
func (b *NullBackend) read(req *slave.Request) proto.Result {
	out := req.DataOut
	for i := range out {
		out[i] = 0
	}
	b.bytesRead += uint64(len(out))
	return proto.Result(len(out))
}

// write consumes the payload whole. The null device never blocks.
func (b *NullBackend) write(req *slave.Request) proto.Result {
	if !b.running {
		return proto.ErrnoResult(unix.EAGAIN)
	}
	b.bytesWritten += uint64(len(req.DataIn))
	return proto.Result(len(req.DataIn))
}

// poll takes ownership of the passed event descriptor. The null device
// is always ready, so it answers immediately and drops the descriptor.
func (b *NullBackend) poll(req *slave.Request) proto.Result {
	var arg proto.DspPollArg
	if err := arg.Decode(req.CArg); err != nil {
		req.FD.Close()
		return proto.ErrnoResult(unix.EINVAL)
	}
	req.FD.Close()
	rep := proto.DspPollRep{Revents: arg.Events}
	rep.Encode(req.RArg)
	return proto.ResultOK
}

// mmap is not supported without hardware buffers; the descriptor is
// consumed and the caller falls back to read/write.
func (b *NullBackend) mmap(req *slave.Request) proto.Result {
	req.FD.Close()
	return proto.ErrnoResult(unix.EINVAL)
}

func (b *NullBackend) getParam(req *slave.Request) proto.Result {
	b.param.Encode(req.RArg)
	return proto.ResultOK
}

func (b *NullBackend) setParam(req *slave.Request) proto.Result {
	var p proto.DspParam
	if err := p.Decode(req.CArg); err != nil {
		return proto.ErrnoResult(unix.EINVAL)
	}
	if p.Rate == 0 || p.Channels == 0 || p.Format == 0 {
		return proto.ErrnoResult(unix.EINVAL)
	}
	b.param = p
	return proto.ResultOK
}

func (b *NullBackend) getSpace(req *slave.Request) proto.Result {
	var arg proto.DspSpaceArg
	if err := arg.Decode(req.CArg); err != nil {
		return proto.ErrnoResult(unix.EINVAL)
	}
	rep := proto.DspSpaceRep{
		Bytes:      fragSize * fragsTotal,
		Fragments:  fragsTotal,
		FragSize:   fragSize,
		FragsTotal: fragsTotal,
	}
	rep.Encode(req.RArg)
	return proto.ResultOK
}

func (b *NullBackend) trigger(req *slave.Request) proto.Result {
	var arg proto.DspTriggerArg
	if err := arg.Decode(req.CArg); err != nil {
		return proto.ErrnoResult(unix.EINVAL)
	}
	b.running = arg.Enable != 0
	return proto.ResultOK
}

func (b *NullBackend) post(req *slave.Request) proto.Result {
	return proto.ResultOK
}

func (b *NullBackend) flush(req *slave.Request) proto.Result {
	b.bytesWritten = 0
	b.bytesRead = 0
	return proto.ResultOK
}
