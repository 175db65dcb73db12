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

package proto

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

type (
	OpCode     uint32
	NotifyCode uint32

	// Result is the signed command result carried in the reply header.
	// Negative values are OS error numbers; non-negative values are
	// handler-defined success indicators.
	Result int32
)

const (
	kCmdMagic    uint32 = 0x4f535043 // "OSPC"
	kReplyMagic  uint32 = 0x4f535052 // "OSPR"
	kNotifyMagic uint32 = 0x4f53504e // "OSPN"
)

const (
	OpCodeMixer = OpCode(iota)
	OpCodeDspOpen
	OpCodeDspRead
	OpCodeDspWrite
	OpCodeDspPoll
	OpCodeDspMmap
	OpCodeDspGetParam
	OpCodeDspSetParam
	OpCodeDspGetSpace
	OpCodeDspTrigger
	OpCodeDspPost
	OpCodeDspFlush
	NumOpCodes
)

const (
	NotifyPoll = NotifyCode(iota)
	NotifyVolChange
	NotifyObituary
)

const (
	ResultOK = Result(0)
)

// Wire byte order for every fixed-width field. The original protocol
// sends raw host-order structs over a local socketpair; the codec keeps
// that layout but decodes field by field.
var EncByteOrder binary.ByteOrder = binary.NativeEndian

// ErrnoResult converts an OS error number to a negative command result.
func ErrnoResult(errno unix.Errno) Result {
	return -Result(errno)
}

func (r Result) IsError() bool {
	return r < 0
}

// Errno returns the error number carried by a negative result, or 0.
func (r Result) Errno() unix.Errno {
	if r >= 0 {
		return 0
	}
	return unix.Errno(-r)
}

func (r Result) String() string {
	if r >= 0 {
		return fmt.Sprintf("ok(%d)", int32(r))
	}
	return fmt.Sprintf("-%s", unix.ErrnoName(unix.Errno(-r)))
}

var (
	opCodeNameMap = map[OpCode]string{
		OpCodeMixer:       "Mixer",
		OpCodeDspOpen:     "DspOpen",
		OpCodeDspRead:     "DspRead",
		OpCodeDspWrite:    "DspWrite",
		OpCodeDspPoll:     "DspPoll",
		OpCodeDspMmap:     "DspMmap",
		OpCodeDspGetParam: "DspGetParam",
		OpCodeDspSetParam: "DspSetParam",
		OpCodeDspGetSpace: "DspGetSpace",
		OpCodeDspTrigger:  "DspTrigger",
		OpCodeDspPost:     "DspPost",
		OpCodeDspFlush:    "DspFlush",
	}

	notifyCodeNameMap = map[NotifyCode]string{
		NotifyPoll:      "Poll",
		NotifyVolChange: "VolChange",
		NotifyObituary:  "Obituary",
	}
)

func (op OpCode) String() string {
	if name, ok := opCodeNameMap[op]; ok {
		return name
	}
	return fmt.Sprintf("OpCode(%d)", uint32(op))
}

func (c NotifyCode) String() string {
	if name, ok := notifyCodeNameMap[c]; ok {
		return name
	}
	return fmt.Sprintf("NotifyCode(%d)", uint32(c))
}

// Error is a protocol-level failure carrying the OS error number it is
// reported as on the wire.
type Error struct {
	what  string
	errno unix.Errno
}

func NewError(what string, errno unix.Errno) *Error {
	return &Error{what: what, errno: errno}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s)", e.what, unix.ErrnoName(e.errno))
}

func (e *Error) Errno() unix.Errno {
	return e.errno
}

func (e *Error) Result() Result {
	return ErrnoResult(e.errno)
}

var (
	ErrIO             = &Error{what: "i/o failure on command channel", errno: unix.EIO}
	ErrMalformedFrame = &Error{what: "malformed command frame", errno: unix.EINVAL}
	ErrUnknownOpcode  = &Error{what: "opcode out of range", errno: unix.EINVAL}
	ErrBadDescriptor  = &Error{what: "descriptor presence mismatch", errno: unix.EINVAL}
	ErrBadControlMsg  = &Error{what: "unexpected control message type", errno: unix.EINVAL}
	ErrNoMem          = &Error{what: "command buffer allocation", errno: unix.ENOMEM}
	ErrOverSize       = &Error{what: "data section exceeds size cap", errno: unix.ENOMEM}
)
