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
	"fmt"

	"osspd/pkg/io"
	"osspd/pkg/proto"
)

// Request is one fully-staged command handed to a handler. All slices
// point into session scratch buffers and are valid only for the duration
// of Handle.
type Request struct {
	Op     proto.OpCode
	CArg   []byte
	DataIn []byte
	RArg   []byte
	// DataOut is sized to the caller's requested output length.
	DataOut []byte
	// DoutSize is the number of DataOut bytes to send back. It is
	// initialized to len(DataOut); a handler may reduce it. Values
	// above the request's limit are clamped by the engine.
	DoutSize int
	// FD is the passed descriptor, invalid when the opcode carries
	// none. The handler owns it: keep it via Release or close it.
	FD *io.FD
}

// Handler executes one command against the backend. A negative result
// reports failure and suppresses all reply payload.
type Handler interface {
	Handle(req *Request) proto.Result
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(req *Request) proto.Result

func (f HandlerFunc) Handle(req *Request) proto.Result {
	return f(req)
}

// Registry maps opcodes to handlers and carries the acquire/release
// bracket hooks. Registration is validated up front so no out-of-range
// opcode can ever be dispatched.
type Registry struct {
	handlers [proto.NumOpCodes]Handler
	acquire  func() proto.Result
	release  func()
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(op proto.OpCode, h Handler) error {
	if op >= proto.NumOpCodes {
		return fmt.Errorf("register %v: opcode out of range", op)
	}
	if h == nil {
		return fmt.Errorf("register %v: nil handler", op)
	}
	if r.handlers[op] != nil {
		return fmt.Errorf("register %v: handler already registered", op)
	}
	r.handlers[op] = h
	return nil
}

// SetBracket installs the hooks run around every handler invocation.
// acquire returning anything but ResultOK is propagated as the command
// result; the handler and release do not run. Either hook may be nil.
func (r *Registry) SetBracket(acquire func() proto.Result, release func()) {
	r.acquire = acquire
	r.release = release
}

func (r *Registry) handler(op proto.OpCode) Handler {
	if op >= proto.NumOpCodes {
		return nil
	}
	return r.handlers[op]
}

func (r *Registry) acquireHook() proto.Result {
	if r.acquire == nil {
		return proto.ResultOK
	}
	return r.acquire()
}

func (r *Registry) releaseHook() {
	if r.release != nil {
		r.release()
	}
}
