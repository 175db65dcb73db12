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

// ArgSizeEntry describes the fixed wire sections of one opcode: the
// command-argument size, the reply-argument size, and whether the command
// message carries a passed descriptor.
type ArgSizeEntry struct {
	CargSize int
	RargSize int
	HasFD    bool
}

const (
	MixerArgSize    = 12
	MixerVolSize    = 8
	DspOpenArgSize  = 16
	DspParamSize    = 12
	DspPollArgSize  = 4
	DspPollRepSize  = 4
	DspMmapArgSize  = 8
	DspSpaceArgSize = 4
	DspSpaceRepSize = 16
	DspTriggerSize  = 4
)

var argSizeTbl = [NumOpCodes]ArgSizeEntry{
	OpCodeMixer:       {CargSize: MixerArgSize, RargSize: MixerVolSize},
	OpCodeDspOpen:     {CargSize: DspOpenArgSize},
	OpCodeDspRead:     {},
	OpCodeDspWrite:    {},
	OpCodeDspPoll:     {CargSize: DspPollArgSize, RargSize: DspPollRepSize, HasFD: true},
	OpCodeDspMmap:     {CargSize: DspMmapArgSize, HasFD: true},
	OpCodeDspGetParam: {RargSize: DspParamSize},
	OpCodeDspSetParam: {CargSize: DspParamSize},
	OpCodeDspGetSpace: {CargSize: DspSpaceArgSize, RargSize: DspSpaceRepSize},
	OpCodeDspTrigger:  {CargSize: DspTriggerSize},
	OpCodeDspPost:     {},
	OpCodeDspFlush:    {},
}

// ArgSizes returns the size table entry for op, or ErrUnknownOpcode when
// op is outside the table.
func ArgSizes(op OpCode) (*ArgSizeEntry, error) {
	if op >= NumOpCodes {
		return nil, ErrUnknownOpcode
	}
	return &argSizeTbl[op], nil
}

type (
	// MixerArg selects or sets the two-channel mixer volume. Set < 0
	// reads the current volume; otherwise Vol is applied.
	MixerArg struct {
		Set int32
		Vol [2]int32
	}

	// MixerVol is the mixer reply argument.
	MixerVol struct {
		Vol [2]int32
	}

	// DspOpenArg carries the stream parameters requested at open.
	DspOpenArg struct {
		Flags    uint32
		Rate     uint32
		Channels uint32
		Format   uint32
	}

	// DspParam is the current stream configuration, used as the command
	// argument of DspSetParam and the reply argument of DspGetParam.
	DspParam struct {
		Rate     uint32
		Channels uint32
		Format   uint32
	}

	DspPollArg struct {
		Events uint32
	}

	DspPollRep struct {
		Revents uint32
	}

	DspMmapArg struct {
		Dir  uint32
		Size uint32
	}

	DspSpaceArg struct {
		Dir uint32
	}

	// DspSpaceRep mirrors the OSS buffer-space info struct.
	DspSpaceRep struct {
		Bytes      uint32
		Fragments  uint32
		FragSize   uint32
		FragsTotal uint32
	}

	DspTriggerArg struct {
		Enable uint32
	}
)

func (a *MixerArg) Decode(raw []byte) error {
	if len(raw) < MixerArgSize {
		return ErrMalformedFrame
	}
	a.Set = int32(EncByteOrder.Uint32(raw[0:4]))
	a.Vol[0] = int32(EncByteOrder.Uint32(raw[4:8]))
	a.Vol[1] = int32(EncByteOrder.Uint32(raw[8:12]))
	return nil
}

func (a *MixerArg) Encode(raw []byte) error {
	if len(raw) < MixerArgSize {
		return ErrMalformedFrame
	}
	EncByteOrder.PutUint32(raw[0:4], uint32(a.Set))
	EncByteOrder.PutUint32(raw[4:8], uint32(a.Vol[0]))
	EncByteOrder.PutUint32(raw[8:12], uint32(a.Vol[1]))
	return nil
}

func (v *MixerVol) Decode(raw []byte) error {
	if len(raw) < MixerVolSize {
		return ErrMalformedFrame
	}
	v.Vol[0] = int32(EncByteOrder.Uint32(raw[0:4]))
	v.Vol[1] = int32(EncByteOrder.Uint32(raw[4:8]))
	return nil
}

func (v *MixerVol) Encode(raw []byte) error {
	if len(raw) < MixerVolSize {
		return ErrMalformedFrame
	}
	EncByteOrder.PutUint32(raw[0:4], uint32(v.Vol[0]))
	EncByteOrder.PutUint32(raw[4:8], uint32(v.Vol[1]))
	return nil
}

func (a *DspOpenArg) Decode(raw []byte) error {
	if len(raw) < DspOpenArgSize {
		return ErrMalformedFrame
	}
	a.Flags = EncByteOrder.Uint32(raw[0:4])
	a.Rate = EncByteOrder.Uint32(raw[4:8])
	a.Channels = EncByteOrder.Uint32(raw[8:12])
	a.Format = EncByteOrder.Uint32(raw[12:16])
	return nil
}

func (a *DspOpenArg) Encode(raw []byte) error {
	if len(raw) < DspOpenArgSize {
		return ErrMalformedFrame
	}
	EncByteOrder.PutUint32(raw[0:4], a.Flags)
	EncByteOrder.PutUint32(raw[4:8], a.Rate)
	EncByteOrder.PutUint32(raw[8:12], a.Channels)
	EncByteOrder.PutUint32(raw[12:16], a.Format)
	return nil
}

func (p *DspParam) Decode(raw []byte) error {
	if len(raw) < DspParamSize {
		return ErrMalformedFrame
	}
	p.Rate = EncByteOrder.Uint32(raw[0:4])
	p.Channels = EncByteOrder.Uint32(raw[4:8])
	p.Format = EncByteOrder.Uint32(raw[8:12])
	return nil
}

func (p *DspParam) Encode(raw []byte) error {
	if len(raw) < DspParamSize {
		return ErrMalformedFrame
	}
	EncByteOrder.PutUint32(raw[0:4], p.Rate)
	EncByteOrder.PutUint32(raw[4:8], p.Channels)
	EncByteOrder.PutUint32(raw[8:12], p.Format)
	return nil
}

func (a *DspPollArg) Decode(raw []byte) error {
	if len(raw) < DspPollArgSize {
		return ErrMalformedFrame
	}
	a.Events = EncByteOrder.Uint32(raw[0:4])
	return nil
}

func (a *DspPollArg) Encode(raw []byte) error {
	if len(raw) < DspPollArgSize {
		return ErrMalformedFrame
	}
	EncByteOrder.PutUint32(raw[0:4], a.Events)
	return nil
}

func (r *DspPollRep) Decode(raw []byte) error {
	if len(raw) < DspPollRepSize {
		return ErrMalformedFrame
	}
	r.Revents = EncByteOrder.Uint32(raw[0:4])
	return nil
}

func (r *DspPollRep) Encode(raw []byte) error {
	if len(raw) < DspPollRepSize {
		return ErrMalformedFrame
	}
	EncByteOrder.PutUint32(raw[0:4], r.Revents)
	return nil
}

func (a *DspMmapArg) Decode(raw []byte) error {
	if len(raw) < DspMmapArgSize {
		return ErrMalformedFrame
	}
	a.Dir = EncByteOrder.Uint32(raw[0:4])
	a.Size = EncByteOrder.Uint32(raw[4:8])
	return nil
}

func (a *DspMmapArg) Encode(raw []byte) error {
	if len(raw) < DspMmapArgSize {
		return ErrMalformedFrame
	}
	EncByteOrder.PutUint32(raw[0:4], a.Dir)
	EncByteOrder.PutUint32(raw[4:8], a.Size)
	return nil
}

func (a *DspSpaceArg) Decode(raw []byte) error {
	if len(raw) < DspSpaceArgSize {
		return ErrMalformedFrame
	}
	a.Dir = EncByteOrder.Uint32(raw[0:4])
	return nil
}

func (a *DspSpaceArg) Encode(raw []byte) error {
	if len(raw) < DspSpaceArgSize {
		return ErrMalformedFrame
	}
	EncByteOrder.PutUint32(raw[0:4], a.Dir)
	return nil
}

func (r *DspSpaceRep) Decode(raw []byte) error {
	if len(raw) < DspSpaceRepSize {
		return ErrMalformedFrame
	}
	r.Bytes = EncByteOrder.Uint32(raw[0:4])
	r.Fragments = EncByteOrder.Uint32(raw[4:8])
	r.FragSize = EncByteOrder.Uint32(raw[8:12])
	r.FragsTotal = EncByteOrder.Uint32(raw[12:16])
	return nil
}

func (r *DspSpaceRep) Encode(raw []byte) error {
	if len(raw) < DspSpaceRepSize {
		return ErrMalformedFrame
	}
	EncByteOrder.PutUint32(raw[0:4], r.Bytes)
	EncByteOrder.PutUint32(raw[4:8], r.Fragments)
	EncByteOrder.PutUint32(raw[8:12], r.FragSize)
	EncByteOrder.PutUint32(raw[12:16], r.FragsTotal)
	return nil
}

func (a *DspTriggerArg) Decode(raw []byte) error {
	if len(raw) < DspTriggerSize {
		return ErrMalformedFrame
	}
	a.Enable = EncByteOrder.Uint32(raw[0:4])
	return nil
}

func (a *DspTriggerArg) Encode(raw []byte) error {
	if len(raw) < DspTriggerSize {
		return ErrMalformedFrame
	}
	EncByteOrder.PutUint32(raw[0:4], a.Enable)
	return nil
}
