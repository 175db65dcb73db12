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

// DecodeCmdHeader validates and decodes a received command header. The
// caller passes exactly the bytes read for the header; any other length
// (a truncated recv) is a malformed frame, as is a wrong magic.
func DecodeCmdHeader(raw []byte) (h CmdHeader, err error) {
	if len(raw) != CmdHeaderSize {
		return h, ErrMalformedFrame
	}
	h.Magic = EncByteOrder.Uint32(raw[0:4])
	h.Op = OpCode(EncByteOrder.Uint32(raw[4:8]))
	h.DinSize = EncByteOrder.Uint32(raw[8:12])
	h.DoutSize = EncByteOrder.Uint32(raw[12:16])
	if h.Magic != kCmdMagic {
		return h, ErrMalformedFrame
	}
	return h, nil
}

// DecodeReplyHeader decodes a reply header. Used by the coordinator side
// of the protocol and by tests.
func DecodeReplyHeader(raw []byte) (h ReplyHeader, err error) {
	if len(raw) != ReplyHeaderSize {
		return h, ErrMalformedFrame
	}
	h.Magic = EncByteOrder.Uint32(raw[0:4])
	h.Result = Result(int32(EncByteOrder.Uint32(raw[4:8])))
	h.DoutSize = EncByteOrder.Uint32(raw[8:12])
	if h.Magic != kReplyMagic {
		return h, ErrMalformedFrame
	}
	return h, nil
}

func DecodeNotification(raw []byte) (n Notification, err error) {
	if len(raw) != NotifySize {
		return n, ErrMalformedFrame
	}
	n.Magic = EncByteOrder.Uint32(raw[0:4])
	n.Code = NotifyCode(EncByteOrder.Uint32(raw[4:8]))
	if n.Magic != kNotifyMagic {
		return n, ErrMalformedFrame
	}
	return n, nil
}
