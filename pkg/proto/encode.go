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

func (h *CmdHeader) Encode(raw []byte) error {
	if len(raw) < CmdHeaderSize {
		return ErrMalformedFrame
	}
	EncByteOrder.PutUint32(raw[0:4], h.Magic)
	EncByteOrder.PutUint32(raw[4:8], uint32(h.Op))
	EncByteOrder.PutUint32(raw[8:12], h.DinSize)
	EncByteOrder.PutUint32(raw[12:16], h.DoutSize)
	return nil
}

func (h *ReplyHeader) Encode(raw []byte) error {
	if len(raw) < ReplyHeaderSize {
		return ErrMalformedFrame
	}
	EncByteOrder.PutUint32(raw[0:4], h.Magic)
	EncByteOrder.PutUint32(raw[4:8], uint32(int32(h.Result)))
	EncByteOrder.PutUint32(raw[8:12], h.DoutSize)
	return nil
}

func (n *Notification) Encode(raw []byte) error {
	if len(raw) < NotifySize {
		return ErrMalformedFrame
	}
	EncByteOrder.PutUint32(raw[0:4], n.Magic)
	EncByteOrder.PutUint32(raw[4:8], uint32(n.Code))
	return nil
}
