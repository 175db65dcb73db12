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

// Package io provides exact-count stream primitives and descriptor
// passing over the inherited command channel. The channel is a raw fd,
// not a net.Conn: the coordinator hands it down at fork time.
package io

import (
	"osspd/pkg/proto"

	"golang.org/x/sys/unix"
)

// ReadFill reads exactly len(buf) bytes from fd, retrying short reads
// and interruptions. A peer close before the section is complete is an
// i/o failure, not a clean shutdown.
func ReadFill(fd int, buf []byte) error {
	for off := 0; off < len(buf); {
		n, err := unix.Read(fd, buf[off:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return proto.ErrIO
		}
		off += n
	}
	return nil
}

// WriteFill writes exactly len(buf) bytes to fd. An empty buf is a
// no-op success.
func WriteFill(fd int, buf []byte) error {
	for off := 0; off < len(buf); {
		n, err := unix.Write(fd, buf[off:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		off += n
	}
	return nil
}
