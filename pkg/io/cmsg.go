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

package io

import (
	"osspd/pkg/proto"

	"golang.org/x/sys/unix"
)

// OobSpace is the ancillary buffer size needed to receive one passed
// descriptor.
var OobSpace = unix.CmsgSpace(4)

// RecvCmd receives one command message: up to len(buf) bytes of data
// and at most one SCM_RIGHTS descriptor. It returns the byte count and
// the received descriptor (invalid if none was passed).
//
// n == 0 with a nil error is a clean peer close. Ancillary data of any
// type other than descriptor passing fails with ErrBadControlMsg; extra
// descriptors beyond the first are closed and the message is rejected.
func RecvCmd(sock int, buf, oob []byte) (n int, fd FD, err error) {
	fd = InvalidFD()
	var oobn int
	for {
		n, oobn, _, _, err = unix.Recvmsg(sock, buf, oob, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fd, err
		}
		break
	}
	if n == 0 && oobn == 0 {
		return 0, fd, nil
	}
	if oobn == 0 {
		return n, fd, nil
	}

	cmsgs, perr := unix.ParseSocketControlMessage(oob[:oobn])
	if perr != nil {
		return n, fd, proto.ErrBadControlMsg
	}
	for i := range cmsgs {
		m := &cmsgs[i]
		if m.Header.Level != unix.SOL_SOCKET || m.Header.Type != unix.SCM_RIGHTS {
			fd.Close()
			return n, InvalidFD(), proto.ErrBadControlMsg
		}
		fds, rerr := unix.ParseUnixRights(m)
		if rerr != nil {
			fd.Close()
			return n, InvalidFD(), proto.ErrBadControlMsg
		}
		for _, raw := range fds {
			if !fd.IsValid() {
				fd = NewFD(raw)
			} else {
				// only one descriptor may accompany a command
				unix.Close(raw)
				fd.Close()
				return n, InvalidFD(), proto.ErrBadControlMsg
			}
		}
	}
	return n, fd, nil
}

// SendCmd sends buf as a single message, donating rawFD alongside it
// when rawFD >= 0. Used by the coordinator side and by tests.
func SendCmd(sock int, buf []byte, rawFD int) error {
	var oob []byte
	if rawFD >= 0 {
		oob = unix.UnixRights(rawFD)
	}
	for {
		err := unix.Sendmsg(sock, buf, oob, nil, 0)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}
