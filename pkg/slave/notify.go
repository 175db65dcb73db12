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
	"sync"

	"osspd/pkg/io"
	"osspd/pkg/logging"
	"osspd/pkg/logging/otel"
	"osspd/pkg/proto"
)

// Notifier sends async event frames on the notify channel. Unlike the
// command channel it carries no replies, so sends may come from any
// goroutine; a mutex keeps frames whole.
type Notifier struct {
	mtx sync.Mutex
	fd  int
	buf [proto.NotifySize]byte
}

func NewNotifier(fd int) *Notifier {
	return &Notifier{fd: fd}
}

// Send writes one notification frame. A failed send means the
// coordinator side is gone; the caller decides whether that ends the
// process.
func (n *Notifier) Send(code proto.NotifyCode) error {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	note := proto.NewNotification(code)
	note.Encode(n.buf[:])
	if err := io.WriteFill(n.fd, n.buf[:]); err != nil {
		io.LogError(err)
		return proto.ErrIO
	}
	logging.LogDebug.Infof("notified %v", code)
	if otel.IsEnabled() {
		otel.RecordCount(otel.Notify, code.String())
	}
	return nil
}
