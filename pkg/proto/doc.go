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

// Package proto defines the command channel wire protocol between the
// coordinator (osspd) and a slave process.
//
// A command is a fixed 16-byte header, optionally accompanied by one
// passed descriptor in the same socket message, followed by two plain
// stream sections: the fixed command argument (size from the opcode
// table) and the variable input data (size from the header). The reply
// is a fixed 12-byte header followed by the fixed reply argument and the
// variable output data; both reply sections are empty when the result is
// negative.
//
// All integers are in host byte order: the channel is a local socketpair
// shared with the coordinator on the same machine.
package proto
