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

// Package logging configures glog for the slave process and provides the
// key=value buffer used for structured log detail.
package logging

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// Verbosity gates, set by InitLogging. Checking these before formatting
// keeps disabled levels cheap.
var (
	LogError   glog.Verbose = true
	LogWarn    glog.Verbose = true
	LogInfo    glog.Verbose = true
	LogDebug   glog.Verbose = false
	LogVerbose glog.Verbose = false
)

// InitLogging maps a config log level to glog verbosity and routes log
// output to stderr; a slave's stdout/stderr are captured by the
// coordinator.
func InitLogging(level string, appName string) {
	flag.Lookup("logtostderr").Value.Set("true")

	var glevel string
	if strings.EqualFold("error", level) {
		glevel = "1"
	} else if strings.EqualFold("warning", level) {
		glevel = "2"
	} else if strings.EqualFold("debug", level) {
		glevel = "4"
	} else if strings.EqualFold("verbose", level) {
		glevel = "5"
	} else { // default is info
		glevel = "3"
	}
	flag.Lookup("v").Value.Set(glevel)

	LogError = glog.V(1)
	LogWarn = glog.V(2)
	LogInfo = glog.V(3)
	LogDebug = glog.V(4)
	LogVerbose = glog.V(5)

	glog.Infof("%s logging initialized (level %s)", appName, level)
}

func Initialize(args ...interface{}) (err error) {
	if len(args) < 2 {
		return fmt.Errorf("a log level and an app name expected")
	}
	level, ok := args[0].(string)
	if !ok {
		return fmt.Errorf("a string log level expected")
	}
	appName, ok := args[1].(string)
	if !ok {
		return fmt.Errorf("a string app name expected")
	}
	InitLogging(level, appName)
	return nil
}

func Finalize() {
	glog.Flush()
}

// KeyValueBuffer accumulates key=value pairs for one log line.
type KeyValueBuffer struct {
	strings.Builder
}

func NewKVBuffer() *KeyValueBuffer {
	return &KeyValueBuffer{}
}

func (b *KeyValueBuffer) Add(key string, value string) *KeyValueBuffer {
	if b.Len() > 0 {
		b.WriteByte(',')
	}
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(value)
	return b
}

func (b *KeyValueBuffer) AddInt(key string, value int) *KeyValueBuffer {
	return b.Add(key, strconv.Itoa(value))
}

func (b *KeyValueBuffer) AddUint32(key string, value uint32) *KeyValueBuffer {
	return b.Add(key, strconv.FormatUint(uint64(value), 10))
}

func (b *KeyValueBuffer) AddStringer(key string, value fmt.Stringer) *KeyValueBuffer {
	return b.Add(key, value.String())
}
