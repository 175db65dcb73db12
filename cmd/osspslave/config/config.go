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

package config

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/golang/glog"

	"osspd/pkg/initmgr"
	otelCfg "osspd/pkg/logging/otel/config"
)

var Initializer initmgr.IInitializer = initmgr.NewInitializer(initialize, nil)

type Config struct {
	LogLevel    string
	MaxDataSize int

	// Stream defaults handed to the backend before the first DspSetParam.
	Rate     uint32
	Channels uint32

	Otel otelCfg.Config
}

var Conf = Config{
	LogLevel:    "info",
	MaxDataSize: 1 << 20,
	Rate:        44100,
	Channels:    2,
}

func LoadConfig(filename string) (err error) {
	if _, err = toml.DecodeFile(filename, &Conf); err != nil {
		return
	}
	err = Conf.Validate()
	return
}

func (c *Config) Validate() (err error) {
	if c.MaxDataSize <= 0 {
		return fmt.Errorf("MaxDataSize must be positive, got %d", c.MaxDataSize)
	}
	if c.Rate == 0 || c.Channels == 0 {
		return fmt.Errorf("Rate and Channels must be positive")
	}
	c.Otel.Validate()
	return nil
}

func (c *Config) Dump() {
	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	encoder.Encode(c)
	glog.Info(buf.String())
}

func initialize(args ...interface{}) (err error) {
	if len(args) < 1 {
		err = fmt.Errorf("a string config file name argument expected")
		return
	}
	filename, ok := args[0].(string)
	if !ok {
		err = fmt.Errorf("wrong argument type. a string config file name expected")
		return
	}
	err = LoadConfig(filename)
	return
}
