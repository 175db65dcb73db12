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

/*
OSS Proxy slave. Spawned by the coordinator with the command channel
and the notify channel already open on inherited descriptors; serves
commands until the coordinator closes its end.
*/
package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"

	"github.com/golang/glog"

	"osspd/cmd/osspslave/config"
	"osspd/cmd/osspslave/handler"
	"osspd/pkg/cmd"
	"osspd/pkg/initmgr"
	"osspd/pkg/logging"
	"osspd/pkg/logging/otel"
	"osspd/pkg/proto"
	"osspd/pkg/slave"
	"osspd/pkg/stats"
	"osspd/pkg/version"
)

const (
	// Descriptors inherited from the coordinator at spawn time.
	kDefaultCmdFD    = 3
	kDefaultNotifyFD = 4
)

func Main() {
	defer initmgr.Finalize()

	progName := filepath.Base(os.Args[0])

	var option cmd.Option
	var (
		displayVersion bool
		configFilename string
		logLevel       string
		cmdFD          int
		notifyFD       int
	)
	option.BoolOption(&displayVersion, "version", false, "display version info")
	option.StringOption(&configFilename, "config", "", "specify toml config file")
	option.StringOption(&logLevel, "log-level", "", "specify log level. Override LogLevel in config file")
	option.IntOption(&cmdFD, "c|cmd-fd", kDefaultCmdFD, "specify the inherited command channel descriptor")
	option.IntOption(&notifyFD, "n|notify-fd", kDefaultNotifyFD, "specify the inherited notify channel descriptor")

	option.Usage = func() {
		fmt.Printf(`
NAME
  %s - OSS proxy slave

USAGE
  %s <-version>
  %s [-config=<config file>] [-c <fd>] [-n <fd>]

OPTIONS
%s`, progName, progName, progName, option.GetOptionDesc())
	}
	if err := option.Parse(os.Args[1:]); err != nil {
		glog.Exitf("command line: %s", err)
	}
	if displayVersion {
		version.PrintVersionInfo()
		return
	}

	if configFilename != "" {
		if _, err := os.Stat(configFilename); errors.Is(err, fs.ErrNotExist) {
			glog.Exitf("config file \"%s\" not found", configFilename)
		}
		initmgr.Register(config.Initializer, configFilename)
		initmgr.Init() // config first as others depend on it
	}
	cfg := &config.Conf
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	appName := fmt.Sprintf("%s[%s:%d] ", progName, userName(), os.Getpid())

	initmgr.RegisterWithFuncs(logging.Initialize, logging.Finalize, cfg.LogLevel, appName)
	initmgr.RegisterWithFuncs(otel.Initialize, otel.Finalize, &cfg.Otel)
	initmgr.Init()

	notifier := slave.NewNotifier(notifyFD)
	backend := handler.NewNullBackend(cfg.Rate, cfg.Channels, notifier)
	reg := slave.NewRegistry()
	if err := backend.RegisterAll(reg); err != nil {
		glog.Exitf("handler registration: %s", err)
	}

	st := stats.New()
	sess := slave.NewSession(cmdFD, reg,
		slave.WithMaxDataSize(cfg.MaxDataSize),
		slave.WithStats(st))

	glog.Infof("%sserving commands on fd %d, notify on fd %d", appName, cmdFD, notifyFD)

	for {
		more, err := sess.ProcessCommand()
		if !more {
			if err != nil {
				glog.Errorf("command channel failure: %s", err)
			}
			break
		}
	}

	// best effort: the coordinator may already be gone
	notifier.Send(proto.NotifyObituary)
	st.Dump()
	glog.Infof("%sexiting", appName)
}

func userName() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}
