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

// Package stats tracks per-opcode command handling latency and error
// counts for the slave process.
package stats

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/golang/glog"

	"osspd/pkg/logging/otel"
	"osspd/pkg/proto"
	"osspd/pkg/util"
)

type (
	OpStat struct {
		mtx       sync.Mutex
		hist      *hdrhistogram.Histogram
		total     time.Duration
		numErrors util.AtomicCounter
	}

	CmdStats struct {
		all     OpStat
		ops     [proto.NumOpCodes]OpStat
		tmStart time.Time
	}

	StatsData struct {
		NumRequests int64
		NumErrors   int64
		AvgLatency  time.Duration
		MaxLatency  time.Duration
		P50Latency  time.Duration
		P95Latency  time.Duration
		P99Latency  time.Duration
	}
)

func New() *CmdStats {
	s := &CmdStats{tmStart: time.Now()}
	s.all.init()
	return s
}

func (s *OpStat) init() {
	s.mtx.Lock()
	if s.hist == nil {
		s.hist = hdrhistogram.New(1, int64(3600*time.Second), 3)
	}
	s.mtx.Unlock()
}

func (s *OpStat) put(tm time.Duration, failed bool) {
	s.init()
	s.mtx.Lock()
	s.hist.RecordValues(int64(tm), 1)
	s.total += tm
	s.mtx.Unlock()
	if failed {
		s.numErrors.Add(1)
	}
}

func (s *OpStat) GetStats() (stat StatsData) {
	s.init()
	s.mtx.Lock()
	stat.NumRequests = s.hist.TotalCount()
	stat.MaxLatency = time.Duration(s.hist.Max())
	stat.P50Latency = time.Duration(s.hist.ValueAtQuantile(50.))
	stat.P95Latency = time.Duration(s.hist.ValueAtQuantile(95.))
	stat.P99Latency = time.Duration(s.hist.ValueAtQuantile(99.))
	total := s.total
	s.mtx.Unlock()

	stat.NumErrors = s.numErrors.Get()
	if stat.NumRequests != 0 {
		stat.AvgLatency = time.Duration(int64(total) / stat.NumRequests)
	}
	return
}

// Put records one dispatched command.
func (s *CmdStats) Put(op proto.OpCode, tm time.Duration, res proto.Result) {
	failed := res.IsError()
	s.all.put(tm, failed)
	if op < proto.NumOpCodes {
		s.ops[op].put(tm, failed)
	}

	if otel.IsEnabled() {
		status := otel.StatusSuccess
		if failed {
			status = otel.StatusError
		}
		otel.RecordOperation(op.String(), status, tm.Milliseconds())
		otel.RecordCount(otel.CmdProc, op.String())
		if failed {
			otel.RecordCount(otel.ProcErr, op.String())
		}
	}
}

func (s *CmdStats) TotalCount() int64 {
	st := s.all.GetStats()
	return st.NumRequests
}

// Dump logs a latency summary for the whole run and for every opcode
// that saw traffic.
func (s *CmdStats) Dump() {
	st := s.all.GetStats()
	if st.NumRequests == 0 {
		return
	}
	glog.Infof("processed %d commands in %s (%d errors) avg=%s p50=%s p95=%s p99=%s max=%s",
		st.NumRequests, time.Since(s.tmStart).Round(time.Millisecond), st.NumErrors,
		st.AvgLatency, st.P50Latency, st.P95Latency, st.P99Latency, st.MaxLatency)
	for op := proto.OpCode(0); op < proto.NumOpCodes; op++ {
		ost := s.ops[op].GetStats()
		if ost.NumRequests == 0 {
			continue
		}
		glog.Infof("  %-12s n=%d err=%d avg=%s p99=%s",
			op.String(), ost.NumRequests, ost.NumErrors, ost.AvgLatency, ost.P99Latency)
	}
}
