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

// Package otel exports slave command metrics to an OTLP collector when
// enabled by configuration.
package otel

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"
	uuid "github.com/satori/go.uuid"

	otelCfg "osspd/pkg/logging/otel/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric/global"
	"go.opentelemetry.io/otel/metric/instrument"
	"go.opentelemetry.io/otel/metric/instrument/syncint64"
	"go.opentelemetry.io/otel/metric/unit"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const (
	MeterName    = "ossp-slave-meter"
	metricPrefix = "ossp.slave."

	Operation = string("operation")
	Status    = string("status")

	StatusSuccess = string("SUCCESS")
	StatusError   = string("ERROR")
)

type CMetric int

const (
	CmdProc CMetric = CMetric(iota)
	ProcErr
	ChannelFatal
	Notify
)

type countMetric struct {
	metricName    string
	metricDesc    string
	counter       syncint64.Counter
	createCounter *sync.Once
}

var (
	cmdProcCounterOnce      sync.Once
	procErrCounterOnce      sync.Once
	channelFatalCounterOnce sync.Once
	notifyCounterOnce       sync.Once
	cmdHistogramOnce        sync.Once
)

var cmdHistogram syncint64.Histogram

var countMetricMap = map[CMetric]*countMetric{
	CmdProc:      {"CmdProc", "Commands dispatched on the command channel", nil, &cmdProcCounterOnce},
	ProcErr:      {"ProcErr", "Commands completed with a negative result", nil, &procErrCounterOnce},
	ChannelFatal: {"ChannelFatal", "Command channel failures forcing a shutdown", nil, &channelFatalCounterOnce},
	Notify:       {"Notify", "Async notifications sent to the coordinator", nil, &notifyCounterOnce},
}

var meterProvider *metric.MeterProvider

func Initialize(args ...interface{}) (err error) {
	if len(args) < 1 {
		err = fmt.Errorf("otel config argument expected")
		glog.Error(err)
		return
	}
	c, ok := args[0].(*otelCfg.Config)
	if !ok {
		err = fmt.Errorf("wrong argument type")
		glog.Error(err)
		return
	}
	c.Dump()
	if c.Enabled {
		InitMetricProvider(c)
	}
	return
}

func Finalize() {
	if meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		meterProvider.Shutdown(ctx)
		meterProvider = nil
	}
}

func InitMetricProvider(config *otelCfg.Config) {
	if meterProvider != nil {
		return
	}
	otelCfg.OtelConfig = config

	ctx := context.Background()
	provider, err := NewMeterProvider(ctx, *config)
	if err != nil {
		glog.Fatalf("otel meter provider: %v", err)
	}
	provider.Meter(MeterName)
	global.SetMeterProvider(provider)
}

func NewMeterProvider(ctx context.Context, cfg otelCfg.Config, vis ...metric.View) (*metric.MeterProvider, error) {
	exp, err := NewHTTPExporter(ctx)
	if err != nil {
		return nil, err
	}

	res := getResourceInfo(cfg.Poolname)

	reader := metric.NewPeriodicReader(exp, metric.WithInterval(time.Duration(cfg.Resolution)*time.Second))
	meterProvider = metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(reader),
		metric.WithView(vis...),
	)
	return meterProvider, nil
}

func NewHTTPExporter(ctx context.Context) (metric.Exporter, error) {
	deltaTemporalitySelector := func(metric.InstrumentKind) metricdata.Temporality { return metricdata.DeltaTemporality }
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(fmt.Sprintf("%s:%d", otelCfg.OtelConfig.Host, otelCfg.OtelConfig.Port)),
		otlpmetrichttp.WithTimeout(7 * time.Second),
		otlpmetrichttp.WithCompression(otlpmetrichttp.NoCompression),
		otlpmetrichttp.WithTemporalitySelector(deltaTemporalitySelector),
		otlpmetrichttp.WithRetry(otlpmetrichttp.RetryConfig{
			Enabled:         true,
			InitialInterval: 1 * time.Second,
			MaxInterval:     10 * time.Second,
			MaxElapsedTime:  240 * time.Second,
		}),
	}
	if !otelCfg.OtelConfig.UseTls {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return otlpmetrichttp.New(ctx, opts...)
}

func IsEnabled() bool {
	return meterProvider != nil
}

func GetHistogramForCommand() (syncint64.Histogram, error) {
	var err error
	cmdHistogramOnce.Do(func() {
		meter := global.Meter(MeterName)
		cmdHistogram, err = meter.SyncInt64().Histogram(
			metricPrefix+"inbound",
			instrument.WithDescription("Histogram for command handling time"),
			instrument.WithUnit(unit.Milliseconds),
		)
	})
	return cmdHistogram, err
}

func GetCounter(counterName CMetric) (syncint64.Counter, error) {
	var err error
	if counterMetric, ok := countMetricMap[counterName]; ok {
		counterMetric.createCounter.Do(func() {
			meter := global.Meter(MeterName)
			counterMetric.counter, err = meter.SyncInt64().Counter(
				metricPrefix+counterMetric.metricName,
				instrument.WithDescription(counterMetric.metricDesc),
			)
		})
		return counterMetric.counter, err
	}
	return nil, fmt.Errorf("unknown counter metric %d", counterName)
}

// RecordOperation records one dispatched command with its latency.
func RecordOperation(opType string, status string, latency int64) {
	if !IsEnabled() {
		return
	}
	hist, err := GetHistogramForCommand()
	if err != nil || hist == nil {
		return
	}
	commonLabels := []attribute.KeyValue{
		attribute.String(Operation, opType),
		attribute.String(Status, status),
	}
	hist.Record(context.Background(), latency, commonLabels...)
}

func RecordCount(counterName CMetric, opType string) {
	if !IsEnabled() {
		return
	}
	counter, err := GetCounter(counterName)
	if err != nil || counter == nil {
		return
	}
	if opType != "" {
		counter.Add(context.Background(), 1, attribute.String(Operation, opType))
	} else {
		counter.Add(context.Background(), 1)
	}
}

func getResourceInfo(appName string) *resource.Resource {
	hostname, _ := os.Hostname()
	instanceId := uuid.NewV1()

	res := resource.NewWithAttributes("empty resource",
		semconv.HostNameKey.String(hostname),
		semconv.ServiceNameKey.String(appName),
		semconv.ServiceInstanceIDKey.String(instanceId.String()),
		attribute.String("application", appName),
	)
	return res
}
