// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package protocol implements the measurement routines built on the device
// sessions: fixed-rate data acquisition (buffered or streamed), closed-loop
// volume injection, and pressure sweeps.
//
// All routines are single-threaded polling loops with soft real-time
// pacing: each tick does its blocking reads, then sleeps whatever is left of
// the tick budget. The context is consulted once per tick, so a caller can
// stop a long run cooperatively at a tick boundary; mid-tick cancellation is
// not possible, matching the hardware's single-outstanding-command protocol.
package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/gotmc/elveflow"
	"github.com/gotmc/elveflow/ob1"
)

// Reader is the slice of the OB1 session the acquisition loop needs.
type Reader interface {
	Pressure(channel int) (float64, error)
	SensorData(channel int) (float64, error)
}

// Option adjusts how a protocol loop runs.
type Option func(*settings)

type settings struct {
	logger *slog.Logger
}

// WithLogger routes the loop's warnings (failed channel reads, missed
// pacing) to l instead of slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func applyOptions(opts []Option) settings {
	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Acquire polls all pressure and sensor channels at the given rate (Hz) for
// the given duration and returns the collected records. A failed read on one
// channel is logged and recorded as NaN for that channel only; a single lost
// sample must not abort a long acquisition. When ctx is canceled the records
// collected so far are returned together with the context error.
func Acquire(ctx context.Context, dev Reader, rate float64, duration time.Duration, opts ...Option) ([]Record, error) {
	var records []Record
	err := acquire(ctx, dev, rate, duration, applyOptions(opts), func(r Record) error {
		records = append(records, r)
		return nil
	})
	return records, err
}

// AcquireStream is Acquire with each record handed to sink as soon as its
// tick completes, so a mid-run fault loses at most the record being read.
func AcquireStream(ctx context.Context, dev Reader, rate float64, duration time.Duration, sink RecordSink, opts ...Option) error {
	return acquire(ctx, dev, rate, duration, applyOptions(opts), sink.WriteRecord)
}

func acquire(ctx context.Context, dev Reader, rate float64, duration time.Duration, cfg settings, emit func(Record) error) error {
	if rate <= 0 {
		return &elveflow.ValidationError{Reason: fmt.Sprintf("acquisition rate must be positive, got %g", rate)}
	}
	budget := tickBudget(rate)
	start := time.Now()
	end := start.Add(duration)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tickStart := time.Now()
		if tickStart.After(end) {
			return nil
		}
		var rec Record
		for i := 0; i < ob1.NumChannels; i++ {
			v, err := dev.Pressure(i + 1)
			if err != nil {
				cfg.logger.Warn("pressure could not be read, recording NaN", "channel", i+1, "error", err)
				v = math.NaN()
			}
			rec.Pressure[i] = v
		}
		for i := 0; i < ob1.NumChannels; i++ {
			v, err := dev.SensorData(i + 1)
			if err != nil {
				cfg.logger.Warn("sensor could not be read, recording NaN", "channel", i+1, "error", err)
				v = math.NaN()
			}
			rec.Flow[i] = v
		}
		delta := time.Since(tickStart)
		rec.Time = tickStart.Add(delta / 2)
		rec.Elapsed = rec.Time.Sub(start).Seconds()
		rec.PollTime = delta.Seconds()
		if err := emit(rec); err != nil {
			return err
		}
		sleepRemainder(cfg.logger, rate, budget, delta)
	}
}

func tickBudget(rate float64) time.Duration {
	return time.Duration(float64(time.Second) / rate)
}

// sleepRemainder paces the loop: sleep whatever is left of the tick budget,
// or warn with the achieved rate when the tick overran it.
func sleepRemainder(logger *slog.Logger, rate float64, budget, spent time.Duration) {
	if spent < budget {
		time.Sleep(budget - spent)
		return
	}
	logger.Warn("requested poll rate could not be reached",
		"requested_hz", rate, "achieved_hz", 1/spent.Seconds())
}
