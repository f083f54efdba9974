// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package protocol

import (
	"context"
	"log/slog"
	"time"

	"github.com/gotmc/elveflow"
	"github.com/gotmc/elveflow/muxdri"
)

// Injector is the slice of the OB1 session the injection loop needs. The
// flow accessor is mode-transparent, so the loop works whether the caller
// drives a raw pressure or a PID flow target.
type Injector interface {
	SetPressure(channel int, pressure float64) error
	SetRemoteTarget(channel int, target float64) error
	CurrentFlow(channel int) (float64, error)
}

// ValveSwitcher is the slice of the MUX session the injection loop needs.
type ValveSwitcher interface {
	SetValve(port int, rotation muxdri.Rotation, blocking bool) (int, error)
}

// InjectionParams configures one volume-metered injection.
type InjectionParams struct {
	// PressureChannel is the OB1 channel driving the injection.
	PressureChannel int

	// SensorChannel carries the flow sensor used to meter the injected
	// volume. Usually the same number as PressureChannel.
	SensorChannel int

	// InjectPort is the MUX port to draw the injected liquid from.
	InjectPort int

	// StopPort, when non-zero, is a plugged MUX port to switch to once the
	// volume is reached, preventing back-flow through the open line. When
	// zero the driving target is zeroed instead.
	StopPort int

	// Volume is the amount to inject, in µL.
	Volume float64

	// Pressure, when set, is the fixed injection pressure in mbar. Mutually
	// exclusive with FlowRate.
	Pressure *float64

	// FlowRate, when set, is the flow target in µL/min handed to the remote
	// loop; the caller must have configured a PID beforehand. Mutually
	// exclusive with Pressure.
	FlowRate *float64

	// MaxFlow is the rate (µL/min) above which the flow sensor is no longer
	// accurate; readings above it trigger a warning but do not stop the
	// injection, so the metered volume is then an underestimate or worse.
	// Defaults to 80, the full scale of the common sensor.
	MaxFlow float64

	// PollRate is how often the flow is sampled, in Hz. Defaults to 20.
	PollRate float64

	// Logger receives the loop's warnings. Defaults to slog.Default.
	Logger *slog.Logger
}

// Inject meters a volume into the chip through the MUX: it opens the valve
// path, drives the pressure or flow target (or neither, when the caller has
// pre-armed the controller externally), and integrates the measured flow over
// time until the requested volume has passed. It returns the volume actually
// metered, which can exceed the request by up to one tick's worth. When ctx
// is canceled the injection stops at the next tick boundary with the volume
// injected so far and the context error; the valve and targets are then left
// as they are.
func Inject(ctx context.Context, dev Injector, valve ValveSwitcher, p InjectionParams) (float64, error) {
	if p.Pressure != nil && p.FlowRate != nil {
		return 0, &elveflow.ConfigError{
			Reason: "set either a fixed pressure or a fixed flow rate, not both"}
	}
	if p.Volume <= 0 {
		return 0, &elveflow.ValidationError{Reason: "injection volume must be positive"}
	}
	maxFlow := p.MaxFlow
	if maxFlow == 0 {
		maxFlow = 80
	}
	rate := p.PollRate
	if rate == 0 {
		rate = 20
	}
	if rate < 0 {
		return 0, &elveflow.ValidationError{Reason: "poll rate must be positive"}
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch {
	case p.Pressure != nil:
		if err := dev.SetPressure(p.PressureChannel, *p.Pressure); err != nil {
			return 0, err
		}
	case p.FlowRate != nil:
		if err := dev.SetRemoteTarget(p.SensorChannel, *p.FlowRate); err != nil {
			return 0, err
		}
	}
	if _, err := valve.SetValve(p.InjectPort, muxdri.RotateShortest, false); err != nil {
		return 0, err
	}

	budget := tickBudget(rate)
	interval := budget.Seconds()
	injected := 0.0
	for injected < p.Volume {
		if err := ctx.Err(); err != nil {
			return injected, err
		}
		tickStart := time.Now()
		flow, err := dev.CurrentFlow(p.SensorChannel)
		if err != nil {
			return injected, err
		}
		injected += flow * (interval / 60) // flow is µL/min
		if flow > maxFlow {
			logger.Warn("flow rate exceeds the sensor's accurate range, metered volume is unreliable",
				"flow", flow, "max_flow", maxFlow)
		}
		sleepRemainder(logger, rate, budget, time.Since(tickStart))
	}

	if p.StopPort != 0 {
		if _, err := valve.SetValve(p.StopPort, muxdri.RotateShortest, false); err != nil {
			return injected, err
		}
		return injected, nil
	}
	switch {
	case p.Pressure != nil:
		if err := dev.SetPressure(p.PressureChannel, 0); err != nil {
			return injected, err
		}
	case p.FlowRate != nil:
		if err := dev.SetRemoteTarget(p.SensorChannel, 0); err != nil {
			return injected, err
		}
	}
	return injected, nil
}
