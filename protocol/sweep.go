// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package protocol

import (
	"context"
	"time"
)

// SweepController is the slice of the OB1 session a pressure sweep needs.
type SweepController interface {
	Reader
	SetPressure(channel int, pressure float64) error
}

// Sweep drives a channel through the setpoints in order, holding each for
// staticTime while acquiring at rate, and returns the concatenated records
// in visit order. With endAtZero the channel is set back to zero pressure
// after the last setpoint (without a final acquisition). On failure or
// cancellation the records collected so far are returned alongside the
// error.
func Sweep(ctx context.Context, dev SweepController, channel int, setpoints []float64,
	staticTime time.Duration, rate float64, endAtZero bool, opts ...Option) ([]Record, error) {

	var result []Record
	for _, p := range setpoints {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := dev.SetPressure(channel, p); err != nil {
			return result, err
		}
		records, err := Acquire(ctx, dev, rate, staticTime, opts...)
		result = append(result, records...)
		if err != nil {
			return result, err
		}
	}
	if endAtZero {
		if err := dev.SetPressure(channel, 0); err != nil {
			return result, err
		}
	}
	return result, nil
}
