// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package protocol

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeSweepDevice reads back whatever pressure was last set.
type fakeSweepDevice struct {
	setpoints []float64
	current   float64
	failSet   error
}

func (f *fakeSweepDevice) SetPressure(channel int, pressure float64) error {
	if f.failSet != nil {
		return f.failSet
	}
	f.setpoints = append(f.setpoints, pressure)
	f.current = pressure
	return nil
}

func (f *fakeSweepDevice) Pressure(channel int) (float64, error) {
	return f.current, nil
}

func (f *fakeSweepDevice) SensorData(channel int) (float64, error) {
	return f.current * 0.4, nil
}

func TestSweepVisitsSetpointsInOrder(t *testing.T) {
	dev := &fakeSweepDevice{}
	setpoints := []float64{0, 50, 100}
	records, err := Sweep(context.Background(), dev, 1, setpoints, 200*time.Millisecond, 20, true)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	want := []float64{0, 50, 100, 0} // trailing zero from endAtZero
	if len(dev.setpoints) != len(want) {
		t.Fatalf("Expected setpoints %v, got %v", want, dev.setpoints)
	}
	for i := range want {
		if dev.setpoints[i] != want[i] {
			t.Fatalf("Expected setpoints %v, got %v", want, dev.setpoints)
		}
	}
	if len(records) < 9 {
		t.Errorf("Expected records from all three holds, got %d", len(records))
	}
	// Records carry the pressure of the setpoint they were acquired under,
	// in visit order.
	seen := map[float64]bool{}
	last := -1.0
	for _, r := range records {
		p := r.Pressure[0]
		if !seen[p] {
			if p < last {
				t.Fatalf("Setpoint %g acquired out of order", p)
			}
			seen[p] = true
			last = p
		}
	}
	for _, p := range setpoints {
		if !seen[p] {
			t.Errorf("No records acquired at setpoint %g", p)
		}
	}
}

func TestSweepWithoutEndAtZero(t *testing.T) {
	dev := &fakeSweepDevice{}
	_, err := Sweep(context.Background(), dev, 1, []float64{80}, 100*time.Millisecond, 20, false)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(dev.setpoints) != 1 || dev.setpoints[0] != 80 {
		t.Errorf("Expected the channel left at 80 mbar, got %v", dev.setpoints)
	}
}

func TestSweepReturnsPartialRecordsOnFailure(t *testing.T) {
	dev := &fakeSweepDevice{}
	boom := errors.New("regulator fault")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Fail the second setpoint's SetPressure.
	records, err := Sweep(ctx, &failAfterFirst{dev: dev, fail: boom}, 1,
		[]float64{10, 20}, 100*time.Millisecond, 20, true)
	if !errors.Is(err, boom) {
		t.Fatalf("Expected the set-pressure failure, got %v", err)
	}
	if len(records) == 0 {
		t.Error("Expected the records from the first hold to be returned")
	}
}

// failAfterFirst lets the first SetPressure through and fails the rest.
type failAfterFirst struct {
	dev   *fakeSweepDevice
	fail  error
	calls int
}

func (f *failAfterFirst) SetPressure(channel int, pressure float64) error {
	f.calls++
	if f.calls > 1 {
		return f.fail
	}
	return f.dev.SetPressure(channel, pressure)
}

func (f *failAfterFirst) Pressure(channel int) (float64, error) { return f.dev.Pressure(channel) }
func (f *failAfterFirst) SensorData(channel int) (float64, error) {
	return f.dev.SensorData(channel)
}
