// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package sim provides in-memory implementations of the OB1 and MUX driver
// interfaces, for developing and testing against no hardware. The simulated
// OB1 models a linear pressure-to-flow response; the simulated MUX reports
// the busy sentinel for a configurable motion time after each move.
package sim

import (
	"sync"
	"time"
)

// OB1 is an in-memory ob1.Driver. The zero value is usable; set FlowPerMbar
// to tune the simulated channel response and Fail to inject driver failures.
type OB1 struct {
	// FlowPerMbar converts a channel's pressure (mbar) into its simulated
	// flow reading (µL/min). Defaults to 0.4.
	FlowPerMbar float64

	// Fail, when non-nil, is consulted with the entry-point name before
	// every call; a non-zero return is used as that call's status code.
	Fail func(op string) int

	mu       sync.Mutex
	nextID   int32
	pressure [4]float64
	target   [4]float64
	remote   bool
	pid      [4]bool
}

func (d *OB1) status(op string) int {
	if d.Fail != nil {
		return d.Fail(op)
	}
	return 0
}

func (d *OB1) flowPerMbar() float64 {
	if d.FlowPerMbar == 0 {
		return 0.4
	}
	return d.FlowPerMbar
}

func (d *OB1) Initialize(name string, reg1, reg2, reg3, reg4 int) (int32, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.status("Initialize"); s != 0 {
		return 0, s
	}
	d.nextID++
	return d.nextID, 0
}

func (d *OB1) Destroy(handle int32) int {
	return d.status("Destroy")
}

func (d *OB1) Calibrate(handle int32, calib []float64) int {
	if s := d.status("Calibrate"); s != 0 {
		return s
	}
	for i := range calib {
		calib[i] = float64(i) / float64(len(calib))
	}
	return 0
}

func (d *OB1) SetPressure(handle, channel int32, pressure float64, calib []float64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.status("SetPressure"); s != 0 {
		return s
	}
	d.pressure[channel-1] = pressure
	return 0
}

func (d *OB1) SetAllPressures(handle int32, pressures, calib []float64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.status("SetAllPressures"); s != 0 {
		return s
	}
	copy(d.pressure[:], pressures)
	return 0
}

func (d *OB1) GetPressure(handle, channel, acquire int32, calib []float64) (float64, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.status("GetPressure"); s != 0 {
		return 0, s
	}
	return d.pressure[channel-1], 0
}

func (d *OB1) AddSensor(handle, channel int32, sensorType, digital, ipaCalib, resolution uint16, voltage float64) int {
	return d.status("AddSensor")
}

func (d *OB1) GetSensorData(handle, channel, acquire int32) (float64, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.status("GetSensorData"); s != 0 {
		return 0, s
	}
	return d.pressure[channel-1] * d.flowPerMbar(), 0
}

func (d *OB1) StartRemote(handle int32, calib []float64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.status("StartRemote"); s != 0 {
		return s
	}
	d.remote = true
	return 0
}

func (d *OB1) StopRemote(handle int32) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.status("StopRemote"); s != 0 {
		return s
	}
	d.remote = false
	d.pid = [4]bool{}
	return 0
}

// RemoteGetData models a settled control loop: with a PID running the flow
// equals the target and the pressure is whatever produces it; without one
// the target is the pressure itself.
func (d *OB1) RemoteGetData(handle, channel int32) (float64, float64, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.status("RemoteGetData"); s != 0 {
		return 0, 0, s
	}
	ch := channel - 1
	if d.pid[ch] {
		return d.target[ch] / d.flowPerMbar(), d.target[ch], 0
	}
	return d.target[ch], d.target[ch] * d.flowPerMbar(), 0
}

func (d *OB1) RemoteSetTarget(handle, channel int32, target float64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.status("RemoteSetTarget"); s != 0 {
		return s
	}
	d.target[channel-1] = target
	return 0
}

func (d *OB1) AddRemotePID(handle, pressureCh, sensorInstr, sensorCh int32, p, i float64, run int32) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.status("AddRemotePID"); s != 0 {
		return s
	}
	d.pid[pressureCh-1] = run != 0
	return 0
}

func (d *OB1) SetRemotePIDRunning(handle, channel, run int32) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.status("SetRemotePIDRunning"); s != 0 {
		return s
	}
	d.pid[channel-1] = run != 0
	return 0
}

func (d *OB1) SetRemotePIDParams(handle, channel, reset int32, p, i float64) int {
	return d.status("SetRemotePIDParams")
}

// MUX is an in-memory muxdri.Driver. After each move it reports the busy
// sentinel until MotionTime has passed.
type MUX struct {
	// MotionTime is how long a move (or homing) keeps the valve busy.
	// Defaults to 50 ms.
	MotionTime time.Duration

	// Fail, when non-nil, is consulted with the entry-point name before
	// every call; a non-zero return is used as that call's status code.
	Fail func(op string) int

	mu        sync.Mutex
	nextID    int32
	position  int32
	settledAt time.Time
}

func (d *MUX) status(op string) int {
	if d.Fail != nil {
		return d.Fail(op)
	}
	return 0
}

func (d *MUX) motionTime() time.Duration {
	if d.MotionTime == 0 {
		return 50 * time.Millisecond
	}
	return d.MotionTime
}

func (d *MUX) Initialize(name string) (int32, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.status("Initialize"); s != 0 {
		return 0, s
	}
	d.nextID++
	d.position = 1
	return d.nextID, 0
}

func (d *MUX) Destroy(handle int32) int {
	return d.status("Destroy")
}

func (d *MUX) SendCommand(handle, command int32, reply []byte) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.status("SendCommand"); s != 0 {
		return s
	}
	// Homing returns to port 1.
	d.position = 1
	d.settledAt = time.Now().Add(d.motionTime())
	copy(reply, "Home")
	return 0
}

func (d *MUX) SetValve(handle, valve, rotation int32) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.status("SetValve"); s != 0 {
		return s
	}
	d.position = valve
	d.settledAt = time.Now().Add(d.motionTime())
	return 0
}

func (d *MUX) GetValve(handle int32) (int32, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.status("GetValve"); s != 0 {
		return 0, s
	}
	if time.Now().Before(d.settledAt) {
		return 0, 0
	}
	return d.position, 0
}
