// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package ob1

import (
	"github.com/gotmc/elveflow"
)

// stopRemoteDraining is the status the driver reports when the remote loop
// stops while still winding down; it is a normal shutdown, not a failure.
const stopRemoteDraining = 2

// StartRemote starts the remote operation mode: an onboard control loop that
// continuously reads all sensors and regulators. While it runs, no direct
// call to the instrument may be made; only the remote-scoped operations
// (RemoteData, SetRemoteTarget, and the PID methods) are allowed until
// StopRemote. The remote loop is what makes PID control possible: instead of
// a target pressure, a channel can be driven toward a target sensor value.
func (d *OB1) StartRemote() error {
	if !d.opened {
		return &elveflow.InvalidStateError{Op: "start remote loop", Reason: "session is not open"}
	}
	if d.remote {
		return &elveflow.InvalidStateError{Op: "start remote loop",
			Reason: "remote loop is already running"}
	}
	if err := d.requireCalibration(); err != nil {
		return err
	}
	status := d.drv.StartRemote(d.handle, d.calib[:])
	if err := elveflow.CheckStatus(status, "starting remote loop"); err != nil {
		return err
	}
	d.remote = true
	d.logger().Info("remote loop started", "name", d.Name)
	return nil
}

// StopRemote stops the remote operation mode and clears all PID slots.
// Direct operations become legal again afterwards.
func (d *OB1) StopRemote() error {
	if err := d.requireRemote("stop remote loop"); err != nil {
		return err
	}
	status := d.drv.StopRemote(d.handle)
	if status != stopRemoteDraining {
		if err := elveflow.CheckStatus(status, "stopping remote loop"); err != nil {
			return err
		}
	}
	d.pids = [NumChannels]pidSlot{}
	d.remote = false
	d.logger().Info("remote loop stopped", "name", d.Name)
	return nil
}

// RemoteData reads a channel's pressure and sensor value from the remote
// loop.
func (d *OB1) RemoteData(channel int) (pressure, sensor float64, err error) {
	if err := d.requireRemote("get remote data"); err != nil {
		return 0, 0, err
	}
	ch, err := checkChannel(channel)
	if err != nil {
		return 0, 0, err
	}
	pressure, sensor, status := d.drv.RemoteGetData(d.handle, ch)
	if err := elveflow.CheckStatus(status, "getting data inside remote loop"); err != nil {
		return 0, 0, err
	}
	return pressure, sensor, nil
}

// SetRemoteTarget sets a channel's target inside the remote loop. With no
// PID running on the channel the target is a pressure in mbar; with a PID
// running it is the sensor value (typically µL/min) the PID drives toward.
func (d *OB1) SetRemoteTarget(channel int, target float64) error {
	if err := d.requireRemote("set remote target"); err != nil {
		return err
	}
	ch, err := checkChannel(channel)
	if err != nil {
		return err
	}
	status := d.drv.RemoteSetTarget(d.handle, ch, target)
	return elveflow.CheckStatus(status, "setting target inside remote loop")
}

// AddPID binds a PID loop between a pressure channel and a sensor channel
// with proportional gain p and integral gain i, optionally starting it
// immediately. An existing PID on the pressure channel is overwritten. Only
// legal while the remote loop is running.
func (d *OB1) AddPID(pressureChannel, sensorChannel int, p, i float64, run bool) error {
	if err := d.requireRemote("set up PID loop"); err != nil {
		return err
	}
	pCh, err := checkChannel(pressureChannel)
	if err != nil {
		return err
	}
	sCh, err := checkChannel(sensorChannel)
	if err != nil {
		return err
	}
	sensorInstr := d.handle
	if d.SensorInstrument != nil {
		sensorInstr = *d.SensorInstrument
	}
	status := d.drv.AddRemotePID(d.handle, pCh, sensorInstr, sCh, p, i, boolToI32(run))
	if err := elveflow.CheckStatus(status, "setting up PID loop"); err != nil {
		return err
	}
	d.pids[pCh-1] = pidSlot{configured: true, p: p, i: i, running: run}
	return nil
}

// StartPID starts (or resumes) the PID loop on a channel.
func (d *OB1) StartPID(channel int) error {
	return d.setPIDRunning(channel, true, "unpausing PID loop")
}

// PausePID pauses the PID loop on a channel without discarding its
// configuration.
func (d *OB1) PausePID(channel int) error {
	return d.setPIDRunning(channel, false, "pausing PID loop")
}

func (d *OB1) setPIDRunning(channel int, run bool, action string) error {
	ch, err := d.requirePID(action, channel)
	if err != nil {
		return err
	}
	status := d.drv.SetRemotePIDRunning(d.handle, ch, boolToI32(run))
	if err := elveflow.CheckStatus(status, action); err != nil {
		return err
	}
	d.pids[ch-1].running = run
	return nil
}

// ResetPID re-submits the channel's stored gains with the reset flag set,
// clearing the accumulated integral error. Running state and configuration
// are unchanged.
func (d *OB1) ResetPID(channel int) error {
	ch, err := d.requirePID("resetting PID loop", channel)
	if err != nil {
		return err
	}
	slot := d.pids[ch-1]
	status := d.drv.SetRemotePIDParams(d.handle, ch, 1, slot.p, slot.i)
	return elveflow.CheckStatus(status, "resetting PID loop")
}

// SetPIDParams changes the gains of the PID loop on a channel, optionally
// resetting its accumulated error.
func (d *OB1) SetPIDParams(channel int, p, i float64, reset bool) error {
	ch, err := d.requirePID("changing PID parameters", channel)
	if err != nil {
		return err
	}
	status := d.drv.SetRemotePIDParams(d.handle, ch, boolToI32(reset), p, i)
	if err := elveflow.CheckStatus(status, "changing PID parameters"); err != nil {
		return err
	}
	d.pids[ch-1].p = p
	d.pids[ch-1].i = i
	return nil
}

// HasPID reports whether a PID has been configured on a channel during the
// current remote session.
func (d *OB1) HasPID(channel int) (bool, error) {
	ch, err := checkChannel(channel)
	if err != nil {
		return false, err
	}
	return d.pids[ch-1].configured, nil
}

// PIDRunning reports whether the PID on a channel is currently running. A
// channel without a configured PID fails with a *elveflow.ConfigError.
func (d *OB1) PIDRunning(channel int) (bool, error) {
	ch, err := d.requirePID("querying PID state", channel)
	if err != nil {
		return false, err
	}
	return d.pids[ch-1].running, nil
}

// requirePID validates the channel and checks that a PID is configured on
// it; every PID operation other than AddPID needs both.
func (d *OB1) requirePID(op string, channel int) (int32, error) {
	if err := d.requireRemote(op); err != nil {
		return 0, err
	}
	ch, err := checkChannel(channel)
	if err != nil {
		return 0, err
	}
	if !d.pids[ch-1].configured {
		return 0, &elveflow.ConfigError{Reason: "no PID setup in this channel"}
	}
	return ch, nil
}

func boolToI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
