// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package ob1 controls the Elveflow OB1 microfluidic pressure controller: a
// four channel pressure regulator with optional digital flow/pressure sensors
// and an onboard closed-loop ("remote") measurement mode with per-channel PID
// control.
//
// An OB1 value is a session over the vendor driver handle. The handle is
// acquired by Open, released by Close, and valid only in between; no
// operation is legal outside that window. While the remote loop is running,
// only the remote-scoped operations (RemoteData, SetRemoteTarget, and the PID
// methods) may be used — the instrument's onboard loop owns the hardware and
// direct access would race it.
package ob1

import (
	"fmt"
	"log/slog"

	"github.com/gotmc/elveflow"
)

// OB1 models one OB1 pressure controller session. The exported fields may be
// set between New and Open; after Open they must not be changed.
type OB1 struct {
	// Name is the instrument identity as known to the vendor tooling. When
	// empty, Open resolves it from the config file.
	Name string

	// DeviceID selects between multiple configured instruments. When
	// non-zero, config lookups use the "ob1_<id>_..." keys.
	DeviceID int

	// Regulators holds the regulator type installed on each channel.
	Regulators [NumChannels]RegulatorType

	// SensorInstrument optionally names the instrument hosting the sensors
	// used by remote PIDs. When nil the session's own handle is used, which
	// is what the vendor examples do.
	// TODO: confirm against the vendor documentation whether a separate
	// sensor instrument handle is ever required here.
	SensorInstrument *int32

	// Logger receives warnings and lifecycle events. Defaults to
	// slog.Default.
	Logger *slog.Logger

	drv    Driver
	handle int32
	opened bool
	remote bool
	calib  *Calibration
	pids   [NumChannels]pidSlot
}

type pidSlot struct {
	configured bool
	p, i       float64
	running    bool
}

// New returns an OB1 session talking through drv. name may be empty, in
// which case Open resolves the instrument identity from the config file.
// The session starts closed; call Open (or use Session) before any device
// operation.
func New(drv Driver, name string) *OB1 {
	return &OB1{Name: name, drv: drv}
}

// Open initializes the driver handle for the instrument. The instrument
// identity comes from Name, or failing that from the config file ("ob1_name",
// or "ob1_<id>_name" when DeviceID is set). Open does not require a
// calibration table, but every pressure operation afterwards does.
func (d *OB1) Open() error {
	if d.opened {
		return &elveflow.InvalidStateError{Op: "open OB1", Reason: "session is already open"}
	}
	for ch, r := range d.Regulators {
		if r < RegulatorNone || r > RegulatorDual6000mbar {
			return &elveflow.ValidationError{
				Reason: fmt.Sprintf("unknown regulator type %d on channel %d", int(r), ch+1),
			}
		}
	}
	if d.Name == "" {
		name, err := d.resolveName()
		if err != nil {
			return err
		}
		d.Name = name
	}
	handle, status := d.drv.Initialize(d.Name,
		int(d.Regulators[0]), int(d.Regulators[1]), int(d.Regulators[2]), int(d.Regulators[3]))
	if err := elveflow.CheckStatus(status, "initialize connection to OB1"); err != nil {
		return err
	}
	d.handle = handle
	d.opened = true
	d.logger().Info("OB1 session opened", "name", d.Name, "handle", handle)
	return nil
}

func (d *OB1) resolveName() (string, error) {
	if d.DeviceID != 0 {
		name, err := elveflow.ReadConfig(fmt.Sprintf("ob1_%d_name", d.DeviceID))
		if err != nil {
			return "", &elveflow.ConfigError{Reason: fmt.Sprintf(
				"no device with deviceID %d in the config file; create an %q entry to use this ID",
				d.DeviceID, fmt.Sprintf("ob1_%d_name", d.DeviceID))}
		}
		return name, nil
	}
	return elveflow.ReadConfig(elveflow.KeyOB1Name)
}

// Close releases the instrument handle. If the remote loop is still running
// it is stopped first; a failure there is logged but does not block the
// close, since a wedged control loop must not leak the handle. A failure to
// destroy the handle itself is returned. The session may be reopened
// afterwards.
func (d *OB1) Close() error {
	if !d.opened {
		return &elveflow.InvalidStateError{Op: "close OB1", Reason: "session is not open"}
	}
	if d.remote {
		if err := d.StopRemote(); err != nil {
			d.logger().Warn("remote loop could not be stopped gracefully, closing anyway", "error", err)
		}
	}
	status := d.drv.Destroy(d.handle)
	d.opened = false
	d.remote = false
	d.handle = 0
	if err := elveflow.CheckStatus(status, "closing connection to OB1"); err != nil {
		return err
	}
	d.logger().Info("OB1 session closed", "name", d.Name)
	return nil
}

// Session opens an OB1 session, runs fn, and guarantees the handle is
// released afterwards, even when fn fails. The close error is reported only
// when fn itself succeeded.
func Session(drv Driver, name string, fn func(*OB1) error) (err error) {
	dev := New(drv, name)
	if err = dev.Open(); err != nil {
		return err
	}
	defer func() {
		cerr := dev.Close()
		if err == nil {
			err = cerr
		}
	}()
	return fn(dev)
}

// Remote reports whether the remote measurement loop is running.
func (d *OB1) Remote() bool { return d.remote }

// CurrentPressure reads the pressure on a channel regardless of whether the
// remote loop is running, dispatching to RemoteData or Pressure as needed.
func (d *OB1) CurrentPressure(channel int) (float64, error) {
	if d.remote {
		p, _, err := d.RemoteData(channel)
		return p, err
	}
	return d.Pressure(channel)
}

// CurrentFlow reads the sensor value (µL/min for flow sensors) on a channel
// regardless of whether the remote loop is running.
func (d *OB1) CurrentFlow(channel int) (float64, error) {
	if d.remote {
		_, s, err := d.RemoteData(channel)
		return s, err
	}
	return d.SensorData(channel)
}

func (d *OB1) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// checkChannel validates a channel number before it reaches the driver.
func checkChannel(channel int) (int32, error) {
	if channel < 1 || channel > NumChannels {
		return 0, &elveflow.ValidationError{
			Reason: fmt.Sprintf("channel must be between 1 and %d, got %d", NumChannels, channel),
		}
	}
	return int32(channel), nil
}

// requireDirect guards the operations that are only legal outside the remote
// loop.
func (d *OB1) requireDirect(op string) error {
	if !d.opened {
		return &elveflow.InvalidStateError{Op: op, Reason: "session is not open"}
	}
	if d.remote {
		return &elveflow.InvalidStateError{Op: op,
			Reason: "remote loop is running; only remote-scoped operations are allowed"}
	}
	return nil
}

// requireRemote guards the operations that are only legal inside the remote
// loop.
func (d *OB1) requireRemote(op string) error {
	if !d.opened {
		return &elveflow.InvalidStateError{Op: op, Reason: "session is not open"}
	}
	if !d.remote {
		return &elveflow.InvalidStateError{Op: op,
			Reason: "remote loop is not running; start it first"}
	}
	return nil
}

// requireCalibration guards every pressure operation: the driver needs the
// calibration table on each call.
func (d *OB1) requireCalibration() error {
	if d.calib == nil {
		return &elveflow.ConfigError{
			Reason: "no calibration table loaded; call LoadCalibration or PerformCalibration first"}
	}
	return nil
}
