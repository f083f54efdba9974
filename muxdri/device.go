// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package muxdri controls the Elveflow MUX Distribution valve: a rotary
// distributor connecting one common port to one of twelve outlets.
//
// The valve reports position 0 while the rotor is moving, so 0 doubles as
// the busy sentinel and is never a valid port number. All blocking behavior
// in this package is built from WaitForMotion, a bounded poll on the
// reported position; the hardware offers no completion signal.
package muxdri

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gotmc/elveflow"
)

// NumPorts is the number of outlet ports on the distributor. Ports are
// numbered 1 through NumPorts.
const NumPorts = 12

// Busy is the position reported while the rotor is still moving.
const Busy = 0

// Rotation selects the direction of a valve move.
type Rotation int32

const (
	RotateShortest         Rotation = 0 // whichever direction is faster
	RotateClockwise        Rotation = 1
	RotateCounterClockwise Rotation = 2
)

// commandHome is the distributor command code for the homing sequence. The
// reply buffer must fit the longest possible answer, which is the serial
// number.
const (
	commandHome    int32 = 0
	replyBufferLen       = 40
)

const (
	homeTimeout    = 10 * time.Second
	defaultTimeout = 5 * time.Second
	pollInterval   = 50 * time.Millisecond
)

// Driver is the capability boundary to the vendor MUX Distribution driver,
// one method per vendor entry point. Status codes follow the same convention
// as the OB1 driver: zero is success, anything else is checked through
// elveflow.CheckStatus.
type Driver interface {
	Initialize(name string) (handle int32, status int)
	Destroy(handle int32) (status int)

	// SendCommand issues a raw distributor command, filling reply with the
	// instrument's answer.
	SendCommand(handle int32, command int32, reply []byte) (status int)

	SetValve(handle, valve int32, rotation int32) (status int)
	GetValve(handle int32) (valve int32, status int)
}

// Distributor models one MUX Distribution session.
type Distributor struct {
	// Name is the instrument identity; when empty, Open resolves it from the
	// config file under "mux_name".
	Name string

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	drv    Driver
	handle int32
	opened bool
}

// New returns a Distributor session talking through drv. name may be empty.
func New(drv Driver, name string) *Distributor {
	return &Distributor{Name: name, drv: drv}
}

// Open initializes the driver handle. The valve must be homed before normal
// use; autoHome runs Home immediately, which is what you want unless the
// homing sequence needs a non-default start port.
func (d *Distributor) Open(autoHome bool) error {
	if d.opened {
		return &elveflow.InvalidStateError{Op: "open MUX", Reason: "session is already open"}
	}
	if d.Name == "" {
		name, err := elveflow.ReadConfig(elveflow.KeyMUXName)
		if err != nil {
			return err
		}
		d.Name = name
	}
	handle, status := d.drv.Initialize(d.Name)
	if err := elveflow.CheckStatus(status, "initialize connection to MUX distributor"); err != nil {
		return err
	}
	d.handle = handle
	d.opened = true
	d.logger().Info("MUX session opened", "name", d.Name, "handle", handle)
	if autoHome {
		return d.Home(1)
	}
	return nil
}

// Close releases the instrument handle. The session may be reopened
// afterwards.
func (d *Distributor) Close() error {
	if !d.opened {
		return &elveflow.InvalidStateError{Op: "close MUX", Reason: "session is not open"}
	}
	status := d.drv.Destroy(d.handle)
	d.opened = false
	d.handle = 0
	if err := elveflow.CheckStatus(status, "closing connection to MUX distributor"); err != nil {
		return err
	}
	d.logger().Info("MUX session closed", "name", d.Name)
	return nil
}

// Session opens a Distributor session (homing it), runs fn, and guarantees
// the handle is released afterwards. The close error is reported only when
// fn itself succeeded.
func Session(drv Driver, name string, fn func(*Distributor) error) (err error) {
	dev := New(drv, name)
	if err = dev.Open(true); err != nil {
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

// Home runs the homing sequence, establishing the valve's reference
// position, then exercises the full mechanical range by traversing to port
// 1, port 12, and finally startPort, each as a blocking move. The double
// traverse verifies the rotor positions consistently before settling; homing
// alone does not always leave it trustworthy. Home blocks until the sequence
// completes.
func (d *Distributor) Home(startPort int) error {
	if !d.opened {
		return &elveflow.InvalidStateError{Op: "home MUX", Reason: "session is not open"}
	}
	if startPort < 1 || startPort > NumPorts {
		return &elveflow.ValidationError{
			Reason: fmt.Sprintf("valve port must be between 1 and %d, got %d", NumPorts, startPort)}
	}
	reply := make([]byte, replyBufferLen)
	status := d.drv.SendCommand(d.handle, commandHome, reply)
	if err := elveflow.CheckStatus(status, "homing MUX distributor"); err != nil {
		return err
	}
	if err := d.WaitForMotion(homeTimeout); err != nil {
		return err
	}
	for _, port := range []int{1, NumPorts, startPort} {
		if _, err := d.SetValve(port, RotateShortest, true); err != nil {
			return err
		}
	}
	d.logger().Info("MUX homed", "name", d.Name, "port", startPort)
	return nil
}

// SetValve moves the rotor to the given port and returns the port. If the
// valve is already there the move is skipped entirely — the hardware would
// otherwise execute a full rotation even for a null move. With blocking set,
// SetValve waits for the motion to complete. Either way the reported
// position is verified afterwards: a position that is neither the target nor
// the busy sentinel is a real positioning fault.
func (d *Distributor) SetValve(port int, rotation Rotation, blocking bool) (int, error) {
	if !d.opened {
		return 0, &elveflow.InvalidStateError{Op: "set valve", Reason: "session is not open"}
	}
	if port < 1 || port > NumPorts {
		return 0, &elveflow.ValidationError{
			Reason: fmt.Sprintf("valve port must be between 1 and %d, got %d", NumPorts, port)}
	}
	current, err := d.Position()
	if err != nil {
		return 0, err
	}
	if current == port {
		return port, nil
	}
	status := d.drv.SetValve(d.handle, int32(port), int32(rotation))
	action := fmt.Sprintf("switching to MUX valve port %d", port)
	if err := elveflow.CheckStatus(status, action); err != nil {
		return 0, err
	}
	if blocking {
		if err := d.WaitForMotion(defaultTimeout); err != nil {
			return 0, err
		}
	}
	got, err := d.Position()
	if err != nil {
		return 0, err
	}
	if got != port && got != Busy {
		return 0, &elveflow.DeviceError{Action: action,
			Reason: fmt.Sprintf("valve reports position %d", got)}
	}
	return port, nil
}

// Position reports the current valve port, or Busy (0) while the rotor is
// moving.
func (d *Distributor) Position() (int, error) {
	if !d.opened {
		return 0, &elveflow.InvalidStateError{Op: "get valve", Reason: "session is not open"}
	}
	valve, status := d.drv.GetValve(d.handle)
	if err := elveflow.CheckStatus(status, "getting valve position of MUX"); err != nil {
		return 0, err
	}
	return int(valve), nil
}

// WaitForMotion blocks until the valve stops reporting the busy sentinel.
// A timeout here means the rotor never settled, which is a hardware fault,
// not a soft condition.
func (d *Distributor) WaitForMotion(timeout time.Duration) error {
	err := elveflow.WaitUntil(pollInterval, timeout, func() (bool, error) {
		pos, err := d.Position()
		if err != nil {
			return false, err
		}
		return pos != Busy, nil
	})
	if err == elveflow.ErrTimeout {
		return &elveflow.DeviceError{Action: "waiting for valve movement",
			Reason: "hardware timeout"}
	}
	return err
}

func (d *Distributor) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
