// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package elveflow

import (
	"errors"
	"fmt"
)

// ErrorCodes maps the known vendor status codes to their meaning. The driver
// reports codes with either sign; lookups use the absolute value.
var ErrorCodes = map[int]string{
	8000: "No Digital Sensor found",
	8001: "No pressure sensor compatible with OB1 MK3",
	8002: "No Digital pressure sensor compatible with OB1 MK3",
	8003: "No Digital Flow sensor compatible with OB1 MK3",
	8004: "No IPA config for this sensor",
	8005: "Sensor not compatible with AF1",
	8006: "No Instrument with selected ID",
	8007: "ESI software seems to have connection with Device, close ESI before continuing",
}

// DeviceError reports a failed instrument operation: either a non-zero driver
// status code, or a hardware-level fault detected by the session itself (a
// motion timeout, a position mismatch), in which case Code is zero and Reason
// carries the description.
type DeviceError struct {
	Action string
	Code   int
	Reason string
}

func (e *DeviceError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("%s failed: %s", e.Action, e.Reason)
	}
	if e.Reason == "" {
		return fmt.Sprintf("%s failed with errorcode %d (not specified further)", e.Action, e.Code)
	}
	return fmt.Sprintf("%s failed with errorcode %d: %s", e.Action, e.Code, e.Reason)
}

// CheckStatus converts a driver status code into an error. Zero means
// success and yields nil. Any other code yields a *DeviceError describing the
// attempted action, annotated with the known reason when |code| appears in
// ErrorCodes. Every driver call must be followed by a CheckStatus before any
// value returned alongside the status is used.
func CheckStatus(code int, action string) error {
	if code == 0 {
		return nil
	}
	reason := ErrorCodes[abs(code)]
	return &DeviceError{Action: action, Code: code, Reason: reason}
}

// InvalidStateError reports an operation that is illegal in the session's
// current state, such as a direct pressure read while the remote control loop
// owns the instrument.
type InvalidStateError struct {
	Op     string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// ConfigError reports missing or conflicting configuration: no calibration
// loaded, no PID set up on a channel, a missing config-file key, or mutually
// exclusive parameters both supplied.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return e.Reason }

// ValidationError reports a parameter rejected before any driver call was
// attempted: an out-of-range channel or valve index, or a malformed
// calibration file.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ErrTimeout is returned by WaitUntil when the deadline elapses before the
// predicate reports done.
var ErrTimeout = errors.New("hardware timeout")

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
