// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package ob1

import (
	"github.com/gotmc/elveflow"
)

// acquireAll tells the driver to refresh all analog values on a read.
const acquireAll int32 = 1

// SetPressure sets the goal pressure (mbar) on a channel. Direct-mode only.
func (d *OB1) SetPressure(channel int, pressure float64) error {
	if err := d.requireDirect("set pressure"); err != nil {
		return err
	}
	if err := d.requireCalibration(); err != nil {
		return err
	}
	ch, err := checkChannel(channel)
	if err != nil {
		return err
	}
	status := d.drv.SetPressure(d.handle, ch, pressure, d.calib[:])
	return elveflow.CheckStatus(status, "setting pressure")
}

// Pressure reads the pressure (mbar) on a channel. Direct-mode only; use
// CurrentPressure to read regardless of mode.
func (d *OB1) Pressure(channel int) (float64, error) {
	if err := d.requireDirect("get pressure"); err != nil {
		return 0, err
	}
	if err := d.requireCalibration(); err != nil {
		return 0, err
	}
	ch, err := checkChannel(channel)
	if err != nil {
		return 0, err
	}
	pressure, status := d.drv.GetPressure(d.handle, ch, acquireAll, d.calib[:])
	if err := elveflow.CheckStatus(status, "getting pressure"); err != nil {
		return 0, err
	}
	return pressure, nil
}

// SetAllPressures sets the goal pressure of all four channels from one
// driver call. Direct-mode only.
//
// Experimental: the vendor's array-marshalling for this entry point has not
// been verified against real hardware; prefer per-channel SetPressure until
// it has been.
func (d *OB1) SetAllPressures(pressures []float64) error {
	if err := d.requireDirect("set all pressures"); err != nil {
		return err
	}
	if err := d.requireCalibration(); err != nil {
		return err
	}
	if len(pressures) != NumChannels {
		return &elveflow.ValidationError{
			Reason: "exactly 4 pressures are needed to set all channels"}
	}
	status := d.drv.SetAllPressures(d.handle, pressures, d.calib[:])
	return elveflow.CheckStatus(status, "setting all pressures")
}
