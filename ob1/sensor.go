// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package ob1

import (
	"fmt"

	"github.com/gotmc/elveflow"
)

// SensorConfig describes a sensor to attach to a channel. The zero value
// extended with a SensorType is not meaningful; use DefaultSensorConfig for
// the common case of a digital flow sensor at full resolution.
type SensorConfig struct {
	Type SensorType

	// Digital is true for digital sensors, which is what current hardware
	// ships with.
	Digital bool

	// IPACalibration selects the isopropanol calibration instead of water.
	IPACalibration bool

	Resolution Resolution

	// CustomVoltage (5–25 V) only matters for SensorCustom, but the driver
	// demands a value regardless.
	CustomVoltage float64
}

// DefaultSensorConfig returns the configuration for a digital sensor of the
// given type at the highest resolution, calibrated for water.
func DefaultSensorConfig(t SensorType) SensorConfig {
	return SensorConfig{
		Type:          t,
		Digital:       true,
		Resolution:    Resolution16Bit,
		CustomVoltage: 5.01,
	}
}

// AddSensor attaches a sensor to a channel. Direct-mode only; sensors must
// be added before the remote loop is started for it to read them.
func (d *OB1) AddSensor(channel int, cfg SensorConfig) error {
	if err := d.requireDirect("add sensor"); err != nil {
		return err
	}
	ch, err := checkChannel(channel)
	if err != nil {
		return err
	}
	if cfg.Type > SensorCustom {
		return &elveflow.ValidationError{
			Reason: fmt.Sprintf("unknown sensor type %d (valid types are 0 through %d)",
				cfg.Type, SensorCustom)}
	}
	if cfg.Resolution > Resolution16Bit {
		return &elveflow.ValidationError{
			Reason: fmt.Sprintf("unknown sensor resolution %d (valid codes are 0 through %d)",
				cfg.Resolution, Resolution16Bit)}
	}
	status := d.drv.AddSensor(d.handle, ch,
		uint16(cfg.Type), boolToWord(cfg.Digital), boolToWord(cfg.IPACalibration),
		uint16(cfg.Resolution), cfg.CustomVoltage)
	return elveflow.CheckStatus(status, "connecting to sensor")
}

// SensorData reads the sensor on a channel in its native units, µL/min for
// flow sensors. Direct-mode only; use CurrentFlow to read regardless of
// mode.
func (d *OB1) SensorData(channel int) (float64, error) {
	if err := d.requireDirect("get sensor data"); err != nil {
		return 0, err
	}
	ch, err := checkChannel(channel)
	if err != nil {
		return 0, err
	}
	value, status := d.drv.GetSensorData(d.handle, ch, acquireAll)
	if err := elveflow.CheckStatus(status, "getting sensor data"); err != nil {
		return 0, err
	}
	return value, nil
}

func boolToWord(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}
