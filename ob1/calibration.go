// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package ob1

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gotmc/elveflow"
)

// Calibration is an OB1 pressure calibration table. The driver requires it
// on every pressure set/get call. It is replaced wholesale by LoadCalibration
// or PerformCalibration and never mutated otherwise.
type Calibration [CalibrationSize]float64

// LoadCalibrationFile reads a calibration table persisted by
// SaveCalibrationFile: a JSON array of exactly CalibrationSize floats.
// A file of any other length fails with a *elveflow.ValidationError.
func LoadCalibrationFile(path string) (*Calibration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading calibration file: %w", err)
	}
	var values []float64
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parsing calibration file %s: %w", path, err)
	}
	if len(values) != CalibrationSize {
		return nil, &elveflow.ValidationError{Reason: fmt.Sprintf(
			"calibration data in %s is malformed: want %d values, got %d",
			path, CalibrationSize, len(values))}
	}
	var c Calibration
	copy(c[:], values)
	return &c, nil
}

// SaveCalibrationFile persists a calibration table as a JSON array. A
// pre-existing file at path is first renamed with its modification-date as a
// suffix, so an old table is never lost silently.
func SaveCalibrationFile(c *Calibration, path string) error {
	if err := backupExisting(path); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(c[:], "", "\t")
	if err != nil {
		return fmt.Errorf("encoding calibration: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing calibration file: %w", err)
	}
	return nil
}

func backupExisting(path string) error {
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", path, err)
	}
	backup := path + "." + fi.ModTime().UTC().Format("20060102")
	if err := os.Rename(path, backup); err != nil {
		return fmt.Errorf("backing up %s: %w", path, err)
	}
	return nil
}

// LoadCalibration loads an existing calibration table into the session.
// With an empty path the default location is resolved from the config file
// ("ob1_calibration", or "ob1_<id>_calibration" when DeviceID is set); a
// missing file or entry means no calibration has ever been performed for
// this device.
func (d *OB1) LoadCalibration(path string) error {
	if d.remote {
		return &elveflow.InvalidStateError{Op: "load calibration",
			Reason: "remote loop is running; only remote-scoped operations are allowed"}
	}
	if path == "" {
		p, err := d.calibrationPathFromConfig()
		if err != nil {
			return err
		}
		path = p
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &elveflow.ConfigError{Reason: fmt.Sprintf(
			"no calibration file at %s; perform calibration first", path)}
	}
	c, err := LoadCalibrationFile(path)
	if err != nil {
		return err
	}
	d.calib = c
	return nil
}

func (d *OB1) calibrationKey() string {
	if d.DeviceID != 0 {
		return fmt.Sprintf("ob1_%d_calibration", d.DeviceID)
	}
	return elveflow.KeyOB1Calibration
}

func (d *OB1) calibrationPathFromConfig() (string, error) {
	path, err := elveflow.ReadConfig(d.calibrationKey())
	if err != nil {
		return "", &elveflow.ConfigError{Reason: fmt.Sprintf(
			"no calibration file configured under %q; perform calibration first", d.calibrationKey())}
	}
	return path, nil
}

// PerformCalibration runs the hardware calibration procedure and persists
// the resulting table, replacing the session's current one. The procedure
// takes around five minutes; make sure all channels are properly plugged
// before calling. With an empty path the destination is resolved from the
// config file; when no entry exists yet one is chosen inside the config
// directory and registered for next time.
func (d *OB1) PerformCalibration(path string) error {
	if err := d.requireDirect("perform calibration"); err != nil {
		return err
	}
	if path == "" {
		p, err := elveflow.ReadConfig(d.calibrationKey())
		if err != nil {
			dir, derr := elveflow.ConfigDir()
			if derr != nil {
				return derr
			}
			p = filepath.Join(dir, fmt.Sprintf("ob1_%d_pressurechannel.calibration", d.DeviceID))
			if werr := elveflow.WriteConfig(d.calibrationKey(), p); werr != nil {
				return werr
			}
		}
		path = p
	}
	d.logger().Info("performing calibration, this takes around 5 minutes",
		"name", d.Name, "path", path)
	var c Calibration
	status := d.drv.Calibrate(d.handle, c[:])
	if err := elveflow.CheckStatus(status, "performing calibration"); err != nil {
		return err
	}
	if err := SaveCalibrationFile(&c, path); err != nil {
		return err
	}
	d.calib = &c
	d.logger().Info("calibration performed and saved", "path", path)
	return nil
}
