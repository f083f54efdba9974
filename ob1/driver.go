// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package ob1

// Driver is the capability boundary to the vendor OB1 driver. Each method
// mirrors one vendor entry point and returns the raw integer status code,
// zero meaning success. Handles and channels are int32 to match the C ABI of
// the vendor library. Implementations are expected to block until the
// instrument answers; the session layers no timeout on top.
//
// A production implementation wraps the vendor DLL; the sim package provides
// an in-memory implementation for development and tests.
type Driver interface {
	// Initialize opens the connection to the named instrument and returns
	// its handle. The four regulator codes describe the installed pressure
	// regulators (see RegulatorType).
	Initialize(name string, reg1, reg2, reg3, reg4 int) (handle int32, status int)

	// Destroy releases the instrument handle.
	Destroy(handle int32) (status int)

	// Calibrate runs the hardware calibration procedure, filling calib.
	Calibrate(handle int32, calib []float64) (status int)

	SetPressure(handle, channel int32, pressure float64, calib []float64) (status int)
	SetAllPressures(handle int32, pressures, calib []float64) (status int)
	GetPressure(handle, channel, acquire int32, calib []float64) (pressure float64, status int)

	AddSensor(handle, channel int32, sensorType, digital, ipaCalib, resolution uint16, voltage float64) (status int)
	GetSensorData(handle, channel, acquire int32) (value float64, status int)

	StartRemote(handle int32, calib []float64) (status int)
	StopRemote(handle int32) (status int)
	RemoteGetData(handle, channel int32) (pressure, sensor float64, status int)
	RemoteSetTarget(handle, channel int32, target float64) (status int)

	AddRemotePID(handle, pressureCh, sensorInstr, sensorCh int32, p, i float64, run int32) (status int)
	SetRemotePIDRunning(handle, channel, run int32) (status int)
	SetRemotePIDParams(handle, channel, reset int32, p, i float64) (status int)
}
