// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package ob1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/gotmc/elveflow"
	c "github.com/smartystreets/goconvey/convey"
)

// stubDriver records every entry point invoked and can be told to fail
// specific ones with a given status code.
type stubDriver struct {
	calls []string
	fail  map[string]int

	pressure      float64
	sensor        float64
	remotePressure float64
	remoteSensor  float64

	lastPressure float64
	lastTarget   float64
	lastPID      struct {
		pressureCh, sensorInstr, sensorCh int32
		p, i                              float64
		run                               int32
	}
	lastParams struct {
		channel, reset int32
		p, i           float64
	}
	lastRunning struct {
		channel, run int32
	}
}

func (s *stubDriver) st(op string) int {
	s.calls = append(s.calls, op)
	return s.fail[op]
}

func (s *stubDriver) count(op string) int {
	n := 0
	for _, call := range s.calls {
		if call == op {
			n++
		}
	}
	return n
}

func (s *stubDriver) Initialize(name string, r1, r2, r3, r4 int) (int32, int) {
	return 17, s.st("Initialize")
}
func (s *stubDriver) Destroy(handle int32) int { return s.st("Destroy") }
func (s *stubDriver) Calibrate(handle int32, calib []float64) int {
	status := s.st("Calibrate")
	for i := range calib {
		calib[i] = float64(i)
	}
	return status
}
func (s *stubDriver) SetPressure(handle, ch int32, pressure float64, calib []float64) int {
	s.lastPressure = pressure
	return s.st("SetPressure")
}
func (s *stubDriver) SetAllPressures(handle int32, pressures, calib []float64) int {
	return s.st("SetAllPressures")
}
func (s *stubDriver) GetPressure(handle, ch, acquire int32, calib []float64) (float64, int) {
	return s.pressure, s.st("GetPressure")
}
func (s *stubDriver) AddSensor(handle, ch int32, st, dig, ipa, res uint16, v float64) int {
	return s.st("AddSensor")
}
func (s *stubDriver) GetSensorData(handle, ch, acquire int32) (float64, int) {
	return s.sensor, s.st("GetSensorData")
}
func (s *stubDriver) StartRemote(handle int32, calib []float64) int { return s.st("StartRemote") }
func (s *stubDriver) StopRemote(handle int32) int                   { return s.st("StopRemote") }
func (s *stubDriver) RemoteGetData(handle, ch int32) (float64, float64, int) {
	return s.remotePressure, s.remoteSensor, s.st("RemoteGetData")
}
func (s *stubDriver) RemoteSetTarget(handle, ch int32, target float64) int {
	s.lastTarget = target
	return s.st("RemoteSetTarget")
}
func (s *stubDriver) AddRemotePID(handle, pCh, sInstr, sCh int32, p, i float64, run int32) int {
	s.lastPID.pressureCh = pCh
	s.lastPID.sensorInstr = sInstr
	s.lastPID.sensorCh = sCh
	s.lastPID.p = p
	s.lastPID.i = i
	s.lastPID.run = run
	return s.st("AddRemotePID")
}
func (s *stubDriver) SetRemotePIDRunning(handle, ch, run int32) int {
	s.lastRunning.channel = ch
	s.lastRunning.run = run
	return s.st("SetRemotePIDRunning")
}
func (s *stubDriver) SetRemotePIDParams(handle, ch, reset int32, p, i float64) int {
	s.lastParams.channel = ch
	s.lastParams.reset = reset
	s.lastParams.p = p
	s.lastParams.i = i
	return s.st("SetRemotePIDParams")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeCalibrationFile(t *testing.T, n int) string {
	t.Helper()
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i) * 0.25
	}
	raw, err := json.Marshal(values)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "test.calibration")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func openTestDevice(t *testing.T) (*OB1, *stubDriver) {
	t.Helper()
	drv := &stubDriver{fail: map[string]int{}}
	dev := New(drv, "OB1-test")
	dev.Logger = quietLogger()
	if err := dev.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := dev.LoadCalibration(writeCalibrationFile(t, CalibrationSize)); err != nil {
		t.Fatalf("LoadCalibration: %v", err)
	}
	return dev, drv
}

func TestChannelValidationBeforeDriver(t *testing.T) {
	for _, channel := range []int{-1, 0, 5, 100} {
		t.Run(fmt.Sprintf("channel %d", channel), func(t *testing.T) {
			dev, drv := openTestDevice(t)
			before := len(drv.calls)
			ops := map[string]func() error{
				"SetPressure": func() error { return dev.SetPressure(channel, 100) },
				"Pressure":    func() error { _, err := dev.Pressure(channel); return err },
				"SensorData":  func() error { _, err := dev.SensorData(channel); return err },
				"AddSensor": func() error {
					return dev.AddSensor(channel, DefaultSensorConfig(SensorFlow80))
				},
			}
			for name, op := range ops {
				err := op()
				var valErr *elveflow.ValidationError
				if !errors.As(err, &valErr) {
					t.Errorf("%s: expected a *ValidationError, got %v", name, err)
				}
			}
			if len(drv.calls) != before {
				t.Errorf("Expected no driver calls, got %v", drv.calls[before:])
			}
		})
	}
}

func TestOperationsRequireOpenSession(t *testing.T) {
	drv := &stubDriver{}
	dev := New(drv, "OB1-test")
	dev.Logger = quietLogger()
	if err := dev.SetPressure(1, 100); err == nil {
		t.Error("Expected an error on a closed session")
	}
	var stateErr *elveflow.InvalidStateError
	if err := dev.StartRemote(); !errors.As(err, &stateErr) {
		t.Errorf("Expected a *InvalidStateError, got %v", err)
	}
	if len(drv.calls) != 0 {
		t.Errorf("Expected no driver calls, got %v", drv.calls)
	}
}

func TestRemoteModeStateMachine(t *testing.T) {
	c.Convey("Given an open session with a calibration loaded", t, func() {
		dev, drv := openTestDevice(t)

		c.Convey("Direct operations work and remote operations are illegal", func() {
			c.So(dev.SetPressure(1, 50), c.ShouldBeNil)
			_, _, err := dev.RemoteData(1)
			c.So(err, c.ShouldHaveSameTypeAs, &elveflow.InvalidStateError{})
			c.So(dev.SetRemoteTarget(1, 10), c.ShouldHaveSameTypeAs, &elveflow.InvalidStateError{})
		})

		c.Convey("When the remote loop is started", func() {
			c.So(dev.StartRemote(), c.ShouldBeNil)
			c.So(dev.Remote(), c.ShouldBeTrue)

			c.Convey("Starting it again is illegal", func() {
				c.So(dev.StartRemote(), c.ShouldHaveSameTypeAs, &elveflow.InvalidStateError{})
			})

			c.Convey("Direct operations are illegal and reach no driver call", func() {
				before := len(drv.calls)
				c.So(dev.SetPressure(1, 50), c.ShouldHaveSameTypeAs, &elveflow.InvalidStateError{})
				_, err := dev.Pressure(1)
				c.So(err, c.ShouldHaveSameTypeAs, &elveflow.InvalidStateError{})
				_, err = dev.SensorData(1)
				c.So(err, c.ShouldHaveSameTypeAs, &elveflow.InvalidStateError{})
				c.So(dev.PerformCalibration(""), c.ShouldHaveSameTypeAs, &elveflow.InvalidStateError{})
				c.So(dev.SetAllPressures([]float64{0, 0, 0, 0}), c.ShouldHaveSameTypeAs, &elveflow.InvalidStateError{})
				c.So(len(drv.calls), c.ShouldEqual, before)
			})

			c.Convey("Remote-scoped operations work", func() {
				drv.remotePressure = 48.5
				drv.remoteSensor = 21.25
				p, s, err := dev.RemoteData(2)
				c.So(err, c.ShouldBeNil)
				c.So(p, c.ShouldEqual, 48.5)
				c.So(s, c.ShouldEqual, 21.25)
				c.So(dev.SetRemoteTarget(2, 30), c.ShouldBeNil)
				c.So(drv.lastTarget, c.ShouldEqual, 30)
			})

			c.Convey("When the remote loop is stopped again", func() {
				c.So(dev.AddPID(1, 1, 0.1, 0.05, true), c.ShouldBeNil)
				c.So(dev.StopRemote(), c.ShouldBeNil)
				c.So(dev.Remote(), c.ShouldBeFalse)

				c.Convey("Direct operations work again", func() {
					c.So(dev.SetPressure(1, 50), c.ShouldBeNil)
				})
				c.Convey("All PID slots read back as absent", func() {
					for channel := 1; channel <= NumChannels; channel++ {
						has, err := dev.HasPID(channel)
						c.So(err, c.ShouldBeNil)
						c.So(has, c.ShouldBeFalse)
					}
				})
				c.Convey("Stopping it again is illegal", func() {
					c.So(dev.StopRemote(), c.ShouldHaveSameTypeAs, &elveflow.InvalidStateError{})
				})
			})
		})
	})
}

func TestUniversalAccessorsDispatchOnMode(t *testing.T) {
	dev, drv := openTestDevice(t)
	drv.pressure = 100
	drv.sensor = 40
	drv.remotePressure = 101
	drv.remoteSensor = 41

	p, err := dev.CurrentPressure(1)
	if err != nil || p != 100 {
		t.Errorf("Expected 100 from the direct accessor, got %v (%v)", p, err)
	}
	f, err := dev.CurrentFlow(1)
	if err != nil || f != 40 {
		t.Errorf("Expected 40 from the direct accessor, got %v (%v)", f, err)
	}

	if err := dev.StartRemote(); err != nil {
		t.Fatal(err)
	}
	p, err = dev.CurrentPressure(1)
	if err != nil || p != 101 {
		t.Errorf("Expected 101 from the remote accessor, got %v (%v)", p, err)
	}
	f, err = dev.CurrentFlow(1)
	if err != nil || f != 41 {
		t.Errorf("Expected 41 from the remote accessor, got %v (%v)", f, err)
	}
}

func TestCloseStopsRemoteGracefully(t *testing.T) {
	dev, drv := openTestDevice(t)
	if err := dev.StartRemote(); err != nil {
		t.Fatal(err)
	}
	if err := dev.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if drv.count("StopRemote") != 1 {
		t.Errorf("Expected one StopRemote call, got %d", drv.count("StopRemote"))
	}
	if drv.count("Destroy") != 1 {
		t.Errorf("Expected one Destroy call, got %d", drv.count("Destroy"))
	}
}

func TestCloseProceedsPastFailedRemoteStop(t *testing.T) {
	dev, drv := openTestDevice(t)
	if err := dev.StartRemote(); err != nil {
		t.Fatal(err)
	}
	drv.fail["StopRemote"] = 8006
	if err := dev.Close(); err != nil {
		t.Errorf("Expected close to swallow the remote-stop failure, got %v", err)
	}
	if drv.count("Destroy") != 1 {
		t.Errorf("Expected the handle to be destroyed, got calls %v", drv.calls)
	}
}

func TestCloseReportsFailedDestroy(t *testing.T) {
	dev, drv := openTestDevice(t)
	drv.fail["Destroy"] = 8006
	err := dev.Close()
	var devErr *elveflow.DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("Expected a *DeviceError, got %v", err)
	}
	if devErr.Code != 8006 {
		t.Errorf("Expected code 8006, got %d", devErr.Code)
	}
}

func TestSessionReleasesHandleOnFailure(t *testing.T) {
	drv := &stubDriver{fail: map[string]int{}}
	boom := errors.New("boom")
	err := Session(drv, "OB1-test", func(dev *OB1) error {
		dev.Logger = quietLogger()
		return boom
	})
	if err != boom {
		t.Errorf("Expected the callback error, got %v", err)
	}
	if drv.count("Destroy") != 1 {
		t.Errorf("Expected the handle to be destroyed, got calls %v", drv.calls)
	}
}

func TestSetAllPressuresLength(t *testing.T) {
	dev, drv := openTestDevice(t)
	err := dev.SetAllPressures([]float64{1, 2, 3})
	var valErr *elveflow.ValidationError
	if !errors.As(err, &valErr) {
		t.Errorf("Expected a *ValidationError, got %v", err)
	}
	if drv.count("SetAllPressures") != 0 {
		t.Error("Expected no driver call for a malformed pressure slice")
	}
	if err := dev.SetAllPressures([]float64{1, 2, 3, 4}); err != nil {
		t.Errorf("SetAllPressures: %v", err)
	}
}

func TestSetPressureRequiresCalibration(t *testing.T) {
	drv := &stubDriver{}
	dev := New(drv, "OB1-test")
	dev.Logger = quietLogger()
	if err := dev.Open(); err != nil {
		t.Fatal(err)
	}
	err := dev.SetPressure(1, 100)
	var cfgErr *elveflow.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Expected a *ConfigError without a calibration, got %v", err)
	}
	if drv.count("SetPressure") != 0 {
		t.Error("Expected no driver call without a calibration")
	}
}
