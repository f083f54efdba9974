// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package ob1

// NumChannels is the number of pressure/sensor channels on an OB1.
// Channels are numbered 1 through NumChannels; 0 is never a valid channel.
const NumChannels = 4

// CalibrationSize is the fixed length of an OB1 calibration table.
const CalibrationSize = 1000

type SensorType uint16

// Sensor types accepted by AddSensor. The flow sensor types are named for
// their full-scale range in µL/min, the pressure types for theirs in mbar.
const (
	SensorNone          SensorType = 0
	SensorFlow1_5       SensorType = 1
	SensorFlow7         SensorType = 2
	SensorFlow50        SensorType = 3
	SensorFlow80        SensorType = 4
	SensorFlow1000      SensorType = 5
	SensorFlow5000      SensorType = 6
	SensorPressure70    SensorType = 7
	SensorPressure340   SensorType = 8
	SensorPressure1bar  SensorType = 9
	SensorPressure2bar  SensorType = 10
	SensorPressure7bar  SensorType = 11
	SensorPressure16bar SensorType = 12
	SensorLevel         SensorType = 13
	SensorCustom        SensorType = 14
)

// SensorTypes maps the string keys that can be used in a config file to the
// SensorType values.
var SensorTypes = map[string]SensorType{
	"none":           SensorNone,
	"flow-1.5":       SensorFlow1_5,
	"flow-7":         SensorFlow7,
	"flow-50":        SensorFlow50,
	"flow-80":        SensorFlow80,
	"flow-1000":      SensorFlow1000,
	"flow-5000":      SensorFlow5000,
	"pressure-70":    SensorPressure70,
	"pressure-340":   SensorPressure340,
	"pressure-1bar":  SensorPressure1bar,
	"pressure-2bar":  SensorPressure2bar,
	"pressure-7bar":  SensorPressure7bar,
	"pressure-16bar": SensorPressure16bar,
	"level":          SensorLevel,
	"custom":         SensorCustom,
}

type Resolution uint16

// Sensor resolutions. Higher resolution means a longer integration time, up
// to 75 ms per measurement at 16 bits.
const (
	Resolution9Bit  Resolution = 0
	Resolution10Bit Resolution = 1
	Resolution11Bit Resolution = 2
	Resolution12Bit Resolution = 3
	Resolution13Bit Resolution = 4
	Resolution14Bit Resolution = 5
	Resolution15Bit Resolution = 6
	Resolution16Bit Resolution = 7
)

type RegulatorType int

// Regulator types by pressure range. Mk4 devices take RegulatorNone on all
// channels.
const (
	RegulatorNone         RegulatorType = 0
	Regulator200mbar      RegulatorType = 1
	Regulator2000mbar     RegulatorType = 2
	Regulator8000mbar     RegulatorType = 3
	RegulatorDual1000mbar RegulatorType = 4 // (-1000, 1000) mbar
	RegulatorDual6000mbar RegulatorType = 5 // (-1000, 6000) mbar
)

var regulatorTypes = map[RegulatorType]string{
	RegulatorNone:         "non-installed",
	Regulator200mbar:      "(0, 200) mbar",
	Regulator2000mbar:     "(0, 2000) mbar",
	Regulator8000mbar:     "(0, 8000) mbar",
	RegulatorDual1000mbar: "(-1000, 1000) mbar",
	RegulatorDual6000mbar: "(-1000, 6000) mbar",
}

func (r RegulatorType) String() string {
	return regulatorTypes[r]
}
