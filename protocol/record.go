// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package protocol

import (
	"encoding/json"
	"math"
	"time"

	"github.com/gotmc/elveflow/ob1"
)

// Record is one row of acquired data: all four pressure and sensor channels
// read during one poll tick. A channel that could not be read holds NaN —
// never zero, since zero is a legitimate reading.
type Record struct {
	// Time is the tick's mid-point: start of tick plus half the measured
	// poll duration, the best estimate of when the readings were taken.
	Time time.Time

	// Elapsed is the time in seconds between the start of the acquisition
	// and Time.
	Elapsed float64

	Pressure [ob1.NumChannels]float64 // mbar
	Flow     [ob1.NumChannels]float64 // µL/min

	// PollTime is the wall-clock seconds spent reading all channels this
	// tick.
	PollTime float64
}

// csvHeader matches the column layout written by CSVSink.
var csvHeader = []string{
	"Unix time (seconds)",
	"Time (seconds)",
	"Pressure Ch. 1 (mbar)",
	"Pressure Ch. 2 (mbar)",
	"Pressure Ch. 3 (mbar)",
	"Pressure Ch. 4 (mbar)",
	"Flow Ch. 1 (ul/min)",
	"Flow Ch. 2 (ul/min)",
	"Flow Ch. 3 (ul/min)",
	"Flow Ch. 4 (ul/min)",
	"measuring time (seconds)",
}

// MarshalJSON encodes the record with missing readings as null, since JSON
// has no NaN.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		UnixTime float64        `json:"unix_time"`
		Elapsed  float64        `json:"elapsed_time"`
		Pressure [4]interface{} `json:"pressure"`
		Flow     [4]interface{} `json:"flow"`
		PollTime float64        `json:"poll_duration"`
	}{
		UnixTime: float64(r.Time.UnixNano()) / 1e9,
		Elapsed:  r.Elapsed,
		Pressure: nullNaN(r.Pressure),
		Flow:     nullNaN(r.Flow),
		PollTime: r.PollTime,
	})
}

func nullNaN(values [ob1.NumChannels]float64) [ob1.NumChannels]interface{} {
	var out [ob1.NumChannels]interface{}
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = nil
		} else {
			out[i] = v
		}
	}
	return out
}
