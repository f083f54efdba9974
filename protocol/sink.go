// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package protocol

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// RecordSink receives acquisition records one tick at a time. WriteRecord
// must make the record durable (or hand it off) before returning; a sink
// that buffers a whole run defeats the point of streaming.
type RecordSink interface {
	WriteRecord(Record) error
}

// CSVSink streams records to a delimited text file, one line per tick,
// flushed per record. It refuses to overwrite: creating a sink on an
// existing path fails, so a typo cannot silently destroy an earlier run.
type CSVSink struct {
	f *os.File
	w *csv.Writer
}

// NewCSVSink creates the destination file and writes the header line. The
// path must not exist yet; errors.Is(err, fs.ErrExist) reports that case on
// the returned error.
func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating acquisition file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return &CSVSink{f: f, w: w}, nil
}

// WriteRecord appends one record and flushes it to the file. Missing
// readings are written as NaN.
func (s *CSVSink) WriteRecord(r Record) error {
	row := make([]string, 0, len(csvHeader))
	row = append(row,
		formatFloat(float64(r.Time.UnixNano())/1e9),
		formatFloat(r.Elapsed))
	for _, v := range r.Pressure {
		row = append(row, formatFloat(v))
	}
	for _, v := range r.Flow {
		row = append(row, formatFloat(v))
	}
	row = append(row, formatFloat(r.PollTime))
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}

// Close flushes and closes the destination file.
func (s *CSVSink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// MQTTSink publishes each record as a JSON payload to an MQTT topic, for
// rigs where a broker distributes live measurement data. Publishes are
// confirmed synchronously, matching the single-outstanding-command model of
// the rest of the module.
type MQTTSink struct {
	Client mqtt.Client
	Topic  string
	QoS    byte
}

// NewMQTTSink returns a sink publishing to topic at QoS 1.
func NewMQTTSink(client mqtt.Client, topic string) *MQTTSink {
	return &MQTTSink{Client: client, Topic: topic, QoS: 1}
}

func (s *MQTTSink) WriteRecord(r Record) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	token := s.Client.Publish(s.Topic, s.QoS, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing record: %w", err)
	}
	return nil
}

// ConnectBroker connects to an MQTT broker for use with MQTTSink.
func ConnectBroker(brokerURL, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to broker %s: %w", brokerURL, token.Error())
	}
	return c, nil
}
