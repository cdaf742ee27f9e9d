// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/hackystat-go/sensorshell/internal/shellerr"
)

// xmlProperty and xmlSensorData mirror the server's SensorData schema
// exactly; Record/Batch are the domain types, these are only the wire
// shapes encoding/xml needs to marshal ordered child elements.
type xmlProperty struct {
	Key   string `xml:"Key"`
	Value string `xml:"Value"`
}

type xmlProperties struct {
	Property []xmlProperty `xml:"Property"`
}

type xmlSensorData struct {
	Timestamp      string         `xml:"Timestamp"`
	Runtime        string         `xml:"Runtime"`
	Owner          string         `xml:"Owner"`
	Tool           string         `xml:"Tool"`
	Resource       string         `xml:"Resource"`
	SensorDataType string         `xml:"SensorDataType"`
	Properties     *xmlProperties `xml:"Properties,omitempty"`
}

type xmlSensorDatas struct {
	XMLName xml.Name        `xml:"SensorDatas"`
	Entries []xmlSensorData `xml:"SensorData"`
}

// MarshalXML serializes a Batch to the <SensorDatas> document the server
// and the spool file both expect, indented for readability per the
// spool file format.
func MarshalXML(b Batch) ([]byte, error) {
	doc := xmlSensorDatas{Entries: make([]xmlSensorData, 0, len(b))}
	for _, r := range b {
		entry := xmlSensorData{
			Timestamp:      r.Timestamp.UTC().Format(TimestampLayout),
			Runtime:        r.Runtime.UTC().Format(TimestampLayout),
			Owner:          r.Owner,
			Tool:           r.Tool,
			Resource:       r.Resource,
			SensorDataType: r.SensorDataType,
		}
		if len(r.Properties) > 0 {
			props := &xmlProperties{Property: make([]xmlProperty, 0, len(r.Properties))}
			for _, p := range r.Properties {
				props.Property = append(props.Property, xmlProperty{Key: p.Key, Value: p.Value})
			}
			entry.Properties = props
		}
		doc.Entries = append(doc.Entries, entry)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: marshal batch: %v", shellerr.ErrSpoolIO, err)
	}
	return append([]byte(xml.Header), out...), nil
}

// UnmarshalXML deserializes a <SensorDatas> document back into a Batch.
// Round-tripping through MarshalXML/UnmarshalXML yields an equal Record
// list, including property order.
func UnmarshalXML(data []byte) (Batch, error) {
	var doc xmlSensorDatas
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: unmarshal batch: %v", shellerr.ErrSpoolIO, err)
	}

	batch := make(Batch, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		ts, err := time.Parse(TimestampLayout, e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: bad Timestamp %q: %v", shellerr.ErrSpoolIO, e.Timestamp, err)
		}
		rt, err := time.Parse(TimestampLayout, e.Runtime)
		if err != nil {
			return nil, fmt.Errorf("%w: bad Runtime %q: %v", shellerr.ErrSpoolIO, e.Runtime, err)
		}

		r := Record{
			Timestamp:      ts,
			Runtime:        rt,
			Owner:          e.Owner,
			Tool:           e.Tool,
			Resource:       e.Resource,
			SensorDataType: e.SensorDataType,
		}
		if e.Properties != nil {
			for _, p := range e.Properties.Property {
				r.Properties = append(r.Properties, Property{Key: p.Key, Value: p.Value})
			}
		}
		batch = append(batch, r)
	}
	return batch, nil
}
