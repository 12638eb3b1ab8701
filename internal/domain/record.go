package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// wireRecord is the flat JSON structure published by the collector,
// mirroring the open-data feed's column names.
type wireRecord struct {
	UniqueKey     string `json:"unique_key"`
	CreatedDate   string `json:"created_date"`
	ClosedDate    string `json:"closed_date"`
	ComplaintType string `json:"complaint_type"`
	Descriptor    string `json:"descriptor"`
	Address       string `json:"incident_address"`
	StreetName    string `json:"street_name"`
	CrossStreet1  string `json:"intersection_street_1"`
	CrossStreet2  string `json:"intersection_street_2"`
	ZipCode       string `json:"incident_zip"`
	Latitude      string `json:"latitude"`
	Longitude     string `json:"longitude"`
}

// SourceMessage represents an unprocessed message from the source topic.
type SourceMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// RawComplaintRecord is one externally sourced complaint, immutable once
// parsed. Latitude/Longitude are nil when the feed omits coordinates.
type RawComplaintRecord struct {
	ID           string     `json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	TypeLabel    string     `json:"type_label"`
	Descriptor   string     `json:"descriptor,omitempty"`
	Address      string     `json:"address,omitempty"`
	Street       string     `json:"street,omitempty"`
	CrossStreet1 string     `json:"cross_street_1,omitempty"`
	CrossStreet2 string     `json:"cross_street_2,omitempty"`
	ZipCode      string     `json:"zip_code,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
}

// StructuralError reports a record that is malformed beyond filtering:
// per the batch contract it aborts the run rather than corrupting counts.
type StructuralError struct {
	RecordID string
	Field    string
}

func (e *StructuralError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("structurally invalid record: missing %s", e.Field)
	}
	return fmt.Sprintf("structurally invalid record %s: missing %s", e.RecordID, e.Field)
}

// Validate checks the structural invariants every record must satisfy
// before clustering. Unknown categories, zips, and unlocatable addresses
// are filtering concerns, not validation failures.
func (r RawComplaintRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return &StructuralError{Field: "id"}
	}
	if r.CreatedAt.IsZero() {
		return &StructuralError{RecordID: r.ID, Field: "created_at"}
	}
	return nil
}

// ParseSourceMessage deserializes a SourceMessage's value into a
// RawComplaintRecord and validates it.
func ParseSourceMessage(msg SourceMessage) (RawComplaintRecord, error) {
	var w wireRecord
	if err := json.Unmarshal(msg.Value, &w); err != nil {
		return RawComplaintRecord{}, fmt.Errorf("parse source message: %w", err)
	}
	rec := recordFromWire(w)
	if err := rec.Validate(); err != nil {
		return RawComplaintRecord{}, err
	}
	return rec, nil
}

// DecodeRecords parses a JSON array of feed-format records, validating
// each. Used by offline tooling that reads fixture files.
func DecodeRecords(data []byte) ([]RawComplaintRecord, error) {
	var wires []wireRecord
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	records := make([]RawComplaintRecord, 0, len(wires))
	for _, w := range wires {
		rec := recordFromWire(w)
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func recordFromWire(w wireRecord) RawComplaintRecord {
	return RawComplaintRecord{
		ID:           strings.TrimSpace(w.UniqueKey),
		CreatedAt:    parseFeedTime(w.CreatedDate),
		ClosedAt:     parseOptionalFeedTime(w.ClosedDate),
		TypeLabel:    strings.TrimSpace(w.ComplaintType),
		Descriptor:   strings.TrimSpace(w.Descriptor),
		Address:      strings.TrimSpace(w.Address),
		Street:       strings.TrimSpace(w.StreetName),
		CrossStreet1: strings.TrimSpace(w.CrossStreet1),
		CrossStreet2: strings.TrimSpace(w.CrossStreet2),
		ZipCode:      strings.TrimSpace(w.ZipCode),
		Latitude:     parseOptionalFloat(w.Latitude),
		Longitude:    parseOptionalFloat(w.Longitude),
	}
}

// feedTimeLayouts covers the timestamp formats the open-data feed has
// been observed to emit.
var feedTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
}

func parseFeedTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func parseOptionalFeedTime(s string) *time.Time {
	t := parseFeedTime(s)
	if t.IsZero() {
		return nil
	}
	return &t
}

func parseOptionalFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
