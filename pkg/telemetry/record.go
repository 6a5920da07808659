package telemetry

import (
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// ErrInvalidRecord is returned when a test document is not a JSON object.
var ErrInvalidRecord = errors.New("invalid test record")

// TestRecord is one pre-aggregated, unlabeled test document.
//
// Rates holds the "rate" list of every sub-record that carried a usable one,
// in document order. Sub-records without a rate list, with an empty list, or
// with no numeric entries are left out.
type TestRecord struct {
	Client string
	Server string
	Rates  [][]float64
}

// ParseTestRecord decodes a test document of the form
//
//	{"cliente": "ba", "servidor": "rj", "dash": [{"rate": [..]}, ..]}
//
// The English keys "client" and "server" are accepted as aliases. Missing
// codes are not an error here; they are rejected by vocabulary lookup.
func ParseTestRecord(data []byte) (TestRecord, error) {
	if !gjson.ValidBytes(data) {
		return TestRecord{}, fmt.Errorf("%w: malformed JSON", ErrInvalidRecord)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return TestRecord{}, fmt.Errorf("%w: not an object", ErrInvalidRecord)
	}

	rec := TestRecord{
		Client: firstString(doc, "cliente", "client"),
		Server: firstString(doc, "servidor", "server"),
	}

	for _, sub := range doc.Get("dash").Array() {
		rate := sub.Get("rate")
		if !rate.IsArray() {
			continue
		}
		values := make([]float64, 0, len(rate.Array()))
		for _, v := range rate.Array() {
			if v.Type == gjson.Number {
				values = append(values, v.Float())
			}
		}
		if len(values) == 0 {
			continue
		}
		rec.Rates = append(rec.Rates, values)
	}

	return rec, nil
}

// ReadTestRecord reads and decodes one test document from disk.
func ReadTestRecord(path string) (TestRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TestRecord{}, fmt.Errorf("read test record: %w", err)
	}
	rec, err := ParseTestRecord(data)
	if err != nil {
		return TestRecord{}, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

func firstString(doc gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := doc.Get(k); v.Exists() {
			return v.String()
		}
	}
	return ""
}
