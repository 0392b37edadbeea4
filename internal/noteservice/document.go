package noteservice

import (
	"encoding/json"
	"fmt"
	"math"
)

// document is a note file decoded just far enough to manage its identity
// fields. Every other key is carried through untouched so that rewrites never
// drop editor data.
type document map[string]json.RawMessage

func parseDocument(data []byte) (document, error) {
	var d document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("noteservice: parse note: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("noteservice: parse note: not a JSON object")
	}
	return d, nil
}

func (d document) id() string {
	var id string
	if raw, ok := d["id"]; ok {
		_ = json.Unmarshal(raw, &id)
	}
	return id
}

// lastOpened returns the stored timestamp and whether one was present.
func (d document) lastOpened() (int64, bool) {
	raw, ok := d["lastOpened"]
	if !ok {
		return 0, false
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err != nil || math.IsNaN(ms) {
		return 0, false
	}
	return int64(ms), true
}

func (d document) set(key string, v any) {
	// Only strings and integers are stored through set; neither fails to marshal.
	raw, _ := json.Marshal(v)
	d[key] = raw
}

func (d document) encode() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
