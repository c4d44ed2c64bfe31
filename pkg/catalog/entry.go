// Package catalog builds and serves the on-disk ISTAT catalog: dataflows,
// data structures with their constraints, territorial codelists and the
// in-memory location registry derived from them.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entry maps a display name to a code. It is persisted as a one-key JSON
// object, {"Bologna": "ITD55"}.
type Entry struct {
	Name string
	Code string
}

func (e Entry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeJSONString(&buf, e.Name); err != nil {
		return nil, err
	}
	buf.WriteByte(':')
	if err := writeJSONString(&buf, e.Code); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("entry: want one name/code pair, got %d", len(m))
	}
	for name, code := range m {
		e.Name, e.Code = name, code
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
