package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/thereceipt/label-engine/internal/placeholder"
)

// loadRecords reads a JSON array of records, or an object wrapping one
// under "data". Numbers keep their literal form.
func loadRecords(path string) ([]placeholder.Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	return parseRecords(raw)
}

func parseRecords(raw []byte) ([]placeholder.Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if raw[0] == '[' {
		var records []placeholder.Record
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("failed to parse data file: %w", err)
		}
		return records, nil
	}

	var wrapped struct {
		Data []placeholder.Record `json:"data"`
	}
	if err := dec.Decode(&wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse data file: %w", err)
	}
	return wrapped.Data, nil
}

// varsFlag collects repeated -var key=value flags
type varsFlag map[string]string

func (v *varsFlag) String() string {
	if v == nil || len(*v) == 0 {
		return ""
	}
	keys := make([]string, 0, len(*v))
	for k := range *v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+(*v)[k])
	}
	return strings.Join(pairs, ",")
}

func (v *varsFlag) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	if *v == nil {
		*v = make(varsFlag)
	}
	(*v)[key] = value
	return nil
}
