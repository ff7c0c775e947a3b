package labelformat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Parse parses a label layout document from a byte slice
func Parse(data []byte) (*LabelLayout, error) {
	// layout_data arrives either as an array or as a string holding the array
	var temp struct {
		ID          string          `json:"id,omitempty"`
		Name        string          `json:"name,omitempty"`
		Width       float64         `json:"width"`
		Height      float64         `json:"height"`
		NumColumns  int             `json:"num_columns,omitempty"`
		Active      bool            `json:"is_active"`
		RFIDEnabled bool            `json:"rfid_enabled,omitempty"`
		RFIDColumn  string          `json:"rfid_column,omitempty"`
		LayoutData  json.RawMessage `json:"layout_data"`
	}

	if err := json.Unmarshal(data, &temp); err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	elements, err := parseElements(temp.LayoutData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout_data: %w", err)
	}

	layout := LabelLayout{
		ID:          temp.ID,
		Name:        temp.Name,
		Width:       temp.Width,
		Height:      temp.Height,
		NumColumns:  temp.NumColumns,
		Active:      temp.Active,
		RFIDEnabled: temp.RFIDEnabled,
		RFIDColumn:  temp.RFIDColumn,
		Elements:    elements,
	}

	// Elements saved without an id get one so diagnostics can name them
	for i := range layout.Elements {
		if layout.Elements[i].ID == "" {
			layout.Elements[i].ID = uuid.New().String()
		}
	}

	if err := Validate(&layout); err != nil {
		return nil, err
	}

	return &layout, nil
}

func parseElements(raw json.RawMessage) ([]Element, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []Element{}, nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, err
		}
		if encoded == "" {
			return []Element{}, nil
		}
		raw = json.RawMessage(encoded)
	}

	var elements []Element
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, err
	}
	if elements == nil {
		elements = []Element{}
	}
	return elements, nil
}

// ParseFile parses a layout document from disk
func ParseFile(path string) (*LabelLayout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}

	return Parse(data)
}

// ToJSON converts a LabelLayout to JSON bytes
func (l *LabelLayout) ToJSON() ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// SaveToFile saves a LabelLayout to a file
func (l *LabelLayout) SaveToFile(path string) error {
	data, err := l.ToJSON()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
