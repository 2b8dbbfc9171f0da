package layout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Decode reads a JSON layout and validates it
func Decode(r io.Reader) (Table, error) {
	var t Table
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Encode writes the table as indented JSON
func (t Table) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// LoadFile reads and validates a layout file
func LoadFile(filename string) (Table, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// WriteFile writes the table to a layout file
func (t Table) WriteFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create layout file: %w", err)
	}
	if err := t.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
