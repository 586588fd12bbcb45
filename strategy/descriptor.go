// Package strategy holds the trading plan handed to the simulator and the
// translator that turns its prose fields into mechanical rules.
package strategy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMalformedStrategy is returned when a descriptor lacks required structure.
var ErrMalformedStrategy = errors.New("malformed strategy")

// Descriptor is a composed trading plan. It is treated as immutable once
// handed to the simulator; Rationale is carried through untouched.
type Descriptor struct {
	Symbol          string          `json:"symbol"`
	Date            string          `json:"date,omitempty"`
	EntryCriteria   string          `json:"entry_criteria"`
	PositionSizing  string          `json:"position_sizing"`
	RiskManagement  string          `json:"risk_management"`
	ExitStrategy    string          `json:"exit_strategy"`
	TradeManagement string          `json:"trade_management"`
	Rationale       json.RawMessage `json:"rationale,omitempty"`
}

// Validate checks that every required text field is present.
func (d Descriptor) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"symbol", d.Symbol},
		{"entry_criteria", d.EntryCriteria},
		{"position_sizing", d.PositionSizing},
		{"risk_management", d.RiskManagement},
		{"exit_strategy", d.ExitStrategy},
		{"trade_management", d.TradeManagement},
	}

	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformedStrategy, strings.Join(missing, ", "))
	}
	if len(d.Rationale) > 0 && !json.Valid(d.Rationale) {
		return fmt.Errorf("%w: rationale is not valid JSON", ErrMalformedStrategy)
	}
	return nil
}

// Clone returns a copy that shares no memory with d.
func (d Descriptor) Clone() Descriptor {
	c := d
	if d.Rationale != nil {
		c.Rationale = append(json.RawMessage(nil), d.Rationale...)
	}
	return c
}

// Decode parses a descriptor from JSON or YAML.
func Decode(data []byte) (Descriptor, error) {
	var d Descriptor

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &d); err != nil {
			return Descriptor{}, fmt.Errorf("%w: %v", ErrMalformedStrategy, err)
		}
		return d, nil
	}

	// YAML goes through a generic map so the rationale ends up as JSON.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %v", ErrMalformedStrategy, err)
	}
	js, err := json.Marshal(raw)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: %v", ErrMalformedStrategy, err)
	}
	if err := json.Unmarshal(js, &d); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %v", ErrMalformedStrategy, err)
	}
	return d, nil
}

// LoadFile reads a descriptor from a .json, .yaml or .yml file.
func LoadFile(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("read strategy file: %w", err)
	}
	return Decode(data)
}
