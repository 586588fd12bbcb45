package result

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AgentInput is one named upstream report. Value is never interpreted.
type AgentInput struct {
	Name  string
	Value json.RawMessage
}

// Inputs is an order-preserving mapping of report name to raw JSON. It
// encodes as a JSON object with keys in insertion order.
type Inputs []AgentInput

// Set returns a copy of in with name's value replaced, or appended. in is
// left as it was.
func (in Inputs) Set(name string, v json.RawMessage) Inputs {
	out := make(Inputs, len(in), len(in)+1)
	copy(out, in)
	for i := range out {
		if out[i].Name == name {
			out[i].Value = v
			return out
		}
	}
	return append(out, AgentInput{Name: name, Value: v})
}

func (in Inputs) Get(name string) (json.RawMessage, bool) {
	for _, a := range in {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// Clone deep copies in.
func (in Inputs) Clone() Inputs {
	if in == nil {
		return nil
	}
	out := make(Inputs, len(in))
	for i, a := range in {
		out[i] = AgentInput{Name: a.Name, Value: append(json.RawMessage(nil), a.Value...)}
	}
	return out
}

func (in Inputs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range in {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(a.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		v := a.Value
		if len(v) == 0 {
			v = json.RawMessage("null")
		}
		if !json.Valid(v) {
			return nil, fmt.Errorf("agent input %q is not valid JSON", a.Name)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (in *Inputs) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*in = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("agent inputs: expected object, got %v", tok)
	}

	out := Inputs{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("agent inputs: bad key %v", tok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("agent input %q: %w", name, err)
		}
		out = append(out, AgentInput{Name: name, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*in = out
	return nil
}
