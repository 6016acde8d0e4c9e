package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Condition is a crypto-condition descriptor: a type tag plus type-specific fields.
type Condition struct {
	Type   string
	Params map[string]any
}

// Fulfillment is the proof submitted to satisfy a Condition of the same type.
type Fulfillment struct {
	Type   string
	Params map[string]any
}

// FulfillmentRecord is a persisted fulfillment for a transfer.
type FulfillmentRecord struct {
	TransferID  string
	Fulfillment Fulfillment
	CreatedAt   time.Time
}

// Param returns a string field of the condition.
func (c Condition) Param(key string) (string, bool) {
	return stringParam(c.Params, key)
}

func (c Condition) MarshalJSON() ([]byte, error) {
	return marshalTyped(c.Type, c.Params)
}

func (c *Condition) UnmarshalJSON(data []byte) error {
	typ, params, err := unmarshalTyped(data)
	if err != nil {
		return err
	}
	c.Type, c.Params = typ, params
	return nil
}

// Clone returns a deep copy.
func (c *Condition) Clone() *Condition {
	if c == nil {
		return nil
	}
	return &Condition{Type: c.Type, Params: cloneMap(c.Params)}
}

// Param returns a string field of the fulfillment.
func (f Fulfillment) Param(key string) (string, bool) {
	return stringParam(f.Params, key)
}

func (f Fulfillment) MarshalJSON() ([]byte, error) {
	return marshalTyped(f.Type, f.Params)
}

func (f *Fulfillment) UnmarshalJSON(data []byte) error {
	typ, params, err := unmarshalTyped(data)
	if err != nil {
		return err
	}
	f.Type, f.Params = typ, params
	return nil
}

// Clone returns a deep copy.
func (f *Fulfillment) Clone() *Fulfillment {
	if f == nil {
		return nil
	}
	return &Fulfillment{Type: f.Type, Params: cloneMap(f.Params)}
}

func stringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func marshalTyped(typ string, params map[string]any) ([]byte, error) {
	out := make(map[string]any, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	out["type"] = typ
	return json.Marshal(out)
}

func unmarshalTyped(data []byte) (string, map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", nil, err
	}
	typ, ok := raw["type"].(string)
	if !ok || typ == "" {
		return "", nil, fmt.Errorf("%w: condition type is required", ErrInvalidBody)
	}
	delete(raw, "type")
	return typ, raw, nil
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
