package cryptocondition

import (
	"encoding/json"
	"fmt"

	"github.com/iho/escrowledger/internal/domain"
)

// ThresholdCondition requires threshold of subconditions to be fulfilled.
func ThresholdCondition(threshold int, subconditions ...domain.Condition) domain.Condition {
	subs := make([]any, len(subconditions))
	for i, c := range subconditions {
		subs[i] = typedMap(c.Type, c.Params)
	}
	return domain.Condition{
		Type:   TypeThresholdSHA256,
		Params: map[string]any{"threshold": threshold, "subconditions": subs},
	}
}

// ThresholdFulfillment bundles fulfillments of subconditions.
func ThresholdFulfillment(subfulfillments ...domain.Fulfillment) domain.Fulfillment {
	subs := make([]any, len(subfulfillments))
	for i, f := range subfulfillments {
		subs[i] = typedMap(f.Type, f.Params)
	}
	return domain.Fulfillment{
		Type:   TypeThresholdSHA256,
		Params: map[string]any{"subfulfillments": subs},
	}
}

type thresholdVerifier struct {
	registry *Registry
}

// Validate checks the threshold bounds and every subcondition.
func (v *thresholdVerifier) Validate(condition domain.Condition) error {
	_, subconditions, err := thresholdParams(condition)
	if err != nil {
		return err
	}

	for i, sc := range subconditions {
		if err := v.registry.Validate(domain.Condition{Type: sc.typ, Params: sc.params}); err != nil {
			return fmt.Errorf("subconditions[%d]: %w", i, err)
		}
	}

	return nil
}

// Verify counts subconditions satisfied by distinct subfulfillments.
func (v *thresholdVerifier) Verify(condition domain.Condition, fulfillment domain.Fulfillment) (bool, error) {
	threshold, subconditions, err := thresholdParams(condition)
	if err != nil {
		return false, err
	}

	subfulfillments, err := typedList(fulfillment.Params, "subfulfillments")
	if err != nil {
		return false, err
	}

	used := make([]bool, len(subfulfillments))
	met := 0

	for _, sc := range subconditions {
		cond := domain.Condition{Type: sc.typ, Params: sc.params}

		for i, sf := range subfulfillments {
			if used[i] {
				continue
			}

			ok, err := v.registry.Verify(cond, domain.Fulfillment{Type: sf.typ, Params: sf.params})
			if err != nil {
				return false, err
			}
			if ok {
				used[i] = true
				met++
				break
			}
		}

		if met >= threshold {
			return true, nil
		}
	}

	return false, nil
}

func thresholdParams(condition domain.Condition) (int, []typed, error) {
	threshold, err := intParam(condition.Params, "threshold")
	if err != nil {
		return 0, nil, err
	}
	if threshold < 1 {
		return 0, nil, fmt.Errorf("%w: threshold must be at least 1", ErrMalformed)
	}

	subconditions, err := typedList(condition.Params, "subconditions")
	if err != nil {
		return 0, nil, err
	}
	if threshold > len(subconditions) {
		return 0, nil, fmt.Errorf("%w: threshold exceeds number of subconditions", ErrMalformed)
	}

	return threshold, subconditions, nil
}

type typed struct {
	typ    string
	params map[string]any
}

func typedMap(typ string, params map[string]any) map[string]any {
	out := make(map[string]any, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	out["type"] = typ
	return out
}

func typedList(params map[string]any, key string) ([]typed, error) {
	raw, ok := params[key].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a list", ErrMalformed, key)
	}

	out := make([]typed, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s entries must be objects", ErrMalformed, key)
		}

		typ, _ := m["type"].(string)
		if typ == "" {
			return nil, fmt.Errorf("%w: %s entry without type", ErrMalformed, key)
		}

		p := make(map[string]any, len(m))
		for k, v := range m {
			if k != "type" {
				p[k] = v
			}
		}

		out = append(out, typed{typ: typ, params: p})
	}

	return out, nil
}

func intParam(params map[string]any, key string) (int, error) {
	switch n := params[key].(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%w: %s must be an integer", ErrMalformed, key)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer", ErrMalformed, key)
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("%w: %s is required", ErrMalformed, key)
	}
}
