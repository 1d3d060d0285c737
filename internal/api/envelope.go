package api

import (
	"bytes"
	"encoding/json"
)

// List normalizes the collection shapes the backend returns: a bare array,
// {"entity": [...]}, or {"entities": [...], "total": n}.
type List[T any] struct {
	Items []T
	Total int
}

func (l *List[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	l.Items, l.Total = nil, 0

	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] == '[' {
		if err := json.Unmarshal(b, &l.Items); err != nil {
			return err
		}
		l.Total = len(l.Items)
		return nil
	}

	var wrapped struct {
		Entity   json.RawMessage `json:"entity"`
		Entities json.RawMessage `json:"entities"`
		Items    json.RawMessage `json:"items"`
		Total    *int            `json:"total"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}

	for _, raw := range []json.RawMessage{wrapped.Entities, wrapped.Entity, wrapped.Items} {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			continue
		}
		if raw[0] == '{' {
			var one T
			if err := json.Unmarshal(raw, &one); err != nil {
				return err
			}
			l.Items = []T{one}
		} else if err := json.Unmarshal(raw, &l.Items); err != nil {
			return err
		}
		break
	}

	l.Total = len(l.Items)
	if wrapped.Total != nil {
		l.Total = *wrapped.Total
	}
	return nil
}

// entity unwraps a single object that may arrive bare or as {"entity": {...}}.
type entity[T any] struct {
	Value T
}

func (e *entity[T]) UnmarshalJSON(b []byte) error {
	var probe struct {
		Entity json.RawMessage `json:"entity"`
	}
	if err := json.Unmarshal(b, &probe); err == nil {
		raw := bytes.TrimSpace(probe.Entity)
		if len(raw) > 0 && raw[0] == '{' {
			return json.Unmarshal(raw, &e.Value)
		}
	}
	return json.Unmarshal(b, &e.Value)
}
