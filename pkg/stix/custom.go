package stix

import (
	"encoding/json"
	"sort"
)

// marshalWithExtra marshals v, then overlays the open extra fields on top of
// the typed ones. Extra keys never shadow typed fields.
func marshalWithExtra(v any, extra map[string]any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return data, nil
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range extra {
		if _, exists := merged[key]; exists {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		merged[key] = raw
	}
	return json.Marshal(merged)
}

// Custom is the schema-light wrapper emitted for source records with no
// specific STIX mapping. It is one fixed open shape: the stable SDO fields
// plus an open map of x_-prefixed values, rather than a synthesized type per
// source kind.
type Custom struct {
	ObjectBase
	Category string         `json:"x_misp_category,omitempty"`
	Comment  string         `json:"x_misp_comment,omitempty"`
	Values   map[string]any `json:"-"`
}

// NewCustom returns a custom wrapper object. It accepts any well-formed
// record: the only rejected input is a missing type or id.
func NewCustom(c Custom) (*Custom, error) {
	if c.Type == "" {
		return nil, invalid("custom", "type", c.Type)
	}
	if c.ID == "" {
		return nil, invalid("custom", "id", c.ID)
	}
	return &c, nil
}

func (c *Custom) MarshalJSON() ([]byte, error) {
	type alias Custom
	return marshalWithExtra((*alias)(c), c.Values)
}

// SortedValueKeys returns the wrapper's open field names in stable order,
// mainly for tests and logging.
func (c *Custom) SortedValueKeys() []string {
	keys := make([]string, 0, len(c.Values))
	for key := range c.Values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
