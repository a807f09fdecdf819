package stix

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTimestamp() Timestamp {
	return NewTimestamp(time.Date(2023, 4, 5, 6, 7, 8, 0, time.UTC))
}

func TestMakeID(t *testing.T) {
	assert.Equal(t, "indicator--abc", MakeID("indicator", "abc"))
}

func TestNewIndicator(t *testing.T) {
	ts := testTimestamp()

	t.Run("valid", func(t *testing.T) {
		ind, err := NewIndicator(Indicator{
			ObjectBase: Base("indicator", "5ac47782-e1b8-40b6-96b4-02510a00020f", ts, ts),
			Pattern:    "[domain-name:value = 'evil.example']",
			ValidFrom:  ts,
		})
		require.NoError(t, err)
		assert.Equal(t, "indicator--5ac47782-e1b8-40b6-96b4-02510a00020f", ind.ID)
	})

	t.Run("empty pattern rejected", func(t *testing.T) {
		_, err := NewIndicator(Indicator{
			ObjectBase: Base("indicator", "5ac47782-e1b8-40b6-96b4-02510a00020f", ts, ts),
		})
		var ive *InvalidValueError
		require.ErrorAs(t, err, &ive)
		assert.Equal(t, "pattern", ive.Field)
	})

	t.Run("unwrapped pattern rejected", func(t *testing.T) {
		_, err := NewIndicator(Indicator{
			ObjectBase: Base("indicator", "5ac47782-e1b8-40b6-96b4-02510a00020f", ts, ts),
			Pattern:    "domain-name:value = 'evil.example'",
		})
		assert.Error(t, err)
	})
}

func TestNewObservedData_SocketExtEnumeration(t *testing.T) {
	ts := testTimestamp()
	base := func(nodes map[string]Node) ObservedData {
		return ObservedData{
			ObjectBase:     Base("observed-data", "5ac47782-e1b8-40b6-96b4-02510a00020f", ts, ts),
			FirstObserved:  ts,
			LastObserved:   ts,
			NumberObserved: 1,
			Objects:        nodes,
		}
	}

	t.Run("known address family accepted", func(t *testing.T) {
		_, err := NewObservedData(base(map[string]Node{
			"0": {"type": "network-traffic", "protocols": []string{"tcp"}, "extensions": map[string]any{
				"socket-ext": map[string]any{"address_family": "AF_INET"},
			}},
		}))
		assert.NoError(t, err)
	})

	t.Run("unknown address family rejected", func(t *testing.T) {
		_, err := NewObservedData(base(map[string]Node{
			"0": {"type": "network-traffic", "extensions": map[string]any{
				"socket-ext": map[string]any{"address_family": "AF_WEIRD"},
			}},
		}))
		var ive *InvalidValueError
		require.ErrorAs(t, err, &ive)
		assert.Equal(t, "address_family", ive.Field)
	})

	t.Run("missing nodes rejected", func(t *testing.T) {
		_, err := NewObservedData(base(nil))
		assert.Error(t, err)
	})
}

func TestNewMarkingDefinition(t *testing.T) {
	t.Run("statement", func(t *testing.T) {
		md, err := NewMarkingDefinition(MarkingDefinition{
			ID:             "marking-definition--0a0ae5f8-9cc3-4bd9-8b82-4e240c25f373",
			Created:        testTimestamp(),
			DefinitionType: "statement",
			Definition:     map[string]string{"statement": "internal use only"},
		})
		require.NoError(t, err)
		assert.Equal(t, "marking-definition", md.Type)
	})

	t.Run("free-form definition type rejected", func(t *testing.T) {
		_, err := NewMarkingDefinition(MarkingDefinition{
			ID:             "marking-definition--0a0ae5f8-9cc3-4bd9-8b82-4e240c25f373",
			DefinitionType: "workflow",
			Definition:     map[string]string{"workflow": "todo"},
		})
		assert.Error(t, err)
	})

	t.Run("tlp must match a canonical id", func(t *testing.T) {
		_, err := NewMarkingDefinition(MarkingDefinition{
			ID:             "marking-definition--0a0ae5f8-9cc3-4bd9-8b82-4e240c25f373",
			DefinitionType: "tlp",
			Definition:     map[string]string{"tlp": "amber"},
		})
		assert.Error(t, err)
	})
}

func TestCustomMarshalJSON(t *testing.T) {
	ts := testTimestamp()
	custom, err := NewCustom(Custom{
		ObjectBase: ObjectBase{
			Type:     "x-misp-object-btc",
			ID:       "x-misp-object-btc--5ac47782-e1b8-40b6-96b4-02510a00020f",
			Created:  ts,
			Modified: ts,
			Labels:   []string{`misp:type="btc"`},
		},
		Category: "Financial fraud",
		Values:   map[string]any{"x_misp_btc_address": "1E38kt7ryhbRXUzbam6iQ6sd93VHUUdjEE"},
	})
	require.NoError(t, err)

	data, err := json.Marshal(custom)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "x-misp-object-btc", decoded["type"])
	assert.Equal(t, "Financial fraud", decoded["x_misp_category"])
	assert.Equal(t, "1E38kt7ryhbRXUzbam6iQ6sd93VHUUdjEE", decoded["x_misp_btc_address"])
}

func TestTimestampMarshal(t *testing.T) {
	data, err := json.Marshal(testTimestamp())
	require.NoError(t, err)
	assert.Equal(t, `"2023-04-05T06:07:08.000Z"`, string(data))
}

func TestBundle(t *testing.T) {
	ts := testTimestamp()
	identity, err := NewIdentity(Identity{
		ObjectBase:    Base("identity", "55f6ea5e-2c60-40e5-964f-47a8950d210f", ts, ts),
		Name:          "CIRCL",
		IdentityClass: "organization",
	})
	require.NoError(t, err)

	bundle := NewBundle("3c4f8c1c-9f96-4de1-9b45-1b2d2a7eb90b", []Object{identity})
	assert.Equal(t, "bundle", bundle.Type)
	assert.Equal(t, "bundle--3c4f8c1c-9f96-4de1-9b45-1b2d2a7eb90b", bundle.ID)
	require.Len(t, bundle.Objects, 1)
	assert.Equal(t, "identity", bundle.Objects[0].GetType())
}
