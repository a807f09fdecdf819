// Package stix implements the subset of the STIX 2.0 object model produced by
// the MISP translation engine: domain objects, relationships, marking
// definitions and observed-data observable nodes.
//
// Constructors validate required fields and enumerated values and return an
// *InvalidValueError on rejection, so callers can repair or fall back instead
// of emitting malformed objects.
package stix

import (
	"encoding/json"
	"fmt"
	"time"
)

// SpecVersion is the STIX specification version this model implements.
const SpecVersion = "2.0"

// Object is any STIX object: SDO, SRO or marking definition.
type Object interface {
	GetID() string
	GetType() string
}

// Node is one observable object inside an observed-data container. Nodes are
// keyed by sequential string handles ("0", "1", ...) and may reference each
// other through *_ref / *_refs fields holding those handles.
type Node map[string]any

// Type returns the node's observable type, or "" when unset.
func (n Node) Type() string {
	t, _ := n["type"].(string)
	return t
}

// InvalidValueError reports a field value rejected by an object constructor.
type InvalidValueError struct {
	Object string
	Field  string
	Value  any
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("stix: invalid value for %s.%s: %v", e.Object, e.Field, e.Value)
}

func invalid(object, field string, value any) error {
	return &InvalidValueError{Object: object, Field: field, Value: value}
}

// MakeID builds a STIX identifier from an object type and a source UUID.
// Identifiers are deterministic: the same source record always yields the
// same id.
func MakeID(objectType, uuid string) string {
	return objectType + "--" + uuid
}

// KillChainPhase is a STIX kill-chain-phase embedded type.
type KillChainPhase struct {
	KillChainName string `json:"kill_chain_name"`
	PhaseName     string `json:"phase_name"`
}

// ExternalReference is a STIX external-reference embedded type.
type ExternalReference struct {
	SourceName string `json:"source_name"`
	ExternalID string `json:"external_id,omitempty"`
	URL        string `json:"url,omitempty"`
}

// Bundle is a STIX bundle wrapping the objects produced for one input.
type Bundle struct {
	Type        string   `json:"type"`
	ID          string   `json:"id"`
	SpecVersion string   `json:"spec_version"`
	Objects     []Object `json:"objects"`
}

// NewBundle wraps objects in a bundle with the given id.
func NewBundle(id string, objects []Object) *Bundle {
	return &Bundle{Type: "bundle", ID: MakeID("bundle", id), SpecVersion: SpecVersion, Objects: objects}
}

func (b *Bundle) GetID() string   { return b.ID }
func (b *Bundle) GetType() string { return b.Type }

// Timestamp marshals a time.Time in the millisecond-precision RFC 3339 form
// STIX 2.0 requires.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t as a STIX timestamp in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.UTC()}
}

// FromUnix converts an epoch-seconds value to a STIX timestamp.
func FromUnix(sec int64) Timestamp {
	return Timestamp{time.Unix(sec, 0).UTC()}
}

const timestampFormat = "2006-01-02T15:04:05.000Z"

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(timestampFormat))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	t.Time = parsed.UTC()
	return nil
}
