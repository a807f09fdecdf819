// Package models defines the MISP source schema consumed by the translator.
// Field names follow the MISP JSON export format.
package models

import "encoding/json"

// Export is a MISP export file: either a single {"Event": ...} document or a
// {"response": [{"Event": ...}, ...]} wrapped list.
type Export struct {
	Event    *Event          `json:"Event,omitempty"`
	Response []EventEnvelope `json:"response,omitempty"`
}

// EventEnvelope wraps one event inside a multi-event response list.
type EventEnvelope struct {
	Event *Event `json:"Event"`
}

// Events returns the export's events in input order, regardless of whether
// the document was wrapped.
func (e *Export) Events() []*Event {
	if len(e.Response) > 0 {
		events := make([]*Event, 0, len(e.Response))
		for _, envelope := range e.Response {
			if envelope.Event != nil {
				events = append(events, envelope.Event)
			}
		}
		return events
	}
	if e.Event != nil {
		return []*Event{e.Event}
	}
	return nil
}

// Event is the root unit of translation.
type Event struct {
	UUID             string      `json:"uuid"`
	Info             string      `json:"info"`
	Date             string      `json:"date"`
	Timestamp        json.Number `json:"timestamp"`
	PublishTimestamp json.Number `json:"publish_timestamp"`
	Orgc             Org         `json:"Orgc"`
	Attributes       []Attribute `json:"Attribute"`
	Objects          []Object    `json:"Object"`
	Galaxies         []Galaxy    `json:"Galaxy"`
	Tags             []Tag       `json:"Tag"`
}

// Org identifies the producing organization.
type Org struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

// Attribute is a single flat typed observation.
type Attribute struct {
	UUID           string      `json:"uuid"`
	Type           string      `json:"type"`
	Category       string      `json:"category"`
	ObjectRelation string      `json:"object_relation,omitempty"`
	Value          string      `json:"value"`
	Comment        string      `json:"comment,omitempty"`
	ToIDS          bool        `json:"to_ids"`
	Timestamp      json.Number `json:"timestamp"`
	FirstSeen      string      `json:"first_seen,omitempty"`
	LastSeen       string      `json:"last_seen,omitempty"`
	Data           string      `json:"data,omitempty"`
	Tags           []Tag       `json:"Tag,omitempty"`
	Galaxies       []Galaxy    `json:"Galaxy,omitempty"`
}

// Object is a named bag of attributes plus typed references to other objects.
type Object struct {
	UUID         string            `json:"uuid"`
	Name         string            `json:"name"`
	MetaCategory string            `json:"meta-category"`
	Description  string            `json:"description,omitempty"`
	Comment      string            `json:"comment,omitempty"`
	Timestamp    json.Number       `json:"timestamp"`
	FirstSeen    string            `json:"first_seen,omitempty"`
	LastSeen     string            `json:"last_seen,omitempty"`
	Attributes   []Attribute       `json:"Attribute"`
	References   []ObjectReference `json:"ObjectReference,omitempty"`
}

// ObjectReference is a typed edge from one object to another.
type ObjectReference struct {
	ReferencedUUID   string           `json:"referenced_uuid"`
	RelationshipType string           `json:"relationship_type"`
	Object           *ReferencedStub  `json:"Object,omitempty"`
}

// ReferencedStub carries the name of the referenced object as embedded in the
// reference record.
type ReferencedStub struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

// Galaxy is a shared taxonomy reference with one or more clusters.
type Galaxy struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Clusters    []GalaxyCluster `json:"GalaxyCluster"`
}

// GalaxyCluster is one entry of a galaxy taxonomy.
type GalaxyCluster struct {
	UUID           string      `json:"uuid"`
	CollectionUUID string      `json:"collection_uuid,omitempty"`
	Value          string      `json:"value"`
	Description    string      `json:"description,omitempty"`
	TagName        string      `json:"tag_name,omitempty"`
	Meta           ClusterMeta `json:"meta,omitempty"`
}

// ID returns the cluster's stable identifier, preferring the collection UUID.
func (c *GalaxyCluster) ID() string {
	if c.CollectionUUID != "" {
		return c.CollectionUUID
	}
	return c.UUID
}

// ClusterMeta holds the cluster metadata fields the translator consumes.
type ClusterMeta struct {
	Synonyms []string `json:"synonyms,omitempty"`
	Aliases  []string `json:"aliases,omitempty"`
}

// Tag is a string label, either a tlp: marking or a free-form
// namespace:predicate tag.
type Tag struct {
	Name string `json:"name"`
}
