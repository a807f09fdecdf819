package stix

import "time"

// MarkingDefinition is a STIX marking-definition object. STIX 2.0 allows two
// definition types: "tlp" and "statement".
type MarkingDefinition struct {
	Type           string            `json:"type"`
	ID             string            `json:"id"`
	Created        Timestamp         `json:"created"`
	DefinitionType string            `json:"definition_type"`
	Definition     map[string]string `json:"definition"`
}

func (m *MarkingDefinition) GetID() string   { return m.ID }
func (m *MarkingDefinition) GetType() string { return m.Type }

var tlpLevels = map[string]string{
	"white": TLPWhite.ID,
	"green": TLPGreen.ID,
	"amber": TLPAmber.ID,
	"red":   TLPRed.ID,
}

// NewMarkingDefinition validates and returns a marking definition. TLP
// definitions must match one of the four predefined levels; other definition
// types must be "statement". Anything else is rejected so the caller can skip
// the tag.
func NewMarkingDefinition(md MarkingDefinition) (*MarkingDefinition, error) {
	if md.ID == "" {
		return nil, invalid("marking-definition", "id", md.ID)
	}
	md.Type = "marking-definition"
	switch md.DefinitionType {
	case "tlp":
		level := md.Definition["tlp"]
		canonical, ok := tlpLevels[level]
		if !ok {
			return nil, invalid("marking-definition", "definition.tlp", level)
		}
		if md.ID != canonical {
			return nil, invalid("marking-definition", "id", md.ID)
		}
	case "statement":
		if md.Definition["statement"] == "" {
			return nil, invalid("marking-definition", "definition.statement", "")
		}
	default:
		return nil, invalid("marking-definition", "definition_type", md.DefinitionType)
	}
	return &md, nil
}

func predefinedTLP(id, level string) *MarkingDefinition {
	created, _ := time.Parse(time.RFC3339, "2017-01-20T00:00:00Z")
	return &MarkingDefinition{
		Type:           "marking-definition",
		ID:             id,
		Created:        NewTimestamp(created),
		DefinitionType: "tlp",
		Definition:     map[string]string{"tlp": level},
	}
}

// The four canonical TLP marking definitions from the STIX 2.0 specification.
// Their ids are fixed by the standard and shared across all producers.
var (
	TLPWhite = predefinedTLP("marking-definition--613f2e26-407d-48c7-9eca-b8e91df99dc9", "white")
	TLPGreen = predefinedTLP("marking-definition--34098fce-860f-48ae-8e50-ebd3cc5e41da", "green")
	TLPAmber = predefinedTLP("marking-definition--f88d31f6-486f-44da-b317-01333bde0b82", "amber")
	TLPRed   = predefinedTLP("marking-definition--5e57c739-391a-4eb3-b6be-7d15ca92d5ed", "red")
)
