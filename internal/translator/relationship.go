package translator

import (
	"strings"

	"github.com/google/uuid"
	"github.com/telhawk-systems/stixbridge/internal/metrics"
	"github.com/telhawk-systems/stixbridge/pkg/stix"
)

// addAllRelationships materializes every deferred edge as a relationship
// object. Galaxy edges whose source is the report itself are skipped, since
// the cluster already sits in the report's reference list. Object edges with
// an endpoint that never produced an object are dropped silently.
func (ec *eventContext) addAllRelationships() {
	for _, edge := range ec.defined {
		if strings.HasPrefix(edge.sourceID, "report--") {
			continue
		}
		sourceKind, _, _ := splitStixID(edge.sourceID)
		targetKind, _, _ := splitStixID(edge.targetID)
		ec.addRelationship(edge.sourceID, edge.targetID, relationshipLabel(sourceKind, targetKind))
	}

	for _, edge := range ec.toDefine {
		sourceKind, ok := ec.ids[edge.sourceUUID]
		if !ok {
			metrics.DroppedRelationships.Inc()
			continue
		}
		targetKind, ok := ec.ids[edge.targetUUID]
		if !ok {
			metrics.DroppedRelationships.Inc()
			continue
		}
		label := strings.TrimSpace(edge.relationshipType)
		if label == "" {
			label = defaultRelationship
		}
		ec.addRelationship(
			stix.MakeID(sourceKind, edge.sourceUUID),
			stix.MakeID(targetKind, edge.targetUUID),
			label,
		)
	}
}

// relationshipLabel picks the label for a galaxy edge from the kind pair
// table.
func relationshipLabel(sourceKind, targetKind string) string {
	if targets, ok := relationshipSpecs[sourceKind]; ok {
		if label, ok := targets[targetKind]; ok {
			return label
		}
	}
	return defaultRelationship
}

func (ec *eventContext) addRelationship(sourceID, targetID, label string) {
	rel, err := stix.NewRelationship(stix.Relationship{
		ObjectBase: stix.ObjectBase{
			Type:     "relationship",
			ID:       stix.MakeID("relationship", uuid.NewString()),
			Created:  ec.timestamp,
			Modified: ec.timestamp,
		},
		RelationshipType: label,
		SourceRef:        sourceID,
		TargetRef:        targetID,
	})
	if err != nil {
		return
	}
	ec.appendObject(rel, false)
}
