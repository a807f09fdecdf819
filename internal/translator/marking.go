package translator

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/telhawk-systems/stixbridge/pkg/stix"
)

// markingCache dedups marking-definition objects by raw tag string within one
// event. Rejected tags are remembered so they are not re-tried, and yield no
// reference.
type markingCache struct {
	byTag map[string]*stix.MarkingDefinition
	order []string // tags in first-seen order, rejected tags excluded
}

func newMarkingCache() *markingCache {
	return &markingCache{byTag: map[string]*stix.MarkingDefinition{}}
}

// isTLPTag reports whether a tag names a traffic-light-protocol marking.
func isTLPTag(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), "tlp:")
}

// handleTags resolves a batch of marking tags to marking-definition ids,
// creating cache entries on first sight. Tags that do not form a valid
// marking are dropped without a reference.
func (mc *markingCache) handleTags(tags []string) []string {
	var refs []string
	for _, tag := range tags {
		marking, ok := mc.byTag[tag]
		if !ok {
			marking = createMarking(tag)
			mc.byTag[tag] = marking
			if marking != nil {
				mc.order = append(mc.order, tag)
			}
		}
		if marking != nil {
			refs = append(refs, marking.ID)
		}
	}
	return refs
}

// createMarking builds the marking-definition for one tag, nil when the tag
// is not a representable marking. TLP tags resolve to the four canonical
// predefined objects; any other namespaced tag is split into namespace and
// predicate and offered as that namespace's definition. Tags the marking
// model rejects yield nil.
func createMarking(tag string) *stix.MarkingDefinition {
	if isTLPTag(tag) {
		return tlpMarkings[strings.ToLower(tag)]
	}
	namespace, predicate, found := strings.Cut(tag, ":")
	if !found {
		return nil
	}
	marking, err := stix.NewMarkingDefinition(stix.MarkingDefinition{
		ID:             stix.MakeID("marking-definition", uuid.NewString()),
		Created:        stix.NewTimestamp(time.Now().UTC()),
		DefinitionType: namespace,
		Definition:     map[string]string{namespace: predicate},
	})
	if err != nil {
		return nil
	}
	return marking
}

// addAllMarkings appends every cached marking-definition to the event output.
// Markings are not registered in the identifier registry: relationship edges
// never target them.
func (ec *eventContext) addAllMarkings() {
	for _, tag := range ec.markings.order {
		ec.appendObject(ec.markings.byTag[tag], false)
	}
}
