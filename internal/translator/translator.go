// Package translator converts MISP events into STIX 2.0 object graphs.
//
// Translation of one event is a strictly sequential two-stage pipeline:
// stage 1 classifies attributes and objects, deferring the file/pe/pe-section
// family into a holding index; stage 2 resolves the held joins, galaxy
// references and relationship edges once every sibling record has been seen.
// All caches live on an explicit per-event context value and never leak
// across events.
package translator

import (
	"context"
	"fmt"

	"github.com/telhawk-systems/stixbridge/internal/logging"
	"github.com/telhawk-systems/stixbridge/internal/models"
	"github.com/telhawk-systems/stixbridge/pkg/stix"
)

// Translator drives event translation. The only state that survives an event
// is the set of organization UUIDs whose identity object was already built,
// so repeated events from one org share a single identity.
type Translator struct {
	logger   *logging.Logger
	seenOrgs map[string]bool
}

// New returns a Translator. A nil logger falls back to the default.
func New(logger *logging.Logger) *Translator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Translator{
		logger:   logger,
		seenOrgs: map[string]bool{},
	}
}

// definedEdge links a produced object to a galaxy cluster object.
type definedEdge struct {
	sourceID string // full STIX id
	targetID string // full STIX id of the cluster object
}

// pendingEdge is an object-to-object reference whose endpoints are raw source
// UUIDs, resolved through the identifier registry after stage 1.
type pendingEdge struct {
	sourceUUID       string
	targetUUID       string
	relationshipType string
}

// heldObject is a deferred file/pe/pe-section record awaiting join
// resolution.
type heldObject struct {
	toIDS  bool
	object *models.Object
}

// eventContext carries every per-event cache: the identifier registry, the
// marking cache, the galaxy-seen set and the deferred-object index.
type eventContext struct {
	event      *models.Event
	identityID string
	reportID   string
	timestamp  stix.Timestamp

	objects    []stix.Object
	objectRefs []string
	ids        map[string]string
	links      []models.Attribute
	markings   *markingCache
	galaxySeen map[string]bool
	defined    []definedEdge
	toDefine   []pendingEdge

	held      map[string]map[string]heldObject
	heldOrder []string // file UUIDs in discovery order
}

func newEventContext(event *models.Event) *eventContext {
	return &eventContext{
		event:      event,
		reportID:   stix.MakeID("report", event.UUID),
		timestamp:  recordTimestamp(event.Timestamp),
		ids:        map[string]string{},
		markings:   newMarkingCache(),
		galaxySeen: map[string]bool{},
		held:       map[string]map[string]heldObject{},
	}
}

// appendObject collects a produced object and its reference. When register is
// true the source UUID is recorded in the identifier registry for later
// relationship resolution.
func (ec *eventContext) appendObject(obj stix.Object, register bool) {
	ec.objects = append(ec.objects, obj)
	ec.objectRefs = append(ec.objectRefs, obj.GetID())
	if register {
		if kind, uuid, ok := splitStixID(obj.GetID()); ok {
			ec.ids[uuid] = kind
		}
	}
}

// TranslateEvent translates one event into its ordered object list: the
// report, the identity, and every produced SDO, SRO and marking.
func (t *Translator) TranslateEvent(ctx context.Context, event *models.Event) ([]stix.Object, error) {
	if event == nil || event.UUID == "" {
		return nil, fmt.Errorf("translator: event without uuid")
	}
	_ = ctx

	ec := newEventContext(event)
	identityPos, err := t.setIdentity(ec)
	if err != nil {
		return nil, fmt.Errorf("translator: event %s: %w", event.UUID, err)
	}

	for i := range event.Attributes {
		if err := ec.translateAttribute(&event.Attributes[i]); err != nil {
			return nil, fmt.Errorf("translator: event %s attribute %s: %w", event.UUID, event.Attributes[i].UUID, err)
		}
	}

	for i := range event.Objects {
		obj := &event.Objects[i]
		if obj.Name == "original-imported-file" {
			continue
		}
		if err := ec.translateObject(obj); err != nil {
			return nil, fmt.Errorf("translator: event %s object %s: %w", event.UUID, obj.UUID, err)
		}
		if len(obj.References) > 0 {
			for _, ref := range obj.References {
				ec.toDefine = append(ec.toDefine, pendingEdge{
					sourceUUID:       obj.UUID,
					targetUUID:       ref.ReferencedUUID,
					relationshipType: ref.RelationshipType,
				})
			}
		}
	}

	if err := ec.resolveHeld(); err != nil {
		return nil, fmt.Errorf("translator: event %s: %w", event.UUID, err)
	}

	for i := range event.Galaxies {
		ec.parseGalaxy(&event.Galaxies[i], ec.reportID)
	}

	report, err := ec.buildReport()
	if err != nil {
		return nil, fmt.Errorf("translator: event %s report: %w", event.UUID, err)
	}

	// The report mirrors the identity's insertion position so consumers see
	// it at the head of the event's objects.
	objects := make([]stix.Object, 0, len(ec.objects)+1)
	objects = append(objects, ec.objects[:identityPos]...)
	objects = append(objects, report)
	objects = append(objects, ec.objects[identityPos:]...)

	t.logger.Debug("event translated",
		"event_uuid", event.UUID,
		"objects", len(objects),
	)
	return objects, nil
}

// setIdentity builds or locates the event organization's identity object.
// Returns the number of objects the identity contributed (0 when the org was
// already known from a previous event).
func (t *Translator) setIdentity(ec *eventContext) (int, error) {
	org := ec.event.Orgc
	ec.identityID = stix.MakeID("identity", org.UUID)
	if t.seenOrgs[org.UUID] {
		return 0, nil
	}
	identity, err := stix.NewIdentity(stix.Identity{
		ObjectBase: stix.ObjectBase{
			Type:     "identity",
			ID:       ec.identityID,
			Created:  ec.timestamp,
			Modified: ec.timestamp,
		},
		Name:          org.Name,
		IdentityClass: "organization",
	})
	if err != nil {
		return 0, err
	}
	ec.objects = append(ec.objects, identity)
	t.seenOrgs[org.UUID] = true
	return 1, nil
}

// splitStixID splits "kind--uuid" identifiers.
func splitStixID(id string) (kind, uuid string, ok bool) {
	for i := 0; i+1 < len(id); i++ {
		if id[i] == '-' && id[i+1] == '-' {
			return id[:i], id[i+2:], true
		}
	}
	return "", "", false
}

// buildReport assembles the event report: provenance labels, tag-derived
// markings, external links, all deferred markings and relationships, and the
// full reference list.
func (ec *eventContext) buildReport() (*stix.Report, error) {
	// A link attribute is promoted into a custom wrapper when nothing else
	// was produced, so the event is never empty.
	if len(ec.objectRefs) == 0 && len(ec.links) > 0 {
		if err := ec.addCustom(&ec.links[0]); err != nil {
			return nil, err
		}
		ec.links = ec.links[1:]
	}

	var external []stix.ExternalReference
	for _, link := range ec.links {
		source := "url"
		if link.Comment != "" {
			source += " - " + link.Comment
		}
		external = append(external, stix.ExternalReference{SourceName: source, URL: link.Value})
	}

	labels := append([]string{}, reportLabels...)
	var markingTags []string
	for _, tag := range ec.event.Tags {
		if isTLPTag(tag.Name) {
			markingTags = append(markingTags, tag.Name)
		} else {
			labels = append(labels, tag.Name)
		}
	}
	markingRefs := ec.markings.handleTags(markingTags)

	ec.addAllMarkings()
	ec.addAllRelationships()

	report := stix.Report{
		ObjectBase: stix.ObjectBase{
			Type:              "report",
			ID:                ec.reportID,
			Created:           dateTimestamp(ec.event.Date, ec.timestamp),
			Modified:          ec.timestamp,
			CreatedByRef:      ec.identityID,
			Labels:            labels,
			ObjectMarkingRefs: markingRefs,
		},
		Name:               ec.event.Info,
		Published:          recordTimestamp(ec.event.PublishTimestamp),
		ObjectRefs:         ec.objectRefs,
		ExternalReferences: external,
	}
	return stix.NewReport(report)
}
