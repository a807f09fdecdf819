package translator

import (
	"github.com/telhawk-systems/stixbridge/internal/metrics"
	"github.com/telhawk-systems/stixbridge/internal/models"
	"github.com/telhawk-systems/stixbridge/pkg/stix"
)

// translateAttribute routes one attribute to its handler. Types with no
// specific mapping fall back to the category-seeded generic handlers:
// Person-category attributes become identities, everything else a custom
// wrapper. Translation is total: only a custom wrapper construction failure
// propagates.
func (ec *eventContext) translateAttribute(attr *models.Attribute) error {
	switch attr.Type {
	case "link":
		ec.links = append(ec.links, *attr)
		return nil
	case "vulnerability":
		return ec.addVulnerabilityAttribute(attr)
	case "AS":
		return ec.addASAttribute(attr)
	}

	if _, ok := attributeBuilders[attr.Type]; ok {
		if err := ec.handleUsualType(attr); err != nil {
			// Local fallback: a rejected typed object never aborts the event.
			return ec.addCustom(attr)
		}
		return nil
	}

	if attr.Category == "Person" {
		return ec.addPersonIdentity(attr)
	}
	return ec.addCustom(attr)
}

func (ec *eventContext) handleUsualType(attr *models.Attribute) error {
	if attr.ToIDS {
		return ec.addIndicator(attr, attributeBuilders[attr.Type].pattern(attr.Value, attr.Data))
	}
	return ec.addObservedData(attr, attributeBuilders[attr.Type].observable(attr.Value, attr.Data))
}

// createLabels builds the traceability labels for an attribute and splits its
// tags into plain labels and tlp-style marking tags.
func createLabels(attr *models.Attribute) (labels []string, markingTags []string) {
	labels = []string{
		`misp:type="` + attr.Type + `"`,
		`misp:category="` + attr.Category + `"`,
		`misp:to_ids="` + capitalizedBool(attr.ToIDS) + `"`,
	}
	for _, tag := range attr.Tags {
		if isTLPTag(tag.Name) {
			markingTags = append(markingTags, tag.Name)
		} else {
			labels = append(labels, tag.Name)
		}
	}
	return labels, markingTags
}

// capitalizedBool renders booleans the way the MISP export does.
func capitalizedBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func createKillChain(category string) []stix.KillChainPhase {
	return []stix.KillChainPhase{{KillChainName: killChainName, PhaseName: category}}
}

func (ec *eventContext) attributeBase(kind string, attr *models.Attribute) stix.ObjectBase {
	ts := recordTimestamp(attr.Timestamp)
	labels, markingTags := createLabels(attr)
	return stix.ObjectBase{
		Type:              kind,
		ID:                stix.MakeID(kind, attr.UUID),
		Created:           ts,
		Modified:          ts,
		CreatedByRef:      ec.identityID,
		Labels:            labels,
		ObjectMarkingRefs: ec.markings.handleTags(markingTags),
	}
}

func (ec *eventContext) addIndicator(attr *models.Attribute, pattern string) error {
	indicatorID := stix.MakeID("indicator", attr.UUID)
	ec.parseGalaxies(attr.Galaxies, indicatorID)
	ts := recordTimestamp(attr.Timestamp)
	validUntil := seenTimestamp(attr.LastSeen, ts)
	indicator, err := stix.NewIndicator(stix.Indicator{
		ObjectBase:      ec.attributeBase("indicator", attr),
		Description:     attr.Comment,
		Pattern:         pattern,
		ValidFrom:       seenTimestamp(attr.FirstSeen, ts),
		ValidUntil:      &validUntil,
		KillChainPhases: createKillChain(attr.Category),
	})
	if err != nil {
		return err
	}
	ec.appendObject(indicator, true)
	return nil
}

func (ec *eventContext) addObservedData(attr *models.Attribute, observable map[string]stix.Node) error {
	observedDataID := stix.MakeID("observed-data", attr.UUID)
	ec.parseGalaxies(attr.Galaxies, observedDataID)
	ts := recordTimestamp(attr.Timestamp)
	observed, err := stix.NewObservedData(stix.ObservedData{
		ObjectBase:     ec.attributeBase("observed-data", attr),
		FirstObserved:  seenTimestamp(attr.FirstSeen, ts),
		LastObserved:   seenTimestamp(attr.LastSeen, ts),
		NumberObserved: 1,
		Objects:        observable,
	})
	if err != nil {
		return err
	}
	ec.appendObject(observed, true)
	return nil
}

// addASAttribute handles autonomous-system attributes, whose numeric value
// may hide behind an "ASxxxx" display form or live in the comment field.
func (ec *eventContext) addASAttribute(attr *models.Attribute) error {
	number, ok := parseASNumber(attr.Value, attr.Comment)
	if !ok {
		return ec.addCustom(attr)
	}
	if attr.ToIDS {
		pattern := wrapPattern([]string{clause("autonomous-system:number", number)})
		if err := ec.addIndicator(attr, pattern); err != nil {
			return ec.addCustom(attr)
		}
		return nil
	}
	observable := single(stix.Node{"type": "autonomous-system", "number": number})
	if err := ec.addObservedData(attr, observable); err != nil {
		return ec.addCustom(attr)
	}
	return nil
}

func (ec *eventContext) addVulnerabilityAttribute(attr *models.Attribute) error {
	labels, markingTags := createLabels(attr)
	ts := recordTimestamp(attr.Timestamp)
	ec.parseGalaxies(attr.Galaxies, stix.MakeID("vulnerability", attr.UUID))
	vulnerability, err := stix.NewVulnerability(stix.Vulnerability{
		ObjectBase: stix.ObjectBase{
			Type:              "vulnerability",
			ID:                stix.MakeID("vulnerability", attr.UUID),
			Created:           ts,
			Modified:          ts,
			CreatedByRef:      ec.identityID,
			Labels:            labels,
			ObjectMarkingRefs: ec.markings.handleTags(markingTags),
		},
		Name: attr.Value,
		ExternalReferences: []stix.ExternalReference{
			{SourceName: "cve", ExternalID: attr.Value},
		},
	})
	if err != nil {
		return ec.addCustom(attr)
	}
	ec.appendObject(vulnerability, true)
	return nil
}

func (ec *eventContext) addPersonIdentity(attr *models.Attribute) error {
	ec.parseGalaxies(attr.Galaxies, stix.MakeID("identity", attr.UUID))
	identity, err := stix.NewIdentity(stix.Identity{
		ObjectBase:    ec.attributeBase("identity", attr),
		Name:          attr.Value,
		Description:   attr.Comment,
		IdentityClass: "individual",
	})
	if err != nil {
		return ec.addCustom(attr)
	}
	ec.appendObject(identity, true)
	return nil
}

// addCustom emits the universal fallback wrapper for an attribute. It accepts
// any well-formed input record.
func (ec *eventContext) addCustom(attr *models.Attribute) error {
	metrics.FallbackObjects.Inc()
	kind := "x-misp-object-" + normalizeTypeName(attr.Type)
	labels, markingTags := createLabels(attr)
	ts := recordTimestamp(attr.Timestamp)
	ec.parseGalaxies(attr.Galaxies, kind+"--"+attr.UUID)
	values := map[string]any{"x_misp_value": attr.Value}
	custom, err := stix.NewCustom(stix.Custom{
		ObjectBase: stix.ObjectBase{
			Type:              kind,
			ID:                kind + "--" + attr.UUID,
			Created:           ts,
			Modified:          ts,
			CreatedByRef:      ec.identityID,
			Labels:            labels,
			ObjectMarkingRefs: ec.markings.handleTags(markingTags),
		},
		Category: attr.Category,
		Comment:  attr.Comment,
		Values:   values,
	})
	if err != nil {
		return err
	}
	ec.appendObject(custom, true)
	return nil
}
