package translator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telhawk-systems/stixbridge/internal/models"
	"github.com/telhawk-systems/stixbridge/pkg/stix"
)

func testEvent(attrs ...models.Attribute) *models.Event {
	return &models.Event{
		UUID:             "5e8a2b3c-1111-4d5e-8f6a-7b8c9d0e1f2a",
		Info:             "incident report",
		Date:             "2020-10-25",
		Timestamp:        json.Number("1603642920"),
		PublishTimestamp: json.Number("1603642925"),
		Orgc: models.Org{
			Name: "CIRCL",
			UUID: "55f6ea5e-2c60-40e5-964f-47a8950d210f",
		},
		Attributes: attrs,
	}
}

func attr(uuid, attrType, category, value string, toIDS bool) models.Attribute {
	return models.Attribute{
		UUID:      uuid,
		Type:      attrType,
		Category:  category,
		Value:     value,
		ToIDS:     toIDS,
		Timestamp: json.Number("1603642920"),
	}
}

func findByType(objects []stix.Object, objectType string) []stix.Object {
	var found []stix.Object
	for _, obj := range objects {
		if obj.GetType() == objectType {
			found = append(found, obj)
		}
	}
	return found
}

func TestTranslateEventOrdering(t *testing.T) {
	tr := New(nil)
	event := testEvent(attr("a1b2c3d4-0001-4000-8000-000000000001", "ip-dst", "Network activity", "198.51.100.7", false))

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)
	require.Len(t, objects, 3)

	assert.Equal(t, "identity", objects[0].GetType())
	assert.Equal(t, "report", objects[1].GetType())
	assert.Equal(t, "observed-data", objects[2].GetType())

	report := objects[1].(*stix.Report)
	assert.Equal(t, "incident report", report.Name)
	assert.Contains(t, report.Labels, "Threat-Report")
	assert.Contains(t, report.Labels, `misp:tool="misp2stix2"`)
	assert.Equal(t, []string{objects[2].GetID()}, report.ObjectRefs)
}

func TestTranslateEventObservableAddress(t *testing.T) {
	tr := New(nil)
	event := testEvent(attr("a1b2c3d4-0002-4000-8000-000000000002", "ip-dst", "Network activity", "198.51.100.7", false))

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)

	observed := findByType(objects, "observed-data")
	require.Len(t, observed, 1)
	od := observed[0].(*stix.ObservedData)
	require.Contains(t, od.Objects, "0")
	assert.Equal(t, "ipv4-addr", od.Objects["0"].Type())
	assert.Equal(t, "198.51.100.7", od.Objects["0"]["value"])
	assert.Contains(t, od.Labels, `misp:type="ip-dst"`)
	assert.Contains(t, od.Labels, `misp:to_ids="False"`)
}

func TestTranslateEventIndicatorPattern(t *testing.T) {
	tr := New(nil)
	event := testEvent(attr("a1b2c3d4-0003-4000-8000-000000000003", "domain", "Network activity", "evil.example", true))

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)

	indicators := findByType(objects, "indicator")
	require.Len(t, indicators, 1)
	ind := indicators[0].(*stix.Indicator)
	assert.Equal(t, "[domain-name:value = 'evil.example']", ind.Pattern)
	require.Len(t, ind.KillChainPhases, 1)
	assert.Equal(t, "misp-category", ind.KillChainPhases[0].KillChainName)
	assert.Equal(t, "Network activity", ind.KillChainPhases[0].PhaseName)
}

func TestTranslateEventIPv6Address(t *testing.T) {
	tr := New(nil)
	event := testEvent(attr("a1b2c3d4-0004-4000-8000-000000000004", "ip-src", "Network activity", "2001:db8::1", true))

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)

	indicators := findByType(objects, "indicator")
	require.Len(t, indicators, 1)
	assert.Equal(t, "[ipv6-addr:value = '2001:db8::1']", indicators[0].(*stix.Indicator).Pattern)
}

func TestMarkingDeduplication(t *testing.T) {
	tr := New(nil)
	tagged := func(uuid, value string) models.Attribute {
		a := attr(uuid, "ip-dst", "Network activity", value, false)
		a.Tags = []models.Tag{{Name: "tlp:amber"}}
		return a
	}
	event := testEvent(
		tagged("a1b2c3d4-0005-4000-8000-000000000005", "198.51.100.1"),
		tagged("a1b2c3d4-0006-4000-8000-000000000006", "198.51.100.2"),
	)

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)

	markings := findByType(objects, "marking-definition")
	require.Len(t, markings, 1)
	assert.Equal(t, stix.TLPAmber.ID, markings[0].GetID())

	for _, obj := range findByType(objects, "observed-data") {
		od := obj.(*stix.ObservedData)
		assert.Equal(t, []string{stix.TLPAmber.ID}, od.ObjectMarkingRefs)
	}
}

func TestInvalidMarkingTagDropped(t *testing.T) {
	tr := New(nil)
	a := attr("a1b2c3d4-0007-4000-8000-000000000007", "ip-dst", "Network activity", "198.51.100.3", false)
	a.Tags = []models.Tag{{Name: "tlp:ultraviolet"}}
	event := testEvent(a)

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)

	assert.Empty(t, findByType(objects, "marking-definition"))
	od := findByType(objects, "observed-data")[0].(*stix.ObservedData)
	assert.Empty(t, od.ObjectMarkingRefs)
}

func TestGalaxyDeduplicationAndRelationships(t *testing.T) {
	tr := New(nil)
	galaxy := models.Galaxy{
		Type: "mitre-attack-pattern",
		Name: "Attack Pattern",
		Clusters: []models.GalaxyCluster{{
			UUID:    "d1e2f3a4-0001-4000-8000-00000000aaaa",
			Value:   "Spearphishing Attachment - T1193",
			TagName: `misp-galaxy:mitre-attack-pattern="Spearphishing Attachment - T1193"`,
		}},
	}
	first := attr("a1b2c3d4-0008-4000-8000-000000000008", "domain", "Network activity", "one.example", true)
	first.Galaxies = []models.Galaxy{galaxy}
	second := attr("a1b2c3d4-0009-4000-8000-000000000009", "domain", "Network activity", "two.example", true)
	second.Galaxies = []models.Galaxy{galaxy}
	event := testEvent(first, second)

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)

	patterns := findByType(objects, "attack-pattern")
	require.Len(t, patterns, 1, "same cluster must be emitted once")

	relationships := findByType(objects, "relationship")
	require.Len(t, relationships, 2, "every sighting keeps its edge")
	for _, obj := range relationships {
		rel := obj.(*stix.Relationship)
		assert.Equal(t, "indicates", rel.RelationshipType)
		assert.Equal(t, patterns[0].GetID(), rel.TargetRef)
	}
}

func TestEventGalaxyLinksReportWithoutRelationship(t *testing.T) {
	tr := New(nil)
	event := testEvent()
	event.Galaxies = []models.Galaxy{{
		Type: "threat-actor",
		Name: "Threat Actor",
		Clusters: []models.GalaxyCluster{{
			UUID:  "d1e2f3a4-0002-4000-8000-00000000bbbb",
			Value: "Sofacy",
			Meta:  models.ClusterMeta{Synonyms: []string{"APT28", "Fancy Bear"}},
		}},
	}}

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)

	actors := findByType(objects, "threat-actor")
	require.Len(t, actors, 1)
	assert.Equal(t, []string{"APT28", "Fancy Bear"}, actors[0].(*stix.ThreatActor).Aliases)

	// Edges whose source is the report stay implicit in the reference list.
	assert.Empty(t, findByType(objects, "relationship"))
	report := findByType(objects, "report")[0].(*stix.Report)
	assert.Contains(t, report.ObjectRefs, actors[0].GetID())
}

func TestObjectReferenceRelationship(t *testing.T) {
	tr := New(nil)
	event := testEvent()
	event.Objects = []models.Object{
		{
			UUID:         "b1b2b3b4-0001-4000-8000-000000000011",
			Name:         "url",
			MetaCategory: "network",
			Timestamp:    json.Number("1603642920"),
			Attributes: []models.Attribute{{
				UUID: "a1b2c3d4-0010-4000-8000-000000000010", Type: "url", ObjectRelation: "url",
				Value: "http://evil.example/payload", Timestamp: json.Number("1603642920"),
			}},
			References: []models.ObjectReference{
				{ReferencedUUID: "b1b2b3b4-0002-4000-8000-000000000012", RelationshipType: "resolves-to"},
				{ReferencedUUID: "00000000-dead-4000-8000-000000000000", RelationshipType: "related-to"},
			},
		},
		{
			UUID:         "b1b2b3b4-0002-4000-8000-000000000012",
			Name:         "domain-ip",
			MetaCategory: "network",
			Timestamp:    json.Number("1603642920"),
			Attributes: []models.Attribute{
				{UUID: "a1b2c3d4-0011-4000-8000-000000000011", Type: "domain", ObjectRelation: "domain",
					Value: "evil.example", Timestamp: json.Number("1603642920")},
			},
		},
	}

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)

	relationships := findByType(objects, "relationship")
	require.Len(t, relationships, 1, "the dangling reference must be dropped")
	rel := relationships[0].(*stix.Relationship)
	assert.Equal(t, "resolves-to", rel.RelationshipType)
	assert.Equal(t, "observed-data--b1b2b3b4-0001-4000-8000-000000000011", rel.SourceRef)
	assert.Equal(t, "observed-data--b1b2b3b4-0002-4000-8000-000000000012", rel.TargetRef)
}

func TestASAttribute(t *testing.T) {
	tr := New(nil)
	event := testEvent(attr("a1b2c3d4-0012-4000-8000-000000000012", "AS", "Network activity", "AS174", false))

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)

	od := findByType(objects, "observed-data")[0].(*stix.ObservedData)
	assert.Equal(t, "autonomous-system", od.Objects["0"].Type())
	assert.Equal(t, 174, od.Objects["0"]["number"])
}

func TestASAttributeIndicatorUnquotedNumber(t *testing.T) {
	tr := New(nil)
	event := testEvent(attr("a1b2c3d4-0013-4000-8000-000000000013", "AS", "Network activity", "AS174", true))

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)

	ind := findByType(objects, "indicator")[0].(*stix.Indicator)
	assert.Equal(t, "[autonomous-system:number = 174]", ind.Pattern)
}

func TestLinkAttributeBecomesExternalReference(t *testing.T) {
	tr := New(nil)
	link := attr("a1b2c3d4-0014-4000-8000-000000000014", "link", "External analysis", "https://blog.example/writeup", false)
	link.Comment = "vendor writeup"
	event := testEvent(
		link,
		attr("a1b2c3d4-0015-4000-8000-000000000015", "ip-dst", "Network activity", "198.51.100.9", false),
	)

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)

	report := findByType(objects, "report")[0].(*stix.Report)
	require.Len(t, report.ExternalReferences, 1)
	assert.Equal(t, "url - vendor writeup", report.ExternalReferences[0].SourceName)
	assert.Equal(t, "https://blog.example/writeup", report.ExternalReferences[0].URL)
}

func TestLonelyLinkPromotedToCustom(t *testing.T) {
	tr := New(nil)
	event := testEvent(attr("a1b2c3d4-0016-4000-8000-000000000016", "link", "External analysis", "https://blog.example/writeup", false))

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)

	customs := findByType(objects, "x-misp-object-link")
	require.Len(t, customs, 1)
	report := findByType(objects, "report")[0].(*stix.Report)
	assert.Equal(t, []string{customs[0].GetID()}, report.ObjectRefs)
	assert.Empty(t, report.ExternalReferences)
}

func TestUnknownAttributeTypeFallsBackToCustom(t *testing.T) {
	tr := New(nil)
	event := testEvent(attr("a1b2c3d4-0017-4000-8000-000000000017", "cortex", "External analysis", "report-blob", false))

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)

	customs := findByType(objects, "x-misp-object-cortex")
	require.Len(t, customs, 1)
	custom := customs[0].(*stix.Custom)
	assert.Equal(t, "report-blob", custom.Values["x_misp_value"])
	assert.Contains(t, custom.Labels, `misp:type="cortex"`)
}

func TestPersonAttributeBecomesIdentity(t *testing.T) {
	tr := New(nil)
	event := testEvent(attr("a1b2c3d4-0018-4000-8000-000000000018", "passenger-name", "Person", "John Doe", false))

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)

	identities := findByType(objects, "identity")
	require.Len(t, identities, 2, "org identity plus person identity")
	person := identities[1].(*stix.Identity)
	assert.Equal(t, "John Doe", person.Name)
	assert.Equal(t, "individual", person.IdentityClass)
}

func TestVulnerabilityAttribute(t *testing.T) {
	tr := New(nil)
	event := testEvent(attr("a1b2c3d4-0019-4000-8000-000000000019", "vulnerability", "Payload delivery", "CVE-2017-11882", false))

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)

	vulns := findByType(objects, "vulnerability")
	require.Len(t, vulns, 1)
	vuln := vulns[0].(*stix.Vulnerability)
	assert.Equal(t, "CVE-2017-11882", vuln.Name)
	require.Len(t, vuln.ExternalReferences, 1)
	assert.Equal(t, "cve", vuln.ExternalReferences[0].SourceName)
}

func TestIdentityReusedAcrossEvents(t *testing.T) {
	tr := New(nil)
	first := testEvent(attr("a1b2c3d4-0020-4000-8000-000000000020", "ip-dst", "Network activity", "198.51.100.4", false))
	second := testEvent(attr("a1b2c3d4-0021-4000-8000-000000000021", "ip-dst", "Network activity", "198.51.100.5", false))
	second.UUID = "5e8a2b3c-2222-4d5e-8f6a-7b8c9d0e1f2b"

	firstObjects, err := tr.TranslateEvent(context.Background(), first)
	require.NoError(t, err)
	secondObjects, err := tr.TranslateEvent(context.Background(), second)
	require.NoError(t, err)

	assert.Len(t, findByType(firstObjects, "identity"), 1)
	assert.Empty(t, findByType(secondObjects, "identity"), "second event reuses the org identity")

	report := findByType(secondObjects, "report")[0].(*stix.Report)
	assert.Equal(t, "identity--55f6ea5e-2c60-40e5-964f-47a8950d210f", report.CreatedByRef)
}

func TestEventTagsSplitIntoLabelsAndMarkings(t *testing.T) {
	tr := New(nil)
	event := testEvent(attr("a1b2c3d4-0022-4000-8000-000000000022", "ip-dst", "Network activity", "198.51.100.6", false))
	event.Tags = []models.Tag{{Name: "tlp:green"}, {Name: "osint:source-type=\"blog-post\""}}

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)

	report := findByType(objects, "report")[0].(*stix.Report)
	assert.Contains(t, report.Labels, "osint:source-type=\"blog-post\"")
	assert.Equal(t, []string{stix.TLPGreen.ID}, report.ObjectMarkingRefs)
}

func TestEventWithoutUUIDRejected(t *testing.T) {
	tr := New(nil)
	_, err := tr.TranslateEvent(context.Background(), &models.Event{})
	require.Error(t, err)
}

func TestCompositeFilenameHashAttribute(t *testing.T) {
	tr := New(nil)
	event := testEvent(attr("a1b2c3d4-0023-4000-8000-000000000023", "filename|sha256", "Payload delivery",
		"dropper.docm|6ccc0b67c87e5e9f1e1db9e0ef5fec3baed560d4ec1934fb99cccbbyd5e9a3e6", true))

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)

	ind := findByType(objects, "indicator")[0].(*stix.Indicator)
	assert.Contains(t, ind.Pattern, "file:name = 'dropper.docm'")
	assert.Contains(t, ind.Pattern, "file:hashes.'SHA-256' = ")
	assert.Contains(t, ind.Pattern, " AND ")
}

func TestPatternValueEscaping(t *testing.T) {
	tr := New(nil)
	event := testEvent(attr("a1b2c3d4-0024-4000-8000-000000000024", "filename", "Payload delivery", "it's a \"trap\".exe", true))

	objects, err := tr.TranslateEvent(context.Background(), event)
	require.NoError(t, err)

	ind := findByType(objects, "indicator")[0].(*stix.Indicator)
	assert.Contains(t, ind.Pattern, "##APOSTROPHE##")
	assert.Contains(t, ind.Pattern, "##QUOTE##")
	assert.NotContains(t, ind.Pattern, `"trap"`)
}

func TestStatementMarkingTag(t *testing.T) {
	mc := newMarkingCache()
	tag := "statement:Copyright 2020, Example Corp"

	refs := mc.handleTags([]string{tag, tag})
	require.Len(t, refs, 2)
	assert.Equal(t, refs[0], refs[1], "one marking per unique tag")

	marking := mc.byTag[tag]
	require.NotNil(t, marking)
	assert.Equal(t, refs[0], marking.ID)
	assert.Equal(t, "statement", marking.DefinitionType)
	assert.Equal(t, "Copyright 2020, Example Corp", marking.Definition["statement"])
	assert.Equal(t, []string{tag}, mc.order)
}

func TestUnrepresentableMarkingTagSkipped(t *testing.T) {
	mc := newMarkingCache()

	assert.Empty(t, mc.handleTags([]string{"osint"}), "tag without a namespace is no marking")
	assert.Empty(t, mc.handleTags([]string{`admiralty-scale:source-reliability="b"`}), "rejected definition type is dropped")
	assert.Empty(t, mc.order)
}

func TestGalaxyCollectionUUIDDecidesIdentity(t *testing.T) {
	tr := New(nil)
	galaxy := models.Galaxy{
		Type: "mitre-attack-pattern",
		Name: "Attack Pattern",
		Clusters: []models.GalaxyCluster{{
			UUID:           "d1e2f3a4-0005-4000-8000-00000000dddd",
			CollectionUUID: "c0113c71-0001-4000-8000-000000000001",
			Value:          "Spearphishing Link - T1192",
		}},
	}
	first := attr("a1b2c3d4-0010-4000-8000-000000000010", "domain", "Network activity", "three.example", true)
	first.Galaxies = []models.Galaxy{galaxy}
	second := attr("a1b2c3d4-0011-4000-8000-000000000011", "domain", "Network activity", "four.example", true)
	second.Galaxies = []models.Galaxy{galaxy}

	objects, err := tr.TranslateEvent(context.Background(), testEvent(first, second))
	require.NoError(t, err)

	patterns := findByType(objects, "attack-pattern")
	require.Len(t, patterns, 1)
	assert.Equal(t, "attack-pattern--c0113c71-0001-4000-8000-000000000001", patterns[0].GetID(),
		"the collection uuid names the cluster")

	relationships := findByType(objects, "relationship")
	require.Len(t, relationships, 2)
	for _, obj := range relationships {
		assert.Equal(t, patterns[0].GetID(), obj.(*stix.Relationship).TargetRef)
	}
}
