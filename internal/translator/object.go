package translator

import (
	"strings"

	"github.com/telhawk-systems/stixbridge/internal/metrics"
	"github.com/telhawk-systems/stixbridge/internal/models"
	"github.com/telhawk-systems/stixbridge/pkg/stix"
)

// translateObject routes one composite object. PE-family objects are held
// back for join resolution, SDO-shaped objects get their dedicated handlers,
// and everything else goes through the builder table with the custom wrapper
// as the last resort.
func (ec *eventContext) translateObject(obj *models.Object) error {
	switch obj.Name {
	case "pe", "pe-section":
		ec.holdObject(obj)
		return nil
	case "file":
		if hasPEReference(obj) {
			ec.holdObject(obj)
			ec.heldOrder = append(ec.heldOrder, obj.UUID)
			return nil
		}
	case "attack-pattern":
		return ec.addAttackPatternObject(obj)
	case "course-of-action":
		return ec.addCourseOfActionObject(obj)
	case "vulnerability":
		return ec.addVulnerabilityObject(obj)
	case "stix2-pattern":
		return ec.addPatternObject(obj)
	}

	builder, ok := objectBuilders[obj.Name]
	if !ok {
		return ec.objectCustom(obj)
	}
	if anyToIDS(obj.Attributes) {
		if err := ec.objectIndicator(obj, builder.pattern(obj)); err != nil {
			return ec.objectCustom(obj)
		}
		return nil
	}
	if err := ec.objectObservable(obj, builder.observable(obj)); err != nil {
		return ec.objectCustom(obj)
	}
	return nil
}

func (ec *eventContext) holdObject(obj *models.Object) {
	if ec.held[obj.Name] == nil {
		ec.held[obj.Name] = map[string]heldObject{}
	}
	ec.held[obj.Name][obj.UUID] = heldObject{toIDS: anyToIDS(obj.Attributes), object: obj}
}

// hasPEReference reports whether a file object links an executable structure
// through an includes edge.
func hasPEReference(obj *models.Object) bool {
	for _, ref := range obj.References {
		if peLinkRelations[ref.RelationshipType] && ref.Object != nil && ref.Object.Name == "pe" {
			return true
		}
	}
	return false
}

// parseObjectGalaxies registers galaxy clusters attached to a composite
// object's individual attributes against the object's produced identifier.
func (ec *eventContext) parseObjectGalaxies(obj *models.Object, sourceID string) {
	for i := range obj.Attributes {
		ec.parseGalaxies(obj.Attributes[i].Galaxies, sourceID)
	}
}

// relationValue returns the first attribute value carrying the given object
// relation.
func relationValue(obj *models.Object, relation string) (string, bool) {
	for i := range obj.Attributes {
		if obj.Attributes[i].ObjectRelation == relation {
			return obj.Attributes[i].Value, true
		}
	}
	return "", false
}

// objectLabels builds the provenance labels for a composite object.
func objectLabels(obj *models.Object, toIDS bool) []string {
	return []string{
		`misp:type="` + obj.Name + `"`,
		`misp:category="` + obj.MetaCategory + `"`,
		`misp:to_ids="` + capitalizedBool(toIDS) + `"`,
		"from_object",
	}
}

func (ec *eventContext) objectBase(kind string, obj *models.Object, toIDS bool) stix.ObjectBase {
	ts := recordTimestamp(obj.Timestamp)
	return stix.ObjectBase{
		Type:         kind,
		ID:           stix.MakeID(kind, obj.UUID),
		Created:      ts,
		Modified:     ts,
		CreatedByRef: ec.identityID,
		Labels:       objectLabels(obj, toIDS),
	}
}

func (ec *eventContext) objectIndicator(obj *models.Object, pattern string) error {
	ts := recordTimestamp(obj.Timestamp)
	validUntil := seenTimestamp(obj.LastSeen, ts)
	indicator, err := stix.NewIndicator(stix.Indicator{
		ObjectBase:      ec.objectBase("indicator", obj, true),
		Description:     obj.Description,
		Pattern:         pattern,
		ValidFrom:       seenTimestamp(obj.FirstSeen, ts),
		ValidUntil:      &validUntil,
		KillChainPhases: createKillChain(obj.MetaCategory),
	})
	if err != nil {
		return err
	}
	ec.appendObject(indicator, true)
	ec.parseObjectGalaxies(obj, indicator.ID)
	return nil
}

func (ec *eventContext) objectObservable(obj *models.Object, observable map[string]stix.Node) error {
	ts := recordTimestamp(obj.Timestamp)
	observed, err := stix.NewObservedData(stix.ObservedData{
		ObjectBase:     ec.objectBase("observed-data", obj, false),
		FirstObserved:  seenTimestamp(obj.FirstSeen, ts),
		LastObserved:   seenTimestamp(obj.LastSeen, ts),
		NumberObserved: 1,
		Objects:        observable,
	})
	if err != nil {
		// Enumeration rejections on the socket extension get one repair
		// attempt before giving up.
		if repaired, changed := repairSocketNodes(observable); changed {
			return ec.objectObservable(obj, repaired)
		}
		return err
	}
	ec.appendObject(observed, true)
	ec.parseObjectGalaxies(obj, observed.ID)
	return nil
}

// repairSocketNodes rewrites out-of-enumeration socket family values: the
// enum field falls back to AF_UNSPEC and the original text is preserved in a
// namespaced companion field. Returns changed=false when nothing was
// repairable, so the caller does not recurse forever.
func repairSocketNodes(observable map[string]stix.Node) (map[string]stix.Node, bool) {
	changed := false
	for _, node := range observable {
		if node.Type() != "network-traffic" {
			continue
		}
		extensions, ok := node["extensions"].(map[string]any)
		if !ok {
			continue
		}
		socket, ok := extensions["socket-ext"].(map[string]any)
		if !ok {
			continue
		}
		if family, ok := socket["address_family"].(string); ok && !isSocketAddressFamily(family) {
			socket["address_family"] = "AF_UNSPEC"
			node["x_misp_text_address_family"] = family
			changed = true
		}
		if family, ok := socket["protocol_family"].(string); ok && !isSocketProtocolFamily(family) {
			delete(socket, "protocol_family")
			node["x_misp_text_domain_family"] = family
			changed = true
		}
	}
	return observable, changed
}

func isSocketAddressFamily(v string) bool {
	switch v {
	case "AF_UNSPEC", "AF_INET", "AF_IPX", "AF_APPLETALK", "AF_NETBIOS", "AF_INET6", "AF_IRDA", "AF_BTH":
		return true
	}
	return false
}

func isSocketProtocolFamily(v string) bool {
	switch v {
	case "PF_INET", "PF_IPX", "PF_APPLETALK", "PF_INET6", "PF_AX25", "PF_NETROM":
		return true
	}
	return false
}

// addPatternObject emits a ready-made pattern expression. These objects are
// always indicators, whatever their to_ids flags say.
func (ec *eventContext) addPatternObject(obj *models.Object) error {
	pattern, ok := relationValue(obj, "stix2-pattern")
	if !ok {
		return ec.objectCustom(obj)
	}
	if !strings.HasPrefix(pattern, "[") {
		pattern = "[" + pattern + "]"
	}
	if err := ec.objectIndicator(obj, pattern); err != nil {
		return ec.objectCustom(obj)
	}
	return nil
}

func (ec *eventContext) addAttackPatternObject(obj *models.Object) error {
	ap := stix.AttackPattern{
		ObjectBase: ec.objectBase("attack-pattern", obj, anyToIDS(obj.Attributes)),
		Extra:      map[string]any{},
	}
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		switch attr.ObjectRelation {
		case "name":
			ap.Name = attr.Value
		case "summary":
			ap.Description = attr.Value
		case "id":
			ap.ExternalReferences = append(ap.ExternalReferences, stix.ExternalReference{
				SourceName: "capec",
				ExternalID: "CAPEC-" + attr.Value,
			})
		default:
			ap.Extra[customFieldName(attr.Type, attr.ObjectRelation)] = attr.Value
		}
	}
	built, err := stix.NewAttackPattern(ap)
	if err != nil {
		return ec.objectCustom(obj)
	}
	ec.appendObject(built, true)
	ec.parseObjectGalaxies(obj, built.ID)
	return nil
}

func (ec *eventContext) addCourseOfActionObject(obj *models.Object) error {
	coa := stix.CourseOfAction{
		ObjectBase: ec.objectBase("course-of-action", obj, anyToIDS(obj.Attributes)),
		Extra:      map[string]any{},
	}
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		switch attr.ObjectRelation {
		case "name":
			coa.Name = attr.Value
		case "description":
			coa.Description = attr.Value
		default:
			coa.Extra[customFieldName(attr.Type, attr.ObjectRelation)] = attr.Value
		}
	}
	built, err := stix.NewCourseOfAction(coa)
	if err != nil {
		return ec.objectCustom(obj)
	}
	ec.appendObject(built, true)
	ec.parseObjectGalaxies(obj, built.ID)
	return nil
}

func (ec *eventContext) addVulnerabilityObject(obj *models.Object) error {
	vuln := stix.Vulnerability{
		ObjectBase: ec.objectBase("vulnerability", obj, anyToIDS(obj.Attributes)),
	}
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		switch attr.ObjectRelation {
		case "id":
			vuln.Name = attr.Value
			vuln.ExternalReferences = append(vuln.ExternalReferences, stix.ExternalReference{
				SourceName: "cve",
				ExternalID: attr.Value,
			})
		case "summary", "description":
			if vuln.Description == "" {
				vuln.Description = attr.Value
			}
		}
	}
	built, err := stix.NewVulnerability(vuln)
	if err != nil {
		return ec.objectCustom(obj)
	}
	ec.appendObject(built, true)
	ec.parseObjectGalaxies(obj, built.ID)
	return nil
}

// objectCustom wraps an object with no representable mapping. Every attribute
// survives as a namespaced field; repeated relations collect into a list.
func (ec *eventContext) objectCustom(obj *models.Object) error {
	metrics.FallbackObjects.Inc()
	kind := "x-misp-object-" + normalizeTypeName(obj.Name)
	fields := map[string]any{}
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		key := customFieldName(attr.Type, attr.ObjectRelation)
		switch existing := fields[key].(type) {
		case nil:
			fields[key] = attr.Value
		case string:
			fields[key] = []string{existing, attr.Value}
		case []string:
			fields[key] = append(existing, attr.Value)
		}
	}
	ts := recordTimestamp(obj.Timestamp)
	custom, err := stix.NewCustom(stix.Custom{
		ObjectBase: stix.ObjectBase{
			Type:         kind,
			ID:           kind + "--" + obj.UUID,
			Created:      ts,
			Modified:     ts,
			CreatedByRef: ec.identityID,
			Labels:       objectLabels(obj, anyToIDS(obj.Attributes)),
		},
		Category: obj.MetaCategory,
		Comment:  obj.Comment,
		Values:   map[string]any{"x_misp_values": fields},
	})
	if err != nil {
		return err
	}
	ec.appendObject(custom, true)
	ec.parseObjectGalaxies(obj, custom.ID)
	return nil
}
