package stix

import "strings"

// ObjectBase carries the fields shared by every STIX domain object.
type ObjectBase struct {
	Type              string    `json:"type"`
	ID                string    `json:"id"`
	Created           Timestamp `json:"created"`
	Modified          Timestamp `json:"modified"`
	CreatedByRef      string    `json:"created_by_ref,omitempty"`
	Labels            []string  `json:"labels,omitempty"`
	ObjectMarkingRefs []string  `json:"object_marking_refs,omitempty"`
}

func (c ObjectBase) GetID() string   { return c.ID }
func (c ObjectBase) GetType() string { return c.Type }

func (c ObjectBase) validate(objectType string) error {
	if c.Type != objectType {
		return invalid(objectType, "type", c.Type)
	}
	if !strings.HasPrefix(c.ID, objectType+"--") {
		return invalid(objectType, "id", c.ID)
	}
	return nil
}

// Base builds the shared SDO fields for an object of the given type.
func Base(objectType, uuid string, created, modified Timestamp) ObjectBase {
	return ObjectBase{
		Type:     objectType,
		ID:       MakeID(objectType, uuid),
		Created:  created,
		Modified: modified,
	}
}

// Identity is a STIX identity SDO.
type Identity struct {
	ObjectBase
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	IdentityClass string `json:"identity_class"`
}

var identityClasses = map[string]bool{
	"individual": true, "group": true, "organization": true, "class": true, "unknown": true,
}

// NewIdentity validates and returns an identity object.
func NewIdentity(id Identity) (*Identity, error) {
	if err := id.validate("identity"); err != nil {
		return nil, err
	}
	if id.Name == "" {
		return nil, invalid("identity", "name", id.Name)
	}
	if !identityClasses[id.IdentityClass] {
		return nil, invalid("identity", "identity_class", id.IdentityClass)
	}
	return &id, nil
}

// Indicator is a STIX indicator SDO carrying a boolean pattern expression.
type Indicator struct {
	ObjectBase
	Name            string           `json:"name,omitempty"`
	Description     string           `json:"description,omitempty"`
	Pattern         string           `json:"pattern"`
	ValidFrom       Timestamp        `json:"valid_from"`
	ValidUntil      *Timestamp       `json:"valid_until,omitempty"`
	KillChainPhases []KillChainPhase `json:"kill_chain_phases,omitempty"`
}

// NewIndicator validates and returns an indicator. The pattern must be a
// non-empty expression wrapped in one bracket pair.
func NewIndicator(ind Indicator) (*Indicator, error) {
	if err := ind.validate("indicator"); err != nil {
		return nil, err
	}
	if len(ind.Pattern) < 2 || !strings.HasPrefix(ind.Pattern, "[") || !strings.HasSuffix(ind.Pattern, "]") {
		return nil, invalid("indicator", "pattern", ind.Pattern)
	}
	return &ind, nil
}

// ObservedData is a STIX observed-data SDO carrying a graph of observable
// nodes keyed by sequential string handles.
type ObservedData struct {
	ObjectBase
	FirstObserved  Timestamp       `json:"first_observed"`
	LastObserved   Timestamp       `json:"last_observed"`
	NumberObserved int             `json:"number_observed"`
	Objects        map[string]Node `json:"objects"`
}

// Socket extension address/protocol family enumerations from the STIX 2.0
// network-traffic socket-ext definition.
var socketAddressFamilies = map[string]bool{
	"AF_UNSPEC": true, "AF_INET": true, "AF_IPX": true, "AF_APPLETALK": true,
	"AF_NETBIOS": true, "AF_INET6": true, "AF_IRDA": true, "AF_BTH": true,
}

var socketProtocolFamilies = map[string]bool{
	"PF_INET": true, "PF_IPX": true, "PF_APPLETALK": true, "PF_INET6": true,
	"PF_AX25": true, "PF_NETROM": true,
}

// NewObservedData validates and returns an observed-data object. Enumerated
// observable fields (network-traffic socket extension families) are checked
// so callers can run their repair path on rejection.
func NewObservedData(od ObservedData) (*ObservedData, error) {
	if err := od.validate("observed-data"); err != nil {
		return nil, err
	}
	if od.NumberObserved < 1 {
		return nil, invalid("observed-data", "number_observed", od.NumberObserved)
	}
	if len(od.Objects) == 0 {
		return nil, invalid("observed-data", "objects", od.Objects)
	}
	for _, node := range od.Objects {
		if node.Type() == "" {
			return nil, invalid("observed-data", "objects.type", node)
		}
		if err := validateSocketExt(node); err != nil {
			return nil, err
		}
	}
	return &od, nil
}

func validateSocketExt(node Node) error {
	if node.Type() != "network-traffic" {
		return nil
	}
	extensions, ok := node["extensions"].(map[string]any)
	if !ok {
		return nil
	}
	socket, ok := extensions["socket-ext"].(map[string]any)
	if !ok {
		return nil
	}
	if family, ok := socket["address_family"].(string); ok && !socketAddressFamilies[family] {
		return invalid("observed-data", "address_family", family)
	}
	if family, ok := socket["protocol_family"].(string); ok && !socketProtocolFamilies[family] {
		return invalid("observed-data", "protocol_family", family)
	}
	return nil
}

// Vulnerability is a STIX vulnerability SDO.
type Vulnerability struct {
	ObjectBase
	Name               string              `json:"name"`
	Description        string              `json:"description,omitempty"`
	ExternalReferences []ExternalReference `json:"external_references,omitempty"`
}

// NewVulnerability validates and returns a vulnerability object.
func NewVulnerability(v Vulnerability) (*Vulnerability, error) {
	if err := v.validate("vulnerability"); err != nil {
		return nil, err
	}
	if v.Name == "" {
		return nil, invalid("vulnerability", "name", v.Name)
	}
	return &v, nil
}

// AttackPattern is a STIX attack-pattern SDO.
type AttackPattern struct {
	ObjectBase
	Name               string              `json:"name"`
	Description        string              `json:"description,omitempty"`
	KillChainPhases    []KillChainPhase    `json:"kill_chain_phases,omitempty"`
	ExternalReferences []ExternalReference `json:"external_references,omitempty"`
	Extra              map[string]any      `json:"-"`
}

// NewAttackPattern validates and returns an attack-pattern object.
func NewAttackPattern(ap AttackPattern) (*AttackPattern, error) {
	if err := ap.validate("attack-pattern"); err != nil {
		return nil, err
	}
	if ap.Name == "" {
		return nil, invalid("attack-pattern", "name", ap.Name)
	}
	return &ap, nil
}

func (ap *AttackPattern) MarshalJSON() ([]byte, error) {
	type alias AttackPattern
	return marshalWithExtra((*alias)(ap), ap.Extra)
}

// CourseOfAction is a STIX course-of-action SDO.
type CourseOfAction struct {
	ObjectBase
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Extra       map[string]any `json:"-"`
}

// NewCourseOfAction validates and returns a course-of-action object.
func NewCourseOfAction(coa CourseOfAction) (*CourseOfAction, error) {
	if err := coa.validate("course-of-action"); err != nil {
		return nil, err
	}
	if coa.Name == "" {
		return nil, invalid("course-of-action", "name", coa.Name)
	}
	return &coa, nil
}

func (coa *CourseOfAction) MarshalJSON() ([]byte, error) {
	type alias CourseOfAction
	return marshalWithExtra((*alias)(coa), coa.Extra)
}

// IntrusionSet is a STIX intrusion-set SDO.
type IntrusionSet struct {
	ObjectBase
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
}

// NewIntrusionSet validates and returns an intrusion-set object.
func NewIntrusionSet(is IntrusionSet) (*IntrusionSet, error) {
	if err := is.validate("intrusion-set"); err != nil {
		return nil, err
	}
	if is.Name == "" {
		return nil, invalid("intrusion-set", "name", is.Name)
	}
	return &is, nil
}

// Malware is a STIX malware SDO.
type Malware struct {
	ObjectBase
	Name            string           `json:"name"`
	Description     string           `json:"description,omitempty"`
	KillChainPhases []KillChainPhase `json:"kill_chain_phases,omitempty"`
}

// NewMalware validates and returns a malware object.
func NewMalware(m Malware) (*Malware, error) {
	if err := m.validate("malware"); err != nil {
		return nil, err
	}
	if m.Name == "" {
		return nil, invalid("malware", "name", m.Name)
	}
	return &m, nil
}

// ThreatActor is a STIX threat-actor SDO.
type ThreatActor struct {
	ObjectBase
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
}

// NewThreatActor validates and returns a threat-actor object.
func NewThreatActor(ta ThreatActor) (*ThreatActor, error) {
	if err := ta.validate("threat-actor"); err != nil {
		return nil, err
	}
	if ta.Name == "" {
		return nil, invalid("threat-actor", "name", ta.Name)
	}
	return &ta, nil
}

// Tool is a STIX tool SDO.
type Tool struct {
	ObjectBase
	Name            string           `json:"name"`
	Description     string           `json:"description,omitempty"`
	KillChainPhases []KillChainPhase `json:"kill_chain_phases,omitempty"`
}

// NewTool validates and returns a tool object.
func NewTool(tool Tool) (*Tool, error) {
	if err := tool.validate("tool"); err != nil {
		return nil, err
	}
	if tool.Name == "" {
		return nil, invalid("tool", "name", tool.Name)
	}
	return &tool, nil
}

// Report is a STIX report SDO referencing every object produced for one event.
type Report struct {
	ObjectBase
	Name               string              `json:"name"`
	Published          Timestamp           `json:"published"`
	ObjectRefs         []string            `json:"object_refs"`
	ExternalReferences []ExternalReference `json:"external_references,omitempty"`
}

// NewReport validates and returns a report object.
func NewReport(r Report) (*Report, error) {
	if err := r.validate("report"); err != nil {
		return nil, err
	}
	if r.Name == "" {
		return nil, invalid("report", "name", r.Name)
	}
	if len(r.ObjectRefs) == 0 {
		return nil, invalid("report", "object_refs", r.ObjectRefs)
	}
	return &r, nil
}

// Relationship is a STIX relationship SRO.
type Relationship struct {
	ObjectBase
	RelationshipType string `json:"relationship_type"`
	SourceRef        string `json:"source_ref"`
	TargetRef        string `json:"target_ref"`
}

// NewRelationship validates and returns a relationship edge.
func NewRelationship(rel Relationship) (*Relationship, error) {
	if err := rel.validate("relationship"); err != nil {
		return nil, err
	}
	if rel.RelationshipType == "" {
		return nil, invalid("relationship", "relationship_type", rel.RelationshipType)
	}
	if rel.SourceRef == "" || rel.TargetRef == "" {
		return nil, invalid("relationship", "source_ref/target_ref", rel.SourceRef+"/"+rel.TargetRef)
	}
	return &rel, nil
}
