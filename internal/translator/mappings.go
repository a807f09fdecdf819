package translator

import "github.com/telhawk-systems/stixbridge/pkg/stix"

// Static field dictionaries. These tables are fixed, type-specific data: each
// maps a MISP attribute type or object relation to its STIX target field.

// hashFeatures maps hash relation names to STIX hash dictionary keys.
var hashFeatures = map[string]string{
	"md5":          "MD5",
	"sha1":         "SHA-1",
	"sha224":       "SHA-224",
	"sha256":       "SHA-256",
	"sha384":       "SHA-384",
	"sha512":       "SHA-512",
	"sha512/224":   "SHA-512/224",
	"sha512/256":   "SHA-512/256",
	"ssdeep":       "ssdeep",
	"authentihash": "AUTHENTIHASH",
	"imphash":      "IMPHASH",
	"tlsh":         "TLSH",
}

// isHashType reports whether a relation names a hash carried in a hashes
// dictionary (PE sections keep the raw relation as the key).
func isHashType(relation string) bool {
	_, ok := hashFeatures[relation]
	return ok
}

// fileMapping maps file object relations to file observable fields.
var fileMapping = map[string]string{
	"md5":           "MD5",
	"sha1":          "SHA-1",
	"sha224":        "SHA-224",
	"sha256":        "SHA-256",
	"sha384":        "SHA-384",
	"sha512":        "SHA-512",
	"ssdeep":        "ssdeep",
	"size-in-bytes": "size",
	"mime-type":     "mime_type",
}

// peMapping maps pe object relations to windows-pebinary-ext fields.
var peMapping = map[string]string{
	"type":            "pe_type",
	"imphash":         "imphash",
	"number-sections": "number_of_sections",
}

// peSectionMapping maps pe-section relations to windows-pebinary section
// fields.
var peSectionMapping = map[string]string{
	"name":          "name",
	"size-in-bytes": "size",
	"entropy":       "entropy",
}

// peExtensionKey is the file extension namespace the PE structure lives under.
const peExtensionKey = "windows-pebinary-ext"

// regkeyMapping maps registry-key relations to windows-registry-key fields.
var regkeyMapping = map[string]string{
	"key":           "key",
	"last-modified": "modified",
	"name":          "name",
	"data":          "data",
	"data-type":     "data_type",
}

// regkeyValueRelations marks the registry-key relations that live under the
// values list rather than on the key itself.
var regkeyValueRelations = map[string]bool{
	"name":      true,
	"data":      true,
	"data-type": true,
}

// processMapping maps process relations to process observable fields.
var processMapping = map[string]string{
	"name":          "name",
	"pid":           "pid",
	"creation-time": "created",
	"command-line":  "command_line",
	"args":          "arguments",
	"hidden":        "is_hidden",
}

// networkTrafficMapping maps network relations to network-traffic fields.
var networkTrafficMapping = map[string]string{
	"src-port":       "src_port",
	"dst-port":       "dst_port",
	"address-family": "address_family",
	"domain-family":  "protocol_family",
}

// ipPortMapping maps ip-port relations to network-traffic fields.
var ipPortMapping = map[string]string{
	"dst-port":   "dst_port",
	"src-port":   "src_port",
	"first-seen": "start",
	"last-seen":  "end",
}

// asnMapping maps asn relations to autonomous-system fields.
var asnMapping = map[string]string{
	"asn":         "number",
	"description": "name",
}

// credentialMapping maps credential relations to user-account fields.
var credentialMapping = map[string]string{
	"username": "user_id",
	"password": "credential",
}

// domainIPMapping maps domain-ip relations to domain-name pattern fields.
var domainIPMapping = map[string]string{
	"domain": "value",
	"ip-dst": "resolves_to_refs[*].value",
	"ip-src": "resolves_to_refs[*].value",
}

// userAccountMapping maps user-account relations to user-account fields.
var userAccountMapping = map[string]string{
	"username":     "account_login",
	"user-id":      "user_id",
	"account-type": "account_type",
	"display-name": "display_name",
	"disabled":     "is_disabled",
	"password":     "credential",
	"last_changed": "credential_last_changed",
}

// unixAccountExtensionMapping maps user-account relations to unix-account-ext
// fields.
var unixAccountExtensionMapping = map[string]string{
	"group":    "groups",
	"group-id": "gid",
	"home_dir": "home_dir",
	"shell":    "shell",
}

// x509Mapping maps x509 relations to x509-certificate fields.
var x509Mapping = map[string]string{
	"issuer":                "issuer",
	"serial-number":         "serial_number",
	"subject":               "subject",
	"version":               "version",
	"validity-not-before":   "validity_not_before",
	"validity-not-after":    "validity_not_after",
	"pubkey-info-algorithm": "subject_public_key_algorithm",
	"pubkey-info-exponent":  "subject_public_key_exponent",
	"pubkey-info-modulus":   "subject_public_key_modulus",
}

// x509FingerprintRelations maps fingerprint relations to hash keys.
var x509FingerprintRelations = map[string]string{
	"x509-fingerprint-md5":    "MD5",
	"x509-fingerprint-sha1":   "SHA-1",
	"x509-fingerprint-sha256": "SHA-256",
}

// emailFieldMapping maps email relations to email-message fields. Address and
// attachment relations are handled structurally by the builders.
var emailFieldMapping = map[string]string{
	"subject":    "subject",
	"send-date":  "date",
	"message-id": "message_id",
}

// portProtocols infers a transport protocol from well-known port numbers.
// Ports with no entry keep the baseline transport only.
var portProtocols = map[string]string{
	"21":   "ftp",
	"22":   "ssh",
	"23":   "telnet",
	"25":   "smtp",
	"53":   "dns",
	"80":   "http",
	"110":  "pop3",
	"123":  "ntp",
	"143":  "imap",
	"443":  "https",
	"465":  "smtps",
	"993":  "imaps",
	"995":  "pop3s",
	"8080": "http",
}

// baselineProtocol is used when no port-derived protocol matches.
const baselineProtocol = "tcp"

// tlpMarkings maps tlp: tags to the canonical predefined marking objects.
var tlpMarkings = map[string]*stix.MarkingDefinition{
	"tlp:white": stix.TLPWhite,
	"tlp:green": stix.TLPGreen,
	"tlp:amber": stix.TLPAmber,
	"tlp:red":   stix.TLPRed,
}

// Galaxy taxonomy families, keyed by family tag, mapped to the produced STIX
// object kind.
var galaxyFamilies = map[string]string{
	"branded-vulnerability": "vulnerability",

	"mitre-attack-pattern":                   "attack-pattern",
	"mitre-enterprise-attack-attack-pattern": "attack-pattern",
	"mitre-mobile-attack-attack-pattern":     "attack-pattern",
	"mitre-pre-attack-attack-pattern":        "attack-pattern",

	"mitre-course-of-action":                   "course-of-action",
	"mitre-enterprise-attack-course-of-action": "course-of-action",
	"mitre-mobile-attack-course-of-action":     "course-of-action",

	"mitre-intrusion-set":                   "intrusion-set",
	"mitre-enterprise-attack-intrusion-set": "intrusion-set",
	"mitre-mobile-attack-intrusion-set":     "intrusion-set",
	"mitre-pre-attack-intrusion-set":        "intrusion-set",

	"android":                        "malware",
	"banker":                         "malware",
	"stealer":                        "malware",
	"backdoor":                       "malware",
	"ransomware":                     "malware",
	"mitre-malware":                  "malware",
	"mitre-enterprise-attack-malware": "malware",
	"mitre-mobile-attack-malware":     "malware",

	"threat-actor":             "threat-actor",
	"microsoft-activity-group": "threat-actor",

	"botnet":                       "tool",
	"rat":                          "tool",
	"exploit-kit":                  "tool",
	"tds":                          "tool",
	"tool":                         "tool",
	"mitre-tool":                   "tool",
	"mitre-enterprise-attack-tool": "tool",
	"mitre-mobile-attack-tool":     "tool",
}

// relationshipSpecs maps (source kind, target kind) to the relationship label
// for defined galaxy edges. Unknown pairs default to "has".
var relationshipSpecs = map[string]map[string]string{
	"attack-pattern": {
		"malware":       "uses",
		"tool":          "uses",
		"vulnerability": "targets",
	},
	"course-of-action": {
		"attack-pattern": "mitigates",
		"malware":        "mitigates",
		"tool":           "mitigates",
		"vulnerability":  "mitigates",
	},
	"indicator": {
		"attack-pattern": "indicates",
		"intrusion-set":  "indicates",
		"malware":        "indicates",
		"threat-actor":   "indicates",
		"tool":           "indicates",
	},
	"intrusion-set": {
		"attack-pattern": "uses",
		"malware":        "uses",
		"tool":           "uses",
		"vulnerability":  "targets",
	},
	"malware": {
		"attack-pattern": "uses",
		"tool":           "uses",
		"vulnerability":  "targets",
	},
	"threat-actor": {
		"attack-pattern": "uses",
		"intrusion-set":  "attributed-to",
		"malware":        "uses",
		"tool":           "uses",
		"vulnerability":  "targets",
	},
	"tool": {
		"vulnerability": "targets",
	},
}

// defaultRelationship labels edges with no table entry.
const defaultRelationship = "has"

// Report provenance labels attached to every produced report.
var reportLabels = []string{"Threat-Report", `misp:tool="misp2stix2"`}

// killChainName is the kill-chain namespace used for MISP categories.
const killChainName = "misp-category"

// Relationship types that link a file object to its embedded pe object.
var peLinkRelations = map[string]bool{
	"includes":    true,
	"included-in": true,
}
