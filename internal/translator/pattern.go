package translator

import (
	"strconv"
	"strings"

	"github.com/telhawk-systems/stixbridge/internal/models"
)

// Pattern builders render the indicator expression for one composite object.
// Each clause targets the same field the observable builder would fill, so an
// object flips between the two forms purely on its to_ids flags.

func asnObjectPattern(obj *models.Object) string {
	var clauses []string
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		relation := attr.ObjectRelation
		if relation == "asn" {
			if n, ok := leadingASNumber(attr.Value); ok {
				clauses = append(clauses, clause("autonomous-system:"+asnMapping[relation], n))
			}
			continue
		}
		if field, ok := asnMapping[relation]; ok {
			clauses = append(clauses, clause("autonomous-system:"+field, attr.Value))
		} else {
			clauses = append(clauses, clause("autonomous-system:"+customFieldName(attr.Type, relation), attr.Value))
		}
	}
	return wrapPattern(clauses)
}

func credentialPattern(obj *models.Object) string {
	var clauses []string
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		if field, ok := credentialMapping[attr.ObjectRelation]; ok {
			clauses = append(clauses, clause("user-account:"+field, attr.Value))
		} else {
			clauses = append(clauses, clause("user-account:"+customFieldName(attr.Type, attr.ObjectRelation), attr.Value))
		}
	}
	return wrapPattern(clauses)
}

func domainIPObjectPattern(obj *models.Object) string {
	var clauses []string
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		if field, ok := domainIPMapping[attr.ObjectRelation]; ok {
			clauses = append(clauses, clause("domain-name:"+field, attr.Value))
		}
	}
	return wrapPattern(clauses)
}

func emailPattern(obj *models.Object) string {
	var clauses []string
	attachments := 0
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		switch attr.ObjectRelation {
		case "from":
			clauses = append(clauses, clause("email-message:from_ref.value", attr.Value))
		case "to":
			clauses = append(clauses, clause("email-message:to_refs[*].value", attr.Value))
		case "cc":
			clauses = append(clauses, clause("email-message:cc_refs[*].value", attr.Value))
		case "reply-to":
			clauses = append(clauses, clause("email-message:additional_header_fields.'Reply-To'", attr.Value))
		case "x-mailer":
			clauses = append(clauses, clause("email-message:additional_header_fields.'X-Mailer'", attr.Value))
		case "attachment", "email-attachment":
			clauses = append(clauses, clause(
				"email-message:body_multipart["+strconv.Itoa(attachments)+"].body_raw_ref.name", attr.Value))
			attachments++
		default:
			if field, ok := emailFieldMapping[attr.ObjectRelation]; ok {
				clauses = append(clauses, clause("email-message:"+field, attr.Value))
			} else {
				clauses = append(clauses, clause("email-message:"+customFieldName(attr.Type, attr.ObjectRelation), attr.Value))
			}
		}
	}
	return wrapPattern(clauses)
}

// fileClauses renders a file object's clauses without brackets so the PE join
// can extend them.
func fileClauses(obj *models.Object) []string {
	var clauses []string
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		relation := attr.ObjectRelation
		switch {
		case isHashType(relation):
			clauses = append(clauses, clause(hashPath(hashFeatures[relation]), attr.Value))
		case relation == "filename":
			clauses = append(clauses, clause("file:name", attr.Value))
		case relation == "path" || relation == "fullpath":
			clauses = append(clauses, clause("file:parent_directory_ref.path", attr.Value))
		case relation == "malware-sample":
			name, md5 := splitComposite(attr.Value)
			clauses = append(clauses, clause("file:name", name), clause(hashPath("MD5"), md5))
		default:
			if field, ok := fileMapping[relation]; ok {
				clauses = append(clauses, clause("file:"+field, attr.Value))
			} else {
				clauses = append(clauses, clause("file:"+customFieldName(attr.Type, relation), attr.Value))
			}
		}
	}
	return clauses
}

func filePattern(obj *models.Object) string {
	return wrapPattern(fileClauses(obj))
}

func ipPortPattern(obj *models.Object) string {
	var clauses []string
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		switch attr.ObjectRelation {
		case "ip", "ip-dst":
			clauses = append(clauses, clause("network-traffic:dst_ref.value", attr.Value))
		case "ip-src":
			clauses = append(clauses, clause("network-traffic:src_ref.value", attr.Value))
		case "domain":
			clauses = append(clauses, clause("domain-name:value", attr.Value))
		default:
			if field, ok := ipPortMapping[attr.ObjectRelation]; ok {
				clauses = append(clauses, clause("network-traffic:"+field, attr.Value))
			}
		}
	}
	return wrapPattern(clauses)
}

func networkEndpointClauses(obj *models.Object) []string {
	var clauses []string
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		switch attr.ObjectRelation {
		case "ip-src", "hostname-src":
			clauses = append(clauses, clause("network-traffic:src_ref.value", attr.Value))
		case "ip-dst", "hostname-dst":
			clauses = append(clauses, clause("network-traffic:dst_ref.value", attr.Value))
		case "src-port", "dst-port":
			clauses = append(clauses, clause("network-traffic:"+networkTrafficMapping[attr.ObjectRelation], attr.Value))
		}
	}
	return clauses
}

func networkConnectionPattern(obj *models.Object) string {
	clauses := networkEndpointClauses(obj)
	for i, protocol := range networkProtocols(obj) {
		clauses = append(clauses, clause("network-traffic:protocols["+strconv.Itoa(i)+"]", protocol))
	}
	return wrapPattern(clauses)
}

func networkSocketPattern(obj *models.Object) string {
	clauses := networkEndpointClauses(obj)
	socketPath := "network-traffic:extensions.'socket-ext'."
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		switch attr.ObjectRelation {
		case "address-family", "domain-family":
			clauses = append(clauses, clause(socketPath+networkTrafficMapping[attr.ObjectRelation], attr.Value))
		case "state":
			switch attr.Value {
			case "listening":
				clauses = append(clauses, clause(socketPath+"is_listening", true))
			case "blocking":
				clauses = append(clauses, clause(socketPath+"is_blocking", true))
			}
		case "protocol":
			clauses = append(clauses, clause("network-traffic:protocols[0]", strings.ToLower(attr.Value)))
		}
	}
	return wrapPattern(clauses)
}

func processPattern(obj *models.Object) string {
	var clauses []string
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		switch attr.ObjectRelation {
		case "parent-pid":
			clauses = append(clauses, clause("process:parent_ref.pid", attr.Value))
		case "child-pid":
			clauses = append(clauses, clause("process:child_refs[*].pid", attr.Value))
		default:
			if field, ok := processMapping[attr.ObjectRelation]; ok {
				clauses = append(clauses, clause("process:"+field, attr.Value))
			} else {
				clauses = append(clauses, clause("process:"+customFieldName(attr.Type, attr.ObjectRelation), attr.Value))
			}
		}
	}
	return wrapPattern(clauses)
}

func registryKeyPattern(obj *models.Object) string {
	var clauses []string
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		relation := attr.ObjectRelation
		field, ok := regkeyMapping[relation]
		if !ok {
			clauses = append(clauses, clause("windows-registry-key:"+customFieldName(attr.Type, relation), attr.Value))
			continue
		}
		path := "windows-registry-key:" + field
		if regkeyValueRelations[relation] {
			path = "windows-registry-key:values." + field
		}
		value := attr.Value
		if relation == "key" || relation == "data" {
			value = escapeRegkeyValue(value)
		}
		clauses = append(clauses, clause(path, value))
	}
	return wrapPattern(clauses)
}

func urlObjectPattern(obj *models.Object) string {
	var clauses []string
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		switch attr.ObjectRelation {
		case "url":
			clauses = append(clauses, clause("url:value", attr.Value))
		default:
			clauses = append(clauses, clause("url:"+customFieldName(attr.Type, attr.ObjectRelation), attr.Value))
		}
	}
	return wrapPattern(clauses)
}

func userAccountPattern(obj *models.Object) string {
	var clauses []string
	extensionPath := "user-account:extensions.'unix-account-ext'."
	attributes := userAccountAttributes(obj)
	for i := range attributes {
		attr := &attributes[i]
		relation := attr.ObjectRelation
		if relation == "group" {
			clauses = append(clauses, clause(extensionPath+"groups[*]", attr.Value))
			continue
		}
		if field, ok := userAccountMapping[relation]; ok {
			clauses = append(clauses, clause("user-account:"+field, attr.Value))
			continue
		}
		if field, ok := unixAccountExtensionMapping[relation]; ok {
			clauses = append(clauses, clause(extensionPath+field, attr.Value))
			continue
		}
		clauses = append(clauses, clause("user-account:"+customFieldName(attr.Type, relation), attr.Value))
	}
	return wrapPattern(clauses)
}

func x509Pattern(obj *models.Object) string {
	var clauses []string
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		relation := attr.ObjectRelation
		if feature, ok := x509FingerprintRelations[relation]; ok {
			clauses = append(clauses, clause("x509-certificate:hashes.'"+feature+"'", attr.Value))
			continue
		}
		if field, ok := x509Mapping[relation]; ok {
			clauses = append(clauses, clause("x509-certificate:"+field, attr.Value))
			continue
		}
		clauses = append(clauses, clause("x509-certificate:"+customFieldName(attr.Type, relation), attr.Value))
	}
	return wrapPattern(clauses)
}
