package translator

import (
	"slices"
	"strconv"
	"strings"

	"github.com/telhawk-systems/stixbridge/internal/models"
	"github.com/telhawk-systems/stixbridge/pkg/stix"
)

// Observable builders assemble the node graph for one composite object.
// Satellite nodes (addresses, domains, directories) take the low handles and
// the primary node closes the graph, referencing them by handle.

func asnObjectObservable(obj *models.Object) map[string]stix.Node {
	node := stix.Node{"type": "autonomous-system"}
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		relation := attr.ObjectRelation
		if relation == "asn" {
			if n, ok := leadingASNumber(attr.Value); ok {
				node[asnMapping[relation]] = n
			}
			continue
		}
		if field, ok := asnMapping[relation]; ok {
			node[field] = attr.Value
		} else {
			node[customFieldName(attr.Type, relation)] = attr.Value
		}
	}
	return single(node)
}

func credentialObservable(obj *models.Object) map[string]stix.Node {
	node := stix.Node{"type": "user-account"}
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		if field, ok := credentialMapping[attr.ObjectRelation]; ok {
			node[field] = attr.Value
		} else {
			node[customFieldName(attr.Type, attr.ObjectRelation)] = attr.Value
		}
	}
	return single(node)
}

func domainIPObjectObservable(obj *models.Object) map[string]stix.Node {
	nodes := map[string]stix.Node{}
	domain := stix.Node{"type": "domain-name"}
	var resolves []string
	handle := 1
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		switch attr.ObjectRelation {
		case "domain":
			domain["value"] = attr.Value
		case "ip", "ip-dst", "ip-src":
			key := strconv.Itoa(handle)
			nodes[key] = stix.Node{"type": addressType(attr.Value), "value": attr.Value}
			resolves = append(resolves, key)
			handle++
		}
	}
	if len(resolves) > 0 {
		domain["resolves_to_refs"] = resolves
	}
	nodes["0"] = domain
	return nodes
}

func emailObservable(obj *models.Object) map[string]stix.Node {
	nodes := map[string]stix.Node{}
	message := stix.Node{"type": "email-message", "is_multipart": false}
	var toRefs, ccRefs []string
	var bodyParts []map[string]any
	handle := 0
	addAddress := func(value string) string {
		key := strconv.Itoa(handle)
		nodes[key] = stix.Node{"type": "email-addr", "value": value}
		handle++
		return key
	}
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		switch attr.ObjectRelation {
		case "from":
			message["from_ref"] = addAddress(attr.Value)
		case "to":
			toRefs = append(toRefs, addAddress(attr.Value))
		case "cc":
			ccRefs = append(ccRefs, addAddress(attr.Value))
		case "reply-to":
			message["additional_header_fields"] = mergeHeader(message, "Reply-To", attr.Value)
		case "x-mailer":
			message["additional_header_fields"] = mergeHeader(message, "X-Mailer", attr.Value)
		case "attachment", "email-attachment":
			key := strconv.Itoa(handle)
			nodes[key] = stix.Node{"type": "file", "name": attr.Value}
			handle++
			bodyParts = append(bodyParts, map[string]any{
				"content_disposition": "attachment; filename='" + attr.Value + "'",
				"body_raw_ref":        key,
			})
		default:
			if field, ok := emailFieldMapping[attr.ObjectRelation]; ok {
				message[field] = attr.Value
			} else {
				message[customFieldName(attr.Type, attr.ObjectRelation)] = attr.Value
			}
		}
	}
	if len(toRefs) > 0 {
		message["to_refs"] = toRefs
	}
	if len(ccRefs) > 0 {
		message["cc_refs"] = ccRefs
	}
	if len(bodyParts) > 0 {
		message["is_multipart"] = true
		message["body_multipart"] = bodyParts
	}
	nodes[strconv.Itoa(handle)] = message
	return nodes
}

// mergeHeader folds one named header into the message's additional header
// dictionary.
func mergeHeader(message stix.Node, name, value string) map[string]string {
	headers, ok := message["additional_header_fields"].(map[string]string)
	if !ok {
		headers = map[string]string{}
	}
	headers[name] = value
	return headers
}

func fileObservable(obj *models.Object) map[string]stix.Node {
	nodes := map[string]stix.Node{}
	file := stix.Node{"type": "file"}
	hashes := map[string]any{}
	var extraFilenames []string
	handle := 0
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		relation := attr.ObjectRelation
		switch {
		case isHashType(relation):
			hashes[hashFeatures[relation]] = attr.Value
		case relation == "filename":
			if _, seen := file["name"]; seen {
				extraFilenames = append(extraFilenames, attr.Value)
			} else {
				file["name"] = attr.Value
			}
		case relation == "path" || relation == "fullpath":
			key := strconv.Itoa(handle)
			nodes[key] = stix.Node{"type": "directory", "path": attr.Value}
			file["parent_directory_ref"] = key
			handle++
		case relation == "malware-sample":
			name, md5 := splitComposite(attr.Value)
			file["name"] = name
			hashes["MD5"] = md5
			if attr.Data != "" {
				key := strconv.Itoa(handle)
				nodes[key] = stix.Node{"type": "artifact", "payload_bin": attr.Data}
				file["content_ref"] = key
				handle++
			}
		default:
			if field, ok := fileMapping[relation]; ok {
				file[field] = attr.Value
			} else {
				file[customFieldName(attr.Type, relation)] = attr.Value
			}
		}
	}
	if len(hashes) > 0 {
		file["hashes"] = hashes
	}
	// extra declared names survive as namespaced fields, the first one won
	switch len(extraFilenames) {
	case 0:
	case 1:
		file["x_misp_multiple_filename"] = extraFilenames[0]
	default:
		file["x_misp_multiple_filenames"] = extraFilenames
	}
	nodes[strconv.Itoa(handle)] = file
	return nodes
}

func ipPortObservable(obj *models.Object) map[string]stix.Node {
	nodes := map[string]stix.Node{}
	traffic := stix.Node{"type": "network-traffic"}
	handle := 0
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		switch attr.ObjectRelation {
		case "ip", "ip-dst":
			key := strconv.Itoa(handle)
			nodes[key] = stix.Node{"type": addressType(attr.Value), "value": attr.Value}
			traffic["dst_ref"] = key
			handle++
		case "ip-src":
			key := strconv.Itoa(handle)
			nodes[key] = stix.Node{"type": addressType(attr.Value), "value": attr.Value}
			traffic["src_ref"] = key
			handle++
		case "domain":
			key := strconv.Itoa(handle)
			nodes[key] = stix.Node{"type": "domain-name", "value": attr.Value}
			handle++
		default:
			if field, ok := ipPortMapping[attr.ObjectRelation]; ok {
				traffic[field] = attr.Value
			} else {
				traffic[customFieldName(attr.Type, attr.ObjectRelation)] = attr.Value
			}
		}
	}
	// Declared ports extend the baseline transport with their well-known
	// protocol.
	protocols := []string{baselineProtocol}
	for _, field := range []string{"src_port", "dst_port"} {
		port, _ := traffic[field].(string)
		if p, ok := portProtocols[port]; ok && !slices.Contains(protocols, p) {
			protocols = append(protocols, p)
		}
	}
	traffic["protocols"] = protocols
	nodes[strconv.Itoa(handle)] = traffic
	return nodes
}

// networkProtocols collects the layered protocol relations in order.
func networkProtocols(obj *models.Object) []string {
	var protocols []string
	for _, relation := range []string{"layer3-protocol", "layer4-protocol", "layer7-protocol"} {
		if value, ok := relationValue(obj, relation); ok {
			protocols = append(protocols, strings.ToLower(value))
		}
	}
	return protocols
}

func networkEndpoints(obj *models.Object, nodes map[string]stix.Node, traffic stix.Node) int {
	handle := 0
	addNode := func(node stix.Node, field string) {
		key := strconv.Itoa(handle)
		nodes[key] = node
		traffic[field] = key
		handle++
	}
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		switch attr.ObjectRelation {
		case "ip-src":
			addNode(stix.Node{"type": addressType(attr.Value), "value": attr.Value}, "src_ref")
		case "ip-dst":
			addNode(stix.Node{"type": addressType(attr.Value), "value": attr.Value}, "dst_ref")
		case "hostname-src":
			addNode(stix.Node{"type": "domain-name", "value": attr.Value}, "src_ref")
		case "hostname-dst":
			addNode(stix.Node{"type": "domain-name", "value": attr.Value}, "dst_ref")
		case "src-port", "dst-port":
			traffic[networkTrafficMapping[attr.ObjectRelation]] = attr.Value
		}
	}
	return handle
}

func networkConnectionObservable(obj *models.Object) map[string]stix.Node {
	nodes := map[string]stix.Node{}
	traffic := stix.Node{"type": "network-traffic"}
	handle := networkEndpoints(obj, nodes, traffic)
	if protocols := networkProtocols(obj); len(protocols) > 0 {
		traffic["protocols"] = protocols
	} else {
		traffic["protocols"] = []string{baselineProtocol}
	}
	nodes[strconv.Itoa(handle)] = traffic
	return nodes
}

func networkSocketObservable(obj *models.Object) map[string]stix.Node {
	nodes := map[string]stix.Node{}
	traffic := stix.Node{"type": "network-traffic"}
	handle := networkEndpoints(obj, nodes, traffic)
	socket := map[string]any{}
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		switch attr.ObjectRelation {
		case "address-family", "domain-family":
			socket[networkTrafficMapping[attr.ObjectRelation]] = attr.Value
		case "state":
			switch attr.Value {
			case "listening":
				socket["is_listening"] = true
			case "blocking":
				socket["is_blocking"] = true
			}
		case "protocol":
			traffic["protocols"] = []string{strings.ToLower(attr.Value)}
		}
	}
	if _, ok := traffic["protocols"]; !ok {
		traffic["protocols"] = []string{baselineProtocol}
	}
	if len(socket) > 0 {
		traffic["extensions"] = map[string]any{"socket-ext": socket}
	}
	nodes[strconv.Itoa(handle)] = traffic
	return nodes
}

func processObservable(obj *models.Object) map[string]stix.Node {
	nodes := map[string]stix.Node{}
	process := stix.Node{"type": "process"}
	var childRefs []string
	handle := 0
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		switch attr.ObjectRelation {
		case "parent-pid":
			key := strconv.Itoa(handle)
			nodes[key] = stix.Node{"type": "process", "pid": attr.Value}
			process["parent_ref"] = key
			handle++
		case "child-pid":
			key := strconv.Itoa(handle)
			nodes[key] = stix.Node{"type": "process", "pid": attr.Value}
			childRefs = append(childRefs, key)
			handle++
		default:
			if field, ok := processMapping[attr.ObjectRelation]; ok {
				process[field] = attr.Value
			} else {
				process[customFieldName(attr.Type, attr.ObjectRelation)] = attr.Value
			}
		}
	}
	if len(childRefs) > 0 {
		process["child_refs"] = childRefs
	}
	nodes[strconv.Itoa(handle)] = process
	return nodes
}

func registryKeyObservable(obj *models.Object) map[string]stix.Node {
	key := stix.Node{"type": "windows-registry-key"}
	value := map[string]any{}
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		relation := attr.ObjectRelation
		field, ok := regkeyMapping[relation]
		switch {
		case !ok:
			key[customFieldName(attr.Type, relation)] = attr.Value
		case regkeyValueRelations[relation]:
			if relation == "data" {
				value[field] = strings.TrimSpace(attr.Value)
			} else {
				value[field] = attr.Value
			}
		case relation == "key":
			key[field] = strings.TrimSpace(attr.Value)
		default:
			key[field] = attr.Value
		}
	}
	if len(value) > 0 {
		key["values"] = []map[string]any{value}
	}
	return single(key)
}

func urlObjectObservable(obj *models.Object) map[string]stix.Node {
	node := stix.Node{"type": "url"}
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		switch attr.ObjectRelation {
		case "url":
			node["value"] = attr.Value
		default:
			node[customFieldName(attr.Type, attr.ObjectRelation)] = attr.Value
		}
	}
	return single(node)
}

// userAccountAttributes prepares user-account attributes for mapping: a lone
// username stands in for a missing user-id, and free-text notes are dropped.
func userAccountAttributes(obj *models.Object) []models.Attribute {
	hasUserID := false
	for i := range obj.Attributes {
		if obj.Attributes[i].ObjectRelation == "user-id" {
			hasUserID = true
			break
		}
	}
	attributes := make([]models.Attribute, 0, len(obj.Attributes))
	for _, attr := range obj.Attributes {
		switch attr.ObjectRelation {
		case "text":
			continue
		case "username":
			if !hasUserID {
				attr.ObjectRelation = "user-id"
				hasUserID = true
			}
		}
		attributes = append(attributes, attr)
	}
	return attributes
}

func userAccountObservable(obj *models.Object) map[string]stix.Node {
	account := stix.Node{"type": "user-account"}
	extension := map[string]any{}
	var groups []string
	attributes := userAccountAttributes(obj)
	for i := range attributes {
		attr := &attributes[i]
		relation := attr.ObjectRelation
		if relation == "group" {
			groups = append(groups, attr.Value)
			continue
		}
		if field, ok := userAccountMapping[relation]; ok {
			account[field] = attr.Value
			continue
		}
		if field, ok := unixAccountExtensionMapping[relation]; ok {
			extension[field] = attr.Value
			continue
		}
		account[customFieldName(attr.Type, relation)] = attr.Value
	}
	if len(groups) > 0 {
		extension["groups"] = groups
	}
	if len(extension) > 0 {
		account["extensions"] = map[string]any{"unix-account-ext": extension}
	}
	return single(account)
}

func x509Observable(obj *models.Object) map[string]stix.Node {
	certificate := stix.Node{"type": "x509-certificate"}
	hashes := map[string]any{}
	for i := range obj.Attributes {
		attr := &obj.Attributes[i]
		relation := attr.ObjectRelation
		if feature, ok := x509FingerprintRelations[relation]; ok {
			hashes[feature] = attr.Value
			continue
		}
		if field, ok := x509Mapping[relation]; ok {
			certificate[field] = attr.Value
			continue
		}
		certificate[customFieldName(attr.Type, relation)] = attr.Value
	}
	if len(hashes) > 0 {
		certificate["hashes"] = hashes
	}
	return single(certificate)
}
