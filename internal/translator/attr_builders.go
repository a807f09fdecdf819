package translator

import (
	"strings"

	"github.com/telhawk-systems/stixbridge/pkg/stix"
)

// attrHandler is the builder pair for one attribute type: an observable node
// graph for observed-data and a bracketed boolean pattern for indicators.
// Both receive the attribute value and its optional binary payload.
type attrHandler struct {
	observable func(value, data string) map[string]stix.Node
	pattern    func(value, data string) string
}

// attributeBuilders routes attribute type strings to their builder pair.
// Lookup misses fall through to the generic custom wrapper.
var attributeBuilders map[string]attrHandler

func init() {
	attributeBuilders = map[string]attrHandler{
		"filename":    {observable: filenameObservable, pattern: filenamePattern},
		"ip-src":      {observable: addressObservable, pattern: addressPattern},
		"ip-dst":      {observable: addressObservable, pattern: addressPattern},
		"domain":      {observable: domainObservable, pattern: domainPattern},
		"hostname":    {observable: domainObservable, pattern: domainPattern},
		"domain|ip":   {observable: domainIPObservable, pattern: domainIPPattern},
		"email-src":   {observable: emailSrcObservable, pattern: emailSrcPattern},
		"email-dst":   {observable: emailDstObservable, pattern: emailDstPattern},
		"email-subject": {
			observable: func(value, _ string) map[string]stix.Node {
				return single(stix.Node{"type": "email-message", "subject": value, "is_multipart": false})
			},
			pattern: func(value, _ string) string {
				return wrapPattern([]string{clause("email-message:subject", value)})
			},
		},
		"url":         {observable: urlObservable, pattern: urlPattern},
		"uri":         {observable: urlObservable, pattern: urlPattern},
		"regkey":      {observable: regkeyObservable, pattern: regkeyPattern},
		"regkey|value": {observable: regkeyValueObservable, pattern: regkeyValuePattern},
		"mutex": {
			observable: func(value, _ string) map[string]stix.Node {
				return single(stix.Node{"type": "mutex", "name": value})
			},
			pattern: func(value, _ string) string {
				return wrapPattern([]string{clause("mutex:name", value)})
			},
		},
		"mac-address": {
			observable: func(value, _ string) map[string]stix.Node {
				return single(stix.Node{"type": "mac-addr", "value": value})
			},
			pattern: func(value, _ string) string {
				return wrapPattern([]string{clause("mac-addr:value", value)})
			},
		},
		"port":           {observable: portObservable, pattern: portPattern},
		"ip-src|port":    {observable: ipPortComboObservable("src"), pattern: ipPortComboPattern("src")},
		"ip-dst|port":    {observable: ipPortComboObservable("dst"), pattern: ipPortComboPattern("dst")},
		"hostname|port":  {observable: hostnamePortObservable, pattern: hostnamePortPattern},
		"size-in-bytes": {
			observable: func(value, _ string) map[string]stix.Node {
				return single(stix.Node{"type": "file", "size": value})
			},
			pattern: func(value, _ string) string {
				return wrapPattern([]string{clause("file:size", value)})
			},
		},
		"attachment":     {observable: attachmentObservable, pattern: attachmentPattern},
		"malware-sample": {observable: malwareSampleObservable, pattern: malwareSamplePattern},
	}

	// Plain and composite hash types share the same builder shapes.
	for relation, feature := range hashFeatures {
		attributeBuilders[relation] = hashHandler(feature)
		attributeBuilders["filename|"+relation] = filenameHashHandler(feature)
	}
}

func single(node stix.Node) map[string]stix.Node {
	return map[string]stix.Node{"0": node}
}

func hashPath(feature string) string {
	return "file:hashes.'" + feature + "'"
}

func hashHandler(feature string) attrHandler {
	return attrHandler{
		observable: func(value, _ string) map[string]stix.Node {
			return single(stix.Node{"type": "file", "hashes": map[string]any{feature: value}})
		},
		pattern: func(value, _ string) string {
			return wrapPattern([]string{clause(hashPath(feature), value)})
		},
	}
}

func filenameHashHandler(feature string) attrHandler {
	return attrHandler{
		observable: func(value, _ string) map[string]stix.Node {
			name, hash := splitComposite(value)
			return single(stix.Node{"type": "file", "name": name, "hashes": map[string]any{feature: hash}})
		},
		pattern: func(value, _ string) string {
			name, hash := splitComposite(value)
			return wrapPattern([]string{clause("file:name", name), clause(hashPath(feature), hash)})
		},
	}
}

// splitComposite splits a "left|right" MISP composite value.
func splitComposite(value string) (string, string) {
	left, right, found := strings.Cut(value, "|")
	if !found {
		return value, ""
	}
	return left, right
}

func filenameObservable(value, _ string) map[string]stix.Node {
	return single(stix.Node{"type": "file", "name": value})
}

func filenamePattern(value, _ string) string {
	return wrapPattern([]string{clause("file:name", value)})
}

func addressObservable(value, _ string) map[string]stix.Node {
	return single(stix.Node{"type": addressType(value), "value": value})
}

func addressPattern(value, _ string) string {
	return wrapPattern([]string{clause(addressType(value)+":value", value)})
}

func domainObservable(value, _ string) map[string]stix.Node {
	return single(stix.Node{"type": "domain-name", "value": value})
}

func domainPattern(value, _ string) string {
	return wrapPattern([]string{clause("domain-name:value", value)})
}

func domainIPObservable(value, _ string) map[string]stix.Node {
	domain, ip := splitComposite(value)
	return map[string]stix.Node{
		"0": {"type": "domain-name", "value": domain, "resolves_to_refs": []string{"1"}},
		"1": {"type": addressType(ip), "value": ip},
	}
}

func domainIPPattern(value, _ string) string {
	domain, ip := splitComposite(value)
	return wrapPattern([]string{
		clause("domain-name:value", domain),
		clause("domain-name:resolves_to_refs[*].value", ip),
	})
}

func emailSrcObservable(value, _ string) map[string]stix.Node {
	return map[string]stix.Node{
		"0": {"type": "email-addr", "value": value},
		"1": {"type": "email-message", "from_ref": "0", "is_multipart": false},
	}
}

func emailSrcPattern(value, _ string) string {
	return wrapPattern([]string{clause("email-message:from_ref.value", value)})
}

func emailDstObservable(value, _ string) map[string]stix.Node {
	return map[string]stix.Node{
		"0": {"type": "email-addr", "value": value},
		"1": {"type": "email-message", "to_refs": []string{"0"}, "is_multipart": false},
	}
}

func emailDstPattern(value, _ string) string {
	return wrapPattern([]string{clause("email-message:to_refs[*].value", value)})
}

func urlObservable(value, _ string) map[string]stix.Node {
	return single(stix.Node{"type": "url", "value": value})
}

func urlPattern(value, _ string) string {
	return wrapPattern([]string{clause("url:value", value)})
}

func regkeyObservable(value, _ string) map[string]stix.Node {
	return single(stix.Node{"type": "windows-registry-key", "key": strings.TrimSpace(value)})
}

func regkeyPattern(value, _ string) string {
	return wrapPattern([]string{clause("windows-registry-key:key", escapeRegkeyValue(value))})
}

func regkeyValueObservable(value, _ string) map[string]stix.Node {
	key, data := splitComposite(value)
	return single(stix.Node{
		"type":   "windows-registry-key",
		"key":    strings.TrimSpace(key),
		"values": []map[string]any{{"data": strings.TrimSpace(data)}},
	})
}

func regkeyValuePattern(value, _ string) string {
	key, data := splitComposite(value)
	return wrapPattern([]string{
		clause("windows-registry-key:key", escapeRegkeyValue(key)),
		clause("windows-registry-key:values.data", escapeRegkeyValue(data)),
	})
}

// escapeRegkeyValue doubles single backslashes so registry paths survive the
// pattern text. Values already escaped are left alone.
func escapeRegkeyValue(value string) string {
	value = strings.TrimSpace(value)
	if strings.Contains(value, `\\`) {
		return value
	}
	return strings.ReplaceAll(value, `\`, `\\`)
}

// protocolsForPort returns the transport list for a declared port number.
func protocolsForPort(port string) []string {
	protocols := []string{baselineProtocol}
	if p, ok := portProtocols[port]; ok {
		protocols = append(protocols, p)
	}
	return protocols
}

func portObservable(value, _ string) map[string]stix.Node {
	return single(stix.Node{"type": "network-traffic", "dst_port": value, "protocols": protocolsForPort(value)})
}

func portPattern(value, _ string) string {
	return wrapPattern([]string{clause("network-traffic:dst_port", value)})
}

func ipPortComboObservable(direction string) func(value, data string) map[string]stix.Node {
	return func(value, _ string) map[string]stix.Node {
		ip, port := splitComposite(value)
		return map[string]stix.Node{
			"0": {"type": addressType(ip), "value": ip},
			"1": {
				"type":              "network-traffic",
				direction + "_ref":  "0",
				direction + "_port": port,
				"protocols":         protocolsForPort(port),
			},
		}
	}
}

func ipPortComboPattern(direction string) func(value, data string) string {
	return func(value, _ string) string {
		ip, port := splitComposite(value)
		return wrapPattern([]string{
			clause("network-traffic:"+direction+"_ref.value", ip),
			clause("network-traffic:"+direction+"_port", port),
		})
	}
}

func hostnamePortObservable(value, _ string) map[string]stix.Node {
	hostname, port := splitComposite(value)
	return map[string]stix.Node{
		"0": {"type": "domain-name", "value": hostname},
		"1": {
			"type":      "network-traffic",
			"dst_ref":   "0",
			"dst_port":  port,
			"protocols": protocolsForPort(port),
		},
	}
}

func hostnamePortPattern(value, _ string) string {
	hostname, port := splitComposite(value)
	return wrapPattern([]string{
		clause("network-traffic:dst_ref.value", hostname),
		clause("network-traffic:dst_port", port),
	})
}

func attachmentObservable(value, data string) map[string]stix.Node {
	if data != "" {
		return map[string]stix.Node{
			"0": {"type": "artifact", "payload_bin": data},
			"1": {"type": "file", "name": value, "content_ref": "0"},
		}
	}
	return single(stix.Node{"type": "file", "name": value})
}

func attachmentPattern(value, data string) string {
	clauses := []string{clause("file:name", value)}
	if data != "" {
		clauses = append(clauses, clause("file:content_ref.payload_bin", data))
	}
	return wrapPattern(clauses)
}

func malwareSampleObservable(value, data string) map[string]stix.Node {
	name, md5 := splitComposite(value)
	file := stix.Node{"type": "file", "name": name, "hashes": map[string]any{"MD5": md5}}
	if data == "" {
		return single(file)
	}
	file["content_ref"] = "0"
	return map[string]stix.Node{
		"0": {"type": "artifact", "payload_bin": data},
		"1": file,
	}
}

func malwareSamplePattern(value, data string) string {
	name, md5 := splitComposite(value)
	clauses := []string{clause("file:name", name), clause(hashPath("MD5"), md5)}
	if data != "" {
		clauses = append(clauses, clause("file:content_ref.payload_bin", data))
	}
	return wrapPattern(clauses)
}
