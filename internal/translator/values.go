package translator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/telhawk-systems/stixbridge/internal/models"
	"github.com/telhawk-systems/stixbridge/pkg/stix"
)

// Pattern clause values go through a reversible substitution so quote
// characters can never terminate the clause early. This is a textual template
// fill, not an AST builder.
const (
	apostropheToken = "##APOSTROPHE##"
	quoteToken      = "##QUOTE##"
)

func escapePatternValue(value string) string {
	value = strings.ReplaceAll(value, "'", apostropheToken)
	return strings.ReplaceAll(value, `"`, quoteToken)
}

// clause renders one comparison, quoting string values and leaving numeric
// and boolean values bare.
func clause(path string, value any) string {
	switch v := value.(type) {
	case int:
		return path + " = " + strconv.Itoa(v)
	case int64:
		return path + " = " + strconv.FormatInt(v, 10)
	case bool:
		return path + " = " + strconv.FormatBool(v)
	case string:
		return path + " = '" + escapePatternValue(v) + "'"
	default:
		return path + " = '" + escapePatternValue(fmt.Sprint(v)) + "'"
	}
}

// wrapPattern joins clauses with AND inside one bracket pair.
func wrapPattern(clauses []string) string {
	return "[" + strings.Join(clauses, " AND ") + "]"
}

// addressType picks the STIX address observable type for an IP value.
func addressType(value string) string {
	if strings.Contains(value, ":") {
		return "ipv6-addr"
	}
	return "ipv4-addr"
}

// parseASNumber extracts the numeric autonomous-system number from an
// attribute value or, failing that, its comment. Accepts a bare digit string
// or an "AS<digits>" token, taking the leading numeric run only.
func parseASNumber(value, comment string) (int, bool) {
	for _, candidate := range []string{value, comment} {
		if n, ok := leadingASNumber(candidate); ok {
			return n, true
		}
	}
	return 0, false
}

func leadingASNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "AS") {
		s = s[2:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// recordTimestamp converts a MISP epoch-seconds timestamp field.
func recordTimestamp(raw interface{ Int64() (int64, error) }) stix.Timestamp {
	sec, err := raw.Int64()
	if err != nil {
		return stix.NewTimestamp(time.Unix(0, 0))
	}
	return stix.FromUnix(sec)
}

// seenTimestamp parses a first_seen/last_seen field, falling back to the
// record timestamp when the field is absent or unparsable.
func seenTimestamp(value string, fallback stix.Timestamp) stix.Timestamp {
	if value == "" {
		return fallback
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return fallback
	}
	return stix.NewTimestamp(parsed)
}

// dateTimestamp parses an event's "YYYY-MM-DD" date field, falling back to
// the record timestamp.
func dateTimestamp(date string, fallback stix.Timestamp) stix.Timestamp {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return fallback
	}
	return stix.NewTimestamp(parsed)
}

// anyToIDS folds the to-validate decision over an object's attributes.
func anyToIDS(attributes []models.Attribute) bool {
	for _, attr := range attributes {
		if attr.ToIDS {
			return true
		}
	}
	return false
}

// normalizeTypeName normalizes a source type string for use in a custom
// wrapper kind.
func normalizeTypeName(t string) string {
	t = strings.ReplaceAll(t, "|", "-")
	t = strings.ReplaceAll(t, " ", "-")
	return strings.ToLower(t)
}

// customFieldName builds an extension-namespaced field name from the source's
// raw type and relation strings.
func customFieldName(attrType, relation string) string {
	return "x_misp_" + attrType + "_" + strings.ReplaceAll(relation, "-", "_")
}
