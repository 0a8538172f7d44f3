// Package redact masks key material before it reaches logs or audit files.
package redact

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	neverPersistKey = "never_persist"
	fingerprintKey  = "fingerprint"
	// Placeholder substituted for anything that looks like key material.
	Placeholder = "[REDACTED_KEY]"
)

var (
	assignmentRe = regexp.MustCompile(`(?i)\b((?:key|secret|nonce|salt)\s*[:=]\s*)(['"]?)([^\s'",;]+)(['"]?)`)
	decimalRunRe = regexp.MustCompile(`\b[0-9]{20,}\b`)
	hexRunRe     = regexp.MustCompile(`(?i)\b(?:0x)?[0-9a-f]{32,}\b`)
)

// String masks key assignments and long decimal or hex runs in s.
func String(in string) string {
	if strings.TrimSpace(in) == "" {
		return in
	}
	masked := assignmentRe.ReplaceAllString(in, `$1$2`+Placeholder+`$4`)
	masked = decimalRunRe.ReplaceAllString(masked, Placeholder)
	masked = hexRunRe.ReplaceAllString(masked, Placeholder)
	return masked
}

// Bytes always masks; raw byte slices in log metadata are key material or payload.
func Bytes(_ []byte) string {
	return Placeholder
}

// Interface redacts recognised sensitive values within nested structures.
func Interface(value any) any {
	switch v := value.(type) {
	case string:
		return String(v)
	case []byte:
		return Bytes(v)
	case fmt.Stringer:
		return String(v.String())
	case []string:
		return Slice(v)
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = Interface(elem)
		}
		return out
	case map[string]string:
		return MapString(v)
	case map[string]any:
		return Map(v)
	default:
		return value
	}
}

// Map redacts every value in m. Keys listed under never_persist are replaced
// wholesale and the never_persist entry itself is dropped. A string
// fingerprint entry is a hash, not key material, and is kept as is.
func Map(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	hidden := map[string]struct{}{}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if strings.EqualFold(k, neverPersistKey) {
			for _, name := range neverPersistNames(v) {
				hidden[name] = struct{}{}
			}
			continue
		}
		out[k] = v
	}
	for k, v := range out {
		if _, ok := hidden[k]; ok {
			out[k] = Placeholder
			continue
		}
		if k == fingerprintKey {
			if _, ok := v.(string); ok {
				continue
			}
		}
		out[k] = Interface(v)
	}
	return out
}

// MapString is Map for string-valued maps.
func MapString(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	generic := make(map[string]any, len(in))
	for k, v := range in {
		generic[k] = v
	}
	masked := Map(generic)
	out := make(map[string]string, len(masked))
	for k, v := range masked {
		out[k], _ = v.(string)
	}
	return out
}

// Slice redacts each element of in.
func Slice(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = String(v)
	}
	return out
}

func neverPersistNames(value any) []string {
	var raw []string
	switch v := value.(type) {
	case string:
		raw = strings.Split(v, ",")
	case []string:
		raw = v
	case []any:
		for _, elem := range v {
			raw = append(raw, fmt.Sprint(elem))
		}
	}
	names := make([]string, 0, len(raw))
	for _, name := range raw {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}
