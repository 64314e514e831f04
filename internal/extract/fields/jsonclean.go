package fields

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyRe   = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	pythonLiteralRe = regexp.MustCompile(`(:\s*|\[\s*|,\s*)(None|True|False)\b`)
	smartQuotes     = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")
)

// decodeObject pulls the first JSON object out of a model response. It strips
// markdown fences and chatter around the object and repairs the common
// syntax slips before giving up.
func decodeObject(content string) (map[string]any, error) {
	content = stripFences(strings.TrimSpace(content))

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return nil, errNotJSONObject
	}
	raw := content[start : end+1]

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		if err := json.Unmarshal([]byte(repairJSON(raw)), &v); err != nil {
			return nil, errors.Join(errNotJSONObject, err)
		}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotJSONObject
	}
	return obj, nil
}

func stripFences(s string) string {
	if i := strings.Index(s, "```"); i != -1 {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "JSON")
		if j := strings.Index(rest, "```"); j != -1 {
			rest = rest[:j]
		}
		return strings.TrimSpace(rest)
	}
	return s
}

func repairJSON(s string) string {
	s = smartQuotes.Replace(s)
	s = unquotedKeyRe.ReplaceAllString(s, `$1"$2":`)
	s = pythonLiteralRe.ReplaceAllStringFunc(s, func(m string) string {
		m = strings.Replace(m, "None", "null", 1)
		m = strings.Replace(m, "True", "true", 1)
		return strings.Replace(m, "False", "false", 1)
	})
	return trailingCommaRe.ReplaceAllString(s, "$1")
}
