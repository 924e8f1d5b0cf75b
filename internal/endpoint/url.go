package endpoint

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var tokenPattern = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

// BuildURL substitutes every :token of template with its value from
// params (keyed "token" or ":token") and appends the encoded query, if
// any. A token without a value is an error.
func BuildURL(base, template string, params, query map[string]any) (string, error) {
	var missing []string
	path := tokenPattern.ReplaceAllStringFunc(template, func(tok string) string {
		key := tok[1:]
		v, ok := params[key]
		if !ok || v == nil {
			v, ok = params[tok]
		}
		if !ok || v == nil {
			missing = append(missing, key)
			return tok
		}
		return url.PathEscape(formatValue(v))
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%s: %s: %w", template, strings.Join(missing, ", "), ErrMissingURLParam)
	}

	if strings.HasPrefix(path, "/") {
		base = strings.TrimRight(base, "/")
	}
	out := base + path
	if qs := encodeQuery(query); qs != "" {
		out += "?" + qs
	}
	return out, nil
}

func encodeQuery(query map[string]any) string {
	if len(query) == 0 {
		return ""
	}
	vals := url.Values{}
	for k, v := range query {
		if list, ok := v.([]any); ok {
			for _, item := range list {
				vals.Add(k, formatValue(item))
			}
			continue
		}
		vals.Add(k, formatValue(v))
	}
	return vals.Encode()
}

func formatValue(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1e15 {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
