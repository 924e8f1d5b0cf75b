package filter

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/yourorg/restspec/internal/config"
	"github.com/yourorg/restspec/pkg/types"
)

// SanitizeConfig is an alias of config.SanitizeConfig.
type SanitizeConfig = config.SanitizeConfig

// SanitizeExchange redacts sensitive headers, query params and JSON body
// fields before an exchange is journaled.
func SanitizeExchange(ex types.Exchange, cfg SanitizeConfig) types.Exchange {
	headerSet := toLowerSet(cfg.Headers)
	fieldSet := toLowerSet(cfg.BodyFields)
	replacement := cfg.Replacement

	ex.RequestHeaders = sanitizeHeaderMap(ex.RequestHeaders, headerSet, replacement)
	ex.ResponseHeaders = sanitizeHeaderMap(ex.ResponseHeaders, headerSet, replacement)
	ex.URL = sanitizeURL(ex.URL, fieldSet, replacement)
	ex.RequestBody = sanitizeBody(ex.RequestBody, fieldSet, replacement)
	ex.ResponseBody = sanitizeBody(ex.ResponseBody, fieldSet, replacement)
	return ex
}

// Sanitize applies SanitizeExchange to every exchange.
func Sanitize(exchanges []types.Exchange, cfg SanitizeConfig) []types.Exchange {
	out := make([]types.Exchange, len(exchanges))
	for i, ex := range exchanges {
		out[i] = SanitizeExchange(ex, cfg)
	}
	return out
}

func toLowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, v := range items {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

func sanitizeHeaderMap(in map[string]string, set map[string]struct{}, replacement string) map[string]string {
	if len(in) == 0 {
		return in
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if _, ok := set[strings.ToLower(k)]; ok {
			out[k] = replacement
			continue
		}
		out[k] = v
	}
	return out
}

func sanitizeURL(raw string, set map[string]struct{}, replacement string) string {
	if len(set) == 0 || !strings.Contains(raw, "?") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	changed := false
	for k, vs := range q {
		if _, ok := set[strings.ToLower(k)]; !ok {
			continue
		}
		for i := range vs {
			vs[i] = replacement
		}
		changed = true
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func sanitizeBody(body string, set map[string]struct{}, replacement string) string {
	if len(set) == 0 || strings.TrimSpace(body) == "" {
		return body
	}
	var v interface{}
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return body
	}
	v = sanitizeJSONValue(v, set, replacement)
	out, err := json.Marshal(v)
	if err != nil {
		return body
	}
	return string(out)
}

func sanitizeJSONValue(v interface{}, set map[string]struct{}, replacement string) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, v2 := range val {
			if _, ok := set[strings.ToLower(k)]; ok {
				val[k] = replacement
				continue
			}
			val[k] = sanitizeJSONValue(v2, set, replacement)
		}
		return val
	case []interface{}:
		for i := range val {
			val[i] = sanitizeJSONValue(val[i], set, replacement)
		}
		return val
	default:
		return val
	}
}
