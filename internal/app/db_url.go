package app

import (
	"net/url"
	"strings"
)

// pgx-only connection parameters that lib/pq would forward to the server as
// unknown runtime settings.
var pgxOnlyParams = []string{
	"disable_prepared_binary_result",
	"default_query_exec_mode",
	"statement_cache_capacity",
	"pool_max_conns",
}

// NormalizeDBURL adapts a connection URL for lib/pq. binaryParameters turns
// on lib/pq's binary_parameters mode, which skips the extra prepare round trip
// behind poolers that do not support named statements.
func NormalizeDBURL(raw string, binaryParameters bool) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed == nil || parsed.Scheme == "" {
		return raw
	}

	query := parsed.Query()
	changed := false
	for _, key := range pgxOnlyParams {
		if query.Has(key) {
			query.Del(key)
			changed = true
		}
	}
	if binaryParameters && query.Get("binary_parameters") == "" {
		query.Set("binary_parameters", "yes")
		changed = true
	}
	if !changed {
		return raw
	}

	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func dbNameFromURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err == nil && parsed != nil && parsed.Scheme != "" {
		name := strings.TrimSpace(strings.TrimPrefix(parsed.Path, "/"))
		if name != "" {
			return name
		}
	}

	for _, token := range strings.Fields(trimmed) {
		if !strings.HasPrefix(token, "dbname=") {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(token, "dbname="))
		name = strings.Trim(name, `"'`)
		if name != "" {
			return name
		}
	}

	return ""
}
