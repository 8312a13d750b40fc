package repositories

import (
	"strings"
	"time"

	"github.com/mama165/sdk-go/database"
)

// detailFields are tried in order to describe a record in one line.
// Password hashes are never shown.
var detailFields = []string{"title", "name", "content", "message", "email"}

// InspectRow renders a stored key for the Badger debug inspector.
// Index keys hold raw ids rather than CBOR records and are shown as such.
func InspectRow(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	row.Namespace = strings.SplitN(key, ":", 2)[0]

	var record map[string]any
	if err := decode(val, &record); err != nil || record == nil {
		row.Type = "INDEX"
		row.Detail = string(val)
		return row
	}

	row.EntityID, _ = record["id"].(string)
	row.Type = strings.ToUpper(firstString(record, "type", "status"))
	if nanos, ok := asInt64(record["created_at"]); ok {
		row.Timestamp = time.Unix(0, nanos).UTC().Format(time.DateTime)
	}
	row.Detail = firstString(record, detailFields...)
	return row
}

func firstString(record map[string]any, fields ...string) string {
	for _, f := range fields {
		if s, ok := record[f].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// CBOR integers decode as uint64 or int64 depending on sign.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case uint64:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
