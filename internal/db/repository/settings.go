package repository

import (
	"context"
)

// LoadAllSettings returns every app_settings row as a flat map suitable
// for config.New, mirroring the teacher's flat-map-to-nested-Config
// pipeline.
func (q *Queries) LoadAllSettings(ctx context.Context) (map[string]interface{}, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT key, value_json FROM app_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]interface{})
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		var decoded interface{}
		if unmarshalJSON(raw, &decoded) == nil {
			out[key] = decoded
		} else {
			out[key] = raw
		}
	}
	return out, rows.Err()
}
