package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/kestrelmedia/archivist/pkg/structures"
)

const subscriptionColumns = `id, emby_user_id, tmdb_id, item_type, item_name, status, processed_by,
	parent_tmdb_id, parsed_series_name, parsed_season_number, request_token`

func scanSubscriptionRequest(row rowScanner) (*structures.SubscriptionRequest, error) {
	var (
		r                                        structures.SubscriptionRequest
		parentTmdbID, parsedSeriesName            sql.NullString
		parsedSeasonNumber                        sql.NullInt64
	)
	if err := row.Scan(
		&r.ID, &r.EmbyUserID, &r.TmdbID, &r.ItemType, &r.ItemName, &r.Status, &r.ProcessedBy,
		&parentTmdbID, &parsedSeriesName, &parsedSeasonNumber, &r.RequestToken,
	); err != nil {
		return nil, err
	}
	r.ParentTmdbID = parentTmdbID.String
	r.ParsedSeriesName = parsedSeriesName.String
	if parsedSeasonNumber.Valid {
		n := int(parsedSeasonNumber.Int64)
		r.ParsedSeasonNumber = &n
	}
	return &r, nil
}

// FindActiveRequestByTmdbID implements the §4.4 idempotency rule: if the
// same tmdb_id is already pending or approved globally, the caller must
// return the existing status rather than creating a duplicate.
func (q *Queries) FindActiveRequestByTmdbID(ctx context.Context, tmdbID string) (*structures.SubscriptionRequest, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+subscriptionColumns+` FROM subscription_requests
		WHERE tmdb_id = ? AND status IN (?, ?) ORDER BY id DESC LIMIT 1`,
		tmdbID, structures.RequestPending, structures.RequestApproved)
	r, err := scanSubscriptionRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// InsertSubscriptionRequest creates a new row and returns its id. A
// RequestToken is stamped if the caller didn't already set one, giving
// every request a stable id a client can log and trace independent of
// the row's autoincrement position.
func (q *Queries) InsertSubscriptionRequest(ctx context.Context, r *structures.SubscriptionRequest) (int64, error) {
	if r.RequestToken == "" {
		r.RequestToken = uuid.NewString()
	}
	res, err := q.db.ExecContext(ctx, `INSERT INTO subscription_requests
		(emby_user_id, tmdb_id, item_type, item_name, status, processed_by, parent_tmdb_id, parsed_series_name, parsed_season_number, request_token)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		r.EmbyUserID, r.TmdbID, r.ItemType, r.ItemName, r.Status, r.ProcessedBy,
		nullString(r.ParentTmdbID), nullString(r.ParsedSeriesName), r.ParsedSeasonNumber, r.RequestToken,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
