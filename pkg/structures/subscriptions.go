package structures

// RequestStatus is the lifecycle of a human-originated subscription
// request (§3).
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// ProcessedBy records who/what resolved a subscription request.
const (
	ProcessedByAuto   = "auto"
	ProcessedByManual = "manual"
)

// SubscriptionRequest is one row of subscription_requests (§3).
type SubscriptionRequest struct {
	ID                  int64         `json:"id"`
	EmbyUserID          string        `json:"emby_user_id"`
	TmdbID              string        `json:"tmdb_id"`
	ItemType            ItemType      `json:"item_type"`
	ItemName            string        `json:"item_name"`
	Status              RequestStatus `json:"status"`
	ProcessedBy         string        `json:"processed_by,omitempty"`
	ParentTmdbID        string        `json:"parent_tmdb_id,omitempty"`
	ParsedSeriesName    string        `json:"parsed_series_name,omitempty"`
	ParsedSeasonNumber  *int          `json:"parsed_season_number,omitempty"`

	// RequestToken is a client-facing correlation id, independent of the
	// row's autoincrement id, so a caller can trace a submission through
	// logs without leaking the row's sequence position.
	RequestToken string `json:"request_token,omitempty"`
}
