package sync

import "time"

// Item is one client-originated consultation change in a sync batch. All
// fields are optional; absent fields are never written to server state.
type Item struct {
	ClientID        *string `json:"clientId,omitempty"`
	ServerID        *int64  `json:"serverId,omitempty"`
	ClientUpdatedAt *string `json:"clientUpdatedAt,omitempty"`
	ScheduledAt     *string `json:"scheduledAt,omitempty"`
	Symptoms        *string `json:"symptoms,omitempty"`
	ProviderID      *int64  `json:"providerId,omitempty"`
	Specialty       *string `json:"specialty,omitempty"`
}

// Per-item outcomes, one per submitted item in input order.
const (
	StatusCreated            = "created"
	StatusUpdated            = "updated"
	StatusDuplicate          = "duplicate"
	StatusSkippedNewerServer = "skipped_newer_server"
	StatusError              = "error"
)

// ReasonNotFoundOrForbidden deliberately does not distinguish a missing
// record from someone else's record.
const ReasonNotFoundOrForbidden = "not_found_or_forbidden"

// Request is the reconciliation request envelope.
type Request struct {
	Items []Item `json:"items"`
}

// Result reports the outcome of one sync item.
type Result struct {
	ClientID *string `json:"clientId,omitempty"`
	ServerID *int64  `json:"serverId,omitempty"`
	Status   string  `json:"status"`
	Reason   string  `json:"reason,omitempty"`
}

// Response is the reconciliation reply, mirroring the request order.
type Response struct {
	Results []Result `json:"results"`
}

// timeFormats are tried in order when parsing client timestamps. RFC 3339
// covers the Z suffix and explicit offsets; the remaining forms cover clients
// that omit the zone or send a bare date.
var timeFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTime parses a client-supplied timestamp. Unparsable or absent input
// yields nil rather than an error; a bad timestamp must never fail the item.
func parseTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	for _, layout := range timeFormats {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t
		}
	}
	return nil
}
