package reservation

import "context"

// SearchRequest is the body of a search submission.
type SearchRequest struct {
	Criteria      FormattedCriteria `json:"criteria"`
	MarketplaceID string            `json:"marketplace_id"`
	Locale        string            `json:"locale"`
	Geocodes      []string          `json:"geocodes"`
}

// NewSearchRequest formats c and attaches the market parameters.
func NewSearchRequest(c Criteria, m Market) SearchRequest {
	return SearchRequest{
		Criteria:      c.Format(),
		MarketplaceID: m.MarketplaceID,
		Locale:        m.Locale,
		Geocodes:      []string{m.Geocode},
	}
}

// SearchAPI is the booking platform as seen by the search client.
type SearchAPI interface {
	LoginAnonymously(ctx context.Context) (token string, err error)
	SearchToken(ctx context.Context, token string, req SearchRequest) (searchID string, err error)
	SearchRequest(ctx context.Context, token, searchID string) (Page, error)
}
