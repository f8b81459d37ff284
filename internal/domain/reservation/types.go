package reservation

import "strings"

// Criteria is what a diner asks for: party size, day and time of day.
// Date is YYYY-MM-DD and Time is HH:MM, as entered.
type Criteria struct {
	Size string `json:"size"`
	Date string `json:"date"`
	Time string `json:"time"`
}

// FormattedCriteria is the wire form of Criteria.
type FormattedCriteria struct {
	Date string `json:"date"`
	Time string `json:"time"`
	Size string `json:"size"`
}

// Format strips the separators the booking API does not accept.
func (c Criteria) Format() FormattedCriteria {
	return FormattedCriteria{
		Date: strings.ReplaceAll(c.Date, "-", ""),
		Time: strings.ReplaceAll(c.Time, ":", ""),
		Size: c.Size,
	}
}

// Market holds the fixed marketplace parameters sent with every search.
type Market struct {
	MarketplaceID string
	Locale        string
	Geocode       string
}
