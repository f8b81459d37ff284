package reservation

// Result is one venue returned by a search page. The client passes it
// through untouched.
type Result struct {
	Post         Post         `json:"post"`
	Availability Availability `json:"availability"`
}

type Post struct {
	Slug      string  `json:"slug"`
	VenueName string  `json:"venue_name"`
	Score     float64 `json:"score"`
}

type Availability struct {
	Page struct {
		Title    string `json:"title"`
		Subtitle string `json:"subtitle"`
	} `json:"page"`
	FormattedRequest struct {
		Date    string `json:"date"`
		Time    string `json:"time"`
		Size    string `json:"size"`
		Service string `json:"service"`
	} `json:"formattedRequest"`
	Recommended []RecommendedOption `json:"recommended"`
}

type RecommendedOption struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Text   string `json:"text"`
	Time   string `json:"time"`
}

// Page is one round-trip worth of results for a search id.
type Page struct {
	Posts []Result `json:"posts"`
	Total int      `json:"total"`
}
