package models

// SourceKind says where a collection's listings came from.
type SourceKind string

const (
	SourceAPI   SourceKind = "api"
	SourceDOM   SourceKind = "dom"
	SourceText  SourceKind = "text"
	SourceError SourceKind = "error"
)

// Collection is the outcome of collecting one search.
type Collection struct {
	Search        string     `json:"search"`
	Source        SourceKind `json:"source"`
	Listings      []Listing  `json:"listings"`
	TotalReported int        `json:"total_reported"`
	Batches       int        `json:"batches"`
	Pages         int        `json:"pages"`
	// Text holds the rendered page text when Source is SourceText.
	Text string `json:"text,omitempty"`
	// Err is the non-fatal error that ended collection early, if any.
	Err error `json:"-"`
}

// ErrorText returns Err as a string for persisted records.
func (c *Collection) ErrorText() string {
	if c == nil || c.Err == nil {
		return ""
	}
	return c.Err.Error()
}
