package entity

// Source describes one listing website and how to query its search endpoint.
type Source struct {
	Website         string
	SearchURL       string
	APIKey          string
	DetailBaseURL   string
	City            string
	PropertyType    string
	Operations      []OperationType
	OperationParams map[OperationType]string
}

type SearchQuery struct {
	Source    Source
	Operation OperationType
	Offset    int
	Size      int
}

// SearchPage is one page of discovery results. Total is 0 when the
// endpoint did not report it.
type SearchPage struct {
	Total int
	Refs  []ListingRef
}

// ListingRef points at a detail page. Code may be empty when the search
// result did not carry one.
type ListingRef struct {
	Code    string
	URL     string
	Website string
}
