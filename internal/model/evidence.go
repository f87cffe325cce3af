package model

import "strings"

// Search provider names as they appear in reports
const (
	SearchTypeSerper  = "serper"  // Web search (Google via serper.dev)
	SearchTypeSearxNG = "searxng" // Self-hosted meta-search
)

// SearchResult is one dispatched query and the evidence text it returned.
// Results are appended to PastSteps and never modified afterwards.
type SearchResult struct {
	Query      string `json:"query"`
	Result     string `json:"result"`
	SearchType string `json:"search_type"`
}

// PastSteps is the ordered evidence log for a single claim
type PastSteps struct {
	Searches        []SearchResult `json:"searches"`
	SearchTypesUsed []string       `json:"search_types_used"`
}

// Append records a new search and updates the set of providers used
func (p *PastSteps) Append(r SearchResult) {
	p.Searches = append(p.Searches, r)
	for _, t := range p.SearchTypesUsed {
		if t == r.SearchType {
			return
		}
	}
	p.SearchTypesUsed = append(p.SearchTypesUsed, r.SearchType)
}

// Knowledge joins all results in chronological order, one per line
func (p PastSteps) Knowledge() string {
	results := make([]string, 0, len(p.Searches))
	for _, s := range p.Searches {
		results = append(results, s.Result)
	}
	return strings.Join(results, "\n")
}

// Len returns the number of searches performed
func (p PastSteps) Len() int {
	return len(p.Searches)
}
