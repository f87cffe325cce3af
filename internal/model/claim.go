package model

// SentenceFacts groups the atomic facts extracted from a single response sentence
type SentenceFacts struct {
	Sentence    string   `json:"sentence"`
	AtomicFacts []string `json:"atomic_facts"`
}

// Claim is one atomic fact handed to the rater. Immutable once built.
type Claim struct {
	Sentence          string `json:"sentence"`                   // Sentence the fact was extracted from
	AtomicFact        string `json:"atomic_fact"`                // Fact as extracted
	SelfContainedFact string `json:"self_contained_atomic_fact"` // Fact rewritten to stand without context
}

// Claims flattens sentence groups into claims in response order.
// SelfContainedFact is left empty; relevance classification fills it in.
func Claims(groups []SentenceFacts) []Claim {
	var claims []Claim
	for _, g := range groups {
		for _, fact := range g.AtomicFacts {
			claims = append(claims, Claim{
				Sentence:   g.Sentence,
				AtomicFact: fact,
			})
		}
	}
	return claims
}

// RelevanceData records how the relevance classifier reached its decision
type RelevanceData struct {
	AtomicFact        string `json:"atomic_fact"`
	RevisedFact       string `json:"revised_fact"`
	RevisionResponse  string `json:"revision_model_response,omitempty"`
	RelevanceResponse string `json:"relevance_model_response,omitempty"`
	IsRelevant        bool   `json:"is_relevant"`
}
