package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Verdict labels
const (
	LabelSupported    = "Supported"
	LabelNotSupported = "Not Supported"
	LabelIrrelevant   = "Irrelevant"
)

// Labels lists the verdict labels that are always present in report counts
func Labels() []string {
	return []string{LabelSupported, LabelIrrelevant, LabelNotSupported}
}

// FinalAnswer is the rater's parsed verdict together with the raw model output
type FinalAnswer struct {
	Response string `json:"response"`
	Answer   string `json:"answer"`
}

// CheckedStatement is the per-claim record written to the report
type CheckedStatement struct {
	Sentence                string         `json:"sentence"`
	AtomicFact              string         `json:"atomic_fact"`
	SelfContainedAtomicFact string         `json:"self_contained_atomic_fact"`
	RelevanceData           *RelevanceData `json:"relevance_data"`
	RateData                *FinalAnswer   `json:"rate_data"`
	Annotation              string         `json:"annotation"`
	SearchTypes             []string       `json:"search_types_used"`
}

// ClaimFailure records a claim that was dropped after exhausting its retries
type ClaimFailure struct {
	Sentence   string `json:"sentence"`
	AtomicFact string `json:"atomic_fact"`
	Attempts   int    `json:"attempts"`
	Error      string `json:"error"`
}

// Report is the per-response evaluation result. Read-only after construction.
type Report struct {
	RunID       string    `json:"run_id,omitempty"`
	EvaluatedAt time.Time `json:"evaluated_at"`
	Prompt      string    `json:"prompt"`
	Response    string    `json:"response"`
	SearchType  string    `json:"search_type"`

	AllAtomicFacts []SentenceFacts `json:"all_atomic_facts"`
	NumClaims      int             `json:"num_claims"`

	CheckedStatements []CheckedStatement `json:"checked_statements"`
	RevisedFactsAll   []RelevanceData    `json:"revised_fact_jsonified_all"`
	PastStepsAll      []PastSteps        `json:"past_steps_jsonified_all"`
	SearchTypesUsed   []string           `json:"search_types_used"`

	Failures []ClaimFailure `json:"failures,omitempty"`

	// Counts holds one entry per verdict label; marshaled as top-level keys
	Counts map[string]int `json:"-"`
}

// reportAlias has Report's fields without its methods
type reportAlias Report

// MarshalJSON flattens label counts into the top-level object
func (r Report) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(reportAlias(r))
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}

	for label, count := range r.Counts {
		if _, exists := fields[label]; exists {
			return nil, fmt.Errorf("label %q collides with report field", label)
		}
		raw, err := json.Marshal(count)
		if err != nil {
			return nil, err
		}
		fields[label] = raw
	}

	return json.Marshal(fields)
}

// UnmarshalJSON restores label counts from the top-level integer keys
func (r *Report) UnmarshalJSON(data []byte) error {
	var alias reportAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	known := reportFieldNames()
	counts := make(map[string]int)
	for key, raw := range fields {
		if known[key] {
			continue
		}
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("label count %q: %w", key, err)
		}
		counts[key] = n
	}

	*r = Report(alias)
	r.Counts = counts
	return nil
}

func reportFieldNames() map[string]bool {
	return map[string]bool{
		"run_id": true, "evaluated_at": true, "prompt": true, "response": true,
		"search_type": true, "all_atomic_facts": true, "num_claims": true,
		"checked_statements": true, "revised_fact_jsonified_all": true,
		"past_steps_jsonified_all": true, "search_types_used": true, "failures": true,
	}
}

// Count returns the number of statements annotated with label
func (r *Report) Count(label string) int {
	return r.Counts[label]
}

// SortedLabels returns count keys with the standard labels first
func (r *Report) SortedLabels() []string {
	labels := Labels()
	var extra []string
	for label := range r.Counts {
		if !isStandardLabel(label) {
			extra = append(extra, label)
		}
	}
	sort.Strings(extra)
	return append(labels, extra...)
}

func isStandardLabel(label string) bool {
	for _, l := range Labels() {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}
