package ranking

import (
	"sort"
	"time"
)

// Candidate wraps a record fetched from the entity store. Order is the
// position in the fetch and acts as the final tie breaker.
type Candidate[T any] struct {
	Item    T
	Recency time.Time
	Order   int
}

// Evaluation is what a domain extractor reports for one candidate. Err is set
// when an enrichment step failed and the signals were computed without it.
type Evaluation struct {
	Signals []Signal
	Err     error
}

// Result is one scored candidate.
type Result[T any] struct {
	Item       T
	Score      float64
	Reasons    []string
	Signals    []Signal
	Confidence Confidence
	Err        error
	Recency    time.Time
	Order      int
}

// Ranked is the ordered outcome of a pipeline run.
type Ranked[T any] struct {
	Results   []Result[T]
	Evaluated int
	Matched   int
	Degraded  int
}

// Policy parameterizes a pipeline run.
type Policy struct {
	// Accept decides whether a total qualifies. Nil accepts everything.
	Accept func(total float64) bool
	// Ceiling clamps totals from above. Zero disables clamping.
	Ceiling float64
	// Tiers assigns a confidence bucket when set.
	Tiers *Tiers
	// MaxResults truncates the list. Zero or negative keeps all results.
	MaxResults int
}

// AtLeast accepts totals greater than or equal to threshold.
func AtLeast(threshold float64) func(float64) bool {
	return func(total float64) bool { return total >= threshold }
}

// Above accepts totals strictly greater than threshold.
func Above(threshold float64) func(float64) bool {
	return func(total float64) bool { return total > threshold }
}

// Rank scores every candidate with extract, filters by policy and returns the
// survivors sorted by score desc, then recency desc, then fetch order.
func Rank[T any](candidates []Candidate[T], extract func(T) Evaluation, policy Policy) Ranked[T] {
	ranked := Ranked[T]{Evaluated: len(candidates)}
	results := make([]Result[T], 0, len(candidates))

	for _, cand := range candidates {
		eval := extract(cand.Item)
		if eval.Err != nil {
			ranked.Degraded++
		}

		score := Tally(eval.Signals)
		total := score.Total
		if policy.Ceiling > 0 && total > policy.Ceiling {
			total = policy.Ceiling
		}

		if policy.Accept != nil && !policy.Accept(total) {
			continue
		}

		res := Result[T]{
			Item:    cand.Item,
			Score:   total,
			Reasons: score.Reasons,
			Signals: score.Signals,
			Err:     eval.Err,
			Recency: cand.Recency,
			Order:   cand.Order,
		}
		if policy.Tiers != nil {
			res.Confidence = policy.Tiers.Classify(total)
		}
		results = append(results, res)
	}

	ranked.Matched = len(results)
	SortResults(results)

	if policy.MaxResults > 0 && len(results) > policy.MaxResults {
		results = results[:policy.MaxResults]
	}
	ranked.Results = results
	return ranked
}

// SortResults orders results by score desc, recency desc, fetch order asc.
func SortResults[T any](results []Result[T]) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Recency.Equal(b.Recency) {
			return a.Recency.After(b.Recency)
		}
		return a.Order < b.Order
	})
}
