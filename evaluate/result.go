package evaluate

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SkipReason records why a pair was not scored
type SkipReason int

const (
	// NotSkipped marks a scored pair
	NotSkipped SkipReason = iota
	// SkipMissingCandidate marks a reference with no generated image
	SkipMissingCandidate
	// SkipNoKeypoints marks a reference image in which no keypoints were
	// detected, so no normalization area exists
	SkipNoKeypoints
	// SkipDetectionFailed marks an image the extractor could not process
	SkipDetectionFailed
	// SkipShapeMismatch marks keypoint sets of different lengths
	SkipShapeMismatch
)

// String returns a readable description of the skip reason
func (r SkipReason) String() string {
	switch r {
	case NotSkipped:
		return "scored"
	case SkipMissingCandidate:
		return "missing candidate"
	case SkipNoKeypoints:
		return "no keypoints detected"
	case SkipDetectionFailed:
		return "detection failed"
	case SkipShapeMismatch:
		return "shape mismatch"
	default:
		return fmt.Sprintf("unknown skip reason %d", int(r))
	}
}

// MarshalText encodes the reason as its description
func (r SkipReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// PairResult is the outcome of comparing one reference image against its
// candidate
type PairResult struct {
	// Index is the position of the reference in the enumeration order
	Index int
	// Reference is the name of the reference image
	Reference string
	// Candidate is the name of the matching generated image, empty when
	// missing
	Candidate string
	// OKS is the similarity score, only meaningful when Skip is NotSkipped
	OKS float64
	// Area is the bounding box area of the reference keypoints
	Area float64
	// Skip is the reason the pair was not scored
	Skip SkipReason
	// Err is the error that caused the skip
	Err error
}

// Scored reports if the pair produced an OKS score
func (r PairResult) Scored() bool {
	return r.Skip == NotSkipped
}

// Summary is the outcome of an evaluation run
type Summary struct {
	// Results holds every pair in reference enumeration order
	Results []PairResult
	// Scored is the number of pairs with an OKS score
	Scored int
	// Skipped is the number of pairs that were skipped
	Skipped int
}

// Stats are the spread statistics of the scored pairs
type Stats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// NewSummary collates pair results into a Summary
func NewSummary(results []PairResult) Summary {

	s := Summary{Results: results}

	for _, r := range results {
		if r.Scored() {
			s.Scored++
		} else {
			s.Skipped++
		}
	}

	return s
}

// Scores returns the OKS of every scored pair in reference order
func (s Summary) Scores() []float64 {

	scores := make([]float64, 0, s.Scored)

	for _, r := range s.Results {
		if r.Scored() {
			scores = append(scores, r.OKS)
		}
	}

	return scores
}

// Mean returns the average OKS over the scored pairs.  When no pair was
// scored the mean is undefined and ok is false.
func (s Summary) Mean() (mean float64, ok bool) {

	scores := s.Scores()

	if len(scores) == 0 {
		return 0, false
	}

	return stat.Mean(scores, nil), true
}

// Stats returns the spread statistics of the scored pairs, ok is false when
// no pair was scored
func (s Summary) Stats() (Stats, bool) {

	scores := s.Scores()

	if len(scores) == 0 {
		return Stats{}, false
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	return Stats{
		Mean:   stat.Mean(scores, nil),
		StdDev: stat.PopStdDev(scores, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Min:    floats.Min(scores),
		Max:    floats.Max(scores),
	}, true
}

// SkippedResults returns the pairs that were not scored
func (s Summary) SkippedResults() []PairResult {

	var out []PairResult

	for _, r := range s.Results {
		if !r.Scored() {
			out = append(out, r)
		}
	}

	return out
}
