package report

import (
	"encoding/json"
	"io"

	"github.com/swdee/go-posescore/evaluate"
)

// PairJSON is the JSON form of a pair result
type PairJSON struct {
	Reference string   `json:"reference"`
	Candidate string   `json:"candidate,omitempty"`
	OKS       *float64 `json:"oks"`
	Area      float64  `json:"area,omitempty"`
	Skip      string   `json:"skip,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// SummaryJSON is the JSON form of a summary.  MeanOKS and Stats are null when
// no pair was scored.
type SummaryJSON struct {
	Pairs   []PairJSON      `json:"pairs"`
	Scored  int             `json:"scored"`
	Skipped int             `json:"skipped"`
	MeanOKS *float64        `json:"mean_oks"`
	Stats   *evaluate.Stats `json:"stats"`
	Scores  []float64       `json:"scores"`
}

// NewSummaryJSON converts a summary to its JSON form
func NewSummaryJSON(s evaluate.Summary) SummaryJSON {

	out := SummaryJSON{
		Pairs:   make([]PairJSON, 0, len(s.Results)),
		Scored:  s.Scored,
		Skipped: s.Skipped,
		Scores:  s.Scores(),
	}

	for _, r := range s.Results {
		p := PairJSON{
			Reference: r.Reference,
			Candidate: r.Candidate,
		}

		if r.Scored() {
			oks := r.OKS
			p.OKS = &oks
			p.Area = r.Area
		} else {
			p.Skip = r.Skip.String()

			if r.Err != nil {
				p.Error = r.Err.Error()
			}
		}

		out.Pairs = append(out.Pairs, p)
	}

	if st, ok := s.Stats(); ok {
		mean := st.Mean
		out.MeanOKS = &mean
		out.Stats = &st
	}

	return out
}

// WriteJSON writes the summary as indented JSON
func WriteJSON(w io.Writer, s evaluate.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewSummaryJSON(s))
}
