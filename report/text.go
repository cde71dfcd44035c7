// Package report renders and persists the outcome of an evaluation run.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/swdee/go-posescore/evaluate"
)

// WriteText writes one line per pair followed by the evaluation summary
func WriteText(w io.Writer, s evaluate.Summary) error {

	var b strings.Builder

	for _, r := range s.Results {
		if r.Scored() {
			fmt.Fprintf(&b, "%s: OKS = %.4f\n", r.Reference, r.OKS)
			continue
		}

		fmt.Fprintf(&b, "%s: skipped (%s)\n", r.Reference, r.Skip)
	}

	b.WriteString("\nEvaluation Summary:\n")
	fmt.Fprintf(&b, "Pairs: %d scored, %d skipped\n", s.Scored, s.Skipped)

	if st, ok := s.Stats(); ok {
		fmt.Fprintf(&b, "Average OKS Score: %.4f\n", st.Mean)
		fmt.Fprintf(&b, "Std Dev: %.4f  Median: %.4f  Min: %.4f  Max: %.4f\n",
			st.StdDev, st.Median, st.Min, st.Max)
	} else {
		b.WriteString("Average OKS Score: n/a\n")
	}

	scores := s.Scores()
	parts := make([]string, len(scores))

	for i, v := range scores {
		parts[i] = fmt.Sprintf("%.4f", v)
	}

	fmt.Fprintf(&b, "OKS Scores: [%s]\n", strings.Join(parts, ", "))

	_, err := io.WriteString(w, b.String())
	return err
}
