package domain

import "fmt"

// Evidence is one weighted classification signal for a funder. Score is the
// degree to which the criterion held, in [0,1]; Weight is how much the
// criterion counts relative to the others evaluated.
type Evidence struct {
	Criterion string
	Score     float64
	Weight    float64
}

// CombineEvidence reduces an evidence list to a single confidence by
// weighted average over the weight actually evaluated. Returns 0 for an
// empty list. Pure function, kept separate from evidence gathering so the
// reduction is testable on its own.
func CombineEvidence(evidence []Evidence) float64 {
	var weighted, total float64
	for _, e := range evidence {
		weighted += e.Score * e.Weight
		total += e.Weight
	}
	if total == 0 {
		return 0
	}
	confidence := weighted / total
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// ClassificationResult is the outcome of funder detection for one file.
// Funder is empty exactly when no profile reached its threshold; Reason then
// explains why in human-readable terms.
type ClassificationResult struct {
	Funder     string
	Confidence float64
	MatchedIDs []string
	NewIDs     []string
	Evidence   []Evidence
	Reason     string
}

// Classified reports whether a funder was selected.
func (c *ClassificationResult) Classified() bool {
	return c.Funder != ""
}

// String summarizes the result for logs.
func (c *ClassificationResult) String() string {
	if !c.Classified() {
		return fmt.Sprintf("unclassified (%s)", c.Reason)
	}
	return fmt.Sprintf("%s (confidence %.2f, %d known IDs, %d new)",
		c.Funder, c.Confidence, len(c.MatchedIDs), len(c.NewIDs))
}
