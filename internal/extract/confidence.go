package extract

import (
	"strings"

	"github.com/readlist/readlist-cli/internal/model"
)

// Escalation reasons reported by Policy.Evaluate.
const (
	ReasonLowCount      = "candidate_count_below_minimum"
	ReasonEmptyAuthor   = "empty_author"
	ReasonFieldTooLong  = "field_too_long"
	ReasonTitleHasBy    = "title_contains_by"
	ReasonLowConfidence = "confidence_below_threshold"
)

// Policy decides whether a manual parse is trustworthy or must escalate to
// the model-backed parser.
type Policy struct {
	// MinCandidates is the count below which the parse is suspect.
	MinCandidates int

	// AcceptThreshold is the minimum confidence to accept without escalation.
	AcceptThreshold float64

	// LowCountPenalty multiplies confidence when the count is below minimum.
	LowCountPenalty float64

	// MaxFieldLen bounds plausible title and author lengths. A field longer
	// than this almost always means a failed split.
	MaxFieldLen int
}

// DefaultPolicy returns the evaluation policy tuned against the show-notes
// corpus.
func DefaultPolicy() Policy {
	return Policy{
		MinCandidates:   5,
		AcceptThreshold: 0.6,
		LowCountPenalty: 0.5,
		MaxFieldLen:     300,
	}
}

// Decision is the outcome of evaluating a manual parse.
type Decision struct {
	Accept     bool
	Confidence float64
	Reasons    []string
}

// Evaluate scores a manual parse. Any structural defect (embedded " by " in
// a title, an implausibly long field, a missing author) forces escalation
// regardless of the numeric score.
func (p Policy) Evaluate(cands []model.Candidate) Decision {
	var d Decision

	if len(cands) == 0 {
		d.Reasons = append(d.Reasons, ReasonLowCount)
		return d
	}

	complete := 0
	for _, c := range cands {
		if c.Complete() {
			complete++
		} else {
			d.addReason(ReasonEmptyAuthor)
		}
		if len(c.Title) > p.MaxFieldLen || len(c.Author) > p.MaxFieldLen {
			d.addReason(ReasonFieldTooLong)
		}
		if strings.Contains(c.Title, " by ") {
			d.addReason(ReasonTitleHasBy)
		}
	}

	d.Confidence = float64(complete) / float64(len(cands))
	if len(cands) < p.MinCandidates {
		d.Confidence *= p.LowCountPenalty
		d.addReason(ReasonLowCount)
	}

	if d.Confidence < p.AcceptThreshold {
		d.addReason(ReasonLowConfidence)
	}

	d.Accept = len(d.Reasons) == 0
	return d
}

// addReason records a reason at most once.
func (d *Decision) addReason(reason string) {
	for _, r := range d.Reasons {
		if r == reason {
			return
		}
	}
	d.Reasons = append(d.Reasons, reason)
}
