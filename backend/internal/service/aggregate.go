package service

import (
	"github.com/itchan-dev/prepublish/shared/domain"
)

type Verdict int

const (
	// pool not empty yet, or nothing to decide
	VerdictPending Verdict = iota
	VerdictAccept
	VerdictReject
	// Editor pattern: only the named editor decides
	VerdictDeferred
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccept:
		return "accept"
	case VerdictReject:
		return "reject"
	case VerdictDeferred:
		return "deferred"
	}
	return "pending"
}

type Decision struct {
	Verdict Verdict
	Editor  domain.UserId // set for VerdictDeferred
}

// Aggregate decides a review round from the version as it is after the last
// pull and the reviews submitted for it. It recomputes from scratch.
func Aggregate(version domain.Version, reviews []domain.Review) Decision {
	if version.State.Kind != domain.Reviewing || len(version.ReviewState.RemainderReviewerIds) > 0 {
		return Decision{Verdict: VerdictPending}
	}
	if version.ReviewState.Pattern.IsEditor() {
		return Decision{Verdict: VerdictDeferred, Editor: version.ReviewState.Pattern.EditorId}
	}
	for _, r := range reviews {
		if !r.Judgement {
			return Decision{Verdict: VerdictReject}
		}
	}
	return Decision{Verdict: VerdictAccept}
}
