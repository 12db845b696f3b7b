package service

import (
	"fmt"

	"github.com/itchan-dev/prepublish/shared/domain"
	"github.com/itchan-dev/prepublish/shared/errors"
)

type EventKind int

const (
	// editor opens the review round
	EventOpenReview EventKind = iota
	// the last pooled reviewer submitted under the Reviewer pattern
	EventReviewsComplete
	// editor verdict
	EventAdjudge
	// a sibling with the same major passed
	EventSupersede
)

func (k EventKind) String() string {
	switch k {
	case EventOpenReview:
		return "open_review"
	case EventReviewsComplete:
		return "reviews_complete"
	case EventAdjudge:
		return "adjudge"
	case EventSupersede:
		return "supersede"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

type Event struct {
	Kind      EventKind
	Judgement bool
}

var allStates = []domain.VersionState{
	domain.StateUploaded,
	domain.StateReviewing,
	domain.StateAccepted,
	domain.StateRejected,
	domain.StateHistory,
}

// Transition is the version lifecycle. Illegal pairs are Conflict.
func Transition(from domain.VersionState, ev Event) (domain.VersionState, error) {
	switch ev.Kind {
	case EventOpenReview:
		if from.Kind == domain.Uploaded {
			return domain.StateReviewing, nil
		}
	case EventReviewsComplete:
		if from.Kind == domain.Reviewing {
			return domain.StatePassed(ev.Judgement), nil
		}
	case EventAdjudge:
		switch from.Kind {
		case domain.Uploaded, domain.Reviewing:
			return domain.StatePassed(ev.Judgement), nil
		}
	case EventSupersede:
		return domain.StateHistory, nil
	default:
		return from, errors.Internal("unknown event %s", ev.Kind)
	}
	return from, errors.Conflict("cannot %s a version in state %s", ev.Kind, from)
}

// Sources lists the states from which ev is legal. It is the guard handed to
// conditional updates so the store re-checks the same table.
func Sources(ev Event) []domain.VersionState {
	var out []domain.VersionState
	for _, s := range allStates {
		if _, err := Transition(s, ev); err == nil {
			out = append(out, s)
		}
	}
	return out
}
