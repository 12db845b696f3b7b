package service

import (
	"github.com/itchan-dev/prepublish/shared/domain"
)

// Policy decides read access over already loaded documents. It does no I/O.
type Policy struct{}

// related: editor, owner or author of the thesis
func (Policy) related(actor domain.Actor, thesis *domain.Thesis) bool {
	if actor.IsEditor() {
		return true
	}
	if actor.IsAnonymous() || thesis == nil {
		return false
	}
	return thesis.OwnerId == actor.Id || thesis.HasAuthor(actor.Id)
}

// public reports whether the state alone makes a version readable by anyone.
func (Policy) public(v *domain.Version) bool {
	return v.State.Kind == domain.History || v.State.IsAccepted()
}

func (p Policy) CanViewVersion(actor domain.Actor, thesis *domain.Thesis, v *domain.Version) bool {
	if p.related(actor, thesis) {
		return true
	}
	if !actor.IsAnonymous() && v.UploadedBy(actor.Id) {
		return true
	}
	if p.public(v) {
		return true
	}
	if v.State.Kind == domain.Reviewing && !actor.IsAnonymous() {
		return v.ReviewState.Awaits(actor.Id)
	}
	return false
}

// CanViewThesis: once any version reached major >= 1 the thesis is public,
// otherwise it inherits the policy of its latest version.
func (p Policy) CanViewThesis(actor domain.Actor, thesis *domain.Thesis, latest *domain.Version) bool {
	if p.related(actor, thesis) {
		return true
	}
	if latest == nil {
		return false
	}
	if latest.MajorNum >= 1 {
		return true
	}
	return p.CanViewVersion(actor, thesis, latest)
}

// CanViewReview follows the policy of the reviewed version. The reviewer and
// moderators always see it.
func (p Policy) CanViewReview(actor domain.Actor, thesis *domain.Thesis, v *domain.Version, r *domain.Review) bool {
	if !actor.IsAnonymous() && r.WrittenBy(actor.Id) {
		return true
	}
	if actor.Permitted(domain.CapModerating) {
		return true
	}
	return p.CanViewVersion(actor, thesis, v)
}
