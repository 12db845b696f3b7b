package domain

import "time"

type Review struct {
	Id         ReviewId      `json:"_id"`
	VersionId  VersionId     `json:"version_id"`
	ReviewerId *UserId       `json:"reviewer_id,omitempty"`
	ReviewedAt time.Time     `json:"reviewed_at"`
	Judgement  bool          `json:"judgement"`
	Criticism  CriticismText `json:"criticism"`
}

func (r Review) WrittenBy(id UserId) bool {
	return r.ReviewerId != nil && *r.ReviewerId == id
}
