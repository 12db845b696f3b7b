package domain

import "github.com/google/uuid"

type (
	UserId    = uuid.UUID
	ThesisId  = uuid.UUID
	VersionId = uuid.UUID
	ReviewId  = uuid.UUID
	CommentId = uuid.UUID
	FileId    = uuid.UUID

	ThesisTitle   = string
	CommentText   = string
	CriticismText = string
)

// NewId returns a fresh random identity for a document.
func NewId() uuid.UUID {
	return uuid.New()
}
