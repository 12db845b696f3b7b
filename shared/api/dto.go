package api

import (
	"time"

	"github.com/itchan-dev/prepublish/shared/domain"
)

// Request DTOs

type CreateThesisRequest struct {
	AuthorIds   []domain.UserId `json:"author_ids" validate:"required,min=1,dive,required"`
	Doi         *string         `json:"doi,omitempty" validate:"omitempty,min=1"`
	Title       string          `json:"title" validate:"required,max=512"`
	Abstraction string          `json:"abstraction" validate:"required"`
	Keywords    []string        `json:"keywords" validate:"dive,required,max=64"`
	Languages   []string        `json:"languages" validate:"required,min=1,dive,required,max=16"`
}

func (r CreateThesisRequest) Metadata() domain.ThesisMetadata {
	return domain.ThesisMetadata{
		AuthorIds:   r.AuthorIds,
		Doi:         r.Doi,
		Title:       r.Title,
		Abstraction: r.Abstraction,
		Keywords:    r.Keywords,
		Languages:   r.Languages,
	}
}

// UpdateThesisRequest replaces the metadata wholesale.
type UpdateThesisRequest = CreateThesisRequest

type CommitVersionRequest struct {
	FileId   domain.FileId  `json:"file_id" validate:"required"`
	SourceId *domain.FileId `json:"source_id,omitempty"`
}

type EditVersionRequest struct {
	RemainderReviewerIds []domain.UserId      `json:"remainder_reviewer_ids" validate:"dive,required"`
	Pattern              domain.ReviewPattern `json:"pattern"`
}

type SubmitReviewRequest struct {
	Judgement *bool  `json:"judgement" validate:"required"`
	Criticism string `json:"criticism" validate:"required"`
}

type CommentRequest struct {
	Content string `json:"content" validate:"required,max=10000"`
}

// Response DTOs

type CreatedResponse struct {
	Id string `json:"id"`
}

type WithdrawnResponse struct {
	Deleted int64 `json:"deleted"`
}

type DownloadResponse struct {
	FileId   domain.FileId  `json:"file_id"`
	SourceId *domain.FileId `json:"source_id,omitempty"`
}

// ThesisResponse carries the abstract rendered to sanitized HTML next to its source.
type ThesisResponse struct {
	domain.Thesis
	AbstractionHTML string `json:"abstraction_html"`
}

type VersionResponse struct {
	domain.Version
	State string `json:"state_label"`
}

type ReviewResponse struct {
	domain.Review
	CriticismHTML string `json:"criticism_html"`
}

type CommentResponse struct {
	domain.Comment
	ContentHTML string `json:"content_html"`
}

type HealthResponse struct {
	Status  string    `json:"status"`
	Storage string    `json:"storage,omitempty"`
	Time    time.Time `json:"time"`
}
