package domain

import (
	"time"
)

// to iterate thru layers: handler -> service -> storage
type ThesisMetadata struct {
	AuthorIds   []UserId    `json:"author_ids"`
	Doi         *string     `json:"doi,omitempty"`
	Title       ThesisTitle `json:"title"`
	Abstraction string      `json:"abstraction"`
	Keywords    []string    `json:"keywords"`
	Languages   []string    `json:"languages"`
}

type Thesis struct {
	Id        ThesisId  `json:"_id"`
	OwnerId   UserId    `json:"owner_id"`
	IsPassed  bool      `json:"is_passed"`
	CreatedAt time.Time `json:"created_at"`
	ThesisMetadata
}

// HasAuthor reports whether id is listed among the thesis authors.
func (t *Thesis) HasAuthor(id UserId) bool {
	for _, author := range t.AuthorIds {
		if author == id {
			return true
		}
	}
	return false
}

// ThesisFilter narrows the listing of passed theses. Empty fields match everything.
type ThesisFilter struct {
	Keyword  string
	Language string
	Offset   int
	Limit    int
}
