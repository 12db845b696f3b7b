package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type CommentTargetType string

const (
	TargetVersion CommentTargetType = "Version"
	TargetComment CommentTargetType = "Comment"
)

func (t CommentTargetType) Valid() bool {
	return t == TargetVersion || t == TargetComment
}

func (t *CommentTargetType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if !CommentTargetType(s).Valid() {
		return fmt.Errorf("unknown comment target type %q", s)
	}
	*t = CommentTargetType(s)
	return nil
}

type Comment struct {
	Id         CommentId         `json:"_id"`
	PosterId   *UserId           `json:"poster_id,omitempty"`
	PostedAt   time.Time         `json:"posted_at"`
	TargetType CommentTargetType `json:"target_type"`
	TargetId   uuid.UUID         `json:"target_id"`
	Content    CommentText       `json:"content"`
}

func (c *Comment) PostedBy(id UserId) bool {
	return c.PosterId != nil && *c.PosterId == id
}
