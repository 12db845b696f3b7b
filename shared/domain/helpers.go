package domain

import (
	"fmt"
	"strings"
)

// for debug
func (v *Version) String() string {
	return fmt.Sprintf("[id:%s, thesis:%s, number:%s, state:%s, pattern:%s, remainder:%d]",
		v.Id, v.ThesisId, v.Number(), v.State, v.ReviewState.Pattern, len(v.ReviewState.RemainderReviewerIds))
}

func (t *Thesis) String() string {
	return fmt.Sprintf("[id:%s, owner:%s, title:%s, passed:%t, authors:%d]", t.Id, t.OwnerId, t.Title, t.IsPassed, len(t.AuthorIds))
}

func (c *Comment) String() string {
	return fmt.Sprintf("[id:%s, target:%s/%s, content:%s]", c.Id, c.TargetType, c.TargetId, truncate(c.Content, 32))
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
