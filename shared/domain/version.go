package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type VersionStateKind string

const (
	Uploaded  VersionStateKind = "Uploaded"
	Reviewing VersionStateKind = "Reviewing"
	Passed    VersionStateKind = "Passed"
	History   VersionStateKind = "History"
)

// VersionState is a closed sum: Uploaded | Reviewing | Passed(judgement) | History.
// Judgement is only meaningful for Passed.
type VersionState struct {
	Kind      VersionStateKind
	Judgement bool
}

var (
	StateUploaded  = VersionState{Kind: Uploaded}
	StateReviewing = VersionState{Kind: Reviewing}
	StateAccepted  = VersionState{Kind: Passed, Judgement: true}
	StateRejected  = VersionState{Kind: Passed, Judgement: false}
	StateHistory   = VersionState{Kind: History}
)

func StatePassed(judgement bool) VersionState {
	return VersionState{Kind: Passed, Judgement: judgement}
}

func (s VersionState) IsAccepted() bool { return s.Kind == Passed && s.Judgement }
func (s VersionState) IsRejected() bool { return s.Kind == Passed && !s.Judgement }

// Decided is true once the version carries a verdict or has been superseded.
func (s VersionState) Decided() bool { return s.Kind == Passed || s.Kind == History }

func (s VersionState) String() string {
	if s.Kind == Passed {
		return fmt.Sprintf("Passed(%t)", s.Judgement)
	}
	return string(s.Kind)
}

// ParseVersionState is the inverse of String.
func ParseVersionState(s string) (VersionState, error) {
	switch s {
	case "Uploaded":
		return StateUploaded, nil
	case "Reviewing":
		return StateReviewing, nil
	case "Passed(true)":
		return StateAccepted, nil
	case "Passed(false)":
		return StateRejected, nil
	case "History":
		return StateHistory, nil
	}
	return VersionState{}, fmt.Errorf("unknown version state %q", s)
}

// Serialized externally tagged: "Uploaded", "Reviewing", {"Passed": true}, "History".
func (s VersionState) MarshalJSON() ([]byte, error) {
	if s.Kind == Passed {
		return json.Marshal(map[string]bool{string(Passed): s.Judgement})
	}
	if s.Kind == "" {
		return json.Marshal(string(Uploaded))
	}
	return json.Marshal(string(s.Kind))
}

func (s *VersionState) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		switch VersionStateKind(tag) {
		case Uploaded, Reviewing, History:
			*s = VersionState{Kind: VersionStateKind(tag)}
			return nil
		}
		return fmt.Errorf("unknown version state %q", tag)
	}
	var tagged map[string]bool
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("invalid version state: %w", err)
	}
	judgement, ok := tagged[string(Passed)]
	if !ok || len(tagged) != 1 {
		return fmt.Errorf("invalid version state %s", string(data))
	}
	*s = StatePassed(judgement)
	return nil
}

type ReviewPatternKind string

const (
	PatternEditor   ReviewPatternKind = "Editor"
	PatternReviewer ReviewPatternKind = "Reviewer"
)

// ReviewPattern is Editor(editorId) or Reviewer. The zero value is Reviewer.
type ReviewPattern struct {
	Kind     ReviewPatternKind
	EditorId UserId
}

func EditorPattern(editor UserId) ReviewPattern {
	return ReviewPattern{Kind: PatternEditor, EditorId: editor}
}

func ReviewerPattern() ReviewPattern {
	return ReviewPattern{Kind: PatternReviewer}
}

func (p ReviewPattern) IsEditor() bool { return p.Kind == PatternEditor }

func (p ReviewPattern) String() string {
	if p.IsEditor() {
		return fmt.Sprintf("Editor(%s)", p.EditorId)
	}
	return string(PatternReviewer)
}

func (p ReviewPattern) MarshalJSON() ([]byte, error) {
	if p.IsEditor() {
		return json.Marshal(map[string]UserId{string(PatternEditor): p.EditorId})
	}
	return json.Marshal(string(PatternReviewer))
}

func (p *ReviewPattern) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		switch ReviewPatternKind(tag) {
		case PatternReviewer:
			*p = ReviewerPattern()
			return nil
		case PatternEditor:
			// editor id is bound by the service to the calling editor
			*p = ReviewPattern{Kind: PatternEditor}
			return nil
		}
		return fmt.Errorf("unknown review pattern %q", tag)
	}
	var tagged map[string]UserId
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("invalid review pattern: %w", err)
	}
	editor, ok := tagged[string(PatternEditor)]
	if !ok || len(tagged) != 1 {
		return fmt.Errorf("invalid review pattern %s", string(data))
	}
	*p = EditorPattern(editor)
	return nil
}

type ReviewState struct {
	RemainderReviewerIds []UserId      `json:"remainder_reviewer_ids"`
	Pattern              ReviewPattern `json:"pattern"`
}

// Awaits reports whether reviewer is still in the remainder pool.
func (rs ReviewState) Awaits(reviewer UserId) bool {
	for _, id := range rs.RemainderReviewerIds {
		if id == reviewer {
			return true
		}
	}
	return false
}

// FileRefs points at the blobs of a version. Upload and streaming live outside this service.
type FileRefs struct {
	FileId   FileId  `json:"file_id"`
	SourceId *FileId `json:"source_id,omitempty"`
}

type Version struct {
	Id          VersionId    `json:"_id"`
	ThesisId    ThesisId     `json:"thesis_id"`
	UploadedAt  time.Time    `json:"uploaded_at"`
	UploaderId  *UserId      `json:"uploader_id,omitempty"`
	MajorNum    int          `json:"major_num"`
	MinorNum    int          `json:"minor_num"`
	State       VersionState `json:"state"`
	ReviewState ReviewState  `json:"review_state"`
	Downloads   int          `json:"downloads"`
	FileRefs
}

func (v Version) UploadedBy(id UserId) bool {
	return v.UploaderId != nil && *v.UploaderId == id
}

// Number renders the version as "major.minor".
func (v Version) Number() string {
	return fmt.Sprintf("%d.%d", v.MajorNum, v.MinorNum)
}
