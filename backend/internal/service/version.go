package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/prepublish/shared/domain"
	"github.com/itchan-dev/prepublish/shared/errors"
	"github.com/itchan-dev/prepublish/shared/logger"
)

type VersionService interface {
	Commit(ctx context.Context, actor domain.Actor, thesisId domain.ThesisId, files domain.FileRefs) (domain.VersionId, error)
	Get(ctx context.Context, actor domain.Actor, id domain.VersionId) (domain.Version, error)
	Edit(ctx context.Context, actor domain.Actor, id domain.VersionId, rs domain.ReviewState) (domain.Version, error)
	SubmitReview(ctx context.Context, actor domain.Actor, id domain.VersionId, judgement bool, criticism domain.CriticismText) (domain.ReviewId, error)
	Adjudge(ctx context.Context, actor domain.Actor, id domain.VersionId, judgement bool) (domain.Version, error)
	Comment(ctx context.Context, actor domain.Actor, id domain.VersionId, content domain.CommentText) (domain.CommentId, error)
	Comments(ctx context.Context, actor domain.Actor, id domain.VersionId) ([]domain.Comment, error)
	Download(ctx context.Context, actor domain.Actor, id domain.VersionId) (domain.FileRefs, error)
	Withdraw(ctx context.Context, actor domain.Actor, id domain.VersionId) (int64, error)
	Reviews(ctx context.Context, actor domain.Actor, id domain.VersionId) ([]domain.Review, error)
}

type VersionDependencies interface {
	VersionStorage
	GetThesis(ctx context.Context, id domain.ThesisId) (domain.Thesis, error)
	MarkThesisPassed(ctx context.Context, id domain.ThesisId) error
	CreateReview(ctx context.Context, review domain.Review) error
	ReviewsOfVersion(ctx context.Context, versionId domain.VersionId) ([]domain.Review, error)
	DeleteReview(ctx context.Context, id domain.ReviewId) (int64, error)
	CreateComment(ctx context.Context, comment domain.Comment) error
	CommentsOf(ctx context.Context, targetType domain.CommentTargetType, targetId uuid.UUID) ([]domain.Comment, error)
}

type Version struct {
	storage  VersionDependencies
	withdraw *Withdrawer
	policy   Policy
}

func NewVersion(storage VersionDependencies, withdraw *Withdrawer) *Version {
	return &Version{storage: storage, withdraw: withdraw}
}

// load returns the version with its thesis. A version whose thesis is gone is
// reported as missing.
func (s *Version) load(ctx context.Context, id domain.VersionId) (domain.Version, domain.Thesis, error) {
	version, err := s.storage.GetVersion(ctx, id)
	if err != nil {
		return domain.Version{}, domain.Thesis{}, err
	}
	thesis, err := s.storage.GetThesis(ctx, version.ThesisId)
	if err != nil {
		if errors.IsNotFound(err) {
			return domain.Version{}, domain.Thesis{}, errors.NotFound("version %s not found", id)
		}
		return domain.Version{}, domain.Thesis{}, err
	}
	return version, thesis, nil
}

// Commit uploads the next minor version: (latest.major, latest.minor+1), or 0.0 for the first one.
func (s *Version) Commit(ctx context.Context, actor domain.Actor, thesisId domain.ThesisId, files domain.FileRefs) (domain.VersionId, error) {
	if files.FileId == uuid.Nil {
		return domain.VersionId{}, errors.BadRequest("file_id is required")
	}
	thesis, err := s.storage.GetThesis(ctx, thesisId)
	if err != nil {
		return domain.VersionId{}, err
	}
	if actor.IsAnonymous() || !thesis.HasAuthor(actor.Id) {
		return domain.VersionId{}, errors.Forbidden("only authors may commit to thesis %s", thesisId)
	}

	latest, err := s.storage.LatestVersion(ctx, thesisId)
	if err != nil {
		return domain.VersionId{}, err
	}
	major, minor := 0, 0
	if latest != nil {
		major, minor = latest.MajorNum, latest.MinorNum+1
	}

	uploader := actor.Id
	version := domain.Version{
		Id:          domain.NewId(),
		ThesisId:    thesisId,
		UploadedAt:  time.Now().UTC(),
		UploaderId:  &uploader,
		MajorNum:    major,
		MinorNum:    minor,
		State:       domain.StateUploaded,
		ReviewState: domain.ReviewState{RemainderReviewerIds: []domain.UserId{}, Pattern: domain.ReviewerPattern()},
		FileRefs:    files,
	}
	if err := s.storage.CreateVersion(ctx, version); err != nil {
		return domain.VersionId{}, err
	}
	logger.Component("version").Info("version committed",
		"thesis_id", thesisId, "version_id", version.Id, "number", version.Number())
	return version.Id, nil
}

func (s *Version) Get(ctx context.Context, actor domain.Actor, id domain.VersionId) (domain.Version, error) {
	version, thesis, err := s.load(ctx, id)
	if err != nil {
		return domain.Version{}, err
	}
	if !s.policy.CanViewVersion(actor, &thesis, &version) {
		return domain.Version{}, errors.Forbidden("version %s is not visible", id)
	}
	return version, nil
}

// Edit opens the review round. An Editor pattern is always bound to the calling editor.
func (s *Version) Edit(ctx context.Context, actor domain.Actor, id domain.VersionId, rs domain.ReviewState) (domain.Version, error) {
	if !actor.IsEditor() {
		return domain.Version{}, errors.Forbidden("only editors may open a review")
	}
	version, err := s.storage.GetVersion(ctx, id)
	if err != nil {
		return domain.Version{}, err
	}
	if _, err := Transition(version.State, Event{Kind: EventOpenReview}); err != nil {
		return domain.Version{}, err
	}

	pool := dedupe(rs.RemainderReviewerIds)
	pattern := rs.Pattern
	if pattern.IsEditor() {
		pattern = domain.EditorPattern(actor.Id)
	} else {
		pattern = domain.ReviewerPattern()
		if len(pool) == 0 {
			return domain.Version{}, errors.BadRequest("the Reviewer pattern needs at least one reviewer")
		}
	}

	updated, err := s.storage.OpenReview(ctx, id, domain.ReviewState{RemainderReviewerIds: pool, Pattern: pattern})
	if err != nil {
		return domain.Version{}, err
	}
	logger.Component("version").Info("review opened",
		"version_id", id, "pattern", pattern.String(), "reviewers", len(pool), "editor_id", actor.Id)
	return updated, nil
}

func dedupe(ids []domain.UserId) []domain.UserId {
	seen := make(map[domain.UserId]struct{}, len(ids))
	out := make([]domain.UserId, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SubmitReview records the review, pulls the reviewer from the pool and, if
// the pool emptied under the Reviewer pattern, decides the version.
// Only the caller whose pull empties the pool sees an empty pool, so there is
// exactly one decider per round.
// A reviewer who is still awaited but already has a stored review resumes that
// submission; the stored judgement counts.
func (s *Version) SubmitReview(ctx context.Context, actor domain.Actor, id domain.VersionId, judgement bool, criticism domain.CriticismText) (domain.ReviewId, error) {
	log := logger.Component("version")
	if actor.IsAnonymous() {
		return domain.ReviewId{}, errors.Forbidden("sign in to review")
	}
	if strings.TrimSpace(criticism) == "" {
		return domain.ReviewId{}, errors.BadRequest("criticism is required")
	}
	version, err := s.storage.GetVersion(ctx, id)
	if err != nil {
		return domain.ReviewId{}, err
	}
	if !version.ReviewState.Awaits(actor.Id) {
		return domain.ReviewId{}, errors.Forbidden("you are not an awaited reviewer of version %s", id)
	}
	if version.State.Kind != domain.Reviewing {
		return domain.ReviewId{}, errors.Conflict("version %s is %s, not under review", id, version.State)
	}

	reviewer := actor.Id
	review := domain.Review{
		Id:         domain.NewId(),
		VersionId:  id,
		ReviewerId: &reviewer,
		ReviewedAt: time.Now().UTC(),
		Judgement:  judgement,
		Criticism:  criticism,
	}
	inserted := true
	if err := s.storage.CreateReview(ctx, review); err != nil {
		if !errors.IsConflict(err) {
			return domain.ReviewId{}, err
		}
		// still awaited with a stored review: an earlier submission stopped before its pull
		stored, err := s.storedReview(ctx, id, actor.Id)
		if err != nil {
			return domain.ReviewId{}, err
		}
		log.Warn("resuming interrupted review submission", "version_id", id, "review_id", stored.Id)
		review, inserted = stored, false
	}

	pulled, err := s.storage.PullReviewer(ctx, id, actor.Id)
	if err != nil {
		if errors.IsConflict(err) {
			return domain.ReviewId{}, s.lostPull(ctx, id, actor.Id, review.Id, inserted)
		}
		return domain.ReviewId{}, err
	}
	log.Info("review submitted", "version_id", id, "review_id", review.Id,
		"judgement", review.Judgement, "remaining", len(pulled.ReviewState.RemainderReviewerIds))

	if len(pulled.ReviewState.RemainderReviewerIds) > 0 || pulled.ReviewState.Pattern.IsEditor() {
		return review.Id, nil
	}
	if _, err := s.settle(ctx, pulled, "reviews"); err != nil {
		if errors.IsConflict(err) {
			// an editor decided first
			log.Warn("review round already decided", "version_id", id, "error", err)
			return review.Id, nil
		}
		return review.Id, err
	}
	return review.Id, nil
}

// storedReview finds the review reviewer already stored for the version.
func (s *Version) storedReview(ctx context.Context, id domain.VersionId, reviewer domain.UserId) (domain.Review, error) {
	reviews, err := s.storage.ReviewsOfVersion(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}
	for _, r := range reviews {
		if r.WrittenBy(reviewer) {
			return r, nil
		}
	}
	return domain.Review{}, errors.Conflict("review of version %s by %s changed concurrently", id, reviewer)
}

// lostPull classifies a failed pull. A reviewer who is no longer awaited was
// pulled by another submission of their own, which counts the stored review.
// Otherwise the round closed and a review inserted by this call is dropped.
func (s *Version) lostPull(ctx context.Context, id domain.VersionId, reviewer domain.UserId, reviewId domain.ReviewId, inserted bool) error {
	current, err := s.storage.GetVersion(ctx, id)
	if err != nil {
		return err
	}
	if !current.ReviewState.Awaits(reviewer) {
		return errors.Forbidden("you already reviewed version %s", id)
	}
	if inserted {
		if _, err := s.storage.DeleteReview(ctx, reviewId); err != nil {
			logger.Component("version").Error("failed to drop review after lost pull",
				"review_id", reviewId, "version_id", id, "error", err)
		}
	}
	return errors.Conflict("version %s is %s, not under review", id, current.State)
}

// settle decides a Reviewer-pattern round whose pool is empty from all of its
// reviews. Conflict means the round was decided elsewhere.
func (s *Version) settle(ctx context.Context, version domain.Version, source string) (Verdict, error) {
	reviews, err := s.storage.ReviewsOfVersion(ctx, version.Id)
	if err != nil {
		return VerdictPending, err
	}
	decision := Aggregate(version, reviews)
	ev := Event{Kind: EventReviewsComplete}
	switch decision.Verdict {
	case VerdictAccept:
		ev.Judgement = true
		_, err = s.pass(ctx, version, ev, source)
	case VerdictReject:
		_, err = s.reject(ctx, version, ev, source)
	}
	return decision.Verdict, err
}

// Adjudge is the editor override. While the round runs under Editor(e) only e may decide.
func (s *Version) Adjudge(ctx context.Context, actor domain.Actor, id domain.VersionId, judgement bool) (domain.Version, error) {
	if !actor.IsEditor() {
		return domain.Version{}, errors.Forbidden("only editors may adjudge")
	}
	version, err := s.storage.GetVersion(ctx, id)
	if err != nil {
		return domain.Version{}, err
	}
	ev := Event{Kind: EventAdjudge, Judgement: judgement}
	if _, err := Transition(version.State, ev); err != nil {
		return domain.Version{}, err
	}
	pattern := version.ReviewState.Pattern
	if version.State.Kind == domain.Reviewing && pattern.IsEditor() && pattern.EditorId != actor.Id {
		return domain.Version{}, errors.Forbidden("version %s is assigned to editor %s", id, pattern.EditorId)
	}

	if judgement {
		return s.pass(ctx, version, ev, "adjudge")
	}
	return s.reject(ctx, version, ev, "adjudge")
}

// pass promotes the version and supersedes its siblings in three independent
// steps. A failure after step (a) is logged and returned; PassReconciler
// finishes (b) and (c) later.
func (s *Version) pass(ctx context.Context, version domain.Version, ev Event, source string) (domain.Version, error) {
	log := logger.Component("version")
	// (a)
	accepted, err := s.storage.TransitionVersion(ctx, version.Id, Sources(ev), domain.StateAccepted, true)
	if err != nil {
		return domain.Version{}, err
	}
	verdictsTotal.WithLabelValues("accepted", source).Inc()

	// (b) siblings still carry the pre-pass major
	if _, err := s.storage.SupersedeVersions(ctx, version.ThesisId, version.MajorNum); err != nil {
		passStepFailures.WithLabelValues("supersede").Inc()
		log.Error("pass interrupted before superseding siblings",
			"version_id", version.Id, "thesis_id", version.ThesisId, "major", version.MajorNum, "error", err)
		return accepted, err
	}
	// (c)
	if err := s.storage.MarkThesisPassed(ctx, version.ThesisId); err != nil {
		passStepFailures.WithLabelValues("mark_thesis").Inc()
		log.Error("pass interrupted before marking thesis passed",
			"version_id", version.Id, "thesis_id", version.ThesisId, "error", err)
		return accepted, err
	}
	log.Info("version accepted", "version_id", version.Id, "thesis_id", version.ThesisId,
		"number", accepted.Number(), "source", source)
	return accepted, nil
}

func (s *Version) reject(ctx context.Context, version domain.Version, ev Event, source string) (domain.Version, error) {
	rejected, err := s.storage.TransitionVersion(ctx, version.Id, Sources(ev), domain.StateRejected, false)
	if err != nil {
		return domain.Version{}, err
	}
	verdictsTotal.WithLabelValues("rejected", source).Inc()
	logger.Component("version").Info("version rejected", "version_id", version.Id, "source", source)
	return rejected, nil
}

// Comment opens a discussion thread on an accepted version. Superseded
// versions are outdated and closed for comments.
func (s *Version) Comment(ctx context.Context, actor domain.Actor, id domain.VersionId, content domain.CommentText) (domain.CommentId, error) {
	if actor.IsAnonymous() {
		return domain.CommentId{}, errors.Forbidden("sign in to comment")
	}
	if strings.TrimSpace(content) == "" {
		return domain.CommentId{}, errors.BadRequest("comment is empty")
	}
	version, _, err := s.load(ctx, id)
	if err != nil {
		return domain.CommentId{}, err
	}
	switch {
	case version.State.Kind == domain.History:
		return domain.CommentId{}, errors.Forbidden("version %s is outdated", id)
	case !version.State.IsAccepted():
		return domain.CommentId{}, errors.Forbidden("version %s is not published", id)
	}

	poster := actor.Id
	comment := domain.Comment{
		Id:         domain.NewId(),
		PosterId:   &poster,
		PostedAt:   time.Now().UTC(),
		TargetType: domain.TargetVersion,
		TargetId:   id,
		Content:    content,
	}
	if err := s.storage.CreateComment(ctx, comment); err != nil {
		return domain.CommentId{}, err
	}
	return comment.Id, nil
}

// Comments lists the top-level comments of a version.
func (s *Version) Comments(ctx context.Context, actor domain.Actor, id domain.VersionId) ([]domain.Comment, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.storage.CommentsOf(ctx, domain.TargetVersion, id)
}

// Download counts a download of a visible version and returns its file references.
func (s *Version) Download(ctx context.Context, actor domain.Actor, id domain.VersionId) (domain.FileRefs, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return domain.FileRefs{}, err
	}
	updated, err := s.storage.RecordDownload(ctx, id)
	if err != nil {
		return domain.FileRefs{}, err
	}
	return updated.FileRefs, nil
}

func (s *Version) Withdraw(ctx context.Context, actor domain.Actor, id domain.VersionId) (int64, error) {
	if !actor.IsEditor() {
		return 0, errors.Forbidden("only editors may withdraw a version")
	}
	if _, err := s.storage.GetVersion(ctx, id); err != nil {
		return 0, err
	}
	n, err := s.withdraw.Version(ctx, id)
	if err != nil {
		return n, err
	}
	logger.Component("version").Info("version withdrawn", "version_id", id, "actor_id", actor.Id)
	return n, nil
}

// Reviews returns the reviews of a version the actor may read. A reviewer who
// already left the pool still sees their own review.
func (s *Version) Reviews(ctx context.Context, actor domain.Actor, id domain.VersionId) ([]domain.Review, error) {
	version, thesis, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := s.storage.ReviewsOfVersion(ctx, id)
	if err != nil {
		return nil, err
	}
	visible := make([]domain.Review, 0, len(reviews))
	for i := range reviews {
		if s.policy.CanViewReview(actor, &thesis, &version, &reviews[i]) {
			visible = append(visible, reviews[i])
		}
	}
	if len(visible) == 0 && !s.policy.CanViewVersion(actor, &thesis, &version) {
		return nil, errors.Forbidden("version %s is not visible", id)
	}
	return visible, nil
}
