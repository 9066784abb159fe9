package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"scoutQuestAPI/internal/apperr"
	"scoutQuestAPI/internal/types/scout"
	"scoutQuestAPI/internal/types/submission"
)

// SubmissionService owns the per-(scout, challenge) state machine:
// STARTED -> PENDING_VALIDATION -> COMPLETED, with rejection reopening the
// attempt. Every transition is a compare-and-swap on the current status, so
// concurrent callers race on the row and the loser observes the new state
// instead of corrupting it.
type SubmissionService struct {
	db          *pgxpool.Pool
	users       *UserService
	challenges  *ChallengeService
	authority   *ValidationAuthority
	points      *PointsService
	leaderboard *LeaderboardService
	notifs      *NotificationService
}

func NewSubmissionService(
	db *pgxpool.Pool,
	users *UserService,
	challenges *ChallengeService,
	authority *ValidationAuthority,
	points *PointsService,
	leaderboard *LeaderboardService,
	notifs *NotificationService,
) *SubmissionService {
	return &SubmissionService{
		db:          db,
		users:       users,
		challenges:  challenges,
		authority:   authority,
		points:      points,
		leaderboard: leaderboard,
		notifs:      notifs,
	}
}

const submissionColumns = `id, challenge_id, scout_id, status, proof_url, scout_comment, validator_comment, reject_reason, started_at, submitted_at, validated_at, validated_by, awarded, created_at, updated_at`

func scanSubmission(row pgx.Row) (*submission.Submission, error) {
	sub := &submission.Submission{}
	err := row.Scan(
		&sub.ID,
		&sub.ChallengeID,
		&sub.ScoutID,
		&sub.Status,
		&sub.ProofURL,
		&sub.ScoutComment,
		&sub.ValidatorComment,
		&sub.RejectReason,
		&sub.StartedAt,
		&sub.SubmittedAt,
		&sub.ValidatedAt,
		&sub.ValidatedBy,
		&sub.Awarded,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubmissionService) Get(ctx context.Context, id uuid.UUID) (*submission.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`

	sub, err := scanSubmission(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFoundf("no submission %s", id)
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

// Start opens an attempt for the calling scout. Requires an open challenge
// window and no existing submission for the pair: an in-flight attempt or a
// completed one both block a new start.
func (s *SubmissionService) Start(ctx context.Context, clerkID string, challengeID uuid.UUID) (*submission.Submission, error) {
	caller, err := s.users.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if caller.Role != scout.RoleScout {
		return nil, apperr.Unauthorizedf("only scouts can start challenges")
	}

	c, err := s.challenges.Get(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if c.ExpiredAt(now) {
		return nil, apperr.ChallengeExpiredf("challenge %s window closed at %s", c.ID, c.EndsAt.Format(time.RFC3339))
	}
	if !c.OpenAt(now) {
		return nil, apperr.InvalidTransitionf("challenge %s opens at %s", c.ID, c.StartsAt.Format(time.RFC3339))
	}
	if c.GroupID != nil && (caller.GroupID == nil || *caller.GroupID != *c.GroupID) {
		return nil, apperr.Unauthorizedf("challenge %s is not available to your group", c.ID)
	}

	query := `
	INSERT INTO submissions (id, challenge_id, scout_id, status, started_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	ON CONFLICT (challenge_id, scout_id) DO NOTHING
	RETURNING ` + submissionColumns

	sub, err := scanSubmission(s.db.QueryRow(ctx, query, uuid.New(), challengeID, caller.ID, submission.StatusStarted, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The unique index matched: the pair already has its attempt.
			return nil, apperr.InvalidTransitionf("scout already has a submission for challenge %s", challengeID)
		}
		return nil, fmt.Errorf("failed to start submission: %w", err)
	}

	return sub, nil
}

// Submit moves the caller's attempt to PENDING_VALIDATION. Only the owning
// scout, only from STARTED, only while the window is open.
func (s *SubmissionService) Submit(ctx context.Context, clerkID string, submissionID uuid.UUID, req *submission.SubmitRequest) (*submission.Submission, error) {
	caller, err := s.users.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	sub, err := s.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.ScoutID != caller.ID {
		return nil, apperr.Unauthorizedf("submission %s belongs to another scout", submissionID)
	}

	c, err := s.challenges.Get(ctx, sub.ChallengeID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := sub.GuardSubmit(c, now); err != nil {
		return nil, err
	}

	var proofURL, comment *string
	if req.ProofURL != "" {
		proofURL = &req.ProofURL
	}
	if req.Comment != "" {
		comment = &req.Comment
	}

	query := `
	UPDATE submissions
	SET status = $3, proof_url = $4, scout_comment = $5, submitted_at = $6, updated_at = NOW()
	WHERE id = $1 AND status = $2
	RETURNING ` + submissionColumns

	updated, err := scanSubmission(s.db.QueryRow(ctx, query, submissionID, submission.StatusStarted, submission.StatusPendingValidation, proofURL, comment, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race: someone moved the row first.
			return nil, apperr.InvalidTransitionf("submission %s is no longer in %s", submissionID, submission.StatusStarted)
		}
		return nil, fmt.Errorf("failed to submit: %w", err)
	}

	if s.notifs != nil {
		if err := s.notifs.NotifySubmissionPending(ctx, updated, c); err != nil {
			log.Printf("Submit: failed to notify validators for %s: %v", updated.ID, err)
		}
	}

	return updated, nil
}

// AcceptResult reports what the accept call did, so callers can distinguish
// a fresh award from an idempotent replay.
type AcceptResult struct {
	Submission *submission.Submission `json:"submission"`
	Awarded    bool                   `json:"awarded"`
	// AlreadyAwarded is true when a concurrent or earlier call credited the
	// points; the replay is a success, not an error.
	AlreadyAwarded bool `json:"already_awarded"`
}

// Accept completes a pending submission and awards its points exactly once.
// The authority predicate runs against live relation data at call time. The
// status flip is a compare-and-swap and the award is gated by the awarded
// flag, so two concurrent accepts credit the scout a single time.
func (s *SubmissionService) Accept(ctx context.Context, clerkID string, submissionID uuid.UUID, req *submission.AcceptRequest) (*AcceptResult, error) {
	actor, err := s.users.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	sub, err := s.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	ok, err := s.authority.CanValidate(ctx, actor, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate validation authority: %w", err)
	}
	if !ok {
		return nil, apperr.Unauthorizedf("actor %s cannot validate submission %s", actor.ID, submissionID)
	}

	c, err := s.challenges.Get(ctx, sub.ChallengeID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if sub.Status != submission.StatusCompleted {
		if err := sub.GuardValidate(c, now); err != nil {
			return nil, err
		}

		var comment *string
		if req.Comment != "" {
			comment = &req.Comment
		}

		query := `
		UPDATE submissions
		SET status = $3, validator_comment = $4, validated_at = $5, validated_by = $6, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + submissionColumns

		updated, err := scanSubmission(s.db.QueryRow(ctx, query, submissionID, submission.StatusPendingValidation, submission.StatusCompleted, comment, now, actor.ID))
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("failed to accept submission: %w", err)
			}
			// Lost the race. Reload: a concurrent accept means an idempotent
			// success, a concurrent reject means the transition is gone.
			sub, err = s.Get(ctx, submissionID)
			if err != nil {
				return nil, err
			}
			if sub.Status != submission.StatusCompleted {
				return nil, apperr.InvalidTransitionf("submission %s is no longer pending validation", submissionID)
			}
		} else {
			sub = updated
		}
	}

	award, err := s.points.AwardOnce(ctx, submissionID)
	if err != nil {
		// DanglingReference: the submission stays COMPLETED but unawarded and
		// the operator reconciliation listing picks it up.
		return nil, err
	}
	sub.Awarded = true

	if award.Credited {
		s.leaderboard.InvalidateScopes(ctx, award.ScoutGroupID)
		if s.notifs != nil {
			if err := s.notifs.NotifyValidationResult(ctx, sub, c, true); err != nil {
				log.Printf("Accept: failed to notify scout for %s: %v", sub.ID, err)
			}
		}
	}

	return &AcceptResult{
		Submission:     sub,
		Awarded:        award.Credited,
		AlreadyAwarded: !award.Credited,
	}, nil
}

// Reject returns a pending submission to STARTED so the scout can try
// again. Same authority guard as Accept; never awards points.
func (s *SubmissionService) Reject(ctx context.Context, clerkID string, submissionID uuid.UUID, req *submission.RejectRequest) (*submission.Submission, error) {
	if req.Reason == "" {
		return nil, apperr.InvalidArgumentf("a rejection reason is required")
	}

	actor, err := s.users.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	sub, err := s.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	ok, err := s.authority.CanValidate(ctx, actor, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate validation authority: %w", err)
	}
	if !ok {
		return nil, apperr.Unauthorizedf("actor %s cannot validate submission %s", actor.ID, submissionID)
	}

	c, err := s.challenges.Get(ctx, sub.ChallengeID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := sub.GuardValidate(c, now); err != nil {
		return nil, err
	}

	query := `
	UPDATE submissions
	SET status = $3, reject_reason = $4, validated_by = $5, submitted_at = NULL, updated_at = NOW()
	WHERE id = $1 AND status = $2
	RETURNING ` + submissionColumns

	updated, err := scanSubmission(s.db.QueryRow(ctx, query, submissionID, submission.StatusPendingValidation, submission.StatusStarted, req.Reason, actor.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.InvalidTransitionf("submission %s is no longer pending validation", submissionID)
		}
		return nil, fmt.Errorf("failed to reject submission: %w", err)
	}

	if s.notifs != nil {
		if err := s.notifs.NotifyValidationResult(ctx, updated, c, false); err != nil {
			log.Printf("Reject: failed to notify scout for %s: %v", updated.ID, err)
		}
	}

	return updated, nil
}

// Mine lists the calling scout's submissions, newest first.
func (s *SubmissionService) Mine(ctx context.Context, clerkID string) ([]*submission.Submission, error) {
	caller, err := s.users.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT ` + submissionColumns + `
	FROM submissions
	WHERE scout_id = $1
	ORDER BY updated_at DESC
	`

	rows, err := s.db.Query(ctx, query, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*submission.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if subs == nil {
		subs = []*submission.Submission{}
	}
	return subs, nil
}

// PendingForValidator lists submissions the caller is currently authorized
// to validate: their linked scouts' for parents, their group's for leaders.
// Expired challenges are filtered out since they cannot be acted on.
func (s *SubmissionService) PendingForValidator(ctx context.Context, clerkID string) ([]*submission.Submission, error) {
	actor, err := s.users.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var query string
	switch actor.Role {
	case scout.RoleParent:
		query = `
		SELECT ` + prefixedSubmissionColumns + `
		FROM submissions s
		JOIN parent_links pl ON pl.scout_id = s.scout_id AND pl.parent_id = $1 AND pl.active = TRUE
		JOIN challenges c ON c.id = s.challenge_id
		WHERE s.status = 'pending_validation' AND c.ends_at > NOW()
		ORDER BY s.submitted_at ASC
		`
	case scout.RoleLeader:
		query = `
		SELECT ` + prefixedSubmissionColumns + `
		FROM submissions s
		JOIN users scout ON scout.id = s.scout_id
		JOIN users leader ON leader.id = $1 AND leader.group_id = scout.group_id
		JOIN challenges c ON c.id = s.challenge_id
		WHERE s.status = 'pending_validation' AND c.ends_at > NOW()
		ORDER BY s.submitted_at ASC
		`
	default:
		return nil, apperr.Unauthorizedf("only parents and leaders have a validation queue")
	}

	rows, err := s.db.Query(ctx, query, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending submissions: %w", err)
	}
	defer rows.Close()

	var subs []*submission.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if subs == nil {
		subs = []*submission.Submission{}
	}
	return subs, nil
}

const prefixedSubmissionColumns = `s.id, s.challenge_id, s.scout_id, s.status, s.proof_url, s.scout_comment, s.validator_comment, s.reject_reason, s.started_at, s.submitted_at, s.validated_at, s.validated_by, s.awarded, s.created_at, s.updated_at`
