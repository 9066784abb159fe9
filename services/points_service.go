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
)

// PointsService applies the point award side effect of a completed
// submission exactly once. The awarded flag on the submission row is the
// single source of idempotency; there is no separate ledger table to drift.
type PointsService struct {
	db *pgxpool.Pool
}

func NewPointsService(db *pgxpool.Pool) *PointsService {
	return &PointsService{db: db}
}

// AwardResult describes the outcome of AwardOnce. Credited is false when the
// points were already granted by an earlier or concurrent call.
type AwardResult struct {
	Credited     bool
	PointValue   int
	ScoutID      uuid.UUID
	ScoutGroupID *uuid.UUID
}

// AwardOnce atomically marks the submission awarded, credits the scout's
// point total and bumps the challenge participant counter. The whole
// sequence runs in one transaction gated by a compare-and-swap on the
// awarded flag: of two concurrent calls exactly one performs the increments,
// the other observes the flag and returns success without re-awarding.
//
// If the scout account vanished between acceptance and award the
// transaction rolls back and DanglingReference is returned; the submission
// stays COMPLETED and unawarded so operators can reconcile it, instead of
// the miss being silently dropped.
func (s *PointsService) AwardOnce(ctx context.Context, submissionID uuid.UUID) (*AwardResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin award transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		scoutID     uuid.UUID
		challengeID uuid.UUID
		status      string
		awarded     bool
		pointValue  *int
	)
	query := `
	SELECT s.scout_id, s.challenge_id, s.status, s.awarded, c.point_value
	FROM submissions s
	LEFT JOIN challenges c ON c.id = s.challenge_id
	WHERE s.id = $1
	`
	err = tx.QueryRow(ctx, query, submissionID).Scan(&scoutID, &challengeID, &status, &awarded, &pointValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFoundf("no submission %s", submissionID)
		}
		return nil, fmt.Errorf("failed to load submission for award: %w", err)
	}

	if status != "completed" {
		return nil, apperr.InvalidTransitionf("submission %s is %s, award requires completed", submissionID, status)
	}
	if awarded {
		groupID, _ := s.scoutGroup(ctx, scoutID)
		return &AwardResult{Credited: false, ScoutID: scoutID, ScoutGroupID: groupID}, nil
	}
	if pointValue == nil {
		return nil, apperr.DanglingReferencef("challenge %s vanished before award of submission %s", challengeID, submissionID)
	}

	// The CAS. Whoever flips the flag performs the increments below; a
	// concurrent caller matches zero rows here and backs off.
	result, err := tx.Exec(ctx, `
	UPDATE submissions
	SET awarded = TRUE, updated_at = NOW()
	WHERE id = $1 AND status = 'completed' AND awarded = FALSE
	`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark submission awarded: %w", err)
	}
	if result.RowsAffected() == 0 {
		groupID, _ := s.scoutGroup(ctx, scoutID)
		return &AwardResult{Credited: false, ScoutID: scoutID, ScoutGroupID: groupID}, nil
	}

	var groupID *uuid.UUID
	err = tx.QueryRow(ctx, `
	UPDATE users
	SET points = points + $2, updated_at = NOW()
	WHERE id = $1 AND role = 'scout'
	RETURNING group_id
	`, scoutID, *pointValue).Scan(&groupID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Printf("AwardOnce: scout %s vanished before award of submission %s, flagging for reconciliation", scoutID, submissionID)
			return nil, apperr.DanglingReferencef("scout %s vanished before award of submission %s", scoutID, submissionID)
		}
		return nil, fmt.Errorf("failed to credit scout points: %w", err)
	}

	result, err = tx.Exec(ctx, `
	UPDATE challenges
	SET participant_count = participant_count + 1, updated_at = NOW()
	WHERE id = $1
	`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to bump participant counter: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, apperr.DanglingReferencef("challenge %s vanished before award of submission %s", challengeID, submissionID)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit award transaction: %w", err)
	}

	return &AwardResult{
		Credited:     true,
		PointValue:   *pointValue,
		ScoutID:      scoutID,
		ScoutGroupID: groupID,
	}, nil
}

func (s *PointsService) scoutGroup(ctx context.Context, scoutID uuid.UUID) (*uuid.UUID, error) {
	var groupID *uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT group_id FROM users WHERE id = $1`, scoutID).Scan(&groupID)
	if err != nil {
		return nil, err
	}
	return groupID, nil
}

// UnreconciledAward is a COMPLETED submission whose points were never
// credited, surfaced for manual operator remediation.
type UnreconciledAward struct {
	SubmissionID   uuid.UUID  `json:"submission_id"`
	ChallengeID    uuid.UUID  `json:"challenge_id"`
	ChallengeTitle *string    `json:"challenge_title"`
	PointValue     *int       `json:"point_value"`
	ScoutID        uuid.UUID  `json:"scout_id"`
	ScoutExists    bool       `json:"scout_exists"`
	ValidatedAt    *time.Time `json:"validated_at"`
}

// ListUnreconciled returns completed-but-unawarded submissions, oldest
// first, with enough context for an operator to decide whether to retry the
// award or write the attempt off.
func (s *PointsService) ListUnreconciled(ctx context.Context) ([]*UnreconciledAward, error) {
	query := `
	SELECT s.id, s.challenge_id, c.title, c.point_value, s.scout_id,
	       EXISTS(SELECT 1 FROM users u WHERE u.id = s.scout_id) AS scout_exists,
	       s.validated_at
	FROM submissions s
	LEFT JOIN challenges c ON c.id = s.challenge_id
	WHERE s.status = 'completed' AND s.awarded = FALSE
	ORDER BY s.validated_at ASC NULLS LAST
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unreconciled awards: %w", err)
	}
	defer rows.Close()

	var awards []*UnreconciledAward
	for rows.Next() {
		a := &UnreconciledAward{}
		err := rows.Scan(
			&a.SubmissionID,
			&a.ChallengeID,
			&a.ChallengeTitle,
			&a.PointValue,
			&a.ScoutID,
			&a.ScoutExists,
			&a.ValidatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unreconciled award: %w", err)
		}
		awards = append(awards, a)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if awards == nil {
		awards = []*UnreconciledAward{}
	}
	return awards, nil
}
