package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"scoutQuestAPI/internal/apperr"
	"scoutQuestAPI/internal/types/challenge"
	"scoutQuestAPI/internal/types/scout"
	"scoutQuestAPI/internal/types/submission"
)

type ChallengeService struct {
	db    *pgxpool.Pool
	users *UserService
}

func NewChallengeService(db *pgxpool.Pool, users *UserService) *ChallengeService {
	return &ChallengeService{db: db, users: users}
}

const challengeColumns = `id, title, description, point_value, difficulty, group_id, starts_at, ends_at, participant_count, created_by, created_at, updated_at`

func scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	c := &challenge.Challenge{}
	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.PointValue,
		&c.Difficulty,
		&c.GroupID,
		&c.StartsAt,
		&c.EndsAt,
		&c.ParticipantCount,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create publishes a new challenge. Only leaders may publish; the request is
// validated before any state change.
func (s *ChallengeService) Create(ctx context.Context, clerkID string, req *challenge.CreateChallengeRequest) (*challenge.Challenge, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	creator, err := s.users.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if creator.Role != scout.RoleLeader {
		return nil, apperr.Unauthorizedf("only leaders can publish challenges")
	}

	query := `
	INSERT INTO challenges (id, title, description, point_value, difficulty, group_id, starts_at, ends_at, created_by, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	RETURNING ` + challengeColumns

	c, err := scanChallenge(s.db.QueryRow(
		ctx,
		query,
		uuid.New(),
		req.Title,
		req.Description,
		req.PointValue,
		req.Difficulty,
		req.GroupID,
		req.StartsAt,
		req.EndsAt,
		creator.ID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	return c, nil
}

// ListActive returns challenges whose window covers at and whose scope
// matches: global challenges always match, group challenges only for the
// given group. Ordered by creation time descending.
func (s *ChallengeService) ListActive(ctx context.Context, groupID *uuid.UUID, at time.Time) ([]*challenge.Challenge, error) {
	query := `
	SELECT ` + challengeColumns + `
	FROM challenges
	WHERE starts_at <= $1 AND $1 < ends_at
	  AND (group_id IS NULL OR group_id = $2)
	ORDER BY created_at DESC
	`

	rows, err := s.db.Query(ctx, query, at, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	var challenges []*challenge.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if challenges == nil {
		challenges = []*challenge.Challenge{}
	}
	return challenges, nil
}

func (s *ChallengeService) Get(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1`

	c, err := scanChallenge(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFoundf("no challenge %s", id)
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	return c, nil
}

// Update applies administrative edits. Only the creator may edit, and edits
// never touch completed submissions: awards are computed at acceptance time.
func (s *ChallengeService) Update(ctx context.Context, clerkID string, id uuid.UUID, req *challenge.UpdateChallengeRequest) (*challenge.Challenge, error) {
	actor, err := s.users.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.CreatedBy != actor.ID {
		return nil, apperr.Unauthorizedf("only the creator can edit challenge %s", id)
	}

	if req.PointValue < 0 {
		return nil, apperr.InvalidArgumentf("point value must be positive, got %d", req.PointValue)
	}
	if req.Difficulty != "" && !req.Difficulty.Valid() {
		return nil, apperr.InvalidArgumentf("unknown difficulty %q", req.Difficulty)
	}

	startsAt := existing.StartsAt
	if req.StartsAt != nil {
		startsAt = *req.StartsAt
	}
	endsAt := existing.EndsAt
	if req.EndsAt != nil {
		endsAt = *req.EndsAt
	}
	if !endsAt.After(startsAt) {
		return nil, apperr.InvalidArgumentf("window end must be after window start")
	}

	query := `
	UPDATE challenges
	SET
		title = COALESCE(NULLIF($2, ''), title),
		description = COALESCE(NULLIF($3, ''), description),
		point_value = CASE WHEN $4 > 0 THEN $4 ELSE point_value END,
		difficulty = COALESCE(NULLIF($5, ''), difficulty),
		starts_at = $6,
		ends_at = $7,
		updated_at = NOW()
	WHERE id = $1
	RETURNING ` + challengeColumns

	c, err := scanChallenge(s.db.QueryRow(ctx, query, id, req.Title, req.Description, req.PointValue, string(req.Difficulty), startsAt, endsAt))
	if err != nil {
		return nil, fmt.Errorf("failed to update challenge: %w", err)
	}

	return c, nil
}

// Delete removes a challenge. Refused while any submission references it:
// submissions are never physically deleted, so a cascade would orphan
// history and break the award path.
func (s *ChallengeService) Delete(ctx context.Context, clerkID string, id uuid.UUID) error {
	actor, err := s.users.GetByClerkID(ctx, clerkID)
	if err != nil {
		return err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.CreatedBy != actor.ID {
		return apperr.Unauthorizedf("only the creator can delete challenge %s", id)
	}

	var hasSubmissions bool
	err = s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM submissions WHERE challenge_id = $1)`, id).Scan(&hasSubmissions)
	if err != nil {
		return fmt.Errorf("failed to check submissions: %w", err)
	}
	if hasSubmissions {
		return apperr.InvalidTransitionf("challenge %s has submissions and cannot be deleted", id)
	}

	result, err := s.db.Exec(ctx, `DELETE FROM challenges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFoundf("no challenge %s", id)
	}
	return nil
}

// Board returns the caller's active challenges together with their own
// submission per challenge, for the challenge board screen.
func (s *ChallengeService) Board(ctx context.Context, clerkID string) ([]*submission.WithChallenge, error) {
	caller, err := s.users.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	challenges, err := s.ListActive(ctx, caller.GroupID, now)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT ` + submissionColumns + `
	FROM submissions
	WHERE scout_id = $1 AND challenge_id = ANY($2)
	`

	ids := make([]uuid.UUID, 0, len(challenges))
	for _, c := range challenges {
		ids = append(ids, c.ID)
	}

	rows, err := s.db.Query(ctx, query, caller.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch board submissions: %w", err)
	}
	defer rows.Close()

	byChallenge := make(map[uuid.UUID]*submission.Submission)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		byChallenge[sub.ChallengeID] = sub
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	board := make([]*submission.WithChallenge, 0, len(challenges))
	for _, c := range challenges {
		board = append(board, &submission.WithChallenge{
			Challenge:  c,
			Submission: byChallenge[c.ID],
		})
	}
	return board, nil
}
