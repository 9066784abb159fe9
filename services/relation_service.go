package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"scoutQuestAPI/internal/apperr"
)

// RelationReader is the slice of the identity subsystem the engine consumes.
// Implementations must read live data on every call; authority decisions are
// never allowed to see cached relations.
type RelationReader interface {
	IsParentOf(ctx context.Context, parentID, scoutID uuid.UUID) (bool, error)
	IsLeaderOfScoutsGroup(ctx context.Context, leaderID, scoutID uuid.UUID) (bool, error)
	ScoutGroupID(ctx context.Context, scoutID uuid.UUID) (*uuid.UUID, error)
}

type RelationService struct {
	db *pgxpool.Pool
}

func NewRelationService(db *pgxpool.Pool) *RelationService {
	return &RelationService{db: db}
}

func (s *RelationService) IsParentOf(ctx context.Context, parentID, scoutID uuid.UUID) (bool, error) {
	var linked bool
	query := `
	SELECT EXISTS(
		SELECT 1 FROM parent_links
		WHERE parent_id = $1 AND scout_id = $2 AND active = TRUE
	)
	`
	if err := s.db.QueryRow(ctx, query, parentID, scoutID).Scan(&linked); err != nil {
		return false, fmt.Errorf("failed to check parent link: %w", err)
	}
	return linked, nil
}

func (s *RelationService) IsLeaderOfScoutsGroup(ctx context.Context, leaderID, scoutID uuid.UUID) (bool, error) {
	var leads bool
	query := `
	SELECT EXISTS(
		SELECT 1
		FROM users leader
		JOIN users target ON target.id = $2
		WHERE leader.id = $1
		  AND leader.role = 'leader'
		  AND leader.group_id IS NOT NULL
		  AND leader.group_id = target.group_id
	)
	`
	if err := s.db.QueryRow(ctx, query, leaderID, scoutID).Scan(&leads); err != nil {
		return false, fmt.Errorf("failed to check group leadership: %w", err)
	}
	return leads, nil
}

func (s *RelationService) ScoutGroupID(ctx context.Context, scoutID uuid.UUID) (*uuid.UUID, error) {
	var groupID *uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT group_id FROM users WHERE id = $1`, scoutID).Scan(&groupID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFoundf("no account %s", scoutID)
		}
		return nil, fmt.Errorf("failed to get scout group: %w", err)
	}
	return groupID, nil
}
