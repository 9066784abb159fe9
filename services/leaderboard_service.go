package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"scoutQuestAPI/internal/apperr"
	"scoutQuestAPI/internal/cache"
	"scoutQuestAPI/internal/types/leaderboard"
)

const boardCacheTTL = 30 * time.Second

// LeaderboardService derives rankings from current scout point totals. The
// board is recomputed on read and cached per scope; the award path calls
// InvalidateScopes so a fresh accept shows up on the next read.
type LeaderboardService struct {
	db    *pgxpool.Pool
	cache cache.BoardCache
}

func NewLeaderboardService(db *pgxpool.Pool, boardCache cache.BoardCache) *LeaderboardService {
	return &LeaderboardService{db: db, cache: boardCache}
}

// Rank returns the ordered board for a scope. callerID, when non-nil, picks
// the caller's own entry out of the board; the entry slice itself is shared
// with the cache and must not be mutated.
func (s *LeaderboardService) Rank(ctx context.Context, scope leaderboard.Scope, callerID *uuid.UUID) (*leaderboard.Board, error) {
	key := scope.CacheKey()

	cached, ok := s.cache.Get(ctx, key)
	if !ok {
		computed, err := s.compute(ctx, scope)
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, key, computed, boardCacheTTL)
		cached = computed
	}

	board := &leaderboard.Board{
		Entries:     cached.Entries,
		TotalScouts: cached.TotalScouts,
	}
	if callerID != nil {
		for _, e := range board.Entries {
			if e.ScoutID == *callerID {
				board.CallerEntry = e
				break
			}
		}
	}
	return board, nil
}

// RankOf returns the rank of one scout in a scope. It reads the same board
// Rank serves, so the single lookup can never disagree with the full list.
func (s *LeaderboardService) RankOf(ctx context.Context, scope leaderboard.Scope, scoutID uuid.UUID) (*leaderboard.Entry, error) {
	board, err := s.Rank(ctx, scope, nil)
	if err != nil {
		return nil, err
	}
	for _, e := range board.Entries {
		if e.ScoutID == scoutID {
			return e, nil
		}
	}
	return nil, apperr.NotFoundf("scout %s is not ranked in this scope", scoutID)
}

// InvalidateScopes drops the cached boards an award touched: the scout's
// group scope and the global scope.
func (s *LeaderboardService) InvalidateScopes(ctx context.Context, groupID *uuid.UUID) {
	keys := []string{leaderboard.GlobalScope().CacheKey()}
	if groupID != nil {
		keys = append(keys, leaderboard.GroupScope(*groupID).CacheKey())
	}
	s.cache.Invalidate(ctx, keys...)
}

func (s *LeaderboardService) compute(ctx context.Context, scope leaderboard.Scope) (*leaderboard.Board, error) {
	query := `
	SELECT id, username, image_url, points
	FROM users
	WHERE role = 'scout' AND ($1::uuid IS NULL OR group_id = $1)
	ORDER BY points DESC, id ASC
	`

	rows, err := s.db.Query(ctx, query, scope.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*leaderboard.Entry
	for rows.Next() {
		e := &leaderboard.Entry{}
		if err := rows.Scan(&e.ScoutID, &e.Username, &e.ImageURL, &e.Points); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if entries == nil {
		entries = []*leaderboard.Entry{}
	}
	leaderboard.AssignRanks(entries)

	return &leaderboard.Board{
		Entries:     entries,
		TotalScouts: len(entries),
	}, nil
}
