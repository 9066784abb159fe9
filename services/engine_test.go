package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoutQuestAPI/internal/apperr"
	"scoutQuestAPI/internal/cache"
	"scoutQuestAPI/internal/database"
	"scoutQuestAPI/internal/types/challenge"
	"scoutQuestAPI/internal/types/leaderboard"
	"scoutQuestAPI/internal/types/scout"
	"scoutQuestAPI/internal/types/submission"
)

// These tests run the full engine against a real database. They are skipped
// when DATABASE_URL is not set.

type engineFixture struct {
	t  *testing.T
	db *pgxpool.Pool

	users       *UserService
	challenges  *ChallengeService
	points      *PointsService
	leaderboard *LeaderboardService
	submissions *SubmissionService

	groupID uuid.UUID
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	if err := godotenv.Load("../.env"); err != nil {
		_ = godotenv.Load()
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping database tests")
	}

	require.NoError(t, database.RunMigrations(dbURL))

	db, err := pgxpool.New(context.Background(), dbURL)
	require.NoError(t, err)

	f := &engineFixture{t: t, db: db, groupID: uuid.New()}

	f.users = NewUserService(db)
	relations := NewRelationService(db)
	authority := NewValidationAuthority(relations)
	f.challenges = NewChallengeService(db, f.users)
	f.points = NewPointsService(db)
	f.leaderboard = NewLeaderboardService(db, cache.NewMemoryCache())
	f.submissions = NewSubmissionService(db, f.users, f.challenges, authority, f.points, f.leaderboard, nil)

	ctx := context.Background()
	_, err = db.Exec(ctx, `INSERT INTO groups (id, name) VALUES ($1, $2)`, f.groupID, "test-troop-"+f.groupID.String())
	require.NoError(t, err)

	t.Cleanup(func() {
		cleanupCtx := context.Background()
		db.Exec(cleanupCtx, `DELETE FROM submissions WHERE challenge_id IN (SELECT id FROM challenges WHERE group_id = $1 OR created_by IN (SELECT id FROM users WHERE group_id = $1))`, f.groupID)
		db.Exec(cleanupCtx, `DELETE FROM challenges WHERE group_id = $1 OR created_by IN (SELECT id FROM users WHERE group_id = $1)`, f.groupID)
		db.Exec(cleanupCtx, `DELETE FROM users WHERE group_id = $1`, f.groupID)
		db.Exec(cleanupCtx, `DELETE FROM groups WHERE id = $1`, f.groupID)
		db.Close()
	})

	return f
}

func (f *engineFixture) account(role scout.Role) *scout.Account {
	f.t.Helper()

	clerkID := "test_clerk_" + uuid.NewString()
	acc, err := f.users.CreateAccount(context.Background(), &scout.CreateAccountRequest{
		ClerkID:  clerkID,
		Email:    clerkID + "@example.org",
		Username: string(role) + "-" + uuid.NewString()[:8],
		Role:     role,
		GroupID:  f.groupID.String(),
	})
	require.NoError(f.t, err)
	return acc
}

func (f *engineFixture) openChallenge(creator *scout.Account, points int) *challenge.Challenge {
	f.t.Helper()

	now := time.Now()
	c, err := f.challenges.Create(context.Background(), creator.ClerkID, &challenge.CreateChallengeRequest{
		Title:      "Pitch a tent " + uuid.NewString()[:8],
		PointValue: points,
		Difficulty: challenge.DifficultyEasy,
		GroupID:    &f.groupID,
		StartsAt:   now.Add(-time.Hour),
		EndsAt:     now.Add(24 * time.Hour),
	})
	require.NoError(f.t, err)
	return c
}

func (f *engineFixture) scoutPoints(id uuid.UUID) int {
	f.t.Helper()

	var points int
	err := f.db.QueryRow(context.Background(), `SELECT points FROM users WHERE id = $1`, id).Scan(&points)
	require.NoError(f.t, err)
	return points
}

func TestSubmissionLifecycleAwardsOnce(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	leader := f.account(scout.RoleLeader)
	member := f.account(scout.RoleScout)
	c := f.openChallenge(leader, 25)

	sub, err := f.submissions.Start(ctx, member.ClerkID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusStarted, sub.Status)

	// A second start for the same pair is refused while the first attempt
	// exists, whatever its state.
	_, err = f.submissions.Start(ctx, member.ClerkID, c.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	sub, err = f.submissions.Submit(ctx, member.ClerkID, sub.ID, &submission.SubmitRequest{
		ProofURL: "https://photos.example.org/tent.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, submission.StatusPendingValidation, sub.Status)

	// The scout cannot accept their own submission.
	_, err = f.submissions.Accept(ctx, member.ClerkID, sub.ID, &submission.AcceptRequest{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	result, err := f.submissions.Accept(ctx, leader.ClerkID, sub.ID, &submission.AcceptRequest{Comment: "well done"})
	require.NoError(t, err)
	assert.True(t, result.Awarded)
	assert.False(t, result.AlreadyAwarded)
	assert.Equal(t, submission.StatusCompleted, result.Submission.Status)
	assert.Equal(t, 25, f.scoutPoints(member.ID))

	// Replayed accept: success, no second credit.
	result, err = f.submissions.Accept(ctx, leader.ClerkID, sub.ID, &submission.AcceptRequest{})
	require.NoError(t, err)
	assert.False(t, result.Awarded)
	assert.True(t, result.AlreadyAwarded)
	assert.Equal(t, 25, f.scoutPoints(member.ID))

	// The completed attempt still blocks a restart.
	_, err = f.submissions.Start(ctx, member.ClerkID, c.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestRejectReopensTheSameAttempt(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	leader := f.account(scout.RoleLeader)
	member := f.account(scout.RoleScout)
	c := f.openChallenge(leader, 10)

	sub, err := f.submissions.Start(ctx, member.ClerkID, c.ID)
	require.NoError(t, err)

	_, err = f.submissions.Submit(ctx, member.ClerkID, sub.ID, &submission.SubmitRequest{})
	require.NoError(t, err)

	// A reason is mandatory.
	_, err = f.submissions.Reject(ctx, leader.ClerkID, sub.ID, &submission.RejectRequest{})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	rejected, err := f.submissions.Reject(ctx, leader.ClerkID, sub.ID, &submission.RejectRequest{Reason: "photo is too dark"})
	require.NoError(t, err)
	assert.Equal(t, submission.StatusStarted, rejected.Status)
	assert.Equal(t, sub.ID, rejected.ID, "rejection reopens the row, it does not create a new one")
	require.NotNil(t, rejected.RejectReason)
	assert.Equal(t, "photo is too dark", *rejected.RejectReason)
	assert.Nil(t, rejected.SubmittedAt)
	assert.Equal(t, 0, f.scoutPoints(member.ID), "rejection never awards")

	// Resubmit and accept: one credit in total for the whole lifecycle.
	_, err = f.submissions.Submit(ctx, member.ClerkID, sub.ID, &submission.SubmitRequest{ProofURL: "https://photos.example.org/retake.jpg"})
	require.NoError(t, err)

	result, err := f.submissions.Accept(ctx, leader.ClerkID, sub.ID, &submission.AcceptRequest{})
	require.NoError(t, err)
	assert.True(t, result.Awarded)
	assert.Equal(t, 10, f.scoutPoints(member.ID))
}

func TestParentAuthorityIsReadLive(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	leader := f.account(scout.RoleLeader)
	parent := f.account(scout.RoleParent)
	member := f.account(scout.RoleScout)
	c := f.openChallenge(leader, 5)

	sub, err := f.submissions.Start(ctx, member.ClerkID, c.ID)
	require.NoError(t, err)
	_, err = f.submissions.Submit(ctx, member.ClerkID, sub.ID, &submission.SubmitRequest{})
	require.NoError(t, err)

	// No link yet: the parent has no authority over this scout.
	_, err = f.submissions.Accept(ctx, parent.ClerkID, sub.ID, &submission.AcceptRequest{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	// Linking after the submission was made is enough: authority is decided
	// at call time, not capture time.
	_, err = f.db.Exec(ctx, `INSERT INTO parent_links (parent_id, scout_id, active) VALUES ($1, $2, TRUE)`, parent.ID, member.ID)
	require.NoError(t, err)

	result, err := f.submissions.Accept(ctx, parent.ClerkID, sub.ID, &submission.AcceptRequest{})
	require.NoError(t, err)
	assert.True(t, result.Awarded)
}

func TestAwardSurvivesDeletedScoutAsUnreconciled(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	leader := f.account(scout.RoleLeader)
	member := f.account(scout.RoleScout)
	c := f.openChallenge(leader, 40)

	sub, err := f.submissions.Start(ctx, member.ClerkID, c.ID)
	require.NoError(t, err)
	_, err = f.submissions.Submit(ctx, member.ClerkID, sub.ID, &submission.SubmitRequest{})
	require.NoError(t, err)

	// Flip to completed without awarding, as if the accept committed the
	// status but the account vanished before the points landed.
	_, err = f.db.Exec(ctx, `UPDATE submissions SET status = 'completed', validated_at = NOW(), validated_by = $2 WHERE id = $1`, sub.ID, leader.ID)
	require.NoError(t, err)
	require.NoError(t, f.users.DeleteByClerkID(ctx, member.ClerkID))

	_, err = f.points.AwardOnce(ctx, sub.ID)
	assert.ErrorIs(t, err, apperr.ErrDanglingReference)

	unreconciled, err := f.points.ListUnreconciled(ctx)
	require.NoError(t, err)

	var found bool
	for _, a := range unreconciled {
		if a.SubmissionID == sub.ID {
			found = true
			assert.False(t, a.ScoutExists)
			require.NotNil(t, a.PointValue)
			assert.Equal(t, 40, *a.PointValue)
		}
	}
	assert.True(t, found, "the failed award must surface for operator reconciliation")
}

func TestGroupLeaderboardUsesCompetitionRanking(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	first := f.account(scout.RoleScout)
	second := f.account(scout.RoleScout)
	third := f.account(scout.RoleScout)
	f.account(scout.RoleLeader) // leaders never appear on the board

	for i, pair := range []struct {
		id     uuid.UUID
		points int
	}{{first.ID, 50}, {second.ID, 50}, {third.ID, 30}} {
		_, err := f.db.Exec(ctx, `UPDATE users SET points = $2 WHERE id = $1`, pair.id, pair.points)
		require.NoError(t, err, fmt.Sprintf("seeding scout %d", i))
	}

	board, err := f.leaderboard.Rank(ctx, leaderboard.GroupScope(f.groupID), &third.ID)
	require.NoError(t, err)

	require.Equal(t, 3, board.TotalScouts)
	assert.Equal(t, 1, board.Entries[0].Rank)
	assert.Equal(t, 1, board.Entries[1].Rank)
	assert.Equal(t, 3, board.Entries[2].Rank, "a two-way tie at 1 pushes the next rank to 3")

	require.NotNil(t, board.CallerEntry)
	assert.Equal(t, third.ID, board.CallerEntry.ScoutID)
	assert.Equal(t, 3, board.CallerEntry.Rank)

	// RankOf reads the same board Rank serves.
	entry, err := f.leaderboard.RankOf(ctx, leaderboard.GroupScope(f.groupID), first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Rank)

	_, err = f.leaderboard.RankOf(ctx, leaderboard.GroupScope(f.groupID), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
