package submission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"scoutQuestAPI/internal/apperr"
	"scoutQuestAPI/internal/types/challenge"
)

func openChallenge(now time.Time) *challenge.Challenge {
	return &challenge.Challenge{
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(time.Hour),
	}
}

func closedChallenge(now time.Time) *challenge.Challenge {
	return &challenge.Challenge{
		StartsAt: now.Add(-2 * time.Hour),
		EndsAt:   now.Add(-time.Hour),
	}
}

func TestGuardSubmit(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	sub := &Submission{Status: StatusStarted}
	assert.NoError(t, sub.GuardSubmit(openChallenge(now), now))

	sub = &Submission{Status: StatusStarted}
	assert.ErrorIs(t, sub.GuardSubmit(closedChallenge(now), now), apperr.ErrChallengeExpired)

	sub = &Submission{Status: StatusPendingValidation}
	assert.ErrorIs(t, sub.GuardSubmit(openChallenge(now), now), apperr.ErrInvalidTransition)

	sub = &Submission{Status: StatusCompleted}
	assert.ErrorIs(t, sub.GuardSubmit(openChallenge(now), now), apperr.ErrInvalidTransition)
}

func TestGuardValidate(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	sub := &Submission{Status: StatusPendingValidation}
	assert.NoError(t, sub.GuardValidate(openChallenge(now), now))

	sub = &Submission{Status: StatusStarted}
	assert.ErrorIs(t, sub.GuardValidate(openChallenge(now), now), apperr.ErrInvalidTransition)

	sub = &Submission{Status: StatusPendingValidation}
	assert.ErrorIs(t, sub.GuardValidate(closedChallenge(now), now), apperr.ErrChallengeExpired)

	// A completed submission reports the transition conflict, not expiry,
	// even when the window has also closed. Accept replays rely on this.
	sub = &Submission{Status: StatusCompleted}
	assert.ErrorIs(t, sub.GuardValidate(closedChallenge(now), now), apperr.ErrInvalidTransition)
	assert.NotErrorIs(t, sub.GuardValidate(closedChallenge(now), now), apperr.ErrChallengeExpired)
}

func TestExpiredIsDerived(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	sub := &Submission{Status: StatusStarted}
	assert.False(t, sub.Expired(openChallenge(now), now))
	assert.True(t, sub.Expired(closedChallenge(now), now))

	sub = &Submission{Status: StatusPendingValidation}
	assert.True(t, sub.Expired(closedChallenge(now), now))

	// Completion freezes the outcome; a closed window no longer matters.
	sub = &Submission{Status: StatusCompleted}
	assert.False(t, sub.Expired(closedChallenge(now), now))
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusStarted.Valid())
	assert.True(t, StatusPendingValidation.Valid())
	assert.True(t, StatusCompleted.Valid())
	assert.False(t, Status("expired").Valid(), "expiry is never a stored status")
	assert.False(t, Status("").Valid())
}
