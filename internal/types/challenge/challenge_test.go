package challenge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoutQuestAPI/internal/apperr"
)

func TestChallengeWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(7 * 24 * time.Hour)
	c := &Challenge{StartsAt: start, EndsAt: end}

	assert.False(t, c.OpenAt(start.Add(-time.Second)), "before the window")
	assert.True(t, c.OpenAt(start), "window start is inclusive")
	assert.True(t, c.OpenAt(start.Add(3*24*time.Hour)))
	assert.False(t, c.OpenAt(end), "window end is exclusive")

	assert.False(t, c.ExpiredAt(end.Add(-time.Second)))
	assert.True(t, c.ExpiredAt(end), "expiry begins exactly at the window end")
	assert.True(t, c.ExpiredAt(end.Add(time.Hour)))
}

func TestCreateChallengeRequestValidate(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	valid := func() *CreateChallengeRequest {
		return &CreateChallengeRequest{
			Title:      "Build a campfire",
			PointValue: 25,
			Difficulty: DifficultyEasy,
			StartsAt:   start,
			EndsAt:     start.Add(48 * time.Hour),
		}
	}

	require.NoError(t, valid().Validate())

	req := valid()
	req.Title = ""
	assert.ErrorIs(t, req.Validate(), apperr.ErrInvalidArgument)

	req = valid()
	req.PointValue = 0
	assert.ErrorIs(t, req.Validate(), apperr.ErrInvalidArgument)

	req = valid()
	req.PointValue = -10
	assert.ErrorIs(t, req.Validate(), apperr.ErrInvalidArgument)

	req = valid()
	req.EndsAt = req.StartsAt
	assert.ErrorIs(t, req.Validate(), apperr.ErrInvalidArgument, "zero-length window")

	req = valid()
	req.EndsAt = req.StartsAt.Add(-time.Hour)
	assert.ErrorIs(t, req.Validate(), apperr.ErrInvalidArgument, "inverted window")

	req = valid()
	req.Difficulty = "impossible"
	assert.ErrorIs(t, req.Validate(), apperr.ErrInvalidArgument)

	req = valid()
	req.Difficulty = ""
	require.NoError(t, req.Validate())
	assert.Equal(t, DifficultyMedium, req.Difficulty, "difficulty defaults to medium")
}
