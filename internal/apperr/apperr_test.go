package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrappersMatchTheirSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{InvalidArgumentf("point value must be positive, got %d", -1), ErrInvalidArgument},
		{NotFoundf("no challenge %s", "abc"), ErrNotFound},
		{InvalidTransitionf("cannot submit from status %q", "completed"), ErrInvalidTransition},
		{Unauthorizedf("leader role required"), ErrUnauthorized},
		{ChallengeExpiredf("window closed"), ErrChallengeExpired},
		{DanglingReferencef("scout %s missing", "abc"), ErrDanglingReference},
	}

	for _, tc := range cases {
		assert.ErrorIs(t, tc.err, tc.sentinel)
	}
}

func TestWrappersSurviveFurtherWrapping(t *testing.T) {
	inner := InvalidTransitionf("cannot validate from status %q", "started")
	outer := fmt.Errorf("accept submission: %w", inner)

	assert.True(t, errors.Is(outer, ErrInvalidTransition))
	assert.False(t, errors.Is(outer, ErrChallengeExpired))
	assert.Contains(t, outer.Error(), `cannot validate from status "started"`)
}
