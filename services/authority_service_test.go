package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoutQuestAPI/internal/types/scout"
	"scoutQuestAPI/internal/types/submission"
)

// fakeRelations is a RelationReader with canned answers, so the authority
// predicate can be exercised without a database.
type fakeRelations struct {
	parentOf bool
	leads    bool
	err      error
}

func (f *fakeRelations) IsParentOf(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return f.parentOf, f.err
}

func (f *fakeRelations) IsLeaderOfScoutsGroup(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return f.leads, f.err
}

func (f *fakeRelations) ScoutGroupID(_ context.Context, _ uuid.UUID) (*uuid.UUID, error) {
	return nil, nil
}

func TestCanValidateSelfIsAlwaysDenied(t *testing.T) {
	scoutID := uuid.New()
	actor := &scout.Account{ID: scoutID, Role: scout.RoleLeader}
	sub := &submission.Submission{ScoutID: scoutID}

	// Even with every relation answering yes, the submitting scout can never
	// validate their own attempt.
	authority := NewValidationAuthority(&fakeRelations{parentOf: true, leads: true})

	ok, err := authority.CanValidate(context.Background(), actor, sub)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanValidateScoutRoleIsDenied(t *testing.T) {
	actor := &scout.Account{ID: uuid.New(), Role: scout.RoleScout}
	sub := &submission.Submission{ScoutID: uuid.New()}

	authority := NewValidationAuthority(&fakeRelations{parentOf: true, leads: true})

	ok, err := authority.CanValidate(context.Background(), actor, sub)
	require.NoError(t, err)
	assert.False(t, ok, "another scout is never a validator, whatever links exist")
}

func TestCanValidateParentFollowsLink(t *testing.T) {
	actor := &scout.Account{ID: uuid.New(), Role: scout.RoleParent}
	sub := &submission.Submission{ScoutID: uuid.New()}

	linked := NewValidationAuthority(&fakeRelations{parentOf: true})
	ok, err := linked.CanValidate(context.Background(), actor, sub)
	require.NoError(t, err)
	assert.True(t, ok)

	unlinked := NewValidationAuthority(&fakeRelations{parentOf: false})
	ok, err = unlinked.CanValidate(context.Background(), actor, sub)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanValidateLeaderFollowsGroup(t *testing.T) {
	actor := &scout.Account{ID: uuid.New(), Role: scout.RoleLeader}
	sub := &submission.Submission{ScoutID: uuid.New()}

	sameGroup := NewValidationAuthority(&fakeRelations{leads: true})
	ok, err := sameGroup.CanValidate(context.Background(), actor, sub)
	require.NoError(t, err)
	assert.True(t, ok)

	otherGroup := NewValidationAuthority(&fakeRelations{leads: false})
	ok, err = otherGroup.CanValidate(context.Background(), actor, sub)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanValidatePropagatesRelationErrors(t *testing.T) {
	actor := &scout.Account{ID: uuid.New(), Role: scout.RoleParent}
	sub := &submission.Submission{ScoutID: uuid.New()}

	boom := errors.New("relation store unavailable")
	authority := NewValidationAuthority(&fakeRelations{err: boom})

	ok, err := authority.CanValidate(context.Background(), actor, sub)
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}
