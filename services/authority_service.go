package services

import (
	"context"

	"scoutQuestAPI/internal/types/scout"
	"scoutQuestAPI/internal/types/submission"
)

// ValidationAuthority decides whether an actor may accept or reject a
// pending submission. The predicate is re-evaluated at the moment of each
// call against live relation data: a parent unlinked after the scout
// submitted must not validate, and a freshly linked one must.
type ValidationAuthority struct {
	relations RelationReader
}

func NewValidationAuthority(relations RelationReader) *ValidationAuthority {
	return &ValidationAuthority{relations: relations}
}

// CanValidate returns true when the actor is a parent with an active link to
// the submitting scout, or a leader of the scout's group. The scout themself
// can never validate, whatever roles or links exist.
func (a *ValidationAuthority) CanValidate(ctx context.Context, actor *scout.Account, sub *submission.Submission) (bool, error) {
	if actor.ID == sub.ScoutID {
		return false, nil
	}

	switch actor.Role {
	case scout.RoleScout:
		return false, nil
	case scout.RoleParent:
		return a.relations.IsParentOf(ctx, actor.ID, sub.ScoutID)
	case scout.RoleLeader:
		return a.relations.IsLeaderOfScoutsGroup(ctx, actor.ID, sub.ScoutID)
	}
	return false, nil
}
