package submission

import (
	"time"

	"github.com/google/uuid"

	"scoutQuestAPI/internal/apperr"
	"scoutQuestAPI/internal/types/challenge"
)

type Status string

const (
	StatusStarted           Status = "started"
	StatusPendingValidation Status = "pending_validation"
	StatusCompleted         Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusStarted, StatusPendingValidation, StatusCompleted:
		return true
	}
	return false
}

// Submission is one scout's attempt at one challenge. Each (challenge,
// scout) pair gets a single row for its whole lifecycle: rejection reopens
// the row, it never creates a second one. A unique index enforces that.
type Submission struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	ChallengeID      uuid.UUID  `json:"challenge_id" db:"challenge_id"`
	ScoutID          uuid.UUID  `json:"scout_id" db:"scout_id"`
	Status           Status     `json:"status" db:"status"`
	ProofURL         *string    `json:"proof_url" db:"proof_url"`
	ScoutComment     *string    `json:"scout_comment" db:"scout_comment"`
	ValidatorComment *string    `json:"validator_comment" db:"validator_comment"`
	RejectReason     *string    `json:"reject_reason" db:"reject_reason"`
	StartedAt        time.Time  `json:"started_at" db:"started_at"`
	SubmittedAt      *time.Time `json:"submitted_at" db:"submitted_at"`
	ValidatedAt      *time.Time `json:"validated_at" db:"validated_at"`
	ValidatedBy      *uuid.UUID `json:"validated_by" db:"validated_by"`
	Awarded          bool       `json:"awarded" db:"awarded"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// Expired reports whether the submission is frozen because its challenge
// window has closed. Expiry is derived, never stored; an expired submission
// can be read but not transitioned.
func (s *Submission) Expired(c *challenge.Challenge, at time.Time) bool {
	return s.Status != StatusCompleted && c.ExpiredAt(at)
}

// GuardSubmit checks the submit transition (STARTED -> PENDING_VALIDATION).
// The window must still be open at call time.
func (s *Submission) GuardSubmit(c *challenge.Challenge, at time.Time) error {
	if c.ExpiredAt(at) {
		return apperr.ChallengeExpiredf("challenge %s window closed at %s", c.ID, c.EndsAt.Format(time.RFC3339))
	}
	if s.Status != StatusStarted {
		return apperr.InvalidTransitionf("cannot submit from status %q", s.Status)
	}
	return nil
}

// GuardValidate checks the accept/reject transitions, both of which require
// PENDING_VALIDATION and an open-ended challenge.
func (s *Submission) GuardValidate(c *challenge.Challenge, at time.Time) error {
	if s.Status == StatusCompleted {
		return apperr.InvalidTransitionf("submission %s is already completed", s.ID)
	}
	if c.ExpiredAt(at) {
		return apperr.ChallengeExpiredf("challenge %s window closed at %s", c.ID, c.EndsAt.Format(time.RFC3339))
	}
	if s.Status != StatusPendingValidation {
		return apperr.InvalidTransitionf("cannot validate from status %q", s.Status)
	}
	return nil
}

type StartRequest struct {
	ChallengeID uuid.UUID `json:"challenge_id"`
}

type SubmitRequest struct {
	ProofURL string `json:"proof_url"`
	Comment  string `json:"comment"`
}

type AcceptRequest struct {
	Comment string `json:"comment"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

// WithChallenge pairs a submission with its challenge for board views.
type WithChallenge struct {
	Submission *Submission          `json:"submission"`
	Challenge  *challenge.Challenge `json:"challenge"`
}
