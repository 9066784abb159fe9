package challenge

import (
	"time"

	"github.com/google/uuid"

	"scoutQuestAPI/internal/apperr"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Challenge is a published challenge definition. GroupID nil means the
// challenge is global and available to every group.
type Challenge struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	Title            string     `json:"title" db:"title"`
	Description      string     `json:"description" db:"description"`
	PointValue       int        `json:"point_value" db:"point_value"`
	Difficulty       Difficulty `json:"difficulty" db:"difficulty"`
	GroupID          *uuid.UUID `json:"group_id" db:"group_id"`
	StartsAt         time.Time  `json:"starts_at" db:"starts_at"`
	EndsAt           time.Time  `json:"ends_at" db:"ends_at"`
	ParticipantCount int        `json:"participant_count" db:"participant_count"`
	CreatedBy        uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// OpenAt reports whether the activity window [StartsAt, EndsAt) covers at.
func (c *Challenge) OpenAt(at time.Time) bool {
	return !at.Before(c.StartsAt) && at.Before(c.EndsAt)
}

// ExpiredAt reports whether the window has closed. A submission against an
// expired challenge can only be read, never transitioned.
func (c *Challenge) ExpiredAt(at time.Time) bool {
	return !at.Before(c.EndsAt)
}

type CreateChallengeRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	PointValue  int        `json:"point_value"`
	Difficulty  Difficulty `json:"difficulty"`
	GroupID     *uuid.UUID `json:"group_id"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      time.Time  `json:"ends_at"`
}

// Validate checks the request before any state change.
func (r *CreateChallengeRequest) Validate() error {
	if r.Title == "" {
		return apperr.InvalidArgumentf("title is required")
	}
	if r.PointValue <= 0 {
		return apperr.InvalidArgumentf("point value must be positive, got %d", r.PointValue)
	}
	if !r.EndsAt.After(r.StartsAt) {
		return apperr.InvalidArgumentf("window end must be after window start")
	}
	if r.Difficulty == "" {
		r.Difficulty = DifficultyMedium
	}
	if !r.Difficulty.Valid() {
		return apperr.InvalidArgumentf("unknown difficulty %q", r.Difficulty)
	}
	return nil
}

type UpdateChallengeRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	PointValue  int        `json:"point_value"`
	Difficulty  Difficulty `json:"difficulty"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}
