package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"scoutQuestAPI/internal/types/scout"
	"scoutQuestAPI/middleware"
	"scoutQuestAPI/services"
)

// AdminHandler exposes the operator reconciliation surface for awards that
// could not complete (dangling references).
type AdminHandler struct {
	pointsService *services.PointsService
	userService   *services.UserService
}

func NewAdminHandler(pointsService *services.PointsService, userService *services.UserService) *AdminHandler {
	return &AdminHandler{
		pointsService: pointsService,
		userService:   userService,
	}
}

func (h *AdminHandler) requireLeader(ctx context.Context, w http.ResponseWriter) bool {
	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return false
	}

	caller, err := h.userService.GetByClerkID(ctx, clerkID)
	if err != nil {
		respondWithAppError(w, err)
		return false
	}
	if caller.Role != scout.RoleLeader {
		respondWithError(w, http.StatusForbidden, "Leader role required")
		return false
	}
	return true
}

func (h *AdminHandler) GetUnreconciledAwards(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if !h.requireLeader(ctx, w) {
		return
	}

	awards, err := h.pointsService.ListUnreconciled(ctx)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, awards)
}

// RetryAward re-runs the award path for one submission. AwardOnce is
// idempotent, so retrying a submission that recovered in the meantime is a
// harmless no-op.
func (h *AdminHandler) RetryAward(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if !h.requireLeader(ctx, w) {
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid submission id")
		return
	}

	result, err := h.pointsService.AwardOnce(ctx, id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	if result.Credited {
		middleware.AwardsGranted.Inc()
	} else {
		middleware.DuplicateAwardsSuppressed.Inc()
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"submission_id": id,
		"credited":      result.Credited,
	})
}
