package handlers

import (
	"context"
	"net/http"
	"time"

	"scoutQuestAPI/internal/apperr"
	"scoutQuestAPI/internal/types/leaderboard"
	"scoutQuestAPI/middleware"
	"scoutQuestAPI/services"
)

type LeaderboardHandler struct {
	leaderboardService *services.LeaderboardService
	userService        *services.UserService
}

func NewLeaderboardHandler(leaderboardService *services.LeaderboardService, userService *services.UserService) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
		userService:        userService,
	}
}

// scopeFromRequest resolves the requested scope. scope=global ranks every
// group; anything else ranks the caller's own group.
func (h *LeaderboardHandler) scopeFromRequest(ctx context.Context, r *http.Request, clerkID string) (leaderboard.Scope, error) {
	if r.URL.Query().Get("scope") == "global" {
		return leaderboard.GlobalScope(), nil
	}

	caller, err := h.userService.GetByClerkID(ctx, clerkID)
	if err != nil {
		return leaderboard.Scope{}, err
	}
	if caller.GroupID == nil {
		return leaderboard.Scope{}, apperr.InvalidArgumentf("account has no group, use scope=global")
	}
	return leaderboard.GroupScope(*caller.GroupID), nil
}

func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	scope, err := h.scopeFromRequest(ctx, r, clerkID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	caller, err := h.userService.GetByClerkID(ctx, clerkID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	board, err := h.leaderboardService.Rank(ctx, scope, &caller.ID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, board)
}

func (h *LeaderboardHandler) GetMyRank(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	scope, err := h.scopeFromRequest(ctx, r, clerkID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	caller, err := h.userService.GetByClerkID(ctx, clerkID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	entry, err := h.leaderboardService.RankOf(ctx, scope, caller.ID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, entry)
}
