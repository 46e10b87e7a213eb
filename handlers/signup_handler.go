package handlers

import (
	"net/http"

	"github.com/clantools/bingo-system/middleware"
	"github.com/clantools/bingo-system/services"
)

type SignupHandler struct {
	signupService *services.SignupService
}

func NewSignupHandler(ss *services.SignupService) *SignupHandler {
	return &SignupHandler{signupService: ss}
}

// JoinHandler handles POST /groups/{groupID}/signups. The acting user joins
// the group's active event.
func (h *SignupHandler) JoinHandler(w http.ResponseWriter, r *http.Request) {
	groupID, err := getGroupIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to sign up")
		return
	}

	if err := h.signupService.Join(r.Context(), groupID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LeaveHandler handles DELETE /groups/{groupID}/signups/{userID}. Users may
// remove themselves; removing someone else requires group management.
func (h *SignupHandler) LeaveHandler(w http.ResponseWriter, r *http.Request) {
	groupID, err := getGroupIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	targetID, err := getUserIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to leave signups")
		return
	}
	if targetID != actorID {
		manage, err := middleware.GetManageGroupFromContext(r.Context())
		if err != nil || !manage {
			forbiddenResponse(w, r, "cannot remove another user's signup")
			return
		}
	}

	if err := h.signupService.Leave(r.Context(), groupID, targetID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RosterHandler handles GET /groups/{groupID}/signups.
func (h *SignupHandler) RosterHandler(w http.ResponseWriter, r *http.Request) {
	groupID, err := getGroupIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	roster, err := h.signupService.Roster(r.Context(), groupID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"signups": roster}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
