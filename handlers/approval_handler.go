package handlers

import (
	"errors"
	"net/http"

	"github.com/clantools/bingo-system/middleware"
	"github.com/clantools/bingo-system/services"
)

type ApprovalHandler struct {
	submissionService *services.SubmissionService
}

func NewApprovalHandler(ss *services.SubmissionService) *ApprovalHandler {
	return &ApprovalHandler{submissionService: ss}
}

type approvalInput struct {
	MessageID int64 `json:"message_id"`
}

// CreateHandler handles POST /groups/{groupID}/approvals. The bridge relays
// an approve reaction as {message_id}; admission rules are applied by the
// workflow, and signals it discards still return 202.
func (h *ApprovalHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	groupID, err := getGroupIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to approve")
		return
	}
	manage, err := middleware.GetManageGroupFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input approvalInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.MessageID <= 0 {
		badRequestResponse(w, r, errors.New("message_id must be a positive integer"))
		return
	}

	signal := services.ApprovalSignal{
		GroupID:      groupID,
		MessageID:    input.MessageID,
		UserID:       userID,
		Capabilities: services.Capabilities{ManageGroup: manage},
	}
	if err := h.submissionService.HandleApprovalSignal(r.Context(), signal); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusAccepted, jsonResponse{"status": "accepted"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
