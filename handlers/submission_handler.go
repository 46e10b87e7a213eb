package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/clantools/bingo-system/middleware"
	"github.com/clantools/bingo-system/models"
	"github.com/clantools/bingo-system/services"
)

type SubmissionHandler struct {
	submissionService *services.SubmissionService
}

func NewSubmissionHandler(ss *services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

// CreateHandler handles POST /groups/{groupID}/submissions. The body is
// multipart: "description", optional "kind" (progress or full_tile) and the
// required "attachment" file.
func (h *SubmissionHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	groupID, err := getGroupIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to submit")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	input := services.CreateSubmissionInput{
		GroupID:     groupID,
		UserID:      userID,
		Description: r.FormValue("description"),
		Kind:        models.SubmissionKind(strings.ToLower(r.FormValue("kind"))),
	}

	file, header, err := r.FormFile("attachment")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		badRequestResponse(w, r, err)
		return
	}
	if err == nil {
		defer file.Close()
		input.Attachment = &services.AttachmentInput{
			Reader:      file,
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
		}
	}

	submission, err := h.submissionService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"submission": submission}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
