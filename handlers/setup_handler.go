package handlers

import (
	"errors"
	"net/http"

	"github.com/clantools/bingo-system/middleware"
	"github.com/clantools/bingo-system/services"
)

type SetupHandler struct {
	wizard *services.WizardService
}

func NewSetupHandler(wizard *services.WizardService) *SetupHandler {
	return &SetupHandler{wizard: wizard}
}

// StartHandler handles POST /groups/{groupID}/setup.
func (h *SetupHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	groupID, err := getGroupIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to run setup")
		return
	}
	manage, err := middleware.GetManageGroupFromContext(r.Context())
	if err != nil || !manage {
		forbiddenResponse(w, r, services.ErrSetupForbidden.Error())
		return
	}

	prompt, err := h.wizard.Start(r.Context(), groupID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"prompt": prompt}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ReplyHandler handles POST /groups/{groupID}/setup/reply. The body is
// multipart so the final board-image step can carry a file; every other
// step only uses the "input" field.
func (h *SetupHandler) ReplyHandler(w http.ResponseWriter, r *http.Request) {
	groupID, err := getGroupIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to run setup")
		return
	}

	input, attachment, err := readReplyForm(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	prompt, done, err := h.wizard.Reply(r.Context(), groupID, userID, input, attachment)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"prompt": prompt, "done": done}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func readReplyForm(r *http.Request) (string, *services.AttachmentInput, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, err
	}

	input := r.FormValue("input")

	file, header, err := r.FormFile("attachment")
	if errors.Is(err, http.ErrMissingFile) {
		return input, nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	return input, &services.AttachmentInput{
		Reader:      file,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}
