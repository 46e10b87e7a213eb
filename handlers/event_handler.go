package handlers

import (
	"net/http"

	"github.com/clantools/bingo-system/services"
)

type EventHandler struct {
	eventService       *services.EventService
	leaderboardService *services.LeaderboardService
}

func NewEventHandler(es *services.EventService, ls *services.LeaderboardService) *EventHandler {
	return &EventHandler{eventService: es, leaderboardService: ls}
}

// GetActiveHandler handles GET /groups/{groupID}/event.
func (h *EventHandler) GetActiveHandler(w http.ResponseWriter, r *http.Request) {
	groupID, err := getGroupIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.eventService.GetActiveEvent(r.Context(), groupID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetLeaderboardHandler handles GET /groups/{groupID}/leaderboard.
func (h *EventHandler) GetLeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	groupID, err := getGroupIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.eventService.GetActiveEvent(r.Context(), groupID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	standings, err := h.leaderboardService.Standings(r.Context(), event.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event_id": event.ID, "standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
