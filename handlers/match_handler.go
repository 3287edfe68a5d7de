package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/sabo-arena/services"
)

// GenerateBracketHandler handles POST /tournaments/{tournamentID}/bracket
func (h *TournamentHandler) GenerateBracketHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.tournamentService.GenerateBracket(r.Context(), actor, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ReportResultHandler godoc
// @Summary Report the winner of a bracket match
// @Description Returns every match changed by the result: the reported one and the slots the players moved into.
// @Tags tournaments
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param body body services.ReportResultInput true "Result"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Match already completed"
// @Failure 422 {object} map[string]string "Match not ready or winner not in match"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/results [post]
func (h *TournamentHandler) ReportResultHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.ReportResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.MatchNumber <= 0 || input.WinnerID <= 0 {
		badRequestResponse(w, r, errors.New("match_number and winner_id are required"))
		return
	}

	updated, err := h.tournamentService.ReportResult(r.Context(), actor, id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
