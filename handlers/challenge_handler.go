package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Dosada05/sabo-arena/handicap"
	"github.com/Dosada05/sabo-arena/middleware"
	"github.com/Dosada05/sabo-arena/models"
	"github.com/Dosada05/sabo-arena/services"
)

type ChallengeHandler struct {
	challengeService services.ChallengeService
}

func NewChallengeHandler(cs services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{challengeService: cs}
}

// Create godoc
// @Summary Challenge another player to a stake match
// @Tags challenges
// @Accept json
// @Produce json
// @Param body body services.CreateChallengeInput true "Opponent and stake"
// @Success 201 {object} map[string]interface{}
// @Failure 422 {object} map[string]string "Invalid stake, missing rank or rank gap too large"
// @Security BearerAuth
// @Router /challenges [post]
func (h *ChallengeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.CreateChallengeInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.OpponentID <= 0 {
		badRequestResponse(w, r, errors.New("opponent_id is required"))
		return
	}

	challenge, err := h.challengeService.Create(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChallengeHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "challengeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	challenge, err := h.challengeService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMine handles GET /challenges?status=&limit=&offset= for the current user.
func (h *ChallengeHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	filter := models.ChallengeFilter{UserID: &userID, Limit: limit, Offset: offset}
	if s := r.URL.Query().Get("status"); s != "" {
		status := models.ChallengeStatus(s)
		filter.Status = &status
	}

	challenges, err := h.challengeService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenges": challenges}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChallengeHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.challengeService.Accept)
}

func (h *ChallengeHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.challengeService.Decline)
}

func (h *ChallengeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.challengeService.Cancel)
}

func (h *ChallengeHandler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, challengeID int) (*models.Challenge, error)) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := getIDFromURL(r, "challengeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	challenge, err := fn(r.Context(), userID, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitScore godoc
// @Summary Submit the raw racks won by each side
// @Description Handicap racks are added by the server. Exactly one adjusted score must equal race-to.
// @Tags challenges
// @Accept json
// @Produce json
// @Param challengeID path int true "Challenge ID"
// @Param body body services.SubmitScoreInput true "Scores"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Challenge is not accepted"
// @Failure 422 {object} map[string]string "Scores do not decide a winner"
// @Security BearerAuth
// @Router /challenges/{challengeID}/score [post]
func (h *ChallengeHandler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := getIDFromURL(r, "challengeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.SubmitScoreInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	challenge, err := h.challengeService.SubmitScore(r.Context(), userID, id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PreviewHandicap godoc
// @Summary Preview the handicap for two ranks and a stake
// @Description The explanation follows the lang query parameter, then Accept-Language, defaulting to Vietnamese.
// @Tags challenges
// @Produce json
// @Param challenger_rank query string true "Challenger rank, e.g. K+"
// @Param opponent_rank query string true "Opponent rank"
// @Param stake query int true "Stake amount"
// @Param lang query string false "vi or en"
// @Success 200 {object} handicap.Result
// @Failure 422 {object} map[string]string
// @Router /handicap [get]
func (h *ChallengeHandler) PreviewHandicap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stake, err := strconv.Atoi(q.Get("stake"))
	if err != nil {
		badRequestResponse(w, r, errors.New("invalid stake query parameter"))
		return
	}

	tag := handicap.MatchLanguage(q.Get("lang"), r.Header.Get("Accept-Language"))
	result, err := h.challengeService.PreviewHandicap(tag, q.Get("challenger_rank"), q.Get("opponent_rank"), stake)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
