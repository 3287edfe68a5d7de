package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/sabo-arena/middleware"
	"github.com/Dosada05/sabo-arena/models"
	"github.com/Dosada05/sabo-arena/services"
)

type AdminHandler struct {
	adminService services.AdminService
}

func NewAdminHandler(s services.AdminService) *AdminHandler {
	return &AdminHandler{adminService: s}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := models.UserFilter{Search: q.Get("search"), Limit: limit, Offset: offset}
	if status := q.Get("status"); status != "" {
		s := models.UserStatus(status)
		filter.Status = &s
	}
	if rank := q.Get("rank"); rank != "" {
		parsed, err := models.ParseRank(rank)
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
		filter.Rank = &parsed
	}

	res, err := h.adminService.ListUsers(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, res, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) BanUser(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	userID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		Reason string `json:"reason"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.adminService.BanUser(r.Context(), actor, userID, input.Reason); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	userID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.adminService.UnbanUser(r.Context(), actor, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) IssuePenalty(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	var input services.IssuePenaltyInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.UserID <= 0 {
		badRequestResponse(w, r, errors.New("user_id is required"))
		return
	}

	penalty, err := h.adminService.IssuePenalty(r.Context(), actor, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"penalty": penalty}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListUserPenalties serves both the admin view of any user and a player's
// own list.
func (h *AdminHandler) ListUserPenalties(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.writePenalties(w, r, userID)
}

func (h *AdminHandler) ListMyPenalties(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	h.writePenalties(w, r, userID)
}

func (h *AdminHandler) writePenalties(w http.ResponseWriter, r *http.Request, userID int) {
	penalties, err := h.adminService.ListPenalties(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"penalties": penalties}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ListOpenAppeals(w http.ResponseWriter, r *http.Request) {
	penalties, err := h.adminService.ListOpenAppeals(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"penalties": penalties}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AppealPenalty godoc
// @Summary Appeal a penalty
// @Tags penalties
// @Accept json
// @Produce json
// @Param penaltyID path int true "Penalty ID"
// @Param body body object{appeal_text=string} true "Appeal, at least 50 characters"
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} map[string]string "Appeal too short"
// @Security BearerAuth
// @Router /penalties/{penaltyID}/appeal [post]
func (h *AdminHandler) AppealPenalty(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	penaltyID, err := getIDFromURL(r, "penaltyID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		AppealText string `json:"appeal_text"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	penalty, err := h.adminService.AppealPenalty(r.Context(), userID, penaltyID, input.AppealText)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"penalty": penalty}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ResolveAppeal(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	penaltyID, err := getIDFromURL(r, "penaltyID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		Accept *bool `json:"accept"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Accept == nil {
		badRequestResponse(w, r, errors.New("accept is required"))
		return
	}

	penalty, err := h.adminService.ResolveAppeal(r.Context(), actor, penaltyID, *input.Accept)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"penalty": penalty}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) RunMigrations(w http.ResponseWriter, r *http.Request) {
	status, err := h.adminService.RunMigrations(r.Context())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, status, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) MigrationStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.adminService.MigrationStatus(r.Context())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, status, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
