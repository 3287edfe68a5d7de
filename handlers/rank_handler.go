package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Dosada05/sabo-arena/middleware"
	"github.com/Dosada05/sabo-arena/services"
)

type RankHandler struct {
	rankService services.RankService
}

func NewRankHandler(rs services.RankService) *RankHandler {
	return &RankHandler{rankService: rs}
}

// Submit godoc
// @Summary Request rank verification
// @Tags ranks
// @Accept multipart/form-data
// @Produce json
// @Param requested_rank formData string true "Requested rank, e.g. H+"
// @Param note formData string false "Note for the reviewer"
// @Param evidence formData file true "Evidence image"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "A request is already pending"
// @Security BearerAuth
// @Router /rank-requests [post]
func (h *RankHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	evidence, closer, err := formFile(w, r, "evidence")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer closer.Close()

	input := services.RankRequestInput{RequestedRank: r.FormValue("requested_rank")}
	if input.RequestedRank == "" {
		badRequestResponse(w, r, errors.New("requested_rank is required"))
		return
	}
	if note := strings.TrimSpace(r.FormValue("note")); note != "" {
		input.Note = &note
	}

	req, err := h.rankService.SubmitRequest(r.Context(), userID, input, evidence)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"request": req}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RankHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	requests, err := h.rankService.ListMyRequests(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"requests": requests}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RankHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	requests, err := h.rankService.ListPending(r.Context(), limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"requests": requests}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RankHandler) Approve(w http.ResponseWriter, r *http.Request) {
	reviewerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := getIDFromURL(r, "requestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	req, err := h.rankService.Approve(r.Context(), reviewerID, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"request": req}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RankHandler) Reject(w http.ResponseWriter, r *http.Request) {
	reviewerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := getIDFromURL(r, "requestID")
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

	req, err := h.rankService.Reject(r.Context(), reviewerID, id, input.Reason)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"request": req}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
