package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/sabo-arena/middleware"
	"github.com/Dosada05/sabo-arena/models"
	"github.com/Dosada05/sabo-arena/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(us services.UserService) *UserHandler {
	return &UserHandler{userService: us}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	h.writeProfile(w, r, userID)
}

func (h *UserHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.writeProfile(w, r, userID)
}

func (h *UserHandler) writeProfile(w http.ResponseWriter, r *http.Request, userID int) {
	user, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input services.UpdateProfileInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.DisplayName == nil && input.Phone == nil && input.ClubName == nil && input.Bio == nil {
		badRequestResponse(w, r, errors.New("no fields provided for update"))
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadAvatar godoc
// @Summary Upload the current user's avatar
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Param avatar formData file true "Image (jpeg, png, gif, webp; max 5 MiB)"
// @Success 200 {object} map[string]interface{}
// @Failure 413 {object} map[string]string
// @Failure 415 {object} map[string]string
// @Security BearerAuth
// @Router /users/me/avatar [post]
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	file, closer, err := formFile(w, r, "avatar")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer closer.Close()

	user, err := h.userService.UploadAvatar(r.Context(), userID, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Search handles GET /users/search?q=&rank=&limit=
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var rank *models.Rank
	if s := r.URL.Query().Get("rank"); s != "" {
		parsed, err := models.ParseRank(s)
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
		rank = &parsed
	}

	users, err := h.userService.SearchPlayers(r.Context(), r.URL.Query().Get("q"), rank, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"users": users}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	order := models.LeaderboardOrder(r.URL.Query().Get("order"))

	users, err := h.userService.Leaderboard(r.Context(), order, limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"users": users, "limit": limit, "offset": offset}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) EloHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	history, err := h.userService.EloHistory(r.Context(), userID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"history": history}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) SpaHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	txs, err := h.userService.SpaHistory(r.Context(), userID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"transactions": txs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
