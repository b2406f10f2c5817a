package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/ladder-system/middleware"
	"github.com/Dosada05/ladder-system/models"
	"github.com/Dosada05/ladder-system/services"
	"github.com/go-chi/chi/v5"
)

type PairHandler struct {
	pairService      services.PairService
	challengeService services.ChallengeService
}

func NewPairHandler(pairService services.PairService, challengeService services.ChallengeService) *PairHandler {
	return &PairHandler{
		pairService:      pairService,
		challengeService: challengeService,
	}
}

// ListLadder godoc
// @Summary Рейтинг пар по позициям
// @Tags pairs
// @Produce json
// @Success 200 {array} models.Pair
// @Router /pairs [get]
func (h *PairHandler) ListLadder(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.pairService.ListLadder(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	busyIDs, err := h.challengeService.PairsWithActiveChallenges(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	busy := make(map[string]bool, len(busyIDs))
	for _, id := range busyIDs {
		busy[id] = true
	}

	type ladderEntry struct {
		Pair         *models.Pair `json:"pair"`
		InActiveGame bool         `json:"in_active_game"`
	}
	entries := make([]ladderEntry, 0, len(pairs))
	for _, pair := range pairs {
		entries = append(entries, ladderEntry{Pair: pair, InActiveGame: busy[pair.ID]})
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ladder": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PairHandler) GetPair(w http.ResponseWriter, r *http.Request) {
	pairID := chi.URLParam(r, "pairID")

	pair, err := h.pairService.GetByID(r.Context(), pairID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"pair": pair}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreatePair godoc
// @Summary Зарегистрировать пару (встаёт в конец рейтинга)
// @Tags pairs
// @Accept json
// @Produce json
// @Success 201 {object} models.Pair
// @Router /pairs [post]
func (h *PairHandler) CreatePair(w http.ResponseWriter, r *http.Request) {
	var input services.CreatePairInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	pair, err := h.pairService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"pair": pair}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PairHandler) UpdatePair(w http.ResponseWriter, r *http.Request) {
	pairID := chi.URLParam(r, "pairID")

	var input services.UpdatePairInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	pair, err := h.pairService.Update(r.Context(), pairID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"pair": pair}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeletePair удаляет пару и закрывает разрыв в позициях. Только администратор.
func (h *PairHandler) DeletePair(w http.ResponseWriter, r *http.Request) {
	pairID := chi.URLParam(r, "pairID")

	if err := h.pairService.Delete(r.Context(), pairID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PairHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	pairID := chi.URLParam(r, "pairID")

	role, _ := middleware.GetUserRoleFromContext(r.Context())
	ownPairID, _ := middleware.GetPairIDFromContext(r.Context())
	if role != models.RoleAdmin && ownPairID != pairID {
		forbiddenResponse(w, r, "operation not allowed for the current user")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		badRequestResponse(w, r, errors.New("failed to parse multipart form"))
		return
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	pair, err := h.pairService.UploadLogo(r.Context(), pairID, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"pair": pair}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
