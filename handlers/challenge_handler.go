package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/ladder-system/middleware"
	"github.com/Dosada05/ladder-system/models"
	"github.com/Dosada05/ladder-system/services"
	"github.com/go-chi/chi/v5"
)

type ChallengeHandler struct {
	challengeService services.ChallengeService
	emailService     *services.EmailService
}

func NewChallengeHandler(challengeService services.ChallengeService, emailService *services.EmailService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
		emailService:     emailService,
	}
}

// actingPair достаёт пару текущего пользователя из JWT. Пользователь без
// привязанной пары не может участвовать в вызовах.
func actingPair(w http.ResponseWriter, r *http.Request) (string, bool) {
	pairID, err := middleware.GetPairIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return "", false
	}
	if pairID == "" {
		forbiddenResponse(w, r, "no pair linked to the current user")
		return "", false
	}
	return pairID, true
}

// CreateChallenge godoc
// @Summary Бросить вызов паре выше по рейтингу
// @Tags challenges
// @Accept json
// @Produce json
// @Success 201 {object} models.Challenge
// @Router /challenges [post]
func (h *ChallengeHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	pairID, ok := actingPair(w, r)
	if !ok {
		return
	}

	var input struct {
		ChallengedID string `json:"challenged_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.ChallengedID == "" {
		badRequestResponse(w, r, errors.New("challenged_id is required"))
		return
	}

	challenge, err := h.challengeService.Create(r.Context(), pairID, input.ChallengedID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChallengeHandler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	challenge, err := h.challengeService.GetByID(r.Context(), chi.URLParam(r, "challengeID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// MyChallenges возвращает все вызовы пары текущего пользователя плюс
// активный, если он есть.
func (h *ChallengeHandler) MyChallenges(w http.ResponseWriter, r *http.Request) {
	pairID, ok := actingPair(w, r)
	if !ok {
		return
	}

	challenges, err := h.challengeService.ChallengesForPair(r.Context(), pairID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	active, err := h.challengeService.ActiveChallengeForPair(r.Context(), pairID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"challenges": challenges}
	if active != nil {
		response["active_challenge"] = active
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Respond godoc
// @Summary Принять или отклонить вызов
// @Tags challenges
// @Accept json
// @Produce json
// @Success 200 {object} models.Challenge
// @Router /challenges/{challengeID}/respond [post]
func (h *ChallengeHandler) Respond(w http.ResponseWriter, r *http.Request) {
	pairID, ok := actingPair(w, r)
	if !ok {
		return
	}

	var input struct {
		Accept bool `json:"accept"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	challenge, err := h.challengeService.Respond(r.Context(), chi.URLParam(r, "challengeID"), pairID, input.Accept)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChallengeHandler) ProposeDates(w http.ResponseWriter, r *http.Request) {
	pairID, ok := actingPair(w, r)
	if !ok {
		return
	}

	var input struct {
		Dates []services.ProposedDateInput `json:"dates"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	challenge, err := h.challengeService.ProposeDates(r.Context(), chi.URLParam(r, "challengeID"), pairID, input.Dates)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChallengeHandler) SelectDate(w http.ResponseWriter, r *http.Request) {
	pairID, ok := actingPair(w, r)
	if !ok {
		return
	}

	var input struct {
		DateID string `json:"date_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.DateID == "" {
		badRequestResponse(w, r, errors.New("date_id is required"))
		return
	}

	challenge, err := h.challengeService.SelectDate(r.Context(), chi.URLParam(r, "challengeID"), pairID, input.DateID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChallengeHandler) CounterPropose(w http.ResponseWriter, r *http.Request) {
	pairID, ok := actingPair(w, r)
	if !ok {
		return
	}

	var input services.ProposedDateInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	challenge, err := h.challengeService.CounterPropose(r.Context(), chi.URLParam(r, "challengeID"), pairID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChallengeHandler) RespondToCounter(w http.ResponseWriter, r *http.Request) {
	pairID, ok := actingPair(w, r)
	if !ok {
		return
	}

	var input struct {
		Accept bool `json:"accept"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	challenge, err := h.challengeService.RespondToCounter(r.Context(), chi.URLParam(r, "challengeID"), pairID, input.Accept)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChallengeHandler) ReportResult(w http.ResponseWriter, r *http.Request) {
	pairID, ok := actingPair(w, r)
	if !ok {
		return
	}

	var input services.ReportResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.WinnerID == "" {
		badRequestResponse(w, r, errors.New("winner_id is required"))
		return
	}

	challenge, err := h.challengeService.ReportResult(r.Context(), chi.URLParam(r, "challengeID"), pairID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChallengeHandler) ConfirmResult(w http.ResponseWriter, r *http.Request) {
	pairID, ok := actingPair(w, r)
	if !ok {
		return
	}

	var input struct {
		Agree bool `json:"agree"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	challenge, err := h.challengeService.ConfirmResult(r.Context(), chi.URLParam(r, "challengeID"), pairID, input.Agree)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if challenge.Status == models.StatusDisputedResult && h.emailService != nil {
		if err := h.emailService.SendDisputeAlertEmail(challenge.ChallengerName, challenge.ChallengedName, challenge.ID); err != nil {
			slog.Warn("ошибка отправки письма о спорном результате",
				slog.String("challenge_id", challenge.ID), slog.Any("error", err))
		}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChallengeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	pairID, ok := actingPair(w, r)
	if !ok {
		return
	}

	challenge, err := h.challengeService.Cancel(r.Context(), chi.URLParam(r, "challengeID"), pairID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
