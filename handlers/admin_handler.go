package handlers

import (
	"net/http"

	"github.com/Dosada05/ladder-system/middleware"
	"github.com/Dosada05/ladder-system/models"
	"github.com/Dosada05/ladder-system/services"
)

// AdminHandler — административные операции: конфигурация вызовов и ручной
// запуск проверки дедлайнов.
type AdminHandler struct {
	configService services.ConfigService
	scheduler     services.SchedulerService
	authService   services.AuthService
}

func NewAdminHandler(configService services.ConfigService, scheduler services.SchedulerService, authService services.AuthService) *AdminHandler {
	return &AdminHandler{
		configService: configService,
		scheduler:     scheduler,
		authService:   authService,
	}
}

func (h *AdminHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	config, err := h.configService.Get(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"config": config}, nil)
}

func (h *AdminHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var input models.ChallengeConfig
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	config, err := h.configService.Update(r.Context(), input, h.updatedBy(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"config": config}, nil)
}

func (h *AdminHandler) ResetConfig(w http.ResponseWriter, r *http.Request) {
	config, err := h.configService.ResetToDefault(r.Context(), h.updatedBy(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"config": config}, nil)
}

// TriggerSweep запускает проверку дедлайнов вне расписания.
func (h *AdminHandler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	report := h.scheduler.RunOnce(r.Context())
	writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil)
}

func (h *AdminHandler) updatedBy(r *http.Request) string {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		return "unknown"
	}
	user, err := h.authService.GetUser(r.Context(), userID)
	if err != nil {
		return "unknown"
	}
	return user.Email
}
