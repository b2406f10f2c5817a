package routes

import (
	"github.com/Dosada05/ladder-system/handlers"
	"github.com/Dosada05/ladder-system/middleware"
	"github.com/Dosada05/ladder-system/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

func SetupRoutes(
	router *chi.Mux,
	auth *middleware.Authenticator,
	authHandler *handlers.AuthHandler,
	pairHandler *handlers.PairHandler,
	challengeHandler *handlers.ChallengeHandler,
	adminHandler *handlers.AdminHandler,
	dashboardHandler *handlers.DashboardHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Get("/me", authHandler.Me)
		})
	})

	router.Route("/pairs", func(r chi.Router) {
		// Рейтинг открыт для чтения без авторизации
		r.Get("/", pairHandler.ListLadder)
		r.Get("/{pairID}", pairHandler.GetPair)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Post("/{pairID}/logo", pairHandler.UploadLogo)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(auth.Authorize(models.RoleAdmin))

			r.Post("/", pairHandler.CreatePair)
			r.Put("/{pairID}", pairHandler.UpdatePair)
			r.Delete("/{pairID}", pairHandler.DeletePair)
		})
	})

	router.Route("/challenges", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Post("/", challengeHandler.CreateChallenge)
		r.Get("/mine", challengeHandler.MyChallenges)
		r.Get("/{challengeID}", challengeHandler.GetChallenge)
		r.Post("/{challengeID}/respond", challengeHandler.Respond)
		r.Post("/{challengeID}/dates", challengeHandler.ProposeDates)
		r.Post("/{challengeID}/select-date", challengeHandler.SelectDate)
		r.Post("/{challengeID}/counter", challengeHandler.CounterPropose)
		r.Post("/{challengeID}/counter/respond", challengeHandler.RespondToCounter)
		r.Post("/{challengeID}/result", challengeHandler.ReportResult)
		r.Post("/{challengeID}/confirm", challengeHandler.ConfirmResult)
		r.Post("/{challengeID}/cancel", challengeHandler.Cancel)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(auth.Authorize(models.RoleAdmin))

		r.Get("/config", adminHandler.GetConfig)
		r.Put("/config", adminHandler.UpdateConfig)
		r.Post("/config/reset", adminHandler.ResetConfig)
		r.Post("/sweep", adminHandler.TriggerSweep)
		r.Get("/dashboard", dashboardHandler.Stats)
		r.Put("/users/{userID}/pair", authHandler.AssignPair)
	})

	router.Route("/ws", func(r chi.Router) {
		r.Get("/ladder", webSocketHandler.ServeLadder)
		r.Get("/pairs/{pairID}", webSocketHandler.ServePair)
	})
}
