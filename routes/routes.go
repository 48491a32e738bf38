package routes

import (
	"github.com/cornhole-club/league-system/handlers"
	"github.com/cornhole-club/league-system/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	auth *middleware.Authenticator,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	teamHandler *handlers.TeamHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Post("/auth/register", authHandler.RegisterHandler)
	router.Post("/auth/login", authHandler.LoginHandler)

	router.Route("/tournaments", func(r chi.Router) {
		// Public read access.
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetHandler)
		r.Get("/{tournamentID}/summary", tournamentHandler.SummaryHandler)
		r.Get("/{tournamentID}/bracket", tournamentHandler.GetBracketHandler)
		r.Get("/{tournamentID}/teams", teamHandler.ListHandler)
		r.Get("/{tournamentID}/teams/{teamID}/record", tournamentHandler.TeamRecordHandler)
		r.Get("/{tournamentID}/matches", matchHandler.ListHandler)
		r.Get("/{tournamentID}/matches/teams/{teamID}", matchHandler.ListByTeamHandler)

		// Authenticated players.
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Post("/{tournamentID}/teams", teamHandler.CreateHandler)
		})

		// Admin-only tournament management.
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.RequireAdmin)

			r.Post("/", tournamentHandler.CreateHandler)
			r.Post("/{tournamentID}/registration/open", tournamentHandler.OpenRegistrationHandler)
			r.Post("/{tournamentID}/registration/close", tournamentHandler.CloseRegistrationHandler)
			r.Post("/{tournamentID}/bracket", tournamentHandler.GenerateBracketHandler)
			r.Post("/{tournamentID}/bracket/publish", tournamentHandler.PublishBracketHandler)
			r.Delete("/{tournamentID}/bracket", tournamentHandler.DeleteBracketHandler)
		})
	})

	router.Route("/teams", func(r chi.Router) {
		r.Get("/{teamID}", teamHandler.GetHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Post("/join", teamHandler.JoinHandler)
			r.Delete("/{teamID}/members", teamHandler.LeaveHandler)
			r.Post("/{teamID}/logo", teamHandler.UploadLogoHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.RequireAdmin)
			r.Put("/{teamID}/seed", teamHandler.SetSeedHandler)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.GetHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Post("/{matchID}/start", matchHandler.StartHandler)
			r.Post("/{matchID}/complete", matchHandler.CompleteHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.RequireAdmin)
			r.Post("/{matchID}/reset", matchHandler.ResetHandler)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
