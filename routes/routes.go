package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/clantools/bingo-system/handlers"
	"github.com/clantools/bingo-system/middleware"
)

type Handlers struct {
	Setup      *handlers.SetupHandler
	Signup     *handlers.SignupHandler
	Submission *handlers.SubmissionHandler
	Approval   *handlers.ApprovalHandler
	Event      *handlers.EventHandler
	WebSocket  *handlers.WebSocketHandler
}

func InitRoutes(auth *middleware.Authenticator, h Handlers) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/groups/{groupID}", func(r chi.Router) {
		// Read-only surfaces.
		r.Get("/event", h.Event.GetActiveHandler)
		r.Get("/leaderboard", h.Event.GetLeaderboardHandler)
		r.Get("/signups", h.Signup.RosterHandler)

		// Bridge-relayed user actions.
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/setup", h.Setup.StartHandler)
			r.Post("/setup/reply", h.Setup.ReplyHandler)

			r.Post("/signups", h.Signup.JoinHandler)
			r.Delete("/signups/{userID}", h.Signup.LeaveHandler)

			r.Post("/submissions", h.Submission.CreateHandler)
			r.Post("/approvals", h.Approval.CreateHandler)
		})
	})

	router.Get("/ws/groups/{groupID}", h.WebSocket.ServeWs)

	return router
}
