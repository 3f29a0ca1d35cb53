package http

import (
	"net/http"

	"github.com/Eldan-star/ResearchCollab/internal/application/account"
	"github.com/Eldan-star/ResearchCollab/internal/application/notification"
	"github.com/Eldan-star/ResearchCollab/internal/application/project"
	"github.com/Eldan-star/ResearchCollab/internal/application/upload"
	"github.com/Eldan-star/ResearchCollab/internal/config"
	"github.com/Eldan-star/ResearchCollab/internal/domain"
	"github.com/Eldan-star/ResearchCollab/internal/transport/http/handler"
	appmiddleware "github.com/Eldan-star/ResearchCollab/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	accountDeps := account.ServiceDeps{
		UserRepo:            deps.UserRepo,
		ProfileRepo:         deps.ProfileRepo,
		SessionRepo:         deps.SessionRepo,
		VerificationRepo:    deps.VerificationRepo,
		Mailer:              deps.Mailer,
		RefreshTokenDur:     cfg.RefreshTokenExpiry,
		AllowedEmailDomains: cfg.AllowedEmailDomains,
	}
	// Assign only when present, so a nil pointer does not masquerade as a
	// non-nil interface value inside the service.
	if deps.JWTProvider != nil {
		accountDeps.JWTProvider = deps.JWTProvider
	}
	if deps.GoogleVerifier != nil {
		accountDeps.GoogleVerifier = deps.GoogleVerifier
	}
	accountSvc := account.NewService(accountDeps)
	notifSvc := notification.NewService(notification.ServiceDeps{
		NotificationRepo: deps.NotificationRepo,
		Push:             deps.PushPublisher,
		Broker:           deps.Broker,
	})
	projectSvc := project.NewService(project.ServiceDeps{
		ProjectRepo:     deps.ProjectRepo,
		ApplicationRepo: deps.ApplicationRepo,
		MilestoneRepo:   deps.MilestoneRepo,
		MessageRepo:     deps.MessageRepo,
		Notifier:        notifSvc,
		Broker:          deps.Broker,
	})
	uploadSvc := upload.NewService(upload.ServiceDeps{
		FileRepo:     deps.FileRepo,
		ObjectStore:  deps.S3Store,
		Participants: projectSvc,
	})

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(accountSvc)
	userH := handler.NewUserHandler(accountSvc)
	notifH := handler.NewNotificationHandler(notifSvc, cfg.NotificationPageSize)
	projectH := handler.NewProjectHandler(projectSvc)
	fileH := handler.NewFileHandler(uploadSvc)
	pwH := handler.NewPasswordRecoveryHandler(accountSvc)
	emailH := handler.NewEmailConfirmHandler(accountSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.With(sensitiveRL.Limit).Post("/sessions/login/google", sessionH.LoginGoogle)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/users", userH.Register)
		r.With(sensitiveRL.Limit).Post("/password-recovery", pwH.Request)
		r.With(sensitiveRL.Limit).Post("/password-recovery/change-password", pwH.ChangePassword)
		r.With(sensitiveRL.Limit).Post("/confirm-email", emailH.Confirm)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/profiles/{id}", userH.GetProfile)
			r.Put("/profiles/{id}", userH.UpdateProfile)

			r.Get("/notifications", notifH.List)
			r.Get("/notifications/unread-count", notifH.UnreadCount)
			r.Put("/notifications/read-all", notifH.MarkAllAsRead)
			r.Put("/notifications/{id}/read", notifH.MarkAsRead)

			r.Get("/projects", projectH.ListMine)
			r.Get("/projects/{id}", projectH.Get)
			r.Put("/projects/{id}/close", projectH.Close)
			r.Delete("/projects/{id}", projectH.Delete)
			r.Post("/projects/{id}/applications", projectH.Apply)
			r.Get("/projects/{id}/applications", projectH.ListApplications)
			r.Put("/applications/{appID}", projectH.DecideApplication)
			r.Post("/projects/{id}/milestones", projectH.CreateMilestone)
			r.Get("/projects/{id}/milestones", projectH.ListMilestones)
			r.Put("/milestones/{milestoneID}", projectH.UpdateMilestone)
			r.Post("/projects/{id}/messages", projectH.PostMessage)
			r.Get("/projects/{id}/messages", projectH.ListMessages)
			r.Post("/projects/{id}/attachments", fileH.UploadAttachment)

			r.Post("/files/photo", fileH.UploadPhoto)
			r.Get("/files/{id}", fileH.Download)
			r.Get("/files/{id}/url", fileH.SignedURL)
			r.Delete("/files/{id}", fileH.Delete)

			// Only research leads (and admins) may post projects.
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleResearchLead, domain.RoleAdmin))
				r.Post("/projects", projectH.Create)
			})
		})
	})

	return r
}
