package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/elitedental/clinic-server/internal/clinic"
)

type RouterConfig struct {
	Service   *clinic.Service
	Store     clinic.Store
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	JWTSecret string
	JWTTTL    time.Duration
	Env       string
	Version   string
	Log       zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	h := NewHandler(cfg.Service, cfg.Log)
	auth := NewAuthHandler(cfg.Store, cfg.JWTSecret, cfg.JWTTTL)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", auth.Login)

		// Public booking surface.
		r.Get("/doctors", h.ListDoctors)
		r.Get("/doctors/{id}", h.GetDoctor)
		r.Get("/doctors/{id}/availability", h.ListDoctorAvailability)
		r.Get("/availability/{doctorID}/{date}", h.GetAvailableSlots)
		r.Post("/appointments", h.CreateAppointment)
		r.Get("/appointments/{id}", h.GetAppointment)
		r.Post("/contact", h.Contact)

		// Staff dashboard, token required.
		r.Group(func(r chi.Router) {
			r.Use(RequireStaff(cfg.JWTSecret))
			r.Get("/appointments", h.ListAppointments)
			r.Put("/appointments/{id}", h.UpdateAppointment)
			r.Post("/appointments/{id}/cancel", h.CancelAppointment)
			r.Post("/appointments/{id}/complete", h.CompleteAppointment)
			r.Delete("/appointments/{id}", h.DeleteAppointment)
		})
	})

	return r
}
