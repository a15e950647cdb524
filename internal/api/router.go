// Package api serves read-only reports over the hospital data.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/hospital-management-system/internal/appointment"
	"github.com/hackgods/hospital-management-system/internal/inventory"
	"github.com/hackgods/hospital-management-system/internal/outcome"
)

type AppointmentReader interface {
	Get(ctx context.Context, slotID string) (*appointment.Appointment, error)
	All(ctx context.Context) ([]appointment.Appointment, error)
	AvailableSlots(ctx context.Context) ([]appointment.Appointment, error)
}

type OutcomeReader interface {
	ForPatient(ctx context.Context, patientID string) ([]outcome.Record, error)
}

type MedicineReader interface {
	LowStock(ctx context.Context) ([]inventory.Medicine, error)
}

type RouterConfig struct {
	Appointments AppointmentReader
	Outcomes     OutcomeReader
	Medicines    MedicineReader
	DataDir      string
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Log          *zap.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.DataDir, cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/appointments", listAppointmentsHandler(cfg.Appointments))
	r.Get("/appointments/available", availableSlotsHandler(cfg.Appointments))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
	r.Get("/patients/{id}/outcomes", patientOutcomesHandler(cfg.Outcomes))
	r.Get("/medicines/low-stock", lowStockHandler(cfg.Medicines))

	return r
}
