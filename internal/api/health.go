package api

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	dataDir string
	pgPool  *pgxpool.Pool
	redis   *redis.Client
	env     string
	version string
}

// NewHealthHandler checks the data directory always and Postgres and Redis
// only when a client is given.
func NewHealthHandler(dataDir string, pgPool *pgxpool.Pool, redis *redis.Client, env, version string) *HealthHandler {
	return &HealthHandler{
		dataDir: dataDir,
		pgPool:  pgPool,
		redis:   redis,
		env:     env,
		version: version,
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string)
	status := "ok"

	// The CSV tables are the system of record; without them nothing works.
	if fi, err := os.Stat(h.dataDir); err != nil || !fi.IsDir() {
		deps["data_dir"] = "down"
		status = "error"
	} else {
		deps["data_dir"] = "ok"
	}

	// Postgres and Redis are optional mirrors, losing them only degrades.
	if h.pgPool != nil {
		pgCtx, pgCancel := context.WithTimeout(ctx, time.Second)
		err := h.pgPool.Ping(pgCtx)
		pgCancel()
		deps["postgres"] = "ok"
		if err != nil {
			deps["postgres"] = "down"
			status = degrade(status)
		}
	}

	if h.redis != nil {
		redisCtx, redisCancel := context.WithTimeout(ctx, time.Second)
		err := h.redis.Ping(redisCtx).Err()
		redisCancel()
		deps["redis"] = "ok"
		if err != nil {
			deps["redis"] = "down"
			status = degrade(status)
		}
	}

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	})
}

func degrade(status string) string {
	if status == "ok" {
		return "degraded"
	}
	return status
}
