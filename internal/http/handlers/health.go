package handlers

import (
	"net/http"

	"github.com/uptrace/bun"

	"wasgate/internal/http/responses"
)

// HealthHandler implementa o handler de health check
type HealthHandler struct {
	db *bun.DB
}

// NewHealthHandler cria uma nova instância do health handler
func NewHealthHandler(db *bun.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health verifica a saúde da aplicação e do banco
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if err := h.db.PingContext(r.Context()); err != nil {
		dbStatus = "unreachable"
	}

	data := map[string]interface{}{
		"status":   "ok",
		"service":  "wasgate-api",
		"database": dbStatus,
	}
	if dbStatus != "ok" {
		responses.ServiceUnavailable(w, "Service is degraded", data)
		return
	}
	responses.Success(w, "Service is healthy", data)
}
