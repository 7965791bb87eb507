package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/thisisfaizi/product-image-upload/app/dto"
	"github.com/thisisfaizi/product-image-upload/utils"
)

// HealthCheck checks one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler reports process and dependency health
type HealthHandler struct {
	version     string
	environment string
	checks      map[string]HealthCheck
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version, environment string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		version:     version,
		environment: environment,
		checks:      checks,
	}
}

// Health runs every dependency check
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.HealthResponse}
// @Failure 503 {object} dto.APIResponse{data=dto.HealthResponse}
// @Router /api/v1/health [get]
func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	resp := dto.HealthResponse{
		Status:      "ok",
		Version:     h.version,
		Environment: h.environment,
		Time:        utils.UTCNow().Format(time.RFC3339),
		Checks:      make(map[string]string, len(h.checks)),
	}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = "down"
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "up"
	}

	if resp.Status != "ok" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.APIResponse{
			Success: false,
			Message: "Service is degraded",
			Data:    resp,
			Error:   dto.ErrorDetail{Code: "SERVICE_DEGRADED"},
		})
	}
	return successResponse(c, fiber.StatusOK, "Service is healthy", resp)
}
