package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/thisisfaizi/product-image-upload/app/dto"
	businessflow "github.com/thisisfaizi/product-image-upload/business_flow"
)

// UploadAdminHandlerInterface defines the contract for admin upload log handlers
type UploadAdminHandlerInterface interface {
	ListLogs(c fiber.Ctx) error
	ClearLogs(c fiber.Ctx) error
	ExportLogs(c fiber.Ctx) error
	GetInfo(c fiber.Ctx) error
	RefreshPolicy(c fiber.Ctx) error
}

// UploadAdminHandler exposes the upload audit log to admins
type UploadAdminHandler struct {
	flow      businessflow.UploadAdminFlow
	validator *validator.Validate
}

// NewUploadAdminHandler creates a new upload admin handler
func NewUploadAdminHandler(flow businessflow.UploadAdminFlow) *UploadAdminHandler {
	return &UploadAdminHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// ListLogs returns the newest upload attempts
// @Summary List upload logs
// @Tags Admin Uploads
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum entries (1-1000)"
// @Success 200 {object} dto.APIResponse{data=dto.ListUploadLogsResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/admin/upload-logs [get]
func (h *UploadAdminHandler) ListLogs(c fiber.Ctx) error {
	var req dto.ListUploadLogsRequest
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "Invalid limit", "INVALID_LIMIT", nil)
		}
		req.Limit = limit
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/upload-logs", defaultRequestTimeout)
	defer cancel()

	result, err := h.flow.ListUploadLogs(ctx, &req)
	if err != nil {
		log.Println("List upload logs failed:", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to fetch upload logs", "UPLOAD_LOG_FETCH_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// ClearLogs deletes every retained upload attempt
// @Summary Clear upload logs
// @Tags Admin Uploads
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ClearUploadLogsResponse}
// @Failure 401 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/admin/upload-logs [delete]
func (h *UploadAdminHandler) ClearLogs(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/upload-logs", defaultRequestTimeout)
	defer cancel()

	result, err := h.flow.ClearUploadLogs(ctx)
	if err != nil {
		log.Println("Clear upload logs failed:", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to clear upload logs", "UPLOAD_LOG_CLEAR_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// ExportLogs downloads the retained upload log as an Excel workbook
// @Summary Export upload logs
// @Tags Admin Uploads
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {string} string "Excel file"
// @Failure 401 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/admin/upload-logs/export [get]
func (h *UploadAdminHandler) ExportLogs(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/upload-logs/export", defaultRequestTimeout)
	defer cancel()

	filename, data, err := h.flow.ExportUploadLogs(ctx)
	if err != nil {
		log.Println("Export upload logs failed:", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to generate Excel", "DOWNLOAD_FAILED", nil)
	}
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

// GetInfo describes the upload directory and default policy
// @Summary Upload directory info
// @Tags Admin Uploads
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UploadInfoResponse}
// @Failure 401 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/admin/uploads/info [get]
func (h *UploadAdminHandler) GetInfo(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/uploads/info", defaultRequestTimeout)
	defer cancel()

	result, err := h.flow.GetUploadInfo(ctx)
	if err != nil {
		log.Println("Get upload info failed:", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to read upload info", "UPLOAD_INFO_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, "Upload info retrieved successfully", result)
}

// RefreshPolicy drops the cached upload policy of a product
// @Summary Refresh product upload policy
// @Description Drops the cached policy so config changes apply immediately, and returns the policy now in effect
// @Tags Admin Uploads
// @Produce json
// @Security BearerAuth
// @Param product_id path int true "Product ID"
// @Success 200 {object} dto.APIResponse{data=dto.RefreshUploadPolicyResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Failure 422 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/admin/products/{product_id}/upload-policy/refresh [post]
func (h *UploadAdminHandler) RefreshPolicy(c fiber.Ctx) error {
	productID, ok := parseProductID(c)
	if !ok {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid product ID", "INVALID_PRODUCT_ID", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/products/{product_id}/upload-policy/refresh", defaultRequestTimeout)
	defer cancel()

	result, err := h.flow.RefreshUploadPolicy(ctx, productID)
	if err != nil {
		var be *businessflow.BusinessError
		if errors.As(err, &be) {
			switch be.Code {
			case "INVALID_PRODUCT_ID":
				return errorResponse(c, fiber.StatusBadRequest, be.Message, be.Code, nil)
			case "INVALID_POLICY":
				return errorResponse(c, fiber.StatusUnprocessableEntity, be.Message, be.Code, nil)
			}
		}
		log.Println("Refresh upload policy failed:", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to refresh upload policy", "POLICY_REFRESH_FAILED", nil)
	}
	return successResponse(c, fiber.StatusOK, result.Message, result)
}
