package handlers

import (
	"errors"
	"os"

	"github.com/gofiber/fiber/v3"
	businessflow "github.com/thisisfaizi/product-image-upload/business_flow"
)

// UploadFileHandlerInterface defines the contract for serving stored uploads
type UploadFileHandlerInterface interface {
	Serve(c fiber.Ctx) error
	Preview(c fiber.Ctx) error
}

// UploadFileHandler serves images written by the secure uploader
type UploadFileHandler struct {
	flow businessflow.UploadFileFlow
}

// NewUploadFileHandler creates a new upload file handler
func NewUploadFileHandler(flow businessflow.UploadFileFlow) *UploadFileHandler {
	return &UploadFileHandler{flow: flow}
}

// Serve returns a stored image as-is
// @Summary Get uploaded image
// @Tags Uploads
// @Produce image/jpeg,image/png,image/gif,image/webp
// @Param filename path string true "Generated file name"
// @Success 200 {string} string "Image bytes"
// @Failure 400 {object} dto.APIResponse "Invalid file name"
// @Failure 404 {object} dto.APIResponse "Not found"
// @Router /uploads/{filename} [get]
func (h *UploadFileHandler) Serve(c fiber.Ctx) error {
	filename := c.Params("filename")

	ctx, cancel := createRequestContext(c, "/uploads/{filename}", defaultRequestTimeout)
	defer cancel()

	path, contentType, err := h.flow.ResolveUpload(ctx, filename)
	if err != nil {
		return uploadFileErrorResponse(c, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errorResponse(c, fiber.StatusNotFound, "File not found", "FILE_NOT_FOUND", nil)
	}

	c.Set("Content-Type", contentType)
	c.Set("X-Content-Type-Options", "nosniff")
	c.Set("Content-Disposition", "inline; filename="+filename)
	return c.Send(data)
}

// Preview returns a JPEG thumbnail of a stored image
// @Summary Preview uploaded image
// @Tags Uploads
// @Produce image/jpeg
// @Param filename path string true "Generated file name"
// @Success 200 {string} string "Thumbnail image"
// @Failure 400 {object} dto.APIResponse "Invalid file name"
// @Failure 404 {object} dto.APIResponse "Not found"
// @Failure 422 {object} dto.APIResponse "Image is too large to preview"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /uploads/{filename}/preview [get]
func (h *UploadFileHandler) Preview(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/uploads/{filename}/preview", defaultRequestTimeout)
	defer cancel()

	name, contentType, data, err := h.flow.PreviewUpload(ctx, c.Params("filename"))
	if err != nil {
		return uploadFileErrorResponse(c, err)
	}

	c.Set("Content-Type", contentType)
	c.Set("X-Content-Type-Options", "nosniff")
	c.Set("Content-Disposition", "inline; filename="+name)
	return c.Send(data)
}

func uploadFileErrorResponse(c fiber.Ctx, err error) error {
	var be *businessflow.BusinessError
	if errors.As(err, &be) {
		switch be.Code {
		case "INVALID_FILENAME", "INVALID_PATH":
			return errorResponse(c, fiber.StatusBadRequest, "Invalid file name", be.Code, nil)
		case "FILE_NOT_FOUND":
			return errorResponse(c, fiber.StatusNotFound, "File not found", be.Code, nil)
		case "PREVIEW_FAILED":
			if businessflow.IsPreviewTooLarge(err) {
				return errorResponse(c, fiber.StatusUnprocessableEntity, "Image is too large to preview", be.Code, nil)
			}
			return errorResponse(c, fiber.StatusInternalServerError, "Failed to render preview", be.Code, nil)
		}
	}
	return errorResponse(c, fiber.StatusInternalServerError, "Failed to read file", "FILE_READ_FAILED", nil)
}
