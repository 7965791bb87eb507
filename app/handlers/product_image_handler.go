package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/thisisfaizi/product-image-upload/app/dto"
	"github.com/thisisfaizi/product-image-upload/app/middleware"
	businessflow "github.com/thisisfaizi/product-image-upload/business_flow"
)

// ProductImageHandlerInterface defines the contract for shopper image upload handlers
type ProductImageHandlerInterface interface {
	UploadImages(c fiber.Ctx) error
	GetUploadConfig(c fiber.Ctx) error
}

// ProductImageHandler handles custom image submissions for products
type ProductImageHandler struct {
	flow      businessflow.ImageUploadFlow
	validator *validator.Validate
}

// NewProductImageHandler creates a new product image handler
func NewProductImageHandler(flow businessflow.ImageUploadFlow) *ProductImageHandler {
	return &ProductImageHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// UploadImages validates and stores a batch of images, then adds the product to the cart
// @Summary Upload custom product images
// @Description Submit exactly the configured number of data-URI images for a product. All images are stored or none.
// @Tags Product Images
// @Accept json
// @Produce json
// @Param product_id path int true "Product ID"
// @Param request body dto.UploadProductImagesRequest true "Images as data URIs"
// @Success 201 {object} dto.APIResponse{data=dto.UploadProductImagesResponse} "Images stored and product added to cart"
// @Failure 400 {object} dto.APIResponse "Invalid request or image count"
// @Failure 404 {object} dto.APIResponse "Product not found"
// @Failure 422 {object} dto.APIResponse "An image failed validation"
// @Failure 429 {object} dto.APIResponse "Guest submitted too quickly"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/products/{product_id}/images [post]
func (h *ProductImageHandler) UploadImages(c fiber.Ctx) error {
	productID, ok := parseProductID(c)
	if !ok {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid product ID", "INVALID_PRODUCT_ID", nil)
	}

	var req dto.UploadProductImagesRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", nil)
	}
	req.ProductID = productID
	if customerID, ok := middleware.GetCustomerIDFromContext(c); ok {
		req.CustomerID = &customerID
	} else if guest, ok := middleware.GetGuestTokenFromContext(c); ok {
		req.GuestToken = guest
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid data or image count.", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/products/{product_id}/images", defaultRequestTimeout)
	defer cancel()

	result, err := h.flow.UploadProductImages(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.uploadErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusCreated, result.Message, result)
}

func (h *ProductImageHandler) uploadErrorResponse(c fiber.Ctx, err error) error {
	if ue, ok := businessflow.AsUploadError(err); ok {
		status := fiber.StatusUnprocessableEntity
		if ue.Kind == businessflow.UploadErrStorageFailure {
			status = fiber.StatusInternalServerError
		}
		return errorResponse(c, status, ue.Message, string(ue.Kind), fiber.Map{"index": ue.Index})
	}

	var be *businessflow.BusinessError
	if errors.As(err, &be) {
		switch be.Code {
		case "INVALID_PRODUCT_ID", "NO_IMAGES_PROVIDED", "SUBMITTER_REQUIRED", "INVALID_IMAGE_COUNT",
			"PRODUCT_TYPE_NOT_SUPPORTED", "PRODUCT_NOT_CONFIGURED":
			return errorResponse(c, fiber.StatusBadRequest, be.Message, be.Code, nil)
		case "PRODUCT_NOT_FOUND":
			return errorResponse(c, fiber.StatusNotFound, be.Message, be.Code, nil)
		case "GUEST_THROTTLED":
			return errorResponse(c, fiber.StatusTooManyRequests, be.Message, be.Code, nil)
		case "REQUEST_CANCELLED":
			return errorResponse(c, fiber.StatusRequestTimeout, be.Message, be.Code, nil)
		case "CART_ADD_FAILED", "UPLOAD_DIRECTORY_UNAVAILABLE":
			log.Printf(`{"level":"error","event":"product_image_upload_failed","code":%q,"error":%q}`, be.Code, err.Error())
			return errorResponse(c, fiber.StatusInternalServerError, be.Message, be.Code, nil)
		}
	}

	log.Printf(`{"level":"error","event":"product_image_upload_failed","error":%q}`, err.Error())
	return errorResponse(c, fiber.StatusInternalServerError, "Failed to upload images", "UPLOAD_FAILED", nil)
}

// GetUploadConfig returns what the storefront needs to render the upload form
// @Summary Get product upload configuration
// @Tags Product Images
// @Produce json
// @Param product_id path int true "Product ID"
// @Success 200 {object} dto.APIResponse{data=dto.ProductUploadConfigResponse}
// @Failure 400 {object} dto.APIResponse "Invalid product or not configured"
// @Failure 404 {object} dto.APIResponse "Product not found"
// @Router /api/v1/products/{product_id}/upload-config [get]
func (h *ProductImageHandler) GetUploadConfig(c fiber.Ctx) error {
	productID, ok := parseProductID(c)
	if !ok {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid product ID", "INVALID_PRODUCT_ID", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/products/{product_id}/upload-config", defaultRequestTimeout)
	defer cancel()

	result, err := h.flow.GetProductUploadConfig(ctx, productID)
	if err != nil {
		return h.uploadErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Upload configuration retrieved successfully", result)
}

func parseProductID(c fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("product_id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
