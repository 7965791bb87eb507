package businessflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/thisisfaizi/product-image-upload/app/dto"
	"github.com/thisisfaizi/product-image-upload/app/services"
	"github.com/thisisfaizi/product-image-upload/config"
	"github.com/thisisfaizi/product-image-upload/models"
	"github.com/thisisfaizi/product-image-upload/repository"
	"github.com/thisisfaizi/product-image-upload/utils"
)

// ImageUploadFlow handles shopper image batches for configured products
type ImageUploadFlow interface {
	UploadProductImages(ctx context.Context, req *dto.UploadProductImagesRequest, metadata *ClientMetadata) (*dto.UploadProductImagesResponse, error)
	GetProductUploadConfig(ctx context.Context, productID uint) (*dto.ProductUploadConfigResponse, error)
}

// ImageUploadFlowImpl implements ImageUploadFlow
type ImageUploadFlowImpl struct {
	productRepo  repository.ProductRepository
	cartRepo     repository.CartItemRepository
	policies     PolicyProvider
	throttle     services.GuestThrottle
	auditor      UploadAuditor
	uploadConfig config.UploadConfig

	newUploader func(policy *ValidationPolicy) SecureUploader
}

// NewImageUploadFlow creates a new image upload flow
func NewImageUploadFlow(
	productRepo repository.ProductRepository,
	cartRepo repository.CartItemRepository,
	policies PolicyProvider,
	throttle services.GuestThrottle,
	auditor UploadAuditor,
	uploadConfig config.UploadConfig,
) *ImageUploadFlowImpl {
	f := &ImageUploadFlowImpl{
		productRepo:  productRepo,
		cartRepo:     cartRepo,
		policies:     policies,
		throttle:     throttle,
		auditor:      auditor,
		uploadConfig: uploadConfig,
	}
	f.newUploader = f.defaultUploader
	return f
}

func (f *ImageUploadFlowImpl) defaultUploader(policy *ValidationPolicy) SecureUploader {
	u := NewSecureUploader(SecureUploaderOptions{
		Dir:                       f.uploadConfig.Dir,
		PublicBaseURL:             f.uploadConfig.PublicBaseURL,
		ScratchDir:                f.uploadConfig.ScratchDir,
		AllowedTypes:              policy.AllowedTypes,
		FailClosedOnMissingSignal: f.uploadConfig.FailClosedOnMissingSignal,
		Auditor:                   f.auditor,
	})
	u.Configure(policy.MaxFileSize, policy.Resolution)
	return u
}

// UploadProductImages validates and stores every image of the batch, then adds
// the product to the submitter's cart. Either all images are kept or none.
func (f *ImageUploadFlowImpl) UploadProductImages(ctx context.Context, req *dto.UploadProductImagesRequest, metadata *ClientMetadata) (*dto.UploadProductImagesResponse, error) {
	if req == nil || req.ProductID == 0 {
		return nil, NewBusinessError("INVALID_PRODUCT_ID", "Invalid product ID", ErrInvalidProductID)
	}
	if len(req.Images) == 0 {
		return nil, NewBusinessError("NO_IMAGES_PROVIDED", "No images provided", ErrNoImagesProvided)
	}
	if metadata == nil {
		metadata = NewClientMetadata("", "")
	}

	submitter := SubmitterContext{UserID: req.CustomerID, AnonymousToken: req.GuestToken}
	if submitter.IsGuest() && submitter.AnonymousToken == "" {
		return nil, NewBusinessError("SUBMITTER_REQUIRED", "Submitter identity is required", ErrSubmitterIdentityRequired)
	}

	if submitter.IsGuest() && f.throttle != nil {
		allowed, err := f.throttle.Allow(ctx, metadata.IPAddress)
		if err != nil {
			log.Printf(`{"level":"warn","event":"guest_throttle_unavailable","error":%q}`, err.Error())
		}
		if !allowed {
			return nil, NewBusinessError("GUEST_THROTTLED", "Please wait a few seconds before uploading again.", ErrGuestThrottled)
		}
	}

	product, err := f.productRepo.ByID(ctx, req.ProductID)
	if err != nil {
		return nil, NewBusinessError("PRODUCT_LOOKUP_FAILED", "Failed to load product", err)
	}
	if product == nil {
		return nil, NewBusinessError("PRODUCT_NOT_FOUND", "Product not found", ErrProductNotFound)
	}
	if !product.AcceptsCustomImages() {
		return nil, NewBusinessError("PRODUCT_TYPE_NOT_SUPPORTED", "This product type does not support custom image upload", ErrProductTypeNotSupported)
	}

	policy, err := f.policies.GetPolicy(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	if len(req.Images) != policy.ImageCount {
		return nil, NewBusinessErrorf("INVALID_IMAGE_COUNT", "Invalid data or image count. Expected %d images.", ErrInvalidImageCount, policy.ImageCount)
	}

	uploader := f.newUploader(policy)
	if err := uploader.EnsureSecureDirectory(); err != nil {
		return nil, NewBusinessError("UPLOAD_DIRECTORY_UNAVAILABLE", "Could not create secure upload directory.", err)
	}

	artifacts := make([]*StoredImageArtifact, 0, len(req.Images))
	for i, dataURI := range req.Images {
		if err := ctx.Err(); err != nil {
			f.discard(uploader, artifacts)
			return nil, NewBusinessError("REQUEST_CANCELLED", "Upload was cancelled", err)
		}
		artifact, err := uploader.ProcessImage(ctx, dataURI, i, product.ID, submitter, metadata.IPAddress)
		if err != nil {
			f.discard(uploader, artifacts)
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}

	item := &models.CartItem{
		CustomerID:     req.CustomerID,
		ProductID:      product.ID,
		Quantity:       1,
		Status:         models.CartItemStatusActive,
		ExpiresAt:      utils.UTCNowAdd(f.cartItemTTL()),
		ImageURLs:      make([]string, 0, len(artifacts)),
		ImageFilenames: make([]string, 0, len(artifacts)),
	}
	if submitter.IsGuest() {
		item.GuestToken = utils.ToPtr(submitter.AnonymousToken)
	}
	for _, a := range artifacts {
		item.ImageURLs = append(item.ImageURLs, a.URL)
		item.ImageFilenames = append(item.ImageFilenames, a.Filename)
	}
	if err := f.cartRepo.Save(ctx, item); err != nil {
		f.discard(uploader, artifacts)
		return nil, NewBusinessError("CART_ADD_FAILED", "Failed to add product to cart.", fmt.Errorf("%w: %v", ErrCartAddFailed, err))
	}

	images := make([]dto.UploadedImageDTO, 0, len(artifacts))
	for _, a := range artifacts {
		images = append(images, dto.UploadedImageDTO{
			Index:    a.Index,
			URL:      a.URL,
			Filename: a.Filename,
			MimeType: a.MimeType,
			Size:     a.Size,
			Width:    a.Width,
			Height:   a.Height,
		})
	}

	return &dto.UploadProductImagesResponse{
		Message:      "Product added to cart with custom images!",
		ProductID:    product.ID,
		CartItemUUID: item.UUID.String(),
		Images:       images,
	}, nil
}

// discard removes everything stored so far for a failed batch
func (f *ImageUploadFlowImpl) discard(uploader SecureUploader, artifacts []*StoredImageArtifact) {
	if len(artifacts) == 0 {
		return
	}
	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		paths = append(paths, a.Path)
	}
	removed := uploader.Cleanup(paths)
	productImageBatchCleanupsTotal.Add(float64(removed))
}

func (f *ImageUploadFlowImpl) cartItemTTL() time.Duration {
	if f.uploadConfig.CartItemTTL > 0 {
		return f.uploadConfig.CartItemTTL
	}
	return utils.CartItemTTL
}

// GetProductUploadConfig returns what the storefront needs to render the upload form
func (f *ImageUploadFlowImpl) GetProductUploadConfig(ctx context.Context, productID uint) (*dto.ProductUploadConfigResponse, error) {
	if productID == 0 {
		return nil, NewBusinessError("INVALID_PRODUCT_ID", "Invalid product ID", ErrInvalidProductID)
	}
	product, err := f.productRepo.ByID(ctx, productID)
	if err != nil {
		return nil, NewBusinessError("PRODUCT_LOOKUP_FAILED", "Failed to load product", err)
	}
	if product == nil {
		return nil, NewBusinessError("PRODUCT_NOT_FOUND", "Product not found", ErrProductNotFound)
	}
	if !product.AcceptsCustomImages() {
		return nil, NewBusinessError("PRODUCT_TYPE_NOT_SUPPORTED", "This product type does not support custom image upload", ErrProductTypeNotSupported)
	}

	policy, err := f.policies.GetPolicy(ctx, productID)
	if err != nil {
		return nil, err
	}

	resp := &dto.ProductUploadConfigResponse{
		ProductID:        productID,
		ImageCount:       policy.ImageCount,
		AllowedTypes:     policy.AllowedTypes,
		MaxFileSize:      policy.MaxFileSize,
		MaxFileSizeHuman: utils.SizeFormat(policy.MaxFileSize),
	}
	if r := policy.Resolution; r != nil {
		resp.ResolutionEnabled = true
		resp.Resolution = &dto.ResolutionBoundsDTO{
			MinWidth:  r.MinWidth,
			MinHeight: r.MinHeight,
			MaxWidth:  r.MaxWidth,
			MaxHeight: r.MaxHeight,
		}
	}
	return resp, nil
}
