package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/thisisfaizi/product-image-upload/config"
	"github.com/thisisfaizi/product-image-upload/models"
	"github.com/thisisfaizi/product-image-upload/repository"
	"github.com/thisisfaizi/product-image-upload/utils"
)

// ValidationPolicy is the effective upload policy of one product
type ValidationPolicy struct {
	ProductID    uint              `json:"product_id"`
	Enabled      bool              `json:"enabled"`
	ImageCount   int               `json:"image_count" validate:"min=1,max=50"`
	MaxFileSize  int64             `json:"max_file_size" validate:"min=1024"`
	AllowedTypes []string          `json:"allowed_types" validate:"required,min=1,dive,oneof=jpg jpeg png gif webp"`
	Resolution   *ResolutionPolicy `json:"resolution,omitempty" validate:"omitempty"`
}

// PolicyProvider is the read-only source of upload policies
type PolicyProvider interface {
	GetPolicy(ctx context.Context, productID uint) (*ValidationPolicy, error)
	GetDefaultPolicy(ctx context.Context) (*ValidationPolicy, error)
	InvalidatePolicy(ctx context.Context, productID uint) error
}

// PolicyProviderImpl merges per-product configs over the store defaults
type PolicyProviderImpl struct {
	configRepo   repository.ProductImageConfigRepository
	settingsRepo repository.UploadSettingsRepository
	rc           *redis.Client
	cacheConfig  config.CacheConfig
	uploadConfig config.UploadConfig
	validate     *validator.Validate
}

// NewPolicyProvider creates a policy provider. rc may be nil to disable caching.
func NewPolicyProvider(
	configRepo repository.ProductImageConfigRepository,
	settingsRepo repository.UploadSettingsRepository,
	rc *redis.Client,
	cacheConfig config.CacheConfig,
	uploadConfig config.UploadConfig,
) *PolicyProviderImpl {
	return &PolicyProviderImpl{
		configRepo:   configRepo,
		settingsRepo: settingsRepo,
		rc:           rc,
		cacheConfig:  cacheConfig,
		uploadConfig: uploadConfig,
		validate:     validator.New(),
	}
}

func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}

func (p *PolicyProviderImpl) policyCacheKey(productID uint) string {
	return redisKey(p.cacheConfig, "policy:"+strconv.FormatUint(uint64(productID), 10))
}

// GetPolicy returns the effective policy of a product, or ErrProductNotConfigured
// when the product has no enabled config.
func (p *PolicyProviderImpl) GetPolicy(ctx context.Context, productID uint) (*ValidationPolicy, error) {
	if productID == 0 {
		return nil, NewBusinessError("INVALID_PRODUCT_ID", "Invalid product ID", ErrInvalidProductID)
	}

	if cached := p.cachedPolicy(ctx, productID); cached != nil {
		if !cached.Enabled {
			return nil, NewBusinessError("PRODUCT_NOT_CONFIGURED", "Custom image upload is not enabled for this product", ErrProductNotConfigured)
		}
		return cached, nil
	}

	cfg, err := p.configRepo.ByProductID(ctx, productID)
	if err != nil {
		return nil, NewBusinessError("POLICY_LOOKUP_FAILED", "Failed to load upload configuration", err)
	}
	if cfg == nil {
		return nil, NewBusinessError("PRODUCT_NOT_CONFIGURED", "Custom image upload is not enabled for this product", ErrProductNotConfigured)
	}

	defaults, err := p.GetDefaultPolicy(ctx)
	if err != nil {
		return nil, err
	}

	policy := mergePolicy(cfg, defaults)
	if err := p.validatePolicy(policy); err != nil {
		return nil, NewBusinessError("INVALID_POLICY", "Upload configuration for this product is invalid", err)
	}
	p.storePolicy(ctx, policy)

	if !policy.Enabled {
		return nil, NewBusinessError("PRODUCT_NOT_CONFIGURED", "Custom image upload is not enabled for this product", ErrProductNotConfigured)
	}
	return policy, nil
}

// GetDefaultPolicy returns the store-wide defaults, falling back to the process configuration
func (p *PolicyProviderImpl) GetDefaultPolicy(ctx context.Context) (*ValidationPolicy, error) {
	policy := &ValidationPolicy{
		Enabled:      true,
		ImageCount:   p.uploadConfig.DefaultImageCount,
		MaxFileSize:  p.uploadConfig.DefaultMaxFileSize,
		AllowedTypes: utils.NormalizeExtensions(p.uploadConfig.DefaultAllowedTypes),
	}

	if p.settingsRepo != nil {
		settings, err := p.settingsRepo.Get(ctx)
		if err != nil {
			return nil, NewBusinessError("POLICY_LOOKUP_FAILED", "Failed to load upload defaults", err)
		}
		if settings != nil {
			applySettings(policy, settings)
		}
	}

	if policy.ImageCount == 0 {
		policy.ImageCount = utils.DefaultImageCount
	}
	if policy.MaxFileSize == 0 {
		policy.MaxFileSize = utils.DefaultMaxFileSize
	}
	if len(policy.AllowedTypes) == 0 {
		policy.AllowedTypes = append([]string(nil), utils.AllowedImageExtensions...)
	}

	if err := p.validatePolicy(policy); err != nil {
		return nil, NewBusinessError("INVALID_POLICY", "Default upload configuration is invalid", err)
	}
	return policy, nil
}

func applySettings(policy *ValidationPolicy, s *models.UploadSettings) {
	if s.DefaultImageCount > 0 {
		policy.ImageCount = s.DefaultImageCount
	}
	if s.DefaultMaxFileSize > 0 {
		policy.MaxFileSize = s.DefaultMaxFileSize
	}
	if types := utils.NormalizeExtensions(s.DefaultAllowedTypes); len(types) > 0 {
		policy.AllowedTypes = types
	}
	if s.DefaultResolution {
		policy.Resolution = &ResolutionPolicy{
			MinWidth:  s.DefaultMinWidth,
			MinHeight: s.DefaultMinHeight,
			MaxWidth:  s.DefaultMaxWidth,
			MaxHeight: s.DefaultMaxHeight,
		}
	}
}

// mergePolicy fills unset product fields from the defaults
func mergePolicy(cfg *models.ProductImageConfig, defaults *ValidationPolicy) *ValidationPolicy {
	policy := &ValidationPolicy{
		ProductID:    cfg.ProductID,
		Enabled:      cfg.Enabled,
		ImageCount:   cfg.ImageCount,
		MaxFileSize:  cfg.MaxFileSize,
		AllowedTypes: utils.NormalizeExtensions(cfg.AllowedTypes),
		Resolution:   defaults.Resolution,
	}
	if policy.ImageCount == 0 {
		policy.ImageCount = defaults.ImageCount
	}
	if policy.MaxFileSize == 0 {
		policy.MaxFileSize = defaults.MaxFileSize
	}
	if len(policy.AllowedTypes) == 0 {
		policy.AllowedTypes = append([]string(nil), defaults.AllowedTypes...)
	}
	if cfg.ResolutionValidation {
		policy.Resolution = &ResolutionPolicy{
			MinWidth:  cfg.MinWidth,
			MinHeight: cfg.MinHeight,
			MaxWidth:  cfg.MaxWidth,
			MaxHeight: cfg.MaxHeight,
		}
	}
	return policy
}

func (p *PolicyProviderImpl) validatePolicy(policy *ValidationPolicy) error {
	if err := p.validate.Struct(policy); err != nil {
		return err
	}
	if r := policy.Resolution; r != nil {
		if r.MaxWidth > 0 && r.MinWidth > r.MaxWidth {
			return fmt.Errorf("minimum width (%d) cannot be greater than maximum width (%d)", r.MinWidth, r.MaxWidth)
		}
		if r.MaxHeight > 0 && r.MinHeight > r.MaxHeight {
			return fmt.Errorf("minimum height (%d) cannot be greater than maximum height (%d)", r.MinHeight, r.MaxHeight)
		}
	}
	return nil
}

func (p *PolicyProviderImpl) cacheTTL() time.Duration {
	if p.cacheConfig.DefaultTTL > 0 {
		return p.cacheConfig.DefaultTTL
	}
	return time.Hour
}

// InvalidatePolicy drops the cached policy of a product so the next GetPolicy
// reads the config rows again
func (p *PolicyProviderImpl) InvalidatePolicy(ctx context.Context, productID uint) error {
	if p.rc == nil {
		return nil
	}
	if err := p.rc.Del(ctx, p.policyCacheKey(productID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate policy of product %d: %w", productID, err)
	}
	return nil
}

func (p *PolicyProviderImpl) cachedPolicy(ctx context.Context, productID uint) *ValidationPolicy {
	if p.rc == nil {
		return nil
	}
	bs, err := p.rc.Get(ctx, p.policyCacheKey(productID)).Bytes()
	if err != nil || len(bs) == 0 {
		return nil
	}
	var out ValidationPolicy
	if err := json.Unmarshal(bs, &out); err != nil {
		return nil
	}
	return &out
}

func (p *PolicyProviderImpl) storePolicy(ctx context.Context, policy *ValidationPolicy) {
	if p.rc == nil {
		return
	}
	bs, err := json.Marshal(policy)
	if err != nil {
		return
	}
	if err := p.rc.Set(ctx, p.policyCacheKey(policy.ProductID), bs, p.cacheTTL()).Err(); err != nil {
		log.Printf(`{"level":"warn","event":"policy_cache_store_failed","product_id":%d,"error":%q}`, policy.ProductID, err.Error())
	}
}
