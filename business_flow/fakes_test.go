package businessflow

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thisisfaizi/product-image-upload/models"
)

type fakeProductRepo struct {
	products map[uint]*models.Product
	err      error
}

func newFakeProductRepo(products ...*models.Product) *fakeProductRepo {
	r := &fakeProductRepo{products: map[uint]*models.Product{}}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeProductRepo) ByID(_ context.Context, id uint) (*models.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.products[id], nil
}

func (r *fakeProductRepo) ByFilter(context.Context, models.ProductFilter, string, int, int) ([]*models.Product, error) {
	out := make([]*models.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, r.err
}

func (r *fakeProductRepo) Save(_ context.Context, p *models.Product) error {
	r.products[p.ID] = p
	return r.err
}

func (r *fakeProductRepo) SaveBatch(ctx context.Context, ps []*models.Product) error {
	for _, p := range ps {
		_ = r.Save(ctx, p)
	}
	return r.err
}

func (r *fakeProductRepo) Count(context.Context, models.ProductFilter) (int64, error) {
	return int64(len(r.products)), r.err
}

func (r *fakeProductRepo) Exists(ctx context.Context, f models.ProductFilter) (bool, error) {
	c, err := r.Count(ctx, f)
	return c > 0, err
}

type fakeCartRepo struct {
	mu      sync.Mutex
	items   []*models.CartItem
	saveErr error
}

func (r *fakeCartRepo) ByID(_ context.Context, id uint) (*models.CartItem, error) {
	for _, it := range r.items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, nil
}

func (r *fakeCartRepo) ByUUID(_ context.Context, id uuid.UUID) (*models.CartItem, error) {
	for _, it := range r.items {
		if it.UUID == id {
			return it, nil
		}
	}
	return nil, nil
}

func (r *fakeCartRepo) ByFilter(context.Context, models.CartItemFilter, string, int, int) ([]*models.CartItem, error) {
	return r.items, nil
}

func (r *fakeCartRepo) Save(_ context.Context, it *models.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if it.UUID == uuid.Nil {
		it.UUID = uuid.New()
	}
	it.ID = uint(len(r.items) + 1)
	r.items = append(r.items, it)
	return nil
}

func (r *fakeCartRepo) SaveBatch(ctx context.Context, items []*models.CartItem) error {
	for _, it := range items {
		if err := r.Save(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeCartRepo) Count(context.Context, models.CartItemFilter) (int64, error) {
	return int64(len(r.items)), nil
}

func (r *fakeCartRepo) Exists(ctx context.Context, f models.CartItemFilter) (bool, error) {
	c, _ := r.Count(ctx, f)
	return c > 0, nil
}

func (r *fakeCartRepo) ReferencesFile(_ context.Context, filename string, now time.Time) (bool, error) {
	for _, it := range r.items {
		if it.IsLive(now) && slices.Contains([]string(it.ImageFilenames), filename) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCartRepo) ReferencedFilenames(_ context.Context, now time.Time) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	for _, it := range r.items {
		if it.IsLive(now) {
			for _, f := range it.ImageFilenames {
				out[f] = struct{}{}
			}
		}
	}
	return out, nil
}

func (r *fakeCartRepo) MarkExpiredAbandoned(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, it := range r.items {
		if it.Status == models.CartItemStatusActive && !now.Before(it.ExpiresAt) {
			it.Status = models.CartItemStatusAbandoned
			n++
		}
	}
	return n, nil
}

type fakeUploadLogRepo struct {
	mu      sync.Mutex
	entries []*models.UploadLog
	nextID  uint
	err     error
}

func (r *fakeUploadLogRepo) Append(_ context.Context, entry *models.UploadLog, capacity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.nextID++
	entry.ID = r.nextID
	r.entries = append(r.entries, entry)
	if capacity > 0 && len(r.entries) > capacity {
		r.entries = r.entries[len(r.entries)-capacity:]
	}
	return nil
}

func (r *fakeUploadLogRepo) Recent(_ context.Context, limit int) ([]*models.UploadLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.UploadLog, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, r.entries[i])
	}
	return out, r.err
}

func (r *fakeUploadLogRepo) Clear(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.entries))
	r.entries = nil
	return n, r.err
}

func (r *fakeUploadLogRepo) ByID(_ context.Context, id uint) (*models.UploadLog, error) {
	for _, e := range r.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (r *fakeUploadLogRepo) ByFilter(ctx context.Context, _ models.UploadLogFilter, _ string, limit, _ int) ([]*models.UploadLog, error) {
	return r.Recent(ctx, limit)
}

func (r *fakeUploadLogRepo) Save(ctx context.Context, e *models.UploadLog) error {
	return r.Append(ctx, e, 0)
}

func (r *fakeUploadLogRepo) SaveBatch(ctx context.Context, es []*models.UploadLog) error {
	for _, e := range es {
		_ = r.Append(ctx, e, 0)
	}
	return nil
}

func (r *fakeUploadLogRepo) Count(context.Context, models.UploadLogFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.entries)), r.err
}

func (r *fakeUploadLogRepo) Exists(ctx context.Context, f models.UploadLogFilter) (bool, error) {
	c, err := r.Count(ctx, f)
	return c > 0, err
}

type fakeConfigRepo struct {
	configs map[uint]*models.ProductImageConfig
	calls   int
}

func (r *fakeConfigRepo) ByProductID(_ context.Context, productID uint) (*models.ProductImageConfig, error) {
	r.calls++
	return r.configs[productID], nil
}

func (r *fakeConfigRepo) Upsert(_ context.Context, cfg *models.ProductImageConfig) error {
	if r.configs == nil {
		r.configs = map[uint]*models.ProductImageConfig{}
	}
	r.configs[cfg.ProductID] = cfg
	return nil
}

func (r *fakeConfigRepo) ByID(context.Context, uint) (*models.ProductImageConfig, error) {
	return nil, nil
}

func (r *fakeConfigRepo) ByFilter(context.Context, models.ProductImageConfigFilter, string, int, int) ([]*models.ProductImageConfig, error) {
	return nil, nil
}

func (r *fakeConfigRepo) Save(ctx context.Context, cfg *models.ProductImageConfig) error {
	return r.Upsert(ctx, cfg)
}

func (r *fakeConfigRepo) SaveBatch(context.Context, []*models.ProductImageConfig) error {
	return nil
}

func (r *fakeConfigRepo) Count(context.Context, models.ProductImageConfigFilter) (int64, error) {
	return int64(len(r.configs)), nil
}

func (r *fakeConfigRepo) Exists(context.Context, models.ProductImageConfigFilter) (bool, error) {
	return len(r.configs) > 0, nil
}

type fakeSettingsRepo struct {
	settings *models.UploadSettings
}

func (r *fakeSettingsRepo) Get(context.Context) (*models.UploadSettings, error) {
	return r.settings, nil
}

func (r *fakeSettingsRepo) Save(_ context.Context, s *models.UploadSettings) error {
	r.settings = s
	return nil
}

type fakePolicyProvider struct {
	policy   *ValidationPolicy
	defaults *ValidationPolicy
	err      error

	invalidated   []uint
	invalidateErr error
}

func (p *fakePolicyProvider) InvalidatePolicy(_ context.Context, productID uint) error {
	if p.invalidateErr != nil {
		return p.invalidateErr
	}
	p.invalidated = append(p.invalidated, productID)
	return nil
}

func (p *fakePolicyProvider) GetPolicy(context.Context, uint) (*ValidationPolicy, error) {
	if p.err != nil {
		return nil, p.err
	}
	cp := *p.policy
	return &cp, nil
}

func (p *fakePolicyProvider) GetDefaultPolicy(context.Context) (*ValidationPolicy, error) {
	if p.defaults != nil {
		cp := *p.defaults
		return &cp, nil
	}
	return p.GetPolicy(context.Background(), 0)
}

type recordingAuditor struct {
	mu       sync.Mutex
	attempts []UploadAttempt
}

func (a *recordingAuditor) RecordUploadAttempt(_ context.Context, attempt UploadAttempt) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attempts = append(a.attempts, attempt)
}

func (a *recordingAuditor) all() []UploadAttempt {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.attempts)
}
