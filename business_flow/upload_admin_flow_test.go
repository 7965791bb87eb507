package businessflow

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thisisfaizi/product-image-upload/app/dto"
	"github.com/thisisfaizi/product-image-upload/config"
	"github.com/thisisfaizi/product-image-upload/models"
	"github.com/thisisfaizi/product-image-upload/utils"
	"github.com/xuri/excelize/v2"
)

func seedUploadLog(t *testing.T, repo *fakeUploadLogRepo, n int) {
	t.Helper()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := range n {
		entry := &models.UploadLog{
			SubmitterID:   "guest_a",
			SubmitterType: models.SubmitterTypeGuest,
			IPAddress:     "192.0.2.10",
			ProductID:     42,
			Outcome:       models.UploadOutcomeSuccess,
			Filename:      utils.ToPtr("prod-42-1746100800-tok-0.png"),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if i%2 == 1 {
			entry.Outcome = models.UploadOutcomeFailed
			entry.Filename = nil
			entry.ErrorDetail = utils.ToPtr("file size 9000000 bytes exceeds maximum allowed size 5242880 bytes (5.0 MiB)")
		}
		require.NoError(t, repo.Append(context.Background(), entry, 0))
	}
}

func newTestAdminFlow(t *testing.T, repo *fakeUploadLogRepo, logCap int) *UploadAdminFlowImpl {
	t.Helper()
	policies := &fakePolicyProvider{policy: &ValidationPolicy{
		Enabled:      true,
		ImageCount:   9,
		MaxFileSize:  utils.DefaultMaxFileSize,
		AllowedTypes: []string{"jpg", "png"},
	}}
	return NewUploadAdminFlow(repo, policies, config.UploadConfig{
		Dir:             filepath.Join(t.TempDir(), "uploads"),
		PublicBaseURL:   "/uploads",
		ScratchDir:      t.TempDir(),
		RetentionPeriod: 48 * time.Hour,
		AuditLogCap:     logCap,
	})
}

func TestListUploadLogs(t *testing.T) {
	repo := &fakeUploadLogRepo{}
	seedUploadLog(t, repo, 5)
	flow := newTestAdminFlow(t, repo, 3)

	resp, err := flow.ListUploadLogs(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.Total)
	require.Len(t, resp.Entries, 5)
	assert.Equal(t, uint(5), resp.Entries[0].ID, "newest first")
	assert.Equal(t, "2026-05-01 12:04:00", resp.Entries[0].Timestamp)
	assert.True(t, resp.Entries[0].Success)
	assert.False(t, resp.Entries[1].Success)
	require.NotNil(t, resp.Entries[1].ErrorDetail)

	resp, err = flow.ListUploadLogs(context.Background(), &dto.ListUploadLogsRequest{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, resp.Entries, 3, "limit is capped by the log capacity")

	resp, err = flow.ListUploadLogs(context.Background(), &dto.ListUploadLogsRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Entries, 2)
}

func TestClearUploadLogs(t *testing.T) {
	repo := &fakeUploadLogRepo{}
	seedUploadLog(t, repo, 4)
	flow := newTestAdminFlow(t, repo, 0)

	resp, err := flow.ClearUploadLogs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), resp.Deleted)

	list, err := flow.ListUploadLogs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, list.Entries)
}

func TestExportUploadLogs(t *testing.T) {
	repo := &fakeUploadLogRepo{}
	seedUploadLog(t, repo, 3)
	flow := newTestAdminFlow(t, repo, 0)

	filename, data, err := flow.ExportUploadLogs(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, "upload_logs_"))
	assert.True(t, strings.HasSuffix(filename, ".xlsx"))

	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer xl.Close()

	rows, err := xl.GetRows("upload_logs")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"id", "timestamp", "submitter_id", "submitter_type", "ip_address", "product_id", "outcome", "filename", "error_detail", "request_id"}, rows[0])
	assert.Equal(t, "3", rows[1][0])
	assert.Equal(t, "2026-05-01 12:02:00", rows[1][1])
	assert.Equal(t, "success", rows[1][6])
	assert.Equal(t, "failed", rows[2][6])
	assert.Contains(t, rows[2][8], "5.0 MiB")
}

func TestGetUploadInfo(t *testing.T) {
	repo := &fakeUploadLogRepo{}
	seedUploadLog(t, repo, 2)
	flow := newTestAdminFlow(t, repo, 500)

	// nothing stored yet: the directory does not exist
	info, err := flow.GetUploadInfo(context.Background())
	require.NoError(t, err)
	assert.False(t, info.Hardened)
	assert.Zero(t, info.FileCount)

	require.NoError(t, os.MkdirAll(flow.uploadConfig.Dir, 0o755))
	require.NoError(t, hardenDirectory(flow.uploadConfig.Dir))
	require.NoError(t, os.WriteFile(filepath.Join(flow.uploadConfig.Dir, "prod-1-1700000000-abc-0.png"), make([]byte, 2048), 0o644))

	info, err = flow.GetUploadInfo(context.Background())
	require.NoError(t, err)
	assert.True(t, info.Hardened)
	assert.True(t, info.Writable)
	assert.Equal(t, 1, info.FileCount)
	assert.Equal(t, int64(2048), info.TotalBytes)
	assert.Equal(t, "2.0 KiB", info.TotalBytesHuman)
	assert.Equal(t, []string{"jpg", "png"}, info.DefaultTypes)
	assert.Equal(t, 9, info.DefaultImageCount)
	assert.Equal(t, float64(48), info.RetentionHours)
	assert.Equal(t, int64(2), info.UploadLogEntries)
	assert.Equal(t, 500, info.UploadLogCap)
}

func TestRefreshUploadPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("configured product", func(t *testing.T) {
		policies := &fakePolicyProvider{policy: &ValidationPolicy{
			ProductID:    42,
			Enabled:      true,
			ImageCount:   4,
			MaxFileSize:  2 * 1024 * 1024,
			AllowedTypes: []string{"png"},
			Resolution:   &ResolutionPolicy{MinWidth: 300, MinHeight: 300},
		}}
		flow := NewUploadAdminFlow(&fakeUploadLogRepo{}, policies, config.UploadConfig{})

		resp, err := flow.RefreshUploadPolicy(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, []uint{42}, policies.invalidated)
		assert.True(t, resp.Configured)
		assert.Equal(t, 4, resp.ImageCount)
		assert.Equal(t, []string{"png"}, resp.AllowedTypes)
		require.NotNil(t, resp.Resolution)
		assert.Equal(t, 300, resp.Resolution.MinWidth)
	})

	t.Run("product without config", func(t *testing.T) {
		policies := &fakePolicyProvider{err: NewBusinessError("PRODUCT_NOT_CONFIGURED", "not enabled", ErrProductNotConfigured)}
		flow := NewUploadAdminFlow(&fakeUploadLogRepo{}, policies, config.UploadConfig{})

		resp, err := flow.RefreshUploadPolicy(ctx, 9)
		require.NoError(t, err)
		assert.False(t, resp.Configured)
		assert.Equal(t, []uint{9}, policies.invalidated)
	})

	t.Run("invalid product id", func(t *testing.T) {
		policies := &fakePolicyProvider{}
		flow := NewUploadAdminFlow(&fakeUploadLogRepo{}, policies, config.UploadConfig{})

		_, err := flow.RefreshUploadPolicy(ctx, 0)
		assert.ErrorIs(t, err, ErrInvalidProductID)
		assert.Empty(t, policies.invalidated)
	})

	t.Run("cache failure", func(t *testing.T) {
		policies := &fakePolicyProvider{invalidateErr: assert.AnError}
		flow := NewUploadAdminFlow(&fakeUploadLogRepo{}, policies, config.UploadConfig{})

		_, err := flow.RefreshUploadPolicy(ctx, 42)
		var be *BusinessError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "POLICY_CACHE_INVALIDATE_FAILED", be.Code)
	})
}
