package businessflow

import (
	"context"
	"fmt"
	"strconv"

	"github.com/thisisfaizi/product-image-upload/app/dto"
	"github.com/thisisfaizi/product-image-upload/config"
	"github.com/thisisfaizi/product-image-upload/models"
	"github.com/thisisfaizi/product-image-upload/repository"
	"github.com/thisisfaizi/product-image-upload/utils"
	"github.com/xuri/excelize/v2"
)

const defaultUploadLogLimit = 100

// UploadAdminFlow exposes the upload audit log and directory state to admins
type UploadAdminFlow interface {
	ListUploadLogs(ctx context.Context, req *dto.ListUploadLogsRequest) (*dto.ListUploadLogsResponse, error)
	ClearUploadLogs(ctx context.Context) (*dto.ClearUploadLogsResponse, error)
	ExportUploadLogs(ctx context.Context) (string, []byte, error)
	GetUploadInfo(ctx context.Context) (*dto.UploadInfoResponse, error)
	RefreshUploadPolicy(ctx context.Context, productID uint) (*dto.RefreshUploadPolicyResponse, error)
}

// UploadAdminFlowImpl implements UploadAdminFlow
type UploadAdminFlowImpl struct {
	logRepo      repository.UploadLogRepository
	policies     PolicyProvider
	uploadConfig config.UploadConfig
}

// NewUploadAdminFlow creates a new upload admin flow
func NewUploadAdminFlow(logRepo repository.UploadLogRepository, policies PolicyProvider, uploadConfig config.UploadConfig) *UploadAdminFlowImpl {
	return &UploadAdminFlowImpl{
		logRepo:      logRepo,
		policies:     policies,
		uploadConfig: uploadConfig,
	}
}

func (f *UploadAdminFlowImpl) ListUploadLogs(ctx context.Context, req *dto.ListUploadLogsRequest) (*dto.ListUploadLogsResponse, error) {
	limit := defaultUploadLogLimit
	if req != nil && req.Limit > 0 {
		limit = min(req.Limit, f.logCap())
	}

	rows, err := f.logRepo.Recent(ctx, limit)
	if err != nil {
		return nil, NewBusinessError("UPLOAD_LOG_FETCH_FAILED", "Failed to fetch upload logs", err)
	}
	total, err := f.logRepo.Count(ctx, models.UploadLogFilter{})
	if err != nil {
		return nil, NewBusinessError("UPLOAD_LOG_FETCH_FAILED", "Failed to count upload logs", err)
	}

	entries := make([]dto.UploadLogEntryDTO, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, ToUploadLogEntryDTO(*r))
	}
	return &dto.ListUploadLogsResponse{
		Message: "Upload logs retrieved successfully",
		Total:   total,
		Entries: entries,
	}, nil
}

func (f *UploadAdminFlowImpl) ClearUploadLogs(ctx context.Context) (*dto.ClearUploadLogsResponse, error) {
	deleted, err := f.logRepo.Clear(ctx)
	if err != nil {
		return nil, NewBusinessError("UPLOAD_LOG_CLEAR_FAILED", "Failed to clear upload logs", err)
	}
	return &dto.ClearUploadLogsResponse{
		Message: "Upload logs cleared successfully",
		Deleted: deleted,
	}, nil
}

// ExportUploadLogs renders the retained log as a single-sheet workbook
func (f *UploadAdminFlowImpl) ExportUploadLogs(ctx context.Context) (string, []byte, error) {
	rows, err := f.logRepo.Recent(ctx, f.logCap())
	if err != nil {
		return "", nil, NewBusinessError("UPLOAD_LOG_FETCH_FAILED", "Failed to fetch upload logs", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "upload_logs"
	if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	header := []string{"id", "timestamp", "submitter_id", "submitter_type", "ip_address", "product_id", "outcome", "filename", "error_detail", "request_id"}
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	for i, r := range rows {
		record := []string{
			strconv.FormatUint(uint64(r.ID), 10),
			r.CreatedAt.UTC().Format(utils.TimestampLayout),
			r.SubmitterID,
			r.SubmitterType,
			r.IPAddress,
			strconv.FormatUint(uint64(r.ProductID), 10),
			r.Outcome,
			derefString(r.Filename),
			derefString(r.ErrorDetail),
			derefString(r.RequestID),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(sheet, cellRef, &record); err != nil {
			return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	filename := fmt.Sprintf("upload_logs_%s.xlsx", utils.UTCNow().Format("20060102_150405"))
	return filename, buf.Bytes(), nil
}

func (f *UploadAdminFlowImpl) GetUploadInfo(ctx context.Context) (*dto.UploadInfoResponse, error) {
	defaults, err := f.policies.GetDefaultPolicy(ctx)
	if err != nil {
		return nil, err
	}

	uploader := NewSecureUploader(SecureUploaderOptions{
		Dir:                       f.uploadConfig.Dir,
		PublicBaseURL:             f.uploadConfig.PublicBaseURL,
		ScratchDir:                f.uploadConfig.ScratchDir,
		AllowedTypes:              defaults.AllowedTypes,
		FailClosedOnMissingSignal: f.uploadConfig.FailClosedOnMissingSignal,
	})
	uploader.Configure(defaults.MaxFileSize, defaults.Resolution)
	info := uploader.UploadInfo()

	count, err := f.logRepo.Count(ctx, models.UploadLogFilter{})
	if err != nil {
		return nil, NewBusinessError("UPLOAD_LOG_FETCH_FAILED", "Failed to count upload logs", err)
	}

	resp := &dto.UploadInfoResponse{
		Dir:               info.Dir,
		PublicBaseURL:     info.PublicBaseURL,
		Hardened:          info.Hardened,
		Writable:          info.Writable,
		FileCount:         info.FileCount,
		TotalBytes:        info.TotalBytes,
		TotalBytesHuman:   utils.SizeFormat(info.TotalBytes),
		DefaultMaxSize:    info.MaxFileSize,
		DefaultTypes:      info.AllowedTypes,
		DefaultImageCount: defaults.ImageCount,
		RetentionHours:    f.uploadConfig.RetentionPeriod.Hours(),
		FailClosedCheck:   info.FailClosedCheck,
		UploadLogEntries:  count,
		UploadLogCap:      f.logCap(),
	}
	if r := info.Resolution; r != nil {
		resp.DefaultBounds = &dto.ResolutionBoundsDTO{
			MinWidth:  r.MinWidth,
			MinHeight: r.MinHeight,
			MaxWidth:  r.MaxWidth,
			MaxHeight: r.MaxHeight,
		}
	}
	return resp, nil
}

// RefreshUploadPolicy drops the cached policy of a product, typically after its
// config row was changed, and returns the policy it now resolves to
func (f *UploadAdminFlowImpl) RefreshUploadPolicy(ctx context.Context, productID uint) (*dto.RefreshUploadPolicyResponse, error) {
	if productID == 0 {
		return nil, NewBusinessError("INVALID_PRODUCT_ID", "Invalid product ID", ErrInvalidProductID)
	}
	if err := f.policies.InvalidatePolicy(ctx, productID); err != nil {
		return nil, NewBusinessError("POLICY_CACHE_INVALIDATE_FAILED", "Failed to drop cached upload policy", err)
	}

	resp := &dto.RefreshUploadPolicyResponse{
		Message:   "Upload policy refreshed",
		ProductID: productID,
	}
	policy, err := f.policies.GetPolicy(ctx, productID)
	if IsProductNotConfigured(err) {
		resp.Message = "Custom image upload is not enabled for this product"
		return resp, nil
	}
	if err != nil {
		return nil, err
	}

	resp.Configured = true
	resp.ImageCount = policy.ImageCount
	resp.MaxFileSize = policy.MaxFileSize
	resp.AllowedTypes = policy.AllowedTypes
	if r := policy.Resolution; r != nil {
		resp.Resolution = &dto.ResolutionBoundsDTO{
			MinWidth:  r.MinWidth,
			MinHeight: r.MinHeight,
			MaxWidth:  r.MaxWidth,
			MaxHeight: r.MaxHeight,
		}
	}
	return resp, nil
}

func (f *UploadAdminFlowImpl) logCap() int {
	if f.uploadConfig.AuditLogCap > 0 {
		return f.uploadConfig.AuditLogCap
	}
	return utils.UploadLogCap
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
