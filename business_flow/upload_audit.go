package businessflow

import (
	"context"
	"log"

	"github.com/thisisfaizi/product-image-upload/models"
	"github.com/thisisfaizi/product-image-upload/repository"
	"github.com/thisisfaizi/product-image-upload/utils"
)

// UploadAttempt is the audit view of one processed image
type UploadAttempt struct {
	Submitter   SubmitterContext
	IPAddress   string
	ProductID   uint
	Success     bool
	Filename    string
	ErrorDetail string
	RequestID   string
}

// UploadAuditor records upload attempts. Recording is advisory and never fails an upload.
type UploadAuditor interface {
	RecordUploadAttempt(ctx context.Context, attempt UploadAttempt)
}

// UploadAuditTrail writes attempts to the bounded upload log
type UploadAuditTrail struct {
	repo     repository.UploadLogRepository
	capacity int
}

// NewUploadAuditTrail creates an auditor keeping at most capacity entries
func NewUploadAuditTrail(repo repository.UploadLogRepository, capacity int) *UploadAuditTrail {
	if capacity <= 0 {
		capacity = utils.UploadLogCap
	}
	return &UploadAuditTrail{repo: repo, capacity: capacity}
}

func (a *UploadAuditTrail) RecordUploadAttempt(ctx context.Context, attempt UploadAttempt) {
	entry := attempt.toModel()
	if entry.RequestID == nil {
		if rid, ok := ctx.Value(utils.RequestIDKey).(string); ok && rid != "" {
			entry.RequestID = &rid
		}
	}
	// detach from request cancellation so a client disconnect does not drop the entry
	if err := a.repo.Append(context.WithoutCancel(ctx), entry, a.capacity); err != nil {
		log.Printf(`{"level":"error","event":"upload_log_append_failed","product_id":%d,"error":%q}`, attempt.ProductID, err.Error())
	}
}

func (u UploadAttempt) toModel() *models.UploadLog {
	entry := &models.UploadLog{
		SubmitterID:   u.Submitter.SubmitterID(),
		SubmitterType: u.Submitter.SubmitterType(),
		IPAddress:     u.IPAddress,
		ProductID:     u.ProductID,
		Outcome:       models.UploadOutcomeFailed,
		CreatedAt:     utils.UTCNow(),
	}
	if u.Success {
		entry.Outcome = models.UploadOutcomeSuccess
	}
	if u.Filename != "" {
		entry.Filename = utils.ToPtr(u.Filename)
	}
	if u.ErrorDetail != "" {
		entry.ErrorDetail = utils.ToPtr(u.ErrorDetail)
	}
	if u.RequestID != "" {
		entry.RequestID = utils.ToPtr(u.RequestID)
	}
	return entry
}
