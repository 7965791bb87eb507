package models

import "time"

// Submitter types recorded in the upload log
const (
	SubmitterTypeUser  = "user"
	SubmitterTypeGuest = "guest"
)

// Upload outcomes
const (
	UploadOutcomeSuccess = "success"
	UploadOutcomeFailed  = "failed"
)

// UploadLog is one audited upload attempt
type UploadLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SubmitterID   string    `gorm:"type:varchar(64);not null;index:idx_upload_log_submitter" json:"submitter_id"`
	SubmitterType string    `gorm:"type:varchar(10);not null" json:"submitter_type"`
	IPAddress     string    `gorm:"type:varchar(64);not null" json:"ip_address"`
	ProductID     uint      `gorm:"not null;index:idx_upload_log_product" json:"product_id"`
	Outcome       string    `gorm:"type:varchar(10);not null;index:idx_upload_log_outcome" json:"outcome"`
	Filename      *string   `gorm:"type:varchar(255)" json:"filename,omitempty"`
	ErrorDetail   *string   `gorm:"type:text" json:"error_detail,omitempty"`
	RequestID     *string   `gorm:"size:255" json:"request_id,omitempty"`
	CreatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_upload_log_created_at" json:"created_at"`
}

func (UploadLog) TableName() string {
	return "upload_log"
}

func (u *UploadLog) IsSuccess() bool {
	return u.Outcome == UploadOutcomeSuccess
}

// UploadLogFilter represents filter criteria for upload log queries
type UploadLogFilter struct {
	ID            *uint
	ProductID     *uint
	Outcome       *string
	SubmitterID   *string
	IPAddress     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
