// Package businessflow contains the business logic for the application.
package businessflow

import (
	"github.com/thisisfaizi/product-image-upload/app/dto"
	"github.com/thisisfaizi/product-image-upload/models"
	"github.com/thisisfaizi/product-image-upload/utils"
)

// ClientMetadata holds client information recorded with every upload attempt
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToUploadLogEntryDTO converts an upload log row for admin responses
func ToUploadLogEntryDTO(entry models.UploadLog) dto.UploadLogEntryDTO {
	return dto.UploadLogEntryDTO{
		ID:            entry.ID,
		Timestamp:     entry.CreatedAt.UTC().Format(utils.TimestampLayout),
		SubmitterID:   entry.SubmitterID,
		SubmitterType: entry.SubmitterType,
		IPAddress:     entry.IPAddress,
		ProductID:     entry.ProductID,
		Outcome:       entry.Outcome,
		Success:       entry.IsSuccess(),
		Filename:      entry.Filename,
		ErrorDetail:   entry.ErrorDetail,
		RequestID:     entry.RequestID,
	}
}
