package dto

// UploadLogEntryDTO is one audited upload attempt
type UploadLogEntryDTO struct {
	ID            uint    `json:"id"`
	Timestamp     string  `json:"timestamp"`
	SubmitterID   string  `json:"submitter_id"`
	SubmitterType string  `json:"submitter_type"`
	IPAddress     string  `json:"ip_address"`
	ProductID     uint    `json:"product_id"`
	Outcome       string  `json:"outcome"`
	Success       bool    `json:"success"`
	Filename      *string `json:"filename,omitempty"`
	ErrorDetail   *string `json:"error_detail,omitempty"`
	RequestID     *string `json:"request_id,omitempty"`
}

// ListUploadLogsRequest selects the newest entries
type ListUploadLogsRequest struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=1000"`
}

// ListUploadLogsResponse lists audit entries newest first
type ListUploadLogsResponse struct {
	Message string              `json:"message"`
	Total   int64               `json:"total"`
	Entries []UploadLogEntryDTO `json:"entries"`
}

// ClearUploadLogsResponse reports how many entries were removed
type ClearUploadLogsResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

// UploadInfoResponse describes the managed upload directory
type UploadInfoResponse struct {
	Dir               string               `json:"dir"`
	PublicBaseURL     string               `json:"public_base_url"`
	Hardened          bool                 `json:"hardened"`
	Writable          bool                 `json:"writable"`
	FileCount         int                  `json:"file_count"`
	TotalBytes        int64                `json:"total_bytes"`
	TotalBytesHuman   string               `json:"total_bytes_human"`
	DefaultMaxSize    int64                `json:"default_max_file_size"`
	DefaultTypes      []string             `json:"default_allowed_types"`
	DefaultImageCount int                  `json:"default_image_count"`
	RetentionHours    float64              `json:"retention_hours"`
	FailClosedCheck   bool                 `json:"fail_closed_check"`
	UploadLogEntries  int64                `json:"upload_log_entries"`
	UploadLogCap      int                  `json:"upload_log_cap"`
	DefaultBounds     *ResolutionBoundsDTO `json:"default_resolution,omitempty"`
}

// RefreshUploadPolicyResponse is the policy a product resolves to after its cache entry is dropped
type RefreshUploadPolicyResponse struct {
	Message      string               `json:"message"`
	ProductID    uint                 `json:"product_id"`
	Configured   bool                 `json:"configured"`
	ImageCount   int                  `json:"image_count,omitempty"`
	MaxFileSize  int64                `json:"max_file_size,omitempty"`
	AllowedTypes []string             `json:"allowed_types,omitempty"`
	Resolution   *ResolutionBoundsDTO `json:"resolution,omitempty"`
}
