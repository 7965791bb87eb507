package dto

// UploadProductImagesRequest carries one batch of data-URI images for a product
type UploadProductImagesRequest struct {
	ProductID  uint     `json:"-" validate:"required,gt=0"`
	Images     []string `json:"images" validate:"required,min=1,max=50,dive,required"`
	CustomerID *uint    `json:"-"`
	GuestToken string   `json:"-"`
}

// UploadedImageDTO describes one stored image. Storage paths are never exposed.
type UploadedImageDTO struct {
	Index    int    `json:"index"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// UploadProductImagesResponse is returned after the whole batch was stored and added to the cart
type UploadProductImagesResponse struct {
	Message      string             `json:"message"`
	ProductID    uint               `json:"product_id"`
	CartItemUUID string             `json:"cart_item_uuid"`
	Images       []UploadedImageDTO `json:"images"`
}

// ResolutionBoundsDTO exposes the resolution bounds of a product
type ResolutionBoundsDTO struct {
	MinWidth  int `json:"min_width"`
	MinHeight int `json:"min_height"`
	MaxWidth  int `json:"max_width"`
	MaxHeight int `json:"max_height"`
}

// ProductUploadConfigResponse is the public subset of a product's upload policy
type ProductUploadConfigResponse struct {
	ProductID         uint                 `json:"product_id"`
	ImageCount        int                  `json:"image_count"`
	AllowedTypes      []string             `json:"allowed_types"`
	MaxFileSize       int64                `json:"max_file_size"`
	MaxFileSizeHuman  string               `json:"max_file_size_human"`
	ResolutionEnabled bool                 `json:"resolution_enabled"`
	Resolution        *ResolutionBoundsDTO `json:"resolution,omitempty"`
}
