package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Processed images partitioned by outcome and rejection kind
	productImageUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_image_uploads_total",
			Help: "Total number of product images processed by the secure uploader",
		},
		[]string{"outcome", "kind"},
	)

	// Files removed because their batch failed
	productImageBatchCleanupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "product_image_batch_cleanup_files_total",
			Help: "Total number of stored images removed after a batch failed",
		},
	)
)

func recordUploadOutcome(kind string) {
	if kind == "" {
		productImageUploadsTotal.WithLabelValues("success", "none").Inc()
		return
	}
	productImageUploadsTotal.WithLabelValues("failed", kind).Inc()
}
