// Package scheduler runs periodic background jobs
package scheduler

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/thisisfaizi/product-image-upload/config"
	"github.com/thisisfaizi/product-image-upload/utils"
)

var (
	retentionFilesRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upload_retention_files_removed_total",
			Help: "Total number of abandoned uploads removed by the retention sweep",
		},
	)

	retentionCartItemsAbandonedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upload_retention_cart_items_abandoned_total",
			Help: "Total number of expired cart items marked abandoned",
		},
	)
)

// CartReferences is the part of the cart repository the sweep needs
type CartReferences interface {
	ReferencedFilenames(ctx context.Context, now time.Time) (map[string]struct{}, error)
	MarkExpiredAbandoned(ctx context.Context, now time.Time) (int64, error)
}

// SweepResult summarizes one retention pass
type SweepResult struct {
	Scanned   int
	Removed   int
	Kept      int
	Bytes     int64
	Abandoned int64
}

// UploadRetentionScheduler deletes uploads nobody put in a live cart
type UploadRetentionScheduler struct {
	cart      CartReferences
	dir       string
	retention time.Duration
	interval  time.Duration
	logger    *log.Logger
	now       func() time.Time
}

// NewUploadRetentionScheduler creates a new retention scheduler
func NewUploadRetentionScheduler(cart CartReferences, uploadCfg config.UploadConfig, logger *log.Logger) *UploadRetentionScheduler {
	s := &UploadRetentionScheduler{
		cart:      cart,
		dir:       uploadCfg.Dir,
		retention: uploadCfg.RetentionPeriod,
		interval:  uploadCfg.CleanupInterval,
		logger:    logger,
		now:       utils.UTCNow,
	}
	if s.retention <= 0 {
		s.retention = utils.UploadRetentionPeriod
	}
	if s.interval <= 0 {
		s.interval = 24 * time.Hour
	}
	if s.logger == nil {
		s.logger = log.New(os.Stdout, "retention ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
	}
	return s
}

// NewRetentionLogger writes to stdout and the rotating retention log
func NewRetentionLogger(logCfg config.LoggingConfig) *log.Logger {
	w := utils.NewLogWriter(utils.LogOutputOptions{
		Output:     "both",
		FilePath:   logCfg.RetentionLogPath,
		MaxSize:    logCfg.MaxSize,
		MaxBackups: logCfg.MaxBackups,
		MaxAge:     logCfg.MaxAge,
		Compress:   logCfg.Compress,
	})
	return log.New(w, "retention ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the sweep loop in a background goroutine and returns a stop function
func (s *UploadRetentionScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *UploadRetentionScheduler) runOnce(ctx context.Context) {
	res, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Printf("sweep failed: %v", err)
		return
	}
	if res.Removed > 0 || res.Abandoned > 0 {
		s.logger.Printf("sweep done: scanned=%d removed=%d kept=%d freed=%s abandoned_cart_items=%d",
			res.Scanned, res.Removed, res.Kept, humanize.IBytes(uint64(res.Bytes)), res.Abandoned)
	}
}

// Sweep removes managed uploads older than the retention period that no live
// cart item references, then abandons expired cart items.
func (s *UploadRetentionScheduler) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := s.now()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, nil
		}
		return res, err
	}

	referenced, err := s.cart.ReferencedFilenames(ctx, now)
	if err != nil {
		// never delete without the reference set
		return res, err
	}

	cutoff := now.Add(-s.retention)
	for _, e := range entries {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, utils.UploadFilePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		res.Scanned++
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if _, ok := referenced[name]; ok {
			res.Kept++
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.Printf("remove %s: %v", name, err)
			}
			continue
		}
		res.Removed++
		res.Bytes += info.Size()
		retentionFilesRemovedTotal.Inc()
		s.logger.Printf("removed %s (%s, modified %s)", name, humanize.IBytes(uint64(info.Size())), humanize.RelTime(info.ModTime(), now, "ago", "from now"))
	}

	abandoned, err := s.cart.MarkExpiredAbandoned(ctx, now)
	if err != nil {
		s.logger.Printf("abandon expired cart items: %v", err)
	} else {
		res.Abandoned = abandoned
		retentionCartItemsAbandonedTotal.Add(float64(abandoned))
	}
	return res, nil
}
