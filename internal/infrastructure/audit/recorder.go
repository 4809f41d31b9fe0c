package audit

import (
	"context"
	"sync"
	"time"

	"github.com/storeops/backend/internal/domain/audit"
	"github.com/storeops/backend/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	queueSize    = 256
	writeTimeout = 5 * time.Second
	maxRecent    = 200
)

// GormRecorder implements audit.Recorder backed by the system_logs table.
// Writes go through a buffered queue drained by a single worker so a slow
// database never stalls webhook handling; entries are dropped with a log
// line when the queue is full.
type GormRecorder struct {
	db     *gorm.DB
	logger *zap.Logger
	queue  chan *models.SystemLogModel
	done   chan struct{}
	once   sync.Once
}

// NewGormRecorder creates a recorder and starts its write worker
func NewGormRecorder(db *gorm.DB, logger *zap.Logger) *GormRecorder {
	r := &GormRecorder{
		db:     db,
		logger: logger.Named("audit"),
		queue:  make(chan *models.SystemLogModel, queueSize),
		done:   make(chan struct{}),
	}
	go r.worker()
	return r
}

// Record queues one audit entry for persistence, never blocking the caller
func (r *GormRecorder) Record(ctx context.Context, e audit.Entry) {
	model := models.SystemLogModelFromEntry(e)
	select {
	case r.queue <- model:
	default:
		r.logger.Warn("audit queue full, dropping entry",
			zap.String("category", e.Category),
			zap.String("event_type", e.EventType))
	}
}

// Recent returns the newest records in the given categories, newest first
func (r *GormRecorder) Recent(ctx context.Context, categories []string, limit int) ([]audit.Record, error) {
	if limit <= 0 || limit > maxRecent {
		limit = maxRecent
	}
	query := r.db.WithContext(ctx).Model(&models.SystemLogModel{})
	if len(categories) > 0 {
		query = query.Where("category IN ?", categories)
	}

	var rows []models.SystemLogModel
	if err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]audit.Record, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return records, nil
}

// Close stops accepting entries and waits for the worker to drain the queue
func (r *GormRecorder) Close() {
	r.once.Do(func() {
		close(r.queue)
		<-r.done
	})
}

func (r *GormRecorder) worker() {
	defer close(r.done)
	for model := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
			r.logger.Error("audit write failed",
				zap.String("category", model.Category),
				zap.String("event_type", model.EventType),
				zap.Error(err))
		}
		cancel()
	}
}

// Ensure GormRecorder implements audit.Recorder
var _ audit.Recorder = (*GormRecorder)(nil)
