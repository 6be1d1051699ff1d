package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kasuganosora/raidtable/model"
)

const (
	queueSize     = 1024
	batchSize     = 100
	flushInterval = 2 * time.Second
)

// Actors.
const (
	ActorPublic   = "public"
	ActorGM       = "gm"
	ActorOperator = "operator"
)

// AuditEntry holds one command to be logged.
type AuditEntry struct {
	TraceID     string
	EncounterID string
	Actor       string
	Action      string
	Request     interface{}
	Applied     bool
	Error       string
	IP          string
	Round       int
	DurationMs  int
}

// Query filters ListRecent.
type Query struct {
	EncounterID string
	Action      string
	Limit       int // 0 = 100
}

// Service logs audit entries asynchronously in batches.
type Service struct {
	db       *gorm.DB
	ch       chan *model.AuditLog
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &Service{
		db:     db,
		ch:     make(chan *model.AuditLog, queueSize),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Log enqueues an audit entry for async DB write. It never blocks; a full
// queue drops the entry.
func (svc *Service) Log(entry AuditEntry) {
	var req datatypes.JSON
	if entry.Request != nil {
		if b, err := json.Marshal(entry.Request); err == nil {
			req = datatypes.JSON(b)
		}
	}
	record := &model.AuditLog{
		TraceID:     entry.TraceID,
		EncounterID: entry.EncounterID,
		Actor:       entry.Actor,
		Action:      entry.Action,
		Request:     req,
		Applied:     entry.Applied,
		Error:       entry.Error,
		IP:          entry.IP,
		Round:       entry.Round,
		DurationMs:  entry.DurationMs,
	}
	select {
	case <-svc.stopCh:
		return
	default:
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("audit channel full, dropping entry",
			zap.String("action", entry.Action), zap.String("encounter", entry.EncounterID))
	}
}

// ListRecent returns the newest entries matching q.
func (svc *Service) ListRecent(ctx context.Context, q Query) ([]model.AuditLog, error) {
	limit := q.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	tx := svc.db.WithContext(ctx).Order("id DESC").Limit(limit)
	if q.EncounterID != "" {
		tx = tx.Where("encounter_id = ?", q.EncounterID)
	}
	if q.Action != "" {
		tx = tx.Where("action = ?", q.Action)
	}
	var out []model.AuditLog
	if err := tx.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished or ctx is done.
func (svc *Service) Stop(ctx context.Context) {
	svc.stopOnce.Do(func() { close(svc.stopCh) })
	done := make(chan struct{})
	go func() {
		svc.wg.Wait()
		close(done)
	}()
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-done:
	case <-ctx.Done():
		svc.logger.Warn("audit stop timed out before the final flush")
	}
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*model.AuditLog, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("audit batch write failed", zap.Int("rows", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
					if len(batch) >= batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}
