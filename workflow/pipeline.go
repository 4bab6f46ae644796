package workflow

import (
	"context"
	"errors"

	"bitbucket.org/mmagritech/farm_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Pipeline owns the cross-module propagation handlers and their event log.
// Constructed once at startup and injected; no package-level mutable state.
type Pipeline struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	Events *EventLog
}

func NewPipeline(db *gorm.DB, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		DB:     db,
		Logger: logger,
		Events: NewEventLog(DefaultEventRingCapacity),
	}
}

// runInTransaction executes fn inside callerTx when one is supplied — the
// handler then composes with the caller's transaction and never commits or
// rolls it back. With a nil callerTx a fresh transaction wraps fn.
func (p *Pipeline) runInTransaction(ctx context.Context, callerTx *gorm.DB, fn func(tx *gorm.DB) error) error {
	if callerTx != nil {
		return fn(callerTx)
	}
	return p.DB.WithContext(ctx).Transaction(fn)
}

func farmAndOperator(ctx context.Context) (string, int, error) {
	farmId, ok := utils.GetFarmIdFromContext(ctx)
	if !ok || farmId == "" {
		return "", 0, errors.New("farm id is required in context")
	}
	operatorId, _ := utils.GetUserIdFromContext(ctx)
	return farmId, operatorId, nil
}

func notFoundAsPrecondition(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.PreconditionError(format, args...)
	}
	return err
}
