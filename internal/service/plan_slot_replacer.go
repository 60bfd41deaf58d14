package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-editor/internal/models"
	appErrors "github.com/noah-isme/timetable-editor/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type planStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Plan, error)
	Touch(ctx context.Context, exec sqlx.ExtContext, id int64, at time.Time) error
}

type planSlotStore interface {
	ListByPlan(ctx context.Context, exec sqlx.ExtContext, planID int64) ([]models.PlanSlot, error)
	DeleteByPlan(ctx context.Context, exec sqlx.ExtContext, planID int64) (int64, error)
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, planID int64, slots []models.PlanSlot) error
}

// PlanSlotReplacer swaps the complete slot set of a plan in one transaction
// and returns the plan as persisted.
type PlanSlotReplacer struct {
	plans     planStore
	slots     planSlotStore
	tx        txProvider
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewPlanSlotReplacer wires the replacer dependencies.
func NewPlanSlotReplacer(plans planStore, slots planSlotStore, tx txProvider, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *PlanSlotReplacer {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanSlotReplacer{
		plans:     plans,
		slots:     slots,
		tx:        tx,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// ReplacePlanSlots deletes every slot of planID, inserts slots and bumps the
// plan's updated_at. Nothing is written unless all steps succeed.
func (r *PlanSlotReplacer) ReplacePlanSlots(ctx context.Context, planID int64, slots []models.PlanSlot) (plan *models.Plan, err error) {
	for i := range slots {
		if vErr := r.validator.Struct(slots[i]); vErr != nil {
			return nil, appErrors.Wrap(vErr, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid slot at index %d", i))
		}
	}
	if r.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	start := r.now()
	defer func() {
		r.metrics.ObserveDBQuery("replace_plan_slots", time.Since(start))
	}()

	tx, err := r.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.plans.Touch(ctx, tx, planID, start.UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("plan %d not found", planID))
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to lock plan")
		return nil, err
	}

	removed, err := r.slots.DeleteByPlan(ctx, tx, planID)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to clear plan slots")
		return nil, err
	}
	if err = r.slots.InsertBatch(ctx, tx, planID, slots); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to write plan slots")
		return nil, err
	}

	plan, err = r.plans.FindByID(ctx, tx, planID)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to reload plan")
		return nil, err
	}
	plan.Slots, err = r.slots.ListByPlan(ctx, tx, planID)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to reload plan slots")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "failed to commit plan slots")
		return nil, err
	}

	r.logger.Info("plan slots replaced",
		zap.Int64("plan_id", planID),
		zap.Int64("removed", removed),
		zap.Int("inserted", len(slots)),
	)
	return plan, nil
}
