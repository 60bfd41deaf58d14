package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-editor/internal/models"
)

// PlanSlotRepository manages the lesson slots of a plan.
type PlanSlotRepository struct {
	db *sqlx.DB
}

// NewPlanSlotRepository builds repository.
func NewPlanSlotRepository(db *sqlx.DB) *PlanSlotRepository {
	return &PlanSlotRepository{db: db}
}

func (r *PlanSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByPlan returns the slots of a plan ordered by class, day and period.
func (r *PlanSlotRepository) ListByPlan(ctx context.Context, exec sqlx.ExtContext, planID int64) ([]models.PlanSlot, error) {
	const query = `SELECT plan_id, class_id, day, period, subject_id, teacher_id, room_id
FROM plan_slots WHERE plan_id = $1 ORDER BY class_id ASC, day ASC, period ASC`
	var slots []models.PlanSlot
	if err := sqlx.SelectContext(ctx, r.exec(exec), &slots, query, planID); err != nil {
		return nil, fmt.Errorf("list plan slots: %w", err)
	}
	return slots, nil
}

// DeleteByPlan removes every slot of a plan.
func (r *PlanSlotRepository) DeleteByPlan(ctx context.Context, exec sqlx.ExtContext, planID int64) (int64, error) {
	const query = `DELETE FROM plan_slots WHERE plan_id = $1`
	res, err := r.exec(exec).ExecContext(ctx, query, planID)
	if err != nil {
		return 0, fmt.Errorf("delete plan slots: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete plan slots: %w", err)
	}
	return affected, nil
}

// InsertBatch writes slots for planID, overriding any PlanID they carry.
func (r *PlanSlotRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, planID int64, slots []models.PlanSlot) error {
	if len(slots) == 0 {
		return nil
	}
	target := r.exec(exec)

	const query = `
INSERT INTO plan_slots (plan_id, class_id, day, period, subject_id, teacher_id, room_id)
VALUES (:plan_id, :class_id, :day, :period, :subject_id, :teacher_id, :room_id)`

	for i := range slots {
		slot := slots[i]
		slot.PlanID = planID
		if _, err := sqlx.NamedExecContext(ctx, target, query, slot); err != nil {
			return fmt.Errorf("insert plan slot %s/%d class %d: %w", slot.Day, slot.Period, slot.ClassID, err)
		}
	}
	return nil
}
