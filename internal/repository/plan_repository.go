package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-editor/internal/models"
)

// PlanRepository reads and stamps timetable plans.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository constructs a plan repository.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID fetches a plan header without its slots.
func (r *PlanRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Plan, error) {
	const query = `SELECT id, name, slots_meta, created_at, updated_at FROM plans WHERE id = $1`
	var plan models.Plan
	if err := sqlx.GetContext(ctx, r.exec(exec), &plan, query, id); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Touch bumps updated_at. It returns sql.ErrNoRows when the plan is gone.
func (r *PlanRepository) Touch(ctx context.Context, exec sqlx.ExtContext, id int64, at time.Time) error {
	const query = `UPDATE plans SET updated_at = $2 WHERE id = $1`
	res, err := r.exec(exec).ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("touch plan %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch plan %d: %w", id, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
