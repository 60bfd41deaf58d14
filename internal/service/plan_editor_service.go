package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-editor/internal/dto"
	"github.com/noah-isme/timetable-editor/internal/models"
	"github.com/noah-isme/timetable-editor/internal/timetable"
	appErrors "github.com/noah-isme/timetable-editor/pkg/errors"
)

type editorPlanReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Plan, error)
}

type editorSlotReader interface {
	ListByPlan(ctx context.Context, exec sqlx.ExtContext, planID int64) ([]models.PlanSlot, error)
}

type editorCatalogProvider interface {
	Subjects(ctx context.Context) ([]models.Subject, error)
	Labels(ctx context.Context) (*models.LabelCatalog, error)
}

// PlanEditorConfig governs session hosting.
type PlanEditorConfig struct {
	SessionTTL  time.Duration
	MaxSessions int
	SaveTimeout time.Duration
}

// PlanEditorService hosts interactive editing sessions over committed plans.
// Each session is driven by one request at a time; saves release the session
// while the plan store round trip is in flight.
type PlanEditorService struct {
	plans     editorPlanReader
	slots     editorSlotReader
	catalog   editorCatalogProvider
	saver     timetable.PlanSaver
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       PlanEditorConfig
	store     *editorSessionStore
	now       func() time.Time
}

// NewPlanEditorService wires editor dependencies.
func NewPlanEditorService(
	plans editorPlanReader,
	slots editorSlotReader,
	catalog editorCatalogProvider,
	saver timetable.PlanSaver,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg PlanEditorConfig,
) *PlanEditorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = 15 * time.Second
	}
	svc := &PlanEditorService{
		plans:     plans,
		slots:     slots,
		catalog:   catalog,
		saver:     saver,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
	svc.store = newEditorSessionStore(cfg.SessionTTL, cfg.MaxSessions, func() time.Time { return svc.now() })
	return svc
}

// Start loads planID and opens a new editing session owned by owner.
func (s *PlanEditorService) Start(ctx context.Context, planID int64, owner string) (*dto.EditorSessionView, error) {
	if planID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "plan id must be positive")
	}
	plan, err := s.plans.FindByID(ctx, nil, planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("plan %d not found", planID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
	}
	plan.Slots, err = s.slots.ListByPlan(ctx, nil, planID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan slots")
	}

	subjects, err := s.catalog.Subjects(ctx)
	if err != nil {
		return nil, err
	}
	labels, err := s.catalog.Labels(ctx)
	if err != nil {
		return nil, err
	}

	entry := &editorSession{
		id:      uuid.NewString(),
		owner:   owner,
		session: timetable.NewSession(timetable.NewCatalog(subjects)),
		labels:  labels,
	}
	entry.session.OnRender(s.renderHook(entry.id))
	if err := entry.session.Start(*plan); err != nil {
		return nil, err
	}
	if err := s.store.Put(entry); err != nil {
		s.logger.Warn("editor session rejected", zap.Int64("plan_id", planID), zap.Int("open_sessions", s.store.Len()))
		return nil, err
	}
	s.metrics.SetActiveEditorSessions(s.store.Len())
	s.logger.Info("editor session started",
		zap.String("session_id", entry.id),
		zap.Int64("plan_id", planID),
		zap.Int("slots", len(plan.Slots)),
		zap.String("owner", owner),
	)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return s.view(entry), nil
}

// Get renders the current state of a session.
func (s *PlanEditorService) Get(ctx context.Context, sessionID, owner string) (*dto.EditorSessionView, error) {
	entry, err := s.lookup(sessionID, owner)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return s.view(entry), nil
}

// Move applies one drag-and-drop gesture.
func (s *PlanEditorService) Move(ctx context.Context, sessionID, owner string, req dto.MoveRequest) (*dto.EditorSessionView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid move payload")
	}
	move, err := pendingMove(req)
	if err != nil {
		return nil, err
	}
	return s.mutate(sessionID, owner, func(session *timetable.Session) error {
		return session.Apply(move)
	})
}

// Remove clears the grid cell at key.
func (s *PlanEditorService) Remove(ctx context.Context, sessionID, owner string, key string) (*dto.EditorSessionView, error) {
	pos, err := timetable.ParseKey(timetable.Key(key))
	if err != nil {
		return nil, err
	}
	return s.mutate(sessionID, owner, func(session *timetable.Session) error {
		return session.Remove(pos)
	})
}

// Reset discards unsaved changes.
func (s *PlanEditorService) Reset(ctx context.Context, sessionID, owner string) (*dto.EditorSessionView, error) {
	return s.mutate(sessionID, owner, func(session *timetable.Session) error {
		return session.Reset()
	})
}

// Save persists the session's slots. The session stays usable while the write
// is in flight; its response, success or failure, is ignored if the session
// was reset or cancelled in the meantime.
func (s *PlanEditorService) Save(ctx context.Context, sessionID, owner string) (*dto.EditorSessionView, error) {
	entry, err := s.lookup(sessionID, owner)
	if err != nil {
		return nil, err
	}
	if s.saver == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "plan saver unavailable")
	}

	entry.mu.Lock()
	ticket, err := entry.session.BeginSave()
	entry.mu.Unlock()
	if err != nil {
		s.metrics.RecordEditorOperation(appErrors.FromError(err).Code)
		return nil, err
	}

	saveCtx, cancel := context.WithTimeout(ctx, s.cfg.SaveTimeout)
	defer cancel()
	start := s.now()
	plan, saveErr := s.saver.ReplacePlanSlots(saveCtx, ticket.PlanID, ticket.Slots)
	elapsed := s.now().Sub(start)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	stale := entry.session.Stale(ticket)
	if saveErr != nil {
		err = entry.session.AbortSave(ticket, saveErr)
	} else {
		err = entry.session.CompleteSave(ticket, plan)
	}
	s.metrics.ObserveEditorSave(saveErr == nil && err == nil, elapsed)

	fields := []zap.Field{
		zap.String("session_id", sessionID),
		zap.Int64("plan_id", ticket.PlanID),
		zap.Int("slots", len(ticket.Slots)),
		zap.Duration("latency", elapsed),
	}
	switch {
	case err != nil:
		s.logger.Warn("plan save failed", append(fields, zap.Error(err))...)
		return nil, err
	case stale && saveErr != nil:
		s.logger.Info("stale plan save failure dropped", append(fields, zap.Error(saveErr))...)
	case stale:
		s.logger.Info("stale plan save response dropped", fields...)
	default:
		s.logger.Info("plan saved", fields...)
	}
	return s.view(entry), nil
}

// Cancel discards the session without persisting.
func (s *PlanEditorService) Cancel(ctx context.Context, sessionID, owner string) error {
	entry, err := s.lookup(sessionID, owner)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	err = entry.session.Cancel()
	entry.mu.Unlock()
	s.store.Delete(sessionID)
	s.metrics.SetActiveEditorSessions(s.store.Len())
	if err != nil {
		return err
	}
	s.logger.Info("editor session cancelled", zap.String("session_id", sessionID))
	return nil
}

// Sweep evicts sessions idle for longer than the configured TTL.
func (s *PlanEditorService) Sweep() int {
	removed := s.store.Sweep()
	s.metrics.SetActiveEditorSessions(s.store.Len())
	if removed > 0 {
		s.logger.Info("expired editor sessions evicted", zap.Int("count", removed))
	}
	return removed
}

// RunJanitor sweeps expired sessions every interval until ctx is done.
func (s *PlanEditorService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *PlanEditorService) lookup(sessionID, owner string) (*editorSession, error) {
	entry, ok := s.store.Get(sessionID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "editor session not found or expired")
	}
	if entry.owner != "" && entry.owner != owner {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "editor session belongs to another user")
	}
	return entry, nil
}

func (s *PlanEditorService) mutate(sessionID, owner string, op func(*timetable.Session) error) (*dto.EditorSessionView, error) {
	entry, err := s.lookup(sessionID, owner)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := op(entry.session); err != nil {
		return nil, err
	}
	return s.view(entry), nil
}

// renderHook feeds every session operation into metrics and the debug log.
func (s *PlanEditorService) renderHook(sessionID string) timetable.RenderHook {
	return func(snapshot timetable.Snapshot, err error) {
		if err == nil {
			s.metrics.RecordEditorOperation("")
			return
		}
		code := appErrors.FromError(err).Code
		s.metrics.RecordEditorOperation(code)
		s.logger.Debug("editor operation rejected",
			zap.String("session_id", sessionID),
			zap.Int64("plan_id", snapshot.PlanID),
			zap.String("code", code),
			zap.Error(err),
		)
	}
}

func (s *PlanEditorService) view(entry *editorSession) *dto.EditorSessionView {
	snap := entry.session.Snapshot()
	view := &dto.EditorSessionView{
		SessionID: entry.id,
		PlanID:    snap.PlanID,
		State:     string(snap.State),
		Dirty:     snap.Dirty,
		Saving:    snap.Saving,
		Revision:  snap.Revision,
		ExpiresAt: entry.seenAt().Add(s.cfg.SessionTTL).UTC(),
		Cells:     cellsOf(snap.Slots),
		Staging:   make([]dto.EditorStagingItem, 0, len(snap.Staging)),
		Labels:    entry.labels,
	}
	if plan := entry.session.Plan(); plan != nil {
		view.PlanName = plan.Name
		view.PlanUpdatedAt = plan.UpdatedAt
		view.SlotsMeta = plan.SlotsMeta
	}
	for _, item := range snap.Staging {
		view.Staging = append(view.Staging, dto.EditorStagingItem{
			ID:        item.ID,
			Kind:      string(item.Kind),
			SubjectID: item.SubjectID,
			TeacherID: item.TeacherID,
			Members:   cellsOf(item.Members),
		})
	}
	return view
}

func cellsOf(assignments []timetable.Assignment) []dto.EditorCell {
	cells := make([]dto.EditorCell, 0, len(assignments))
	for _, a := range assignments {
		cells = append(cells, dto.EditorCell{Key: a.Key(), Assignment: a})
	}
	return cells
}

func pendingMove(req dto.MoveRequest) (timetable.PendingMove, error) {
	from, err := editorRef(req.From)
	if err != nil {
		return timetable.PendingMove{}, err
	}
	if from.Kind == timetable.RefStaging && from.StagingID <= 0 {
		return timetable.PendingMove{}, appErrors.Clone(appErrors.ErrValidation, "from.stagingId is required for a staging source")
	}
	to, err := editorRef(req.To)
	if err != nil {
		return timetable.PendingMove{}, err
	}
	return timetable.PendingMove{From: from, To: to}, nil
}

func editorRef(ref dto.EditorRef) (timetable.Ref, error) {
	switch timetable.RefKind(ref.Kind) {
	case timetable.RefGrid:
		pos, err := timetable.ParseKey(timetable.Key(ref.Key))
		if err != nil {
			return timetable.Ref{}, err
		}
		return timetable.GridRef(pos), nil
	case timetable.RefStaging:
		return timetable.StagingRef(ref.StagingID), nil
	default:
		return timetable.Ref{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown ref kind %q", ref.Kind))
	}
}
