package timetable

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-editor/internal/models"
	appErrors "github.com/noah-isme/timetable-editor/pkg/errors"
)

type recordingSaver struct {
	calls  int
	planID int64
	slots  []models.PlanSlot
	err    error
}

func (r *recordingSaver) ReplacePlanSlots(ctx context.Context, planID int64, slots []models.PlanSlot) (*models.Plan, error) {
	r.calls++
	r.planID = planID
	r.slots = append([]models.PlanSlot(nil), slots...)
	if r.err != nil {
		return nil, r.err
	}
	echo := make([]models.PlanSlot, len(slots))
	copy(echo, slots)
	return &models.Plan{ID: planID, Slots: echo, UpdatedAt: time.Now().UTC()}, nil
}

func samplePlanSlots() []models.PlanSlot {
	room := int64(3)
	withRoom := wire(2, "Tue", 2, subjectEnglish, teacherT3)
	withRoom.RoomID = &room
	return []models.PlanSlot{
		wire(1, "Mon", 1, subjectReading, teacherT2),
		wire(2, "Mon", 1, subjectReading, teacherT2),
		wire(1, "Mon", 2, subjectMath, teacherT1),
		withRoom,
		wire(1, "Fri", 6, subjectEnglish, teacherT3),
	}
}

func TestStartConvertsPeriodsToZeroBased(t *testing.T) {
	s := startSession(t, wire(4, "Wed", 1, subjectMath, teacherT1))

	assert.Equal(t, StateEditing, s.State())
	a := occupant(t, s, pos(4, Wednesday, 0))
	assert.Equal(t, 0, a.Period)
	assert.False(t, s.Dirty())
	assert.Zero(t, s.Staging().Len())
}

func TestStartRejectsInvalidPlans(t *testing.T) {
	s := NewSession(testCatalog())

	err := s.Start(models.Plan{ID: 1, Slots: []models.PlanSlot{wire(1, "Sun", 1, subjectMath, teacherT1)}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	err = s.Start(models.Plan{ID: 1, Slots: []models.PlanSlot{
		wire(1, "Mon", 1, subjectMath, teacherT1),
		wire(1, "Mon", 1, subjectEnglish, teacherT2),
	}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	err = s.Start(models.Plan{ID: 1, Slots: []models.PlanSlot{wire(1, "Mon", 0, subjectMath, teacherT1)}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	assert.Equal(t, StateIdle, s.State())
}

func TestStartFailureReachesRenderHook(t *testing.T) {
	s := NewSession(testCatalog())
	var errs []error
	s.OnRender(func(_ Snapshot, err error) { errs = append(errs, err) })

	err := s.Start(models.Plan{ID: 1, Slots: []models.PlanSlot{wire(1, "Sun", 1, subjectMath, teacherT1)}})

	require.Error(t, err)
	require.Len(t, errs, 1)
	assert.Same(t, err, errs[0])
}

func TestResetAfterStartIsIdentity(t *testing.T) {
	s := startSession(t, samplePlanSlots()...)
	initial := s.Store().Clone()

	require.NoError(t, s.Reset())

	assert.True(t, initial.Equal(s.Store()))
	assert.Equal(t, initial.Entries(), s.Store().Entries())
	assert.False(t, s.Dirty())
}

func TestResetDiscardsMovesAndStaging(t *testing.T) {
	s := startSession(t, samplePlanSlots()...)
	initial := s.Store().Clone()

	require.NoError(t, s.MoveFromGrid(pos(1, Monday, 1), pos(1, Thursday, 0)))
	_, err := s.Detach(pos(1, Friday, 5))
	require.NoError(t, err)
	require.True(t, s.Dirty())

	require.NoError(t, s.Reset())

	assert.True(t, initial.Equal(s.Store()))
	assert.Zero(t, s.Staging().Len())
	assert.False(t, s.Dirty())
}

func TestCancelReturnsToIdle(t *testing.T) {
	s := startSession(t, samplePlanSlots()...)

	require.NoError(t, s.Cancel())

	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, s.Store())
	assert.ErrorIs(t, s.MoveFromGrid(pos(1, Monday, 0), pos(1, Tuesday, 0)), appErrors.ErrSessionNotEditing)
	assert.ErrorIs(t, s.Cancel(), appErrors.ErrSessionNotEditing)
	assert.ErrorIs(t, s.Save(context.Background(), &recordingSaver{}), appErrors.ErrSessionNotEditing)
}

func TestSaveBlockedByStagedItems(t *testing.T) {
	s := startSession(t, samplePlanSlots()...)
	_, err := s.Detach(pos(1, Monday, 1))
	require.NoError(t, err)
	storeBefore := s.Store().Clone()
	stagingBefore := s.Staging().Items()
	saver := &recordingSaver{}

	err = s.Save(context.Background(), saver)

	assert.ErrorIs(t, err, appErrors.ErrPendingStagedItems)
	assert.Zero(t, saver.calls)
	assert.True(t, storeBefore.Equal(s.Store()))
	assert.Equal(t, stagingBefore, s.Staging().Items())
	assert.True(t, s.Dirty())
}

func TestSaveFlattensOrderedOneBased(t *testing.T) {
	s := startSession(t, samplePlanSlots()...)
	require.NoError(t, s.MoveFromGrid(pos(1, Monday, 1), pos(1, Monday, 3)))
	saver := &recordingSaver{}

	require.NoError(t, s.Save(context.Background(), saver))

	require.Equal(t, 1, saver.calls)
	assert.Equal(t, int64(7), saver.planID)
	require.Len(t, saver.slots, 5)
	assert.Equal(t, []models.PlanSlot{
		{PlanID: 7, ClassID: 1, Day: "Mon", Period: 1, SubjectID: subjectReading, TeacherID: teacherT2},
		{PlanID: 7, ClassID: 2, Day: "Mon", Period: 1, SubjectID: subjectReading, TeacherID: teacherT2},
		{PlanID: 7, ClassID: 1, Day: "Mon", Period: 4, SubjectID: subjectMath, TeacherID: teacherT1},
		saver.slots[3],
		{PlanID: 7, ClassID: 1, Day: "Fri", Period: 6, SubjectID: subjectEnglish, TeacherID: teacherT3},
	}, saver.slots)
	require.NotNil(t, saver.slots[3].RoomID)
	assert.Equal(t, int64(3), *saver.slots[3].RoomID)
	assert.Equal(t, 2, saver.slots[3].Period)

	assert.False(t, s.Dirty())
	assert.Equal(t, StateEditing, s.State())
}

func TestSaveReseedsSnapshotFromEcho(t *testing.T) {
	s := startSession(t, samplePlanSlots()...)
	require.NoError(t, s.MoveFromGrid(pos(1, Friday, 5), pos(1, Thursday, 0)))
	require.NoError(t, s.Save(context.Background(), &recordingSaver{}))
	saved := s.Store().Clone()

	require.NoError(t, s.MoveFromGrid(pos(1, Thursday, 0), pos(1, Wednesday, 0)))
	require.NoError(t, s.Reset())

	assert.True(t, saved.Equal(s.Store()), "reset returns to the last saved state")
}

func TestFlattenReloadRoundTrip(t *testing.T) {
	s := startSession(t, samplePlanSlots()...)
	require.NoError(t, s.MoveFromGrid(pos(2, Tuesday, 1), pos(2, Wednesday, 4)))

	reloaded := NewSession(testCatalog())
	require.NoError(t, reloaded.Start(models.Plan{ID: 7, Slots: s.Flatten()}))

	assert.True(t, s.Store().Equal(reloaded.Store()))
}

func TestSaveFailureKeepsLocalState(t *testing.T) {
	s := startSession(t, samplePlanSlots()...)
	require.NoError(t, s.MoveFromGrid(pos(1, Monday, 1), pos(1, Monday, 3)))
	before := s.Store().Clone()
	saver := &recordingSaver{err: errors.New("connection reset")}

	err := s.Save(context.Background(), saver)

	assert.ErrorIs(t, err, appErrors.ErrPersistenceFailure)
	assert.True(t, before.Equal(s.Store()))
	assert.True(t, s.Dirty())

	saver.err = nil
	require.NoError(t, s.Save(context.Background(), saver), "save may be retried")
	assert.Equal(t, 2, saver.calls)
}

func TestBeginSaveRejectsOverlap(t *testing.T) {
	s := startSession(t, samplePlanSlots()...)

	ticket, err := s.BeginSave()
	require.NoError(t, err)
	_, err = s.BeginSave()
	assert.ErrorIs(t, err, appErrors.ErrSaveInProgress)
	assert.True(t, s.Snapshot().Saving)

	require.NoError(t, s.CompleteSave(ticket, &models.Plan{ID: 7, Slots: ticket.Slots}))
	assert.False(t, s.Snapshot().Saving)

	_, err = s.BeginSave()
	assert.NoError(t, err)
}

func TestBeginSaveBlockedAcrossReset(t *testing.T) {
	s := startSession(t, samplePlanSlots()...)
	require.NoError(t, s.MoveFromGrid(pos(1, Friday, 5), pos(1, Thursday, 0)))
	first, err := s.BeginSave()
	require.NoError(t, err)

	require.NoError(t, s.Reset())
	_, err = s.BeginSave()
	assert.ErrorIs(t, err, appErrors.ErrSaveInProgress)
	assert.True(t, s.Snapshot().Saving)

	require.NoError(t, s.CompleteSave(first, &models.Plan{ID: 7, Slots: first.Slots}))
	assert.False(t, s.Snapshot().Saving)
	assert.False(t, s.Dirty())

	second, err := s.BeginSave()
	require.NoError(t, err)
	assert.NotEqual(t, first.Slots, second.Slots)
}

func TestBeginSaveBlockedAcrossCancelAndRestart(t *testing.T) {
	s := startSession(t, samplePlanSlots()...)
	first, err := s.BeginSave()
	require.NoError(t, err)
	require.NoError(t, s.Cancel())
	require.NoError(t, s.Start(models.Plan{ID: 7, Slots: samplePlanSlots()}))

	_, err = s.BeginSave()
	assert.ErrorIs(t, err, appErrors.ErrSaveInProgress)

	require.NoError(t, s.AbortSave(first, errors.New("connection reset")))
	_, err = s.BeginSave()
	assert.NoError(t, err)
}

func TestAbortSaveAfterResetIsDropped(t *testing.T) {
	s := startSession(t, samplePlanSlots()...)
	var errs []error
	s.OnRender(func(_ Snapshot, err error) { errs = append(errs, err) })
	ticket, err := s.BeginSave()
	require.NoError(t, err)
	require.NoError(t, s.Reset())

	err = s.AbortSave(ticket, errors.New("plan store timed out"))

	assert.NoError(t, err)
	assert.False(t, s.Snapshot().Saving)
	assert.Equal(t, []error{nil}, errs)
}

func TestCompleteSaveAfterResetIsDropped(t *testing.T) {
	s := startSession(t, samplePlanSlots()...)
	require.NoError(t, s.MoveFromGrid(pos(1, Friday, 5), pos(1, Thursday, 0)))
	ticket, err := s.BeginSave()
	require.NoError(t, err)

	require.NoError(t, s.Reset())
	afterReset := s.Store().Clone()

	require.NoError(t, s.CompleteSave(ticket, &models.Plan{ID: 7, Slots: ticket.Slots}))

	assert.True(t, s.Stale(ticket))
	assert.True(t, afterReset.Equal(s.Store()))
	assert.False(t, s.Snapshot().Saving)

	// the pre-reset snapshot is still the one reset returns to
	require.NoError(t, s.MoveFromGrid(pos(1, Friday, 5), pos(1, Wednesday, 0)))
	require.NoError(t, s.Reset())
	assert.True(t, afterReset.Equal(s.Store()))
}

func TestCompleteSaveAfterCancelIsDropped(t *testing.T) {
	s := startSession(t, samplePlanSlots()...)
	ticket, err := s.BeginSave()
	require.NoError(t, err)
	require.NoError(t, s.Cancel())

	require.NoError(t, s.CompleteSave(ticket, &models.Plan{ID: 7, Slots: ticket.Slots}))

	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, s.Store())
}

func TestMovesDuringSaveStayDirty(t *testing.T) {
	s := startSession(t, samplePlanSlots()...)
	ticket, err := s.BeginSave()
	require.NoError(t, err)
	saved := s.Store().Clone()

	require.NoError(t, s.MoveFromGrid(pos(1, Friday, 5), pos(1, Thursday, 0)))
	local := s.Store().Clone()

	require.NoError(t, s.CompleteSave(ticket, &models.Plan{ID: 7, Slots: ticket.Slots}))

	assert.True(t, local.Equal(s.Store()), "local edits survive the echo")
	assert.True(t, s.Dirty())

	require.NoError(t, s.Reset())
	assert.True(t, saved.Equal(s.Store()))
}

func TestCompleteSaveWithoutEchoFails(t *testing.T) {
	s := startSession(t, samplePlanSlots()...)
	ticket, err := s.BeginSave()
	require.NoError(t, err)

	err = s.CompleteSave(ticket, nil)

	assert.ErrorIs(t, err, appErrors.ErrPersistenceFailure)
	assert.False(t, s.Snapshot().Saving)
}

func TestAbortSaveKeepsPersistenceFailure(t *testing.T) {
	s := startSession(t, samplePlanSlots()...)
	ticket, err := s.BeginSave()
	require.NoError(t, err)
	cause := appErrors.Clone(appErrors.ErrPersistenceFailure, "plan store timed out")

	err = s.AbortSave(ticket, cause)

	assert.Same(t, cause, err)
	assert.False(t, s.Snapshot().Saving)
}

func TestRenderHookSeesEveryMutation(t *testing.T) {
	s := NewSession(testCatalog())
	var snapshots []Snapshot
	var errs []error
	s.OnRender(func(snap Snapshot, err error) {
		snapshots = append(snapshots, snap)
		errs = append(errs, err)
	})

	require.NoError(t, s.Start(models.Plan{ID: 7, Slots: samplePlanSlots()}))
	require.NoError(t, s.MoveFromGrid(pos(1, Friday, 5), pos(1, Thursday, 0)))
	err := s.MoveFromGrid(pos(3, Monday, 0), pos(3, Tuesday, 0))
	require.Error(t, err)

	require.Len(t, snapshots, 3)
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.ErrorIs(t, errs[2], appErrors.ErrNoSourceAssignment)
	assert.Equal(t, 1, snapshots[1].Revision)
	assert.True(t, snapshots[1].Dirty)
	assert.Equal(t, 1, snapshots[2].Revision, "rejected moves do not bump the revision")
}

func TestSnapshotDeepCopiesStaging(t *testing.T) {
	s := startSession(t, samplePlanSlots()...)
	item, err := s.Detach(pos(1, Monday, 0))
	require.NoError(t, err)
	assert.Equal(t, StagingBand, item.Kind)

	snap := s.Snapshot()
	require.Len(t, snap.Staging, 1)
	snap.Staging[0].Members[0].TeacherID = 999

	again := s.Snapshot()
	assert.Equal(t, teacherT2, again.Staging[0].Members[0].TeacherID)
	assert.Len(t, again.Slots, 3)
}
