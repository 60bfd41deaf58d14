package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-editor/internal/models"
	appErrors "github.com/noah-isme/timetable-editor/pkg/errors"
)

const (
	catalogSubjectsCacheKey = "catalog:subjects"
	catalogLabelsCacheKey   = "catalog:labels"
	catalogCachePattern     = "catalog:*"
)

type catalogReader interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	ListClasses(ctx context.Context) ([]models.Class, error)
	ListTeachers(ctx context.Context) ([]models.Teacher, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// CatalogService serves the subject catalogue and display labels, reading
// through the Redis cache when one is configured.
type CatalogService struct {
	repo   catalogReader
	cache  catalogCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCatalogService wires the catalogue reader. cache may be nil.
func NewCatalogService(repo catalogReader, cache catalogCache, ttl time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Subjects returns every subject with its alias and band flag.
func (s *CatalogService) Subjects(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	if s.cached(ctx, catalogSubjectsCacheKey, &subjects) {
		return subjects, nil
	}
	subjects, err := s.repo.ListSubjects(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject catalogue")
	}
	s.store(ctx, catalogSubjectsCacheKey, subjects)
	return subjects, nil
}

// Labels returns display names for classes, teachers, subjects and rooms.
func (s *CatalogService) Labels(ctx context.Context) (*models.LabelCatalog, error) {
	var labels models.LabelCatalog
	if s.cached(ctx, catalogLabelsCacheKey, &labels) {
		return &labels, nil
	}

	subjects, err := s.Subjects(ctx)
	if err != nil {
		return nil, err
	}
	classes, err := s.repo.ListClasses(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	teachers, err := s.repo.ListTeachers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	rooms, err := s.repo.ListRooms(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}

	labels = models.LabelCatalog{Classes: classes, Teachers: teachers, Subjects: subjects, Rooms: rooms}
	s.store(ctx, catalogLabelsCacheKey, labels)
	return &labels, nil
}

// Invalidate drops cached catalogue entries.
func (s *CatalogService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, catalogCachePattern)
}

// cached reports a usable hit. Read failures fall through to the database.
func (s *CatalogService) cached(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	return err == nil && hit
}

func (s *CatalogService) store(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Debug("catalogue not cached", zap.String("key", key), zap.Error(err))
	}
}
