// Package storage persists pipeline state. Row-level status preconditions
// (compare-and-swap updates) stand in for locks everywhere outside the
// circuit breaker.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"promoscout/internal/model"
)

var (
	// ErrNotFound is returned when the referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a status precondition failed; the row was
	// transitioned by someone else and is left untouched.
	ErrConflict = errors.New("status conflict")
)

// Store is the gorm-backed store for items, drafts and posting tasks.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the sqlite database and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway; a single connection avoids busy
	// errors and keeps a :memory: database from splitting per connection
	sqlDB.SetMaxOpenConns(1)
	return NewStore(db)
}

// NewStore wraps an existing gorm DB and migrates the schema.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&model.DiscoveredItem{}, &model.Draft{}, &model.PostingTask{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle for tests.
func (s *Store) DB() *gorm.DB { return s.db }

// ---- discovered items ----

// UpsertItem stores a discovered item keyed by (project, url). Rediscovery
// refreshes discovered_at only; classification state is preserved. Returns
// true when a new row was created.
func (s *Store) UpsertItem(ctx context.Context, item *model.DiscoveredItem) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project"}, {Name: "url"}},
			DoNothing: true,
		}).
		Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	return false, s.db.WithContext(ctx).
		Model(&model.DiscoveredItem{}).
		Where("project = ? AND url = ?", item.Project, item.URL).
		Update("discovered_at", item.DiscoveredAt).Error
}

// GetItem loads one item by ID.
func (s *Store) GetItem(ctx context.Context, id string) (*model.DiscoveredItem, error) {
	var item model.DiscoveredItem
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// PendingItems returns items awaiting classification for a project, oldest
// first.
func (s *Store) PendingItems(ctx context.Context, project string, limit int) ([]model.DiscoveredItem, error) {
	var items []model.DiscoveredItem
	q := s.db.WithContext(ctx).
		Where("project = ? AND filter_status = ?", project, model.FilterPending).
		Order("discovered_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return items, q.Find(&items).Error
}

// UpdateClassification writes the classifier's verdict onto an item.
func (s *Store) UpdateClassification(ctx context.Context, id string, intent model.Intent, score *float64, status model.FilterStatus) error {
	res := s.db.WithContext(ctx).
		Model(&model.DiscoveredItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"intent":          intent,
			"relevance_score": score,
			"filter_status":   status,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SkipItem applies the moderator skip action. Valid from pending or relevant.
func (s *Store) SkipItem(ctx context.Context, id string) error {
	return s.transition(ctx, &model.DiscoveredItem{}, id,
		"filter_status", []string{string(model.FilterPending), string(model.FilterRelevant)},
		map[string]any{"filter_status": model.FilterSkipped})
}

// RelevantItemsWithoutDraft returns the project's relevant items that have no
// active (non-rejected) draft yet.
func (s *Store) RelevantItemsWithoutDraft(ctx context.Context, project string) ([]model.DiscoveredItem, error) {
	sub := s.db.Model(&model.Draft{}).
		Select("item_id").
		Where("status <> ?", model.DraftStatusRejected)
	var items []model.DiscoveredItem
	err := s.db.WithContext(ctx).
		Where("project = ? AND filter_status = ?", project, model.FilterRelevant).
		Where("id NOT IN (?)", sub).
		Order("discovered_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

// ---- drafts ----

// CreateDraft persists a freshly generated draft.
func (s *Store) CreateDraft(ctx context.Context, d *model.Draft) error {
	return s.db.WithContext(ctx).Create(d).Error
}

// GetDraft loads one draft by ID.
func (s *Store) GetDraft(ctx context.Context, id string) (*model.Draft, error) {
	var d model.Draft
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// DraftFilter narrows draft listings. Zero values mean "no filter".
type DraftFilter struct {
	Status  model.DraftStatus
	Project string
	Query   string // free-text over body
	Limit   int
	Offset  int
}

// ListDrafts lists drafts across projects, oldest first so bulk
// keyboard-driven moderation acts on a stable ordering.
func (s *Store) ListDrafts(ctx context.Context, f DraftFilter) ([]model.Draft, error) {
	q := s.db.WithContext(ctx).Model(&model.Draft{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Project != "" {
		q = q.Where("project = ?", f.Project)
	}
	if f.Query != "" {
		q = q.Where("body LIKE ?", "%"+f.Query+"%")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var drafts []model.Draft
	return drafts, q.Order("created_at ASC, id ASC").Find(&drafts).Error
}

// ApprovedDrafts returns the project's drafts awaiting submission.
func (s *Store) ApprovedDrafts(ctx context.Context, project string) ([]model.Draft, error) {
	var drafts []model.Draft
	err := s.db.WithContext(ctx).
		Where("project = ? AND status = ?", project, model.DraftStatusApproved).
		Order("created_at ASC, id ASC").
		Find(&drafts).Error
	return drafts, err
}

// TransitionDraft applies updates only if the draft's current status is one
// of from. ErrConflict when the precondition failed, ErrNotFound when the
// draft does not exist.
func (s *Store) TransitionDraft(ctx context.Context, id string, from []model.DraftStatus, updates map[string]any) error {
	fromStr := make([]string, len(from))
	for i, st := range from {
		fromStr[i] = string(st)
	}
	return s.transition(ctx, &model.Draft{}, id, "status", fromStr, updates)
}

// ---- posting tasks ----

// CreateTask persists a new posting task.
func (s *Store) CreateTask(ctx context.Context, t *model.PostingTask) error {
	return s.db.WithContext(ctx).Create(t).Error
}

// GetTask loads one task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*model.PostingTask, error) {
	var t model.PostingTask
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// GetTaskByExternalID resolves the task a webhook event refers to.
func (s *Store) GetTaskByExternalID(ctx context.Context, externalID string) (*model.PostingTask, error) {
	var t model.PostingTask
	if err := s.db.WithContext(ctx).Where("external_id = ?", externalID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// TransitionTask applies updates only if the task's current status is one of
// from.
func (s *Store) TransitionTask(ctx context.Context, id string, from []model.TaskStatus, updates map[string]any) error {
	fromStr := make([]string, len(from))
	for i, st := range from {
		fromStr[i] = string(st)
	}
	return s.transition(ctx, &model.PostingTask{}, id, "status", fromStr, updates)
}

// transition is the shared compare-and-swap update. Exactly one of two
// concurrent callers with the same precondition wins; the loser gets
// ErrConflict.
func (s *Store) transition(ctx context.Context, mdl any, id, statusCol string, from []string, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	res := s.db.WithContext(ctx).
		Model(mdl).
		Where("id = ? AND "+statusCol+" IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(mdl).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrConflict
}
