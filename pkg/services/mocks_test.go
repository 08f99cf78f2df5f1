package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-content/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-content/pkg/models"
	"github.com/ekaya-inc/ekaya-content/pkg/repositories"
	"github.com/ekaya-inc/ekaya-content/pkg/services/workqueue"
)

// mockProjectRepository is an in-memory ProjectRepository that enforces the
// status transition table like the PostgreSQL implementation.
type mockProjectRepository struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*models.ContentProject
	contents *mockContentRepository

	getErr        error
	transitionErr map[models.ProjectStatus]error
	transitions   []models.ProjectStatus
}

func newMockProjectRepository(contents *mockContentRepository) *mockProjectRepository {
	return &mockProjectRepository{
		projects:      make(map[uuid.UUID]*models.ContentProject),
		contents:      contents,
		transitionErr: make(map[models.ProjectStatus]error),
	}
}

func (m *mockProjectRepository) Create(ctx context.Context, p *models.ContentProject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *mockProjectRepository) Get(ctx context.Context, id uuid.UUID) (*models.ContentProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.projects[id]
	if !ok || p.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProjectRepository) List(ctx context.Context, f repositories.ProjectFilter) ([]*models.ContentProject, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*models.ContentProject
	for _, p := range m.projects {
		if p.DeletedAt != nil || (f.OwnerID != "" && p.OwnerID != f.OwnerID) || (f.Status != "" && p.Status != f.Status) {
			continue
		}
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := total
	if f.Limit > 0 {
		end = min(total, f.Offset+f.Limit)
	}
	return all[f.Offset:end], total, nil
}

func (m *mockProjectRepository) TransitionStatus(ctx context.Context, id uuid.UUID, to models.ProjectStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.transitionErr[to]; err != nil {
		return err
	}
	p, ok := m.projects[id]
	if !ok || p.DeletedAt != nil {
		return apperrors.ErrNotFound
	}
	if err := models.CanTransition(p.Status, to); err != nil {
		return err
	}
	p.Status = to
	p.UpdatedAt = time.Now()
	m.transitions = append(m.transitions, to)
	return nil
}

func (m *mockProjectRepository) BeginRegeneration(ctx context.Context, id uuid.UUID, contentTypes []models.ContentType, tone string) (*models.ContentProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok || p.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}
	if err := models.CanTransition(p.Status, models.ProjectStatusGenerating); err != nil {
		return nil, err
	}
	if m.contents != nil {
		_, _ = m.contents.DeleteByProject(ctx, id)
	}
	p.Status = models.ProjectStatusGenerating
	p.ContentTypes = contentTypes
	p.Tone = tone
	m.transitions = append(m.transitions, models.ProjectStatusGenerating)
	cp := *p
	return &cp, nil
}

func (m *mockProjectRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok || p.DeletedAt != nil {
		return apperrors.ErrNotFound
	}
	now := time.Now()
	p.DeletedAt = &now
	return nil
}

func (m *mockProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *mockProjectRepository) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, p := range m.projects {
		if p.DeletedAt != nil && p.DeletedAt.Before(before) {
			delete(m.projects, id)
			n++
		}
	}
	return n, nil
}

func (m *mockProjectRepository) FailStale(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.projects {
		if p.DeletedAt == nil && p.Status == models.ProjectStatusGenerating && p.UpdatedAt.Before(before) {
			p.Status = models.ProjectStatusFailed
			p.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (m *mockProjectRepository) status(id uuid.UUID) models.ProjectStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projects[id].Status
}

var _ repositories.ProjectRepository = (*mockProjectRepository)(nil)

// mockContentRepository is an in-memory ContentRepository.
type mockContentRepository struct {
	mu   sync.Mutex
	rows []*models.GeneratedContent

	// createErr, when set, is consulted before each insert.
	createErr func(row *models.GeneratedContent) error
}

func (m *mockContentRepository) Create(ctx context.Context, c *models.GeneratedContent) error {
	if m.createErr != nil {
		if err := m.createErr(c); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	cp := *c
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *mockContentRepository) Get(ctx context.Context, id uuid.UUID) (*models.GeneratedContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockContentRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.GeneratedContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.GeneratedContent{}
	for _, r := range m.rows {
		if r.ProjectID == projectID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockContentRepository) UpdateText(ctx context.Context, id uuid.UUID, text, hashtags string) (*models.GeneratedContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id {
			r.GeneratedText = text
			r.GeneratedHashtags = hashtags
			r.UpdatedAt = time.Now()
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockContentRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	var n int64
	for _, r := range m.rows {
		if r.ProjectID == projectID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n, nil
}

func (m *mockContentRepository) forProject(projectID uuid.UUID) []*models.GeneratedContent {
	rows, _ := m.ListByProject(context.Background(), projectID)
	return rows
}

var _ repositories.ContentRepository = (*mockContentRepository)(nil)

// noScope is a ScopeFunc for in-memory repositories.
func noScope(ctx context.Context) (context.Context, func(), error) {
	return ctx, func() {}, nil
}

// inlineQueue runs tasks synchronously on Enqueue.
type inlineQueue struct {
	mu    sync.Mutex
	tasks []workqueue.Task
	errs  []error
	// rejectWith, when set, is returned instead of running the task.
	rejectWith error
}

func (q *inlineQueue) Enqueue(task workqueue.Task) error {
	if q.rejectWith != nil {
		return q.rejectWith
	}
	err := task.Execute(context.Background())
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.errs = append(q.errs, err)
	q.mu.Unlock()
	return nil
}

// holdQueue records tasks without running them.
type holdQueue struct {
	tasks []workqueue.Task
}

func (q *holdQueue) Enqueue(task workqueue.Task) error {
	q.tasks = append(q.tasks, task)
	return nil
}
