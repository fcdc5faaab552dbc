package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/macrotracker/intake-service/internal/storage"
)

// TemplatesMemoryStorage — in-memory implementation of TemplateStorage
type TemplatesMemoryStorage struct {
	mu         sync.RWMutex
	nextID     int64
	nextItemID int64
	templates  map[int64]storage.MealTemplate
}

func NewTemplatesMemoryStorage() *TemplatesMemoryStorage {
	return &TemplatesMemoryStorage{
		nextID:     1,
		nextItemID: 1,
		templates:  make(map[int64]storage.MealTemplate),
	}
}

func (m *TemplatesMemoryStorage) CreateTemplate(ctx context.Context, template *storage.MealTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	template.ID = m.nextID
	m.nextID++
	template.CreatedAt = now
	template.UpdatedAt = now

	for i := range template.Items {
		template.Items[i].ID = m.nextItemID
		m.nextItemID++
		template.Items[i].TemplateID = template.ID
	}

	m.templates[template.ID] = cloneTemplate(*template)
	return nil
}

func (m *TemplatesMemoryStorage) GetTemplate(ctx context.Context, id, userID int64) (*storage.MealTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	template, ok := m.templates[id]
	if !ok || template.UserID != userID {
		return nil, storage.ErrNotFound
	}

	clone := cloneTemplate(template)
	return &clone, nil
}

func (m *TemplatesMemoryStorage) ListTemplates(ctx context.Context, userID int64) ([]storage.MealTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var templates []storage.MealTemplate
	for _, template := range m.templates {
		if template.UserID == userID {
			templates = append(templates, cloneTemplate(template))
		}
	}

	sort.Slice(templates, func(i, j int) bool {
		if !templates[i].CreatedAt.Equal(templates[j].CreatedAt) {
			return templates[i].CreatedAt.After(templates[j].CreatedAt)
		}
		return templates[i].ID > templates[j].ID
	})

	return templates, nil
}

func (m *TemplatesMemoryStorage) ReplaceTemplate(ctx context.Context, template *storage.MealTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.templates[template.ID]
	if !ok || existing.UserID != template.UserID {
		return storage.ErrNotFound
	}

	template.CreatedAt = existing.CreatedAt
	template.UpdatedAt = time.Now()

	for i := range template.Items {
		if template.Items[i].ID == 0 {
			template.Items[i].ID = m.nextItemID
			m.nextItemID++
		}
		template.Items[i].TemplateID = template.ID
	}

	m.templates[template.ID] = cloneTemplate(*template)
	return nil
}

func (m *TemplatesMemoryStorage) DeleteTemplate(ctx context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	template, ok := m.templates[id]
	if !ok || template.UserID != userID {
		return storage.ErrNotFound
	}

	delete(m.templates, id)
	return nil
}

func cloneTemplate(t storage.MealTemplate) storage.MealTemplate {
	items := make([]storage.TemplateItem, len(t.Items))
	copy(items, t.Items)
	t.Items = items
	return t
}
