package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/macrotracker/intake-service/internal/storage"
)

// IntakesMemoryStorage — in-memory implementation of IntakeStorage
type IntakesMemoryStorage struct {
	mu      sync.RWMutex
	nextID  int64
	intakes map[int64]storage.Intake
}

func NewIntakesMemoryStorage() *IntakesMemoryStorage {
	return &IntakesMemoryStorage{
		nextID:  1,
		intakes: make(map[int64]storage.Intake),
	}
}

func (m *IntakesMemoryStorage) CreateIntake(ctx context.Context, intake *storage.Intake) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	intake.ID = m.nextID
	m.nextID++
	intake.CreatedAt = now
	intake.UpdatedAt = now
	m.intakes[intake.ID] = *intake

	return nil
}

func (m *IntakesMemoryStorage) CreateIntakeBatch(ctx context.Context, intakes []storage.Intake) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for i := range intakes {
		intakes[i].ID = m.nextID
		m.nextID++
		intakes[i].CreatedAt = now
		intakes[i].UpdatedAt = now
		m.intakes[intakes[i].ID] = intakes[i]
	}

	return nil
}

func (m *IntakesMemoryStorage) GetIntake(ctx context.Context, id, userID int64) (*storage.Intake, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	intake, ok := m.intakes[id]
	if !ok || intake.UserID != userID {
		return nil, storage.ErrNotFound
	}

	return &intake, nil
}

func (m *IntakesMemoryStorage) ListIntakes(ctx context.Context, userID int64, date *string, limit, offset int) ([]storage.Intake, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []storage.Intake
	for _, intake := range m.intakes {
		if intake.UserID != userID {
			continue
		}
		if date != nil && intake.Date != *date {
			continue
		}
		matched = append(matched, intake)
	}

	// Newest first, stable on descending id like the SQL ordering.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}

	return matched[offset:end], total, nil
}

func (m *IntakesMemoryStorage) UpdateIntake(ctx context.Context, intake *storage.Intake) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.intakes[intake.ID]
	if !ok || existing.UserID != intake.UserID {
		return storage.ErrNotFound
	}

	intake.CreatedAt = existing.CreatedAt
	intake.UpdatedAt = time.Now()
	m.intakes[intake.ID] = *intake

	return nil
}

func (m *IntakesMemoryStorage) DeleteIntake(ctx context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	intake, ok := m.intakes[id]
	if !ok || intake.UserID != userID {
		return storage.ErrNotFound
	}

	delete(m.intakes, id)
	return nil
}

func (m *IntakesMemoryStorage) FindFirstByMealGroup(ctx context.Context, mealGroupID string, userID int64) (*storage.Intake, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *storage.Intake
	for _, intake := range m.intakes {
		if intake.UserID != userID || intake.MealGroupID == nil || *intake.MealGroupID != mealGroupID {
			continue
		}
		if found == nil || intake.ID < found.ID {
			v := intake
			found = &v
		}
	}

	if found == nil {
		return nil, storage.ErrNotFound
	}
	return found, nil
}

func (m *IntakesMemoryStorage) DeleteByMealGroup(ctx context.Context, mealGroupID string, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, intake := range m.intakes {
		if intake.UserID == userID && intake.MealGroupID != nil && *intake.MealGroupID == mealGroupID {
			delete(m.intakes, id)
			deleted++
		}
	}

	return deleted, nil
}

func (m *IntakesMemoryStorage) DeleteBatchByUser(ctx context.Context, userID int64, batchSize int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, intake := range m.intakes {
		if deleted >= batchSize {
			break
		}
		if intake.UserID == userID {
			delete(m.intakes, id)
			deleted++
		}
	}

	return deleted, nil
}
