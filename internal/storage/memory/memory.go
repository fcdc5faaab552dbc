// Package memory holds in-memory storage implementations used by tests
// and by local runs without a database.
package memory

// MemoryStorage bundles the in-memory implementations.
type MemoryStorage struct {
	intakes   *IntakesMemoryStorage
	templates *TemplatesMemoryStorage
}

func New() *MemoryStorage {
	return &MemoryStorage{
		intakes:   NewIntakesMemoryStorage(),
		templates: NewTemplatesMemoryStorage(),
	}
}

func (m *MemoryStorage) GetIntakeStorage() *IntakesMemoryStorage {
	return m.intakes
}

func (m *MemoryStorage) GetTemplateStorage() *TemplatesMemoryStorage {
	return m.templates
}

func (m *MemoryStorage) Close() error {
	return nil
}
