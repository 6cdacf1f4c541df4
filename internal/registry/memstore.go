package registry

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/soundforms/atelier-backend/pkg/db/models"
	"github.com/soundforms/atelier-backend/pkg/pagination"
)

// MemStore is an in-memory Store for tests and local development. A single
// mutex covers both maps so the insert-then-read-existing path is atomic.
type MemStore struct {
	mu       sync.Mutex
	records  map[string]models.SerialNumberRecord
	bindings map[string]models.LineItemBinding
}

// NewMemStore builds an empty in-memory registry store.
func NewMemStore() *MemStore {
	return &MemStore{
		records:  make(map[string]models.SerialNumberRecord),
		bindings: make(map[string]models.LineItemBinding),
	}
}

func (s *MemStore) GetRecord(_ context.Context, serial string) (*models.SerialNumberRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[serial]; ok {
		copied := record
		return &copied, nil
	}
	return nil, nil
}

func (s *MemStore) InsertRecord(_ context.Context, record *models.SerialNumberRecord) (bool, *models.SerialNumberRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[record.Serial]; ok {
		copied := existing
		return false, &copied, nil
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	s.records[record.Serial] = *record
	return true, record, nil
}

func (s *MemStore) ListRecords(_ context.Context, params ListParams) ([]models.SerialNumberRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]models.SerialNumberRecord, 0, len(s.records))
	for _, record := range s.records {
		if params.Type != "" && string(record.Type) != params.Type {
			continue
		}
		if params.Search != "" && !strings.Contains(record.Serial, params.Search) {
			continue
		}
		rows = append(rows, record)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID.String() > rows[j].ID.String()
	})
	limit := pagination.LimitWithBuffer(params.Pagination.Limit)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *MemStore) GetBinding(_ context.Context, lineItemID string) (*models.LineItemBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if binding, ok := s.bindings[lineItemID]; ok {
		copied := binding
		return &copied, nil
	}
	return nil, nil
}

func (s *MemStore) InsertBinding(_ context.Context, binding *models.LineItemBinding) (bool, *models.LineItemBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.bindings[binding.LineItemID]; ok {
		copied := existing
		return false, &copied, nil
	}
	if binding.ID == uuid.Nil {
		binding.ID = uuid.New()
	}
	s.bindings[binding.LineItemID] = *binding
	return true, binding, nil
}

func (s *MemStore) BindingsForSerial(_ context.Context, serial string) ([]models.LineItemBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []models.LineItemBinding
	for _, binding := range s.bindings {
		if binding.Serial == serial {
			rows = append(rows, binding)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	return rows, nil
}
