package registry

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soundforms/atelier-backend/pkg/db/models"
	"github.com/soundforms/atelier-backend/pkg/pagination"
)

// GormStore is the Postgres-backed registry store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs a registry store tied to the provided GORM DB.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// WithTx returns a copy bound to the provided transaction handle.
func (s *GormStore) WithTx(tx *gorm.DB) *GormStore {
	return &GormStore{db: tx}
}

func (s *GormStore) GetRecord(ctx context.Context, serial string) (*models.SerialNumberRecord, error) {
	var record models.SerialNumberRecord
	err := s.db.WithContext(ctx).Where("serial = ?", serial).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// InsertRecord relies on ON CONFLICT DO NOTHING against the serial unique
// index, so concurrent freezes of the same serial settle on one winner
// without errors on either side.
func (s *GormStore) InsertRecord(ctx context.Context, record *models.SerialNumberRecord) (bool, *models.SerialNumberRecord, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "serial"}},
			DoNothing: true,
		}).
		Create(record)
	if res.Error != nil {
		return false, nil, res.Error
	}
	if res.RowsAffected > 0 {
		return true, record, nil
	}
	existing, err := s.GetRecord(ctx, record.Serial)
	if err != nil {
		return false, nil, err
	}
	return false, existing, nil
}

func (s *GormStore) ListRecords(ctx context.Context, params ListParams) ([]models.SerialNumberRecord, error) {
	query := s.db.WithContext(ctx).Model(&models.SerialNumberRecord{})

	if trimmed := strings.TrimSpace(params.Type); trimmed != "" {
		query = query.Where("type = ?", trimmed)
	}
	if trimmed := strings.TrimSpace(params.Search); trimmed != "" {
		query = query.Where("serial LIKE ?", "%"+trimmed+"%")
	}
	cursor, err := pagination.ParseCursor(params.Pagination.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	limit := pagination.LimitWithBuffer(params.Pagination.Limit)
	query = query.Order("created_at DESC").Order("id DESC").Limit(limit)

	var rows []models.SerialNumberRecord
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *GormStore) GetBinding(ctx context.Context, lineItemID string) (*models.LineItemBinding, error) {
	var binding models.LineItemBinding
	err := s.db.WithContext(ctx).Where("line_item_id = ?", lineItemID).First(&binding).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &binding, nil
}

func (s *GormStore) InsertBinding(ctx context.Context, binding *models.LineItemBinding) (bool, *models.LineItemBinding, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "line_item_id"}},
			DoNothing: true,
		}).
		Create(binding)
	if res.Error != nil {
		return false, nil, res.Error
	}
	if res.RowsAffected > 0 {
		return true, binding, nil
	}
	existing, err := s.GetBinding(ctx, binding.LineItemID)
	if err != nil {
		return false, nil, err
	}
	return false, existing, nil
}

func (s *GormStore) BindingsForSerial(ctx context.Context, serial string) ([]models.LineItemBinding, error) {
	var rows []models.LineItemBinding
	err := s.db.WithContext(ctx).
		Where("serial = ?", serial).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
