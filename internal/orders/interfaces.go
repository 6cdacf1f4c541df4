package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundforms/atelier-backend/pkg/db/models"
	"github.com/soundforms/atelier-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, error)
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	Update(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id uuid.UUID) error

	FindItem(ctx context.Context, id uuid.UUID) (*models.OrderItem, error)
	FindItemBySerial(ctx context.Context, serialNumber string) (*models.OrderItem, error)
	FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	ListItems(ctx context.Context, filters ItemFilters) ([]models.OrderItem, error)
	CreateItem(ctx context.Context, item *models.OrderItem) (*models.OrderItem, error)
	UpdateItem(ctx context.Context, item *models.OrderItem) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	DeleteItemsByOrder(ctx context.Context, orderID uuid.UUID) error
}
