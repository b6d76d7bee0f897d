package notifications

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pymesoft/comercio-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a notifications repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.Notification, error) {
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Order("id DESC").Limit(limit)
	if params.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	var rows []models.Notification
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MarkRead(ctx context.Context, notificationID int64, readAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND read_at IS NULL", notificationID).
		Update("read_at", readAt)
	return result.RowsAffected, result.Error
}
