package notifications

import (
	"context"
	"time"

	"github.com/pymesoft/comercio-backend/pkg/db/models"
)

// Repository defines persistence operations for in-app notifications.
type Repository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, params ListParams) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID int64, readAt time.Time) (int64, error)
}
