package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/service"
)

// StartNotificationWorker subscribes the notification service to domain
// events. Delivery is synchronous, so nothing runs in the background.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	if logger != nil {
		logger.Info("notification handlers registered")
	}
}
