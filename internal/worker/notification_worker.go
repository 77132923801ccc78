package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/service"
)

// StartNotificationWorker registers notification handlers and, until ctx is
// done, periodically reports how many simulated deliveries are queued.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, logger *zap.Logger, interval time.Duration) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		last := -1
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n := len(notificationService.Outbox())
				if n != last {
					logger.Info("simulated notification outbox", zap.Int("deliveries", n))
					last = n
				}
			}
		}
	}()
}
