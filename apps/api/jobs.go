package main

import (
	"context"
	"time"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/placement"
)

// expireSubmissions periodically closes the timed placement test submissions left open past their expiry time.
func expireSubmissions(ctx context.Context, svc *placement.Service, interval time.Duration, logger core.Logger) {
	if interval <= 0 {
		logger.Info("submissions expiry disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.ExpireStaleSubmissions(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Error("expiring submissions", err)
				}
				continue
			}
			if n > 0 {
				logger.Info("expired submissions", map[string]interface{}{"count": n})
			}
		}
	}
}
