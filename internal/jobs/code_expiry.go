package jobs

import (
	"context"
	"log"
	"time"

	"aula/server/internal/config"
	"aula/server/internal/repository"
)

// StartCodeExpiryJob sweeps course QR codes past their expiry on a
// ticker, flipping the active flag off. Redis entries expire on their
// own TTL; this keeps the Postgres records consistent.
func StartCodeExpiryJob(ctx context.Context, cfg config.Config, store *repository.Store) {
	if !cfg.CodeExpiryJobEnabled {
		return
	}
	interval := cfg.CodeExpiryJobInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	timeout := cfg.CodeExpiryJobTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, timeout)
				count, err := store.DeactivateExpiredCodes(tickCtx, time.Now().UTC())
				cancel()
				if err != nil {
					log.Printf("code expiry job error: %v", err)
					continue
				}
				if count > 0 {
					log.Printf("code expiry job deactivated %d codes", count)
				}
			}
		}
	}()
}
