package health

import (
	"context"
	"time"

	"meterr-hq/io/pkg/ledger"
)

// StoreCheck probes the usage ledger with a cheap aggregate query over a
// one-minute window. It exercises the same read path the usage API uses.
func StoreCheck(store ledger.Store) CheckFunc {
	return func(ctx context.Context) error {
		now := time.Now().UTC()
		_, err := store.Aggregate(ctx, "healthcheck", now.Add(-time.Minute), now)
		return err
	}
}
