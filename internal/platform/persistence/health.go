package persistence

import (
	"context"
	"sync"
	"time"
)

// Pinger is a store that can report whether it is reachable.
// *PostgresDB and *MongoDB implement it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckStores pings every store concurrently, each bounded by timeout.
// The report maps store name to "ok" or the ping error; ready is false when
// any store failed.
func CheckStores(ctx context.Context, timeout time.Duration, stores map[string]Pinger) (report map[string]string, ready bool) {
	report = make(map[string]string, len(stores))
	ready = true

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, store := range stores {
		wg.Add(1)
		go func(name string, store Pinger) {
			defer wg.Done()
			pingCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			status := "ok"
			if err := store.Ping(pingCtx); err != nil {
				status = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			report[name] = status
			if status != "ok" {
				ready = false
			}
		}(name, store)
	}
	wg.Wait()
	return report, ready
}
