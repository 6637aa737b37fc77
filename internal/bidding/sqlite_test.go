package bidding_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bidmarket/db"
	"bidmarket/db/migrations"
	"bidmarket/internal/bidding"
	"bidmarket/models"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Тот же сценарий гонки, но с настоящим условным UPDATE в sqlite
func TestChangeBidStatus_ConcurrentAcceptWithSQLite(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, filepath.Join(t.TempDir(), "bids.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrations.Run(conn.DB, db.DriverSQLite, goose.NopLogger()))

	store := db.NewStorage(conn)
	c := bidding.NewCoordinator(store, bidding.Config{
		StoreTimeout: 5 * time.Second,
		MaxRetries:   5,
		RetryDelay:   time.Millisecond,
	}, bidding.WithLogger(quietLogger()))

	job, err := c.PostJob(ctx, testJob())
	require.NoError(t, err)
	require.True(t, job.Accepted())

	bid, err := c.SubmitBid(ctx, submission(job.Value.ID, 500))
	require.NoError(t, err)
	require.True(t, bid.Accepted())

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := c.ChangeBidStatus(ctx, bid.Value.ID, "buyer@example.com", models.BidInProgress)
			if !assert.NoError(t, err) {
				return
			}
			if out.Accepted() {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.Equal(t, bidding.ReasonInvalidTransition, out.Rejection.Reason)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, accepted)

	stored, err := store.GetBid(ctx, bid.Value.ID)
	require.NoError(t, err)
	require.Equal(t, models.BidInProgress, stored.Status)
	require.Equal(t, 2, stored.Version)

	bids, err := c.ListBidsForBuyer(ctx, "buyer@example.com", bidding.Page{Limit: 5})
	require.NoError(t, err)
	require.Len(t, bids, 1)
}
