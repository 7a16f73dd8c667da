//go:build integration

package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/garage-invoices/internal/config"
	"github.com/diewo77/garage-invoices/internal/db"
	"github.com/diewo77/garage-invoices/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("garage_test"),
		postgres.WithUsername("garage"),
		postgres.WithPassword("garage"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	conn, err := db.Open(ctx, config.DatabaseConfig{Driver: config.DriverPostgres, DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })
	require.NoError(t, db.MigrateSQL(conn, config.DriverPostgres))
	return conn
}

type findOrCreateResult struct {
	id      uint
	created bool
	err     error
}

func TestPostgres_FindOrCreateClientConcurrent(t *testing.T) {
	conn := setupPostgres(t)
	svc := NewClientService(conn)
	req := ClientRequest{Name: "João Silva", Phone: "11999990000"}

	const workers = 16
	start := make(chan struct{})
	results := make(chan findOrCreateResult, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			id, created, err := svc.FindOrCreateClient(context.Background(), req)
			results <- findOrCreateResult{id, created, err}
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	ids := map[uint]bool{}
	createdCount := 0
	for r := range results {
		require.NoError(t, r.err)
		ids[r.id] = true
		if r.created {
			createdCount++
		}
	}
	assert.Len(t, ids, 1)
	assert.Equal(t, 1, createdCount)
	assert.EqualValues(t, 1, countRows(t, conn.Where("name = ? AND phone = ?", req.Name, req.Phone), &models.Client{}))
}

// An insert that collides with a transaction committing the same pair falls
// back to the committed row.
func TestPostgres_FindOrCreateClientLosesInsertRace(t *testing.T) {
	conn := setupPostgres(t)
	svc := NewClientService(conn)
	req := ClientRequest{Name: "Ana Costa", Phone: "21988887777"}

	tests := []struct {
		name        string
		commit      bool
		wantCreated bool
	}{
		{"other transaction commits", true, false},
		{"other transaction rolls back", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.Where("name = ? AND phone = ?", req.Name, req.Phone).Delete(&models.Client{}).Error)

			other := conn.Begin()
			require.NoError(t, other.Error)
			winner := models.Client{Name: req.Name, Phone: req.Phone}
			require.NoError(t, other.Create(&winner).Error)

			done := make(chan findOrCreateResult, 1)
			go func() {
				id, created, err := svc.FindOrCreateClient(context.Background(), req)
				done <- findOrCreateResult{id, created, err}
			}()

			// Let the insert block on the unique index held by the open transaction.
			time.Sleep(300 * time.Millisecond)
			if tt.commit {
				require.NoError(t, other.Commit().Error)
			} else {
				require.NoError(t, other.Rollback().Error)
			}

			var r findOrCreateResult
			select {
			case r = <-done:
			case <-time.After(10 * time.Second):
				t.Fatal("FindOrCreateClient did not return")
			}
			require.NoError(t, r.err)
			assert.Equal(t, tt.wantCreated, r.created)
			if tt.commit {
				assert.Equal(t, winner.ID, r.id)
			}
			assert.EqualValues(t, 1, countRows(t, conn.Where("name = ? AND phone = ?", req.Name, req.Phone), &models.Client{}))
		})
	}
}
