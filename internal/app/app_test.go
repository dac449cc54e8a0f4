package app

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/toychat/internal/config"
)

func TestNewSeedsRooms(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = config.DriverMemory
	cfg.SeedRooms = []string{"general", "random"}
	logger := zerolog.Nop()

	a, err := New(context.Background(), &cfg, &logger)
	require.NoError(t, err)
	t.Cleanup(a.cleanup)

	for _, room := range cfg.SeedRooms {
		_, err := a.store.GetRoom(context.Background(), room)
		assert.NoError(t, err, room)
	}

	ts := httptest.NewServer(a.Handler())
	defer ts.Close()
	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestNewSQLiteAndBadger(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.Nop()

	for _, driver := range []string{config.DriverSQLite, config.DriverBadger} {
		cfg := config.Default()
		cfg.Storage.Driver = driver
		cfg.Storage.SQLitePath = dir + "/toychat.db"
		cfg.Storage.BadgerDir = dir + "/badger"
		cfg.SeedRooms = []string{"general"}

		a, err := New(context.Background(), &cfg, &logger)
		require.NoError(t, err, driver)
		_, err = a.store.GetRoom(context.Background(), "general")
		assert.NoError(t, err, driver)
		a.cleanup()
	}
}

func TestNewUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "etcd"
	logger := zerolog.Nop()

	_, err := New(context.Background(), &cfg, &logger)
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.Storage.Driver = config.DriverMemory
	logger := zerolog.Nop()

	a, err := New(context.Background(), &cfg, &logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}
