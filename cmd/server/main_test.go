package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/campusnet/internal/auth"
	"github.com/vedran77/campusnet/internal/config"
	"github.com/vedran77/campusnet/internal/logging"
	"github.com/vedran77/campusnet/internal/repository"
)

func TestOriginPatterns(t *testing.T) {
	assert.Equal(t, []string{"localhost:5173"}, originPatterns("http://localhost:5173"))
	assert.Equal(t, []string{"*"}, originPatterns("*"))
	assert.Equal(t, []string{"*"}, originPatterns(""))
	assert.Equal(t, []string{"campus.example"}, originPatterns("campus.example"))
}

func TestOpenStore_Memory(t *testing.T) {
	cfg := &config.Config{StorageDriver: config.DriverMemory}
	exec, cleanup, err := openStore(context.Background(), cfg, logging.Discard(), auth.NewTokens("secret"))
	require.NoError(t, err)
	defer cleanup()

	var count int
	err = exec.RunUnscoped(context.Background(), func(ctx context.Context, repos repository.Repositories) error {
		for _, p := range demoProfiles {
			ok, err := repos.Profiles.Exists(ctx, p.Identity)
			if err != nil {
				return err
			}
			if ok {
				count++
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, len(demoProfiles), count)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, _, err := openStore(context.Background(), &config.Config{StorageDriver: "sqlite"}, logging.Discard(), auth.NewTokens("secret"))
	assert.ErrorContains(t, err, "unknown STORAGE_DRIVER")
}
