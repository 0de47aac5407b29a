package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/topfive-api/pkg/config"
)

func TestNewReportsUnreachableDatabase(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Host:    "127.0.0.1",
			Port:    1,
			User:    "postgres",
			Name:    "topfive",
			SSLMode: "disable",
		},
	}

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, a)
	assert.Contains(t, err.Error(), "connect postgres")
}

func TestCloseToleratesMissingConnections(t *testing.T) {
	a := &App{Logger: zap.NewNop()}
	assert.NotPanics(t, a.Close)
}
