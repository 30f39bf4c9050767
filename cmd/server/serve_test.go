package main

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portfolio-site-api/internal/config"
)

func TestCheckJWTSecret(t *testing.T) {
	log := zap.NewNop()

	cases := []struct {
		name     string
		secret   string
		logLevel string
		wantErr  bool
	}{
		{name: "default secret refused", secret: config.DevJWTSecret, logLevel: "info", wantErr: true},
		{name: "empty secret refused", secret: "", logLevel: "warn", wantErr: true},
		{name: "default secret allowed in debug", secret: config.DevJWTSecret, logLevel: "debug"},
		{name: "configured secret", secret: "a-long-random-production-secret", logLevel: "info"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{
				Server: config.ServerConfig{LogLevel: tc.logLevel},
				Auth:   config.AuthConfig{JWTSecret: tc.secret},
			}
			err := checkJWTSecret(cfg, log)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCheckJWTSecret_RefusesLoadedDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Error(t, checkJWTSecret(cfg, zap.NewNop()))
}
