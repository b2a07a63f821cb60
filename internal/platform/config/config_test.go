// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/shiftsphere/internal/platform/config"
)

/*
TestLoad_Defaults checks defaults with the minimum required environment.
*/
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "b")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.True(t, cfg.RevealUnknownEmail)
	assert.Equal(t, "bcrypt", cfg.PasswordHasher)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins())
}

/*
TestLoad_Invalid covers cross-field validation failures.
*/
func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing_secrets", map[string]string{"STORE_DRIVER": "memory"}},
		{"same_secrets", map[string]string{"JWT_ACCESS_SECRET": "x", "JWT_REFRESH_SECRET": "x", "STORE_DRIVER": "memory"}},
		{"postgres_without_url", map[string]string{"JWT_ACCESS_SECRET": "a", "JWT_REFRESH_SECRET": "b", "STORE_DRIVER": "postgres"}},
		{"mongo_without_uri", map[string]string{"JWT_ACCESS_SECRET": "a", "JWT_REFRESH_SECRET": "b", "STORE_DRIVER": "mongo"}},
		{"unknown_driver", map[string]string{"JWT_ACCESS_SECRET": "a", "JWT_REFRESH_SECRET": "b", "STORE_DRIVER": "sqlite"}},
		{"memory_in_production", map[string]string{"JWT_ACCESS_SECRET": "a", "JWT_REFRESH_SECRET": "b", "STORE_DRIVER": "memory", "ENVIRONMENT": "production", "SMTP_HOST": "smtp"}},
		{"half_admin", map[string]string{"JWT_ACCESS_SECRET": "a", "JWT_REFRESH_SECRET": "b", "STORE_DRIVER": "memory", "ADMIN_EMAIL": "root@x.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				t.Setenv(key, value)
			}
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
