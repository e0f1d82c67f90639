package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("SLIDEKIT_TEST_HOST", "db.internal")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"env set wins over default", "${SLIDEKIT_TEST_HOST:localhost}", "db.internal"},
		{"default used when unset", "${SLIDEKIT_TEST_MISSING:fallback}", "fallback"},
		{"empty default allowed", "${SLIDEKIT_TEST_MISSING:}", ""},
		{"no default keeps placeholder", "${SLIDEKIT_TEST_MISSING}", "${SLIDEKIT_TEST_MISSING}"},
		{"plain text untouched", "host: localhost", "host: localhost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnv(tt.in))
		})
	}
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "slidekit-ai-api", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	assert.Equal(t, 3, cfg.Messaging.RedisStream.RetryLimit)
	assert.Equal(t, 40, cfg.Brainstorm.MaxHistoryTurns)
	assert.Equal(t, 3, cfg.Brainstorm.MinSlides)
	assert.Equal(t, "/metrics", cfg.Observability.Metrics.Path)
	assert.True(t, cfg.Security.RateLimit.Enabled)
}
