package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"CHANGESET_REPO", "CHANGESET_BACKEND", "CHANGESET_AUTHOR_NAME", "CHANGESET_AUTHOR_EMAIL",
		"CHANGESET_SHADOW", "CHANGESET_LOG_LEVEL", "CHANGESET_JSON", "CHANGESET_RETRIES", "CHANGESET_REDIS_ADDR",
		"CHANGESET_REDIS_PASSWORD", "CHANGESET_REDIS_DB", "CHANGESET_REDIS_NAMESPACE",
		"GIT_AUTHOR_NAME", "GIT_AUTHOR_EMAIL",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnvironment(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)

		cfg := FromEnvironment()
		assert.Equal(t, ".", cfg.Repo)
		assert.Equal(t, BackendGit, cfg.Backend)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, "changeset:", cfg.Redis.Namespace)
		assert.Equal(t, 3, cfg.Retries)
		assert.False(t, cfg.Shadow)
		assert.False(t, cfg.HasAuthor())
	})

	t.Run("reads CHANGESET variables", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CHANGESET_REPO", "/data/repo.db")
		t.Setenv("CHANGESET_BACKEND", "Bolt")
		t.Setenv("CHANGESET_AUTHOR_NAME", "Jane")
		t.Setenv("CHANGESET_AUTHOR_EMAIL", "jane@example.com")
		t.Setenv("CHANGESET_SHADOW", "true")
		t.Setenv("CHANGESET_REDIS_DB", "3")

		cfg := FromEnvironment()
		assert.Equal(t, "/data/repo.db", cfg.Repo)
		assert.Equal(t, BackendBolt, cfg.Backend)
		assert.True(t, cfg.Shadow)
		assert.True(t, cfg.HasAuthor())
		assert.Equal(t, 3, cfg.Redis.DB)
	})

	t.Run("falls back to the git identity", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GIT_AUTHOR_NAME", "Git Author")
		t.Setenv("GIT_AUTHOR_EMAIL", "git@example.com")

		cfg := FromEnvironment()
		assert.Equal(t, "Git Author", cfg.AuthorName)
		assert.Equal(t, "git@example.com", cfg.AuthorEmail)
	})

	t.Run("ignores malformed numbers and booleans", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CHANGESET_SHADOW", "maybe")
		t.Setenv("CHANGESET_REDIS_DB", "three")

		cfg := FromEnvironment()
		assert.False(t, cfg.Shadow)
		assert.Zero(t, cfg.Redis.DB)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "git", cfg: Config{Repo: ".", Backend: BackendGit, Retries: 3}},
		{name: "unknown backend", cfg: Config{Repo: ".", Backend: "svn", Retries: 3}, wantErr: `unknown backend "svn"`},
		{name: "redis without address", cfg: Config{Backend: BackendRedis, Retries: 3}, wantErr: "CHANGESET_REDIS_ADDR"},
		{name: "redis", cfg: Config{Backend: BackendRedis, Redis: RedisConfig{Addr: "localhost:6379"}, Retries: 1}},
		{name: "bolt without path", cfg: Config{Backend: BackendBolt, Retries: 3}, wantErr: "needs a repository path"},
		{name: "no attempts", cfg: Config{Repo: ".", Backend: BackendGit}, wantErr: "CHANGESET_RETRIES must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
