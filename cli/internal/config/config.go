// Package config reads the changeset CLI settings from CHANGESET_*
// environment variables. Command-line flags override them.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Backend names an object store implementation.
type Backend string

const (
	// BackendGit runs the git binary against a repository with a work tree.
	BackendGit Backend = "git"
	// BackendGoGit opens the repository in process with go-git.
	BackendGoGit Backend = "go-git"
	// BackendBolt keeps objects and refs in a bbolt file.
	BackendBolt Backend = "bolt"
	// BackendBadger keeps objects and refs in a badger directory.
	BackendBadger Backend = "badger"
	// BackendRedis keeps objects and refs in redis.
	BackendRedis Backend = "redis"
)

// Backends lists every supported backend.
var Backends = []Backend{BackendGit, BackendGoGit, BackendBolt, BackendBadger, BackendRedis}

// Config aggregates the CLI settings.
type Config struct {
	// Repo is the repository directory for git and go-git, the database
	// path for bolt and badger.
	Repo    string
	Backend Backend

	AuthorName  string
	AuthorEmail string

	// Shadow makes edits accumulate on the shadow ref until promoted.
	Shadow   bool
	LogLevel string
	JSON     bool
	// Retries bounds the attempts made when a ref or index lock is busy.
	// 1 disables retrying.
	Retries int

	Redis RedisConfig
}

// RedisConfig selects the redis server of the redis backend.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
}

// FromEnvironment reads the configuration from the environment, applying
// defaults for unset variables.
func FromEnvironment() *Config {
	return &Config{
		Repo:        envDefault("CHANGESET_REPO", "."),
		Backend:     Backend(strings.ToLower(envDefault("CHANGESET_BACKEND", string(BackendGit)))),
		AuthorName:  envDefault("CHANGESET_AUTHOR_NAME", os.Getenv("GIT_AUTHOR_NAME")),
		AuthorEmail: envDefault("CHANGESET_AUTHOR_EMAIL", os.Getenv("GIT_AUTHOR_EMAIL")),
		Shadow:      envBool("CHANGESET_SHADOW", false),
		LogLevel:    envDefault("CHANGESET_LOG_LEVEL", "warn"),
		JSON:        envBool("CHANGESET_JSON", false),
		Retries:     envInt("CHANGESET_RETRIES", 3),
		Redis: RedisConfig{
			Addr:      os.Getenv("CHANGESET_REDIS_ADDR"),
			Password:  os.Getenv("CHANGESET_REDIS_PASSWORD"),
			DB:        envInt("CHANGESET_REDIS_DB", 0),
			Namespace: envDefault("CHANGESET_REDIS_NAMESPACE", "changeset:"),
		},
	}
}

// Validate reports settings no backend can run with.
func (c *Config) Validate() error {
	valid := false
	for _, b := range Backends {
		if c.Backend == b {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Backend == BackendRedis && c.Redis.Addr == "" {
		return fmt.Errorf("backend %s needs CHANGESET_REDIS_ADDR", c.Backend)
	}
	if c.Retries < 1 {
		return fmt.Errorf("CHANGESET_RETRIES must be at least 1, got %d", c.Retries)
	}
	if c.Repo == "" && c.Backend != BackendRedis {
		return fmt.Errorf("backend %s needs a repository path", c.Backend)
	}
	return nil
}

// HasAuthor reports whether edits can be committed.
func (c *Config) HasAuthor() bool {
	return c.AuthorName != "" && c.AuthorEmail != ""
}

func envDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}
