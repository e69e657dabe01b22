// Package client opens the object store selected by the CLI configuration
// and builds a changeset client over it.
package client

import (
	"context"
	"fmt"

	"github.com/grafana/changeset"
	"github.com/grafana/changeset/cli/internal/config"
	"github.com/grafana/changeset/log"
	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/objectstore/gitcli"
	"github.com/grafana/changeset/objectstore/gogit"
	"github.com/grafana/changeset/objectstore/kvstore"
	"github.com/grafana/changeset/serial"
	"github.com/grafana/changeset/storage"
	"github.com/grafana/changeset/storage/badgerkv"
	"github.com/grafana/changeset/storage/boltkv"
	"github.com/grafana/changeset/storage/rediskv"
)

// OpenStore opens the store of cfg.Backend. The returned function releases
// it and is never nil.
func OpenStore(ctx context.Context, cfg *config.Config) (objectstore.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendGit:
		s, err := gitcli.Open(ctx, cfg.Repo)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case config.BackendGoGit:
		s, err := gogit.Open(cfg.Repo)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	}

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, noop, err
	}
	s, err := kvstore.New(backend)
	if err != nil {
		_ = backend.Close()
		return nil, noop, err
	}
	return s, s.Close, nil
}

func openBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendBolt:
		return boltkv.Open(cfg.Repo)
	case config.BackendBadger:
		return badgerkv.Open(cfg.Repo)
	case config.BackendRedis:
		return rediskv.Dial(ctx, rediskv.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Namespace: cfg.Redis.Namespace,
		})
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// New builds a changeset client over store. Writes through the returned
// client are serialized per changeset.
func New(store objectstore.Store, cfg *config.Config, logger log.Logger) (changeset.Client, error) {
	opts := []changeset.Option{changeset.WithLogger(logger)}
	if cfg.HasAuthor() {
		opts = append(opts, changeset.WithAuthor(changeset.Author{Name: cfg.AuthorName, Email: cfg.AuthorEmail}))
	}
	if cfg.Shadow {
		opts = append(opts, changeset.WithShadowWrites())
	}

	c, err := changeset.NewClient(store, opts...)
	if err != nil {
		return nil, err
	}
	return serial.Wrap(c), nil
}
