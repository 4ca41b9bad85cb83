package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"pagebuilder/internal/config"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/remote"
	"pagebuilder/internal/secret"
	"pagebuilder/internal/staging"
	"pagebuilder/internal/storage"
)

// Backend is a staging backend that holds a connection.
type Backend interface {
	staging.Backend
	Close() error
}

// Fingerprinter is implemented by backends that can cheaply report when
// a staging page last changed. The desktop watcher polls it.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, slug string) (int64, error)
}

// OpenBackend connects to the backend named by cfg.Driver. The password or
// API token, when configured, is read from secrets.
func OpenBackend(ctx context.Context, cfg config.StorageConfig, secrets secret.SecretStore) (Backend, error) {
	password, err := lookupSecret(secrets, cfg.PasswordSecret)
	if err != nil {
		return nil, err
	}
	params := storage.ConnParams{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Database: cfg.Database,
		Username: cfg.Username,
		SSLMode:  cfg.SSLMode,
	}

	switch cfg.Driver {
	case config.DriverSQLite, "":
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		db, err := storage.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		return storage.NewPageStore(db), nil

	case config.DriverPostgres:
		db, err := storage.Open(storage.DriverPostgres, storage.PostgresDSN(params, password))
		if err != nil {
			return nil, err
		}
		return storage.NewPageStore(db), nil

	case config.DriverMySQL:
		db, err := storage.Open(storage.DriverMySQL, storage.MySQLDSN(params, password))
		if err != nil {
			return nil, err
		}
		return storage.NewPageStore(db), nil

	case config.DriverMongoDB:
		return storage.OpenMongo(ctx, storage.MongoURI(cfg.URI, params, password), cfg.Database, cfg.Timeout)

	case config.DriverHTTP:
		var opts []remote.Option
		if password != "" {
			opts = append(opts, remote.WithToken(password))
		}
		return remote.New(cfg.BaseURL, cfg.Timeout, opts...), nil
	}
	return nil, fmt.Errorf("open backend: unknown driver %q", cfg.Driver)
}

// Translator returns the HTTP translator that goes with cfg, or nil when
// pages are not served by the HTTP backend.
func Translator(cfg config.StorageConfig, secrets secret.SecretStore) editor.Translator {
	if cfg.Driver != config.DriverHTTP {
		return nil
	}
	token, err := lookupSecret(secrets, cfg.PasswordSecret)
	if err != nil {
		return nil
	}
	var opts []remote.Option
	if token != "" {
		opts = append(opts, remote.WithToken(token))
	}
	return remote.NewTranslatorAt(cfg.BaseURL, cfg.Timeout, opts...)
}

func lookupSecret(secrets secret.SecretStore, key string) (string, error) {
	if key == "" || secrets == nil {
		return "", nil
	}
	v, err := secrets.Get(key)
	if err != nil {
		return "", fmt.Errorf("read secret %s: %w", key, err)
	}
	return string(v), nil
}
