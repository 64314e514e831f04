// Package storage keeps the original uploaded files.
package storage

import (
	"context"
	"errors"
	"fmt"

	"trustbooks/pkg/config"

	"go.uber.org/zap"
)

var ErrObjectNotFound = errors.New("object not found")

type Storage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	Close() error
}

// New opens the backend selected by cfg.Driver.
func New(cfg *config.StorageConfig, logger *zap.Logger) (Storage, error) {
	switch cfg.Driver {
	case "s3":
		s, err := NewS3Storage(cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "badger":
		b, err := NewBadgerStorage(cfg.BadgerDir, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
