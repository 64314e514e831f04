package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"
)

// BadgerStorage keeps blobs in an embedded key-value store. Useful for
// single-node deployments and for the CLI.
type BadgerStorage struct {
	db     *badger.DB
	logger *zap.Logger
}

// NewBadgerStorage opens (or creates) the store in dir. An empty dir opens an
// in-memory store.
func NewBadgerStorage(dir string, logger *zap.Logger) (*BadgerStorage, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create badger dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{s: logger.Sugar()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	logger.Info("Badger storage opened", zap.String("dir", dir))
	return &BadgerStorage{db: db, logger: logger}, nil
}

func (b *BadgerStorage) Upload(ctx context.Context, key string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (b *BadgerStorage) Download(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrObjectNotFound
	}
	return out, err
}

func (b *BadgerStorage) Close() error {
	return b.db.Close()
}

type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(f string, v ...any)   { l.s.Errorf(f, v...) }
func (l *badgerLogger) Warningf(f string, v ...any) { l.s.Warnf(f, v...) }
func (l *badgerLogger) Infof(f string, v ...any)    { l.s.Debugf(f, v...) }
func (l *badgerLogger) Debugf(f string, v ...any)   { l.s.Debugf(f, v...) }
