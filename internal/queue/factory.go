package queue

import (
	"fmt"

	"trustbooks/pkg/config"

	"go.uber.org/zap"
)

// New builds the dispatcher selected by cfg.Driver. With the redis driver the
// returned dispatcher is already consuming.
func New(cfg *config.QueueConfig, handler Handler, logger *zap.Logger) (Dispatcher, error) {
	local, err := NewPoolDispatcher(cfg.Workers, cfg.MaxPending, handler, logger)
	if err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case "", "memory":
		return local, nil
	case "redis":
		client, err := NewRedisClient(cfg)
		if err != nil {
			local.pool.Release()
			return nil, err
		}
		d := NewRedisDispatcher(client, cfg.RedisKey, local, logger)
		d.Start()
		return d, nil
	default:
		local.pool.Release()
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Driver)
	}
}
