package jobs

import (
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-reports/internal/platform/cache"
)

// RedisOpt converts REDIS_ADDR, host:port or a redis:// URL, into asynq
// connection options so the queue and the report cache share one setting.
func RedisOpt(addr string) (asynq.RedisClientOpt, error) {
	opts, err := cache.Options(addr)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}, nil
}
