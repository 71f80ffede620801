package output

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nicwaller/gelf"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisStream = "gelf"

type RedisOptions struct {
	// URL as accepted by redis.ParseURL, e.g. redis://localhost:6379/0
	URL    string
	Stream string
	// MaxLen caps the stream approximately; zero means unbounded.
	MaxLen   int64
	Compress bool
	Timeout  time.Duration
}

// Redis publishes each payload as one stream entry. Entries are never
// chunked; a consumer reads whole messages.
func Redis(ctx context.Context, opts RedisOptions) (gelf.Sender, error) {
	redisOpts, err := redis.ParseURL(gelf.CoalesceStr(opts.URL, "redis://localhost:6379/0"))
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	redisOpts.DialTimeout = opts.Timeout
	redisOpts.WriteTimeout = opts.Timeout
	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &redisOutput{
		opts:   opts,
		stream: gelf.CoalesceStr(opts.Stream, DefaultRedisStream),
		client: client,
	}, nil
}

type redisOutput struct {
	opts   RedisOptions
	stream string
	client *redis.Client
}

func (p *redisOutput) Send(ctx context.Context, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"message_id": uuid.NewString(),
			"persistent": 1,
			"payload":    payload,
		},
	}
	if p.opts.MaxLen > 0 {
		args.MaxLen = p.opts.MaxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis XADD to %s failed: %w", p.stream, err)
	}
	return nil
}

func (p *redisOutput) Compressed() bool {
	return p.opts.Compress
}

func (p *redisOutput) Close() error {
	return p.client.Close()
}
