package policysource

import (
	"context"
	"log/slog"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/faultline/internal/domain/faultpolicy"
)

// RedisSource loads a JSON policy from a Redis key and watches a Pub/Sub
// channel for change notifications; every message triggers a reload of the
// key, so publishers only need to touch the channel after writing.
type RedisSource struct {
	client  redis.UniversalClient
	key     string
	channel string
	logger  *slog.Logger
}

func NewRedisSource(client redis.UniversalClient, key, channel string, logger *slog.Logger) (*RedisSource, error) {
	if client == nil {
		return nil, crerr.New("redis client is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, crerr.New("policy redis key is required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = key + ":changed"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RedisSource{
		client:  client,
		key:     key,
		channel: channel,
		logger:  logger,
	}, nil
}

func (s *RedisSource) Load(ctx context.Context) (faultpolicy.Policy, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		return faultpolicy.Policy{}, crerr.Wrapf(err, "get policy key %s", s.key)
	}

	policy, err := decodePolicy(raw, formatJSON)
	if err != nil {
		return faultpolicy.Policy{}, crerr.Wrapf(err, "policy key %s", s.key)
	}

	return policy, nil
}

func (s *RedisSource) Watch(ctx context.Context, onChange func(faultpolicy.Policy)) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer func() {
		_ = sub.Close()
	}()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ch:
			if !ok {
				return crerr.Newf("policy subscription channel %s closed", s.channel)
			}
		}

		policy, err := s.Load(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "policy reload from redis rejected",
				"key", s.key, "channel", s.channel, "error", err)
			continue
		}

		s.logger.InfoContext(ctx, "policy changed via redis", "key", s.key, "channel", s.channel)
		onChange(policy)
	}
}
