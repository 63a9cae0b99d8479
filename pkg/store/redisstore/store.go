// Package redisstore 以 wire 编码保存值的 Redis 存储。
package redisstore

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-redis/redis/v8"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/lk2023060901/wirecodec/pkg/log"
	"github.com/lk2023060901/wirecodec/pkg/util/merr"
	"github.com/lk2023060901/wirecodec/pkg/wire"
)

// Store 把 wire 编码后的值写入 Redis，所有 key 都带上统一前缀。
// 可并发使用。
type Store struct {
	rdb    *redis.Client
	prefix string
	cfg    wire.Config
}

// Options 为 Store 的构造参数。
type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix 会拼接在每个 key 之前，例如 "wirecodec:"。
	Prefix string
	Config wire.Config
}

// New 使用已有的 Redis 客户端创建 Store。
func New(rdb *redis.Client, prefix string, cfg wire.Config) (*Store, error) {
	if rdb == nil {
		return nil, merr.WrapErrParameterInvalidMsg("redisstore: client is nil")
	}
	return &Store{rdb: rdb, prefix: prefix, cfg: cfg}, nil
}

// Open 按 Options 建立 Redis 连接并确认可用。
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, merr.WrapErrParameterInvalidMsg("redisstore: addr is empty")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, merr.WrapErrServiceUnavailable(opts.Addr, err.Error())
	}
	log.Ctx(ctx).Info("redis store opened", zap.String("addr", opts.Addr), zap.String("prefix", opts.Prefix))
	return New(rdb, opts.Prefix, opts.Config)
}

// Client 返回底层 Redis 客户端。
func (s *Store) Client() *redis.Client {
	return s.rdb
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) keys(ks []string) []string {
	return lo.Map(ks, func(k string, _ int) string { return s.key(k) })
}

// Put 编码 v 并写入 key，ttl 为 0 表示不过期。
func (s *Store) Put(ctx context.Context, key string, v wire.Encoder, ttl time.Duration) error {
	data, err := s.cfg.Encode(ctx, v)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		return merr.WrapErrIo(err, "redis set "+key)
	}
	return nil
}

// Get 读取 key 并解码到 out，key 不存在时返回 merr.ErrIoKeyNotFound。
func (s *Store) Get(ctx context.Context, key string, out wire.Decoder) error {
	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return merr.WrapErrIoKeyNotFound(key)
		}
		return merr.WrapErrIo(err, "redis get "+key)
	}
	return s.cfg.Decode(ctx, data, out)
}

// PutMulti 在一个 pipeline 中批量写入，keys 与 values 必须等长。
func (s *Store) PutMulti(ctx context.Context, keys []string, values []wire.Encoder, ttl time.Duration) error {
	if len(keys) != len(values) {
		return merr.WrapErrParameterInvalid(len(keys), len(values), "redisstore: keys and values differ in length")
	}
	if len(keys) == 0 {
		return nil
	}

	pairs := make([]any, 0, len(keys)*2)
	for i, k := range keys {
		data, err := s.cfg.Encode(ctx, values[i])
		if err != nil {
			return errors.Wrapf(err, "encode %s", k)
		}
		pairs = append(pairs, s.key(k), data)
	}

	pipe := s.rdb.TxPipeline()
	pipe.MSet(ctx, pairs...)
	if ttl > 0 {
		for _, k := range keys {
			pipe.Expire(ctx, s.key(k), ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return merr.WrapErrIo(err, "redis mset")
	}
	return nil
}

// GetMulti 批量读取并解码，不存在的 key 不出现在结果中。
func GetMulti[T any, PT interface {
	*T
	wire.Decoder
}](ctx context.Context, s *Store, keys []string) (map[string]T, error) {
	out := make(map[string]T, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	results, err := s.rdb.MGet(ctx, s.keys(keys)...).Result()
	if err != nil {
		return nil, merr.WrapErrIo(err, "redis mget")
	}
	for i, res := range results {
		if res == nil {
			continue
		}
		str, ok := res.(string)
		if !ok {
			return nil, merr.WrapErrParameterInvalid("string", res, "redis mget "+keys[i])
		}
		var v T
		if err := s.cfg.Decode(ctx, []byte(str), PT(&v)); err != nil {
			return nil, errors.Wrapf(err, "decode %s", keys[i])
		}
		out[keys[i]] = v
	}
	return out, nil
}

// Delete 删除给定的 key，返回实际删除的数量。
func (s *Store) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.rdb.Del(ctx, s.keys(keys)...).Result()
	if err != nil {
		return 0, merr.WrapErrIo(err, "redis del")
	}
	return n, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, merr.WrapErrIo(err, "redis exists "+key)
	}
	return n > 0, nil
}
