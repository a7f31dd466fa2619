// Package cache はRedisをバックエンドとする文字列キーバリューストアを提供する。
// キャッシュはあくまで補助的な存在であり、エントリの有無・生存が
// システムの正しさに影響してはならない。
package cache

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Options はRedis接続の設定。
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Client はredis.Clientの薄いラッパー。
// 集約キャッシュが必要とするget/set/deleteのみを公開する。
type Client struct {
	rdb *redis.Client
}

// NewClient は新しいRedisクライアントを生成する。
// 接続確認にはPingを使用すること。
func NewClient(opts Options) *Client {
	return &Client{
		rdb: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
	}
}

// Ping はRedisサーバーへの疎通を確認する。
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Get は指定キーの値を取得する。
// キーが存在しない場合は("", false, nil)を返す。
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}
	return val, true, nil
}

// Set は指定キーに値を書き込む。TTLは設定しない。
// 同一キーへの並行書き込みはlast write winsとなる。
func (c *Client) Set(ctx context.Context, key, value string) error {
	if err := c.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

// Delete は指定キーを削除する。キーが存在しなくてもエラーにはならない。
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys %v: %w", keys, err)
	}
	return nil
}

// Close は接続を閉じる。
func (c *Client) Close() error {
	return c.rdb.Close()
}
