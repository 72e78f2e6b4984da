/*
Copyright 2026 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// This file provides a redis history store.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
	uredis "github.com/llm-d-incubation/chat-engine/internal/util/redis"
)

const (
	keysPrefix         = "chat_engine:"
	historyKeysPrefix  = keysPrefix + "history:"
	defaultCmdTimeout  = 5 * time.Second
	redisClientNameSuf = "-history"
)

// RedisStore keeps each conversation as a redis list of JSON encoded exchanges.
// RPUSH is atomic, so concurrent appends never interleave within an exchange.
type RedisStore struct {
	redisClient        *goredis.Client
	redisClientChecker *uredis.RedisClientChecker
	timeout            time.Duration
	ttl                time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to redis. A positive ttl refreshes the conversation expiry on every append.
func NewRedisStore(ctx context.Context, conf *uredis.RedisClientConfig, ttl time.Duration) (*RedisStore, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := klog.FromContext(ctx)
	if conf == nil {
		err := fmt.Errorf("empty redis config")
		logger.Error(err, "NewRedisStore:")
		return nil, err
	}
	cnf := *conf
	cnf.ServiceName += redisClientNameSuf
	redisClient, err := uredis.NewRedisClient(ctx, &cnf)
	if err != nil {
		return nil, err
	}
	logger.Info("NewRedisStore: succeeded", "serviceName", cnf.ServiceName)
	return newRedisStore(redisClient, conf.Timeout, ttl, cnf.ServiceName), nil
}

func newRedisStore(redisClient *goredis.Client, timeout, ttl time.Duration, serviceName string) *RedisStore {
	if timeout <= 0 {
		timeout = defaultCmdTimeout
	}
	return &RedisStore{
		redisClient:        redisClient,
		redisClientChecker: uredis.NewRedisClientChecker(redisClient, keysPrefix, serviceName, timeout),
		timeout:            timeout,
		ttl:                ttl,
	}
}

func (c *RedisStore) Get(ctx context.Context, conversationID string) ([]chat.Exchange, error) {
	logger := klog.FromContext(ctx).WithValues("conversationId", conversationID)
	cctx, ccancel := context.WithTimeout(ctx, c.timeout)
	vals, err := c.redisClient.LRange(cctx, getKeyForHistory(conversationID), 0, -1).Result()
	ccancel()
	if err != nil {
		logger.Error(err, "Get: LRange failed")
		return nil, err
	}
	exchanges := make([]chat.Exchange, 0, len(vals))
	for i, val := range vals {
		var exchange chat.Exchange
		if err := json.Unmarshal([]byte(val), &exchange); err != nil {
			err = fmt.Errorf("decode exchange %d: %w", i, err)
			logger.Error(err, "Get:")
			return nil, err
		}
		exchanges = append(exchanges, exchange)
	}
	logger.V(4).Info("Get: succeeded", "exchanges", len(exchanges))
	return exchanges, nil
}

func (c *RedisStore) Append(ctx context.Context, exchange chat.Exchange) error {
	if err := validate(exchange); err != nil {
		return err
	}
	logger := klog.FromContext(ctx).WithValues("conversationId", exchange.ConversationID)
	val, err := json.Marshal(exchange)
	if err != nil {
		logger.Error(err, "Append: encode failed")
		return err
	}
	key := getKeyForHistory(exchange.ConversationID)
	cctx, ccancel := context.WithTimeout(ctx, c.timeout)
	_, err = c.redisClient.Pipelined(cctx, func(pipe goredis.Pipeliner) error {
		pipe.RPush(cctx, key, val)
		if c.ttl > 0 {
			pipe.Expire(cctx, key, c.ttl)
		}
		return nil
	})
	ccancel()
	if err != nil {
		logger.Error(err, "Append: Pipelined failed")
		return err
	}
	logger.V(4).Info("Append: succeeded", "messages", len(exchange.Messages))
	return nil
}

func (c *RedisStore) Clear(ctx context.Context, conversationID string) error {
	cctx, ccancel := context.WithTimeout(ctx, c.timeout)
	defer ccancel()
	if err := c.redisClient.Del(cctx, getKeyForHistory(conversationID)).Err(); err != nil {
		klog.FromContext(ctx).Error(err, "Clear: Del failed", "conversationId", conversationID)
		return err
	}
	return nil
}

// Check reports whether the backing redis accepts writes.
func (c *RedisStore) Check(ctx context.Context) error {
	return c.redisClientChecker.Check(ctx)
}

func (c *RedisStore) Close() (err error) {
	if c.redisClient != nil {
		err = c.redisClient.Close()
	}
	return err
}

func getKeyForHistory(conversationID string) string {
	return historyKeysPrefix + conversationID
}
