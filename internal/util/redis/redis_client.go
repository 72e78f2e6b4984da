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

// Package redis builds the go-redis clients used by the history store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gredis "github.com/redis/go-redis/v9"
	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/chat-engine/internal/util/logging"
	utls "github.com/llm-d-incubation/chat-engine/internal/util/tls"
)

const (
	pingTimeout         = 10 * time.Second
	probeKeyTTL         = 10 * time.Second
	defaultProbeTimeout = time.Second
)

var ErrReadOnlyReplica = errors.New("redis server is a read-only replica")

type RedisClientConfig struct {
	Url         string      `json:"url" yaml:"url"`
	DbIdx       int         `json:"db" yaml:"db"`
	EnableTLS   bool        `json:"enable_tls" yaml:"enable_tls"`
	TLS         utls.Config `json:"tls" yaml:"tls"`
	ServiceName string      `json:"service_name" yaml:"service_name"`
	// Timeout bounds dial, read and write on the socket.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// MaxRetries of -1 disables go-redis command retries; 0 keeps its default.
	MaxRetries      int           `json:"max_retries" yaml:"max_retries"`
	MinRetryBackoff time.Duration `json:"min_retry_backoff" yaml:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `json:"max_retry_backoff" yaml:"max_retry_backoff"`
	PoolTimeout     time.Duration `json:"pool_timeout" yaml:"pool_timeout"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`
}

// Options translates the config into go-redis options. Zero values keep the
// go-redis defaults, except that context deadlines are always honoured.
func (c *RedisClientConfig) Options() (*gredis.Options, error) {
	if c == nil {
		return nil, fmt.Errorf("redis config was not provided")
	}
	if c.Url == "" {
		return nil, fmt.Errorf("redis config has empty url")
	}
	opts, err := gredis.ParseURL(c.Url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.ClientName == "" {
		opts.ClientName = clientName(c.ServiceName)
	}
	if c.DbIdx > 0 {
		opts.DB = c.DbIdx
	}
	setDuration(&opts.DialTimeout, c.Timeout)
	setDuration(&opts.ReadTimeout, c.Timeout)
	setDuration(&opts.WriteTimeout, c.Timeout)
	setDuration(&opts.MinRetryBackoff, c.MinRetryBackoff)
	setDuration(&opts.MaxRetryBackoff, c.MaxRetryBackoff)
	setDuration(&opts.PoolTimeout, c.PoolTimeout)
	setDuration(&opts.ConnMaxIdleTime, c.ConnMaxIdleTime)
	if c.MaxRetries != 0 {
		opts.MaxRetries = c.MaxRetries
	}
	opts.ContextTimeoutEnabled = true

	if c.EnableTLS {
		tlsConfig, err := c.TLS.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("redis tls: %w", err)
		}
		if tlsConfig != nil {
			opts.TLSConfig = tlsConfig
		}
	}
	return opts, nil
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

// NewRedisClient builds a client from cnf and pings the server before returning it.
func NewRedisClient(ctx context.Context, cnf *RedisClientConfig) (*gredis.Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := klog.FromContext(ctx)
	opts, err := cnf.Options()
	if err != nil {
		logger.Error(err, "NewRedisClient:")
		return nil, err
	}
	rds := gredis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rds.Ping(pctx).Err(); err != nil {
		logger.Error(err, "NewRedisClient: ping failed", "addr", opts.Addr)
		_ = rds.Close()
		return nil, err
	}
	logger.Info("NewRedisClient: connected", "addr", opts.Addr, "clientName", opts.ClientName)
	return rds, nil
}

// clientName is <service>-<host>-<pid>-<random> so CLIENT LIST shows who holds a connection.
func clientName(serviceName string) string {
	hostname, _ := os.Hostname()
	parts := make([]string, 0, 4)
	if serviceName != "" {
		parts = append(parts, serviceName)
	}
	parts = append(parts, hostname, fmt.Sprint(os.Getpid()), strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return strings.Join(parts, "-")
}

// CheckClient verifies the server accepts writes and is not a replica.
func CheckClient(ctx context.Context, rds *gredis.Client, cmdTimeout time.Duration, keyPrefix, serviceName string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := klog.FromContext(ctx)
	probes := []struct {
		name string
		run  func(ctx context.Context) error
	}{
		{"write", func(ctx context.Context) error {
			return rds.Set(ctx, probeKey(keyPrefix, serviceName), "ping", probeKeyTTL).Err()
		}},
		{"role", func(ctx context.Context) error {
			info, err := rds.Info(ctx, "replication").Result()
			if err != nil {
				return err
			}
			if strings.Contains(info, "role:slave") {
				return ErrReadOnlyReplica
			}
			return nil
		}},
	}
	for _, p := range probes {
		pctx, cancel := context.WithTimeout(ctx, cmdTimeout)
		err := p.run(pctx)
		cancel()
		if err != nil {
			err = fmt.Errorf("%s probe: %w", p.name, err)
			logger.Error(err, "CheckClient:")
			return err
		}
	}
	logger.V(logging.TRACE).Info("CheckClient: healthy")
	return nil
}

func probeKey(prefix, serviceName string) string {
	return prefix + "ping:" + serviceName + ":" + time.Now().Format("20060102150405")
}

// RedisClientChecker serialises health checks against one client.
type RedisClientChecker struct {
	mu          sync.Mutex
	rds         *gredis.Client
	keyPrefix   string
	serviceName string
	cmdTimeout  time.Duration
}

func NewRedisClientChecker(rds *gredis.Client, keyPrefix, serviceName string, cmdTimeout time.Duration) *RedisClientChecker {
	if cmdTimeout <= 0 {
		cmdTimeout = defaultProbeTimeout
	}
	return &RedisClientChecker{rds: rds, keyPrefix: keyPrefix, serviceName: serviceName, cmdTimeout: cmdTimeout}
}

func (r *RedisClientChecker) Check(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return CheckClient(ctx, r.rds, r.cmdTimeout, r.keyPrefix, r.serviceName)
}
