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

package redis_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gredis "github.com/redis/go-redis/v9"

	"github.com/llm-d-incubation/chat-engine/internal/util/redis"
)

func TestRedisClient(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Redis Client Suite")
}

var redisUrl string

var _ = BeforeSuite(func() {
	redisUrl = os.Getenv("TEST_REDIS_URL")
	if redisUrl == "" {
		redisUrl = "redis://" + miniredis.RunT(GinkgoT()).Addr()
	}
})

var _ = Describe("Redis client options", func() {
	It("applies overrides and keeps go-redis defaults for zero values", func() {
		cnf := &redis.RedisClientConfig{
			Url:         "redis://localhost:6379/0",
			DbIdx:       3,
			ServiceName: "chat-engine",
			Timeout:     2 * time.Second,
			MaxRetries:  -1,
			PoolTimeout: 7 * time.Second,
		}
		opts, err := cnf.Options()
		Expect(err).NotTo(HaveOccurred())
		Expect(opts.Addr).To(Equal("localhost:6379"))
		Expect(opts.DB).To(Equal(3))
		Expect(opts.DialTimeout).To(Equal(2 * time.Second))
		Expect(opts.ReadTimeout).To(Equal(2 * time.Second))
		Expect(opts.WriteTimeout).To(Equal(2 * time.Second))
		Expect(opts.MaxRetries).To(Equal(-1))
		Expect(opts.PoolTimeout).To(Equal(7 * time.Second))
		Expect(opts.ConnMaxIdleTime).To(BeZero())
		Expect(opts.ContextTimeoutEnabled).To(BeTrue())
		Expect(opts.TLSConfig).To(BeNil())
		Expect(opts.ClientName).To(HavePrefix("chat-engine-"))
	})

	It("keeps a client name given in the url", func() {
		opts, err := (&redis.RedisClientConfig{Url: "redis://localhost:6379?client_name=fixed"}).Options()
		Expect(err).NotTo(HaveOccurred())
		Expect(opts.ClientName).To(Equal("fixed"))
	})

	It("rejects a missing config, an empty url and an unparsable url", func() {
		var nilConfig *redis.RedisClientConfig
		_, err := nilConfig.Options()
		Expect(err).To(HaveOccurred())
		_, err = (&redis.RedisClientConfig{}).Options()
		Expect(err).To(HaveOccurred())
		_, err = (&redis.RedisClientConfig{Url: "http://localhost:6379"}).Options()
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Redis client", func() {
	var rds *gredis.Client

	BeforeEach(func() {
		var err error
		rds, err = redis.NewRedisClient(context.Background(), &redis.RedisClientConfig{
			Url:         redisUrl,
			ServiceName: "test-service",
			Timeout:     time.Second,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if rds != nil {
			rds.Close()
		}
	})

	It("connects with a service scoped name", func() {
		Expect(strings.HasPrefix(rds.Options().ClientName, "test-service-")).To(BeTrue())
		Expect(rds.Ping(context.Background()).Err()).NotTo(HaveOccurred())
	})

	It("fails when the server cannot be reached", func() {
		rdsInv, err := redis.NewRedisClient(context.Background(), &redis.RedisClientConfig{
			Url:         "redis://invalid-url",
			ServiceName: "test-service",
			Timeout:     time.Second,
		})
		Expect(err).To(HaveOccurred())
		Expect(rdsInv).To(BeNil())
	})
})

var _ = Describe("Redis client checker", func() {
	It("reports a failed write probe once the server is gone", func() {
		srv := miniredis.RunT(GinkgoT())
		rds, err := redis.NewRedisClient(context.Background(), &redis.RedisClientConfig{
			Url:        "redis://" + srv.Addr(),
			Timeout:    200 * time.Millisecond,
			MaxRetries: -1,
		})
		Expect(err).NotTo(HaveOccurred())
		defer rds.Close()

		srv.Close()
		checker := redis.NewRedisClientChecker(rds, "chat_engine:", "test", 200*time.Millisecond)
		err = checker.Check(context.Background())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(HavePrefix("write probe:"))
	})
})
