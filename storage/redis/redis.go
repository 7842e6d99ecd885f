//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package redis manages named redis instances and the client builder shared
// by the redis-backed checkpoint saver.
package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

var (
	registryMu    sync.RWMutex
	redisRegistry = map[string][]ClientBuilderOpt{}
)

type clientBuilder func(builderOpts ...ClientBuilderOpt) (redis.UniversalClient, error)

var globalBuilder clientBuilder = DefaultClientBuilder

// SetClientBuilder replaces the builder used by NewClient.
func SetClientBuilder(builder clientBuilder) {
	globalBuilder = builder
}

// GetClientBuilder returns the current builder.
func GetClientBuilder() clientBuilder {
	return globalBuilder
}

// DefaultClientBuilder parses the configured URL and returns a universal
// client. It does not connect.
func DefaultClientBuilder(builderOpts ...ClientBuilderOpt) (redis.UniversalClient, error) {
	o := &ClientBuilderOpts{}
	for _, opt := range builderOpts {
		opt(o)
	}
	if o.URL == "" {
		return nil, fmt.Errorf("redis: url is empty")
	}
	opts, err := redis.ParseURL(o.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url %s: %w", o.URL, err)
	}
	universalOpts := &redis.UniversalOptions{
		Addrs:                 []string{opts.Addr},
		DB:                    opts.DB,
		Username:              opts.Username,
		Password:              opts.Password,
		Protocol:              opts.Protocol,
		ClientName:            opts.ClientName,
		TLSConfig:             opts.TLSConfig,
		MaxRetries:            opts.MaxRetries,
		MinRetryBackoff:       opts.MinRetryBackoff,
		MaxRetryBackoff:       opts.MaxRetryBackoff,
		DialTimeout:           opts.DialTimeout,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		ContextTimeoutEnabled: opts.ContextTimeoutEnabled,
		PoolSize:              opts.PoolSize,
		PoolTimeout:           opts.PoolTimeout,
		MinIdleConns:          opts.MinIdleConns,
		MaxIdleConns:          opts.MaxIdleConns,
		ConnMaxIdleTime:       opts.ConnMaxIdleTime,
		ConnMaxLifetime:       opts.ConnMaxLifetime,
	}
	return redis.NewUniversalClient(universalOpts), nil
}

// ClientBuilderOpt configures a client.
type ClientBuilderOpt func(*ClientBuilderOpts)

// ClientBuilderOpts holds the builder inputs.
type ClientBuilderOpts struct {
	URL string
}

// WithClientBuilderURL sets the redis URL.
// scheme: redis://<username>:<password>@<host>:<port>/<db>?<options>
func WithClientBuilderURL(url string) ClientBuilderOpt {
	return func(opts *ClientBuilderOpts) {
		opts.URL = url
	}
}

// RegisterRedisInstance registers options under a name. Repeated calls
// append.
func RegisterRedisInstance(name string, opts ...ClientBuilderOpt) {
	registryMu.Lock()
	defer registryMu.Unlock()
	redisRegistry[name] = append(redisRegistry[name], opts...)
}

// GetRedisInstance returns the options registered under name.
func GetRedisInstance(name string) ([]ClientBuilderOpt, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	opts, ok := redisRegistry[name]
	if !ok {
		return nil, false
	}
	return append([]ClientBuilderOpt(nil), opts...), true
}

// NewClient resolves target, which is either a redis:// URL or the name of
// a registered instance, builds a client and pings it.
func NewClient(ctx context.Context, target string) (redis.UniversalClient, error) {
	var opts []ClientBuilderOpt
	if strings.Contains(target, "://") {
		opts = []ClientBuilderOpt{WithClientBuilderURL(target)}
	} else {
		registered, ok := GetRedisInstance(target)
		if !ok {
			return nil, fmt.Errorf("redis: instance %q not registered", target)
		}
		opts = registered
	}
	client, err := GetClientBuilder()(opts...)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", target, err)
	}
	return client, nil
}
