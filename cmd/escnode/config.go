// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package main

import (
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
)

type L1Config struct {
	URL string `koanf:"url"`
}

type L2Config struct {
	URL       string `koanf:"url"`
	JWTSecret string `koanf:"jwt-secret"`
}

type FeedConfig struct {
	URL string `koanf:"url"`
}

type PrefetchConfig struct {
	Forward int `koanf:"forward"`
	Threads int `koanf:"threads"`
}

type ValidationConfig struct {
	Enabled bool   `koanf:"enabled"`
	Threads int    `koanf:"threads"`
	DBPath  string `koanf:"db-path"`
}

type NodeConfig struct {
	L1         L1Config         `koanf:"l1"`
	L2         L2Config         `koanf:"l2"`
	Feed       FeedConfig       `koanf:"feed"`
	Prefetch   PrefetchConfig   `koanf:"prefetch"`
	Validation ValidationConfig `koanf:"validation"`

	RetryOffset     uint64        `koanf:"retry-offset"`
	ShutdownTimeout time.Duration `koanf:"shutdown-timeout"`
	LogLevel        int           `koanf:"log-level"`
}

// envKeys maps the documented environment variables onto config keys.
// Anything else follows the generic SECTION_KEY convention.
var envKeys = map[string]string{
	"VALIDATION_ENABLED":  "validation.enabled",
	"VALIDATION_THREADS":  "validation.threads",
	"L1_PREFETCH_FORWARD": "prefetch.forward",
	"L1_PREFETCH_THREADS": "prefetch.threads",
}

// ParseNode builds the node config from flags overlaid with environment
// variables.
func ParseNode(args []string) (*NodeConfig, error) {
	f := flag.NewFlagSet("escnode", flag.ContinueOnError)
	f.String("l1.url", "", "L1 RPC endpoint")
	f.String("l2.url", "", "L2 execution engine RPC endpoint")
	f.String("l2.jwt-secret", "", "hex-encoded engine API JWT secret")
	f.String("feed.url", "", "reference feed base URL")
	f.Int("prefetch.forward", 20, "L1 blocks to fetch ahead of the cursor")
	f.Int("prefetch.threads", 2, "concurrent prefetch workers")
	f.Bool("validation.enabled", false, "validate derived blocks against the reference feed")
	f.Int("validation.threads", 10, "validation worker threads")
	f.String("validation.db-path", "validation-db", "path of the validation result store")
	f.Uint64("retry-offset", 63, "blocks behind the L2 tip to restart import from")
	f.Duration("shutdown-timeout", 10*time.Second, "bounded drain on shutdown")
	f.Int("log-level", 3, "log level (0=crit .. 5=trace)")
	if err := f.Parse(args); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, errors.WithStack(err)
	}
	err := k.Load(env.Provider("", ".", func(s string) string {
		if mapped, ok := envKeys[s]; ok {
			return mapped
		}
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var config NodeConfig
	if err := k.Unmarshal("", &config); err != nil {
		return nil, errors.WithStack(err)
	}
	if config.L1.URL == "" {
		return nil, errors.New("--l1.url is required")
	}
	if config.L2.URL == "" {
		return nil, errors.New("--l2.url is required")
	}
	if config.Validation.Enabled && config.Feed.URL == "" {
		return nil, errors.New("--feed.url is required when validation is enabled")
	}
	return &config, nil
}
