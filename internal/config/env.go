package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "USSDFLOW_"

type lookupFunc func(key string) (string, bool)

// applyEnv overrides cfg with the USSDFLOW_* variables that are set and not empty.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	var errs []string
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("ADDR", &cfg.Server.Addr)
	num("RATE_LIMIT", &cfg.Server.RateLimit)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("STORE", &cfg.Store.Backend)
	str("REDIS_ADDR", &cfg.Store.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Store.Redis.Password)
	num("REDIS_DB", &cfg.Store.Redis.DB)
	str("REDIS_PREFIX", &cfg.Store.Redis.Prefix)
	str("ENCRYPTION_KEY", &cfg.Store.EncryptionKey)
	dur("EVENT_TIMEOUT", &cfg.Engine.EventTimeout)
	dur("SWEEP_INTERVAL", &cfg.Engine.SweepInterval)
	dur("CONNECT_TIMEOUT", &cfg.Client.ConnectTimeout)

	if v, ok := lookup(EnvPrefix + "DEFINITIONS"); ok && v != "" {
		cfg.Definitions = splitList(v)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
