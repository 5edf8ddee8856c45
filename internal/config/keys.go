package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
	kList
)

type keySpec struct {
	env   string
	typ   keyType
	apply func(cfg *Config, v any)
}

var specs = []keySpec{
	{env: "PLATEWISE_SERVER_PORT", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Server.Port = v.(int) }},
	{env: "PLATEWISE_SERVER_TOKEN", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Server.Token = v.(string) }},
	{env: "PLATEWISE_PROVIDER_PRIMARY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Providers.Primary = v.(string) }},
	{env: "PLATEWISE_PROVIDER_ORDER", typ: kList,
		apply: func(cfg *Config, v any) { cfg.Providers.Order = v.([]string) }},
	{env: "PLATEWISE_PREMIUM_ENABLED", typ: kBool,
		apply: func(cfg *Config, v any) { cfg.Providers.PremiumEnabled = v.(bool) }},
	{env: "PLATEWISE_OPENAI_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Providers.OpenAIKey = v.(string) }},
	{env: "PLATEWISE_GEMINI_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Providers.GeminiKey = v.(string) }},
	{env: "PLATEWISE_OPENROUTER_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Providers.OpenRouterKey = v.(string) }},
	{env: "PLATEWISE_RATE_LIMIT_PER_MINUTE", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.RateLimit.PerMinute = v.(int) }},
	{env: "PLATEWISE_RATE_LIMIT_PER_DAY", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.RateLimit.PerDay = v.(int) }},
	{env: "PLATEWISE_TRUSTED_IP_HEADER", typ: kString,
		apply: func(cfg *Config, v any) { cfg.RateLimit.TrustedIPHeader = v.(string) }},
	{env: "PLATEWISE_FDC_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Nutrition.FDCAPIKey = v.(string) }},
	{env: "PLATEWISE_NUTRITION_CONFIDENCE", typ: kFloat,
		apply: func(cfg *Config, v any) { cfg.Nutrition.ConfidenceThreshold = v.(float64) }},
	{env: "PLATEWISE_CACHE_TTL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Cache.TTL = v.(string) }},
	{env: "PLATEWISE_BREAKER_THRESHOLD", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Breaker.FailureThreshold = v.(int) }},
	{env: "PLATEWISE_BREAKER_RECOVERY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Breaker.RecoveryTime = v.(string) }},
	{env: "PLATEWISE_STORAGE_DATA_DIR", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) }},
	{env: "PLATEWISE_LOG_LEVEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Log.Level = v.(string) }},
	{env: "PLATEWISE_LOG_FILE", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Log.File = v.(string) }},
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kList:
			parts := strings.Split(raw, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			s.apply(cfg, parts)
		}
	}
}
