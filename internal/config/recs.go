package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// RecsConfigPathEnv names an optional YAML file with recommendation settings.
const RecsConfigPathEnv = "APP_RECS_CONFIG"

const recsEnvPrefix = "APP_RECS_"

// Recs holds the tuning knobs of the recommendation pipeline.
type Recs struct {
	// EventTTL is how long a session's cached events are trusted before
	// the next read reloads them from storage.
	EventTTL time.Duration `koanf:"event_ttl" validate:"gt=0"`

	// CacheLimit bounds the number of events kept per session.
	CacheLimit int `koanf:"cache_limit" validate:"gt=0"`

	// DefaultK is the number of recommendations requested when the caller
	// does not ask for a specific count.
	DefaultK int `koanf:"default_k" validate:"gt=0,lte=100"`

	// WindowLimit is how many of the most recent events are sent to the scorer.
	WindowLimit int `koanf:"window_limit" validate:"gt=0"`

	// ScorerTimeout caps a scorer call. Zero means no timeout.
	ScorerTimeout time.Duration `koanf:"scorer_timeout" validate:"gte=0"`

	// SessionIdle evicts sessions (and their caches) not used for this long.
	SessionIdle time.Duration `koanf:"session_idle" validate:"gt=0"`

	// CategorySample is how many random items per category the home page shows.
	CategorySample int `koanf:"category_sample" validate:"gt=0"`
}

// DefaultRecs returns the built-in recommendation settings.
func DefaultRecs() Recs {
	return Recs{
		EventTTL:       60 * time.Second,
		CacheLimit:     50,
		DefaultK:       10,
		WindowLimit:    25,
		ScorerTimeout:  0,
		SessionIdle:    2 * time.Hour,
		CategorySample: 8,
	}
}

// LoadRecs layers defaults, the optional YAML file named by APP_RECS_CONFIG
// and APP_RECS_* environment variables, then validates the result.
//
//	APP_RECS_EVENT_TTL=90s -> event_ttl
//	APP_RECS_WINDOW_LIMIT=40 -> window_limit
func LoadRecs() (Recs, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultRecs(), "koanf"), nil); err != nil {
		return Recs{}, fmt.Errorf("failed to load recs defaults: %w", err)
	}

	if path := os.Getenv(RecsConfigPathEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Recs{}, fmt.Errorf("failed to load recs config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(recsEnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, recsEnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Recs{}, fmt.Errorf("failed to load recs environment: %w", err)
	}

	var out Recs
	if err := k.Unmarshal("", &out); err != nil {
		return Recs{}, fmt.Errorf("failed to unmarshal recs config: %w", err)
	}

	if err := validator.New().Struct(out); err != nil {
		return Recs{}, fmt.Errorf("invalid recs config: %w", err)
	}
	return out, nil
}
