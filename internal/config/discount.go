package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DiscountPolicy controls the first-order discount handed out at sign-up.
type DiscountPolicy struct {
	Percent int           `mapstructure:"percent"`
	Window  time.Duration `mapstructure:"window"`
}

func DefaultDiscountPolicy() DiscountPolicy {
	return DiscountPolicy{
		Percent: 10,
		Window:  24 * time.Hour,
	}
}

type DiscountPolicyHolder struct {
	current atomic.Value // holds DiscountPolicy
}

// NewStaticDiscountPolicy returns a holder that never reloads.
func NewStaticDiscountPolicy(policy DiscountPolicy) *DiscountPolicyHolder {
	holder := &DiscountPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

// NewDiscountPolicyHolder reads discount.yml and watches it for changes.
// Reloaded values only apply to grants issued after the reload.
func NewDiscountPolicyHolder(cfg Config, log *zap.Logger) (*DiscountPolicyHolder, error) {
	log = log.Named("config.discount")
	v := viper.New()

	if path := strings.TrimSpace(cfg.DiscountConfigPath); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("discount")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/checkoutrelay")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("DISCOUNT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultDiscountPolicy()
	v.SetDefault("discount.percent", defaults.Percent)
	v.SetDefault("discount.window", defaults.Window)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var policy DiscountPolicy
	if err := v.UnmarshalKey("discount", &policy); err != nil {
		return nil, err
	}
	if err := validateDiscountPolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticDiscountPolicy(policy)
	log.Info("discount policy loaded",
		zap.Int("percent", policy.Percent),
		zap.Duration("window", policy.Window),
		zap.Bool("from_file", fileLoaded),
	)

	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated DiscountPolicy
		if err := v.UnmarshalKey("discount", &updated); err != nil {
			log.Warn("discount policy reload failed", zap.Error(err))
			return
		}
		if err := validateDiscountPolicy(updated); err != nil {
			log.Warn("invalid discount policy ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("discount policy reloaded",
			zap.String("file", e.Name),
			zap.Int("percent", updated.Percent),
			zap.Duration("window", updated.Window),
		)
	})

	return holder, nil
}

func (h *DiscountPolicyHolder) Get() DiscountPolicy {
	if h == nil {
		return DefaultDiscountPolicy()
	}
	policy, ok := h.current.Load().(DiscountPolicy)
	if !ok {
		return DefaultDiscountPolicy()
	}
	return policy
}

func validateDiscountPolicy(policy DiscountPolicy) error {
	if policy.Percent <= 0 || policy.Percent > 100 {
		return errors.New("discount.percent must be between 1 and 100")
	}
	if policy.Window <= 0 {
		return errors.New("discount.window must be positive")
	}
	return nil
}
