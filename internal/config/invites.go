package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// InviteConfig controls invitation policy.
type InviteConfig struct {
	ExpiryDays   int      `mapstructure:"expiryDays"`
	AllowedRoles []string `mapstructure:"allowedRoles"`
}

func DefaultInviteConfig() InviteConfig {
	return InviteConfig{
		ExpiryDays:   7,
		AllowedRoles: []string{"ADMIN", "ACCOUNTANT", "OFFICE_STAFF", "MEMBER"},
	}
}

func (c InviteConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryDays) * 24 * time.Hour
}

func (c InviteConfig) RoleAllowed(role string) bool {
	role = strings.ToUpper(strings.TrimSpace(role))
	for _, allowed := range c.AllowedRoles {
		if strings.ToUpper(strings.TrimSpace(allowed)) == role {
			return true
		}
	}
	return false
}

type InviteConfigHolder struct {
	current atomic.Value // holds InviteConfig
}

func NewInviteConfigHolder() (*InviteConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("invites")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/unite/config") // Volume-mounted config
	v.AddConfigPath("/etc/unite")            // System config
	v.AddConfigPath(".")                     // Current directory (dev mode)

	v.SetEnvPrefix("UNITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultInviteConfig()
		v.SetDefault("invites.expiryDays", defaults.ExpiryDays)
		v.SetDefault("invites.allowedRoles", defaults.AllowedRoles)
	}

	var cfg InviteConfig
	if err := v.UnmarshalKey("invites", &cfg); err != nil {
		return nil, err
	}
	if err := validateInviteConfig(cfg); err != nil {
		return nil, err
	}

	holder := &InviteConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated InviteConfig
		if err := v.UnmarshalKey("invites", &updated); err != nil {
			log.Printf("[invite-config] reload failed: %v", err)
			return
		}
		if err := validateInviteConfig(updated); err != nil {
			log.Printf("[invite-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[invite-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticInviteConfigHolder wraps a fixed config, without file watching.
func NewStaticInviteConfigHolder(cfg InviteConfig) *InviteConfigHolder {
	holder := &InviteConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *InviteConfigHolder) Get() InviteConfig {
	return h.current.Load().(InviteConfig)
}

func validateInviteConfig(cfg InviteConfig) error {
	if cfg.ExpiryDays <= 0 {
		return errors.New("invites.expiryDays must be positive")
	}
	if len(cfg.AllowedRoles) == 0 {
		return errors.New("invites.allowedRoles cannot be empty")
	}
	return nil
}
