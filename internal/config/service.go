package config

import "time"

type ServiceConfig struct {
	Name            string `yaml:"name"`
	Environment     string `yaml:"environment"`
	Version         string `yaml:"version"`
	ClientURL       string `yaml:"client_url"`
	StripeSecretKey string `yaml:"stripe_secret_key"`
}

// SettlementConfig holds the settlement policy knobs.
type SettlementConfig struct {
	// MaxCreditAmount is the ceiling on coins a single checkout session may
	// grant. Sessions claiming more are rejected during verification.
	MaxCreditAmount int64 `yaml:"max_credit_amount"`
	// ReconcileListLimit bounds how many recent provider sessions the
	// provider-to-local reconciliation pass inspects per caller.
	ReconcileListLimit int `yaml:"reconcile_list_limit"`
}

func (c *SettlementConfig) applyDefaults() {
	if c.MaxCreditAmount <= 0 {
		c.MaxCreditAmount = 100000
	}
	if c.ReconcileListLimit <= 0 {
		c.ReconcileListLimit = 25
	}
}

type RateLimitConfig struct {
	Window      time.Duration `yaml:"window"`
	MaxRequests int           `yaml:"max_requests"`
	Redis       RedisConfig   `yaml:"redis"`
}

func (c *RateLimitConfig) applyDefaults() {
	if c.Window <= 0 {
		c.Window = 60 * time.Second
	}
	if c.MaxRequests <= 0 {
		c.MaxRequests = 10
	}
}

// RedisConfig configures the shared rate-limit counter store. When Addr is
// empty the gate falls back to an in-process store, which is only safe for
// single-instance deployments.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}
