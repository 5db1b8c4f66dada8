package config

import (
	"testing"

	coreconfig "github.com/mochiserver/mochibot/core/config"
)

func validConfig() *Config {
	return &Config{
		Core: coreconfig.Config{
			Telegram: coreconfig.TelegramConfig{
				Token:   "123:abc",
				RunMode: coreconfig.RunModeLongpoll,
			},
		},
		Access: AccessConfig{
			AdminIDs:  []int64{10},
			SupportID: 20,
		},
		Shop: ShopConfig{
			Tiers: []Tier{
				{Key: "at_alone_a", Title: "A", Group: "alone", Price: 150000},
				{Key: "at_family_3", Title: "B", Group: "family", Price: 400000},
			},
		},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Shop.ReferralBonus != 40000 {
		t.Fatalf("referral bonus default = %d, want 40000", cfg.Shop.ReferralBonus)
	}
}

func TestNormalizeRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing support id", func(c *Config) { c.Access.SupportID = 0 }},
		{"no admins", func(c *Config) { c.Access.AdminIDs = nil }},
		{"duplicate tier key", func(c *Config) { c.Shop.Tiers[1].Key = c.Shop.Tiers[0].Key }},
		{"zero tier price", func(c *Config) { c.Shop.Tiers[0].Price = 0 }},
		{"negative bonus", func(c *Config) { c.Shop.ReferralBonus = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			if err := Normalize(cfg); err == nil {
				t.Fatal("Normalize should reject invalid config")
			}
		})
	}
}

func TestTierByKey(t *testing.T) {
	cfg := validConfig()
	if _, ok := cfg.TierByKey("at_alone_a"); !ok {
		t.Fatal("TierByKey should find configured tier")
	}
	if _, ok := cfg.TierByKey("nope"); ok {
		t.Fatal("TierByKey should miss unknown key")
	}
}

func TestAccessChecks(t *testing.T) {
	cfg := validConfig()
	cfg.Access.VIPIDs = []int64{30}

	if !cfg.IsAdmin(10) || cfg.IsAdmin(11) {
		t.Fatal("IsAdmin mismatch")
	}
	if !cfg.IsVIP(30) || cfg.IsVIP(31) {
		t.Fatal("IsVIP mismatch")
	}
}
