// Package config assembles the application configuration: the reusable core
// settings plus the shop-specific access lists, purchase tiers, and payload
// texts.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/mochiserver/mochibot/core/config"
	coredatabase "github.com/mochiserver/mochibot/core/database"
)

// AccessConfig lists privileged user ids. They are plain configuration-fed
// sets; no dynamic privilege management exists.
type AccessConfig struct {
	AdminIDs  []int64 `yaml:"admin_ids" envconfig:"ADMIN_IDS"`
	VIPIDs    []int64 `yaml:"vip_ids" envconfig:"VIP_IDS"`
	SpecialID int64   `yaml:"special_id" envconfig:"SPECIAL_ID"`
	// SupportID is the fixed recipient of all relayed user requests.
	SupportID int64 `yaml:"support_id" envconfig:"SUPPORT_ID"`
}

// Tier is a purchasable config offering. PayURL is an opaque external
// payment link; no gateway logic is attached to it.
type Tier struct {
	Key    string `yaml:"key"`
	Title  string `yaml:"title"`
	Group  string `yaml:"group"`
	Price  int64  `yaml:"price"`
	PayURL string `yaml:"pay_url"`
}

// LinkButton is a labelled external URL rendered as a button.
type LinkButton struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

// ShopConfig carries the sales-side settings.
type ShopConfig struct {
	BotUsername   string       `yaml:"bot_username" envconfig:"BOT_USERNAME"`
	ReferralBonus int64        `yaml:"referral_bonus" envconfig:"REFERRAL_BONUS"`
	Tiers         []Tier       `yaml:"tiers"`
	FundsLinks    []LinkButton `yaml:"funds_links"`
	// VIPPayload and SpecialPayload are free-form config texts delivered
	// verbatim on the respective menu entries.
	VIPPayload     string `yaml:"vip_payload" envconfig:"VIP_CONFIG"`
	SpecialPayload string `yaml:"special_payload" envconfig:"SPECIAL_CONFIG"`
}

// Config is the full application configuration.
type Config struct {
	Core     coreconfig.Config   `yaml:"core"`
	Database coredatabase.Config `yaml:"database"`
	Access   AccessConfig        `yaml:"access"`
	Shop     ShopConfig          `yaml:"shop"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Core
}

// TierByKey returns the configured tier with the given key.
func (c *Config) TierByKey(key string) (Tier, bool) {
	for _, t := range c.Shop.Tiers {
		if t.Key == key {
			return t, true
		}
	}
	return Tier{}, false
}

// IsAdmin reports whether the id belongs to an operator.
func (c *Config) IsAdmin(id int64) bool {
	for _, a := range c.Access.AdminIDs {
		if a == id {
			return true
		}
	}
	return false
}

// IsVIP reports whether the id belongs to the VIP list.
func (c *Config) IsVIP(id int64) bool {
	for _, v := range c.Access.VIPIDs {
		if v == id {
			return true
		}
	}
	return false
}

// Load reads the configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return err
	}

	if cfg.Access.SupportID == 0 {
		return fmt.Errorf("access.support_id is required")
	}
	if len(cfg.Access.AdminIDs) == 0 {
		return fmt.Errorf("access.admin_ids must list at least one operator")
	}

	if cfg.Shop.ReferralBonus == 0 {
		cfg.Shop.ReferralBonus = 40000
	}
	if cfg.Shop.ReferralBonus < 0 {
		return fmt.Errorf("shop.referral_bonus must be >= 0")
	}

	seen := make(map[string]struct{}, len(cfg.Shop.Tiers))
	for i, tier := range cfg.Shop.Tiers {
		if tier.Key == "" {
			return fmt.Errorf("shop.tiers[%d].key is required", i)
		}
		if _, dup := seen[tier.Key]; dup {
			return fmt.Errorf("shop.tiers: duplicate key %q", tier.Key)
		}
		seen[tier.Key] = struct{}{}
		if tier.Price <= 0 {
			return fmt.Errorf("shop.tiers[%d].price must be > 0", i)
		}
	}

	return nil
}
