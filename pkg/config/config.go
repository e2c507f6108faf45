// Package config loads the game configuration from a yaml file with
// environment overrides. The building catalog lives here; it is the single
// source the persistence layer is synchronized from at startup.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Macmachi/kasland/pkg/utils"
)

type Config struct {
	DatabasePath string `yaml:"database_path"`
	HTTPAddr     string `yaml:"http_addr"`

	KaspaAPIBaseURL string `yaml:"kaspa_api_base_url"`
	GameAddress     string `yaml:"game_address"`

	// Polling cadence for the ingestor and the marketplace monitor.
	CheckIntervalSeconds int `yaml:"check_interval_seconds"`

	FeedTimeoutSeconds    int `yaml:"feed_timeout_seconds"`
	FeedRetryAttempts     int `yaml:"feed_retry_attempts"`
	FeedRetryDelaySeconds int `yaml:"feed_retry_delay_seconds"`

	MinimumPurchaseAmount float64 `yaml:"minimum_purchase_amount"`

	// Reserved action amounts. Payments within AmountTolerance of these are
	// marketplace commands, not contributions.
	ListForSaleAmount float64 `yaml:"list_for_sale_amount"`
	CancelSaleAmount  float64 `yaml:"cancel_sale_amount"`
	AmountTolerance   float64 `yaml:"amount_tolerance"`

	PriceMultipliers []PriceMultiplier `yaml:"price_multipliers"`

	GracePeriodEnabled bool `yaml:"grace_period_enabled"`
	GracePeriodDays    int  `yaml:"grace_period_days"`

	TotalParcels  int `yaml:"total_parcels"`
	ParcelsPerRow int `yaml:"parcels_per_row"`

	WindTurbineBonus float64 `yaml:"wind_turbine_bonus"`
	EventChance      float64 `yaml:"event_chance"`

	CommunityFundingPercentage float64 `yaml:"community_funding_percentage"`
	RedistributionPercentage   float64 `yaml:"redistribution_percentage"`

	Buildings []BuildingSpec `yaml:"buildings"`
}

// PriceMultiplier maps a reserved payment amount to a sale-price multiplier:
// sending Amount (±tolerance) lists the sender's parcel at
// walletTotal × Multiplier.
type PriceMultiplier struct {
	Amount     float64 `yaml:"amount"`
	Multiplier float64 `yaml:"multiplier"`
}

type BuildingSpec struct {
	Name              string        `yaml:"name"`
	MinAmount         float64       `yaml:"min_amount"`
	MaxAmount         float64       `yaml:"max_amount"`
	FeeAmount         float64       `yaml:"fee_amount"`
	FeeFrequencyDays  int           `yaml:"fee_frequency_days"`
	Category          string        `yaml:"category"`
	EnergyProduction  float64       `yaml:"energy_production"`
	EnergyConsumption float64       `yaml:"energy_consumption"`
	ZkaspaProduction  float64       `yaml:"zkaspa_production"`
	MaxCount          int           `yaml:"max_count"` // 0 = unlimited
	Variants          []VariantSpec `yaml:"variants"`
}

type VariantSpec struct {
	Name        string  `yaml:"name"`
	Probability float64 `yaml:"probability"`
}

func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.FeedTimeoutSeconds) * time.Second
}

func (c *Config) FeedRetryDelay() time.Duration {
	return time.Duration(c.FeedRetryDelaySeconds) * time.Second
}

// Load reads the config file at path, falling back to defaults when path is
// empty, and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("kasland.yaml: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kasland.yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DatabasePath = utils.Env("KASLAND_DB", c.DatabasePath)
	c.HTTPAddr = utils.Env("ADDR", c.HTTPAddr)
	c.KaspaAPIBaseURL = utils.Env("KASPA_API_BASE_URL", c.KaspaAPIBaseURL)
	c.GameAddress = utils.Env("KASPA_GAME_ADDRESS", c.GameAddress)
	c.CheckIntervalSeconds = utils.EnvInt("CHECK_INTERVAL", c.CheckIntervalSeconds)
}

func (c *Config) Normalize() {
	if c.CheckIntervalSeconds <= 0 {
		c.CheckIntervalSeconds = 60
	}
	if c.FeedTimeoutSeconds <= 0 {
		c.FeedTimeoutSeconds = 50
	}
	if c.FeedRetryAttempts <= 0 {
		c.FeedRetryAttempts = 3
	}
	if c.FeedRetryDelaySeconds <= 0 {
		c.FeedRetryDelaySeconds = 5
	}
	if c.AmountTolerance <= 0 {
		c.AmountTolerance = 0.01
	}
	// Catalog scan order is descending threshold everywhere.
	sort.Slice(c.Buildings, func(i, j int) bool {
		return c.Buildings[i].MinAmount > c.Buildings[j].MinAmount
	})
}

func (c *Config) Validate() error {
	if c.GameAddress == "" {
		return fmt.Errorf("game_address is required")
	}
	if c.TotalParcels <= 0 || c.ParcelsPerRow <= 0 {
		return fmt.Errorf("total_parcels and parcels_per_row must be positive")
	}
	if c.MinimumPurchaseAmount <= 0 {
		return fmt.Errorf("minimum_purchase_amount must be positive")
	}
	if len(c.Buildings) == 0 {
		return fmt.Errorf("at least one building type is required")
	}

	seen := map[float64]string{}
	for _, b := range c.Buildings {
		if b.Name == "" {
			return fmt.Errorf("building with empty name")
		}
		if prev, ok := seen[b.MinAmount]; ok {
			return fmt.Errorf("buildings %q and %q share min_amount %v; thresholds must be unique", prev, b.Name, b.MinAmount)
		}
		seen[b.MinAmount] = b.Name
		var sum float64
		for _, v := range b.Variants {
			if v.Probability < 0 {
				return fmt.Errorf("building %q variant %q has negative probability", b.Name, v.Name)
			}
			sum += v.Probability
		}
		if sum > 1.0+1e-9 {
			return fmt.Errorf("building %q variant probabilities sum to %v (> 1)", b.Name, sum)
		}
	}

	// A multiplier key colliding with a reserved amount would make the
	// classification ambiguous.
	for _, pm := range c.PriceMultipliers {
		if utils.Near(pm.Amount, c.ListForSaleAmount, c.AmountTolerance) ||
			utils.Near(pm.Amount, c.CancelSaleAmount, c.AmountTolerance) {
			return fmt.Errorf("price multiplier amount %v collides with a reserved action amount", pm.Amount)
		}
		if pm.Multiplier <= 0 {
			return fmt.Errorf("price multiplier for amount %v must be positive", pm.Amount)
		}
	}
	return nil
}

// MultiplierFor returns the sale-price multiplier for an incoming amount, or
// 0 when the amount does not match a configured multiplier key.
func (c *Config) MultiplierFor(amount float64) float64 {
	for _, pm := range c.PriceMultipliers {
		if utils.Near(amount, pm.Amount, c.AmountTolerance) {
			return pm.Multiplier
		}
	}
	return 0
}

// Defaults returns the stock game configuration.
func Defaults() *Config {
	return &Config{
		DatabasePath:          "kasland.db",
		HTTPAddr:              ":8000",
		KaspaAPIBaseURL:       "https://api.kaspa.org",
		GameAddress:           "",
		CheckIntervalSeconds:  60,
		FeedTimeoutSeconds:    50,
		FeedRetryAttempts:     3,
		FeedRetryDelaySeconds: 5,
		MinimumPurchaseAmount: 2,
		ListForSaleAmount:     0.2,
		CancelSaleAmount:      0.3,
		AmountTolerance:       0.01,
		PriceMultipliers: []PriceMultiplier{
			{Amount: 0.4, Multiplier: 1.5},
			{Amount: 0.5, Multiplier: 2.0},
			{Amount: 0.6, Multiplier: 3.0},
		},
		GracePeriodEnabled:         true,
		GracePeriodDays:            7,
		TotalParcels:               1024,
		ParcelsPerRow:              32,
		WindTurbineBonus:           1.2,
		EventChance:                0.25,
		CommunityFundingPercentage: 0.10,
		RedistributionPercentage:   0.05,
		Buildings: []BuildingSpec{
			{
				Name: "small_house", MinAmount: 2, MaxAmount: 9.99,
				FeeAmount: 0.5, FeeFrequencyDays: 30, Category: "residential",
				EnergyConsumption: 1, ZkaspaProduction: 0.1,
				Variants: []VariantSpec{
					{Name: "A", Probability: 0.5}, {Name: "B", Probability: 0.3},
					{Name: "C", Probability: 0.15}, {Name: "D", Probability: 0.05},
				},
			},
			{
				Name: "medium_house", MinAmount: 10, MaxAmount: 49.99,
				FeeAmount: 1, FeeFrequencyDays: 30, Category: "residential",
				EnergyConsumption: 2, ZkaspaProduction: 0.3,
				Variants: []VariantSpec{
					{Name: "A", Probability: 0.5}, {Name: "B", Probability: 0.3},
					{Name: "C", Probability: 0.15}, {Name: "D", Probability: 0.05},
				},
			},
			{
				Name: "large_house", MinAmount: 50, MaxAmount: 124.99,
				FeeAmount: 2, FeeFrequencyDays: 30, Category: "residential",
				EnergyConsumption: 3, ZkaspaProduction: 0.8,
				Variants: []VariantSpec{
					{Name: "A", Probability: 0.45}, {Name: "B", Probability: 0.3},
					{Name: "C", Probability: 0.15}, {Name: "D", Probability: 0.08},
					{Name: "E", Probability: 0.02},
				},
			},
			{
				Name: "apartment_building", MinAmount: 125, MaxAmount: 249.99,
				FeeAmount: 4, FeeFrequencyDays: 30, Category: "residential",
				EnergyConsumption: 5, ZkaspaProduction: 2, MaxCount: 60,
				Variants: []VariantSpec{
					{Name: "A", Probability: 0.5}, {Name: "B", Probability: 0.3},
					{Name: "C", Probability: 0.15}, {Name: "D", Probability: 0.04},
					{Name: "E", Probability: 0.01},
				},
			},
			{
				Name: "wind_turbine", MinAmount: 250, MaxAmount: 499.99,
				FeeAmount: 5, FeeFrequencyDays: 30, Category: "energy",
				EnergyProduction: 20, ZkaspaProduction: 3, MaxCount: 25,
				Variants: []VariantSpec{
					{Name: "A", Probability: 0.6}, {Name: "B", Probability: 0.3},
					{Name: "C", Probability: 0.1},
				},
			},
			{
				Name: "wind_turbine_large", MinAmount: 500, MaxAmount: 999.99,
				FeeAmount: 8, FeeFrequencyDays: 30, Category: "energy",
				EnergyProduction: 50, ZkaspaProduction: 6, MaxCount: 10,
				Variants: []VariantSpec{
					{Name: "A", Probability: 0.7}, {Name: "B", Probability: 0.25},
					{Name: "C", Probability: 0.05},
				},
			},
			{
				Name: "kaspa_tower", MinAmount: 1000, MaxAmount: 0,
				FeeAmount: 15, FeeFrequencyDays: 15, Category: "landmark",
				EnergyConsumption: 10, ZkaspaProduction: 15, MaxCount: 5,
				Variants: []VariantSpec{
					{Name: "A", Probability: 0.699}, {Name: "B", Probability: 0.2},
					{Name: "C", Probability: 0.08}, {Name: "D", Probability: 0.02},
					{Name: "S", Probability: 0.001},
				},
			},
		},
	}
}
