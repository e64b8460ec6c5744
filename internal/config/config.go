// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"accrual-engine/internal/domain"
	"accrual-engine/internal/util"
	"accrual-engine/pkg/db"
)

// file is the raw YAML shape. Monetary values and rates are strings so they
// parse through decimal without passing through float64.
type file struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	DB struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"db"`
	Engine struct {
		Currency                 string `yaml:"currency"`
		TaskWindowHours          int    `yaml:"task_window_hours"`
		SpinIntervalDays         int    `yaml:"spin_interval_days"`
		MaxReferralDepth         int    `yaml:"max_referral_depth"`
		MinWithdrawal            string `yaml:"min_withdrawal"`
		MaxWithdrawal            string `yaml:"max_withdrawal"`
		InvestmentPenaltyPercent string `yaml:"investment_penalty_percent"`
		MaxTxAttempts            int    `yaml:"max_tx_attempts"`
	} `yaml:"engine"`
	Tiers []struct {
		Name              string `yaml:"name"`
		MinUnlockAmount   string `yaml:"min_unlock_amount"`
		PromotersRequired int    `yaml:"promoters_required"`
		TaskQuota         int    `yaml:"task_quota"`
		RateMin           string `yaml:"rate_min"`
		RateMax           string `yaml:"rate_max"`
	} `yaml:"tiers"`
	Commissions struct {
		Deposit []levelRow `yaml:"deposit"`
		Task    []levelRow `yaml:"task"`
	} `yaml:"commissions"`
	Wheel struct {
		Prizes []struct {
			Amount string `yaml:"amount"`
			Weight int    `yaml:"weight"`
		} `yaml:"prizes"`
	} `yaml:"wheel"`
}

// levelRow holds one upline level's commission rates, one rate per tier 0..5.
type levelRow struct {
	Level int      `yaml:"level"`
	Rates []string `yaml:"rates"`
}

// TierParams is the compiled configuration for one membership tier.
type TierParams struct {
	Name              string
	MinUnlockAmount   decimal.Decimal
	PromotersRequired int
	TaskQuota         int
	RateMin           decimal.Decimal // percent per task, lower bound
	RateMax           decimal.Decimal // percent per task, upper bound
}

// AppConfig holds all application-wide configuration after parsing and
// validation. The tier, commission, and wheel tables are operator data, not
// code: they are rejected at load time if inconsistent, never at run time.
type AppConfig struct {
	ServerPort string
	DB         db.Config

	Currency          string
	TaskWindow        time.Duration
	SpinInterval      time.Duration
	MaxReferralDepth  int
	MinWithdrawal     decimal.Decimal
	MaxWithdrawal     decimal.Decimal
	InvestmentPenalty decimal.Decimal // percent of principal on early cancel
	MaxTxAttempts     int

	Tiers       []TierParams
	WheelPrizes []domain.WheelPrize

	// commissionRates[eventType][level-1][tier] in percent.
	commissionRates map[domain.EventType][][]decimal.Decimal
}

// Tier returns the parameters for the given tier. Out-of-range tiers clamp to
// the nearest configured tier; tiers only move upward so this is a safety net,
// not a code path.
func (c *AppConfig) Tier(t domain.Tier) TierParams {
	if t < 0 {
		t = 0
	}
	if int(t) >= len(c.Tiers) {
		t = domain.Tier(len(c.Tiers) - 1)
	}
	return c.Tiers[t]
}

// CommissionRate returns the percent commission an ancestor of the given tier
// earns at the given upline level for the given event type. ok is false when
// the level is beyond the configured table.
func (c *AppConfig) CommissionRate(tier domain.Tier, event domain.EventType, level int) (decimal.Decimal, bool) {
	levels, found := c.commissionRates[event]
	if !found || level < 1 || level > len(levels) {
		return decimal.Zero, false
	}
	rates := levels[level-1]
	if tier < 0 {
		tier = 0
	}
	if int(tier) >= len(rates) {
		tier = domain.Tier(len(rates) - 1)
	}
	return rates[tier], true
}

// LoadConfig reads configuration from an optional YAML file (CONFIG_PATH,
// default config.yml), applies environment variable overrides, fills defaults,
// and validates the result. Validation failures wrap ErrConfigurationInvalid
// and must abort startup.
func LoadConfig() (*AppConfig, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yml"
	}

	raw := &file{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, raw); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(raw)
	applyDefaults(raw)

	return compile(raw)
}

func applyEnvOverrides(raw *file) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		raw.Server.Port = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		raw.DB.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			raw.DB.Port = p
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		raw.DB.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		raw.DB.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		raw.DB.Name = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		raw.DB.SSLMode = v
	}
}

func applyDefaults(raw *file) {
	if raw.Server.Port == "" {
		raw.Server.Port = "8080"
	}
	if raw.DB.Host == "" {
		raw.DB.Host = "localhost"
	}
	if raw.DB.Port == 0 {
		raw.DB.Port = 5432
	}
	if raw.DB.User == "" {
		raw.DB.User = "user"
	}
	if raw.DB.Password == "" {
		raw.DB.Password = "password"
	}
	if raw.DB.Name == "" {
		raw.DB.Name = "accrualdb"
	}
	if raw.DB.SSLMode == "" {
		raw.DB.SSLMode = "disable"
	}
	if raw.Engine.Currency == "" {
		raw.Engine.Currency = "USDT"
	}
	if raw.Engine.TaskWindowHours == 0 {
		raw.Engine.TaskWindowHours = 24
	}
	if raw.Engine.SpinIntervalDays == 0 {
		raw.Engine.SpinIntervalDays = 7
	}
	if raw.Engine.MaxReferralDepth == 0 {
		raw.Engine.MaxReferralDepth = 3
	}
	if raw.Engine.MinWithdrawal == "" {
		raw.Engine.MinWithdrawal = "10"
	}
	if raw.Engine.MaxWithdrawal == "" {
		raw.Engine.MaxWithdrawal = "50000"
	}
	if raw.Engine.InvestmentPenaltyPercent == "" {
		raw.Engine.InvestmentPenaltyPercent = "10"
	}
	if raw.Engine.MaxTxAttempts == 0 {
		raw.Engine.MaxTxAttempts = 3
	}
	if len(raw.Tiers) == 0 {
		raw.Tiers = defaultTiers()
	}
	if len(raw.Commissions.Deposit) == 0 {
		raw.Commissions.Deposit = []levelRow{
			{Level: 1, Rates: []string{"5", "5.5", "6", "6.5", "7", "8"}},
			{Level: 2, Rates: []string{"2", "2.2", "2.4", "2.6", "2.8", "3"}},
			{Level: 3, Rates: []string{"1", "1.1", "1.2", "1.3", "1.4", "1.5"}},
		}
	}
	if len(raw.Commissions.Task) == 0 {
		raw.Commissions.Task = []levelRow{
			{Level: 1, Rates: []string{"3", "3.2", "3.4", "3.6", "3.8", "4"}},
			{Level: 2, Rates: []string{"1.5", "1.6", "1.7", "1.8", "1.9", "2"}},
			{Level: 3, Rates: []string{"0.5", "0.6", "0.7", "0.8", "0.9", "1"}},
		}
	}
	if len(raw.Wheel.Prizes) == 0 {
		raw.Wheel.Prizes = []struct {
			Amount string `yaml:"amount"`
			Weight int    `yaml:"weight"`
		}{
			{Amount: "1", Weight: 40},
			{Amount: "2", Weight: 30},
			{Amount: "5", Weight: 20},
			{Amount: "10", Weight: 10},
		}
	}
}

func defaultTiers() []struct {
	Name              string `yaml:"name"`
	MinUnlockAmount   string `yaml:"min_unlock_amount"`
	PromotersRequired int    `yaml:"promoters_required"`
	TaskQuota         int    `yaml:"task_quota"`
	RateMin           string `yaml:"rate_min"`
	RateMax           string `yaml:"rate_max"`
} {
	return []struct {
		Name              string `yaml:"name"`
		MinUnlockAmount   string `yaml:"min_unlock_amount"`
		PromotersRequired int    `yaml:"promoters_required"`
		TaskQuota         int    `yaml:"task_quota"`
		RateMin           string `yaml:"rate_min"`
		RateMax           string `yaml:"rate_max"`
	}{
		{Name: "Basic", MinUnlockAmount: "0", PromotersRequired: 0, TaskQuota: 3, RateMin: "2.5", RateMax: "4.5"},
		{Name: "Bronze", MinUnlockAmount: "100", PromotersRequired: 2, TaskQuota: 5, RateMin: "3", RateMax: "5"},
		{Name: "Silver", MinUnlockAmount: "500", PromotersRequired: 5, TaskQuota: 8, RateMin: "3.5", RateMax: "5.5"},
		{Name: "Gold", MinUnlockAmount: "2000", PromotersRequired: 10, TaskQuota: 12, RateMin: "4", RateMax: "6"},
		{Name: "Platinum", MinUnlockAmount: "5000", PromotersRequired: 20, TaskQuota: 18, RateMin: "4.5", RateMax: "6.5"},
		{Name: "Elite", MinUnlockAmount: "20000", PromotersRequired: 40, TaskQuota: 25, RateMin: "5", RateMax: "7"},
	}
}

func compile(raw *file) (*AppConfig, error) {
	cfg := &AppConfig{
		ServerPort: raw.Server.Port,
		DB: db.Config{
			Host:     raw.DB.Host,
			Port:     raw.DB.Port,
			User:     raw.DB.User,
			Password: raw.DB.Password,
			DBName:   raw.DB.Name,
			SSLMode:  raw.DB.SSLMode,
		},
		Currency:         raw.Engine.Currency,
		TaskWindow:       time.Duration(raw.Engine.TaskWindowHours) * time.Hour,
		SpinInterval:     time.Duration(raw.Engine.SpinIntervalDays) * 24 * time.Hour,
		MaxReferralDepth: raw.Engine.MaxReferralDepth,
		MaxTxAttempts:    raw.Engine.MaxTxAttempts,
		commissionRates:  make(map[domain.EventType][][]decimal.Decimal),
	}

	var err error
	if cfg.MinWithdrawal, err = parseDecimal("engine.min_withdrawal", raw.Engine.MinWithdrawal); err != nil {
		return nil, err
	}
	if cfg.MaxWithdrawal, err = parseDecimal("engine.max_withdrawal", raw.Engine.MaxWithdrawal); err != nil {
		return nil, err
	}
	if cfg.InvestmentPenalty, err = parseDecimal("engine.investment_penalty_percent", raw.Engine.InvestmentPenaltyPercent); err != nil {
		return nil, err
	}

	if len(raw.Tiers) != int(domain.MaxTier)+1 {
		return nil, fmt.Errorf("%w: expected %d tiers, got %d", util.ErrConfigurationInvalid, int(domain.MaxTier)+1, len(raw.Tiers))
	}
	for i, row := range raw.Tiers {
		tp := TierParams{
			Name:              row.Name,
			PromotersRequired: row.PromotersRequired,
			TaskQuota:         row.TaskQuota,
		}
		if tp.MinUnlockAmount, err = parseDecimal(fmt.Sprintf("tiers[%d].min_unlock_amount", i), row.MinUnlockAmount); err != nil {
			return nil, err
		}
		if tp.RateMin, err = parseDecimal(fmt.Sprintf("tiers[%d].rate_min", i), row.RateMin); err != nil {
			return nil, err
		}
		if tp.RateMax, err = parseDecimal(fmt.Sprintf("tiers[%d].rate_max", i), row.RateMax); err != nil {
			return nil, err
		}
		if tp.RateMin.GreaterThanOrEqual(tp.RateMax) {
			return nil, fmt.Errorf("%w: tier %d rate band is empty", util.ErrConfigurationInvalid, i)
		}
		if i > 0 {
			prev := cfg.Tiers[i-1]
			if !tp.MinUnlockAmount.GreaterThan(prev.MinUnlockAmount) ||
				tp.TaskQuota <= prev.TaskQuota ||
				!tp.RateMin.GreaterThan(prev.RateMin) ||
				!tp.RateMax.GreaterThan(prev.RateMax) {
				return nil, fmt.Errorf("%w: tier %d does not strictly increase over tier %d", util.ErrConfigurationInvalid, i, i-1)
			}
		}
		cfg.Tiers = append(cfg.Tiers, tp)
	}

	for event, rows := range map[domain.EventType][]levelRow{
		domain.EventTypeDeposit: raw.Commissions.Deposit,
		domain.EventTypeTask:    raw.Commissions.Task,
	} {
		levels, err := compileLevels(event, rows, cfg.MaxReferralDepth, len(cfg.Tiers))
		if err != nil {
			return nil, err
		}
		cfg.commissionRates[event] = levels
	}

	weightSum := 0
	for i, p := range raw.Wheel.Prizes {
		amount, err := parseDecimal(fmt.Sprintf("wheel.prizes[%d].amount", i), p.Amount)
		if err != nil {
			return nil, err
		}
		if !amount.IsPositive() || p.Weight <= 0 {
			return nil, fmt.Errorf("%w: wheel prize %d must have positive amount and weight", util.ErrConfigurationInvalid, i)
		}
		cfg.WheelPrizes = append(cfg.WheelPrizes, domain.WheelPrize{
			Amount:            amount,
			Currency:          cfg.Currency,
			ProbabilityWeight: p.Weight,
		})
		weightSum += p.Weight
	}
	if weightSum != 100 {
		return nil, fmt.Errorf("%w: wheel prize weights sum to %d, want 100", util.ErrConfigurationInvalid, weightSum)
	}

	if cfg.MinWithdrawal.IsNegative() || !cfg.MaxWithdrawal.GreaterThan(cfg.MinWithdrawal) {
		return nil, fmt.Errorf("%w: withdrawal limits out of order", util.ErrConfigurationInvalid)
	}
	if cfg.InvestmentPenalty.IsNegative() || cfg.InvestmentPenalty.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("%w: investment penalty must be within [0,100]", util.ErrConfigurationInvalid)
	}
	if cfg.MaxReferralDepth < 1 {
		return nil, fmt.Errorf("%w: max_referral_depth must be at least 1", util.ErrConfigurationInvalid)
	}

	return cfg, nil
}

func compileLevels(event domain.EventType, rows []levelRow, maxDepth, tierCount int) ([][]decimal.Decimal, error) {
	if len(rows) < maxDepth {
		return nil, fmt.Errorf("%w: commission table for %s covers %d levels, need %d", util.ErrConfigurationInvalid, event, len(rows), maxDepth)
	}
	levels := make([][]decimal.Decimal, len(rows))
	for _, row := range rows {
		if row.Level < 1 || row.Level > len(rows) {
			return nil, fmt.Errorf("%w: commission table for %s has out-of-range level %d", util.ErrConfigurationInvalid, event, row.Level)
		}
		if len(row.Rates) != tierCount {
			return nil, fmt.Errorf("%w: commission table for %s level %d has %d tier rates, need %d", util.ErrConfigurationInvalid, event, row.Level, len(row.Rates), tierCount)
		}
		rates := make([]decimal.Decimal, tierCount)
		for i, s := range row.Rates {
			rate, err := parseDecimal(fmt.Sprintf("commissions.%s[level=%d].rates[%d]", event, row.Level, i), s)
			if err != nil {
				return nil, err
			}
			if rate.IsNegative() {
				return nil, fmt.Errorf("%w: commission rate for %s level %d tier %d is negative", util.ErrConfigurationInvalid, event, row.Level, i)
			}
			rates[i] = rate
		}
		if levels[row.Level-1] != nil {
			return nil, fmt.Errorf("%w: commission table for %s defines level %d twice", util.ErrConfigurationInvalid, event, row.Level)
		}
		levels[row.Level-1] = rates
	}
	for i, l := range levels {
		if l == nil {
			return nil, fmt.Errorf("%w: commission table for %s is missing level %d", util.ErrConfigurationInvalid, event, i+1)
		}
	}
	return levels, nil
}

func parseDecimal(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", util.ErrConfigurationInvalid, field, err)
	}
	return d, nil
}
