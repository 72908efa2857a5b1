// Package config loads the pricer and hedging configuration from a file and
// PRICER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/banachtech/pathpricer/hedging"
	"github.com/banachtech/pathpricer/logging"
	"github.com/banachtech/pathpricer/payoff"
	"github.com/banachtech/pathpricer/pricer"
	"github.com/banachtech/pathpricer/util"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/mat"
)

const EnvPrefix = "PRICER"

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Model      ModelConfig      `mapstructure:"model"`
	Contract   ContractConfig   `mapstructure:"contract"`
	MonteCarlo MonteCarloConfig `mapstructure:"monte_carlo"`
	Hedging    HedgingConfig    `mapstructure:"hedging"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"    validate:"min=0"` // MB
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`
	MaxAge     int    `mapstructure:"max_age"     validate:"min=0"` // days
	Compress   bool   `mapstructure:"compress"`
}

type ServerConfig struct {
	Addr      string          `mapstructure:"addr" validate:"required"`
	APIKeys   []APIKey        `mapstructure:"api_keys" validate:"dive"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// APIKey is a bcrypt hash of a "prefix.secret" key. ExpiresAt uses the
// "2006-01-02 15:04:05" layout; empty never expires.
type APIKey struct {
	Prefix    string `mapstructure:"prefix"     validate:"required,len=8"`
	Hash      string `mapstructure:"hash"       validate:"required"`
	ExpiresAt string `mapstructure:"expires_at"`
}

type RateLimitConfig struct {
	Every time.Duration `mapstructure:"every" validate:"min=0"`
	Burst int           `mapstructure:"burst" validate:"min=0"`
}

type DatabaseConfig struct {
	DSN           string        `mapstructure:"dsn"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

type ModelConfig struct {
	InterestRate float64     `mapstructure:"interest_rate"`
	Volatility   [][]float64 `mapstructure:"volatility" validate:"required,min=1"`
}

type ContractConfig struct {
	Payoff       string         `mapstructure:"payoff"`
	CreationDate string         `mapstructure:"creation_date" validate:"required,datetime=2006-01-02"`
	PaymentDates []string       `mapstructure:"payment_dates" validate:"dive,datetime=2006-01-02"`
	Schedule     ScheduleConfig `mapstructure:"schedule"`
	Strikes      []float64      `mapstructure:"strikes" validate:"required,min=1"`
	DaysInYear   int            `mapstructure:"days_in_year" validate:"min=0"`
}

// ScheduleConfig generates payment dates when none are listed.
type ScheduleConfig struct {
	TenorMonths     int      `mapstructure:"tenor_months"     validate:"min=0"`
	FrequencyMonths int      `mapstructure:"frequency_months" validate:"min=0"`
	Holidays        []string `mapstructure:"holidays"         validate:"dive,datetime=2006-01-02"`
}

type MonteCarloConfig struct {
	Samples int     `mapstructure:"samples" validate:"gt=0"`
	FDStep  float64 `mapstructure:"fd_step" validate:"gt=0,lt=1"`
	Seed    uint64  `mapstructure:"seed"`
	Workers int     `mapstructure:"workers" validate:"min=0"`
}

type HedgingConfig struct {
	Underlyings       []string `mapstructure:"underlyings"`
	RebalancingPeriod int      `mapstructure:"rebalancing_period" validate:"gt=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", false)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rate_limit.every", time.Second)
	v.SetDefault("server.rate_limit.burst", 5)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.slow_threshold", 200*time.Millisecond)
	v.SetDefault("model.interest_rate", 0.0)
	v.SetDefault("contract.payoff", payoff.ConditionalBasket.String())
	v.SetDefault("contract.days_in_year", util.DefaultDaysInYear)
	v.SetDefault("monte_carlo.samples", 50000)
	v.SetDefault("monte_carlo.fd_step", 0.1)
	v.SetDefault("monte_carlo.seed", 0)
	v.SetDefault("monte_carlo.workers", 1)
	v.SetDefault("hedging.rebalancing_period", 1)
}

// Load reads the configuration file at path (YAML, JSON or TOML by extension),
// applies PRICER_* environment overrides and validates the result. An empty path
// loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config error: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config error: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the field constraints and that the contract builds a pricer.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.PricerParams(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Converter() util.MathDateConverter {
	return util.NewMathDateConverter(c.Contract.DaysInYear)
}

func (c *Config) CreationDate() (time.Time, error) {
	d, err := time.Parse(util.Layout, c.Contract.CreationDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: creation date: %w", ErrInvalidConfig, err)
	}
	return d, nil
}

// PaymentDates returns the listed payment dates, or generates them from the schedule.
func (c *Config) PaymentDates() ([]time.Time, error) {
	if len(c.Contract.PaymentDates) > 0 {
		dates, err := util.ParseDates(c.Contract.PaymentDates)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		return dates, nil
	}
	start, err := c.CreationDate()
	if err != nil {
		return nil, err
	}
	hols, err := util.Hols(c.Contract.Schedule.Holidays)
	if err != nil {
		return nil, fmt.Errorf("%w: holidays: %w", ErrInvalidConfig, err)
	}
	dates, err := util.GenerateDates(start, c.Contract.Schedule.TenorMonths, c.Contract.Schedule.FrequencyMonths, hols)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return dates, nil
}

// Volatility returns the loading matrix, which must be square.
func (c *Config) Volatility() (*mat.Dense, error) {
	n := len(c.Model.Volatility)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty volatility matrix", ErrInvalidConfig)
	}
	vol := mat.NewDense(n, n, nil)
	for i, row := range c.Model.Volatility {
		if len(row) != n {
			return nil, fmt.Errorf("%w: volatility row %d has %d entries, want %d", ErrInvalidConfig, i, len(row), n)
		}
		vol.SetRow(i, row)
	}
	return vol, nil
}

// PricerParams converts the model, contract and Monte Carlo sections.
func (c *Config) PricerParams() (pricer.Params, error) {
	kind, err := payoff.ParseKind(c.Contract.Payoff)
	if err != nil {
		return pricer.Params{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	vol, err := c.Volatility()
	if err != nil {
		return pricer.Params{}, err
	}
	start, err := c.CreationDate()
	if err != nil {
		return pricer.Params{}, err
	}
	dates, err := c.PaymentDates()
	if err != nil {
		return pricer.Params{}, err
	}
	if len(dates) != len(c.Contract.Strikes) {
		return pricer.Params{}, fmt.Errorf("%w: %d payment dates but %d strikes", ErrInvalidConfig, len(dates), len(c.Contract.Strikes))
	}
	times := c.Converter().Distances(start, dates)
	if _, err := payoff.New(kind, times, c.Contract.Strikes, len(c.Model.Volatility)); err != nil {
		return pricer.Params{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return pricer.Params{
		Rate:       c.Model.InterestRate,
		Volatility: vol,
		Dates:      times,
		Strikes:    c.Contract.Strikes,
		Payoff:     kind,
		Samples:    c.MonteCarlo.Samples,
		FDStep:     c.MonteCarlo.FDStep,
		Seed:       c.MonteCarlo.Seed,
		Workers:    c.MonteCarlo.Workers,
	}, nil
}

// HedgingParams converts the hedging section. underlyings is used when none are
// configured.
func (c *Config) HedgingParams(underlyings []string) (hedging.Params, error) {
	if len(c.Hedging.Underlyings) > 0 {
		underlyings = c.Hedging.Underlyings
	}
	if len(underlyings) != len(c.Model.Volatility) {
		return hedging.Params{}, fmt.Errorf("%w: %d underlyings for %d modelled assets", ErrInvalidConfig, len(underlyings), len(c.Model.Volatility))
	}
	start, err := c.CreationDate()
	if err != nil {
		return hedging.Params{}, err
	}
	dates, err := c.PaymentDates()
	if err != nil {
		return hedging.Params{}, err
	}
	return hedging.Params{
		Underlyings:       underlyings,
		PaymentDates:      dates,
		CreationDate:      start,
		Rate:              c.Model.InterestRate,
		Converter:         c.Converter(),
		RebalancingPeriod: c.Hedging.RebalancingPeriod,
	}, nil
}

// Logging returns the logger settings for one module of a service.
func (c LogConfig) Logging(service, module string) logging.Config {
	return logging.Config{
		Service:    service,
		Module:     module,
		Level:      c.Level,
		File:       c.File,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
}
