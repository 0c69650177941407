// Package config loads salescast settings from the environment and an
// optional .env file.
package config

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/sartorproj/salescast/changepoint"
	"github.com/sartorproj/salescast/timeseries"
)

type Config struct {
	Data     Data     `mapstructure:",squash"`
	Forecast Forecast `mapstructure:",squash"`
	Server   Server   `mapstructure:",squash"`
	Log      Log      `mapstructure:",squash"`
}

type Data struct {
	SalesPath  string `mapstructure:"sales_path" validate:"required"`
	ShopsPath  string `mapstructure:"shops_path" validate:"required"`
	MinRecords int    `mapstructure:"min_records" validate:"gte=1"`
}

type Forecast struct {
	SeasonalPeriod int                  `mapstructure:"seasonal_period" validate:"gte=2"`
	Horizon        int                  `mapstructure:"horizon" validate:"gte=1"`
	Fractions      timeseries.Fractions `mapstructure:",squash"`
	Changepoint    changepoint.Options  `mapstructure:",squash"`
}

type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port" validate:"gte=1,lte=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
}

type Log struct {
	Level  string `mapstructure:"log_level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `mapstructure:"log_format" validate:"oneof=text json"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("SALES_PATH", "src/data/sales_train.csv")
	v.SetDefault("SHOPS_PATH", "src/data/shops.csv")
	v.SetDefault("MIN_RECORDS", 4)

	v.SetDefault("SEASONAL_PERIOD", 12)
	v.SetDefault("HORIZON", 12)
	v.SetDefault("TRAIN_FRAC", 0.8)
	v.SetDefault("VALID_FRAC", 0.1)
	v.SetDefault("TEST_FRAC", 0.1)

	cp := changepoint.DefaultOptions()
	v.SetDefault("CHANGEPOINTS", cp.NChangepoints)
	v.SetDefault("CHANGEPOINT_RANGE", cp.ChangepointRange)
	v.SetDefault("CHANGEPOINT_PRIOR_SCALE", cp.ChangepointPriorScale)
	v.SetDefault("SEASONALITY_PRIOR_SCALE", cp.SeasonalityPriorScale)
	v.SetDefault("YEARLY_ORDER", cp.YearlyOrder)
	v.SetDefault("YEARLY", string(cp.Yearly))
	v.SetDefault("INTERVAL_WIDTH", cp.IntervalWidth)

	v.SetDefault("HOST", "localhost")
	v.SetDefault("PORT", 8000)
	v.SetDefault("READ_TIMEOUT", "15s")
	v.SetDefault("WRITE_TIMEOUT", "2m")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// Load reads configuration with the precedence environment, then envFile
// (or .env in the working directory or its parent when envFile is empty),
// then defaults. The result is validated.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	values, err := readEnvFile(envFile)
	if err != nil {
		return nil, err
	}
	if len(values) > 0 {
		if err := v.MergeConfigMap(values); err != nil {
			return nil, errors.Wrap(err, "merge env file")
		}
	}

	cfg := &Config{}
	err = v.Unmarshal(cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	))
	if err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and the split fractions.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return c.Forecast.Fractions.Validate()
}

// Addr returns the listen address.
func (s Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// readEnvFile returns the key/value pairs of the env file, lowercased for
// viper. A missing default file is not an error; a missing explicit file is.
func readEnvFile(path string) (map[string]interface{}, error) {
	var locations []string
	if path != "" {
		locations = []string{path}
	} else if cwd, err := os.Getwd(); err == nil {
		locations = []string{
			filepath.Join(cwd, ".env"),
			filepath.Join(filepath.Dir(cwd), ".env"),
		}
	}

	for _, location := range locations {
		values, err := godotenv.Read(location)
		if err != nil {
			if path != "" {
				return nil, errors.Wrapf(err, "read env file %s", path)
			}
			continue
		}
		out := make(map[string]interface{}, len(values))
		for k, val := range values {
			out[strings.ToLower(k)] = val
		}
		return out, nil
	}
	return nil, nil
}
