package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Addr string `mapstructure:"addr"`

	DBDriver  string `mapstructure:"db_driver"`
	DBDSN     string `mapstructure:"db_dsn"`
	DBDialect string `mapstructure:"db_dialect"`
	DBMigrate bool   `mapstructure:"db_migrate"`
}

// LoadFromEnv reads configuration from HOOKBOARD_* environment variables,
// with an optional config.yaml alongside the binary or under /etc/hookboard/.
func LoadFromEnv() Config {
	v := viper.New()
	v.SetEnvPrefix("HOOKBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("db_migrate", true)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/hookboard/")
	_ = v.ReadInConfig() // ignore if not found

	cfg := Config{
		Addr:      v.GetString("addr"),
		DBDriver:  v.GetString("db_driver"),
		DBDSN:     v.GetString("db_dsn"),
		DBDialect: v.GetString("db_dialect"),
		DBMigrate: v.GetBool("db_migrate"),
	}
	if cfg.DBDialect == "" {
		cfg.DBDialect = dialectForDriver(cfg.DBDriver)
	}
	return cfg
}

func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Addr) == "" {
		problems = append(problems, "HOOKBOARD_ADDR must not be empty")
	}
	if c.DBDriver != "" && strings.TrimSpace(c.DBDSN) == "" {
		problems = append(problems, "HOOKBOARD_DB_DSN is required when HOOKBOARD_DB_DRIVER is set")
	}
	if c.DBDSN != "" && strings.TrimSpace(c.DBDriver) == "" {
		problems = append(problems, "HOOKBOARD_DB_DRIVER is required when HOOKBOARD_DB_DSN is set")
	}
	if c.DBDriver != "" {
		switch c.DBDialect {
		case "postgres", "sqlite":
		default:
			problems = append(problems, "HOOKBOARD_DB_DIALECT must be postgres or sqlite")
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(problems, "; "))
}

type StartupSummary struct {
	StoreMode string
	Migrate   bool
}

func (c Config) Summary() StartupSummary {
	mode := "memory"
	if c.DBDriver != "" && c.DBDSN != "" {
		mode = "sql:" + c.DBDialect
	}
	return StartupSummary{StoreMode: mode, Migrate: c.DBMigrate}
}

func dialectForDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "pgx":
		return "postgres"
	case "sqlite":
		return "sqlite"
	}
	return strings.ToLower(strings.TrimSpace(driver))
}
