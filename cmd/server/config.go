package server

import (
	"errors"
	"strings"

	"github.com/generativelabs/stakeserver/internal/api"
	"github.com/generativelabs/stakeserver/internal/db"
	"github.com/spf13/viper"
)

const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageMySQL  = "mysql"
)

type Config struct {
	Storage struct {
		// Driver selects the store: memory, sqlite or mysql
		Driver string `mapstructure:"driver"`
		// SQLitePath is the database file used by the sqlite driver
		SQLitePath string `mapstructure:"sqlite-path"`
	} `mapstructure:"storage"`

	Mysql db.Config `mapstructure:"mysql"`

	Auth struct {
		Tokens []api.TokenEntry `mapstructure:"tokens"`
	} `mapstructure:"auth"`

	RateLimit struct {
		// PerMinute is the per-client request budget, 0 disables limiting
		PerMinute int `mapstructure:"per-minute"`
		Burst     int `mapstructure:"burst"`
	} `mapstructure:"rate-limit"`

	Log struct {
		Level  string `mapstructure:"level"`
		Pretty bool   `mapstructure:"pretty"`
	} `mapstructure:"log"`

	ServicePort int `mapstructure:"service-port"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.driver", StorageMemory)
	v.SetDefault("storage.sqlite-path", "stake-server.db")
	v.SetDefault("mysql.user", "")
	v.SetDefault("mysql.host", "127.0.0.1:3306")
	v.SetDefault("mysql.database", "staking")
	v.SetDefault("mysql.password", "")
	v.SetDefault("auth.tokens", []map[string]any{})
	v.SetDefault("rate-limit.per-minute", 600)
	v.SetDefault("rate-limit.burst", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("service-port", 3000)
}

// LoadConfig reads stake-server.yml from the working directory, or path when
// given, and applies STAKESERVER_* environment overrides. A missing default
// file is not an error.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("stake-server")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("stakeserver")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}
