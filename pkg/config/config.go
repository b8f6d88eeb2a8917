// Package config loads the optional syncer config file: source zones to start
// with, a port and a store connection. cmd/zone_syncer starts the listed
// zones; it takes the port and the store from its command-line flags and does
// not read them from the file.
package config

import (
	"github.com/spf13/viper"

	"github.com/zonestor/zone_syncer/pkg/xerror"
)

type ZoneConfig struct {
	Name     string `mapstructure:"name"`
	Endpoint string `mapstructure:"endpoint"`
}

type StoreConfig struct {
	Type     string `mapstructure:"type"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type Config struct {
	Port  int          `mapstructure:"port"`
	Zones []ZoneConfig `mapstructure:"zones"`
	Store StoreConfig  `mapstructure:"store"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("port", 9190)
	v.SetDefault("store.type", "sqlite3")
	v.SetDefault("store.path", "zone_syncer.db")

	if err := v.ReadInConfig(); err != nil {
		return nil, xerror.Wrapf(err, xerror.Normal, "read config %s failed", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, xerror.Wrapf(err, xerror.Normal, "parse config %s failed", path)
	}
	return &cfg, nil
}
