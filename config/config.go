/*
Licensed to the Apache Software Foundation (ASF) under one
or more contributor license agreements.  See the NOTICE file
distributed with this work for additional information
regarding copyright ownership.  The ASF licenses this file
to you under the Apache License, Version 2.0 (the
"License"); you may not use this file except in compliance
with the License.  You may obtain a copy of the License at

  http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing,
software distributed under the License is distributed on an
"AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
KIND, either express or implied.  See the License for the
specific language governing permissions and limitations
under the License.
*/

package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/kube-ovs/subnet-controller/forwarding"
)

const envPrefix = "SUBNET_CONTROLLER"

// Config is the controller configuration.
type Config struct {
	// Listen is the address switches connect to.
	Listen string `mapstructure:"listen" yaml:"listen"`
	// SwitchAddr, when set, makes the controller dial a passive switch
	// instead of listening.
	SwitchAddr string `mapstructure:"switch_addr" yaml:"switch_addr"`
	// Subnet is the reference subnet inside which IPv4 traffic is flooded.
	Subnet string `mapstructure:"subnet" yaml:"subnet"`

	ReleaseDroppedBuffers bool          `mapstructure:"release_dropped_buffers" yaml:"release_dropped_buffers"`
	StatsInterval         time.Duration `mapstructure:"stats_interval" yaml:"stats_interval"`
	RedialInterval        time.Duration `mapstructure:"redial_interval" yaml:"redial_interval"`

	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls klog verbosity and the optional rotated log file.
type LogConfig struct {
	Verbosity  int    `mapstructure:"verbosity" yaml:"verbosity"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"listen":         "listen",
	"subnet":         "subnet",
	"switch-addr":    "switch_addr",
	"metrics-listen": "metrics.listen",
}

// Load reads the config file at path, if any, then applies
// SUBNET_CONTROLLER_* environment variables and the flags in flags that
// were set on the command line.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %q: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":6653")
	v.SetDefault("switch_addr", "")
	v.SetDefault("subnet", forwarding.DefaultSubnet)
	v.SetDefault("release_dropped_buffers", false)
	v.SetDefault("stats_interval", "1m")
	v.SetDefault("redial_interval", "5s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen", ":9091")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("log.verbosity", 0)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
}

func (c *Config) Validate() error {
	if _, err := c.SubnetNet(); err != nil {
		return fmt.Errorf("invalid subnet %q: %w", c.Subnet, err)
	}

	if c.Listen == "" && c.SwitchAddr == "" {
		return errors.New("one of listen or switch_addr must be set")
	}

	if c.StatsInterval < 0 {
		return fmt.Errorf("stats_interval must not be negative, got %s", c.StatsInterval)
	}

	if c.SwitchAddr != "" && c.RedialInterval <= 0 {
		return fmt.Errorf("redial_interval must be positive, got %s", c.RedialInterval)
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return errors.New("metrics.listen must be set when metrics are enabled")
	}

	return nil
}

// SubnetNet returns the parsed reference subnet.
func (c *Config) SubnetNet() (*net.IPNet, error) {
	return forwarding.ParseSubnet(c.Subnet)
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
