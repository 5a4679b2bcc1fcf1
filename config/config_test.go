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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", ":6653", "")
	flags.String("subnet", "10.0.0.0/24", "")
	flags.String("switch-addr", "", "")
	flags.String("metrics-listen", ":9091", "")
	return flags
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":6653", cfg.Listen)
	assert.Equal(t, "", cfg.SwitchAddr)
	assert.Equal(t, "10.0.0.0/24", cfg.Subnet)
	assert.False(t, cfg.ReleaseDroppedBuffers)
	assert.Equal(t, time.Minute, cfg.StatsInterval)
	assert.Equal(t, 5*time.Second, cfg.RedialInterval)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9091", cfg.Metrics.Listen)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 100, cfg.Log.MaxSizeMB)
	assert.True(t, cfg.Log.Compress)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
listen: "127.0.0.1:6633"
subnet: 192.168.10.0/24
release_dropped_buffers: true
stats_interval: 30s
metrics:
  enabled: false
log:
  verbosity: 2
  file: /var/log/subnet-controller.log
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:6633", cfg.Listen)
	assert.Equal(t, "192.168.10.0/24", cfg.Subnet)
	assert.True(t, cfg.ReleaseDroppedBuffers)
	assert.Equal(t, 30*time.Second, cfg.StatsInterval)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 2, cfg.Log.Verbosity)
	assert.Equal(t, "/var/log/subnet-controller.log", cfg.Log.File)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("SUBNET_CONTROLLER_SUBNET", "172.16.0.0/12")
	t.Setenv("SUBNET_CONTROLLER_METRICS_LISTEN", ":9191")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "172.16.0.0/12", cfg.Subnet)
	assert.Equal(t, ":9191", cfg.Metrics.Listen)
}

func TestLoadFlags(t *testing.T) {
	path := writeConfig(t, "subnet: 192.168.10.0/24\n")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--switch-addr", "10.1.1.1:6653", "--metrics-listen", ":9999"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	// unset flags leave the file and defaults alone
	assert.Equal(t, "192.168.10.0/24", cfg.Subnet)
	assert.Equal(t, ":6653", cfg.Listen)
	assert.Equal(t, "10.1.1.1:6653", cfg.SwitchAddr)
	assert.Equal(t, ":9999", cfg.Metrics.Listen)

	flags = testFlags()
	require.NoError(t, flags.Parse([]string{"--subnet", "10.9.0.0/16"}))
	cfg, err = Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "10.9.0.0/16", cfg.Subnet)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Listen:         ":6653",
			Subnet:         "10.0.0.0/24",
			StatsInterval:  time.Minute,
			RedialInterval: time.Second,
			Metrics:        MetricsConfig{Enabled: true, Listen: ":9091"},
		}
	}

	testcases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "invalid subnet", mutate: func(c *Config) { c.Subnet = "10.0.0.0/33" }, wantErr: true},
		{name: "IPv6 subnet", mutate: func(c *Config) { c.Subnet = "fd00::/64" }, wantErr: true},
		{name: "nowhere to connect", mutate: func(c *Config) { c.Listen = "" }, wantErr: true},
		{name: "dial only", mutate: func(c *Config) { c.Listen = ""; c.SwitchAddr = "10.0.0.1" }},
		{name: "negative stats interval", mutate: func(c *Config) { c.StatsInterval = -time.Second }, wantErr: true},
		{name: "stats disabled", mutate: func(c *Config) { c.StatsInterval = 0 }},
		{name: "dial without redial interval", mutate: func(c *Config) { c.SwitchAddr = "10.0.0.1"; c.RedialInterval = 0 }, wantErr: true},
		{name: "metrics without listen", mutate: func(c *Config) { c.Metrics.Listen = "" }, wantErr: true},
		{name: "metrics disabled", mutate: func(c *Config) { c.Metrics = MetricsConfig{} }},
	}

	for _, testcase := range testcases {
		t.Run(testcase.name, func(t *testing.T) {
			cfg := valid()
			testcase.mutate(&cfg)

			err := cfg.Validate()
			if testcase.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadInvalidSubnet(t *testing.T) {
	t.Setenv("SUBNET_CONTROLLER_SUBNET", "not-a-subnet")

	_, err := Load("", nil)
	assert.Error(t, err)
}

func TestYAML(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	out, err := cfg.YAML()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, "10.0.0.0/24", decoded["subnet"])
	assert.Equal(t, ":6653", decoded["listen"])
	assert.Contains(t, decoded, "metrics")
}
