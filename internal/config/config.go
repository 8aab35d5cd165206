package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/dkassen/procmate/internal/logger"
	"github.com/dkassen/procmate/internal/supervisor"
)

// Config is the top-level TOML structure for the procmate daemon.
type Config struct {
	Server    ServerConfig        `mapstructure:"server"`
	Metrics   MetricsConfig       `mapstructure:"metrics"`
	Log       logger.DaemonConfig `mapstructure:"log"`
	History   HistoryConfig       `mapstructure:"history"`
	Sweep     SweepConfig         `mapstructure:"sweep"`
	Processes []ProcConfig        `mapstructure:"processes"`
}

type ServerConfig struct {
	Listen   string `mapstructure:"listen"`
	BasePath string `mapstructure:"base_path"`
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// HistoryConfig lists lifecycle event sink DSNs (sqlite path,
// postgres://..., clickhouse://...).
type HistoryConfig struct {
	Sinks []string `mapstructure:"sinks"`
}

// SweepConfig controls the autostart sweep schedule, in robfig/cron
// syntax ("@every 1m" or a five-field cron expression).
type SweepConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// ProcConfig describes one managed process in the config file.
type ProcConfig struct {
	Key         string            `mapstructure:"key"`
	Name        string            `mapstructure:"name"`
	Description string            `mapstructure:"description"`
	Tags        []string          `mapstructure:"tags"`
	Command     string            `mapstructure:"command"`
	Args        []string          `mapstructure:"args"`
	Executable  string            `mapstructure:"executable"`
	Interpreter string            `mapstructure:"interpreter"`
	WorkDir     string            `mapstructure:"workdir"`
	Env         map[string]string `mapstructure:"env"`

	Autostart        bool          `mapstructure:"autostart"`
	RestartOnCrash   bool          `mapstructure:"restart_on_crash"`
	DailyRestartAt   string        `mapstructure:"daily_restart_at"`
	MaxUptime        time.Duration `mapstructure:"max_uptime"`
	MaxLogLines      int           `mapstructure:"max_log_lines"`
	CollectResources bool          `mapstructure:"collect_resources"`

	Log logger.Config `mapstructure:"log"`
}

// Supervisor converts the file entry into a registration config.
// Metrics providers are attached by the daemon, not here.
func (p ProcConfig) Supervisor() supervisor.Config {
	return supervisor.Config{
		Key:            p.Key,
		Name:           p.Name,
		Description:    p.Description,
		Tags:           p.Tags,
		Command:        p.Command,
		Args:           p.Args,
		Executable:     p.Executable,
		Interpreter:    p.Interpreter,
		WorkDir:        p.WorkDir,
		Env:            p.Env,
		Autostart:      p.Autostart,
		RestartOnCrash: p.RestartOnCrash,
		DailyRestartAt: p.DailyRestartAt,
		MaxUptime:      p.MaxUptime,
		MaxLogLines:    p.MaxLogLines,
		Log:            p.Log,
	}
}

// Load reads and decodes a TOML config file, applying defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if c.Server.Listen == "" {
		c.Server.Listen = "127.0.0.1:8321"
	}
	if c.Sweep.Schedule == "" {
		c.Sweep.Schedule = "@every 1m"
	}
	seen := make(map[string]bool, len(c.Processes))
	for _, p := range c.Processes {
		if p.Key == "" {
			return nil, fmt.Errorf("%s: process entry without key", path)
		}
		if seen[p.Key] {
			return nil, fmt.Errorf("%s: duplicate process key %q", path, p.Key)
		}
		seen[p.Key] = true
	}
	return &c, nil
}
