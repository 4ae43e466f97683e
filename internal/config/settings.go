// Package config loads and validates server settings via
// github.com/spf13/viper, generalizing
// original_source/src/server.h's struct server_settings (host, port,
// worker/process count, listen backlog, read buffer size, request
// size limit, URI length limit, document root, and logging) into a
// single bindable struct.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Settings is the Go analogue of struct server_settings.
type Settings struct {
	Host string
	Port int

	WorkerCount   int // original's process_count
	ListenBacklog int

	ReadBufSize    int
	ReqSizeLimit   int
	URILengthLimit int

	StaticDir string

	LogLevel    string
	LogFilename string
	LogToStdout bool

	// MetricsAddr is the listen address for the Prometheus /metrics
	// endpoint (not part of original_source/src/server.h: metrics are
	// a SPEC_FULL.md domain-stack addition). Empty disables it.
	MetricsAddr string
}

// Defaults returns the settings this server falls back to when no
// config file or environment variable overrides a field.
func Defaults() Settings {
	return Settings{
		Host:           "0.0.0.0",
		Port:           8080,
		WorkerCount:    4,
		ListenBacklog:  128,
		ReadBufSize:    8192,
		ReqSizeLimit:   8192,
		URILengthLimit: 2048,
		StaticDir:      ".",
		LogLevel:       "info",
		LogToStdout:    true,
		MetricsAddr:    ":9100",
	}
}

// Load reads settings via viper: STATICD_-prefixed environment
// variables override values from configPath (if non-empty), which in
// turn override Defaults().
func Load(configPath string) (Settings, error) {
	v := viper.New()
	d := Defaults()
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("worker_count", d.WorkerCount)
	v.SetDefault("listen_backlog", d.ListenBacklog)
	v.SetDefault("read_buf_size", d.ReadBufSize)
	v.SetDefault("req_size_limit", d.ReqSizeLimit)
	v.SetDefault("uri_length_limit", d.URILengthLimit)
	v.SetDefault("static_dir", d.StaticDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_filename", d.LogFilename)
	v.SetDefault("log_to_stdout", d.LogToStdout)
	v.SetDefault("metrics_addr", d.MetricsAddr)

	v.SetEnvPrefix("staticd")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read config %q: %w", configPath, err)
		}
	}

	settings := Settings{
		Host:           v.GetString("host"),
		Port:           v.GetInt("port"),
		WorkerCount:    v.GetInt("worker_count"),
		ListenBacklog:  v.GetInt("listen_backlog"),
		ReadBufSize:    v.GetInt("read_buf_size"),
		ReqSizeLimit:   v.GetInt("req_size_limit"),
		URILengthLimit: v.GetInt("uri_length_limit"),
		StaticDir:      v.GetString("static_dir"),
		LogLevel:       v.GetString("log_level"),
		LogFilename:    v.GetString("log_filename"),
		LogToStdout:    v.GetBool("log_to_stdout"),
		MetricsAddr:    v.GetString("metrics_addr"),
	}
	return settings, nil
}

// Validate reproduces original_source/src/server.c's
// validate_settings exactly: process count, URI length limit, and
// listen backlog must all be nonzero.
func (s Settings) Validate() error {
	if s.WorkerCount == 0 {
		return fmt.Errorf("invalid worker count %d", s.WorkerCount)
	}
	if s.URILengthLimit == 0 {
		return fmt.Errorf("invalid uri length limit (must be nonzero)")
	}
	if s.ListenBacklog == 0 {
		return fmt.Errorf("listen backlog size too small")
	}
	return nil
}
