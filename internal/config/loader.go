package config

import (
	"fmt"
	"time"

	"github.com/jmvega/xlsx-loader/internal/db"
	"github.com/spf13/viper"
)

// Config collects every tunable the server reads at boot.
type Config struct {
	ServerAddr     string
	MigrationsPath string
	Database       db.Config
	AsyncThreshold int
	MaxUploadSize  int64
	TaskTimeLimit  time.Duration
	TaskQueueSize  int
	CORSOrigins    []string
	LogLevel       string
	LogFormat      string
}

// Default returns the configuration used when no file or env overrides exist.
// The async threshold and upload cap match the original deployment defaults.
func Default() Config {
	return Config{
		ServerAddr:     ":8080",
		MigrationsPath: "./migrations",
		Database:       db.DefaultConfig(),
		AsyncThreshold: 200,
		MaxUploadSize:  10 << 20,
		TaskTimeLimit:  time.Hour,
		TaskQueueSize:  16,
		CORSOrigins:    []string{"http://localhost:4200"},
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load reads config.yaml from configPath and applies environment overrides
// with the LOADER_ prefix (LOADER_DATABASE_HOST, LOADER_UPLOAD_ASYNC_THRESHOLD, ...).
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("LOADER")

	v.BindEnv("server.addr")
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("upload.async_threshold")
	v.BindEnv("upload.max_size")
	v.BindEnv("tasks.time_limit")
	v.BindEnv("tasks.queue_size")
	v.BindEnv("log.level")
	v.BindEnv("log.format")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Just log it, use defaults + env
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	if v.IsSet("server.addr") {
		cfg.ServerAddr = v.GetString("server.addr")
	}
	if v.IsSet("server.migrations_path") {
		cfg.MigrationsPath = v.GetString("server.migrations_path")
	}
	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("upload.async_threshold") {
		cfg.AsyncThreshold = v.GetInt("upload.async_threshold")
	}
	if v.IsSet("upload.max_size") {
		cfg.MaxUploadSize = v.GetInt64("upload.max_size")
	}
	if v.IsSet("tasks.time_limit") {
		cfg.TaskTimeLimit = v.GetDuration("tasks.time_limit")
	}
	if v.IsSet("tasks.queue_size") {
		cfg.TaskQueueSize = v.GetInt("tasks.queue_size")
	}
	if v.IsSet("cors.origins") {
		cfg.CORSOrigins = v.GetStringSlice("cors.origins")
	}
	if v.IsSet("log.level") {
		cfg.LogLevel = v.GetString("log.level")
	}
	if v.IsSet("log.format") {
		cfg.LogFormat = v.GetString("log.format")
	}

	return cfg, nil
}
