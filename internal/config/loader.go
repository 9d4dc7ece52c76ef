package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Database holds connection settings for the Postgres pool.
type Database struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Server holds HTTP listener settings.
type Server struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// Import holds tunables for the bulk ingestion pipeline.
type Import struct {
	BatchSize     int
	MaxUploadSize int64
}

// Webhooks holds tunables for the asynchronous delivery pool.
type Webhooks struct {
	Workers         int
	QueueSize       int
	DeliveryTimeout time.Duration
}

// Config is the full service configuration.
type Config struct {
	Database Database
	Server   Server
	Import   Import
	Webhooks Webhooks
}

// Default returns the configuration used when config.yaml and environment
// overrides are absent.
func Default() Config {
	return Config{
		Database: Database{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "admin",
			DBName:   "fulfill",
			SSLMode:  "disable",
		},
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"http://localhost:3000"},
		},
		Import: Import{
			BatchSize:     5000,
			MaxUploadSize: 64 << 20,
		},
		Webhooks: Webhooks{
			Workers:         4,
			QueueSize:       1024,
			DeliveryTimeout: 10 * time.Second,
		},
	}
}

// Load reads config.yaml from configPath and applies environment overrides
// (FULFILL_DATABASE_HOST, FULFILL_SERVER_ADDR, ...). A missing file is not an
// error; defaults plus environment apply.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix("FULFILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.addr")
	v.BindEnv("import.batch_size")
	v.BindEnv("webhooks.workers")
	v.BindEnv("webhooks.queue_size")
	v.BindEnv("webhooks.delivery_timeout")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
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

	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.read_timeout") {
		cfg.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	}
	if v.IsSet("server.write_timeout") {
		cfg.Server.WriteTimeout = v.GetDuration("server.write_timeout")
	}
	if v.IsSet("server.idle_timeout") {
		cfg.Server.IdleTimeout = v.GetDuration("server.idle_timeout")
	}
	if v.IsSet("server.shutdown_timeout") {
		cfg.Server.ShutdownTimeout = v.GetDuration("server.shutdown_timeout")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}

	if v.IsSet("import.batch_size") {
		cfg.Import.BatchSize = v.GetInt("import.batch_size")
	}
	if v.IsSet("import.max_upload_size") {
		cfg.Import.MaxUploadSize = v.GetInt64("import.max_upload_size")
	}

	if v.IsSet("webhooks.workers") {
		cfg.Webhooks.Workers = v.GetInt("webhooks.workers")
	}
	if v.IsSet("webhooks.queue_size") {
		cfg.Webhooks.QueueSize = v.GetInt("webhooks.queue_size")
	}
	if v.IsSet("webhooks.delivery_timeout") {
		cfg.Webhooks.DeliveryTimeout = v.GetDuration("webhooks.delivery_timeout")
	}

	return cfg, nil
}
