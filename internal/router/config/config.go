package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress    string        `mapstructure:"SERVER_ADDRESS"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	PostgresConn     string        `mapstructure:"POSTGRES_CONN"`
	PostgresMaxConns int32         `mapstructure:"POSTGRES_MAX_CONNS"`
	MigrationURL     string        `mapstructure:"MIGRATION_URL"`
	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	LogFormat        string        `mapstructure:"LOG_FORMAT"`
	MinioEndpoint    string        `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey   string        `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey   string        `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket      string        `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL      bool          `mapstructure:"MINIO_USE_SSL"`
}

var configKeys = []string{
	"SERVER_ADDRESS", "REQUEST_TIMEOUT",
	"POSTGRES_CONN", "POSTGRES_MAX_CONNS",
	"MIGRATION_URL", "JWT_SECRET", "LOG_LEVEL", "LOG_FORMAT",
	"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_USE_SSL",
}

// LoadConfig загружает конфигурацию из файла app.env; переменные окружения имеют приоритет.
// Отсутствие файла не считается ошибкой.
func LoadConfig(path string) (cfg Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("SERVER_ADDRESS", "0.0.0.0:8080")
	v.SetDefault("REQUEST_TIMEOUT", 5*time.Second)
	v.SetDefault("POSTGRES_MAX_CONNS", 10)
	v.SetDefault("MIGRATION_URL", "file://migrations")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("MINIO_BUCKET", "bid-documents")

	v.AutomaticEnv()
	for _, key := range configKeys {
		if err = v.BindEnv(key); err != nil {
			return
		}
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&cfg); err != nil {
		return
	}
	if cfg.PostgresConn == "" {
		err = errors.New("POSTGRES_CONN is required")
		return
	}
	if cfg.JWTSecret == "" {
		err = errors.New("JWT_SECRET is required")
	}
	return
}
