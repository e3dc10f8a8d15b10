package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	RabbitMQ  RabbitMQConfig
	Targets   TargetsConfig
	AI        AIConfig
	Scheduler SchedulerConfig
	Env       string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// RabbitMQConfig holds RabbitMQ configuration
type RabbitMQConfig struct {
	Host      string
	Port      string
	User      string
	Password  string
	QueueName string
}

// TargetsConfig holds target-list side file configuration
type TargetsConfig struct {
	Dir string
}

// AIConfig holds the LLM collaborator configuration. An empty API key
// disables the AI path and the service falls back to the rule engine.
type AIConfig struct {
	APIKey string
	Model  string
}

// SchedulerConfig holds the worker sweep cadence
type SchedulerConfig struct {
	SweepInterval time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "targetup"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			DBName:   getEnv("POSTGRES_DB", "targetup_db"),
		},
		RabbitMQ: RabbitMQConfig{
			Host:      getEnv("RABBITMQ_HOST", "localhost"),
			Port:      getEnv("RABBITMQ_PORT", "5672"),
			User:      getEnv("RABBITMQ_DEFAULT_USER", "guest"),
			Password:  getEnv("RABBITMQ_DEFAULT_PASS", "guest"),
			QueueName: getEnv("RABBITMQ_DISPATCH_QUEUE", "campaign_dispatch"),
		},
		Targets: TargetsConfig{
			Dir: getEnv("TARGETS_DIR", "data/targets"),
		},
		AI: AIConfig{
			APIKey: getEnv("ANTHROPIC_API_KEY", ""),
			Model:  getEnv("CLAUDE_MODEL", ""),
		},
		Scheduler: SchedulerConfig{
			SweepInterval: time.Duration(getEnvAsInt("SWEEP_INTERVAL_SECONDS", 30)) * time.Second,
		},
		Env: getEnv("ENV", "development"),
	}

	// Validate required fields
	if config.Database.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD is required")
	}

	return config, nil
}

// GetDatabaseDSN returns PostgreSQL connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// GetRabbitMQURL returns RabbitMQ connection URL
func (c *Config) GetRabbitMQURL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		c.RabbitMQ.User,
		c.RabbitMQ.Password,
		c.RabbitMQ.Host,
		c.RabbitMQ.Port,
	)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// getEnv gets environment variable or returns default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets environment variable as integer or returns default
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
