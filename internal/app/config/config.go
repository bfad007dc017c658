package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		Env       string
		Port      string
		Host      string
		ClientURL string
	}

	Server struct {
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		IdleTimeout     time.Duration
		ShutdownTimeout time.Duration
	}

	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	Storage struct {
		Endpoint  string
		AccessKey string
		SecretKey string
		UseSSL    bool
		Bucket    string
	}

	WhatsApp struct {
		SessionsDir  string
		DebugLevel   string
		PrintQRCodes bool
	}

	Billing struct {
		MessageCost int64
	}

	Webhook struct {
		Workers   int
		QueueSize int
	}

	Logging struct {
		Level          string
		Output         string
		ConsoleFormat  string
		FilePath       string
		FileMaxSize    int
		FileMaxBackups int
		FileMaxAge     int
		FileCompress   bool
		ConsoleColors  bool
	}

	RateLimit struct {
		Requests int
		Window   time.Duration
	}
}

func LoadConfig() (*Config, error) {
	// Carregar .env se existir
	_ = godotenv.Load()

	cfg := &Config{}

	// App
	cfg.App.Env = getEnv("APP_ENV", "development")
	cfg.App.Port = getEnv("PORT", "5000")
	cfg.App.Host = getEnv("APP_HOST", "0.0.0.0")
	cfg.App.ClientURL = getEnv("CLIENT_URL", "")

	// Servidor HTTP. O prazo de shutdown cobre o dreno das requisições
	// em curso e o encerramento dos supervisores de sessão.
	cfg.Server.ReadTimeout = getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second)
	cfg.Server.WriteTimeout = getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second)
	cfg.Server.IdleTimeout = getEnvAsDuration("SERVER_IDLE_TIMEOUT", 120*time.Second)
	cfg.Server.ShutdownTimeout = getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second)

	// Database
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnv("DB_PORT", "5432")
	cfg.Database.User = getEnv("DB_USER", "wasgate")
	cfg.Database.Password = getEnv("DB_PASSWORD", "wasgate123")
	cfg.Database.Name = getEnv("DB_NAME", "wasgate")
	cfg.Database.SSLMode = getEnv("DB_SSL_MODE", "disable")

	// Object storage (árvores de autenticação das sessões)
	cfg.Storage.Endpoint = getEnv("STORAGE_ENDPOINT", "localhost:9000")
	cfg.Storage.AccessKey = getEnv("STORAGE_ACCESS_KEY", "")
	cfg.Storage.SecretKey = getEnv("STORAGE_SECRET_KEY", "")
	cfg.Storage.UseSSL = getEnvAsBool("STORAGE_USE_SSL", false)
	cfg.Storage.Bucket = getEnv("STORAGE_BUCKET", "whatsapp-sessions")

	// WhatsApp
	cfg.WhatsApp.SessionsDir = getEnv("SESSIONS_DIR", "data/sessions")
	cfg.WhatsApp.DebugLevel = getEnv("WA_DEBUG_LEVEL", "INFO")
	cfg.WhatsApp.PrintQRCodes = getEnvAsBool("WA_PRINT_QR", cfg.App.Env == "development")

	// Billing
	cfg.Billing.MessageCost = int64(getEnvAsInt("MESSAGE_COST", 10))

	// Webhook fan-out
	cfg.Webhook.Workers = getEnvAsInt("WEBHOOK_WORKERS", 8)
	cfg.Webhook.QueueSize = getEnvAsInt("WEBHOOK_QUEUE_SIZE", 256)

	// Logging
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")
	cfg.Logging.Output = getEnv("LOG_OUTPUT", "dual")
	cfg.Logging.ConsoleFormat = getEnv("LOG_CONSOLE_FORMAT", "console")
	cfg.Logging.FilePath = getEnv("LOG_FILE_PATH", "logs/wasgate.log")
	cfg.Logging.FileMaxSize = getEnvAsInt("LOG_FILE_MAX_SIZE", 100)
	cfg.Logging.FileMaxBackups = getEnvAsInt("LOG_FILE_MAX_BACKUPS", 3)
	cfg.Logging.FileMaxAge = getEnvAsInt("LOG_FILE_MAX_AGE", 28)
	cfg.Logging.FileCompress = getEnvAsBool("LOG_FILE_COMPRESS", true)
	cfg.Logging.ConsoleColors = getEnvAsBool("LOG_CONSOLE_COLORS", true)

	// Rate limit da camada HTTP (limites de negócio ficam no pipeline)
	cfg.RateLimit.Requests = getEnvAsInt("RATE_LIMIT_REQUESTS", 100)
	windowStr := getEnv("RATE_LIMIT_WINDOW", "1m")
	window, err := time.ParseDuration(windowStr)
	if err != nil {
		window = 1 * time.Minute
	}
	cfg.RateLimit.Window = window

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func (c *Config) GetDatabaseDSN() string {
	return "postgres://" + c.Database.User + ":" + c.Database.Password +
		"@" + c.Database.Host + ":" + c.Database.Port +
		"/" + c.Database.Name + "?sslmode=" + c.Database.SSLMode
}

// Implementação da interface ConfigProvider para integração com o logger
func (c *Config) GetLogLevel() string         { return c.Logging.Level }
func (c *Config) GetLogOutput() string        { return c.Logging.Output }
func (c *Config) GetLogConsoleFormat() string { return c.Logging.ConsoleFormat }
func (c *Config) GetLogFilePath() string      { return c.Logging.FilePath }
func (c *Config) GetLogFileMaxSize() int      { return c.Logging.FileMaxSize }
func (c *Config) GetLogFileMaxBackups() int   { return c.Logging.FileMaxBackups }
func (c *Config) GetLogFileMaxAge() int       { return c.Logging.FileMaxAge }
func (c *Config) GetLogFileCompress() bool    { return c.Logging.FileCompress }
func (c *Config) GetLogConsoleColors() bool   { return c.Logging.ConsoleColors }
