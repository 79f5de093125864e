package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config: корневая структура конфигурации сервиса.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Provider ProviderConfig `mapstructure:"provider"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Activity ActivityConfig `mapstructure:"activity"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	MetricsPort  int           `mapstructure:"metrics_port"` // 0: /metrics не поднимается
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr: адрес для http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ProviderConfig: OpenAI-совместимый LLM провайдер (по умолчанию Groq).
type ProviderConfig struct {
	Name        string        `mapstructure:"name"` // подставляется в тексты ошибок
	Mode        string        `mapstructure:"mode"` // live | mock
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// EngineConfig: защита исходящих вызовов и буфер архиватора.
type EngineConfig struct {
	ProviderRPS   float64 `mapstructure:"provider_rps"` // 0: без ограничения
	ProviderBurst int     `mapstructure:"provider_burst"`

	// Настройки Circuit Breaker для провайдера
	CBMaxFailures uint32        `mapstructure:"cb_max_failures"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`

	AuditBufferSize    int           `mapstructure:"audit_buffer_size"`
	AuditFlushInterval time.Duration `mapstructure:"audit_flush_interval"`
}

type ActivityConfig struct {
	Retention int `mapstructure:"retention"`
}

// DatabaseConfig описывает подключение архива. Пустой URL: архив выключен.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres | sqlite
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (Pub/Sub событий реестра).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig: публичный ключ для проверки RS256 токенов.
type AuthConfig struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
	PublicKey     []byte
}

// Enabled: периметр включается только при наличии ключа.
func (a AuthConfig) Enabled() bool {
	return len(a.PublicKey) > 0
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя .env, файл и ENV.
// paths перекрывает каталоги поиска config.yaml (по умолчанию . и ./configs).
func LoadConfig(paths ...string) (*Config, error) {
	// 0. .env: не обязателен
	_ = godotenv.Load()

	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./configs"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// 2. Переменные окружения: PROVIDER_API_KEY перекроет provider.api_key
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет: работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. Старое имя переменной из .env прежнего бэкенда
	if cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = os.Getenv("GROQ_API_KEY")
	}

	// 7. Ключ из ENV (Docker/K8s) или из файла
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate отсекает заведомо нерабочие комбинации до старта.
func (c *Config) Validate() error {
	switch c.Provider.Mode {
	case "live", "mock":
	default:
		return fmt.Errorf("config: provider.mode must be live or mock, got %q", c.Provider.Mode)
	}
	if c.Database.URL != "" {
		switch strings.ToLower(c.Database.Driver) {
		case "postgres", "postgresql", "pgx", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("config: unsupported database.driver %q", c.Database.Driver)
		}
	}
	if c.Provider.Temperature < 0 || c.Provider.MaxTokens <= 0 {
		return fmt.Errorf("config: invalid generation settings (temperature=%v, max_tokens=%d)",
			c.Provider.Temperature, c.Provider.MaxTokens)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.read_timeout", 5*time.Second)
	// Ответ провайдера может идти до provider.timeout
	v.SetDefault("server.write_timeout", 35*time.Second)

	v.SetDefault("provider.name", "Groq")
	v.SetDefault("provider.mode", "live")
	v.SetDefault("provider.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.model", "llama3-70b-8192")
	v.SetDefault("provider.temperature", 0.7)
	v.SetDefault("provider.max_tokens", 1024)
	v.SetDefault("provider.timeout", 30*time.Second)

	v.SetDefault("engine.provider_rps", 0)
	v.SetDefault("engine.provider_burst", 1)
	v.SetDefault("engine.cb_max_failures", 5)
	v.SetDefault("engine.cb_interval", time.Minute)
	v.SetDefault("engine.cb_timeout", 30*time.Second)
	v.SetDefault("engine.audit_buffer_size", 10000)
	v.SetDefault("engine.audit_flush_interval", 500*time.Millisecond)

	v.SetDefault("activity.retention", 1000)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.public_key_path", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

// loadKeyResource: PEM прямо в ENV имеет приоритет над файлом.
func loadKeyResource(path string, envDataKey string) []byte {
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
