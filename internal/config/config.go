// Package config предоставляет структуры и функции для загрузки конфига
// клиента портала и dev-бэкенда.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"LMS_ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"LMS_STORAGE_DSN"`
	MigrationsPath          string `yaml:"migrations_path" env:"LMS_MIGRATIONS_PATH" env-default:"./migrations"`
	Backend                 `yaml:"backend"`
	Session                 `yaml:"session"`
	RedisConnection         `yaml:"redis_connection"`
	Guard                   `yaml:"guard"`
	Poll                    `yaml:"poll"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	DevBackend              `yaml:"devbackend"`
	Mailer                  `yaml:"mailer"`
}

// Backend настройки REST-клиента бэкенда LMS
type Backend struct {
	BaseURL  string        `yaml:"base_url" env:"LMS_BACKEND_URL" env-default:"http://localhost:8082"`
	Timeout  time.Duration `yaml:"timeout" env-default:"10s"`
	DeviceID string        `yaml:"device_id" env:"LMS_DEVICE_ID"`
	RPS      float64       `yaml:"rps" env-default:"10"`
	Burst    int           `yaml:"burst" env-default:"20"`
}

// Session настройки хранилища клиентской сессии
type Session struct {
	Driver    string `yaml:"driver" env:"LMS_SESSION_DRIVER" env-default:"file"`
	FilePath  string `yaml:"file_path" env:"LMS_SESSION_FILE"`
	KeyPrefix string `yaml:"key_prefix" env-default:"lms:"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// Guard настройки guard-ов навигации
type Guard struct {
	SubscriptionTimeout time.Duration `yaml:"subscription_timeout" env-default:"5s"`
}

// Poll интервалы фонового обновления списков
type Poll struct {
	DashboardInterval time.Duration `yaml:"dashboard_interval" env-default:"30s"`
	TicketsInterval   time.Duration `yaml:"tickets_interval" env-default:"10s"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8082"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey    string        `yaml:"jwt_secret_key" env:"LMS_JWT_SECRET"`
	TokenTTL        time.Duration `yaml:"token_ttl" env-default:"1h"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env-default:"720h"`
}

// RabbitMQ настройки подключения к брокеру уведомлений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"LMS_RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// DevBackend настройки dev-бэкенда: начальный администратор и лимит
// запросов на клиента
type DevBackend struct {
	AdminName     string  `yaml:"admin_name" env-default:"Administrator"`
	AdminEmail    string  `yaml:"admin_email" env:"LMS_ADMIN_EMAIL" env-default:"admin@lms.local"`
	AdminPassword string  `yaml:"admin_password" env:"LMS_ADMIN_PASSWORD"`
	ClientRPS     float64 `yaml:"client_rps" env-default:"20"`
	ClientBurst   int     `yaml:"client_burst" env-default:"40"`
}

// Mailer настройки SMTP для рассылки писем с кодами
type Mailer struct {
	SMTPHost string `yaml:"smtp_host" env:"LMS_SMTP_HOST" env-default:"localhost"`
	SMTPPort string `yaml:"smtp_port" env:"LMS_SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"smtp_user" env:"LMS_SMTP_USER"`
	SMTPPass string `yaml:"smtp_pass" env:"LMS_SMTP_PASS"`
	From     string `yaml:"from" env:"LMS_MAIL_FROM"`
	// Insecure отключает STARTTLS и авторизацию, для локального mailhog.
	Insecure bool `yaml:"insecure" env:"LMS_SMTP_INSECURE"`
}

// ErrNoConfigPath возвращается, когда путь к конфигу не задан.
var ErrNoConfigPath = errors.New("CONFIG_PATH is not set")

// Load читает конфиг из файла path. Пустой path означает конфиг
// только из переменных окружения и значений по умолчанию.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file: %s - does not exist", op, path)
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига по пути из CONFIG_PATH,
// завершает процесс при ошибке
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal(ErrNoConfigPath)
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Backend:\n"+
			"  BaseURL: %s\n"+
			"  Timeout: %s\n"+
			"  DeviceID: %s\n"+
			"Session:\n"+
			"  Driver: %s\n"+
			"  FilePath: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"Guard:\n"+
			"  SubscriptionTimeout: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"JWTToken:\n"+
			"  TokenTTL: %s\n",
		c.Env,
		c.BaseURL,
		c.Backend.Timeout,
		c.DeviceID,
		c.Driver,
		c.FilePath,
		c.AddressRedis,
		c.DB,
		c.SubscriptionTimeout,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.TokenTTL,
	)
}
