package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации всей платформы.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Model      ModelConfig      `mapstructure:"model"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Report     ReportConfig     `mapstructure:"report"`
	Response   ResponseConfig   `mapstructure:"response"`
	Assets     AssetsConfig     `mapstructure:"assets"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера детекции.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	MetricsPort  int           `mapstructure:"metrics_port"`
	ConsolePort  int           `mapstructure:"console_port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ModelConfig — путь к артефакту пайплайна (scaler + features + порог).
type ModelConfig struct {
	ArtifactPath string `mapstructure:"artifact_path"`
}

// LedgerConfig выбирает бэкенд форензик-леджера.
// backend: file (локальный JSONL, дефолт), postgres, redis.
type LedgerConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`       // для file
	DSN     string `mapstructure:"dsn"`        // для postgres
	Stream  string `mapstructure:"stream_key"` // для redis
}

// ReportConfig — хранилище человекочитаемых отчетов об инцидентах.
type ReportConfig struct {
	Backend       string        `mapstructure:"backend"` // file | postgres
	Path          string        `mapstructure:"path"`
	DSN           string        `mapstructure:"dsn"`
	BufferSize    int           `mapstructure:"buffer_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// ResponseConfig управляет поведением диспетчера плейбуков.
type ResponseConfig struct {
	// SimulationMode: containment считается, но в облако не ходим
	SimulationMode bool `mapstructure:"simulation_mode"`

	// Таймаут одного обращения к провайдеру: зависший провайдер
	// не должен останавливать путь детекции
	ContainmentTimeout time.Duration `mapstructure:"containment_timeout"`

	// Настройки Circuit Breaker для облачных вызовов
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
}

// AssetsConfig — периодичность discovery-прохода по провайдерам.
type AssetsConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// ProvidersConfig включает облачных коллабораторов.
// Провайдер активен, только когда заполнены его реквизиты.
type ProvidersConfig struct {
	AWS    AWSConfig    `mapstructure:"aws"`
	Azure  AzureConfig  `mapstructure:"azure"`
	Static StaticConfig `mapstructure:"static"`
}

type AWSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
}

type AzureConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	SubscriptionID string `mapstructure:"subscription_id"`
	ResourceGroup  string `mapstructure:"resource_group"`
}

// StaticConfig — ассеты, заданные прямо в конфиге (standalone/демо режим).
// Ключ — сетевой идентификатор, значение — "cloud:provider_ref".
type StaticConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	Assets  map[string]string `mapstructure:"assets"`
}

// ThresholdsConfig — пороги классификатора атак.
// Это политика SOC, а не константы кода: значения можно ужесточать
// или ослаблять без пересборки. Дефолты — канонические.
type ThresholdsConfig struct {
	BruteForceAuthCount float64 `mapstructure:"brute_force_auth_count"` // Failed_Auth_Count >
	PortScanCallFreq    float64 `mapstructure:"port_scan_call_freq"`    // API_Call_Freq > (вместе с egress)
	PortScanEgressMB    float64 `mapstructure:"port_scan_egress_mb"`    // Network_Egress_MB >
	ExfiltrationMB      float64 `mapstructure:"exfiltration_mb"`        // Network_Egress_MB >
	DDoSCallFreq        float64 `mapstructure:"ddos_call_freq"`         // API_Call_Freq >
}

// RedisConfig описывает подключение к Redis (реестр containment + леджер).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig содержит путь к публичному RSA ключу для проверки токенов API.
// Если ключ не задан — API открыт (режим закрытого периметра).
type AuthConfig struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
	PublicKey     []byte
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 2. ENV перекрывает файл: LEDGER_BACKEND=postgres перекроет ledger.backend
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Дефолты
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. Ключ API: сначала сам PEM из ENV (для Docker/K8s), иначе файл
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.console_port", 8000)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("model.artifact_path", "configs/model/pipeline.json")

	v.SetDefault("ledger.backend", "file")
	v.SetDefault("ledger.path", "ledger/forensic_audit_ledger.jsonl")
	v.SetDefault("ledger.stream_key", "hawkgrid:ledger")

	v.SetDefault("report.backend", "file")
	v.SetDefault("report.path", "reports/forensic_audit.json")
	v.SetDefault("report.buffer_size", 1000)
	v.SetDefault("report.flush_interval", 1*time.Second)

	v.SetDefault("response.simulation_mode", true)
	v.SetDefault("response.containment_timeout", 10*time.Second)
	v.SetDefault("response.cb_max_requests", 3)
	v.SetDefault("response.cb_interval", 5*time.Second)
	v.SetDefault("response.cb_timeout", 30*time.Second)

	v.SetDefault("assets.refresh_interval", 5*time.Minute)

	// Канонические пороги классификатора
	v.SetDefault("thresholds.brute_force_auth_count", 40.0)
	v.SetDefault("thresholds.port_scan_call_freq", 60.0)
	v.SetDefault("thresholds.port_scan_egress_mb", 50.0)
	v.SetDefault("thresholds.exfiltration_mb", 500.0)
	v.SetDefault("thresholds.ddos_call_freq", 150.0)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

// Addr собирает listen-адрес из host и порта.
func Addr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}

// loadKeyResource — универсальный хелпер: ключ из ENV или из файла
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
