package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AuthModeLegacy = "legacy"
	AuthModeJWT    = "jwt"

	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Port        string
	Env         string
	AuthMode    string
	JWTSecret   string
	StoreDriver string
	CORSOrigins []string

	Postgres PostgresConfig
	Redis    RedisConfig
	Scylla   ScyllaConfig
	Elastic  ElasticConfig
	Minio    MinioConfig
	Kafka    KafkaConfig
	SMTP     SMTPConfig
	Bank     BankConfig

	CheckoutRateLimit   int
	LowStockThreshold   int
	AsyncEvents         bool
	ShutdownGracePeriod time.Duration
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
}

type ScyllaConfig struct {
	Hosts    []string
	Keyspace string
	Username string
	Password string
	CACert   string
}

type ElasticConfig struct {
	URL       string
	Username  string
	Password  string
	BookIndex string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	ShopURL  string
}

type BankConfig struct {
	Holder   string
	Number   string
	BIC      string
	Bank     string
	Currency string
}

// Load charge .env (s'il existe) puis lit la configuration depuis l'environnement
func Load() *Config {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé, on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}
	return FromEnv()
}

func FromEnv() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("APP_ENV", "development"),
		AuthMode:    strings.ToLower(getEnv("AUTH_MODE", AuthModeLegacy)),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		CORSOrigins: getList("CORS_ORIGINS", []string{"http://localhost:3000"}),

		Postgres: PostgresConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "bookstore"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_HOST", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Scylla: ScyllaConfig{
			Hosts:    getList("SCYLLA_HOSTS", nil),
			Keyspace: getEnv("SCYLLA_KEYSPACE", "ks_bookstore"),
			Username: getEnv("SCYLLA_USERNAME", ""),
			Password: getEnv("SCYLLA_PASSWORD", ""),
			CACert:   getEnv("SCYLLA_SSL_CA_PATH", ""),
		},
		Elastic: ElasticConfig{
			URL:       getEnv("ELASTIC_URL", ""),
			Username:  getEnv("ELASTIC_USER", ""),
			Password:  getEnv("ELASTIC_PASSWORD", ""),
			BookIndex: getEnv("ELASTIC_BOOK_INDEX", "books"),
		},
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "bookstore"),
			UseSSL:    getBool("MINIO_USE_SSL", false),
		},
		Kafka: KafkaConfig{
			Brokers:     getList("KAFKA_BROKERS", nil),
			TopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", "bookstore."),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@bookstore.local"),
			ShopURL:  getEnv("SHOP_URL", "http://localhost:3000"),
		},
		Bank: BankConfig{
			Holder:   getEnv("BANK_ACCOUNT_HOLDER", "Nguyen Van A"),
			Number:   getEnv("BANK_ACCOUNT_NUMBER", "123456789"),
			BIC:      getEnv("BANK_BIC", ""),
			Bank:     getEnv("BANK_NAME", "Ngân hàng ABC"),
			Currency: getEnv("BANK_CURRENCY", "VND"),
		},

		CheckoutRateLimit:   getInt("CHECKOUT_RATE_LIMIT", 10),
		LowStockThreshold:   getInt("LOW_STOCK_THRESHOLD", 10),
		AsyncEvents:         getBool("ASYNC_EVENTS", true),
		ShutdownGracePeriod: time.Duration(getInt("SHUTDOWN_GRACE_SECONDS", 10)) * time.Second,
	}
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("⚠️ %s invalide (%q), valeur par défaut %d", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return b
}

func getList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
