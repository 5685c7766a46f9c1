package database

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"os"
	"time"

	"bookstore_back_end/internal/cache"
	"bookstore_back_end/internal/config"
	"bookstore_back_end/internal/models"
	"bookstore_back_end/internal/storage"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connections regroupe les clients ouverts au démarrage.
// Seul Postgres est obligatoire, les autres restent nil s'ils ne sont pas configurés.
type Connections struct {
	Postgres *gorm.DB
	Redis    *redis.Client
	Scylla   *gocql.Session
	Elastic  *elasticsearch.Client
	Minio    *storage.MinioStore
}

// Connect ouvre toutes les connexions décrites par la configuration
func Connect(cfg *config.Config) (*Connections, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conns := &Connections{}

	if cfg.StoreDriver == config.StoreDriverPostgres {
		db, err := ConnectPostgres(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		conns.Postgres = db
	}

	if cfg.Redis.Addr != "" {
		client, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		conns.Redis = client
	} else {
		log.Println("⚠️ REDIS_HOST absent, cache et verrous désactivés")
	}

	if len(cfg.Scylla.Hosts) > 0 {
		session, err := ConnectScylla(cfg.Scylla)
		if err != nil {
			return nil, err
		}
		conns.Scylla = session
	} else {
		log.Println("⚠️ SCYLLA_HOSTS absent, journal des stocks désactivé")
	}

	if cfg.Elastic.URL != "" {
		client, err := ConnectElastic(cfg.Elastic)
		if err != nil {
			return nil, err
		}
		conns.Elastic = client
	} else {
		log.Println("⚠️ ELASTIC_URL absent, index des livres non synchronisé")
	}

	if cfg.Minio.Endpoint != "" {
		store, err := storage.NewMinioStore(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		conns.Minio = store
		log.Println("✅ Connecté à MinIO :", cfg.Minio.Endpoint)
	} else {
		log.Println("⚠️ MINIO_ENDPOINT absent, les QR seront renvoyés en data URL")
	}

	log.Println("✅ Toutes les bases de données configurées sont connectées")
	return conns, nil
}

// DSN construit la chaîne de connexion Postgres
func DSN(cfg config.PostgresConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
}

func ConnectPostgres(cfg config.PostgresConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{
		// ErrDuplicatedKey / ErrForeignKeyViolated au lieu des erreurs pgx brutes
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Println("✅ Connecté à Postgres")
	return db, nil
}

// Migrate crée ou met à jour le schéma relationnel
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Contact{},
		&models.Category{},
		&models.Author{},
		&models.Publisher{},
		&models.Book{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderDetail{},
		&models.Payment{},
		&models.Promotion{},
		&models.PromotionItem{},
	); err != nil {
		return fmt.Errorf("migration: %w", err)
	}
	return nil
}

// ConnectScylla ouvre la session du keyspace qui porte le journal des stocks
func ConnectScylla(cfg config.ScyllaConfig) (*gocql.Session, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.NumConns = 4
	cluster.ReconnectInterval = 1 * time.Second
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())

	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("impossible de lire le certificat CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("impossible de parser le certificat CA")
		}
		cluster.SslOpts = &gocql.SslOptions{Config: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur création session pour %s: %w", cfg.Keyspace, err)
	}
	log.Printf("✅ Session ScyllaDB ouverte pour keyspace '%s'", cfg.Keyspace)
	return session, nil
}

func ConnectElastic(cfg config.ElasticConfig) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("erreur création client Elasticsearch: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("erreur connexion Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("erreur connexion Elasticsearch: %s", res.Status())
	}

	log.Println("✅ Connecté à Elasticsearch")
	return client, nil
}

// Close libère les connexions ouvertes
func (c *Connections) Close() {
	if c.Scylla != nil {
		c.Scylla.Close()
		log.Println("🔌 Session ScyllaDB fermée")
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Postgres != nil {
		if sqlDB, err := c.Postgres.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
