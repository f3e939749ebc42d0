package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	DatabaseURL   string
	Redis         RedisConfig
	Kafka         KafkaConfig
	JWTSigningKey string
	LogLevel      string
	// BoothServersFile points at the YAML file with the named booth server
	// profiles (url + shared key). Empty means no external booth configured.
	BoothServersFile string
	// Sandbox enables the test_hmac diagnostic URL. Never set in production:
	// the diagnostic URL embeds the raw shared secret.
	Sandbox bool
}

// RedisConfig controls the optional counters cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig controls the optional audit event stream.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// CountersCacheTTL bounds staleness of the public vote counters.
var CountersCacheTTL = time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("PLEBIS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("AUDIT_KAFKA_TOPIC")
	if topic == "" {
		topic = "plebis.votes.audit"
	}

	var brokers []string
	if b := os.Getenv("AUDIT_KAFKA_BROKERS"); b != "" {
		for _, part := range strings.Split(b, ",") {
			if part = strings.TrimSpace(part); part != "" {
				brokers = append(brokers, part)
			}
		}
	}

	return Server{
		Addr:        addr,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
		},
		JWTSigningKey:    jwtSigningKey,
		LogLevel:         os.Getenv("PLEBIS_LOG_LEVEL"),
		BoothServersFile: os.Getenv("BOOTH_SERVERS_FILE"),
		Sandbox:          os.Getenv("PLEBIS_SANDBOX") == "true",
	}
}
