package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the service configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	MessageBus    MessageBusConfig
	Elasticsearch ElasticsearchConfig
	NewRelic      NewRelicConfig
	Matching      MatchingConfig
	Collaborators CollaboratorsConfig
	Worker        WorkerConfig
	Logging       LoggingConfig
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	Mode            string // debug, release, test
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsWhiteList   []string
	TrackingBaseURL string
}

// Address returns the host:port the HTTP server binds to
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConn  int
	MaxIdle  int
	MaxLife  time.Duration
	Debug    bool
}

// RedisConfig holds the Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// MessageBusConfig holds the Azure Service Bus configuration
type MessageBusConfig struct {
	ConnectionString  string
	Prefix            string
	NotificationQueue string
	LoadEventsQueue   string
}

// ElasticsearchConfig holds the Elasticsearch configuration
type ElasticsearchConfig struct {
	URLs       []string
	Username   string
	Password   string
	LoadIndex  string
	TruckIndex string
}

// NewRelicConfig holds the New Relic configuration
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// MatchingConfig holds the match scoring configuration
type MatchingConfig struct {
	RouteWeight     float64
	TimeWeight      float64
	CapacityWeight  float64
	DeadheadWeight  float64
	MaxEarlyDays    int
	DeadheadMaxKm   float64
	DefaultMinScore int
	DefaultLimit    int
	MaxLimit        int
	CandidateFetch  int
}

// CollaboratorsConfig holds base URLs for external collaborator services
type CollaboratorsConfig struct {
	IAMURL      string
	WalletURL   string
	DistanceURL string
	TrackingURL string
	Timeout     time.Duration
}

// WorkerConfig holds the background worker configuration
type WorkerConfig struct {
	ReindexInterval    time.Duration
	StaleAssignmentAge time.Duration
	ConsumeBatchSize   int
	ConsumeInterval    time.Duration
}

// LoggingConfig holds the logging configuration
type LoggingConfig struct {
	Level string
	JSON  bool
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Server
	port, _ := strconv.Atoi(getEnv("PORT", "8096"))
	readTimeout, _ := time.ParseDuration(getEnv("SERVER_READ_TIMEOUT", "15s"))
	writeTimeout, _ := time.ParseDuration(getEnv("SERVER_WRITE_TIMEOUT", "15s"))
	shutdownTimeout, _ := time.ParseDuration(getEnv("SERVER_SHUTDOWN_TIMEOUT", "10s"))

	// Database
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	dbMaxConn, _ := strconv.Atoi(getEnv("DB_MAX_CONN", "20"))
	dbMaxIdle, _ := strconv.Atoi(getEnv("DB_MAX_IDLE", "5"))
	dbMaxLife, _ := time.ParseDuration(getEnv("DB_MAX_LIFE", "30m"))
	dbDebug, _ := strconv.ParseBool(getEnv("DB_DEBUG", "false"))

	// Redis
	redisEnabled, _ := strconv.ParseBool(getEnv("REDIS_ENABLED", "true"))
	redisPort, _ := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisTTL, _ := time.ParseDuration(getEnv("REDIS_TTL", "1h"))

	// New Relic
	nrEnabled, _ := strconv.ParseBool(getEnv("NEW_RELIC_ENABLED", "false"))

	// Matching
	routeWeight, _ := strconv.ParseFloat(getEnv("MATCH_ROUTE_WEIGHT", "0.35"), 64)
	timeWeight, _ := strconv.ParseFloat(getEnv("MATCH_TIME_WEIGHT", "0.20"), 64)
	capacityWeight, _ := strconv.ParseFloat(getEnv("MATCH_CAPACITY_WEIGHT", "0.25"), 64)
	deadheadWeight, _ := strconv.ParseFloat(getEnv("MATCH_DEADHEAD_WEIGHT", "0.20"), 64)
	maxEarlyDays, _ := strconv.Atoi(getEnv("MATCH_MAX_EARLY_DAYS", "7"))
	deadheadMaxKm, _ := strconv.ParseFloat(getEnv("MATCH_DEADHEAD_MAX_KM", "500"), 64)
	minScore, _ := strconv.Atoi(getEnv("MATCH_DEFAULT_MIN_SCORE", "40"))
	defaultLimit, _ := strconv.Atoi(getEnv("MATCH_DEFAULT_LIMIT", "20"))
	maxLimit, _ := strconv.Atoi(getEnv("MATCH_MAX_LIMIT", "50"))
	candidateFetch, _ := strconv.Atoi(getEnv("MATCH_CANDIDATE_FETCH", "500"))

	// Collaborators
	collabTimeout, _ := time.ParseDuration(getEnv("COLLABORATOR_TIMEOUT", "5s"))

	// Worker
	reindexInterval, _ := time.ParseDuration(getEnv("WORKER_REINDEX_INTERVAL", "10m"))
	staleAge, _ := time.ParseDuration(getEnv("WORKER_STALE_ASSIGNMENT_AGE", "24h"))
	consumeBatch, _ := strconv.Atoi(getEnv("WORKER_CONSUME_BATCH_SIZE", "10"))
	consumeInterval, _ := time.ParseDuration(getEnv("WORKER_CONSUME_INTERVAL", "5s"))

	// Logging
	logJSON, _ := strconv.ParseBool(getEnv("LOG_JSON", "true"))

	return &Config{
		Server: ServerConfig{
			Host:            getEnv("HOST", "0.0.0.0"),
			Port:            port,
			Mode:            getEnv("GIN_MODE", "debug"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			CorsWhiteList:   splitEnv("CORS_WHITELIST", "*"),
			TrackingBaseURL: getEnv("TRACKING_BASE_URL", "https://track.freightlink.example.com"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "marketplace_db"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConn:  dbMaxConn,
			MaxIdle:  dbMaxIdle,
			MaxLife:  dbMaxLife,
			Debug:    dbDebug,
		},
		Redis: RedisConfig{
			Enabled:  redisEnabled,
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     redisPort,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			TTL:      redisTTL,
		},
		MessageBus: MessageBusConfig{
			ConnectionString:  getEnv("SERVICEBUS_CONNECTION_STRING", ""),
			Prefix:            getEnv("SERVICEBUS_PREFIX", ""),
			NotificationQueue: getEnv("SERVICEBUS_NOTIFICATION_QUEUE", "notifications"),
			LoadEventsQueue:   getEnv("SERVICEBUS_LOAD_EVENTS_QUEUE", "load-events"),
		},
		Elasticsearch: ElasticsearchConfig{
			URLs:       splitEnv("ES_URLS", "http://localhost:9200"),
			Username:   getEnv("ES_USERNAME", ""),
			Password:   getEnv("ES_PASSWORD", ""),
			LoadIndex:  getEnv("ES_LOAD_INDEX", "marketplace-loads"),
			TruckIndex: getEnv("ES_TRUCK_INDEX", "marketplace-trucks"),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "Freight Marketplace"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    nrEnabled,
		},
		Matching: MatchingConfig{
			RouteWeight:     routeWeight,
			TimeWeight:      timeWeight,
			CapacityWeight:  capacityWeight,
			DeadheadWeight:  deadheadWeight,
			MaxEarlyDays:    maxEarlyDays,
			DeadheadMaxKm:   deadheadMaxKm,
			DefaultMinScore: minScore,
			DefaultLimit:    defaultLimit,
			MaxLimit:        maxLimit,
			CandidateFetch:  candidateFetch,
		},
		Collaborators: CollaboratorsConfig{
			IAMURL:      getEnv("IAM_URL", "http://localhost:8081"),
			WalletURL:   getEnv("WALLET_URL", "http://localhost:8082"),
			DistanceURL: getEnv("DISTANCE_URL", ""),
			TrackingURL: getEnv("TRACKING_SERVICE_URL", "http://localhost:8083"),
			Timeout:     collabTimeout,
		},
		Worker: WorkerConfig{
			ReindexInterval:    reindexInterval,
			StaleAssignmentAge: staleAge,
			ConsumeBatchSize:   consumeBatch,
			ConsumeInterval:    consumeInterval,
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			JSON:  logJSON,
		},
	}, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// splitEnv gets a comma-separated environment variable as a slice
func splitEnv(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
