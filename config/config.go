// config/config.go
package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	Log           LogConfiguration
	Store         StoreConfiguration
	Neo4j         Neo4jConfiguration
	Redis         RedisConfiguration
	Elasticsearch ElasticsearchConfiguration
	Cache         CacheConfiguration
	Quota         QuotaConfiguration
	Dispatcher    DispatcherConfiguration
	Completion    CompletionConfiguration
	RateLimit     RateLimitConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port            string
	ShutdownTimeout time.Duration
}

type LogConfiguration struct {
	Dir string
}

// StoreConfiguration selects the persistence engine for policies, grants and jobs
type StoreConfiguration struct {
	Driver string // sqlite, postgres or neo4j
	DSN    string
}

// Neo4jConfiguration stores data for the graph store connection
type Neo4jConfiguration struct {
	URI      string
	Username string
	Password string
}

// RedisConfiguration stores data for Redis connection
type RedisConfiguration struct {
	Enabled       bool
	Addr          string
	Password      string
	DB            int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	PoolSize      int
	PoolTimeout   time.Duration
	EncryptionKey string
}

// ElasticsearchConfiguration stores data for Elasticsearch connection
type ElasticsearchConfiguration struct {
	URL   string
	Index string
}

type CacheConfiguration struct {
	TTL       time.Duration
	LocalSize int
}

type QuotaConfiguration struct {
	Timezone string
	LockTTL  time.Duration
}

type DispatcherConfiguration struct {
	Workers         int
	QueueSize       int
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	RetryJitter     bool
	AttemptTimeout  time.Duration
	StatusTTL       time.Duration
}

type CompletionConfiguration struct {
	Transport       string // memory or redis
	Stream          string
	Group           string
	Consumer        string
	ReclaimSchedule string
	ReclaimMinIdle  time.Duration
}

type RateLimitConfiguration struct {
	Requests int
	Per      time.Duration
}

var config *Configuration

func InitConfig() error {
	viper.AddConfigPath("config") // path to look for the config file in
	viper.SetConfigName("config") // name of the config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	SetDefaults()

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	err := viper.Unmarshal(&config)
	if err != nil {
		return err
	}

	return nil
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "modelgate"
	}

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.shutdownTimeout", "5s")
	viper.SetDefault("log.dir", "")

	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("store.dsn", "data/modelgate.db")
	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.dialTimeout", "2s")
	viper.SetDefault("redis.readTimeout", "1s")
	viper.SetDefault("redis.writeTimeout", "1s")
	viper.SetDefault("redis.poolSize", 20)
	viper.SetDefault("redis.poolTimeout", "2s")
	viper.SetDefault("redis.encryptionKey", "")

	viper.SetDefault("elasticsearch.url", "")
	viper.SetDefault("elasticsearch.index", "modelgate-audit")

	viper.SetDefault("cache.ttl", "1h")
	viper.SetDefault("cache.localSize", 10000)

	viper.SetDefault("quota.timezone", "UTC")
	viper.SetDefault("quota.lockTTL", "5s")

	viper.SetDefault("dispatcher.workers", 4)
	viper.SetDefault("dispatcher.queueSize", 256)
	viper.SetDefault("dispatcher.maxRetries", 3)
	viper.SetDefault("dispatcher.retryBackoff", "1s")
	viper.SetDefault("dispatcher.retryBackoffMax", "600s")
	viper.SetDefault("dispatcher.retryJitter", true)
	viper.SetDefault("dispatcher.attemptTimeout", "30s")
	viper.SetDefault("dispatcher.statusTTL", "24h")

	viper.SetDefault("completion.transport", "memory")
	viper.SetDefault("completion.stream", "modelgate:completions")
	viper.SetDefault("completion.group", "completion-recorder")
	viper.SetDefault("completion.consumer", hostname)
	viper.SetDefault("completion.reclaimSchedule", "@every 1m")
	viper.SetDefault("completion.reclaimMinIdle", "1m")

	viper.SetDefault("ratelimit.requests", 100)
	viper.SetDefault("ratelimit.per", "1m")
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetFloat64 retrieves a float64 value from the configuration
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}
