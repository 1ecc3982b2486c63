package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Redis        RedisConfig
	Worker       WorkerConfig
	Queue        QueueConfig
	Metrics      MetricsConfig
	Auth         AuthConfig
	Orchestration OrchestrationConfig
	Engine       EngineConfig
	Runner       RunnerConfig
	LogLevel     string
	DebugMode    bool
}

// OrchestrationConfig points the orchestration client at the remote
// API, sourced from PREFECT_API_URL / PREFECT_API_KEY.
type OrchestrationConfig struct {
	APIURL string
	APIKey string
}

// EngineConfig holds the Task Engine's backoff and caching defaults.
// Only RefreshCacheDefault (PREFECT_TASKS_REFRESH_CACHE) reaches the
// engine; its Pending backoff uses the constants in internal/engine and
// does not read BackoffMax or BackoffClampingFactor.
type EngineConfig struct {
	BackoffMax            int
	BackoffClampingFactor float64
	RefreshCacheDefault   bool
}

// RunnerConfig tunes the Runner's loop cadence and capacity, sourced
// from PREFECT_WORKER_*/PREFECT_RUNNER_* environment variables.
type RunnerConfig struct {
	QuerySeconds     time.Duration
	HeartbeatSeconds time.Duration
	PrefetchSeconds  time.Duration
	Concurrency      int
	PauseOnShutdown  bool
	ServerEnabled    bool
}

type ServerConfig struct {
	Host         string
	Port         int
	AdminPort    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type WorkerConfig struct {
	ID                string
	Concurrency       int
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	ShutdownTimeout   time.Duration
}

type QueueConfig struct {
	StreamPrefix        string
	ConsumerGroup       string
	MaxQueueSize        int64
	BlockTimeout        time.Duration
	ClaimMinIdle        time.Duration
	RecoveryInterval    time.Duration
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryBackoffFactor  float64
	TaskRetentionDays   int
	RateLimitRPS        int
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type AuthConfig struct {
	Enabled   bool
	JWTSecret string
	APIKeys   []string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/taskqueue")

	// Set defaults
	setDefaults()

	// Environment variable binding. The ambient TASKQUEUE_* prefix still
	// covers the teacher's own settings; the execution core's env vars
	// follow Prefect's PREFECT_* naming (spec §6), which doesn't fit
	// viper's automatic prefix/underscore mapping, so each is bound
	// explicitly instead.
	viper.SetEnvPrefix("TASKQUEUE")
	viper.AutomaticEnv()
	if err := bindPrefectEnv(); err != nil {
		return nil, err
	}

	// Read config file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.adminport", 8081)
	viper.SetDefault("server.readtimeout", 30*time.Second)
	viper.SetDefault("server.writetimeout", 30*time.Second)
	viper.SetDefault("server.idletimeout", 120*time.Second)

	// Redis defaults
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.poolsize", 100)
	viper.SetDefault("redis.minidleconns", 10)
	viper.SetDefault("redis.maxretries", 3)
	viper.SetDefault("redis.dialtimeout", 5*time.Second)
	viper.SetDefault("redis.readtimeout", 3*time.Second)
	viper.SetDefault("redis.writetimeout", 3*time.Second)

	// Worker defaults
	viper.SetDefault("worker.id", "")
	viper.SetDefault("worker.concurrency", 10)
	viper.SetDefault("worker.heartbeatinterval", 5*time.Second)
	viper.SetDefault("worker.heartbeattimeout", 15*time.Second)
	viper.SetDefault("worker.shutdowntimeout", 30*time.Second)

	// Queue defaults
	viper.SetDefault("queue.streamprefix", "tasks")
	viper.SetDefault("queue.consumergroup", "workers")
	viper.SetDefault("queue.maxqueuesize", 1000000)
	viper.SetDefault("queue.blocktimeout", 5*time.Second)
	viper.SetDefault("queue.claimminidle", 30*time.Second)
	viper.SetDefault("queue.recoveryinterval", 10*time.Second)
	viper.SetDefault("queue.retrymaxattempts", 3)
	viper.SetDefault("queue.retryinitialbackoff", 1*time.Second)
	viper.SetDefault("queue.retrymaxbackoff", 5*time.Minute)
	viper.SetDefault("queue.retrybackofffactor", 2.0)
	viper.SetDefault("queue.taskretentiondays", 7)
	viper.SetDefault("queue.ratelimitrps", 1000)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	// Auth defaults
	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.jwtsecret", "")
	viper.SetDefault("auth.apikeys", []string{})

	// Logging defaults
	viper.SetDefault("loglevel", "info")
	viper.SetDefault("debugmode", false)

	// Orchestration client defaults
	viper.SetDefault("orchestration.apiurl", "http://localhost:4200/api")
	viper.SetDefault("orchestration.apikey", "")

	// Engine defaults
	viper.SetDefault("engine.backoffmax", 10)
	viper.SetDefault("engine.backoffclampingfactor", 0.3)
	viper.SetDefault("engine.refreshcachedefault", false)

	// Runner defaults
	viper.SetDefault("runner.queryseconds", 10*time.Second)
	viper.SetDefault("runner.heartbeatseconds", 30*time.Second)
	viper.SetDefault("runner.prefetchseconds", 10*time.Second)
	viper.SetDefault("runner.concurrency", 10)
	viper.SetDefault("runner.pauseonshutdown", false)
	viper.SetDefault("runner.serverenabled", false)
}

// bindPrefectEnv binds the PREFECT_* environment variables spec §6
// names (plus the original_source aliases documented in SPEC_FULL §6)
// to their config keys. AutomaticEnv's TASKQUEUE_ prefix can't reach
// these, so each is bound one at a time.
func bindPrefectEnv() error {
	binds := map[string]string{
		"orchestration.apiurl":        "PREFECT_API_URL",
		"orchestration.apikey":        "PREFECT_API_KEY",
		"debugmode":                   "PREFECT_DEBUG_MODE",
		"engine.refreshcachedefault":  "PREFECT_TASKS_REFRESH_CACHE",
		"runner.heartbeatseconds":     "PREFECT_WORKER_HEARTBEAT_SECONDS",
		"runner.prefetchseconds":      "PREFECT_WORKER_PREFETCH_SECONDS",
		"runner.concurrency":          "PREFECT_RUNNER_PROCESS_LIMIT",
		"runner.pauseonshutdown":      "PREFECT_RUNNER_PAUSE_ON_SHUTDOWN",
		"runner.serverenabled":        "PREFECT_RUNNER_SERVER_ENABLE",
	}
	for key, env := range binds {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}
	// PREFECT_RUNNER_POLL_FREQUENCY is an alias for the submit-loop
	// interval; PREFECT_WORKER_QUERY_SECONDS wins when both are set.
	if err := viper.BindEnv("runner.queryseconds", "PREFECT_WORKER_QUERY_SECONDS", "PREFECT_RUNNER_POLL_FREQUENCY"); err != nil {
		return err
	}
	return nil
}
