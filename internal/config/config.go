package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kickboard/matchsync/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                  string
	ServiceName             string
	ServiceVersion          string
	HTTPAddr                string
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	LogLevel                logging.Level
	CORSAllowedOrigins      []string
	InternalJobToken        string
	DBURL                   string
	DBDisablePreparedBinary bool
	CacheEnabled            bool
	CacheTTL                time.Duration

	FootballDataBaseURL               string
	FootballDataToken                 string
	FootballDataTimeout               time.Duration
	FootballDataMaxRetries            int
	FootballDataCircuitEnabled        bool
	FootballDataCircuitFailureCount   int
	FootballDataCircuitOpenTimeout    time.Duration
	FootballDataCircuitHalfOpenMaxReq int

	SyncEnabled       bool
	SyncInterval      time.Duration
	SyncWindowDays    int
	SyncCompetitions  []string
	SyncRetentionDays int

	PprofEnabled               bool
	PprofAddr                  string
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceLogsEnabled         bool
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}

	fdTimeout, err := time.ParseDuration(getEnv("FOOTBALL_DATA_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FOOTBALL_DATA_TIMEOUT: %w", err)
	}
	if fdTimeout <= 0 {
		return Config{}, fmt.Errorf("FOOTBALL_DATA_TIMEOUT must be > 0")
	}
	fdMaxRetries, err := getEnvAsInt("FOOTBALL_DATA_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse FOOTBALL_DATA_MAX_RETRIES: %w", err)
	}
	if fdMaxRetries < 0 {
		return Config{}, fmt.Errorf("FOOTBALL_DATA_MAX_RETRIES must be >= 0")
	}
	fdCircuitEnabled, err := strconv.ParseBool(getEnv("FOOTBALL_DATA_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FOOTBALL_DATA_CIRCUIT_ENABLED: %w", err)
	}
	fdCircuitFailureCount, err := getEnvAsInt("FOOTBALL_DATA_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse FOOTBALL_DATA_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if fdCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("FOOTBALL_DATA_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	fdCircuitOpenTimeout, err := time.ParseDuration(getEnv("FOOTBALL_DATA_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FOOTBALL_DATA_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if fdCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("FOOTBALL_DATA_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	fdCircuitHalfOpenMaxReq, err := getEnvAsInt("FOOTBALL_DATA_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse FOOTBALL_DATA_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if fdCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("FOOTBALL_DATA_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	syncEnabled, err := strconv.ParseBool(getEnv("SYNC_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_ENABLED: %w", err)
	}
	syncInterval, err := time.ParseDuration(getEnv("SYNC_INTERVAL", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_INTERVAL: %w", err)
	}
	if syncInterval <= 0 {
		return Config{}, fmt.Errorf("SYNC_INTERVAL must be > 0")
	}
	syncWindowDays, err := getEnvAsInt("SYNC_WINDOW_DAYS", 30)
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_WINDOW_DAYS: %w", err)
	}
	if syncWindowDays < 1 {
		return Config{}, fmt.Errorf("SYNC_WINDOW_DAYS must be >= 1")
	}
	syncRetentionDays, err := getEnvAsInt("SYNC_RETENTION_DAYS", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_RETENTION_DAYS: %w", err)
	}
	if syncRetentionDays < 0 {
		return Config{}, fmt.Errorf("SYNC_RETENTION_DAYS must be >= 0")
	}
	syncCompetitions := splitCSV(strings.ToUpper(getEnv("SYNC_COMPETITIONS", "PL")))
	if len(syncCompetitions) == 0 {
		return Config{}, fmt.Errorf("SYNC_COMPETITIONS cannot be empty")
	}

	fdToken := strings.TrimSpace(getEnv("FOOTBALL_DATA_TOKEN", ""))
	if syncEnabled && fdToken == "" {
		return Config{}, fmt.Errorf("FOOTBALL_DATA_TOKEN is required when SYNC_ENABLED=true")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}

	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	cfg := Config{
		AppEnv:                  appEnv,
		ServiceName:             getEnv("APP_SERVICE_NAME", "matchsync"),
		ServiceVersion:          getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:             readTimeout,
		WriteTimeout:            writeTimeout,
		LogLevel:                logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info")),
		CORSAllowedOrigins:      splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		InternalJobToken:        strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),
		DBURL:                   strings.TrimSpace(getEnv("DB_URL", "")),
		DBDisablePreparedBinary: dbDisablePreparedBinary,
		CacheEnabled:            cacheEnabled,
		CacheTTL:                cacheTTL,

		FootballDataBaseURL:               strings.TrimSpace(getEnv("FOOTBALL_DATA_BASE_URL", "https://api.football-data.org/v4")),
		FootballDataToken:                 fdToken,
		FootballDataTimeout:               fdTimeout,
		FootballDataMaxRetries:            fdMaxRetries,
		FootballDataCircuitEnabled:        fdCircuitEnabled,
		FootballDataCircuitFailureCount:   fdCircuitFailureCount,
		FootballDataCircuitOpenTimeout:    fdCircuitOpenTimeout,
		FootballDataCircuitHalfOpenMaxReq: fdCircuitHalfOpenMaxReq,

		SyncEnabled:       syncEnabled,
		SyncInterval:      syncInterval,
		SyncWindowDays:    syncWindowDays,
		SyncCompetitions:  syncCompetitions,
		SyncRetentionDays: syncRetentionDays,

		PprofEnabled:               pprofEnabled,
		PprofAddr:                  pprofAddr,
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		UptraceLogsEnabled:         uptraceLogsEnabled,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}
