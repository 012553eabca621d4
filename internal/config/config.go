package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime configuration for the dashboard service.
type Config struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
	DefaultScenario string

	SelectionBackend    string
	SelectionSQLitePath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string

	SnapshotSource string
	DBDriver       string
	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	DBSQLitePath   string
	DBConnTimeout  time.Duration
	DBQueryTimeout time.Duration

	WSMaxClients int
	ChartWidth   int
	ChartHeight  int
}

var defaults = map[string]any{
	"app_listen_addr":           ":8080",
	"app_read_timeout_sec":      10,
	"app_write_timeout_sec":     20,
	"app_shutdown_timeout_sec":  10,
	"app_log_level":             "info",
	"app_default_scenario":      "gc_pause",
	"app_selection_backend":     "memory",
	"app_selection_sqlite_path": "./incident-dashboard.db",
	"app_redis_addr":            "127.0.0.1:6379",
	"app_redis_password":        "",
	"app_redis_db":              0,
	"app_redis_key":             "incident-dashboard:scenario",
	"app_snapshot_source":       "catalog",
	"app_db_driver":             "mysql",
	"app_db_host":               "127.0.0.1",
	"app_db_port":               3306,
	"app_db_user":               "dashboard",
	"app_db_password":           "demo",
	"app_db_name":               "incidents",
	"app_db_sqlite_path":        "",
	"app_db_conn_timeout_sec":   5,
	"app_db_query_timeout_sec":  10,
	"app_ws_max_clients":        100,
	"app_chart_width":           960,
	"app_chart_height":          320,
}

// New returns a viper instance with defaults, environment binding and any
// dotenv-format config files merged in. Keys are the lower-cased
// environment variable names, e.g. app_listen_addr for APP_LISTEN_ADDR.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	for _, path := range configFileCandidates() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		v.SetConfigType("env")
		_ = v.MergeInConfig()
	}
	return v
}

// FromEnv loads configuration from environment variables and config files.
func FromEnv() Config {
	return Load(New())
}

// Load reads a Config out of v.
func Load(v *viper.Viper) Config {
	return Config{
		ListenAddr:          v.GetString("app_listen_addr"),
		ReadTimeout:         seconds(v, "app_read_timeout_sec"),
		WriteTimeout:        seconds(v, "app_write_timeout_sec"),
		ShutdownTimeout:     seconds(v, "app_shutdown_timeout_sec"),
		LogLevel:            strings.ToLower(v.GetString("app_log_level")),
		DefaultScenario:     strings.TrimSpace(v.GetString("app_default_scenario")),
		SelectionBackend:    strings.ToLower(v.GetString("app_selection_backend")),
		SelectionSQLitePath: v.GetString("app_selection_sqlite_path"),
		RedisAddr:           v.GetString("app_redis_addr"),
		RedisPassword:       v.GetString("app_redis_password"),
		RedisDB:             v.GetInt("app_redis_db"),
		RedisKey:            v.GetString("app_redis_key"),
		SnapshotSource:      strings.ToLower(v.GetString("app_snapshot_source")),
		DBDriver:            strings.ToLower(v.GetString("app_db_driver")),
		DBHost:              v.GetString("app_db_host"),
		DBPort:              v.GetInt("app_db_port"),
		DBUser:              v.GetString("app_db_user"),
		DBPassword:          v.GetString("app_db_password"),
		DBName:              v.GetString("app_db_name"),
		DBSQLitePath:        v.GetString("app_db_sqlite_path"),
		DBConnTimeout:       seconds(v, "app_db_conn_timeout_sec"),
		DBQueryTimeout:      seconds(v, "app_db_query_timeout_sec"),
		WSMaxClients:        v.GetInt("app_ws_max_clients"),
		ChartWidth:          v.GetInt("app_chart_width"),
		ChartHeight:         v.GetInt("app_chart_height"),
	}
}

// Validate rejects values the service cannot start with.
func (c Config) Validate() error {
	switch c.SelectionBackend {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("unsupported selection backend %q", c.SelectionBackend)
	}
	switch c.SnapshotSource {
	case "catalog", "sql":
	default:
		return fmt.Errorf("unsupported snapshot source %q", c.SnapshotSource)
	}
	if c.SnapshotSource == "sql" && c.DBDriver != "mysql" && c.DBDriver != "sqlite" {
		return fmt.Errorf("unsupported db driver %q", c.DBDriver)
	}
	if c.DefaultScenario == "" {
		return fmt.Errorf("default scenario is required")
	}
	return nil
}

// configFileCandidates lists config files from lowest to highest priority.
func configFileCandidates() []string {
	candidates := []string{
		"/etc/incident-dashboard/config.env",
		"/etc/default/incident-dashboard",
		"./incident-dashboard.env",
	}
	if explicit := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	if credDir := strings.TrimSpace(os.Getenv("CREDENTIALS_DIRECTORY")); credDir != "" {
		credName := strings.TrimSpace(os.Getenv("APP_SECRETS_CREDENTIAL_NAME"))
		if credName == "" {
			credName = "app-secrets"
		}
		candidates = append(candidates, filepath.Join(credDir, credName))
	}
	if explicit := strings.TrimSpace(os.Getenv("APP_SECRETS_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}

	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !filepath.IsAbs(c) {
			if wd, err := os.Getwd(); err == nil {
				c = filepath.Join(wd, c)
			}
		}
		out = append(out, c)
	}
	return out
}

func seconds(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt(key)) * time.Second
}

// MySQLDSN returns a mysql driver DSN with safe defaults for TCP access.
func (c Config) MySQLDSN() string {
	params := url.Values{}
	params.Set("parseTime", "true")
	params.Set("timeout", c.DBConnTimeout.String())
	params.Set("readTimeout", c.DBQueryTimeout.String())
	params.Set("writeTimeout", c.DBQueryTimeout.String())
	params.Set("charset", "utf8mb4")
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, params.Encode())
}
