package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	AI       AIConfig       `yaml:"ai"`
	MOI      MOIConfig      `yaml:"moi"`
	Export   ExportConfig   `yaml:"export"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig selects the record store. Driver is one of mysql, postgres, sqlite
// (all through gorm) or local (single-file document store that also reads the legacy layout).
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type AuthConfig struct {
	AdminCode     string `yaml:"admin_code"`
	AdminCodeHash string `yaml:"admin_code_hash"`
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

type AIConfig struct {
	Provider string `yaml:"provider"` // gemini | proxy
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

// MOIConfig points at the MatrixOne catalog. Sync uploads every saved entry and
// roster; the table ids come from catalog_init.
type MOIConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	CatalogID      int    `yaml:"catalog_id"`
	DatabaseID     int    `yaml:"database_id"`
	RecordsTableID int    `yaml:"records_table_id"`
	MembersTableID int    `yaml:"members_table_id"`
	Sync           bool   `yaml:"sync"`
}

type ExportConfig struct {
	Dir        string `yaml:"dir"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	S3Endpoint string `yaml:"s3_endpoint"`
	S3Prefix   string `yaml:"s3_prefix"`
	PathStyle  bool   `yaml:"s3_path_style"`
}

func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 9872},
		Log:      LogConfig{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Database: DatabaseConfig{Driver: "local", Path: "data/sm-manager.db", Port: 3306, Name: "sm_manager"},
		Auth:     AuthConfig{AdminCode: "7788", JWTSecret: "sm-manager-secret", TokenTTLHours: 7 * 24},
		AI:       AIConfig{Provider: "gemini", Model: "gemini-2.5-flash"},
		MOI:      MOIConfig{BaseURL: "https://freetier-01.cn-hangzhou.cluster.cn-dev.matrixone.tech"},
		Export:   ExportConfig{Dir: "exports", S3Region: "us-east-1"},
	}
}

// Load reads defaults, then the first readable YAML file, then environment overrides.
func Load(configFile string) *Config {
	c := Default()

	paths := []string{"etc/config-dev.yaml", "/etc/sm-manager/config.yaml"}
	if configFile != "" {
		paths = []string{configFile}
	}
	for _, path := range paths {
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, c)
			break
		}
	}

	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverrideInt(&c.Server.Port, "PORT")

	envOverride(&c.Database.Driver, "DB_DRIVER")
	envOverride(&c.Database.DSN, "DB_DSN")
	envOverride(&c.Database.Path, "DB_PATH")
	envOverride(&c.Database.Host, "DB_HOST")
	envOverride(&c.Database.User, "DB_USER")
	envOverride(&c.Database.Password, "DB_PASS")
	envOverride(&c.Database.Name, "DB_NAME")
	envOverrideInt(&c.Database.Port, "DB_PORT")

	envOverride(&c.Auth.AdminCode, "ADMIN_CODE")
	envOverride(&c.Auth.AdminCodeHash, "ADMIN_CODE_HASH")
	envOverride(&c.Auth.JWTSecret, "JWT_SECRET")

	envOverride(&c.AI.Provider, "AI_PROVIDER")
	envOverride(&c.AI.APIKey, "GEMINI_API_KEY")
	envOverride(&c.AI.Model, "AI_MODEL")

	envOverride(&c.MOI.BaseURL, "MOI_BASE_URL")
	envOverride(&c.MOI.APIKey, "MOI_API_KEY")
	envOverrideInt(&c.MOI.CatalogID, "MOI_CATALOG_ID")
	envOverrideInt(&c.MOI.DatabaseID, "MOI_DATABASE_ID")

	envOverride(&c.Export.Dir, "EXPORT_DIR")
	envOverride(&c.Export.S3Bucket, "EXPORT_S3_BUCKET")
	envOverride(&c.Export.S3Region, "EXPORT_S3_REGION")
	envOverride(&c.Export.S3Endpoint, "EXPORT_S3_ENDPOINT")

	c.Database.Driver = strings.ToLower(c.Database.Driver)
	c.AI.Provider = strings.ToLower(c.AI.Provider)
	return c
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// AIKey is the key used by the configured AI provider; the proxy reuses the MOI key.
func (c *Config) AIKey() string {
	if c.AI.Provider == "proxy" {
		return c.MOI.APIKey
	}
	return c.AI.APIKey
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
