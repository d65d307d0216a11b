package config

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	gomysql "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	sdk "github.com/matrixorigin/moi-go-sdk"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenGormDB opens the relational backend named by Database.Driver.
func (c *Config) OpenGormDB() (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch c.Database.Driver {
	case "mysql":
		sqlDB, err := c.openMySQL()
		if err != nil {
			return nil, err
		}
		dialector = mysql.New(mysql.Config{Conn: sqlDB})
	case "postgres":
		dsn := c.Database.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
				c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Name)
		}
		sqlDB, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := sqlDB.Ping(); err != nil {
			return nil, fmt.Errorf("ping db: %w", err)
		}
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	case "sqlite":
		path := c.Database.DSN
		if path == "" {
			path = c.Database.Path
			if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
				return nil, fmt.Errorf("create dirs: %w", err)
			}
		}
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unsupported gorm driver %q", c.Database.Driver)
	}

	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func (c *Config) openMySQL() (*sql.DB, error) {
	var cfg *gomysql.Config
	if c.Database.DSN != "" {
		parsed, err := gomysql.ParseDSN(c.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("parse dsn: %w", err)
		}
		cfg = parsed
	} else {
		cfg = gomysql.NewConfig()
		cfg.User = c.Database.User
		cfg.Passwd = c.Database.Password
		cfg.Net = "tcp"
		cfg.Addr = fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port)
		cfg.DBName = c.Database.Name
	}
	cfg.ParseTime = true

	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	sqlDB := sql.OpenDB(connector)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return sqlDB, nil
}

func (c *Config) NewRawClient() (*sdk.RawClient, error) {
	return sdk.NewRawClient(c.MOI.BaseURL, c.MOI.APIKey)
}
