package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type LogFile struct {
	Filename   string // 为空则只写 stdout
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

// Auth 登录自注册策略与启动时的初始管理员
type Auth struct {
	AllowSelfAdmin bool
	AdminEmail     string // 非空时启动确保该管理员存在
	AdminPassword  string
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string // postgres / mysql / memory
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Identity struct {
	BatchSize        int // pending 数达到该值时自动批量准入
	StatsCacheTTLSec int
}

type Config struct {
	App      App
	Log      Log
	JWT      JWT
	Auth     Auth
	DB       DB
	Redis    Redis `mapstructure:"redis"`
	Identity Identity
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "campus-feedback")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readTimeoutSec", 5)
	v.SetDefault("app.http.writeTimeoutSec", 10)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.admin.host", "0.0.0.0")
	v.SetDefault("app.admin.port", 8081)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.maxSizeMB", 100)
	v.SetDefault("log.file.maxBackups", 7)
	v.SetDefault("log.file.maxAgeDays", 30)

	v.SetDefault("jwt.issuer", "campus-feedback")
	v.SetDefault("jwt.accessTokenTTLMin", 120)

	v.SetDefault("auth.allowSelfAdmin", false)
	v.SetDefault("auth.adminEmail", "")
	v.SetDefault("auth.adminPassword", "")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.maxOpenConns", 50)
	v.SetDefault("db.maxIdleConns", 10)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("identity.batchSize", 5)
	v.SetDefault("identity.statsCacheTTLSec", 5)
}

// Load 读取 YAML + APP_ 前缀环境变量；失败直接退出
func Load(path string) *Config {
	c, err := LoadE(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return c
}

// LoadE 同 Load，但返回错误；配置文件不存在时仅告警并使用默认值
func LoadE(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		log.Printf("config file %s not found, using defaults + env", path)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}

	// 兼容旧部署的 BATCH_SIZE
	if s := os.Getenv("BATCH_SIZE"); s != "" && os.Getenv("APP_IDENTITY_BATCHSIZE") == "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.New("BATCH_SIZE must be an integer")
		}
		c.Identity.BatchSize = n
	}
	if c.Auth.AdminEmail != "" && c.Auth.AdminPassword == "" {
		return nil, errors.New("auth.adminPassword is required when auth.adminEmail is set")
	}
	if c.Identity.BatchSize < 1 {
		return nil, errors.New("identity.batchSize must be >= 1")
	}
	return &c, nil
}
