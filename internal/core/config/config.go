package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeoutSec  int    `mapstructure:"readTimeoutSec"`
	WriteTimeoutSec int    `mapstructure:"writeTimeoutSec"`
	IdleTimeoutSec  int    `mapstructure:"idleTimeoutSec"`
}

type AdminHTTP struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type App struct {
	Name    string    `mapstructure:"name"`
	Env     string    `mapstructure:"env"`
	BaseURL string    `mapstructure:"baseUrl"`
	HTTP    HTTP      `mapstructure:"http"`
	Admin   AdminHTTP `mapstructure:"admin"`
}

type Rotate struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays"`
	Compress   bool   `mapstructure:"compress"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	JSON   bool   `mapstructure:"json"`
	Rotate Rotate `mapstructure:"rotate"`
}

// Auth 服务密钥：持有者可以访问任意记录
type Auth struct {
	Secret string `mapstructure:"secret"`
}

// Store 后端：memory | postgres | mysql | redis
type Store struct {
	Driver             string `mapstructure:"driver"`
	DSN                string `mapstructure:"dsn"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	MaxOpenConns       int    `mapstructure:"maxOpenConns"`
	MaxIdleConns       int    `mapstructure:"maxIdleConns"`
	ConnMaxLifetimeMin int    `mapstructure:"connMaxLifetimeMin"`
	AutoMigrate        bool   `mapstructure:"autoMigrate"`
	LogLevel           string `mapstructure:"logLevel"`
	Seed               bool   `mapstructure:"seed"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Limits struct {
	RPS          float64 `mapstructure:"rps"`
	Burst        int     `mapstructure:"burst"`
	Concurrency  int64   `mapstructure:"concurrency"`
	MaxBodyBytes int64   `mapstructure:"maxBodyBytes"`
	TimeoutSec   int     `mapstructure:"timeoutSec"`
	PerIP        bool    `mapstructure:"perIP"`
}

type Config struct {
	App    App    `mapstructure:"app"`
	Log    Log    `mapstructure:"log"`
	Auth   Auth   `mapstructure:"auth"`
	Store  Store  `mapstructure:"store"`
	Redis  Redis  `mapstructure:"redis"`
	Limits Limits `mapstructure:"limits"`
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverRedis    = "redis"
)

var ErrNoSecret = errors.New("auth.secret (SECRET) must be set")

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "identitydb")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.baseUrl", "")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 3000)
	v.SetDefault("app.http.readTimeoutSec", 5)
	v.SetDefault("app.http.writeTimeoutSec", 15)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 9090)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.rotate.enable", false)
	v.SetDefault("log.rotate.filename", "logs/identitydb.log")
	v.SetDefault("log.rotate.maxSizeMB", 100)
	v.SetDefault("log.rotate.maxBackups", 7)
	v.SetDefault("log.rotate.maxAgeDays", 30)
	v.SetDefault("log.rotate.compress", true)

	v.SetDefault("auth.secret", "")

	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.username", "")
	v.SetDefault("store.password", "")
	v.SetDefault("store.maxOpenConns", 20)
	v.SetDefault("store.maxIdleConns", 10)
	v.SetDefault("store.connMaxLifetimeMin", 30)
	v.SetDefault("store.autoMigrate", true)
	v.SetDefault("store.logLevel", "warn")
	v.SetDefault("store.seed", true)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.concurrency", 300)
	v.SetDefault("limits.maxBodyBytes", 16<<20)
	v.SetDefault("limits.timeoutSec", 10)
	v.SetDefault("limits.perIP", false)
}

// Read 读取配置文件（不存在则只用默认值）并叠加环境变量
func Read(path string) (*Config, error) {
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
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 实验环境沿用的变量名
	_ = v.BindEnv("app.http.port", "APPLICATION_PORT")
	_ = v.BindEnv("app.baseUrl", "BASE_URL")
	_ = v.BindEnv("auth.secret", "SECRET")

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load 同 Read，出错直接退出
func Load(path string) *Config {
	c, err := Read(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return c
}

func (c *Config) Validate() error {
	if c.Auth.Secret == "" {
		return ErrNoSecret
	}
	switch c.Store.Driver {
	case DriverMemory, DriverPostgres, DriverMySQL, DriverRedis:
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if (c.Store.Driver == DriverPostgres || c.Store.Driver == DriverMySQL) && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for driver %s", c.Store.Driver)
	}
	return nil
}

// PublicURL 对外地址；未配置 BASE_URL 时按监听地址拼一个可点击的
func (c *Config) PublicURL() string {
	if c.App.BaseURL != "" {
		return strings.TrimRight(c.App.BaseURL, "/")
	}
	host := c.App.HTTP.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, c.App.HTTP.Port)
}
