package database

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
)

type Opts struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	LogLevel           string
}

var ErrUnsupportedDriver = errors.New("unsupported sql driver")

// Dialector 按驱动名构造 gorm 方言；mysql 的 DSN 先做兼容改写
func Dialector(o Opts, l *zap.Logger) (gorm.Dialector, error) {
	switch o.Driver {
	case "postgres":
		return postgres.Open(o.DSN), nil
	case "mysql":
		dsn := normalizeMySQLDSN(o.DSN, o.Username, o.Password)
		if l != nil {
			l.Info("mysql dsn", zap.String("dsn", maskDSN(dsn)))
		}
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, o.Driver)
	}
}

func NewGorm(o Opts, l *zap.Logger) (*gorm.DB, error) {
	dial, err := Dialector(o, l)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dial, &gorm.Config{
		Logger:         logger.Default.LogMode(gormLevel(o.LogLevel)),
		TranslateError: true, // 唯一约束冲突 → gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	sqlDB.SetMaxIdleConns(o.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(o.ConnMaxLifetimeMin) * time.Minute)
	db = db.Session(&gorm.Session{
		PrepareStmt:            true, // 预编译缓存
		SkipDefaultTransaction: true, // 单条写不需要事务
	})
	return db, nil
}

func gormLevel(s string) logger.LogLevel {
	switch s {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}

// maskDSN 隐藏 user:pass@ 中的口令
func maskDSN(dsn string) string {
	at := strings.Index(dsn, "@")
	if at <= 0 {
		return dsn
	}
	colon := strings.Index(dsn[:at], ":")
	if colon <= 0 {
		return dsn
	}
	return dsn[:colon+1] + "****" + dsn[at:]
}

// normalizeMySQLDSN 把 mysql:// 或 jdbc:mysql:// URL 改写为 go-sql-driver 的 DSN；
// 已是 user:pass@tcp(...) 形式的原样返回
func normalizeMySQLDSN(input, userOverride, passOverride string) string {
	in := strings.TrimSpace(input)
	if in == "" {
		return in
	}
	in = strings.TrimPrefix(in, "jdbc:")
	if !strings.HasPrefix(in, "mysql://") {
		return in
	}

	u, err := url.Parse(in)
	if err != nil {
		return in // 交给驱动报错
	}
	hostport := u.Host
	dbname := strings.TrimPrefix(u.Path, "/")

	var user, pass string
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	q := u.Query()
	if v := q.Get("user"); v != "" {
		user = v
	}
	if v := q.Get("password"); v != "" {
		pass = v
	}
	q.Del("user")
	q.Del("password")
	if userOverride != "" {
		user = userOverride
	}
	if passOverride != "" {
		pass = passOverride
	}

	// JDBC 参数适配
	if q.Get("characterEncoding") != "" && q.Get("charset") == "" {
		q.Set("charset", q.Get("characterEncoding"))
	}
	q.Del("characterEncoding")
	q.Del("useUnicode")
	q.Del("zeroDateTimeBehavior")
	if v := strings.ToLower(q.Get("useSSL")); v != "" {
		switch v {
		case "true", "1":
			q.Set("tls", "true")
		case "skip-verify", "preferred":
			q.Set("tls", v)
		default:
			q.Set("tls", "false")
		}
		q.Del("useSSL")
	}
	if tz := q.Get("serverTimezone"); tz != "" {
		q.Set("loc", tz)
		q.Del("serverTimezone")
	}
	if q.Get("parseTime") == "" {
		q.Set("parseTime", "true")
	}
	if q.Get("charset") == "" {
		q.Set("charset", "utf8mb4")
	}

	cred := user
	if pass != "" {
		cred += ":" + pass
	}
	if cred != "" {
		cred += "@"
	}
	dsn := fmt.Sprintf("%stcp(%s)/%s", cred, hostport, dbname)
	if enc := q.Encode(); enc != "" {
		dsn += "?" + enc
	}
	return dsn
}
