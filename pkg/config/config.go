package config

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/vault-client-go"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	_ "github.com/spf13/viper/remote"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	config      = viper.New()
	configName  = "config"
	configType  = "yaml"
	backend     = "consul"
	backendPath = "loyalty-connector/development"
)

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	TLS        struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Otel struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"OTEL"`
	Pyroscope struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"PYROSCOPE"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
		AllowOrigins []string      `mapstructure:"ALLOW_ORIGINS"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Loyalty struct {
		BaseURL    string        `mapstructure:"BASE_URL"`
		APIKey     string        `mapstructure:"API_KEY"`
		APISecret  string        `mapstructure:"API_SECRET"`
		AuthScheme string        `mapstructure:"AUTH_SCHEME"`
		Timeout    time.Duration `mapstructure:"TIMEOUT"`
		RetryCount int           `mapstructure:"RETRY_COUNT"`
		Sources    []string      `mapstructure:"SOURCES"`
	} `mapstructure:"LOYALTY"`
	Redemption struct {
		Mode         string        `mapstructure:"MODE"`
		LockEnabled  bool          `mapstructure:"LOCK_ENABLED"`
		LockTTL      time.Duration `mapstructure:"LOCK_TTL"`
		CouponPrefix string        `mapstructure:"COUPON_PREFIX"`
		NodeID       int64         `mapstructure:"NODE_ID"`
	} `mapstructure:"REDEMPTION"`
	Shortcode struct {
		BalanceDefault string `mapstructure:"BALANCE_DEFAULT"`
		BalanceLabel   string `mapstructure:"BALANCE_LABEL"`
		NotLoggedIn    string `mapstructure:"NOT_LOGGED_IN"`
		NoOptions      string `mapstructure:"NO_OPTIONS"`
		ZeroBalance    string `mapstructure:"ZERO_BALANCE"`
		FormID         string `mapstructure:"FORM_ID"`
		OptionsName    string `mapstructure:"OPTIONS_NAME"`
		AjaxAction     string `mapstructure:"AJAX_ACTION"`
	} `mapstructure:"SHORTCODE"`
	Flagsmith struct {
		Addr   string `mapstructure:"ADDR"`
		ApiKey string `mapstructure:"API_KEY"`
	} `mapstructure:"FLAGSMITH"`
	Vault struct {
		Enable    bool   `mapstructure:"ENABLE"`
		MountPath string `mapstructure:"MOUNT_PATH"`
	} `mapstructure:"VAULT"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

type Params struct {
	fx.In
	Vault *vault.Client `optional:"true"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "loyalty-connector")
	v.SetDefault("HTTP_SERVER.ADDR", "8080")
	v.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("HTTP_SERVER.ALLOW_ORIGINS", []string{"*"})
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("DATABASE.TIMEZONE", "UTC")
	// keys without a sensible default are still registered so AutomaticEnv can fill them
	for _, key := range []string{
		"LOYALTY.BASE_URL", "LOYALTY.API_KEY", "LOYALTY.API_SECRET",
		"DATABASE.HOST", "DATABASE.PORT", "DATABASE.DBNAME", "DATABASE.USER", "DATABASE.PASSWORD",
		"REDIS.ADDR", "REDIS.PASSWORD", "OTEL.ADDR", "PYROSCOPE.ADDR",
		"FLAGSMITH.ADDR", "FLAGSMITH.API_KEY", "TLS.CERT_PATH", "TLS.KEY_PATH",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("LOYALTY.AUTH_SCHEME", "basic")
	v.SetDefault("LOYALTY.TIMEOUT", 10*time.Second)
	v.SetDefault("LOYALTY.RETRY_COUNT", 2)
	v.SetDefault("LOYALTY.SOURCES", []string{"woocommerce"})
	v.SetDefault("REDEMPTION.MODE", "balance")
	v.SetDefault("REDEMPTION.LOCK_ENABLED", true)
	v.SetDefault("REDEMPTION.LOCK_TTL", 30*time.Second)
	v.SetDefault("REDEMPTION.COUPON_PREFIX", "ST")
	v.SetDefault("REDEMPTION.NODE_ID", 1)
	v.SetDefault("SHORTCODE.BALANCE_DEFAULT", "N/A")
	v.SetDefault("SHORTCODE.BALANCE_LABEL", "Points")
	v.SetDefault("SHORTCODE.NOT_LOGGED_IN", "Log in to see your points.")
	v.SetDefault("SHORTCODE.NO_OPTIONS", "You don't have enough points to redeem yet.")
	v.SetDefault("SHORTCODE.FORM_ID", "loyalty-redemption-form")
	v.SetDefault("SHORTCODE.OPTIONS_NAME", "loyalty_redemption_option")
	v.SetDefault("SHORTCODE.AJAX_ACTION", "loyalty_customer_coupon_redemption")
	v.SetDefault("VAULT.MOUNT_PATH", "secret")
}

var loadEnvOnce sync.Once

// LoadEnv reads an optional .env file once per process. Variables already in the environment win.
func LoadEnv() {
	loadEnvOnce.Do(func() {
		_ = godotenv.Load()
	})
}

// RedisEnabled reports whether REDIS_ADDR is set, after .env has been applied.
func RedisEnabled() bool {
	LoadEnv()
	return os.Getenv("REDIS_ADDR") != ""
}

func LoadConfig(p Params) (*Config, error) {
	LoadEnv()

	setDefaults(config)
	config.SetConfigName(configName)
	config.SetConfigType(configType)
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	if err := config.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		zap.L().Warn("config file not found, using defaults and environment")
	}

	if err := readRemote(config); err != nil {
		return nil, err
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if p.Vault != nil && cfg.Vault.Enable {
		if err := applyVaultSecrets(context.Background(), p.Vault, &cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyVaultSecrets(ctx context.Context, client *vault.Client, cfg *Config) error {
	zap.L().Info("Starting Get Secrets", zap.String("path", cfg.AppEnv))
	secret, err := client.Secrets.KvV2Read(ctx, cfg.AppEnv, vault.WithMountPath(cfg.Vault.MountPath))
	if err != nil {
		zap.L().Error("failed get secret from vault", zap.Error(err))
		return err
	}
	zap.L().Info("Success Get Secret")

	get := func(key, fallback string) string {
		if val, ok := secret.Data.Data[key].(string); ok && val != "" {
			return val
		}
		return fallback
	}

	cfg.Loyalty.APIKey = get("loyalty_api_key", cfg.Loyalty.APIKey)
	cfg.Loyalty.APISecret = get("loyalty_api_secret", cfg.Loyalty.APISecret)
	cfg.Database.Password = get("postgres_password", cfg.Database.Password)
	cfg.Redis.Password = get("redis_password", cfg.Redis.Password)
	cfg.Flagsmith.ApiKey = get("flagsmith_api_key", cfg.Flagsmith.ApiKey)
	return nil
}

// readRemote adds a consul/etcd key as a config layer when REMOTE_CONFIG_ADDR is set. It sits
// below the config file and the environment.
func readRemote(v *viper.Viper) error {
	addr, ok := os.LookupEnv("REMOTE_CONFIG_ADDR")
	if !ok || addr == "" {
		return nil
	}

	provider, path := backend, backendPath
	if p, ok := os.LookupEnv("REMOTE_CONFIG_PROVIDER"); ok && p != "" {
		provider = p
	}
	if p, ok := os.LookupEnv("REMOTE_CONFIG_PATH"); ok && p != "" {
		path = p
	}

	if err := v.AddRemoteProvider(provider, addr, path); err != nil {
		zap.L().Error("invalid remote config provider", zap.String("provider", provider), zap.Error(err))
		return err
	}
	if err := v.ReadRemoteConfig(); err != nil {
		zap.L().Error("unable to read remote config", zap.String("addr", addr), zap.String("path", path), zap.Error(err))
		return err
	}

	zap.L().Info("remote config loaded", zap.String("provider", provider), zap.String("path", path))
	return nil
}

func (c *Config) Validate() error {
	if c.Loyalty.BaseURL == "" {
		return errors.New("LOYALTY.BASE_URL is required")
	}
	if c.Loyalty.APIKey == "" {
		return errors.New("LOYALTY.API_KEY is required")
	}
	switch c.Loyalty.AuthScheme {
	case "basic", "bearer":
	default:
		return errors.New("LOYALTY.AUTH_SCHEME must be basic or bearer")
	}
	switch c.Redemption.Mode {
	case "balance", "customer":
	default:
		return errors.New("REDEMPTION.MODE must be balance or customer")
	}
	if c.TLS.Enable && (c.TLS.CertPath == "" || c.TLS.KeyPath == "") {
		return errors.New("tls enabled but TLS.CERT_PATH or TLS.KEY_PATH not provided")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
