package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/araozmd/ancdotario-user-service/pkg/log"
	"github.com/araozmd/ancdotario-user-service/pkg/storage"
)

// Config is the fully-resolved service configuration. It is constructed once
// per process (cold start for the Lambdas) and passed explicitly to the
// components that need it; nothing reads configuration ambiently after Load.
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Photo    PhotoConfig
	Nickname NicknameConfig
	Cache    CacheConfig
	AWS      AWSConfig `mapstructure:"aws"`
	Log      log.Config
}

type ServerConfig struct {
	Host string
	Port int
	Mode string // gin mode: debug, release, test
}

// AuthConfig selects the identity provider strategy.
// "gateway" trusts claims already validated by the API gateway authorizer;
// "jwt" verifies bearer tokens in-process (dev server).
type AuthConfig struct {
	Provider  string `mapstructure:"provider"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type DatabaseConfig struct {
	Backend       string `mapstructure:"backend"` // dynamo, gorm, memory
	Table         string `mapstructure:"table"`
	NicknameIndex string `mapstructure:"nickname_index"`
	Endpoint      string `mapstructure:"endpoint"` // optional, for DynamoDB Local

	// GORM backend settings
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type StorageConfig struct {
	Type  string              `mapstructure:"type"` // s3, local
	S3    storage.S3Config    `mapstructure:"s3"`
	Local storage.LocalConfig `mapstructure:"local"`
}

type PhotoConfig struct {
	MaxBytes   int64 `mapstructure:"max_bytes"`
	MaxWidth   int   `mapstructure:"max_width"`
	MaxHeight  int   `mapstructure:"max_height"`
	Quality    int   `mapstructure:"quality"`
	URLTTLDays int   `mapstructure:"url_ttl_days"`
}

// URLTTL returns the access-URL lifetime as a duration.
func (p PhotoConfig) URLTTL() time.Duration {
	return time.Duration(p.URLTTLDays) * 24 * time.Hour
}

type NicknameConfig struct {
	MinLen int `mapstructure:"min_len"`
	MaxLen int `mapstructure:"max_len"`
}

type CacheConfig struct {
	RedisAddress  string        `mapstructure:"redis_address"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Prefix        string        `mapstructure:"prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region"`
	ParameterPrefix string `mapstructure:"parameter_prefix"`
}

// Load resolves configuration in layers: built-in defaults, an optional .env
// file, an optional config.yaml, environment variables, and finally (when a
// parameter prefix is configured) string parameters from SSM Parameter
// Store. Resolution happens once; there is no hot reload.
func Load(ctx context.Context) (*Config, error) {
	// Best-effort .env for local development; absence is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	bindEnvAliases(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file: rely on defaults and env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.AWS.ParameterPrefix != "" {
		if err := applyParameterStore(ctx, v, &cfg); err != nil {
			// Parameter store being unreachable must not brick startup;
			// the resolved env/file/default values still apply.
			log.L().Warn().Err(err).
				Str("prefix", cfg.AWS.ParameterPrefix).
				Msg("parameter store overlay skipped")
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("auth.provider", "gateway")
	v.SetDefault("auth.issuer", "")

	v.SetDefault("database.backend", "dynamo")
	v.SetDefault("database.table", "users")
	v.SetDefault("database.nickname_index", "nickname-index")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "user_service")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/user.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)

	v.SetDefault("storage.type", "s3")
	v.SetDefault("storage.s3.bucket", "user-photos")
	v.SetDefault("storage.s3.cache_control", "public, max-age=31536000")
	v.SetDefault("storage.local.base_path", "./data/photos")

	v.SetDefault("photo.max_bytes", 5242880)
	v.SetDefault("photo.max_width", 1920)
	v.SetDefault("photo.max_height", 1080)
	v.SetDefault("photo.quality", 85)
	v.SetDefault("photo.url_ttl_days", 7)

	v.SetDefault("nickname.min_len", 3)
	v.SetDefault("nickname.max_len", 20)

	v.SetDefault("cache.redis_address", "")
	v.SetDefault("cache.prefix", "user")
	v.SetDefault("cache.ttl", "30s")

	v.SetDefault("aws.region", "")
	v.SetDefault("aws.parameter_prefix", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "user-service")
}

// bindEnvAliases keeps the operational env-var names stable regardless of
// the config key layout (AutomaticEnv already covers SERVER_PORT-style
// names derived from the keys themselves).
func bindEnvAliases(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("auth.provider", "AUTH_PROVIDER")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("database.backend", "DB_BACKEND")
	v.BindEnv("database.table", "USERS_TABLE")
	v.BindEnv("database.nickname_index", "NICKNAME_INDEX")
	v.BindEnv("database.endpoint", "DYNAMO_ENDPOINT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.s3.bucket", "PHOTO_BUCKET_NAME")
	v.BindEnv("storage.s3.region", "S3_REGION")
	v.BindEnv("photo.max_bytes", "MAX_IMAGE_SIZE")
	v.BindEnv("photo.quality", "PHOTO_JPEG_QUALITY")
	v.BindEnv("cache.redis_address", "REDIS_ADDRESS")
	v.BindEnv("cache.redis_password", "REDIS_PASSWORD")
	v.BindEnv("aws.region", "AWS_REGION")
	v.BindEnv("aws.parameter_prefix", "PARAMETER_PREFIX")
	v.BindEnv("log.level", "LOG_LEVEL")
}

// applyParameterStore overlays string parameters found under the configured
// prefix onto the resolved config. Parameter paths map to config keys by
// joining the path segments after the prefix with dots:
// /anecdotario/prod/user-service/storage/s3/bucket -> storage.s3.bucket.
func applyParameterStore(ctx context.Context, v *viper.Viper, cfg *Config) error {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWS.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWS.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := ssm.NewFromConfig(awsCfg)
	prefix := strings.TrimSuffix(cfg.AWS.ParameterPrefix, "/")

	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(prefix),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})

	overlaid := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch parameters: %w", err)
		}
		for _, p := range page.Parameters {
			name := strings.TrimPrefix(aws.ToString(p.Name), prefix)
			key := strings.ReplaceAll(strings.Trim(name, "/"), "/", ".")
			if key == "" {
				continue
			}
			v.Set(key, aws.ToString(p.Value))
			overlaid++
		}
	}

	if overlaid == 0 {
		return nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config after overlay: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Auth.Provider {
	case "gateway":
	case "jwt":
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required when auth.provider is jwt")
		}
	default:
		return fmt.Errorf("unsupported auth provider: %s", c.Auth.Provider)
	}

	switch c.Database.Backend {
	case "dynamo", "gorm", "memory":
	default:
		return fmt.Errorf("unsupported database backend: %s", c.Database.Backend)
	}

	switch c.Storage.Type {
	case "s3", "local":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	if c.Photo.MaxBytes <= 0 || c.Photo.MaxWidth <= 0 || c.Photo.MaxHeight <= 0 {
		return fmt.Errorf("photo constraints must be positive")
	}
	if c.Photo.Quality < 1 || c.Photo.Quality > 100 {
		return fmt.Errorf("photo.quality must be in [1,100]")
	}
	if c.Nickname.MinLen < 1 || c.Nickname.MaxLen < c.Nickname.MinLen {
		return fmt.Errorf("invalid nickname length bounds [%d,%d]", c.Nickname.MinLen, c.Nickname.MaxLen)
	}
	return nil
}
