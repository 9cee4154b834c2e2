// Package app wires configuration into the concrete backends. The same
// container serves the dev server and every Lambda entrypoint; Lambdas build
// it once per cold start.
package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/araozmd/ancdotario-user-service/internal/assets"
	"github.com/araozmd/ancdotario-user-service/internal/auth"
	"github.com/araozmd/ancdotario-user-service/internal/cache"
	"github.com/araozmd/ancdotario-user-service/internal/config"
	"github.com/araozmd/ancdotario-user-service/internal/database"
	"github.com/araozmd/ancdotario-user-service/internal/domain"
	"github.com/araozmd/ancdotario-user-service/internal/nickname"
	"github.com/araozmd/ancdotario-user-service/internal/photo"
	"github.com/araozmd/ancdotario-user-service/internal/repository"
	"github.com/araozmd/ancdotario-user-service/internal/service"
	"github.com/araozmd/ancdotario-user-service/pkg/log"
	"github.com/araozmd/ancdotario-user-service/pkg/storage"
)

// Container holds the wired application components.
type Container struct {
	Config   *config.Config
	Users    service.UserService
	Photos   service.PhotoService
	Provider auth.ContextProvider

	userCache cache.UserCache
}

// NewContainer builds every component from the resolved configuration.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	repo, err := newRepository(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	objectStore, err := newObjectStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	userCache, err := newUserCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	provider, err := newAuthProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth provider: %w", err)
	}

	assetStore := assets.NewStore(objectStore, cfg.Photo.URLTTL())
	rules := nickname.Rules{MinLen: cfg.Nickname.MinLen, MaxLen: cfg.Nickname.MaxLen}
	constraints := photo.Constraints{
		MaxBytes:  cfg.Photo.MaxBytes,
		MaxWidth:  cfg.Photo.MaxWidth,
		MaxHeight: cfg.Photo.MaxHeight,
		Quality:   cfg.Photo.Quality,
	}

	return &Container{
		Config:    cfg,
		Users:     service.NewUserService(repo, assetStore, userCache, rules, cfg.Cache.TTL),
		Photos:    service.NewPhotoService(repo, assetStore, userCache, rules, constraints),
		Provider:  provider,
		userCache: userCache,
	}, nil
}

// Close releases held connections.
func (c *Container) Close() error {
	if c.userCache != nil {
		return c.userCache.Close()
	}
	return nil
}

func newRepository(ctx context.Context, cfg *config.Config) (repository.UserRepository, error) {
	switch cfg.Database.Backend {
	case "dynamo":
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.AWS.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWS.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.Database.Endpoint != "" {
				// DynamoDB Local for development.
				o.BaseEndpoint = aws.String(cfg.Database.Endpoint)
			}
		})
		log.L().Info().
			Str(log.FieldTable, cfg.Database.Table).
			Msg("using DynamoDB repository")
		return repository.NewDynamoUserRepository(client, cfg.Database.Table, cfg.Database.NicknameIndex), nil

	case "gorm":
		db, err := database.New(&database.Config{
			Driver:          cfg.Database.Driver,
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			DBName:          cfg.Database.DBName,
			SSLMode:         cfg.Database.SSLMode,
			FilePath:        cfg.Database.FilePath,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.AutoMigrate(db, &domain.UserModel{}); err != nil {
			return nil, fmt.Errorf("failed to auto-migrate: %w", err)
		}
		log.L().Info().
			Str("driver", cfg.Database.Driver).
			Msg("using GORM repository")
		return repository.NewGormUserRepository(db), nil

	case "memory":
		// Single-process only; records do not survive a restart.
		return repository.NewMemoryUserRepository(), nil

	default:
		return nil, fmt.Errorf("unsupported database backend: %s", cfg.Database.Backend)
	}
}

func newObjectStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Type {
	case "s3":
		st, err := storage.NewS3Storage(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, err
		}
		log.L().Info().
			Str(log.FieldBucket, cfg.Storage.S3.Bucket).
			Msg("using S3 storage")
		return st, nil

	case "local":
		return storage.NewLocalStorage(cfg.Storage.Local)

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

func newUserCache(cfg *config.Config) (cache.UserCache, error) {
	if cfg.Cache.RedisAddress == "" {
		return cache.NewNoopUserCache(), nil
	}
	c, err := cache.NewRedisUserCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	log.L().Info().Str("address", cfg.Cache.RedisAddress).Msg("using Redis cache")
	return c, nil
}

func newAuthProvider(cfg *config.Config) (auth.ContextProvider, error) {
	switch cfg.Auth.Provider {
	case "gateway":
		return auth.NewGatewayProvider(), nil
	case "jwt":
		return auth.NewJWTProvider(cfg.Auth.JWTSecret, cfg.Auth.Issuer), nil
	default:
		return nil, fmt.Errorf("unsupported auth provider: %s", cfg.Auth.Provider)
	}
}
