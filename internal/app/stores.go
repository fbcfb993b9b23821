package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dailyscrum/internal/config"
	"dailyscrum/internal/repositories"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type repositorySet struct {
	users  repositories.UserRepository
	titles repositories.TitleRepository
	posts  repositories.DailyScrumPostRepository
}

func (a *App) openRepositories(ctx context.Context, cfg config.Config) (repositorySet, error) {
	if cfg.DBDriver == config.DBMongo {
		return a.openMongo(ctx, cfg)
	}
	return a.openGORM(cfg)
}

func (a *App) openGORM(cfg config.Config) (repositorySet, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DBPostgres:
		dialector = postgres.Open(cfg.DatabaseDSN)
	default:
		dialector = sqlite.Open(cfg.DatabaseDSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger(a.logger),
	})
	if err != nil {
		return repositorySet{}, fmt.Errorf("failed to connect to %s database: %w", cfg.DBDriver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return repositorySet{}, fmt.Errorf("failed to get database handle: %w", err)
	}
	a.closers = append(a.closers, sqlDB.Close)

	if err := repositories.MigrateGORM(db); err != nil {
		return repositorySet{}, err
	}

	return repositorySet{
		users:  repositories.NewGORMUserRepository(db),
		titles: repositories.NewGORMTitleRepository(db),
		posts:  repositories.NewGORMDailyScrumPostRepository(db),
	}, nil
}

// gormLogger sends slow queries and SQL errors through the app logger. Missing
// rows are an expected outcome of lookups and are not reported.
func gormLogger(logger *slog.Logger) gormlogger.Interface {
	return gormlogger.New(slog.NewLogLogger(logger.Handler(), slog.LevelWarn), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

func (a *App) openMongo(ctx context.Context, cfg config.Config) (repositorySet, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return repositorySet{}, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	a.closers = append(a.closers, func() error {
		return client.Disconnect(context.Background())
	})
	if err := client.Ping(ctx, nil); err != nil {
		return repositorySet{}, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.MongoDatabase)
	if err := repositories.EnsureMongoIndexes(ctx, db); err != nil {
		return repositorySet{}, err
	}

	return repositorySet{
		users:  repositories.NewMongoUserRepository(db),
		titles: repositories.NewMongoTitleRepository(db),
		posts:  repositories.NewMongoDailyScrumPostRepository(db),
	}, nil
}
