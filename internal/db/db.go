package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tabletap-be/internal/config"
	"tabletap-be/internal/logger"

	_ "github.com/lib/pq"

	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// InitDB opens the Postgres pool the engine runs on. The engine holds only
// short transactions of conditional updates, so the pool stays small.
func InitDB(cfg *config.Config) *sql.DB {
	database, err := sql.Open("postgres", dsn(cfg))
	if err != nil {
		logger.L().Fatal("failed to open database", zap.Error(err))
	}

	database.SetMaxOpenConns(25)
	database.SetMaxIdleConns(5)
	database.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := database.PingContext(ctx); err != nil {
		logger.L().Fatal("failed to reach database", zap.Error(err))
	}

	logger.L().Info("database connection established",
		zap.String("host", cfg.DBHost),
		zap.String("database", cfg.DBName),
	)
	return database
}

func dsn(cfg *config.Config) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)
}
