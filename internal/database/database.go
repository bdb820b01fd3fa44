// Пакет database — подключение к MongoDB (mongo-driver), применение
// версионных миграций схемы (golang-migrate) и закрытие подключения.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mongodb"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/inforsion/ocr-db-init/internal/config"
)

// appName — имя приложения в метаданных подключения (видно в currentOp и логах mongod).
const appName = "ocr-db-init"

//go:embed migrations/*.json
var migrationsFS embed.FS

// Connect создаёт клиент MongoDB по административному URI.
// Выполняет ping primary для проверки доступности и прав.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*mongo.Client, error) {
	clientOpts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetAppName(appName).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout)
	if err := clientOpts.Validate(); err != nil {
		return nil, fmt.Errorf("ошибка разбора OI_MONGO_URI: %w", err)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания клиента MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	// Проверяем подключение
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ошибка подключения к MongoDB: %w", err)
	}

	logger.Info("Подключение к MongoDB установлено",
		slog.Any("hosts", clientOpts.Hosts),
		slog.String("database", cfg.DBName),
	)

	return client, nil
}

// Disconnect закрывает подключение. Ошибка только логируется.
func Disconnect(ctx context.Context, client *mongo.Client, logger *slog.Logger) {
	if client == nil {
		return
	}
	if err := client.Disconnect(ctx); err != nil {
		logger.Error("Ошибка закрытия подключения к MongoDB", slog.String("error", err.Error()))
		return
	}
	logger.Debug("Подключение к MongoDB закрыто")
}

// Migrate применяет миграции схемы из embedded FS к целевой базе.
// Использует golang-migrate с драйвером mongodb: каждый файл — массив команд БД.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	// Создаём источник миграций из embedded FS
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка создания источника миграций: %w", err)
	}

	dbURL, err := MigrationURL(cfg)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()

	// Применяем все миграции
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Миграции применены",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)

	return nil
}

// MigrationURL формирует URL для golang-migrate из административного URI:
// путь указывает на целевую базу, authSource сохраняет базу аутентификации
// (исходный путь URI или admin), x-migrations-collection — коллекция версий.
func MigrationURL(cfg *config.Config) (string, error) {
	u, err := url.Parse(cfg.MongoURI)
	if err != nil {
		return "", fmt.Errorf("ошибка разбора OI_MONGO_URI: %w", err)
	}

	q := u.Query()
	if q.Get("authSource") == "" && u.User != nil {
		authDB := "admin"
		if p := strings.TrimLeft(u.Path, "/"); p != "" {
			authDB = p
		}
		q.Set("authSource", authDB)
	}
	if cfg.MigrationsCollection != "" {
		q.Set("x-migrations-collection", cfg.MigrationsCollection)
	}

	u.Path = "/" + cfg.DBName
	u.RawQuery = q.Encode()
	return u.String(), nil
}
