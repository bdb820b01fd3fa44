// Точка входа ocr-db-init — одноразовая инициализация MongoDB для OCR-чеков.
// Загружает конфигурацию, подключается к MongoDB под административной учётной
// записью, создаёт пользователя приложения, коллекцию receiptOcrData с индексами
// и seed-документ, отправляет метрики в Pushgateway и печатает итог.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inforsion/ocr-db-init/internal/bootstrap"
	"github.com/inforsion/ocr-db-init/internal/config"
	"github.com/inforsion/ocr-db-init/internal/database"
	"github.com/inforsion/ocr-db-init/internal/domain/schema"
	"github.com/inforsion/ocr-db-init/internal/metrics"
	"github.com/inforsion/ocr-db-init/internal/repository"
)

func main() {
	os.Exit(run())
}

func run() int {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		return 1
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("ocr-db-init запускается",
		slog.String("version", config.Version),
		slog.String("mode", cfg.Mode),
		slog.String("database", cfg.DBName),
	)

	// 3. Общий дедлайн запуска и отмена по сигналу
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.OperationTimeout)
	defer cancel()

	// 4. Подключение к MongoDB
	client, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к MongoDB", slog.String("error", err.Error()))
		return 1
	}
	defer database.Disconnect(context.Background(), client, logger)

	// 5. Repositories
	db := client.Database(cfg.DBName)
	adminRepo := repository.NewAdminRepository(db)
	receiptRepo := repository.NewReceiptRepository(db.Collection(schema.CollectionName))

	// 6. Процедура инициализации
	recorder := metrics.New()
	migrate := func(context.Context) error {
		logger.Info("Применение миграций схемы...")
		return database.Migrate(cfg, logger)
	}
	proc := bootstrap.New(bootstrap.Options{
		Mode:          cfg.Mode,
		AppUser:       cfg.AppUser,
		AppPassword:   cfg.AppPassword,
		SeedEnabled:   cfg.SeedEnabled,
		VerifyEnabled: cfg.VerifyEnabled,
	}, adminRepo, receiptRepo, migrate, recorder, logger)

	// 7. Запуск
	res, runErr := proc.Run(ctx)

	// 8. Метрики отправляются и при ошибке: failed-шаг виден в Pushgateway
	pushMetrics(cfg, recorder, logger)

	if runErr != nil {
		logger.Error("Инициализация MongoDB не выполнена", slog.String("error", runErr.Error()))
		return 1
	}

	// 9. Итог
	for _, line := range res.Summary() {
		logger.Info(line)
	}
	return 0
}

// pushMetrics отправляет метрики, если задан OI_PUSHGATEWAY_URL.
// Ошибка отправки не влияет на код завершения.
func pushMetrics(cfg *config.Config, recorder *metrics.Recorder, logger *slog.Logger) {
	if cfg.PushgatewayURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := recorder.Push(ctx, cfg.PushgatewayURL, cfg.MetricsJob, cfg.DBName); err != nil {
		logger.Warn("Метрики не отправлены", slog.String("error", err.Error()))
		return
	}
	logger.Debug("Метрики отправлены в Pushgateway", slog.String("url", cfg.PushgatewayURL))
}
