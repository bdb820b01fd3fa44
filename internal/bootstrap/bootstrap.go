// Пакет bootstrap — процедура инициализации базы OCR-чеков.
//
// Шаги выполняются строго последовательно, первая ошибка прерывает
// оставшиеся. Повторов, транзакций и отката нет: каждый шаг — одна
// административная операция.
//
// Режим strict воспроизводит исходное поведение: повторный запуск на уже
// инициализированной базе завершается ошибкой на создании пользователя
// (и/или на вставке seed-документа). Режим migrate повторяем: схема
// применяется версионными миграциями, пользователь и seed создаются
// только при отсутствии.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inforsion/ocr-db-init/internal/config"
	"github.com/inforsion/ocr-db-init/internal/domain/model"
	"github.com/inforsion/ocr-db-init/internal/domain/schema"
	"github.com/inforsion/ocr-db-init/internal/fixture"
	"github.com/inforsion/ocr-db-init/internal/metrics"
	"github.com/inforsion/ocr-db-init/internal/repository"
)

// Имена шагов (лейбл step в метриках и поле step в логах).
const (
	StepSelectDatabase   = "select_database"
	StepCreateUser       = "create_user"
	StepCreateCollection = "create_collection"
	StepCreateIndexes    = "create_indexes"
	StepMigrateSchema    = "migrate_schema"
	StepInsertSeed       = "insert_seed"
	StepVerify           = "verify"
)

// ErrVerification — smoke-проверка после инициализации не прошла.
var ErrVerification = errors.New("проверка инициализации не пройдена")

// Admin — административные операции над целевой базой.
// Реализуется repository.AdminRepository.
type Admin interface {
	DatabaseName() string
	CreateUser(ctx context.Context, username, password string, roles []repository.Role) error
	UserExists(ctx context.Context, username string) (bool, error)
	CreateCollection(ctx context.Context, name string) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, collection string, spec schema.IndexSpec) (string, error)
	ListIndexes(ctx context.Context, collection string) ([]schema.LiveIndex, error)
}

// Receipts — операции над документами коллекции.
// Реализуется repository.ReceiptRepository.
type Receipts interface {
	Insert(ctx context.Context, rec *model.ReceiptOcrRecord) error
	Exists(ctx context.Context, receiptID string) (bool, error)
	FindByReceiptID(ctx context.Context, receiptID string) (*model.ReceiptOcrRecord, error)
}

// MigrateFunc применяет версионные миграции схемы (режим migrate).
type MigrateFunc func(ctx context.Context) error

// Options — параметры процедуры.
type Options struct {
	// strict или migrate
	Mode string
	// Учётные данные пользователя приложения
	AppUser     string
	AppPassword string
	// Вставлять seed-документ
	SeedEnabled bool
	// Выполнять smoke-проверку
	VerifyEnabled bool
	// Источник времени для createdAt/parsedAt (по умолчанию time.Now)
	Now func() time.Time
}

// StepError — ошибка шага. Исходная ошибка (в том числе ошибка драйвера)
// доступна через errors.Is/errors.As.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("шаг %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Procedure — процедура инициализации. Все зависимости передаются явно.
type Procedure struct {
	opts     Options
	admin    Admin
	receipts Receipts
	migrate  MigrateFunc
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// New создаёт процедуру. migrate обязателен только для режима migrate,
// recorder может быть nil.
func New(opts Options, admin Admin, receipts Receipts, migrate MigrateFunc, recorder *metrics.Recorder, logger *slog.Logger) *Procedure {
	if opts.Mode == "" {
		opts.Mode = config.ModeStrict
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if recorder == nil {
		recorder = metrics.New()
	}
	return &Procedure{
		opts:     opts,
		admin:    admin,
		receipts: receipts,
		migrate:  migrate,
		metrics:  recorder,
		logger:   logger.With(slog.String("component", "bootstrap")),
	}
}

// step — один шаг процедуры. Возвращает результат (ok или skipped).
type step struct {
	name string
	run  func(ctx context.Context, res *Result) (string, error)
}

// plan возвращает упорядоченный список шагов для режима.
func (p *Procedure) plan() []step {
	if p.opts.Mode == config.ModeMigrate {
		return []step{
			{StepSelectDatabase, p.selectDatabase},
			{StepCreateUser, p.ensureUser},
			{StepMigrateSchema, p.migrateSchema},
			{StepInsertSeed, p.ensureSeed},
			{StepVerify, p.verify},
		}
	}
	return []step{
		{StepSelectDatabase, p.selectDatabase},
		{StepCreateUser, p.createUser},
		{StepCreateCollection, p.createCollection},
		{StepCreateIndexes, p.createIndexes},
		{StepInsertSeed, p.insertSeed},
		{StepVerify, p.verify},
	}
}

// Run выполняет процедуру. При ошибке возвращает частичный Result и *StepError.
func (p *Procedure) Run(ctx context.Context) (*Result, error) {
	if p.opts.Mode == config.ModeMigrate && p.migrate == nil {
		return nil, fmt.Errorf("режим migrate: не задана функция миграций")
	}

	res := &Result{
		RunID:      uuid.NewString(),
		Mode:       p.opts.Mode,
		Database:   p.admin.DatabaseName(),
		Collection: schema.CollectionName,
		User:       p.opts.AppUser,
	}
	logger := p.logger.With(slog.String("run_id", res.RunID), slog.String("mode", res.Mode))
	logger.Info("Инициализация MongoDB начата", slog.String("database", res.Database))

	for _, s := range p.plan() {
		if err := ctx.Err(); err != nil {
			return res, &StepError{Step: s.name, Err: err}
		}

		start := time.Now()
		outcome, err := s.run(ctx, res)
		elapsed := time.Since(start)

		if err != nil {
			p.metrics.ObserveStep(s.name, metrics.ResultError, elapsed)
			res.Steps = append(res.Steps, StepReport{Name: s.name, Result: metrics.ResultError, Duration: elapsed})
			logger.Error("Шаг инициализации завершился ошибкой",
				slog.String("step", s.name),
				slog.String("error", err.Error()),
			)
			return res, &StepError{Step: s.name, Err: err}
		}

		p.metrics.ObserveStep(s.name, outcome, elapsed)
		res.Steps = append(res.Steps, StepReport{Name: s.name, Result: outcome, Duration: elapsed})
		logger.Debug("Шаг инициализации выполнен",
			slog.String("step", s.name),
			slog.String("result", outcome),
			slog.Duration("duration", elapsed),
		)
	}

	p.metrics.SetIndexesCreated(len(res.IndexesCreated))
	p.metrics.MarkSuccess(p.opts.Now())
	logger.Info("Инициализация MongoDB завершена")
	return res, nil
}

// --- Шаги ---

func (p *Procedure) selectDatabase(_ context.Context, res *Result) (string, error) {
	// База создаётся MongoDB при первой записи; шаг фиксирует цель.
	p.logger.Info("Целевая база данных выбрана", slog.String("database", res.Database))
	return metrics.ResultOK, nil
}

func (p *Procedure) roles() []repository.Role {
	return []repository.Role{{Role: repository.RoleReadWrite, DB: p.admin.DatabaseName()}}
}

func (p *Procedure) createUser(ctx context.Context, res *Result) (string, error) {
	if err := p.admin.CreateUser(ctx, p.opts.AppUser, p.opts.AppPassword, p.roles()); err != nil {
		return "", err
	}
	res.UserCreated = true
	p.logger.Info("Пользователь приложения создан",
		slog.String("user", p.opts.AppUser),
		slog.String("role", repository.RoleReadWrite),
		slog.String("database", res.Database),
	)
	return metrics.ResultOK, nil
}

func (p *Procedure) ensureUser(ctx context.Context, res *Result) (string, error) {
	exists, err := p.admin.UserExists(ctx, p.opts.AppUser)
	if err != nil {
		return "", err
	}
	if exists {
		p.logger.Info("Пользователь приложения уже существует", slog.String("user", p.opts.AppUser))
		return metrics.ResultSkipped, nil
	}
	return p.createUser(ctx, res)
}

func (p *Procedure) createCollection(ctx context.Context, res *Result) (string, error) {
	if err := p.admin.CreateCollection(ctx, res.Collection); err != nil {
		return "", err
	}
	p.logger.Info("Коллекция создана", slog.String("collection", res.Collection))
	return metrics.ResultOK, nil
}

func (p *Procedure) createIndexes(ctx context.Context, res *Result) (string, error) {
	for _, spec := range schema.ReceiptOcrIndexes() {
		name, err := p.admin.CreateIndex(ctx, res.Collection, spec)
		if err != nil {
			return "", err
		}
		res.IndexesCreated = append(res.IndexesCreated, name)
		p.logger.Debug("Индекс создан",
			slog.String("index", name),
			slog.Bool("unique", spec.Unique),
			slog.Bool("multikey", spec.Multikey()),
		)
	}
	p.logger.Info("Индексы созданы", slog.Int("count", len(res.IndexesCreated)))
	return metrics.ResultOK, nil
}

func (p *Procedure) migrateSchema(ctx context.Context, res *Result) (string, error) {
	if err := p.migrate(ctx); err != nil {
		return "", err
	}
	res.SchemaMigrated = true
	res.IndexesCreated = schema.IndexNames(schema.ReceiptOcrIndexes())
	return metrics.ResultOK, nil
}

func (p *Procedure) seedDocument() (*model.ReceiptOcrRecord, error) {
	// MongoDB хранит время с точностью до миллисекунд
	rec := fixture.SampleReceipt(p.opts.Now().UTC().Truncate(time.Millisecond))
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

func (p *Procedure) insertSeed(ctx context.Context, res *Result) (string, error) {
	if !p.opts.SeedEnabled {
		return metrics.ResultSkipped, nil
	}
	rec, err := p.seedDocument()
	if err != nil {
		return "", err
	}
	if err := p.receipts.Insert(ctx, rec); err != nil {
		return "", err
	}
	res.SeedInserted = true
	res.SeedReceiptID = rec.ReceiptID
	p.logger.Info("Seed-документ вставлен", slog.String("receipt_id", rec.ReceiptID))
	return metrics.ResultOK, nil
}

func (p *Procedure) ensureSeed(ctx context.Context, res *Result) (string, error) {
	if !p.opts.SeedEnabled {
		return metrics.ResultSkipped, nil
	}
	exists, err := p.receipts.Exists(ctx, fixture.SampleReceiptID)
	if err != nil {
		return "", err
	}
	if exists {
		res.SeedReceiptID = fixture.SampleReceiptID
		p.logger.Info("Seed-документ уже существует", slog.String("receipt_id", fixture.SampleReceiptID))
		return metrics.ResultSkipped, nil
	}
	return p.insertSeed(ctx, res)
}

// verify сверяет индексы коллекции с контрактом и проверяет round-trip seed-документа.
func (p *Procedure) verify(ctx context.Context, res *Result) (string, error) {
	if !p.opts.VerifyEnabled {
		return metrics.ResultSkipped, nil
	}

	live, err := p.admin.ListIndexes(ctx, res.Collection)
	if err != nil {
		return "", err
	}
	if diffs := schema.Diff(schema.ReceiptOcrIndexes(), live); len(diffs) != 0 {
		return "", fmt.Errorf("%w: %s", ErrVerification, strings.Join(diffs, "; "))
	}

	if p.opts.SeedEnabled {
		rec, err := p.receipts.FindByReceiptID(ctx, fixture.SampleReceiptID)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrVerification, err)
		}
		if v := rec.CheckInvariants(); len(v) != 0 {
			return "", fmt.Errorf("%w: %s", ErrVerification, strings.Join(v, "; "))
		}
	}

	p.logger.Info("Проверка инициализации пройдена", slog.Int("indexes", len(live)))
	return metrics.ResultOK, nil
}
