package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/inforsion/ocr-db-init/internal/domain/schema"
)

// StepReport — итог одного шага.
type StepReport struct {
	Name     string
	Result   string
	Duration time.Duration
}

// Result — итог запуска процедуры.
type Result struct {
	RunID      string
	Mode       string
	Database   string
	Collection string
	User       string

	UserCreated    bool
	SchemaMigrated bool
	IndexesCreated []string
	SeedInserted   bool
	SeedReceiptID  string

	Steps []StepReport
}

// Summary возвращает строки отчёта о завершении: база, коллекция,
// пользователь и сводка индексов по сценариям.
func (r *Result) Summary() []string {
	lines := []string{
		fmt.Sprintf("База данных: %s", r.Database),
		fmt.Sprintf("Коллекция: %s", r.Collection),
	}

	if r.UserCreated {
		lines = append(lines, fmt.Sprintf("Пользователь: %s создан", r.User))
	} else {
		lines = append(lines, fmt.Sprintf("Пользователь: %s уже существует", r.User))
	}

	switch {
	case r.SeedInserted:
		lines = append(lines, fmt.Sprintf("Seed-документ: %s вставлен", r.SeedReceiptID))
	case r.SeedReceiptID != "":
		lines = append(lines, fmt.Sprintf("Seed-документ: %s уже существует", r.SeedReceiptID))
	}

	if r.SchemaMigrated {
		lines = append(lines, "Индексы применены миграциями:")
	} else {
		lines = append(lines, "Созданные индексы:")
	}
	lines = append(lines, indexGroups(r.IndexesCreated)...)

	return lines
}

// indexGroups группирует индексы по сценариям использования.
func indexGroups(created []string) []string {
	have := make(map[string]bool, len(created))
	for _, name := range created {
		have[name] = true
	}

	var base, search, sales, items []string
	for _, spec := range schema.ReceiptOcrIndexes() {
		if !have[spec.Name()] {
			continue
		}
		fields := make([]string, 0, len(spec.Keys))
		for _, k := range spec.Keys {
			fields = append(fields, k.Field)
		}
		joined := strings.Join(fields, " + ")

		switch {
		case len(spec.Keys) == 1 && spec.Keys[0].Kind == schema.Text:
			search = append(search, joined+" (текстовый индекс)")
		case !spec.Compound():
			base = append(base, joined)
		case spec.Multikey():
			items = append(items, joined)
		default:
			sales = append(sales, joined)
		}
	}

	var lines []string
	if len(base) > 0 {
		lines = append(lines, "- Базовые индексы: "+strings.Join(base, ", "))
	}
	if len(search) > 0 {
		lines = append(lines, "- Поиск товаров: "+strings.Join(search, ", "))
	}
	if len(sales) > 0 {
		lines = append(lines, "- Анализ продаж: "+strings.Join(sales, ", "))
	}
	if len(items) > 0 {
		lines = append(lines, "- Анализ позиций (multikey): "+strings.Join(items, ", "))
	}
	return lines
}
