// Пакет repository — слой доступа к данным MongoDB.
// Административные операции (пользователи, коллекции, индексы) и
// операции над документами receiptOcrData через mongo-driver.
package repository

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Ошибки слоя репозиториев. Исходная ошибка драйвера остаётся в цепочке.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (дублирующийся ключ).
	ErrConflict = errors.New("конфликт — запись уже существует")
	// ErrUserExists — пользователь БД уже существует.
	ErrUserExists = errors.New("пользователь уже существует")
	// ErrNamespaceExists — коллекция уже существует.
	ErrNamespaceExists = errors.New("коллекция уже существует")
)

// Коды ошибок сервера MongoDB.
const (
	codeNamespaceExists = 48
	codeUserExists      = 51003
)

// isUserExists проверяет, что createUser отклонён из-за существующего пользователя.
func isUserExists(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == codeUserExists || strings.Contains(cmdErr.Message, "already exists")
	}
	return false
}

// isNamespaceExists проверяет, что коллекция уже существует.
func isNamespaceExists(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == codeNamespaceExists || cmdErr.Name == "NamespaceExists"
	}
	return false
}

// collectIndexNames рекурсивно собирает значения indexName из плана запроса.
// План может быть вложен произвольно (inputStage, inputStages, queryPlan).
func collectIndexNames(v any, out []string) []string {
	switch node := v.(type) {
	case bson.M:
		return collectFromMap(node, out)
	case map[string]any:
		return collectFromMap(node, out)
	case bson.D:
		for _, e := range node {
			if e.Key == "indexName" {
				if s, ok := e.Value.(string); ok {
					out = append(out, s)
				}
				continue
			}
			out = collectIndexNames(e.Value, out)
		}
	case bson.A:
		for _, item := range node {
			out = collectIndexNames(item, out)
		}
	case []any:
		for _, item := range node {
			out = collectIndexNames(item, out)
		}
	}
	return out
}

func collectFromMap(m map[string]any, out []string) []string {
	if s, ok := m["indexName"].(string); ok {
		out = append(out, s)
	}
	for k, val := range m {
		if k == "indexName" {
			continue
		}
		out = collectIndexNames(val, out)
	}
	return out
}
