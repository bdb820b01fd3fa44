// Пакет mongotest — запуск MongoDB в Docker-контейнере для интеграционных тестов.
// Тесты выполняются только при заданной TEST_INTEGRATION.
package mongotest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Учётные данные root-пользователя тестового контейнера.
const (
	RootUser     = "root"
	RootPassword = "test-password"
)

// Image — образ MongoDB для тестов.
const Image = "docker.io/mongo:7.0"

// Start запускает MongoDB с root-пользователем и возвращает административный URI.
// Без TEST_INTEGRATION тест пропускается. Контейнер останавливается в t.Cleanup.
func Start(t *testing.T) string {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := mongodb.Run(ctx, Image,
		mongodb.WithUsername(RootUser),
		mongodb.WithPassword(RootPassword),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить MongoDB контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить connection string контейнера: %v", err)
	}
	return uri
}

// Client подключается к uri и закрывает клиент в t.Cleanup.
func Client(t *testing.T, uri string) *mongo.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("mongo.Connect() вернул ошибку: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Disconnect(context.Background())
	})

	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("client.Ping() вернул ошибку: %v", err)
	}
	return client
}
