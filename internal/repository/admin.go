package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/inforsion/ocr-db-init/internal/domain/schema"
)

// RoleReadWrite — встроенная роль MongoDB на чтение и запись в рамках одной базы.
const RoleReadWrite = "readWrite"

// Role — роль пользователя MongoDB в конкретной базе.
type Role struct {
	Role string `bson:"role"`
	DB   string `bson:"db"`
}

// UserInfo — сведения о пользователе из usersInfo.
type UserInfo struct {
	User  string `bson:"user"`
	DB    string `bson:"db"`
	Roles []Role `bson:"roles"`
}

// AdminRepository — административные операции над одной базой MongoDB.
type AdminRepository struct {
	db *mongo.Database
}

// NewAdminRepository создаёт репозиторий, привязанный к базе db.
func NewAdminRepository(db *mongo.Database) *AdminRepository {
	return &AdminRepository{db: db}
}

// DatabaseName возвращает имя базы.
func (r *AdminRepository) DatabaseName() string {
	return r.db.Name()
}

// CreateUser создаёт пользователя в текущей базе с перечисленными ролями.
// Если пользователь уже существует — ErrUserExists вместе с ошибкой сервера.
func (r *AdminRepository) CreateUser(ctx context.Context, username, password string, roles []Role) error {
	rolesArr := make(bson.A, 0, len(roles))
	for _, role := range roles {
		rolesArr = append(rolesArr, bson.D{{Key: "role", Value: role.Role}, {Key: "db", Value: role.DB}})
	}

	cmd := bson.D{
		{Key: "createUser", Value: username},
		{Key: "pwd", Value: password},
		{Key: "roles", Value: rolesArr},
	}
	if err := r.db.RunCommand(ctx, cmd).Err(); err != nil {
		if isUserExists(err) {
			return fmt.Errorf("%w: %s@%s: %w", ErrUserExists, username, r.db.Name(), err)
		}
		return fmt.Errorf("ошибка создания пользователя %s: %w", username, err)
	}
	return nil
}

// GetUser возвращает пользователя текущей базы или ErrNotFound.
func (r *AdminRepository) GetUser(ctx context.Context, username string) (*UserInfo, error) {
	cmd := bson.D{{Key: "usersInfo", Value: bson.D{
		{Key: "user", Value: username},
		{Key: "db", Value: r.db.Name()},
	}}}

	var res struct {
		Users []UserInfo `bson:"users"`
	}
	if err := r.db.RunCommand(ctx, cmd).Decode(&res); err != nil {
		return nil, fmt.Errorf("ошибка чтения пользователя %s: %w", username, err)
	}
	if len(res.Users) == 0 {
		return nil, fmt.Errorf("пользователь %s@%s: %w", username, r.db.Name(), ErrNotFound)
	}
	return &res.Users[0], nil
}

// UserExists проверяет наличие пользователя в текущей базе.
func (r *AdminRepository) UserExists(ctx context.Context, username string) (bool, error) {
	cmd := bson.D{{Key: "usersInfo", Value: bson.D{
		{Key: "user", Value: username},
		{Key: "db", Value: r.db.Name()},
	}}}

	var res struct {
		Users []bson.Raw `bson:"users"`
	}
	if err := r.db.RunCommand(ctx, cmd).Decode(&res); err != nil {
		return false, fmt.Errorf("ошибка чтения пользователя %s: %w", username, err)
	}
	return len(res.Users) > 0, nil
}

// CreateCollection явно создаёт коллекцию.
// Если коллекция существует — ErrNamespaceExists вместе с ошибкой сервера.
func (r *AdminRepository) CreateCollection(ctx context.Context, name string) error {
	if err := r.db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExists(err) {
			return fmt.Errorf("%w: %s.%s: %w", ErrNamespaceExists, r.db.Name(), name, err)
		}
		return fmt.Errorf("ошибка создания коллекции %s: %w", name, err)
	}
	return nil
}

// CollectionExists проверяет наличие коллекции.
func (r *AdminRepository) CollectionExists(ctx context.Context, name string) (bool, error) {
	names, err := r.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return false, fmt.Errorf("ошибка чтения списка коллекций: %w", err)
	}
	return len(names) > 0, nil
}

// CreateIndex создаёт индекс по спецификации и возвращает его имя.
func (r *AdminRepository) CreateIndex(ctx context.Context, collection string, spec schema.IndexSpec) (string, error) {
	name, err := r.db.Collection(collection).Indexes().CreateOne(ctx, spec.Model())
	if err != nil {
		return "", fmt.Errorf("ошибка создания индекса %s: %w", spec.Name(), err)
	}
	return name, nil
}

// ListIndexes возвращает индексы коллекции, включая _id_.
func (r *AdminRepository) ListIndexes(ctx context.Context, collection string) ([]schema.LiveIndex, error) {
	specs, err := r.db.Collection(collection).Indexes().ListSpecifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения индексов %s: %w", collection, err)
	}

	live := make([]schema.LiveIndex, 0, len(specs))
	for _, s := range specs {
		live = append(live, schema.LiveIndex{
			Name:   s.Name,
			Unique: s.Unique != nil && *s.Unique,
		})
	}
	return live, nil
}
