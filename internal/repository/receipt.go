package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/inforsion/ocr-db-init/internal/domain/model"
)

// ReceiptRepository — операции над документами ReceiptOcrRecord.
type ReceiptRepository struct {
	coll *mongo.Collection
}

// NewReceiptRepository создаёт репозиторий коллекции receiptOcrData.
func NewReceiptRepository(coll *mongo.Collection) *ReceiptRepository {
	return &ReceiptRepository{coll: coll}
}

// Insert вставляет документ и записывает присвоенный _id в rec.ID.
// Дубликат receiptId — ErrConflict вместе с ошибкой сервера.
func (r *ReceiptRepository) Insert(ctx context.Context, rec *model.ReceiptOcrRecord) error {
	res, err := r.coll.InsertOne(ctx, rec)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: receiptId %q: %w", ErrConflict, rec.ReceiptID, err)
		}
		return fmt.Errorf("ошибка вставки чека %s: %w", rec.ReceiptID, err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		rec.ID = id
	}
	return nil
}

// FindByReceiptID возвращает документ по бизнес-ключу или ErrNotFound.
func (r *ReceiptRepository) FindByReceiptID(ctx context.Context, receiptID string) (*model.ReceiptOcrRecord, error) {
	var rec model.ReceiptOcrRecord
	err := r.coll.FindOne(ctx, bson.D{{Key: "receiptId", Value: receiptID}}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("чек %s: %w", receiptID, ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения чека %s: %w", receiptID, err)
	}
	return &rec, nil
}

// Exists проверяет наличие документа с receiptId.
func (r *ReceiptRepository) Exists(ctx context.Context, receiptID string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx,
		bson.D{{Key: "receiptId", Value: receiptID}},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки чека %s: %w", receiptID, err)
	}
	return n > 0, nil
}

// Count возвращает число документов коллекции.
func (r *ReceiptRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта чеков: %w", err)
	}
	return n, nil
}

// SearchProductName ищет чеки по названию товара через текстовый индекс
// receiptData.items.productName. Результаты упорядочены по релевантности.
func (r *ReceiptRepository) SearchProductName(ctx context.Context, query string, limit int64) ([]model.ReceiptOcrRecord, error) {
	filter := bson.D{{Key: "$text", Value: bson.D{{Key: "$search", Value: query}}}}
	opts := options.Find().
		SetProjection(bson.D{{Key: "score", Value: bson.D{{Key: "$meta", Value: "textScore"}}}}).
		SetSort(bson.D{{Key: "score", Value: bson.D{{Key: "$meta", Value: "textScore"}}}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	return r.find(ctx, filter, opts)
}

// FindByStoreAndTotalRange возвращает чеки магазина с totalAmount в [minTotal, maxTotal],
// по возрастанию суммы. Запрос обслуживается составным индексом анализа продаж.
func (r *ReceiptRepository) FindByStoreAndTotalRange(ctx context.Context, storeID string, minTotal, maxTotal int64) ([]model.ReceiptOcrRecord, error) {
	filter, sort := storeTotalRangeQuery(storeID, minTotal, maxTotal)
	return r.find(ctx, filter, options.Find().SetSort(sort))
}

// ExplainStoreAndTotalRange возвращает имена индексов выигравшего плана
// для запроса FindByStoreAndTotalRange.
func (r *ReceiptRepository) ExplainStoreAndTotalRange(ctx context.Context, storeID string, minTotal, maxTotal int64) ([]string, error) {
	filter, sort := storeTotalRangeQuery(storeID, minTotal, maxTotal)
	cmd := bson.D{
		{Key: "explain", Value: bson.D{
			{Key: "find", Value: r.coll.Name()},
			{Key: "filter", Value: filter},
			{Key: "sort", Value: sort},
		}},
		{Key: "verbosity", Value: "queryPlanner"},
	}

	var res bson.M
	if err := r.coll.Database().RunCommand(ctx, cmd).Decode(&res); err != nil {
		return nil, fmt.Errorf("ошибка explain: %w", err)
	}

	planner, ok := res["queryPlanner"]
	if !ok {
		return nil, fmt.Errorf("ответ explain без queryPlanner")
	}
	var winning any
	switch p := planner.(type) {
	case bson.M:
		winning = p["winningPlan"]
	case bson.D:
		winning = p.Map()["winningPlan"]
	}
	return collectIndexNames(winning, nil), nil
}

func (r *ReceiptRepository) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]model.ReceiptOcrRecord, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска чеков: %w", err)
	}
	defer cur.Close(ctx)

	var out []model.ReceiptOcrRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("ошибка чтения результатов: %w", err)
	}
	return out, nil
}

func storeTotalRangeQuery(storeID string, minTotal, maxTotal int64) (filter, sort bson.D) {
	filter = bson.D{
		{Key: "storeId", Value: storeID},
		{Key: "receiptData.totalAmount", Value: bson.D{
			{Key: "$gte", Value: minTotal},
			{Key: "$lte", Value: maxTotal},
		}},
	}
	sort = bson.D{{Key: "receiptData.totalAmount", Value: 1}}
	return filter, sort
}
