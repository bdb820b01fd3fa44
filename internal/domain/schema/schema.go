// Пакет schema — контракт коллекции receiptOcrData: имя коллекции и набор
// индексов под ожидаемые сценарии запросов. С этим контрактом согласуются
// OCR-конвейер и аналитика, читающие и пишущие документы коллекции.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName — имя коллекции документов ReceiptOcrRecord.
const CollectionName = "receiptOcrData"

// IDIndexName — имя неявного индекса по _id.
const IDIndexName = "_id_"

// KeyKind — тип ключа индекса.
type KeyKind int

const (
	// Ascending — по возрастанию (1).
	Ascending KeyKind = iota
	// Text — текстовый индекс ("text").
	Text
)

// value возвращает значение ключа в документе keys.
func (k KeyKind) value() any {
	if k == Text {
		return "text"
	}
	return int32(1)
}

// suffix возвращает суффикс имени индекса по умолчанию.
func (k KeyKind) suffix() string {
	if k == Text {
		return "text"
	}
	return "1"
}

// Key — поле индекса.
type Key struct {
	Field string
	Kind  KeyKind
}

// IndexSpec — спецификация одного индекса коллекции.
type IndexSpec struct {
	Keys   []Key
	Unique bool
	// Сценарий запросов, который обслуживает индекс
	Purpose string
}

// Name возвращает имя, которое MongoDB присваивает индексу по умолчанию:
// поле_значение, соединённые "_" (receiptId_1, storeId_1_createdAt_1).
func (s IndexSpec) Name() string {
	parts := make([]string, 0, len(s.Keys))
	for _, k := range s.Keys {
		parts = append(parts, k.Field+"_"+k.Kind.suffix())
	}
	return strings.Join(parts, "_")
}

// KeyDocument возвращает упорядоченный документ ключей для createIndexes.
func (s IndexSpec) KeyDocument() bson.D {
	doc := make(bson.D, 0, len(s.Keys))
	for _, k := range s.Keys {
		doc = append(doc, bson.E{Key: k.Field, Value: k.Kind.value()})
	}
	return doc
}

// Model возвращает mongo.IndexModel. Имя задаётся явно и совпадает с именем по умолчанию.
func (s IndexSpec) Model() mongo.IndexModel {
	opts := options.Index().SetName(s.Name())
	if s.Unique {
		opts.SetUnique(true)
	}
	return mongo.IndexModel{Keys: s.KeyDocument(), Options: opts}
}

// Compound сообщает, состоит ли индекс из нескольких полей.
func (s IndexSpec) Compound() bool {
	return len(s.Keys) > 1
}

// Multikey сообщает, захватывает ли индекс поле внутри массива receiptData.items.
// У такого индекса по одной записи на элемент массива: запрос с несколькими
// предикатами по полям массива получает семантику декартова произведения.
func (s IndexSpec) Multikey() bool {
	for _, k := range s.Keys {
		if strings.HasPrefix(k.Field, "receiptData.items.") {
			return true
		}
	}
	return false
}

// ReceiptOcrIndexes возвращает индексы коллекции в порядке создания.
func ReceiptOcrIndexes() []IndexSpec {
	return []IndexSpec{
		// Базовые индексы
		{Keys: []Key{{"receiptId", Ascending}}, Unique: true, Purpose: "поиск по ключу, защита от дубликатов"},
		{Keys: []Key{{"userId", Ascending}}, Purpose: "запросы по пользователю"},
		{Keys: []Key{{"storeId", Ascending}}, Purpose: "запросы по магазину"},
		{Keys: []Key{{"createdAt", Ascending}}, Purpose: "хронологические выборки"},
		{Keys: []Key{{"processingStatus", Ascending}}, Purpose: "фильтр по статусу"},
		// Поиск по названию товара
		{Keys: []Key{{"receiptData.items.productName", Text}}, Purpose: "полнотекстовый поиск по товарам"},
		// Анализ продаж
		{
			Keys:    []Key{{"storeId", Ascending}, {"receiptData.totalAmount", Ascending}, {"createdAt", Ascending}},
			Purpose: "анализ продаж: магазин + сумма + время",
		},
		// Анализ количества и сумм по позициям (поля массива)
		{
			Keys:    []Key{{"storeId", Ascending}, {"receiptData.items.quantity", Ascending}},
			Purpose: "количество по позициям магазина",
		},
		{
			Keys:    []Key{{"storeId", Ascending}, {"receiptData.items.amount", Ascending}},
			Purpose: "суммы по позициям магазина",
		},
	}
}

// IndexNames возвращает имена индексов specs в исходном порядке.
func IndexNames(specs []IndexSpec) []string {
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name())
	}
	return names
}

// LiveIndex — индекс, прочитанный из БД.
type LiveIndex struct {
	Name   string
	Unique bool
}

// Diff сравнивает ожидаемые индексы с фактическими. Индекс _id_ игнорируется.
// Возвращает описания расхождений; пустой срез — схема совпадает.
func Diff(expected []IndexSpec, actual []LiveIndex) []string {
	live := make(map[string]LiveIndex, len(actual))
	for _, idx := range actual {
		live[idx.Name] = idx
	}

	var diffs []string
	want := make(map[string]bool, len(expected))
	for _, spec := range expected {
		name := spec.Name()
		want[name] = true
		idx, ok := live[name]
		if !ok {
			diffs = append(diffs, fmt.Sprintf("отсутствует индекс %s", name))
			continue
		}
		if idx.Unique != spec.Unique {
			diffs = append(diffs, fmt.Sprintf("индекс %s: unique=%t, ожидается %t", name, idx.Unique, spec.Unique))
		}
	}

	var extra []string
	for name := range live {
		if name != IDIndexName && !want[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		diffs = append(diffs, fmt.Sprintf("лишний индекс %s", name))
	}

	return diffs
}
