// Пакет model — доменные модели документов коллекции receiptOcrData.
package model

import (
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProcessingStatus — статус обработки чека OCR-конвейером.
type ProcessingStatus string

// Значения хранятся в БД как есть.
const (
	StatusPending    ProcessingStatus = "PENDING"
	StatusProcessing ProcessingStatus = "PROCESSING"
	StatusCompleted  ProcessingStatus = "COMPLETED"
	StatusFailed     ProcessingStatus = "FAILED"
)

// Valid сообщает, является ли статус одним из известных значений.
func (s ProcessingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// ReceiptOcrRecord — один обработанный чек.
// receiptId — бизнес-ключ, уникален в коллекции (уникальный индекс).
// userId и storeId — ссылки на внешние сущности, целостность не проверяется.
type ReceiptOcrRecord struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ReceiptID        string             `bson:"receiptId" json:"receiptId" validate:"required"`
	UserID           string             `bson:"userId" json:"userId" validate:"required"`
	StoreID          string             `bson:"storeId" json:"storeId" validate:"required"`
	FileName         string             `bson:"fileName" json:"fileName"`
	ImageMetadata    ImageMetadata      `bson:"imageMetadata" json:"imageMetadata"`
	ReceiptData      ReceiptData        `bson:"receiptData" json:"receiptData"`
	OcrMetadata      OcrMetadata        `bson:"ocrMetadata" json:"ocrMetadata"`
	ProcessingStatus ProcessingStatus   `bson:"processingStatus" json:"processingStatus" validate:"required,oneof=PENDING PROCESSING COMPLETED FAILED"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	ParsedAt         time.Time          `bson:"parsedAt" json:"parsedAt"`
}

// ImageMetadata — параметры исходного изображения.
type ImageMetadata struct {
	// Размер в байтах
	Size   int64  `bson:"size" json:"size" validate:"gte=0"`
	Format string `bson:"format" json:"format"`
	// Формат "WxH", например "800x600"
	Dimensions string `bson:"dimensions" json:"dimensions"`
}

// ReceiptData — распознанное содержимое чека.
// Суммы хранятся в единицах валюты без привязки к минорным единицам.
type ReceiptData struct {
	StoreName       string     `bson:"storeName" json:"storeName"`
	StoreAddress    string     `bson:"storeAddress" json:"storeAddress"`
	TransactionDate string     `bson:"transactionDate" json:"transactionDate"`
	TransactionTime string     `bson:"transactionTime" json:"transactionTime"`
	Items           []LineItem `bson:"items" json:"items" validate:"dive"`
	Subtotal        int64      `bson:"subtotal" json:"subtotal"`
	Tax             int64      `bson:"tax" json:"tax"`
	TotalAmount     int64      `bson:"totalAmount" json:"totalAmount"`
	PaymentMethod   string     `bson:"paymentMethod" json:"paymentMethod"`
}

// LineItem — строка чека. Ожидается amount = quantity × unitPrice.
type LineItem struct {
	ProductName string `bson:"productName" json:"productName" validate:"required"`
	Quantity    int    `bson:"quantity" json:"quantity" validate:"gte=0"`
	UnitPrice   int64  `bson:"unitPrice" json:"unitPrice"`
	Amount      int64  `bson:"amount" json:"amount"`
}

// OcrMetadata — сведения о распознавании.
type OcrMetadata struct {
	Engine     string  `bson:"engine" json:"engine"`
	Confidence float64 `bson:"confidence" json:"confidence" validate:"gte=0,lte=1"`
	RawText    string  `bson:"rawText" json:"rawText"`
	// Человекочитаемая длительность ("2.3초"), не структурированный тип
	ProcessingTime string `bson:"processingTime" json:"processingTime"`
}

// CheckInvariants возвращает нарушения ожидаемых (не проверяемых БД) инвариантов:
// amount = quantity × unitPrice для каждой строки, totalAmount = subtotal + tax,
// confidence в [0, 1]. Пустой срез — инварианты соблюдены.
func (r *ReceiptOcrRecord) CheckInvariants() []string {
	var violations []string

	for i, item := range r.ReceiptData.Items {
		if expected := int64(item.Quantity) * item.UnitPrice; item.Amount != expected {
			violations = append(violations, fmt.Sprintf(
				"items[%d] %q: amount %d != quantity %d × unitPrice %d",
				i, item.ProductName, item.Amount, item.Quantity, item.UnitPrice,
			))
		}
	}

	rd := r.ReceiptData
	if rd.TotalAmount != rd.Subtotal+rd.Tax {
		violations = append(violations, fmt.Sprintf(
			"totalAmount %d != subtotal %d + tax %d", rd.TotalAmount, rd.Subtotal, rd.Tax,
		))
	}

	c := r.OcrMetadata.Confidence
	if math.IsNaN(c) || c < 0 || c > 1 {
		violations = append(violations, fmt.Sprintf("confidence %v вне диапазона [0, 1]", c))
	}

	return violations
}
