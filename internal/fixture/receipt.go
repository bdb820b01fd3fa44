// Пакет fixture — эталонный seed-документ коллекции receiptOcrData.
// Используется процедурой инициализации для smoke-проверки схемы и в тестах.
package fixture

import (
	"time"

	"github.com/inforsion/ocr-db-init/internal/domain/model"
)

// SampleReceiptID — бизнес-ключ seed-документа. Литерал неизменен между запусками,
// поэтому повторная вставка нарушает уникальный индекс receiptId.
const SampleReceiptID = "receipt-001"

// SampleReceipt возвращает seed-документ; createdAt и parsedAt равны now.
func SampleReceipt(now time.Time) *model.ReceiptOcrRecord {
	return &model.ReceiptOcrRecord{
		ReceiptID: SampleReceiptID,
		UserID:    "user123",
		StoreID:   "store456",
		FileName:  "receipt_20250822_001.jpg",
		ImageMetadata: model.ImageMetadata{
			Size:       102400,
			Format:     "jpg",
			Dimensions: "800x600",
		},
		ReceiptData: model.ReceiptData{
			StoreName:       "마트24",
			StoreAddress:    "서울시 강남구",
			TransactionDate: "2025-08-22",
			TransactionTime: "14:30:00",
			Items: []model.LineItem{
				{ProductName: "삼겹살 1kg", Quantity: 2, UnitPrice: 15000, Amount: 30000},
				{ProductName: "상추 1봉", Quantity: 1, UnitPrice: 3000, Amount: 3000},
				{ProductName: "쌈장", Quantity: 1, UnitPrice: 2500, Amount: 2500},
			},
			Subtotal:      35500,
			Tax:           3550,
			TotalAmount:   39050,
			PaymentMethod: "카드",
		},
		OcrMetadata: model.OcrMetadata{
			Engine:         "Naver OCR",
			Confidence:     0.92,
			RawText:        "원본 OCR 텍스트...",
			ProcessingTime: "2.3초",
		},
		ProcessingStatus: model.StatusCompleted,
		CreatedAt:        now,
		ParsedAt:         now,
	}
}
