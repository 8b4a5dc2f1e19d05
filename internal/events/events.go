// Package events описывает доменные события и их доставку через RabbitMQ.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BidAwardedQueue это очередь событий о выборе победителя
const BidAwardedQueue = "bid.awarded"

// BidAwarded публикуется после того, как продавец выбрал предложение.
// Данных достаточно, чтобы уведомить поставщика без обращения к базе.
type BidAwarded struct {
	EventID          string          `json:"event_id"`
	RequirementID    int64           `json:"requirement_id"`
	RequirementTitle string          `json:"requirement_title"`
	VendorID         int64           `json:"vendor_id"`
	BidID            int64           `json:"bid_id"`
	SupplierID       int64           `json:"supplier_id"`
	Amount           decimal.Decimal `json:"amount"`
	AwardedAt        time.Time       `json:"awarded_at"`
}

// Publisher доставляет доменные события. Ошибка публикации не прерывает запрос,
// вызывающий только логирует её.
type Publisher interface {
	PublishBidAwarded(ctx context.Context, event BidAwarded) error
}

// NopPublisher используется, когда брокер не настроен
type NopPublisher struct{}

func (NopPublisher) PublishBidAwarded(context.Context, BidAwarded) error { return nil }
