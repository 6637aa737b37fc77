// Package events публикует события жизненного цикла предложений.
package events

import (
	"context"
	"time"

	"bidmarket/models"
)

const (
	TypeBidSubmitted     = "bid.submitted"
	TypeBidStatusChanged = "bid.status_changed"
)

// Event сообщение о принятом изменении предложения
type Event struct {
	Type           string           `json:"type"`
	BidID          string           `json:"bidId"`
	JobID          string           `json:"jobId"`
	Status         models.BidStatus `json:"status"`
	PreviousStatus models.BidStatus `json:"previousStatus,omitempty"`
	BuyerEmail     string           `json:"buyerEmail"`
	BidderEmail    string           `json:"bidderEmail"`
	Price          float64          `json:"price"`
	OccurredAt     time.Time        `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

func BidSubmitted(b models.Bid) Event {
	return Event{
		Type:        TypeBidSubmitted,
		BidID:       b.ID,
		JobID:       b.JobID,
		Status:      b.Status,
		BuyerEmail:  b.BuyerEmail,
		BidderEmail: b.BidderEmail,
		Price:       b.Price,
		OccurredAt:  b.CreatedAt,
	}
}

func BidStatusChanged(b models.Bid, previous models.BidStatus) Event {
	return Event{
		Type:           TypeBidStatusChanged,
		BidID:          b.ID,
		JobID:          b.JobID,
		Status:         b.Status,
		PreviousStatus: previous,
		BuyerEmail:     b.BuyerEmail,
		BidderEmail:    b.BidderEmail,
		Price:          b.Price,
		OccurredAt:     b.UpdatedAt,
	}
}

// Nop используется, когда брокер не настроен
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                          { return nil }
