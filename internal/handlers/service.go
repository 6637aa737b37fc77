package handlers

import (
	"context"

	"bidmarket/internal/bidding"
	"bidmarket/models"
)

// BidService то, что хендлерам нужно от координатора жизненного цикла
type BidService interface {
	PostJob(ctx context.Context, job models.Job) (bidding.Outcome[models.Job], error)
	GetJob(ctx context.Context, id string) (bidding.Outcome[models.Job], error)

	SubmitBid(ctx context.Context, in bidding.BidSubmission) (bidding.Outcome[models.Bid], error)
	ChangeBidStatus(ctx context.Context, bidID, actorEmail string, requested models.BidStatus) (bidding.Outcome[models.Bid], error)
	ListBidsForBuyer(ctx context.Context, buyerEmail string, page bidding.Page) ([]models.Bid, error)
	ListBidsForBidder(ctx context.Context, bidderEmail string, page bidding.Page) ([]models.Bid, error)
}

var _ BidService = (*bidding.Coordinator)(nil)
