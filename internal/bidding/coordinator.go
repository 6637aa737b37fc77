package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bidmarket/db"
	"bidmarket/internal/events"
	"bidmarket/models"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Store хранилище работ и предложений. Отсутствующая запись: db.ErrNotFound,
// несработавшее условное обновление: db.ErrConflict.
type Store interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)

	CreateBid(ctx context.Context, bid *models.Bid) error
	GetBid(ctx context.Context, id string) (*models.Bid, error)
	UpdateBidStatus(ctx context.Context, id string, expected, next models.BidStatus) (*models.Bid, error)
	GetBidsForBuyer(ctx context.Context, buyerEmail string, limit, offset int) ([]models.Bid, error)
	GetBidsForBidder(ctx context.Context, bidderEmail string, limit, offset int) ([]models.Bid, error)
}

type Config struct {
	// StoreTimeout ограничивает каждый вызов хранилища
	StoreTimeout time.Duration
	// MaxRetries сколько раз повторять смену статуса при конфликте
	MaxRetries uint64
	RetryDelay time.Duration
}

var DefaultConfig = Config{
	StoreTimeout: 3 * time.Second,
	MaxRetries:   3,
	RetryDelay:   10 * time.Millisecond,
}

// BidSubmission заявка исполнителя на работу
type BidSubmission struct {
	JobID       string
	Bidder      models.Identity
	Price       float64
	Comment     string
	BidDeadline time.Time
}

// Page окно выборки. Limit 0 означает все записи.
type Page struct {
	Limit  int
	Offset int
}

// Coordinator ведёт предложения по жизненному циклу: читает состояние из
// хранилища, спрашивает правила валидации и применяет принятые изменения.
type Coordinator struct {
	store     Store
	publisher events.Publisher
	log       logrus.FieldLogger
	now       func() time.Time
	tracer    trace.Tracer
	cfg       Config
}

type Option func(*Coordinator)

// WithClock подменяет часы (для тестов)
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithPublisher(p events.Publisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Coordinator) { c.log = l }
}

func NewCoordinator(store Store, cfg Config, opts ...Option) *Coordinator {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultConfig.RetryDelay
	}
	c := &Coordinator{
		store:     store,
		publisher: events.Nop{},
		log:       logrus.StandardLogger(),
		now:       time.Now,
		tracer:    otel.Tracer("bidmarket/internal/bidding"),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitBid создаёт предложение в статусе Pending. При отказе ничего не пишет.
func (c *Coordinator) SubmitBid(ctx context.Context, in BidSubmission) (Outcome[models.Bid], error) {
	ctx, span := c.tracer.Start(ctx, "bidding.SubmitBid",
		trace.WithAttributes(attribute.String("job.id", in.JobID)))
	defer span.End()

	job, err := c.getJob(ctx, in.JobID)
	if errors.Is(err, db.ErrNotFound) {
		return rejected[models.Bid](reject(ReasonJobNotFound, "job %s not found", in.JobID)), nil
	}
	if err != nil {
		return Outcome[models.Bid]{}, c.unavailable(span, "get job", err)
	}

	if r := ValidateBidCreation(*job, in.Bidder, in.Price, in.BidDeadline, c.now()); r != nil {
		c.rejected(span, r).WithField("job_id", job.ID).Info("bid rejected")
		return rejected[models.Bid](r), nil
	}

	bid := models.Bid{
		JobID:       job.ID,
		Price:       in.Price,
		BidderEmail: in.Bidder.Email,
		Comment:     in.Comment,
		BidDeadline: in.BidDeadline,
		Title:       job.Title,
		Category:    job.Category,
		BuyerEmail:  job.Buyer.Email,
		Status:      models.BidPending,
	}
	err = c.call(ctx, func(ctx context.Context) error {
		return c.store.CreateBid(ctx, &bid)
	})
	if err != nil {
		return Outcome[models.Bid]{}, c.unavailable(span, "create bid", err)
	}

	span.SetAttributes(attribute.String("bid.id", bid.ID))
	c.publish(ctx, events.BidSubmitted(bid))
	return accepted(bid), nil
}

// ChangeBidStatus переводит предложение в requested. Чтение, проверка и запись
// выполняются как одно целое через условное обновление: если статус успел
// поменяться, запись перечитывается и проверяется заново.
func (c *Coordinator) ChangeBidStatus(ctx context.Context, bidID, actorEmail string, requested models.BidStatus) (Outcome[models.Bid], error) {
	ctx, span := c.tracer.Start(ctx, "bidding.ChangeBidStatus",
		trace.WithAttributes(
			attribute.String("bid.id", bidID),
			attribute.String("bid.requested_status", string(requested)),
		))
	defer span.End()

	var (
		out      Outcome[models.Bid]
		previous models.BidStatus
	)
	backoff := retry.WithMaxRetries(c.cfg.MaxRetries, retry.NewConstant(c.cfg.RetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		bid, err := c.getBid(ctx, bidID)
		if errors.Is(err, db.ErrNotFound) {
			out = rejected[models.Bid](reject(ReasonBidNotFound, "bid %s not found", bidID))
			return nil
		}
		if err != nil {
			return err
		}

		if r := AuthorizeStatusChange(*bid, actorEmail); r != nil {
			out = rejected[models.Bid](r)
			return nil
		}
		if r := ValidateStatusTransition(bid.Status, requested); r != nil {
			out = rejected[models.Bid](r)
			return nil
		}

		var updated *models.Bid
		err = c.call(ctx, func(ctx context.Context) error {
			var err error
			updated, err = c.store.UpdateBidStatus(ctx, bid.ID, bid.Status, requested)
			return err
		})
		if errors.Is(err, db.ErrConflict) {
			c.log.WithField("bid_id", bidID).Debug("bid status changed concurrently, retrying")
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		previous = bid.Status
		out = accepted(*updated)
		return nil
	})
	if err != nil {
		return Outcome[models.Bid]{}, c.unavailable(span, "change bid status", err)
	}

	if !out.Accepted() {
		c.rejected(span, out.Rejection).WithField("bid_id", bidID).Info("status change rejected")
		return out, nil
	}
	c.publish(ctx, events.BidStatusChanged(out.Value, previous))
	return out, nil
}

// ListBidsForBuyer предложения на работы покупателя, новые сначала
func (c *Coordinator) ListBidsForBuyer(ctx context.Context, buyerEmail string, page Page) ([]models.Bid, error) {
	ctx, span := c.tracer.Start(ctx, "bidding.ListBidsForBuyer")
	defer span.End()

	var bids []models.Bid
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		bids, err = c.store.GetBidsForBuyer(ctx, buyerEmail, page.Limit, page.Offset)
		return err
	})
	if err != nil {
		return nil, c.unavailable(span, "list buyer bids", err)
	}
	return bids, nil
}

// ListBidsForBidder предложения, поданные исполнителем
func (c *Coordinator) ListBidsForBidder(ctx context.Context, bidderEmail string, page Page) ([]models.Bid, error) {
	ctx, span := c.tracer.Start(ctx, "bidding.ListBidsForBidder")
	defer span.End()

	var bids []models.Bid
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		bids, err = c.store.GetBidsForBidder(ctx, bidderEmail, page.Limit, page.Offset)
		return err
	})
	if err != nil {
		return nil, c.unavailable(span, "list bidder bids", err)
	}
	return bids, nil
}

func (c *Coordinator) PostJob(ctx context.Context, job models.Job) (Outcome[models.Job], error) {
	ctx, span := c.tracer.Start(ctx, "bidding.PostJob")
	defer span.End()

	if r := ValidateJob(job, c.now()); r != nil {
		c.rejected(span, r).Info("job rejected")
		return rejected[models.Job](r), nil
	}
	err := c.call(ctx, func(ctx context.Context) error {
		return c.store.CreateJob(ctx, &job)
	})
	if err != nil {
		return Outcome[models.Job]{}, c.unavailable(span, "create job", err)
	}
	return accepted(job), nil
}

func (c *Coordinator) GetJob(ctx context.Context, id string) (Outcome[models.Job], error) {
	ctx, span := c.tracer.Start(ctx, "bidding.GetJob")
	defer span.End()

	job, err := c.getJob(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return rejected[models.Job](reject(ReasonJobNotFound, "job %s not found", id)), nil
	}
	if err != nil {
		return Outcome[models.Job]{}, c.unavailable(span, "get job", err)
	}
	return accepted(*job), nil
}

func (c *Coordinator) getJob(ctx context.Context, id string) (*models.Job, error) {
	var job *models.Job
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		job, err = c.store.GetJob(ctx, id)
		return err
	})
	return job, err
}

func (c *Coordinator) getBid(ctx context.Context, id string) (*models.Bid, error) {
	var bid *models.Bid
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		bid, err = c.store.GetBid(ctx, id)
		return err
	})
	return bid, err
}

// call выполняет обращение к хранилищу в пределах StoreTimeout
func (c *Coordinator) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.cfg.StoreTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.StoreTimeout)
	defer cancel()
	return fn(ctx)
}

func (c *Coordinator) unavailable(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	c.log.WithError(err).WithField("op", op).Error("store call failed")
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func (c *Coordinator) rejected(span trace.Span, r *Rejection) logrus.FieldLogger {
	span.SetAttributes(attribute.String("rejection.reason", string(r.Reason)))
	return c.log.WithField("reason", r.Reason)
}

// publish не влияет на результат операции: изменение уже записано
func (c *Coordinator) publish(ctx context.Context, e events.Event) {
	if err := c.publisher.Publish(ctx, e); err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{
			"event":  e.Type,
			"bid_id": e.BidID,
		}).Warn("failed to publish event")
	}
}
