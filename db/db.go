package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bidmarket/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")
	// ErrConflict условное обновление не применилось: запись изменилась после чтения
	ErrConflict = errors.New("record changed concurrently")
)

type Storage struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db, now: time.Now}
}

// Open подключается к postgres (dsn: строка POSTGRES_CONN) или sqlite (dsn: путь к файлу)
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres:
		conn, err := sqlx.ConnectContext(ctx, DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return conn, nil
	case DriverSQLite:
		// modernc регистрирует драйвер как "sqlite", sqlx о нём может не знать
		sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
		conn, err := sqlx.Open(DriverSQLite, fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", dsn))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// у sqlite один писатель
		conn.SetMaxOpenConns(1)
		conn.SetConnMaxLifetime(5 * time.Minute)
		if err := conn.PingContext(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("ping sqlite: %w", err)
		}
		return conn, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// Job (Работа)

func (s *Storage) CreateJob(ctx context.Context, j *models.Job) error {
	j.ID = uuid.NewString()
	j.CreatedAt = s.now().UTC()
	j.Buyer.Email = normalizeEmail(j.Buyer.Email)
	query := s.db.Rebind(`
        INSERT INTO job
            (id, title, category, description, min_price, max_price, deadline,
             buyer_name, buyer_email, buyer_photo, created_at)
        VALUES
            (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		j.ID, j.Title, j.Category, j.Description, j.MinPrice, j.MaxPrice, j.Deadline.UTC(),
		j.Buyer.Name, j.Buyer.Email, j.Buyer.Photo, j.CreatedAt)
	return err
}

func (s *Storage) GetJob(ctx context.Context, id string) (*models.Job, error) {
	j := &models.Job{}
	query := s.db.Rebind(`SELECT * FROM job WHERE id=?`)
	if err := s.db.GetContext(ctx, j, query, id); err != nil {
		return nil, notFound(err)
	}
	return j, nil
}

// Bid (Предложение)

func (s *Storage) CreateBid(ctx context.Context, b *models.Bid) error {
	b.ID = uuid.NewString()
	b.Version = 1
	b.CreatedAt = s.now().UTC()
	b.UpdatedAt = b.CreatedAt
	b.BidderEmail = normalizeEmail(b.BidderEmail)
	b.BuyerEmail = normalizeEmail(b.BuyerEmail)
	query := s.db.Rebind(`
        INSERT INTO bid
            (id, job_id, price, bidder_email, comment, bid_deadline, title, category,
             buyer_email, status, version, created_at, updated_at)
        VALUES
            (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		b.ID, b.JobID, b.Price, b.BidderEmail, b.Comment, b.BidDeadline.UTC(), b.Title, b.Category,
		b.BuyerEmail, b.Status, b.Version, b.CreatedAt, b.UpdatedAt)
	return err
}

func (s *Storage) GetBid(ctx context.Context, id string) (*models.Bid, error) {
	b := &models.Bid{}
	query := s.db.Rebind(`SELECT * FROM bid WHERE id=?`)
	if err := s.db.GetContext(ctx, b, query, id); err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

// UpdateBidStatus меняет статус, только если в базе всё ещё лежит expected.
// Иначе ErrConflict, вызывающий перечитывает запись и решает заново.
func (s *Storage) UpdateBidStatus(ctx context.Context, id string, expected, next models.BidStatus) (*models.Bid, error) {
	b := &models.Bid{}
	query := s.db.Rebind(`
        UPDATE bid
        SET status=?, version=version+1, updated_at=?
        WHERE id=? AND status=?
        RETURNING *`)
	err := s.db.GetContext(ctx, b, query, next, s.now().UTC(), id, expected)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Storage) GetBidsForBuyer(ctx context.Context, buyerEmail string, limit, offset int) ([]models.Bid, error) {
	return s.listBids(ctx, "buyer_email", buyerEmail, limit, offset)
}

func (s *Storage) GetBidsForBidder(ctx context.Context, bidderEmail string, limit, offset int) ([]models.Bid, error) {
	return s.listBids(ctx, "bidder_email", bidderEmail, limit, offset)
}

// listBids новые сначала. limit <= 0 отдаёт все записи.
func (s *Storage) listBids(ctx context.Context, column, email string, limit, offset int) ([]models.Bid, error) {
	query := `SELECT * FROM bid WHERE ` + column + ` = ? ORDER BY created_at DESC`
	args := []any{normalizeEmail(email)}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	bids := []models.Bid{}
	err := s.db.SelectContext(ctx, &bids, s.db.Rebind(query), args...)
	return bids, err
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// email хранится в нижнем регистре, сравнение идёт без учёта регистра
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
