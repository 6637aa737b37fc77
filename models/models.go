package models

import "time"

// BidStatus статус предложения
type BidStatus string

const (
	BidPending    BidStatus = "Pending"     // Предложение ожидает решения покупателя
	BidInProgress BidStatus = "In Progress" // Предложение принято, работа идёт
	BidRejected   BidStatus = "Rejected"    // Предложение отклонено
	BidCompleted  BidStatus = "Completed"   // Работа завершена
)

// BidStatuses все допустимые статусы в порядке жизненного цикла
var BidStatuses = []BidStatus{BidPending, BidInProgress, BidRejected, BidCompleted}

// Терминальные статусы: дальше переходов нет
func (s BidStatus) IsTerminal() bool {
	return s == BidCompleted || s == BidRejected
}

func (s BidStatus) Valid() bool {
	for _, v := range BidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Identity участник сделки (покупатель или исполнитель)
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo"`
}

// Buyer данные покупателя, хранятся вместе с работой
type Buyer struct {
	Name  string `db:"buyer_name" json:"name" validate:"max=100"`
	Email string `db:"buyer_email" json:"email" validate:"required,email"`
	Photo string `db:"buyer_photo" json:"photo" validate:"omitempty,url"`
}

// Сущность Работы
type Job struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title" validate:"required,max=200"`
	Category    string    `db:"category" json:"category" validate:"required,max=100"`
	Description string    `db:"description" json:"description" validate:"max=2000"`
	MinPrice    float64   `db:"min_price" json:"minPrice" validate:"gte=0"`
	MaxPrice    float64   `db:"max_price" json:"maxPrice" validate:"gte=0"`
	Deadline    time.Time `db:"deadline" json:"deadline" validate:"required"`
	Buyer       `json:"buyer"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Сущность Предложения.
// Title, Category и BuyerEmail копируются из работы в момент создания
// и дальше не синхронизируются с ней.
type Bid struct {
	ID          string    `db:"id" json:"id"`
	JobID       string    `db:"job_id" json:"jobId"`
	Price       float64   `db:"price" json:"price"`
	BidderEmail string    `db:"bidder_email" json:"bidderEmail"`
	Comment     string    `db:"comment" json:"comment"`
	BidDeadline time.Time `db:"bid_deadline" json:"bidDeadline"`
	Title       string    `db:"title" json:"title"`
	Category    string    `db:"category" json:"category"`
	BuyerEmail  string    `db:"buyer_email" json:"buyerEmail"`
	Status      BidStatus `db:"status" json:"status"`
	Version     int       `db:"version" json:"version"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"-"`
}
