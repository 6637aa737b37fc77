package bidding

import (
	"strings"
	"time"

	"bidmarket/models"
)

// ValidateBidCreation проверяет правила подачи предложения по порядку
// и возвращает первое нарушенное. nil, если предложение допустимо.
func ValidateBidCreation(job models.Job, bidder models.Identity, price float64, bidDeadline, now time.Time) *Rejection {
	if sameEmail(bidder.Email, job.Buyer.Email) {
		return reject(ReasonSelfBidForbidden, "buyer cannot bid on their own job")
	}
	if now.After(job.Deadline) {
		return reject(ReasonDeadlineCrossed, "job deadline %s has passed", job.Deadline.Format(time.RFC3339))
	}
	if price > job.MaxPrice {
		return reject(ReasonPriceExceedsMaximum, "price %.2f exceeds maximum %.2f", price, job.MaxPrice)
	}
	if bidDeadline.After(job.Deadline) {
		return reject(ReasonBidDeadlineAfterJobDeadline, "bid deadline must not be after %s", job.Deadline.Format(time.RFC3339))
	}
	return nil
}

// Разрешённые переходы статусов. Всё, чего здесь нет, запрещено.
var transitions = map[models.BidStatus][]models.BidStatus{
	models.BidPending:    {models.BidInProgress, models.BidRejected},
	models.BidInProgress: {models.BidCompleted},
}

// ValidateStatusTransition проверяет переход current -> requested.
// Запрос текущего статуса тоже отказ, а не успех.
func ValidateStatusTransition(current, requested models.BidStatus) *Rejection {
	if current.IsTerminal() {
		return reject(ReasonTerminalState, "bid is %s, no further changes allowed", current)
	}
	for _, next := range transitions[current] {
		if next == requested {
			return nil
		}
	}
	return reject(ReasonInvalidTransition, "cannot change status from %s to %s", current, requested)
}

// AuthorizeStatusChange менять статус может только покупатель работы
func AuthorizeStatusChange(bid models.Bid, actorEmail string) *Rejection {
	if !sameEmail(actorEmail, bid.BuyerEmail) {
		return reject(ReasonNotBidOwner, "only the job buyer can change this bid")
	}
	return nil
}

// Написание без пробела, которое встречается у клиентов
var statusAliases = map[string]models.BidStatus{
	"InProgress": models.BidInProgress,
}

func ParseStatus(s string) (models.BidStatus, *Rejection) {
	status := models.BidStatus(strings.TrimSpace(s))
	if alias, ok := statusAliases[string(status)]; ok {
		status = alias
	}
	if !status.Valid() {
		return "", reject(ReasonUnknownStatus, "unknown status %q", s)
	}
	return status, nil
}

// ValidateJob проверяет размещаемую работу
func ValidateJob(job models.Job, now time.Time) *Rejection {
	if job.MinPrice < 0 || job.MinPrice > job.MaxPrice {
		return reject(ReasonInvalidPriceRange, "price range %.2f-%.2f is invalid", job.MinPrice, job.MaxPrice)
	}
	if now.After(job.Deadline) {
		return reject(ReasonDeadlineCrossed, "job deadline %s has passed", job.Deadline.Format(time.RFC3339))
	}
	return nil
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
