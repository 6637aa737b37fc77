package bidding

import (
	"errors"
	"fmt"
)

// Reason машиночитаемая причина отказа
type Reason string

const (
	ReasonSelfBidForbidden            Reason = "SelfBidForbidden"
	ReasonDeadlineCrossed             Reason = "DeadlineCrossed"
	ReasonPriceExceedsMaximum         Reason = "PriceExceedsMaximum"
	ReasonBidDeadlineAfterJobDeadline Reason = "BidDeadlineAfterJobDeadline"
	ReasonInvalidTransition           Reason = "InvalidTransition"
	ReasonTerminalState               Reason = "TerminalState"
	ReasonUnknownStatus               Reason = "UnknownStatus"
	ReasonNotBidOwner                 Reason = "NotBidOwner"
	ReasonInvalidPriceRange           Reason = "InvalidPriceRange"
	ReasonJobNotFound                 Reason = "JobNotFound"
	ReasonBidNotFound                 Reason = "BidNotFound"
)

// ErrStoreUnavailable хранилище не ответило или вернуло ошибку
var ErrStoreUnavailable = errors.New("StoreUnavailable")

// Rejection отказ по бизнес-правилу. Это результат операции, а не ошибка:
// его возвращают вызывающему как есть и никогда не повторяют.
type Rejection struct {
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

func reject(reason Reason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func (r *Rejection) String() string {
	return fmt.Sprintf("%s: %s", r.Reason, r.Message)
}

// Outcome итог операции: либо значение, либо отказ
type Outcome[T any] struct {
	Value     T
	Rejection *Rejection
}

func (o Outcome[T]) Accepted() bool {
	return o.Rejection == nil
}

func accepted[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

func rejected[T any](r *Rejection) Outcome[T] {
	return Outcome[T]{Rejection: r}
}
