package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"bidmarket/internal/bidding"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const (
	maxBodyBytes = 1048576

	// Заголовок с email пользователя, его выставляет внешний auth middleware
	HeaderUserEmail = "X-User-Email"

	reasonInvalidRequest   = "InvalidRequest"
	reasonUnauthenticated  = "Unauthenticated"
	reasonStoreUnavailable = "StoreUnavailable"
	reasonInternal         = "InternalError"
)

// HTTP-статус для каждой причины отказа
var reasonStatus = map[bidding.Reason]int{
	bidding.ReasonSelfBidForbidden:            http.StatusForbidden,
	bidding.ReasonNotBidOwner:                 http.StatusForbidden,
	bidding.ReasonDeadlineCrossed:             http.StatusBadRequest,
	bidding.ReasonPriceExceedsMaximum:         http.StatusBadRequest,
	bidding.ReasonBidDeadlineAfterJobDeadline: http.StatusBadRequest,
	bidding.ReasonInvalidPriceRange:           http.StatusBadRequest,
	bidding.ReasonUnknownStatus:               http.StatusBadRequest,
	bidding.ReasonJobNotFound:                 http.StatusNotFound,
	bidding.ReasonBidNotFound:                 http.StatusNotFound,
	bidding.ReasonInvalidTransition:           http.StatusConflict,
	bidding.ReasonTerminalState:               http.StatusConflict,
}

// Handler оборачивает координатор предложений
type Handler struct {
	Bids     BidService
	Log      logrus.FieldLogger
	validate *validator.Validate
}

// NewHandler создает новый Handler
func NewHandler(bids BidService, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{Bids: bids, Log: log, validate: newValidator()}
}

// PingHandler отвечает "ok" для проверки сервера
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type PaginationParams struct {
	Limit  int
	Offset int
}

// parsePaginationParams парсит limit и offset из query, с дефолтами и ограничениями
func parsePaginationParams(r *http.Request) PaginationParams {
	var params PaginationParams
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	params.Limit = 5 // дефолт
	params.Offset = 0

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 50 {
			params.Limit = l
		}
	}
	if offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			params.Offset = o
		}
	}
	return params
}

// decodeBody читает JSON тело запроса и проверяет его теги validate
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	// Ограничение размера тела, чтобы избежать DoS
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, reasonInvalidRequest, "Failed to read request body")
		return false
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, reasonInvalidRequest, "Invalid JSON format")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, reasonInvalidRequest, validationMessage(err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, reason, message string) {
	writeJSON(w, status, errorResponse{Reason: reason, Message: message})
}

func writeRejection(w http.ResponseWriter, rej *bidding.Rejection) {
	status, ok := reasonStatus[rej.Reason]
	if !ok {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, rej)
}

// writeFailure отвечает на системную ошибку координатора
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	h.Log.WithError(err).WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
	}).Error("request failed")

	if errors.Is(err, bidding.ErrStoreUnavailable) {
		writeError(w, http.StatusServiceUnavailable, reasonStoreUnavailable, "Store is unavailable, try again later")
		return
	}
	writeError(w, http.StatusInternalServerError, reasonInternal, "Internal server error")
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// в сообщениях используем имена полей из JSON
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Field()+" failed '"+fe.Tag()+"' check")
	}
	return strings.Join(msgs, "; ")
}
