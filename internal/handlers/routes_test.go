package handlers_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bidmarket/internal/bidding"
	"bidmarket/internal/handlers"
	"bidmarket/internal/handlers/testutils"
	"bidmarket/internal/ratelimit"
	"bidmarket/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc handlers.BidService, limit func(http.Handler) http.Handler) http.Handler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return handlers.NewRouter(handlers.NewHandler(svc, log), log, limit)
}

func TestRouter_Routes(t *testing.T) {
	var gotBidID string
	mockSvc := &MockService{
		ChangeBidStatusFunc: func(ctx context.Context, bidID, actorEmail string, requested models.BidStatus) (bidding.Outcome[models.Bid], error) {
			gotBidID = bidID
			return bidding.Outcome[models.Bid]{Value: models.Bid{ID: bidID, Status: requested}}, nil
		},
	}
	router := newTestRouter(mockSvc, nil)

	tests := []struct {
		method string
		target string
		body   string
		status int
	}{
		{http.MethodGet, "/api/ping", "", http.StatusOK},
		{http.MethodGet, "/api/jobs/job-1", "", http.StatusOK},
		{http.MethodPost, "/api/bids", validBidBody, http.StatusCreated},
		{http.MethodGet, "/api/bids?bidderEmail=seller@example.com", "", http.StatusOK},
		{http.MethodPatch, "/api/bids/bid-9/status", `{"status":"Rejected"}`, http.StatusOK},
		{http.MethodGet, "/api/unknown", "", http.StatusNotFound},
		{http.MethodDelete, "/api/bids", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
		req = testutils.AsUser(req, "buyer@example.com")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		require.Equal(t, tt.status, w.Code, "%s %s", tt.method, tt.target)
	}
	require.Equal(t, "bid-9", gotBidID)
}

func TestRouter_RateLimitsMutatingRequests(t *testing.T) {
	limiter := ratelimit.New(0.001, 1)
	router := newTestRouter(&MockService{}, limiter.Middleware)

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/bids", strings.NewReader(validBidBody))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusCreated, post().Code)

	w := post()
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "RateLimited", decodeReason(t, w.Body))

	// чтение не ограничивается
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/bids?buyerEmail=buyer@example.com", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRouter_RateLimitIgnoresForwardedHeaders(t *testing.T) {
	limiter := ratelimit.New(0.001, 1)
	router := newTestRouter(&MockService{}, limiter.Middleware)

	codes := map[int]int{}
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/bids", strings.NewReader(validBidBody))
		req.RemoteAddr = "10.0.0.1:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("1.2.3.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("5.6.7.%d", i))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes[w.Code]++
	}

	require.Equal(t, 1, codes[http.StatusCreated])
	require.Equal(t, 19, codes[http.StatusTooManyRequests])
	require.Equal(t, 1, limiter.Len())
}
