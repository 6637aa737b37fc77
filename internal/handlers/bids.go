package handlers

import (
	"net/http"
	"strings"
	"time"

	"bidmarket/internal/bidding"
	"bidmarket/models"

	"github.com/go-chi/chi/v5"
)

type createBidRequest struct {
	JobID       string    `json:"jobId" validate:"required"`
	Price       float64   `json:"price" validate:"gt=0"`
	Comment     string    `json:"comment" validate:"max=1000"`
	BidDeadline time.Time `json:"bidDeadline" validate:"required"`
	BidderEmail string    `json:"bidderEmail" validate:"required,email"`
	BidderName  string    `json:"bidderName" validate:"max=100"`
}

// CreateBidHandler обрабатывает POST /api/bids
func (h *Handler) CreateBidHandler(w http.ResponseWriter, r *http.Request) {
	var req createBidRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	out, err := h.Bids.SubmitBid(r.Context(), bidding.BidSubmission{
		JobID:       strings.TrimSpace(req.JobID),
		Bidder:      models.Identity{Name: req.BidderName, Email: strings.TrimSpace(req.BidderEmail)},
		Price:       req.Price,
		Comment:     req.Comment,
		BidDeadline: req.BidDeadline,
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if !out.Accepted() {
		writeRejection(w, out.Rejection)
		return
	}

	writeJSON(w, http.StatusCreated, out.Value)
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ChangeBidStatusHandler обрабатывает PATCH /api/bids/{bidId}/status
func (h *Handler) ChangeBidStatusHandler(w http.ResponseWriter, r *http.Request) {
	bidID := strings.TrimSpace(chi.URLParam(r, "bidId"))
	if bidID == "" {
		writeError(w, http.StatusBadRequest, reasonInvalidRequest, "Invalid bidId")
		return
	}

	actor := strings.TrimSpace(r.Header.Get(HeaderUserEmail))
	if actor == "" {
		writeError(w, http.StatusUnauthorized, reasonUnauthenticated, "Missing "+HeaderUserEmail+" header")
		return
	}

	var req changeStatusRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	status, rej := bidding.ParseStatus(req.Status)
	if rej != nil {
		writeRejection(w, rej)
		return
	}

	out, err := h.Bids.ChangeBidStatus(r.Context(), bidID, actor, status)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if !out.Accepted() {
		writeRejection(w, out.Rejection)
		return
	}

	writeJSON(w, http.StatusOK, out.Value)
}

// GetBidsHandler обрабатывает GET /api/bids?buyerEmail=... или ?bidderEmail=...
func (h *Handler) GetBidsHandler(w http.ResponseWriter, r *http.Request) {
	// без limit/offset отдаём весь список
	var page bidding.Page
	if q := r.URL.Query(); q.Has("limit") || q.Has("offset") {
		params := parsePaginationParams(r)
		page = bidding.Page{Limit: params.Limit, Offset: params.Offset}
	}

	buyer := strings.TrimSpace(r.URL.Query().Get("buyerEmail"))
	bidder := strings.TrimSpace(r.URL.Query().Get("bidderEmail"))

	var (
		bids []models.Bid
		err  error
	)
	switch {
	case buyer != "" && bidder != "":
		writeError(w, http.StatusBadRequest, reasonInvalidRequest, "Use either buyerEmail or bidderEmail, not both")
		return
	case buyer != "":
		bids, err = h.Bids.ListBidsForBuyer(r.Context(), buyer, page)
	case bidder != "":
		bids, err = h.Bids.ListBidsForBidder(r.Context(), bidder, page)
	default:
		writeError(w, http.StatusBadRequest, reasonInvalidRequest, "Missing buyerEmail or bidderEmail parameter")
		return
	}
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, bids)
}
