package auctionhandler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"auctionlotgo/internal/domain"
	"auctionlotgo/internal/services/auction"
)

// BidSubmitter is the bid submission boundary.
type BidSubmitter interface {
	SubmitBid(ctx context.Context, partyID, customerID string, amount decimal.Decimal, correlationID string) (domain.Bid, error)
}

type Handler struct {
	svc    auction.IAuctionService
	bidSvc BidSubmitter
}

func New(svc auction.IAuctionService, bidSvc BidSubmitter) *Handler {
	return &Handler{svc: svc, bidSvc: bidSvc}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/auctions", h.create)
	r.GET("/auctions", h.list)
	r.GET("/auctions/:id", h.info)
	r.POST("/auctions/:id/parties", h.addParty)
	r.GET("/auctions/:id/parties", h.listParties)
	r.POST("/auctions/:id/schedule", h.schedule)
	r.POST("/auctions/:id/start", h.start)
	r.POST("/auctions/:id/cancel", h.cancel)
	r.GET("/parties/:id", h.party)
	r.GET("/parties/:id/bids", h.partyBids)
	r.POST("/parties/:id/bid", h.bid)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAuctionNotFound),
		errors.Is(err, domain.ErrPartyNotFound),
		errors.Is(err, domain.ErrWalletNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrRegistrationClosed),
		errors.Is(err, domain.ErrPositionTaken),
		errors.Is(err, auction.ErrAuctionDisabled):
		return http.StatusConflict
	case errors.Is(err, auction.ErrStartAfterEnd),
		errors.Is(err, auction.ErrBadIncrement),
		errors.Is(err, auction.ErrBadStartingPrice),
		errors.Is(err, auction.ErrBadPosition):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// @Summary		Create an auction
// @Tags			Auctions
// @Param			body	body	CreateAuctionBody	true	"Auction payload"
// @Success		201	{object}	domain.Auction
// @Failure		400	{object}	ErrorResponse
// @Router			/auctions [post]
func (h *Handler) create(ginCtx *gin.Context) {
	var body CreateAuctionBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}
	a, err := h.svc.CreateAuction(ginCtx.Request.Context(), body.Title, body.StartDate, body.EndDate, body.CutoffHours)
	if err != nil {
		ginCtx.JSON(statusFor(err), &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusCreated, a)
}

// @Summary		List auctions
// @Tags			Auctions
// @Param			status	query		string	false	"Status filter"	Enums(DRAFT,SCHEDULED,ACTIVE,ENDED,CANCELLED)
// @Param			limit	query		int		false	"Max results (0-100)"	default(10)
// @Param			offset	query		int		false	"Offset for pagination"	default(0)
// @Success		200	{array}		domain.Auction
// @Failure		400	{object}	ErrorResponse
// @Router			/auctions [get]
func (h *Handler) list(c *gin.Context) {
	var q ListAuctionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	out, err := h.svc.ListAuctions(c, q.Status, q.Limit, q.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary		Get auction details
// @Tags			Auctions
// @Param			id	path		string	true	"Auction ID"
// @Success		200	{object}	domain.Auction
// @Failure		404	{object}	ErrorResponse
// @Router			/auctions/{id} [get]
func (h *Handler) info(c *gin.Context) {
	a, err := h.svc.GetAuction(c, c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, a)
}

// @Summary		Register a lot
// @Description	Adds a party to an auction; closes cutoff_hours before start.
// @Tags			Parties
// @Param			id		path	string			true	"Auction ID"
// @Param			body	body	AddPartyBody	true	"Party payload"
// @Success		201	{object}	domain.AuctionParty
// @Failure		409	{object}	ErrorResponse
// @Router			/auctions/{id}/parties [post]
func (h *Handler) addParty(ginCtx *gin.Context) {
	var body AddPartyBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}
	p, err := h.svc.AddParty(ginCtx.Request.Context(), ginCtx.Param("id"), auction.PartyInput{
		ProductID:     body.ProductID,
		SellerID:      body.SellerID,
		StartingPrice: body.StartingPrice,
		BidIncrement:  body.BidIncrement,
		Position:      body.Position,
		TimerDuration: time.Duration(body.TimerDurationSeconds) * time.Second,
	})
	if err != nil {
		ginCtx.JSON(statusFor(err), &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusCreated, p)
}

func (h *Handler) listParties(c *gin.Context) {
	out, err := h.svc.ListParties(c, c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) schedule(c *gin.Context) {
	if err := h.svc.ScheduleAuction(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}

// @Summary		Start an auction
// @Description	Operator starts the auction; the first lot goes live.
// @Tags			Auctions
// @Param			id	path	string	true	"Auction ID"
// @Success		202
// @Failure		409	{object}	ErrorResponse
// @Router			/auctions/{id}/start [post]
func (h *Handler) start(ginCtx *gin.Context) {
	if err := h.svc.StartAuction(ginCtx.Request.Context(), ginCtx.Param("id")); err != nil {
		ginCtx.JSON(statusFor(err), &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.Status(http.StatusAccepted)
}

// @Summary		Cancel an auction
// @Description	Terminal; cascades cancellation to all non-terminal lots.
// @Tags			Auctions
// @Param			id		path	string		true	"Auction ID"
// @Param			body	body	CancelBody	false	"Reason payload"
// @Success		202
// @Failure		409	{object}	ErrorResponse
// @Router			/auctions/{id}/cancel [post]
func (h *Handler) cancel(ginCtx *gin.Context) {
	var body CancelBody
	_ = ginCtx.ShouldBindJSON(&body)
	if err := h.svc.CancelAuction(ginCtx.Request.Context(), ginCtx.Param("id"), body.Reason); err != nil {
		ginCtx.JSON(statusFor(err), &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.Status(http.StatusAccepted)
}

func (h *Handler) party(c *gin.Context) {
	p, err := h.svc.GetParty(c, c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) partyBids(c *gin.Context) {
	out, err := h.svc.ListBids(c, c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary		Place a bid
// @Description	Submits a bid for a lot. Rejections come back with HTTP 200
// @Description	and a reason code; the bid row is kept either way.
// @Tags			Bids
// @Param			id		path	string			true	"Party ID"
// @Param			body	body	PlaceBidBody	true	"Bid payload"
// @Success		200	{object}	BidResponse
// @Failure		404	{object}	ErrorResponse
// @Router			/parties/{id}/bid [post]
func (h *Handler) bid(ginCtx *gin.Context) {
	var body PlaceBidBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	b, err := h.bidSvc.SubmitBid(ginCtx.Request.Context(),
		ginCtx.Param("id"),
		body.CustomerID,
		body.Amount,
		body.CorrelationID,
	)
	if err != nil {
		ginCtx.JSON(statusFor(err), &ErrorResponse{Error: err.Error()})
		return
	}
	status := strings.ToLower(string(b.Status))
	if b.Status == domain.BidOutbid {
		// Correlation replay of a bid that was accepted and later
		// displaced: the original decision stands.
		status = "accepted"
	}
	ginCtx.JSON(http.StatusOK, BidResponse{
		BidID:  b.ID,
		Status: status,
		Reason: b.RejectionReason,
	})
}
