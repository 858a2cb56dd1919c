package wallethandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"auctionlotgo/internal/domain"
	"auctionlotgo/internal/wallet"
)

type Handler struct {
	ledger *wallet.Ledger
}

func New(ledger *wallet.Ledger) *Handler { return &Handler{ledger: ledger} }

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/wallets", h.create)
	r.GET("/wallets/:customer_id", h.get)
	r.GET("/wallets/:customer_id/transactions", h.transactions)
	r.POST("/wallets/:customer_id/deposit", h.deposit)
	r.POST("/wallets/:customer_id/withdraw", h.withdraw)
}

type CreateWalletBody struct {
	CustomerID string `json:"customer_id" binding:"required" example:"user123"`
	Currency   string `json:"currency" example:"USD"`
} // @name CreateWalletRequest

type AmountBody struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
} // @name AmountRequest

type ErrorResponse struct {
	Error string `json:"error"`
} // @name WalletErrorResponse

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrWalletNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrWalletExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusConflict
	case errors.Is(err, wallet.ErrNonPositiveAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// @Summary		Open a wallet
// @Tags			Wallets
// @Param			body	body	CreateWalletBody	true	"Wallet payload"
// @Success		201	{object}	domain.Wallet
// @Failure		409	{object}	ErrorResponse
// @Router			/wallets [post]
func (h *Handler) create(c *gin.Context) {
	var body CreateWalletBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	w, err := h.ledger.CreateWallet(body.CustomerID, body.Currency)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (h *Handler) get(c *gin.Context) {
	w, err := h.ledger.Get(c.Param("customer_id"))
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *Handler) transactions(c *gin.Context) {
	txns, err := h.ledger.Transactions(c.Param("customer_id"))
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, txns)
}

// @Summary		Deposit funds
// @Tags			Wallets
// @Param			customer_id	path	string		true	"Customer ID"
// @Param			body		body	AmountBody	true	"Amount payload"
// @Success		200	{object}	domain.Wallet
// @Failure		404	{object}	ErrorResponse
// @Router			/wallets/{customer_id}/deposit [post]
func (h *Handler) deposit(c *gin.Context) {
	var body AmountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	w, err := h.ledger.Deposit(c.Param("customer_id"), body.Amount, "customer deposit")
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, w)
}

// @Summary		Withdraw funds
// @Description	Only the available balance is withdrawable; blocked funds stay.
// @Tags			Wallets
// @Param			customer_id	path	string		true	"Customer ID"
// @Param			body		body	AmountBody	true	"Amount payload"
// @Success		200	{object}	domain.Wallet
// @Failure		409	{object}	ErrorResponse
// @Router			/wallets/{customer_id}/withdraw [post]
func (h *Handler) withdraw(c *gin.Context) {
	var body AmountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	w, err := h.ledger.Withdraw(c.Param("customer_id"), body.Amount, "customer withdrawal")
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, w)
}
