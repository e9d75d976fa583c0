package main

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cyphera/billing-core/internal/account"
	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/invoice"
	"github.com/cyphera/billing-core/internal/money"
	"github.com/cyphera/billing-core/internal/svcerr"
)

// fail writes a ServiceError as a JSON body with its mapped HTTP status, the
// uniform error-response shape every handler below funnels into.
func fail(c *gin.Context, err error) {
	se := svcerr.As(err)
	body := gin.H{"error": se.Error(), "kind": se.Kind}
	if se.Fields != nil {
		body["fields"] = se.Fields
	}
	c.JSON(svcerr.HTTPStatus(se.Kind), body)
}

func (a *api) handleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	sig := c.GetHeader("Stripe-Signature")
	if err := a.hooks.HandleStripe(c.Request.Context(), payload, sig); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

type createCustomerRequest struct {
	Email       string `json:"email" binding:"required"`
	SourceToken string `json:"source_token"`
}

func (a *api) handleCreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cust, err := a.invoices.CreateCustomerWithSource(c.Request.Context(), principalFrom(c), req.Email, req.SourceToken)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cust)
}

func (a *api) handleGetCustomer(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	cust, ok, err := a.repos.Customers.GetByUserID(c.Request.Context(), principalFrom(c), userID)
	if err != nil {
		fail(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "customer not found"})
		return
	}
	c.JSON(http.StatusOK, cust)
}

type newOrderRequest struct {
	ID             uuid.UUID `json:"id" binding:"required"`
	StoreID        uuid.UUID `json:"store_id" binding:"required"`
	SellerCurrency string    `json:"seller_currency" binding:"required"`
	TotalAmount    string    `json:"total_amount" binding:"required"`
	CashbackAmount string    `json:"cashback_amount"`
}

type createInvoiceRequest struct {
	BuyerCurrency string            `json:"buyer_currency" binding:"required"`
	Orders        []newOrderRequest `json:"orders" binding:"required,min=1"`
}

func (a *api) handleCreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orders := make([]invoice.NewOrder, 0, len(req.Orders))
	for _, o := range req.Orders {
		total, err := money.NewFromString(o.TotalAmount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid total_amount: " + err.Error()})
			return
		}
		cashback := money.Zero()
		if o.CashbackAmount != "" {
			cashback, err = money.NewFromString(o.CashbackAmount)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cashback_amount: " + err.Error()})
				return
			}
		}
		orders = append(orders, invoice.NewOrder{
			ID:             o.ID,
			StoreID:        o.StoreID,
			SellerCurrency: money.Currency(o.SellerCurrency),
			TotalAmount:    total,
			CashbackAmount: cashback,
		})
	}

	p := principalFrom(c)
	inv, err := a.invoices.CreateInvoice(c.Request.Context(), p, p.UserID, money.Currency(req.BuyerCurrency), orders)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (a *api) handleGetInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}
	dump, err := a.invoices.GetInvoice(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}

	resp := gin.H{
		"invoice":           dump.Invoice,
		"orders":            dump.Orders,
		"required_total":    dump.RequiredTotal.String(),
		"has_missing_rates": dump.HasMissingRates,
	}
	if dump.Invoice.AccountID.Valid {
		if acc, err := a.repos.Accounts.Get(c.Request.Context(), uuid.UUID(dump.Invoice.AccountID.Bytes)); err == nil {
			if qr, err := account.WalletQRPNGBase64(acc.WalletAddress); err == nil {
				resp["wallet_address"] = acc.WalletAddress
				resp["wallet_qr_png_base64"] = qr
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (a *api) handleRecalcInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}
	inv, err := a.invoices.RecalcInvoice(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (a *api) handleChargeFee(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid fee id"})
		return
	}
	if err := a.invoices.ChargeFee(c.Request.Context(), principalFrom(c), []uuid.UUID{id}); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"charged": true})
}

func (a *api) handleCaptureOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	if err := a.invoices.CaptureOrder(c.Request.Context(), principalFrom(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"captured": true})
}

func (a *api) handleRefundOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	if err := a.invoices.RefundOrder(c.Request.Context(), principalFrom(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refunded": true})
}

type createPayoutRequest struct {
	OrderIDs      []uuid.UUID `json:"order_ids" binding:"required,min=1"`
	Currency      string      `json:"currency" binding:"required"`
	WalletAddress string      `json:"wallet_address" binding:"required"`
}

func (a *api) handleCreatePayout(c *gin.Context) {
	var req createPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := principalFrom(c)
	out, err := a.payouts.PayOutToSeller(c.Request.Context(), p, req.OrderIDs, p.UserID, money.Currency(req.Currency), req.WalletAddress)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (a *api) handleGetPayout(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payout id"})
		return
	}
	out, err := a.repos.Payouts.Get(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (a *api) handleListPayouts(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("store_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid store id"})
		return
	}
	out, err := a.repos.Payouts.ListByStore(c.Request.Context(), principalFrom(c), storeID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (a *api) handleStoreBalance(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("store_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid store id"})
		return
	}
	balances, err := a.payouts.GetBalance(c.Request.Context(), principalFrom(c), storeID)
	if err != nil {
		fail(c, err)
		return
	}
	out := make(map[string]string, len(balances))
	for cur, amt := range balances {
		out[string(cur)] = amt.String()
	}
	c.JSON(http.StatusOK, out)
}

func (a *api) handleGetStoreSubscription(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("store_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid store id"})
		return
	}
	sub, ok, err := a.repos.Subscriptions.GetStoreSubscription(c.Request.Context(), principalFrom(c), storeID)
	if err != nil {
		fail(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "store subscription not found"})
		return
	}
	c.JSON(http.StatusOK, sub)
}

type updateStoreSubscriptionRequest struct {
	Currency      string `json:"currency" binding:"required"`
	Value         string `json:"value" binding:"required"`
	WalletAddress string `json:"wallet_address"`
	Status        string `json:"status" binding:"required"`
}

func (a *api) handleUpdateStoreSubscription(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("store_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid store id"})
		return
	}
	var req updateStoreSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	value, err := money.NewFromString(req.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid value: " + err.Error()})
		return
	}
	sub, err := a.repos.Subscriptions.Update(c.Request.Context(), principalFrom(c), db.UpdateStoreSubscriptionParams{
		StoreID:       storeID,
		Currency:      req.Currency,
		Value:         value.ToNumeric(),
		WalletAddress: pgtype.Text{String: req.WalletAddress, Valid: req.WalletAddress != ""},
		Status:        req.Status,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

type createRoleRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Role   string    `json:"role" binding:"required"`
	Data   []byte    `json:"data"`
}

func (a *api) handleCreateRole(c *gin.Context) {
	var req createRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role, err := a.repos.Roles.Create(c.Request.Context(), principalFrom(c), db.CreateUserRoleParams{
		ID:     uuid.New(),
		UserID: req.UserID,
		Role:   req.Role,
		Data:   req.Data,
	})
	if err != nil {
		fail(c, err)
		return
	}
	a.acl.Invalidate(req.UserID)
	c.JSON(http.StatusCreated, role)
}

func (a *api) handleListRoles(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	roles, err := a.repos.Roles.ListForUser(c.Request.Context(), principalFrom(c), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

func (a *api) handleDeleteRole(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role id"})
		return
	}
	p := principalFrom(c)
	if err := a.repos.Roles.Delete(c.Request.Context(), p, id, p.UserID); err != nil {
		fail(c, err)
		return
	}
	a.acl.Invalidate(p.UserID)
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
