package main

import (
	"github.com/gin-gonic/gin"

	"github.com/cyphera/billing-core/internal/account"
	"github.com/cyphera/billing-core/internal/authz"
	"github.com/cyphera/billing-core/internal/config"
	"github.com/cyphera/billing-core/internal/invoice"
	"github.com/cyphera/billing-core/internal/payout"
	"github.com/cyphera/billing-core/internal/repo"
	"github.com/cyphera/billing-core/internal/subscription"
	"github.com/cyphera/billing-core/internal/webhook"
)

// api holds every service the HTTP surface dispatches into, the
// composition root's handler receiver.
type api struct {
	cfg      *config.Config
	repos    *repo.Repos
	acl      *authz.ACL
	accounts *account.Service
	invoices *invoice.Service
	payouts  *payout.Service
	subs     *subscription.Service
	hooks    *webhook.Service
}

func newRouter(a *api) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(newCORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	r.POST("/webhooks/stripe", a.handleStripeWebhook)

	v1 := r.Group("/v1")
	v1.Use(authMiddleware(a.cfg.Auth.JWTSecret))
	{
		v1.POST("/customers", a.handleCreateCustomer)
		v1.GET("/customers/:user_id", a.handleGetCustomer)

		v1.POST("/fees/:id/charge", a.handleChargeFee)
		v1.POST("/orders/:id/capture", a.handleCaptureOrder)
		v1.POST("/orders/:id/refund", a.handleRefundOrder)

		v1.POST("/payouts", a.handleCreatePayout)
		v1.GET("/payouts/:id", a.handleGetPayout)
		v1.GET("/stores/:store_id/payouts", a.handleListPayouts)
		v1.GET("/stores/:store_id/balance", a.handleStoreBalance)

		v1.GET("/stores/:store_id/subscription", a.handleGetStoreSubscription)
		v1.PUT("/stores/:store_id/subscription", a.handleUpdateStoreSubscription)

		v1.POST("/roles", a.handleCreateRole)
		v1.GET("/roles/:user_id", a.handleListRoles)
		v1.DELETE("/roles/:id", a.handleDeleteRole)
	}

	v2 := r.Group("/v2")
	v2.Use(authMiddleware(a.cfg.Auth.JWTSecret))
	{
		v2.POST("/invoices", a.handleCreateInvoice)
		v2.GET("/invoices/:id", a.handleGetInvoice)
		v2.POST("/invoices/:id/recalc", a.handleRecalcInvoice)
	}

	return r
}
