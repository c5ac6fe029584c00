package controllers

import (
	"time"

	"github.com/bhumi3292/VaultLease-sub001/app"
	"github.com/bhumi3292/VaultLease-sub001/services"

	"github.com/gin-gonic/gin"
)

type AccessRequestController struct{ *Srv }

func NewAccessRequestController(s *Srv) *AccessRequestController {
	return &AccessRequestController{Srv: s}
}

// POST /access-requests
func (rc *AccessRequestController) Create(c *gin.Context) {
	var in struct {
		AssetID            string    `json:"assetId" binding:"required"`
		StartDate          time.Time `json:"startDate" binding:"required"`
		ExpectedReturnDate time.Time `json:"expectedReturnDate" binding:"required"`
		Notes              string    `json:"notes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		app.BindFail(c, err)
		return
	}
	req, err := rc.Checkout.Create(c.Request.Context(), app.CurrentActor(c), services.CreateAccessInput{
		AssetID:            in.AssetID,
		StartDate:          in.StartDate,
		ExpectedReturnDate: in.ExpectedReturnDate,
		Notes:              in.Notes,
	})
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.Created(c, "access request created", req)
}

// GET /access-requests/mine?status=&page=&size=
func (rc *AccessRequestController) ListMine(c *gin.Context) {
	page, size := pageParams(c)
	res, err := rc.Checkout.ListMine(c.Request.Context(), app.CurrentActor(c), c.Query("status"), page, size)
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, res)
}

// GET /access-requests/managed 管理者名下资产的请求
func (rc *AccessRequestController) ListManaged(c *gin.Context) {
	page, size := pageParams(c)
	res, err := rc.Checkout.ListManaged(c.Request.Context(), app.CurrentActor(c), c.Query("status"), page, size)
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, res)
}

func (rc *AccessRequestController) Get(c *gin.Context) {
	req, err := rc.Checkout.Get(c.Request.Context(), app.CurrentActor(c), c.Param("id"))
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, req)
}

// PUT /access-requests/:id/status
func (rc *AccessRequestController) UpdateStatus(c *gin.Context) {
	var in struct {
		Status     string `json:"status" binding:"required"`
		AdminNotes string `json:"adminNotes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		app.BindFail(c, err)
		return
	}
	req, err := rc.Checkout.UpdateStatus(c.Request.Context(), app.CurrentActor(c), c.Param("id"), in.Status, in.AdminNotes)
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, req)
}

// POST /access-requests/:id/cancel 申请人撤回
func (rc *AccessRequestController) Cancel(c *gin.Context) {
	var in struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&in)
	req, err := rc.Checkout.CancelOwn(c.Request.Context(), app.CurrentActor(c), c.Param("id"), in.Reason)
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, req)
}

// POST /access-requests/:id/payments
func (rc *AccessRequestController) RecordPayment(c *gin.Context) {
	var in struct {
		Amount    float64 `json:"amount" binding:"min=0"`
		Provider  string  `json:"provider" binding:"required"`
		Reference string  `json:"reference"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		app.BindFail(c, err)
		return
	}
	req, err := rc.Checkout.RecordPayment(c.Request.Context(), app.CurrentActor(c), c.Param("id"), services.PaymentInput{
		Amount:    in.Amount,
		Provider:  in.Provider,
		Reference: in.Reference,
	})
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.Created(c, "payment recorded", req)
}

// GET /access-requests/:id/payments
func (rc *AccessRequestController) ListPayments(c *gin.Context) {
	pays, err := rc.Checkout.Payments(c.Request.Context(), app.CurrentActor(c), c.Param("id"))
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, pays)
}
