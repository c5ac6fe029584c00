// controllers/asset_controller.go
package controllers

import (
	"github.com/bhumi3292/VaultLease-sub001/app"
	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/db"
	"github.com/bhumi3292/VaultLease-sub001/models"

	"github.com/gin-gonic/gin"
)

type AssetController struct{ *Srv }

func NewAssetController(s *Srv) *AssetController { return &AssetController{Srv: s} }

type assetBody struct {
	Name                  string   `json:"name" binding:"required"`
	Category              string   `json:"category"`
	Description           string   `json:"description"`
	Department            string   `json:"department"`
	TotalQuantity         int      `json:"totalQuantity" binding:"required,min=1"`
	AccessFee             float64  `json:"accessFee" binding:"min=0"`
	LateFeePerDay         float64  `json:"lateFeePerDay" binding:"min=0"`
	MaxBorrowDurationDays int      `json:"maxBorrowDurationDays" binding:"min=0"`
	Images                []string `json:"images"`
	AdministratorID       string   `json:"administratorId"` // 仅超级管理员可指定
}

// 管理员创建资产，初始可借数量 = 总量
func (ac *AssetController) CreateAsset(c *gin.Context) {
	var in assetBody
	if err := c.ShouldBindJSON(&in); err != nil {
		app.BindFail(c, err)
		return
	}
	a := &models.Asset{
		Name:                  in.Name,
		Category:              in.Category,
		Description:           in.Description,
		Department:            in.Department,
		TotalQuantity:         in.TotalQuantity,
		AccessFee:             in.AccessFee,
		LateFeePerDay:         in.LateFeePerDay,
		MaxBorrowDurationDays: in.MaxBorrowDurationDays,
		Images:                in.Images,
		AdministratorID:       in.AdministratorID,
	}
	if err := ac.Stock.CreateAsset(c.Request.Context(), app.CurrentActor(c), a); err != nil {
		app.Fail(c, err)
		return
	}
	app.Created(c, "asset created", a)
}

// GET /api/assets?q=&category=&department=&status=&mine=1&page=&size=
func (ac *AssetController) ListAssets(c *gin.Context) {
	page, size := pageParams(c)
	q := db.AssetQuery{
		Q:          c.Query("q"),
		Category:   c.Query("category"),
		Department: c.Query("department"),
		Page:       page,
		Size:       size,
	}
	if v := c.Query("status"); v != "" {
		st := models.AssetStatus(v)
		if !st.Valid() {
			app.Fail(c, apperror.ErrInvalidStatus.WithMessage("unknown asset status %q", v))
			return
		}
		q.Status = st
	}
	if c.Query("mine") == "1" {
		q.AdministratorID = app.CurrentActor(c).ID
	}
	res, err := ac.Stock.ListAssets(c.Request.Context(), q)
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, res)
}

func (ac *AssetController) GetAsset(c *gin.Context) {
	a, err := ac.Stock.GetAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, a)
}

// PUT /api/assets/:id 只更新出现的字段
func (ac *AssetController) UpdateAsset(c *gin.Context) {
	var in struct {
		Name                  *string  `json:"name"`
		Category              *string  `json:"category"`
		Description           *string  `json:"description"`
		Department            *string  `json:"department"`
		TotalQuantity         *int     `json:"totalQuantity" binding:"omitempty,min=1"`
		Status                *string  `json:"status"`
		AccessFee             *float64 `json:"accessFee" binding:"omitempty,min=0"`
		LateFeePerDay         *float64 `json:"lateFeePerDay" binding:"omitempty,min=0"`
		MaxBorrowDurationDays *int     `json:"maxBorrowDurationDays" binding:"omitempty,min=0"`
		Images                []string `json:"images"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		app.BindFail(c, err)
		return
	}
	patch := db.AssetPatch{
		Name:                  in.Name,
		Category:              in.Category,
		Description:           in.Description,
		Department:            in.Department,
		TotalQuantity:         in.TotalQuantity,
		AccessFee:             in.AccessFee,
		LateFeePerDay:         in.LateFeePerDay,
		MaxBorrowDurationDays: in.MaxBorrowDurationDays,
		Images:                in.Images,
	}
	if in.Status != nil {
		st := models.AssetStatus(*in.Status)
		if !st.Valid() {
			app.Fail(c, apperror.ErrInvalidStatus.WithMessage("unknown asset status %q", *in.Status))
			return
		}
		patch.Status = &st
	}
	a, err := ac.Stock.UpdateAsset(c.Request.Context(), app.CurrentActor(c), c.Param("id"), patch)
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, a)
}

func (ac *AssetController) DeleteAsset(c *gin.Context) {
	if err := ac.Stock.DeleteAsset(c.Request.Context(), app.CurrentActor(c), c.Param("id")); err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, nil)
}
