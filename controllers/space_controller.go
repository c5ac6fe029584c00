package controllers

import (
	"github.com/bhumi3292/VaultLease-sub001/app"
	"github.com/bhumi3292/VaultLease-sub001/db"
	"github.com/bhumi3292/VaultLease-sub001/models"

	"github.com/gin-gonic/gin"
)

type SpaceController struct{ *Srv }

func NewSpaceController(s *Srv) *SpaceController { return &SpaceController{Srv: s} }

func (sc *SpaceController) CreateSpace(c *gin.Context) {
	var in struct {
		RoomName     string   `json:"roomName" binding:"required"`
		Location     string   `json:"location"`
		Description  string   `json:"description"`
		Capacity     int      `json:"capacity" binding:"min=0"`
		DepartmentID string   `json:"departmentId"`
		Price        float64  `json:"price" binding:"min=0"`
		FloorLevel   int      `json:"floorLevel"`
		Images       []string `json:"images"`
		ManagerID    string   `json:"managerId"` // 仅超级管理员可指定
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		app.BindFail(c, err)
		return
	}
	sp := &models.Space{
		RoomName:     in.RoomName,
		Location:     in.Location,
		Description:  in.Description,
		Capacity:     in.Capacity,
		DepartmentID: in.DepartmentID,
		Price:        in.Price,
		FloorLevel:   in.FloorLevel,
		Images:       in.Images,
		ManagerID:    in.ManagerID,
	}
	if err := sc.Stock.CreateSpace(c.Request.Context(), app.CurrentActor(c), sp); err != nil {
		app.Fail(c, err)
		return
	}
	app.Created(c, "space created", sp)
}

// GET /api/spaces?q=&departmentId=&mine=1&page=&size=
func (sc *SpaceController) ListSpaces(c *gin.Context) {
	page, size := pageParams(c)
	q := db.SpaceQuery{Q: c.Query("q"), DepartmentID: c.Query("departmentId"), Page: page, Size: size}
	if c.Query("mine") == "1" {
		q.ManagerID = app.CurrentActor(c).ID
	}
	res, err := sc.Stock.ListSpaces(c.Request.Context(), q)
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, res)
}

func (sc *SpaceController) GetSpace(c *gin.Context) {
	sp, err := sc.Stock.GetSpace(c.Request.Context(), c.Param("id"))
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, sp)
}

func (sc *SpaceController) DeleteSpace(c *gin.Context) {
	if err := sc.Stock.DeleteSpace(c.Request.Context(), app.CurrentActor(c), c.Param("id")); err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, nil)
}

// POST /api/spaces/:id/bookings 容量预约
func (sc *SpaceController) BookCapacity(c *gin.Context) {
	var in struct {
		Notes string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&in)
	b, err := sc.Stock.BookCapacity(c.Request.Context(), app.CurrentActor(c), c.Param("id"), in.Notes)
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.Created(c, "space booked", b)
}

// GET /api/space-bookings/mine
func (sc *SpaceController) MyCapacityBookings(c *gin.Context) {
	bs, err := sc.Repo.ListCapacityBookings(c.Request.Context(), "", app.CurrentActor(c).ID)
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, bs)
}

// PUT /api/space-bookings/:id/status
func (sc *SpaceController) UpdateCapacityStatus(c *gin.Context) {
	var in struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		app.BindFail(c, err)
		return
	}
	b, err := sc.Stock.UpdateCapacityStatus(c.Request.Context(), app.CurrentActor(c), c.Param("id"), in.Status)
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, b)
}
