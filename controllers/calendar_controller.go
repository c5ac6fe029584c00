package controllers

import (
	"net/http"

	"github.com/bhumi3292/VaultLease-sub001/app"
	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/services"

	"github.com/gin-gonic/gin"
)

type CalendarController struct{ *Srv }

func NewCalendarController(s *Srv) *CalendarController { return &CalendarController{Srv: s} }

// POST /calendar/availabilities 新建返回 201，合并返回 200
func (cc *CalendarController) Publish(c *gin.Context) {
	var in struct {
		PropertyID string   `json:"propertyId" binding:"required"`
		Date       string   `json:"date" binding:"required"`
		TimeSlots  []string `json:"timeSlots" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		app.BindFail(c, err)
		return
	}
	res, err := cc.Calendar.Publish(c.Request.Context(), app.CurrentActor(c), services.PublishInput{
		PropertyID: in.PropertyID,
		Date:       in.Date,
		TimeSlots:  in.TimeSlots,
	})
	if err != nil {
		app.Fail(c, err)
		return
	}
	data := app.H{"availability": res.Availability, "skipped": res.Skipped}
	if res.Created {
		app.Created(c, "availability created", data)
		return
	}
	app.Message(c, http.StatusOK, "availability updated", data)
}

// GET /calendar/availabilities?propertyId=&from=&to=
func (cc *CalendarController) List(c *gin.Context) {
	propertyID := c.Query("propertyId")
	if propertyID == "" {
		app.Fail(c, apperror.Validation("propertyId is required"))
		return
	}
	avs, err := cc.Calendar.List(c.Request.Context(), propertyID, c.Query("from"), c.Query("to"))
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, avs)
}

func (cc *CalendarController) Update(c *gin.Context) {
	var in struct {
		TimeSlots []string `json:"timeSlots" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		app.BindFail(c, err)
		return
	}
	av, err := cc.Calendar.Update(c.Request.Context(), app.CurrentActor(c), c.Param("id"), in.TimeSlots)
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, av)
}

func (cc *CalendarController) Delete(c *gin.Context) {
	if err := cc.Calendar.Delete(c.Request.Context(), app.CurrentActor(c), c.Param("id")); err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, nil)
}

// POST /calendar/book-visit
func (cc *CalendarController) Book(c *gin.Context) {
	var in struct {
		PropertyID string `json:"propertyId" binding:"required"`
		Date       string `json:"date" binding:"required"`
		TimeSlot   string `json:"timeSlot" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		app.BindFail(c, err)
		return
	}
	b, err := cc.Calendar.Book(c.Request.Context(), app.CurrentActor(c), services.BookInput{
		PropertyID: in.PropertyID,
		Date:       in.Date,
		TimeSlot:   in.TimeSlot,
	})
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.Created(c, "booking created", b)
}

// GET /calendar/bookings/tenant?status=
func (cc *CalendarController) TenantBookings(c *gin.Context) {
	bs, err := cc.Calendar.TenantBookings(c.Request.Context(), app.CurrentActor(c), c.Query("status"))
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, bs)
}

// GET /calendar/bookings/landlord?propertyId=&status=
func (cc *CalendarController) LandlordBookings(c *gin.Context) {
	bs, err := cc.Calendar.LandlordBookings(c.Request.Context(), app.CurrentActor(c), c.Query("propertyId"), c.Query("status"))
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, bs)
}

func (cc *CalendarController) UpdateStatus(c *gin.Context) {
	var in struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		app.BindFail(c, err)
		return
	}
	b, err := cc.Calendar.UpdateStatus(c.Request.Context(), app.CurrentActor(c), c.Param("id"), in.Status)
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, b)
}

// DELETE /calendar/bookings/:id 租户或房东取消
func (cc *CalendarController) Cancel(c *gin.Context) {
	b, err := cc.Calendar.Cancel(c.Request.Context(), app.CurrentActor(c), c.Param("id"))
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, b)
}
