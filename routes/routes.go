package routes

import (
	"net/http"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/app"
	"github.com/bhumi3292/VaultLease-sub001/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App, s *controllers.Srv) {
	// 控制器
	uc := controllers.GetUserController(s)
	inviteCtl := controllers.GetInviteController(s)
	assetCtl := controllers.NewAssetController(s)
	reqCtl := controllers.NewAccessRequestController(s)
	spaceCtl := controllers.NewSpaceController(s)
	calCtl := controllers.NewCalendarController(s)
	auditCtl := controllers.NewAuditController(s)

	// 复用的中间件
	authMW := app.AuthRequired(a.AppSess, a.Repo, a.Config)
	seenMW := app.TouchLastSeen(a.Repo, a.Locker, 5*time.Minute)
	managerMW := app.ManagerOnly()
	adminMW := app.AdminOnly()

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.Envelope{Success: true, Message: "ok"}) })

	// ------------------------------
	// WebAuthn（公开+受保护）
	// ------------------------------
	wa := r.Group("/webauthn")
	{
		wa.POST("/register/begin", s.BeginRegistration)
		wa.POST("/register/finish", s.FinishRegistration)
		wa.POST("/login/begin", s.BeginLogin)
		wa.POST("/login/finish", s.FinishLogin)
	}
	waAuth := wa.Group("", authMW, seenMW)
	{
		waAuth.GET("/whoami", s.WhoAmI)
		waAuth.POST("/logout", s.Logout)
	}

	// 已登录用户添加新凭据（绑定手机等）
	creds := r.Group("/api/credentials", authMW, seenMW)
	{
		creds.POST("/add/begin", s.BeginAddCredential)
		creds.POST("/add/finish", s.FinishAddCredential)
	}

	// ------------------------------
	// 超级管理员
	// ------------------------------
	admin := r.Group("/admin", authMW, adminMW)
	{
		admin.POST("/invites", inviteCtl.CreateInvite)
		admin.GET("/invites", inviteCtl.ListInvites)
		admin.POST("/sweeps/overdue", auditCtl.RunSweep)
	}
	users := r.Group("/api/users", authMW, adminMW)
	{
		users.GET("", uc.ListUsers) // ?q=&role=&page=&size=
		users.GET("/:id", uc.GetUser)
		users.DELETE("/:id", uc.DeleteUser)
		users.PUT("/:id/role", uc.SetRole)
	}
	r.GET("/api/audit-logs", authMW, adminMW, auditCtl.ListAuditLogs)

	// ------------------------------
	// 资产与借用
	// ------------------------------
	assets := r.Group("/api/assets", authMW, seenMW)
	{
		assets.GET("", assetCtl.ListAssets)
		assets.GET("/:id", assetCtl.GetAsset)
		assets.POST("", managerMW, assetCtl.CreateAsset)
		assets.PUT("/:id", managerMW, assetCtl.UpdateAsset)
		assets.DELETE("/:id", managerMW, assetCtl.DeleteAsset)
	}
	reqs := r.Group("/access-requests", authMW, seenMW)
	{
		reqs.POST("", reqCtl.Create)
		reqs.GET("/mine", reqCtl.ListMine)
		reqs.GET("/managed", managerMW, reqCtl.ListManaged)
		reqs.GET("/:id", reqCtl.Get)
		reqs.PUT("/:id/status", managerMW, reqCtl.UpdateStatus)
		reqs.POST("/:id/cancel", reqCtl.Cancel)
		reqs.POST("/:id/payments", reqCtl.RecordPayment)
		reqs.GET("/:id/payments", reqCtl.ListPayments)
	}

	// ------------------------------
	// 空间、时段与预约
	// ------------------------------
	spaces := r.Group("/api/spaces", authMW, seenMW)
	{
		spaces.GET("", spaceCtl.ListSpaces)
		spaces.GET("/:id", spaceCtl.GetSpace)
		spaces.POST("", managerMW, spaceCtl.CreateSpace)
		spaces.DELETE("/:id", managerMW, spaceCtl.DeleteSpace)
		spaces.POST("/:id/bookings", spaceCtl.BookCapacity)
	}
	spaceBookings := r.Group("/api/space-bookings", authMW, seenMW)
	{
		spaceBookings.GET("/mine", spaceCtl.MyCapacityBookings)
		spaceBookings.PUT("/:id/status", managerMW, spaceCtl.UpdateCapacityStatus)
	}
	cal := r.Group("/calendar", authMW, seenMW)
	{
		cal.GET("/availabilities", calCtl.List)
		cal.POST("/availabilities", managerMW, calCtl.Publish)
		cal.PUT("/availabilities/:id", managerMW, calCtl.Update)
		cal.DELETE("/availabilities/:id", managerMW, calCtl.Delete)

		cal.POST("/book-visit", calCtl.Book)
		cal.GET("/bookings/tenant", calCtl.TenantBookings)
		cal.GET("/bookings/landlord", managerMW, calCtl.LandlordBookings)
		cal.PUT("/bookings/:id/status", managerMW, calCtl.UpdateStatus)
		cal.DELETE("/bookings/:id", calCtl.Cancel)
	}

	// 站内通知
	notes := r.Group("/api/notifications", authMW, seenMW)
	{
		notes.GET("", auditCtl.ListNotifications)
		notes.PUT("/:id/read", auditCtl.MarkRead)
	}
}
