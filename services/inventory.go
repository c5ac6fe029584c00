package services

import (
	"context"
	"fmt"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/db"
	"github.com/bhumi3292/VaultLease-sub001/models"
)

// InventoryService 资产与空间的增删改，以及按容量的空间预约
type InventoryService struct {
	repo   *db.Repo
	notify *Notifier
}

func NewInventoryService(repo *db.Repo, notify *Notifier) *InventoryService {
	return &InventoryService{repo: repo, notify: notify}
}

func (s *InventoryService) CreateAsset(ctx context.Context, actor models.Actor, a *models.Asset) error {
	if !actor.Role.CanManage() {
		return apperror.Forbidden("only administrators can create assets")
	}
	if a.Name == "" {
		return apperror.Validation("name is required")
	}
	// 超级管理员可以替别人建；普通管理员只能给自己建
	if a.AdministratorID == "" || !actor.Role.IsSuperAdmin() {
		a.AdministratorID = actor.ID
	}
	if err := s.repo.CreateAsset(ctx, a); err != nil {
		return err
	}
	s.notify.Audit(ctx, db.AuditEntry{
		Actor: actor, Action: models.AuditAssetCreated, Entity: "Asset", EntityID: a.ID,
		Details: map[string]any{"name": a.Name, "totalQuantity": a.TotalQuantity},
	})
	return nil
}

func (s *InventoryService) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	a, err := s.repo.FindAssetByID(ctx, id)
	return a, notFoundAs(err, "asset")
}

func (s *InventoryService) ListAssets(ctx context.Context, q db.AssetQuery) (*db.PagedAssets, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, apperror.ErrInvalidStatus.WithMessage("unknown asset status %q", q.Status)
	}
	return s.repo.ListAssets(ctx, q)
}

func (s *InventoryService) UpdateAsset(ctx context.Context, actor models.Actor, id string, p db.AssetPatch) (*models.Asset, error) {
	a, err := s.repo.UpdateAsset(ctx, actor, id, p)
	if err != nil {
		return nil, notFoundAs(err, "asset")
	}
	s.notify.Audit(ctx, db.AuditEntry{
		Actor: actor, Action: models.AuditAssetUpdated, Entity: "Asset", EntityID: a.ID,
		Details: map[string]any{"status": a.Status, "totalQuantity": a.TotalQuantity, "availableQuantity": a.AvailableQuantity},
	})
	return a, nil
}

func (s *InventoryService) DeleteAsset(ctx context.Context, actor models.Actor, id string) error {
	a, err := s.repo.DeleteAsset(ctx, actor, id)
	if err != nil {
		return notFoundAs(err, "asset")
	}
	s.notify.Audit(ctx, db.AuditEntry{
		Actor: actor, Action: models.AuditAssetDeleted, Entity: "Asset", EntityID: a.ID,
		Details: map[string]any{"name": a.Name},
	})
	return nil
}

func (s *InventoryService) CreateSpace(ctx context.Context, actor models.Actor, sp *models.Space) error {
	if !actor.Role.CanManage() {
		return apperror.Forbidden("only administrators can create spaces")
	}
	if sp.RoomName == "" {
		return apperror.Validation("roomName is required")
	}
	if sp.ManagerID == "" || !actor.Role.IsSuperAdmin() {
		sp.ManagerID = actor.ID
	}
	if err := s.repo.CreateSpace(ctx, sp); err != nil {
		return err
	}
	s.notify.Audit(ctx, db.AuditEntry{
		Actor: actor, Action: models.AuditSpaceCreated, Entity: "Space", EntityID: sp.ID,
		Details: map[string]any{"roomName": sp.RoomName, "capacity": sp.Capacity},
	})
	return nil
}

func (s *InventoryService) GetSpace(ctx context.Context, id string) (*models.Space, error) {
	sp, err := s.repo.FindSpaceByID(ctx, id)
	return sp, notFoundAs(err, "space")
}

func (s *InventoryService) ListSpaces(ctx context.Context, q db.SpaceQuery) (*db.PagedSpaces, error) {
	return s.repo.ListSpaces(ctx, q)
}

func (s *InventoryService) DeleteSpace(ctx context.Context, actor models.Actor, id string) error {
	sp, err := s.repo.DeleteSpace(ctx, actor, id)
	if err != nil {
		return notFoundAs(err, "space")
	}
	s.notify.Audit(ctx, db.AuditEntry{
		Actor: actor, Action: models.AuditSpaceDeleted, Entity: "Space", EntityID: sp.ID,
		Details: map[string]any{"roomName": sp.RoomName},
	})
	return nil
}

// BookCapacity 容量预约：占用一个名额
func (s *InventoryService) BookCapacity(ctx context.Context, actor models.Actor, spaceID, notes string) (*models.CapacityBooking, error) {
	b, err := s.repo.CreateCapacityBooking(ctx, actor.ID, spaceID, notes)
	if err != nil {
		return nil, notFoundAs(err, "space")
	}
	s.notify.Audit(ctx, db.AuditEntry{
		Actor: actor, Action: models.AuditBookingCreated, Entity: "CapacityBooking", EntityID: b.ID,
		Details: map[string]any{"spaceId": spaceID},
	})
	s.notify.Notify(ctx, Note{
		UserID: b.LandlordID, Type: "booking", Title: "New space booking",
		Message: fmt.Sprintf("%s reserved a place", actor.Name), Entity: "CapacityBooking", EntityID: b.ID,
	})
	return b, nil
}

func (s *InventoryService) UpdateCapacityStatus(ctx context.Context, actor models.Actor, id, status string) (*models.CapacityBooking, error) {
	to, err := models.ParseCapacityStatus(status)
	if err != nil {
		return nil, err
	}
	res, err := s.repo.UpdateCapacityBookingStatus(ctx, actor, id, to)
	if err != nil {
		return nil, notFoundAs(err, "booking")
	}
	b := res.Booking
	s.notify.Audit(ctx, db.AuditEntry{
		Actor: actor, Action: models.AuditBookingStatusChanged, Entity: "CapacityBooking", EntityID: b.ID,
		Details: map[string]any{"from": res.From, "to": b.Status},
	})
	s.notify.Notify(ctx, Note{
		UserID: b.TenantID, Type: "booking_status", Title: "Booking " + string(b.Status),
		Message: fmt.Sprintf("Your space booking is now %s.", b.Status), Entity: "CapacityBooking", EntityID: b.ID,
	})
	return b, nil
}
