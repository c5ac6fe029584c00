package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/db"
	"github.com/bhumi3292/VaultLease-sub001/mailer"
	"github.com/bhumi3292/VaultLease-sub001/models"
)

// CalendarService 时段发布与预约
type CalendarService struct {
	repo   *db.Repo
	notify *Notifier
}

func NewCalendarService(repo *db.Repo, notify *Notifier) *CalendarService {
	return &CalendarService{repo: repo, notify: notify}
}

type PublishInput struct {
	PropertyID string
	Date       string
	TimeSlots  []string
}

func (s *CalendarService) Publish(ctx context.Context, actor models.Actor, in PublishInput) (*db.PublishResult, error) {
	if in.PropertyID == "" {
		return nil, apperror.Validation("propertyId is required")
	}
	date, err := models.ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	res, err := s.repo.PublishAvailability(ctx, actor, in.PropertyID, date, in.TimeSlots)
	if err != nil {
		return nil, notFoundAs(err, "space")
	}
	s.notify.Audit(ctx, db.AuditEntry{
		Actor:    actor,
		Action:   models.AuditAvailabilityPublish,
		Entity:   "Availability",
		EntityID: res.Availability.ID,
		Details:  map[string]any{"propertyId": in.PropertyID, "date": res.Availability.DateKey(), "slots": res.Availability.TimeSlots, "skipped": res.Skipped, "created": res.Created},
	})
	return res, nil
}

func (s *CalendarService) Update(ctx context.Context, actor models.Actor, id string, slots []string) (*models.Availability, error) {
	av, err := s.repo.UpdateAvailability(ctx, actor, id, slots)
	if err != nil {
		return nil, notFoundAs(err, "availability")
	}
	s.notify.Audit(ctx, db.AuditEntry{
		Actor: actor, Action: models.AuditAvailabilityUpdate, Entity: "Availability", EntityID: av.ID,
		Details: map[string]any{"slots": av.TimeSlots},
	})
	return av, nil
}

func (s *CalendarService) Delete(ctx context.Context, actor models.Actor, id string) error {
	av, err := s.repo.DeleteAvailability(ctx, actor, id)
	if err != nil {
		return notFoundAs(err, "availability")
	}
	s.notify.Audit(ctx, db.AuditEntry{
		Actor: actor, Action: models.AuditAvailabilityDelete, Entity: "Availability", EntityID: av.ID,
		Details: map[string]any{"propertyId": av.PropertyID, "date": av.DateKey()},
	})
	return nil
}

// List 日期区间两端都包含；空字符串表示不限
func (s *CalendarService) List(ctx context.Context, propertyID, from, to string) ([]models.Availability, error) {
	var lo, hi time.Time
	var err error
	if from != "" {
		if lo, err = models.ParseDate(from); err != nil {
			return nil, err
		}
	}
	if to != "" {
		if hi, err = models.ParseDate(to); err != nil {
			return nil, err
		}
	}
	return s.repo.ListAvailabilities(ctx, propertyID, lo, hi)
}

type BookInput struct {
	PropertyID string
	Date       string
	TimeSlot   string
}

func (s *CalendarService) Book(ctx context.Context, actor models.Actor, in BookInput) (*models.Booking, error) {
	slot := strings.TrimSpace(in.TimeSlot)
	if in.PropertyID == "" || slot == "" {
		return nil, apperror.Validation("propertyId and timeSlot are required")
	}
	date, err := models.ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	b, err := s.repo.BookSlot(ctx, db.BookSlotInput{TenantID: actor.ID, PropertyID: in.PropertyID, Date: date, TimeSlot: slot})
	if err != nil {
		return nil, err
	}
	s.notify.Audit(ctx, db.AuditEntry{
		Actor: actor, Action: models.AuditBookingCreated, Entity: "Booking", EntityID: b.ID,
		Details: map[string]any{"propertyId": b.PropertyID, "date": b.Date, "timeSlot": b.TimeSlot},
	})
	s.notify.Notify(ctx, Note{
		UserID:   b.LandlordID,
		Type:     "booking",
		Title:    "New booking request",
		Message:  fmt.Sprintf("%s booked %s at %s", actor.Name, b.Date, b.TimeSlot),
		Entity:   "Booking",
		EntityID: b.ID,
	})
	return b, nil
}

func (s *CalendarService) UpdateStatus(ctx context.Context, actor models.Actor, id, status string) (*models.Booking, error) {
	to, err := models.ParseBookingStatus(status)
	if err != nil {
		return nil, err
	}
	res, err := s.repo.UpdateBookingStatus(ctx, actor, id, to)
	if err != nil {
		return nil, notFoundAs(err, "booking")
	}
	s.afterBookingChange(ctx, actor, res, models.AuditBookingStatusChanged)
	return res.Booking, nil
}

func (s *CalendarService) Cancel(ctx context.Context, actor models.Actor, id string) (*models.Booking, error) {
	res, err := s.repo.CancelBooking(ctx, actor, id)
	if err != nil {
		return nil, notFoundAs(err, "booking")
	}
	s.afterBookingChange(ctx, actor, res, models.AuditBookingCancelled)
	return res.Booking, nil
}

func (s *CalendarService) afterBookingChange(ctx context.Context, actor models.Actor, res *db.BookingTransition, action models.AuditAction) {
	b := res.Booking
	s.notify.Audit(ctx, db.AuditEntry{
		Actor: actor, Action: action, Entity: "Booking", EntityID: b.ID,
		Details: map[string]any{"from": res.From, "to": b.Status, "date": b.Date, "timeSlot": b.TimeSlot},
	})
	// 通知对方
	other := b.TenantID
	if actor.ID == b.TenantID {
		other = b.LandlordID
	}
	room := "the space"
	if sp, err := s.repo.FindSpaceByID(ctx, b.PropertyID); err == nil {
		room = sp.RoomName
	}
	s.notify.Notify(ctx, Note{
		UserID:   other,
		Type:     "booking_status",
		Title:    "Booking " + string(b.Status),
		Message:  fmt.Sprintf("Booking of %s on %s at %s is now %s.", room, b.Date, b.TimeSlot, b.Status),
		Entity:   "Booking",
		EntityID: b.ID,
	})
	if other == b.TenantID {
		email, name := s.notify.contact(ctx, b.TenantID)
		s.notify.Email(ctx, mailer.BookingStatus(s.notify.AppName, email, name, room, b.Date, b.TimeSlot, string(b.Status)))
	}
}

func (s *CalendarService) TenantBookings(ctx context.Context, actor models.Actor, status string) ([]models.Booking, error) {
	st, err := optionalBookingStatus(status)
	if err != nil {
		return nil, err
	}
	return s.repo.ListBookings(ctx, db.BookingQuery{TenantID: actor.ID, Status: st})
}

func (s *CalendarService) LandlordBookings(ctx context.Context, actor models.Actor, propertyID, status string) ([]models.Booking, error) {
	st, err := optionalBookingStatus(status)
	if err != nil {
		return nil, err
	}
	q := db.BookingQuery{PropertyID: propertyID, Status: st}
	if !actor.Role.IsSuperAdmin() {
		q.LandlordID = actor.ID
	}
	return s.repo.ListBookings(ctx, q)
}

func optionalBookingStatus(s string) (models.BookingStatus, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return models.ParseBookingStatus(s)
}
