package services

import (
	"github.com/examport/attempt-service/internal/models"
)

// Caller identifies the authenticated principal making a service call,
// as extracted from the access token by the auth middleware.
type Caller struct {
	ID   string
	Role models.UserRole
}

func (c Caller) IsAdmin() bool   { return c.Role == models.RoleAdmin }
func (c Caller) IsTeacher() bool { return c.Role == models.RoleTeacher }

// Policy centralizes the (caller, resource) access decisions so handlers
// and services share one set of rules.
type Policy struct{}

func NewPolicy() *Policy {
	return &Policy{}
}

// CanUseBooking allows only the student the booking was made for (or an
// admin) to open an attempt against it.
func (p *Policy) CanUseBooking(caller Caller, booking *models.Booking) error {
	if caller.IsAdmin() || booking.StudentID == caller.ID {
		return nil
	}
	return NewPermissionError(caller.ID, booking.ID, "booking", "use", "booking belongs to another student")
}

// CanAccessAttempt allows only the owning student (or an admin) to act on
// the attempt. Teacher read access is decided separately because it
// requires the booking.
func (p *Policy) CanAccessAttempt(caller Caller, attempt *models.Attempt) error {
	if caller.IsAdmin() || attempt.StudentID == caller.ID {
		return nil
	}
	return NewPermissionError(caller.ID, attempt.ID, "attempt", "access", "attempt belongs to another student")
}

// CanGradeBooking allows only the teacher assigned to the booking (or an
// admin) to record manual grades for its attempt.
func (p *Policy) CanGradeBooking(caller Caller, booking *models.Booking) error {
	if caller.IsAdmin() {
		return nil
	}
	if caller.IsTeacher() && booking.TeacherID == caller.ID {
		return nil
	}
	return NewPermissionError(caller.ID, booking.ID, "booking", "grade", "caller is not the assigned teacher")
}

// CanManageBandMaps gates band map imports and re-scoring.
func (p *Policy) CanManageBandMaps(caller Caller) error {
	if caller.IsAdmin() {
		return nil
	}
	return NewPermissionError(caller.ID, 0, "band_map", "manage", "admin role required")
}
