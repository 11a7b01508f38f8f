package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bookload/internal/booking"
	"bookload/internal/capability"
	"bookload/internal/stats"
)

// DriverPoolSize is the number of drivers approvals are assigned from.
const DriverPoolSize = 5

var ErrUnknownRole = errors.New("unknown dashboard role")

// Operations runs single timed operations against a capability set and
// records them in Stats.
type Operations struct {
	Caps   capability.Set
	Gen    *booking.Generator
	Stats  *stats.Stats
	Logger *zap.Logger
}

func RequesterID(user int) string {
	return fmt.Sprintf("emp_%d", user)
}

// FallbackBookingID is the id used when no create capability exists.
func FallbackBookingID(user, op int) string {
	return fmt.Sprintf("B-LOAD-%d-%d", user, op)
}

// guard converts a panicking capability into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("capability panicked: %v", r)
		}
	}()
	return fn()
}

// SubmitBooking times one booking creation. Failures are recorded, never
// returned.
func (o *Operations) SubmitBooking(ctx context.Context, user, op int) OperationResult {
	start := time.Now()
	res := OperationResult{TimeStamp: start, UserID: user, OperationIndex: op}

	b := o.Gen.Generate(RequesterID(user), op)

	var err error
	if o.Caps.CreateBooking != nil {
		err = guard(func() error {
			id, err := o.Caps.CreateBooking(ctx, b)
			res.BookingID = id
			return err
		})
	} else {
		res.BookingID = FallbackBookingID(user, op)
		res.Fallback = true
	}
	res.ResponseTime = time.Since(start)

	if err != nil {
		res.BookingID = ""
		res.Err = err.Error()
		o.Stats.AddSubmission(res.ResponseTime, &stats.ErrorRecord{
			Message:        res.Err,
			UserID:         user,
			OperationIndex: op,
			ResponseTime:   res.ResponseTime,
		})
		o.logger().Debug("booking submission failed",
			zap.Int("user", user), zap.Int("op", op),
			zap.Duration("elapsed", res.ResponseTime), zap.Error(err))
		return res
	}

	res.Success = true
	o.Stats.AddSubmission(res.ResponseTime, nil)
	return res
}

// ApproveBooking times one admin approval with a randomly assigned driver.
func (o *Operations) ApproveBooking(ctx context.Context, bookingID string) ApprovalResult {
	start := time.Now()
	res := ApprovalResult{
		BookingID: bookingID,
		DriverID:  fmt.Sprintf("driver_%d", o.Gen.IntN(DriverPoolSize)+1),
	}

	var err error
	if o.Caps.UpdateBooking != nil {
		patch := booking.Patch{
			Status:           booking.StatusApproved,
			AssignedDriverID: res.DriverID,
			ApprovedAt:       time.Now(),
		}
		err = guard(func() error { return o.Caps.UpdateBooking(ctx, bookingID, patch) })
	}
	res.ResponseTime = time.Since(start)

	if err != nil {
		res.Err = err.Error()
		o.logger().Debug("approval failed", zap.String("booking", bookingID), zap.Error(err))
	} else {
		res.Success = true
	}
	o.Stats.AddOperation(stats.KindApproval, res.ResponseTime, res.Success)
	return res
}

// ProbeDashboard times one dashboard population for role.
func (o *Operations) ProbeDashboard(ctx context.Context, userID string, role Role) DashboardResult {
	start := time.Now()
	res := DashboardResult{UserID: userID, Role: role}

	var err error
	switch role {
	case RoleEmployee:
		if fn := o.Caps.PopulateEmployeeDashboard; fn != nil {
			err = guard(func() error { return fn(ctx, userID) })
		}
	case RoleAdmin:
		if fn := o.Caps.PopulateAdminDashboard; fn != nil {
			err = guard(func() error { return fn(ctx) })
		}
	case RoleDriver:
		if fn := o.Caps.PopulateDriverDashboard; fn != nil {
			err = guard(func() error { return fn(ctx, userID) })
		}
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	res.ResponseTime = time.Since(start)

	if err != nil {
		res.Err = err.Error()
		o.logger().Debug("dashboard probe failed",
			zap.String("user", userID), zap.String("role", string(role)), zap.Error(err))
	} else {
		res.Success = true
	}
	o.Stats.AddOperation(stats.KindDashboard, res.ResponseTime, res.Success)
	return res
}

func (o *Operations) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
