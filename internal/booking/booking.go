package booking

import "time"

// Vehicle categories a booking can request.
const (
	VehicleBus = "bus"
	VehicleVan = "van"
	VehicleCar = "car"
)

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"

	DriverOptionRequest = "Request Driver"
)

var VehicleTypes = []string{VehicleBus, VehicleVan, VehicleCar}

// DefaultPurposes is the trip purpose pool used when no purposes file is configured.
var DefaultPurposes = []string{
	"Field Trip to Museum",
	"Sports Event",
	"Workshop",
	"School Meeting",
	"Educational Tour",
}

// Booking is one synthetic reservation request. It is created fresh per
// submission and never persisted by the harness.
type Booking struct {
	VehicleType   string    `json:"vehicleType" validate:"required,oneof=bus van car"`
	StartTime     time.Time `json:"startTime" validate:"required"`
	DurationHours int       `json:"durationHours" validate:"min=1,max=12"`
	DriverOption  string    `json:"driverOption"`
	Passengers    int       `json:"passengers" validate:"min=1,max=50"`
	TripPurpose   string    `json:"tripPurpose" validate:"required"`
	RequesterID   string    `json:"requesterId" validate:"required"`
	Status        string    `json:"status" validate:"required"`
	SubmittedTime time.Time `json:"submittedTime"`
	Sequence      int       `json:"sequence"`
}

// Patch is the status change applied when an admin approves a booking.
type Patch struct {
	Status           string    `json:"status" validate:"required"`
	AssignedDriverID string    `json:"assignedDriverId,omitempty"`
	ApprovedAt       time.Time `json:"approvedAt,omitempty"`
}
