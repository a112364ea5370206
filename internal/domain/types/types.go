package types

// RideStatus is the lifecycle state of a ride.
type RideStatus string

func (s RideStatus) String() string {
	return string(s)
}

const (
	StatusPending   RideStatus = "pending"
	StatusAccepted  RideStatus = "accepted"
	StatusOngoing   RideStatus = "ongoing"
	StatusCompleted RideStatus = "completed"
	StatusCancelled RideStatus = "cancelled"
)

// IsTerminal reports whether no transition can leave s.
func (s RideStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsActive reports whether a ride in status s still needs both parties' attention.
func (s RideStatus) IsActive() bool {
	return s == StatusPending || s == StatusAccepted || s == StatusOngoing
}

func (s RideStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusOngoing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ActiveStatuses lists the non-terminal statuses.
var ActiveStatuses = []RideStatus{StatusPending, StatusAccepted, StatusOngoing}

// Enum для классов
type VehicleClass string

func (c VehicleClass) String() string {
	return string(c)
}

const (
	ClassCar  VehicleClass = "car"
	ClassMoto VehicleClass = "moto"
	ClassAuto VehicleClass = "auto"
)

func (c VehicleClass) Valid() bool {
	switch c {
	case ClassCar, ClassMoto, ClassAuto:
		return true
	}
	return false
}

// VehicleClasses is the safelist used by request validation.
var VehicleClasses = []string{ClassCar.String(), ClassMoto.String(), ClassAuto.String()}

// Enum для статуса водителя
type DriverStatus string

const (
	DriverOffline   DriverStatus = "offline"
	DriverAvailable DriverStatus = "available"
)

// Enum для роли пользователя
type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	RoleRider  UserRole = "rider"
	RoleDriver UserRole = "driver"
)

func (r UserRole) Valid() bool {
	return r == RoleRider || r == RoleDriver
}

// Counterpart returns the other side of a ride.
func (r UserRole) Counterpart() UserRole {
	if r == RoleRider {
		return RoleDriver
	}
	return RoleRider
}

// StorageDriver selects the ride store backend.
type StorageDriver string

const (
	StoragePostgres StorageDriver = "postgres"
	StorageMemory   StorageDriver = "memory"
)

// BrokerKind selects where ride status events are published.
type BrokerKind string

const (
	BrokerRabbitMQ BrokerKind = "rabbitmq"
	BrokerKafka    BrokerKind = "kafka"
	BrokerNone     BrokerKind = "none"
)

// GeocoderProvider selects the address resolver.
type GeocoderProvider string

const (
	GeocoderNone       GeocoderProvider = "none"
	GeocoderLocationIQ GeocoderProvider = "locationiq"
	GeocoderGoogle     GeocoderProvider = "google"
)
