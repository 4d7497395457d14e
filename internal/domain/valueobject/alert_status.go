package valueobject

import "fmt"

// AlertStatus is the lifecycle state of an alert. Only NEW is ever assigned
// here; later states belong to case management.
type AlertStatus struct {
	value string
}

var (
	AlertStatusNew          = AlertStatus{value: "NEW"}
	AlertStatusAcknowledged = AlertStatus{value: "ACKNOWLEDGED"}
	AlertStatusResolved     = AlertStatus{value: "RESOLVED"}
)

// AlertStatusFromString reconstructs an AlertStatus from its string representation.
func AlertStatusFromString(s string) (AlertStatus, error) {
	switch s {
	case "NEW":
		return AlertStatusNew, nil
	case "ACKNOWLEDGED":
		return AlertStatusAcknowledged, nil
	case "RESOLVED":
		return AlertStatusResolved, nil
	default:
		return AlertStatus{}, fmt.Errorf("invalid alert status: %q", s)
	}
}

func (s AlertStatus) String() string {
	return s.value
}

func (s AlertStatus) IsZero() bool {
	return s.value == ""
}

func (s AlertStatus) Equal(other AlertStatus) bool {
	return s.value == other.value
}
