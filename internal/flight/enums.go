package flight

import (
	"errors"
	"fmt"
)

// ErrUnknownEnumValue is returned when parsing an unrecognized enum string.
var ErrUnknownEnumValue = errors.New("unknown enum value")

// CabinClass is the booked travel cabin.
type CabinClass string

const (
	CabinEconomy        CabinClass = "economy"
	CabinPremiumEconomy CabinClass = "premium_economy"
	CabinBusiness       CabinClass = "business"
	CabinFirst          CabinClass = "first"
)

// ParseCabinClass converts a stored string into a CabinClass.
func ParseCabinClass(s string) (CabinClass, error) {
	switch CabinClass(s) {
	case CabinEconomy, CabinPremiumEconomy, CabinBusiness, CabinFirst:
		return CabinClass(s), nil
	}
	return "", fmt.Errorf("%w: cabin class %q", ErrUnknownEnumValue, s)
}

// Valid reports whether the value is one of the known cabin classes.
func (c CabinClass) Valid() bool {
	_, err := ParseCabinClass(string(c))
	return err == nil
}

// TripType distinguishes one-way from round-trip searches.
type TripType string

const (
	TripOneWay    TripType = "one_way"
	TripRoundTrip TripType = "round_trip"
)

// ParseTripType converts a stored string into a TripType.
func ParseTripType(s string) (TripType, error) {
	switch TripType(s) {
	case TripOneWay, TripRoundTrip:
		return TripType(s), nil
	}
	return "", fmt.Errorf("%w: trip type %q", ErrUnknownEnumValue, s)
}

// StopPreference is a user's tolerance for connections.
type StopPreference string

const (
	StopsAny        StopPreference = "any"
	StopsDirectOnly StopPreference = "direct_only"
	StopsMaxOne     StopPreference = "max_one_stop"
)

// ParseStopPreference converts a stored string into a StopPreference.
func ParseStopPreference(s string) (StopPreference, error) {
	switch StopPreference(s) {
	case StopsAny, StopsDirectOnly, StopsMaxOne:
		return StopPreference(s), nil
	}
	return "", fmt.Errorf("%w: stop preference %q", ErrUnknownEnumValue, s)
}

// Valid reports whether the value is one of the known stop preferences.
func (p StopPreference) Valid() bool {
	_, err := ParseStopPreference(string(p))
	return err == nil
}
