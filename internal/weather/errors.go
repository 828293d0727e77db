package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestFailed is matched by every *RequestFailed.
	ErrRequestFailed = errors.New("weather request failed")
	// ErrInvalidForecastDays is returned when a forecast-days value is out of range.
	ErrInvalidForecastDays = errors.New("forecast days must be between 1 and 6")
	// ErrEmptyCity is returned when an operation needs a city and got none.
	ErrEmptyCity = errors.New("city is required")
)

// RequestFailed reports a non-success status from the weather provider.
type RequestFailed struct {
	Op         string
	Status     int
	StatusText string
}

func (e *RequestFailed) Error() string {
	return fmt.Sprintf("%s request failed: %d %s", e.Op, e.Status, e.StatusText)
}

func (e *RequestFailed) Is(target error) bool {
	return target == ErrRequestFailed
}
