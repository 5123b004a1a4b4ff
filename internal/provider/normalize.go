package provider

import (
	"errors"
	"strings"

	"github.com/Edwardo1983/PROGNOZA/internal/fetch"
	"github.com/Edwardo1983/PROGNOZA/internal/series"
)

// setValue copies an optional payload field into a row; nil stays missing.
func setValue(row *series.Row, col series.Column, v *float64) {
	if v != nil {
		row.Values[col] = *v
	}
}

func asAuthError(err error) (*fetch.AuthError, bool) {
	var authErr *fetch.AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

func kmhToMS(v float64) float64 {
	return v / 3.6
}

// Resample15 aligns a series onto the fixed 15-minute nowcast grid.
func Resample15(s series.Series, method series.Method) series.Series {
	return series.Resample(s, series.NowcastStep, method, 0)
}

// windToMS converts a wind speed using the provider's unit metadata,
// assuming m/s when no recognizable unit is stated.
func windToMS(v float64, unit string) float64 {
	unit = strings.ToLower(unit)
	if strings.Contains(unit, "km/h") || strings.Contains(unit, "kph") {
		return kmhToMS(v)
	}
	return v
}
