package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SurveySuffixSeparator splits a submitted survey number from its submission suffix.
const SurveySuffixSeparator = "#"

type AreaUnit string

const (
	AreaUnitKatha AreaUnit = "katha"
	AreaUnitBigha AreaUnit = "bigha"
	AreaUnitAcre  AreaUnit = "acre"
)

func (u AreaUnit) Valid() bool {
	switch u {
	case AreaUnitKatha, AreaUnitBigha, AreaUnitAcre:
		return true
	default:
		return false
	}
}

type Area struct {
	Value float64
	Unit  AreaUnit
}

type GPS struct {
	Lat float64
	Lng float64
}

// Valid reports whether both coordinates are finite and inside the WGS84 ranges.
func (g GPS) Valid() bool {
	for _, v := range []float64{g.Lat, g.Lng} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return g.Lat >= -90 && g.Lat <= 90 && g.Lng >= -180 && g.Lng <= 180
}

type LandRecord struct {
	UID              string
	Owner            common.Address
	SurveyNumber     string
	Division         string
	District         string
	Area             Area
	GPS              GPS
	DocumentHash     string
	RegistrationDate time.Time
	Verified         bool
}

// BaseSurveyNumber returns the survey number as entered by the submitter.
func (r LandRecord) BaseSurveyNumber() string {
	return BaseSurveyNumber(r.SurveyNumber)
}

// MatchesSearch reports a case-insensitive exact match on uid, owner, survey number or base survey number.
func (r LandRecord) MatchesSearch(term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return false
	}

	for _, candidate := range []string{r.UID, r.Owner.Hex(), r.SurveyNumber, r.BaseSurveyNumber()} {
		if strings.EqualFold(candidate, term) {
			return true
		}
	}

	return false
}

// MatchesFilter reports a case-insensitive substring match on uid, owner, division or district.
// An empty term matches every record.
func (r LandRecord) MatchesFilter(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}

	for _, candidate := range []string{r.UID, r.Owner.Hex(), r.Division, r.District} {
		if strings.Contains(strings.ToLower(candidate), term) {
			return true
		}
	}

	return false
}

// PageRecords returns the 1-based page of records and the total page count.
// Pages past the end are empty.
func PageRecords(records []LandRecord, page, size int) ([]LandRecord, int) {
	if size <= 0 || len(records) == 0 {
		return records, 1
	}

	total := (len(records) + size - 1) / size
	if page < 1 || page > total {
		return []LandRecord{}, total
	}

	start := (page - 1) * size
	end := min(start+size, len(records))

	return records[start:end], total
}

func BaseSurveyNumber(surveyNumber string) string {
	if idx := strings.LastIndex(surveyNumber, SurveySuffixSeparator); idx > 0 {
		return surveyNumber[:idx]
	}

	return surveyNumber
}

type RegistrationInput struct {
	Division     string
	District     string
	SurveyNumber string
	Area         Area
	GPS          GPS
	DocumentHash string
}

// Validate runs every local check that must pass before the ledger is contacted.
func (in RegistrationInput) Validate() error {
	if math.IsNaN(in.Area.Value) || in.Area.Value <= 0 {
		return fmt.Errorf("%w: area must be greater than zero", ErrInvalidArea)
	}
	if in.Area.Value != math.Trunc(in.Area.Value) || in.Area.Value >= math.MaxInt64 {
		return fmt.Errorf("%w: area must be a whole number", ErrInvalidArea)
	}
	if !in.Area.Unit.Valid() {
		return fmt.Errorf("%w: unsupported area unit %q", ErrInvalidInput, in.Area.Unit)
	}
	if strings.TrimSpace(in.Division) == "" {
		return fmt.Errorf("%w: division is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.District) == "" {
		return fmt.Errorf("%w: district is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.SurveyNumber) == "" {
		return fmt.Errorf("%w: survey number is required", ErrInvalidInput)
	}
	if strings.Contains(in.SurveyNumber, SurveySuffixSeparator) {
		return fmt.Errorf("%w: survey number must not contain %q", ErrInvalidInput, SurveySuffixSeparator)
	}
	if !in.GPS.Valid() {
		return fmt.Errorf("%w: gps coordinates out of range", ErrInvalidInput)
	}
	if strings.TrimSpace(in.DocumentHash) == "" {
		return fmt.Errorf("%w: document hash is required", ErrInvalidInput)
	}

	return nil
}
