package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

// landTuple mirrors the getLandByIndex outputs; field names follow the abi camel-casing.
type landTuple struct {
	LandUid          string
	Owner            common.Address
	SurveyNumber     string
	Division         string
	District         string
	AreaValue        *big.Int
	AreaUnit         string
	GpsCoordinates   string
	DocumentHash     string
	RegistrationDate *big.Int
	IsVerified       bool
}

func decodeLandRecord(data []byte) (domain.LandRecord, error) {
	var tuple landTuple
	if err := registryABI.UnpackIntoInterface(&tuple, methodLandByIndex, data); err != nil {
		return domain.LandRecord{}, fmt.Errorf("unpack land: %w", err)
	}

	gps, err := parseGPS(tuple.GpsCoordinates)
	if err != nil {
		return domain.LandRecord{}, err
	}
	if tuple.AreaValue == nil || tuple.RegistrationDate == nil {
		return domain.LandRecord{}, fmt.Errorf("land %q: missing numeric fields", tuple.LandUid)
	}
	if !tuple.RegistrationDate.IsInt64() {
		return domain.LandRecord{}, fmt.Errorf("land %q: registration date out of range", tuple.LandUid)
	}
	area, _ := new(big.Float).SetInt(tuple.AreaValue).Float64()

	return domain.LandRecord{
		UID:              tuple.LandUid,
		Owner:            tuple.Owner,
		SurveyNumber:     tuple.SurveyNumber,
		Division:         tuple.Division,
		District:         tuple.District,
		Area:             domain.Area{Value: area, Unit: domain.AreaUnit(tuple.AreaUnit)},
		GPS:              gps,
		DocumentHash:     tuple.DocumentHash,
		RegistrationDate: time.Unix(tuple.RegistrationDate.Int64(), 0).UTC(),
		Verified:         tuple.IsVerified,
	}, nil
}

// parseGPS reads the "lat,lng" form stored on the ledger.
func parseGPS(raw string) (domain.GPS, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.GPS{}, errors.New("gps: empty coordinates")
	}

	lat, lng, ok := strings.Cut(raw, ",")
	if !ok {
		return domain.GPS{}, fmt.Errorf("gps %q: expected lat,lng", raw)
	}

	latValue, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return domain.GPS{}, fmt.Errorf("gps %q: latitude: %w", raw, err)
	}
	lngValue, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return domain.GPS{}, fmt.Errorf("gps %q: longitude: %w", raw, err)
	}

	gps := domain.GPS{Lat: latValue, Lng: lngValue}
	if !gps.Valid() {
		return domain.GPS{}, fmt.Errorf("gps %q: coordinates out of range", raw)
	}

	return gps, nil
}

func formatGPS(gps domain.GPS) string {
	return strconv.FormatFloat(gps.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(gps.Lng, 'f', -1, 64)
}
