package validate_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	poidomain "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/validate"
)

func fields(t *testing.T, err error) validate.Errors {
	t.Helper()
	require.ErrorIs(t, err, validate.ErrInvalid)
	var errs validate.Errors
	require.True(t, errors.As(err, &errs))
	return errs
}

func TestCoordinateBounds(t *testing.T) {
	v := validate.New()
	p := v.Coordinate("lat", "lng", "41.38", "2.17")
	require.NoError(t, v.Err())
	require.Equal(t, poidomain.GeoPoint{Lat: 41.38, Lng: 2.17}, p)

	v = validate.New()
	v.Coordinate("lat", "lng", "90.1", "-180.5")
	errs := fields(t, v.Err())
	require.Contains(t, errs, "lat")
	require.Contains(t, errs, "lng")

	v = validate.New()
	v.Coordinate("lat", "lng", "", "abc")
	errs = fields(t, v.Err())
	require.Equal(t, "is required", errs["lat"])
	require.Equal(t, "must be a finite number", errs["lng"])
}

func TestNonFiniteNumbersRejected(t *testing.T) {
	for _, raw := range []string{"NaN", "nan", "Inf", "-Inf", "+Infinity"} {
		v := validate.New()
		v.Coordinate("lat", "lng", raw, raw)
		v.RadiusKM("radius_km", raw)
		v.BoundingBox(raw, raw, raw, raw)
		errs := fields(t, v.Err())
		for _, field := range []string{"lat", "lng", "radius_km", "north", "south", "east", "west"} {
			require.Equal(t, "must be a finite number", errs[field], raw+" "+field)
		}
	}

	require.Error(t, validate.Latitude(math.NaN()))
	require.Error(t, validate.Longitude(math.Inf(1)))
	require.Error(t, validate.Radius(math.NaN()))
	require.Error(t, validate.Box(poidomain.BoundingBox{North: math.NaN(), South: math.NaN()}))
}

func TestRadiusLimits(t *testing.T) {
	for raw, ok := range map[string]bool{"0": true, "20": true, "0.5": true, "20.01": false, "-1": false, "NaN": false} {
		v := validate.New()
		v.RadiusKM("radius_km", raw)
		if ok {
			require.NoError(t, v.Err(), raw)
		} else {
			require.Error(t, v.Err(), raw)
		}
	}
}

func TestBoundingBoxAcceptsAntimeridian(t *testing.T) {
	v := validate.New()
	box := v.BoundingBox("10", "-10", "-170", "170")
	require.NoError(t, v.Err())
	require.True(t, box.CrossesAntimeridian())

	v = validate.New()
	v.BoundingBox("-10", "10", "5", "0")
	errs := fields(t, v.Err())
	require.Equal(t, "north must be greater than south", errs["north"])
}

func TestDateRange(t *testing.T) {
	v := validate.New()
	start, end := v.DateRange("start_date", "end_date", "2025-03-01", "2025-03-05")
	require.NoError(t, v.Err())
	require.Equal(t, "2025-03-01", start.String())
	require.Equal(t, "2025-03-05", end.String())

	v = validate.New()
	v.DateRange("start_date", "end_date", "2025-03-05", "2025-03-05")
	require.Contains(t, fields(t, v.Err()), "end_date")

	v = validate.New()
	v.DateRange("start_date", "end_date", "03/01/2025", "")
	errs := fields(t, v.Err())
	require.Equal(t, "must be a date formatted as YYYY-MM-DD", errs["start_date"])
	require.Equal(t, "is required", errs["end_date"])
}

func TestPaginationDefaultsAndBounds(t *testing.T) {
	v := validate.New()
	page := v.Pagination("", "")
	require.NoError(t, v.Err())
	require.Equal(t, poidomain.Page{Limit: validate.DefaultLimit}, page)

	v = validate.New()
	page = v.Pagination("100", "40")
	require.NoError(t, v.Err())
	require.Equal(t, poidomain.Page{Limit: 100, Offset: 40}, page)

	v = validate.New()
	v.Pagination("101", "-1")
	errs := fields(t, v.Err())
	require.Contains(t, errs, "limit")
	require.Contains(t, errs, "offset")

	v = validate.New()
	v.Pagination("0", "x")
	errs = fields(t, v.Err())
	require.Contains(t, errs, "limit")
	require.Equal(t, "must be an integer", errs["offset"])
}

func TestCategories(t *testing.T) {
	v := validate.New()
	got := v.Categories("category", []string{"Museum,park", " museum ", ""})
	require.NoError(t, v.Err())
	require.Equal(t, []poidomain.Category{poidomain.CategoryMuseum, poidomain.CategoryPark}, got)

	v = validate.New()
	require.Nil(t, v.Categories("category", nil))
	require.NoError(t, v.Err())

	v = validate.New()
	v.Categories("category", []string{"museum,casino"})
	require.Equal(t, `unknown category "casino"`, fields(t, v.Err())["category"])
}

func TestErrorsMessageIsSorted(t *testing.T) {
	v := validate.New()
	v.Check("b", errors.New("second"))
	v.Check("a", errors.New("first"))
	v.Check("a", errors.New("ignored"))
	require.EqualError(t, v.Err(), "invalid request: a: first; b: second")
}
