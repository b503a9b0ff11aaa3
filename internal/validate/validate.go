// Package validate holds the request validators shared by the HTTP and gRPC
// transports. Each field type has one predicate; a Validator collects the
// failures of a whole request so callers report them together.
package validate

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	bookingdomain "github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/domain"
	poidomain "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
)

const (
	MaxRadiusKM  = 20.0
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrInvalid matches every validation failure via errors.Is.
var ErrInvalid = errors.New("invalid request")

// Errors maps a field name to the reason it was rejected.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e[field])
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func (e Errors) Is(target error) bool { return target == ErrInvalid }

func Latitude(v float64) error {
	if !(v >= -90 && v <= 90) {
		return errors.New("must be between -90 and 90")
	}
	return nil
}

func Longitude(v float64) error {
	if !(v >= -180 && v <= 180) {
		return errors.New("must be between -180 and 180")
	}
	return nil
}

func Radius(v float64) error {
	if !(v >= 0 && v <= MaxRadiusKM) {
		return fmt.Errorf("must be between 0 and %g", MaxRadiusKM)
	}
	return nil
}

func Limit(v int) error {
	if v < 1 || v > MaxLimit {
		return fmt.Errorf("must be between 1 and %d", MaxLimit)
	}
	return nil
}

func Offset(v int) error {
	if v < 0 {
		return errors.New("must be zero or greater")
	}
	return nil
}

// Box checks the latitude ordering; any longitude pair is accepted since
// West > East expresses an antimeridian crossing.
func Box(b poidomain.BoundingBox) error {
	if !(b.North > b.South) {
		return errors.New("north must be greater than south")
	}
	return nil
}

// Range requires the end date to be strictly after the start date.
func Range(start, end bookingdomain.Date) error {
	if !end.After(start) {
		return errors.New("end_date must be after start_date")
	}
	return nil
}

// Validator accumulates field failures for a single request.
type Validator struct {
	errs Errors
}

func New() *Validator {
	return &Validator{errs: Errors{}}
}

// Check records err against field unless err is nil or the field already failed.
func (v *Validator) Check(field string, err error) {
	if err == nil {
		return
	}
	if _, exists := v.errs[field]; exists {
		return
	}
	v.errs[field] = err.Error()
}

// Err returns the collected failures, or nil when the request is valid.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	out := make(Errors, len(v.errs))
	for k, msg := range v.errs {
		out[k] = msg
	}
	return out
}

// Required returns the trimmed raw value, recording a failure when it is blank.
func (v *Validator) Required(field, raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		v.Check(field, errors.New("is required"))
	}
	return value
}

func (v *Validator) float(field, raw string) (float64, bool) {
	value := v.Required(field, raw)
	if value == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		v.Check(field, errors.New("must be a finite number"))
		return 0, false
	}
	return parsed, true
}

// Coordinate parses and checks a latitude/longitude pair.
func (v *Validator) Coordinate(latField, lngField, rawLat, rawLng string) poidomain.GeoPoint {
	var p poidomain.GeoPoint
	if lat, ok := v.float(latField, rawLat); ok {
		v.Check(latField, Latitude(lat))
		p.Lat = lat
	}
	if lng, ok := v.float(lngField, rawLng); ok {
		v.Check(lngField, Longitude(lng))
		p.Lng = lng
	}
	return p
}

// RadiusKM parses and checks a search radius in kilometres.
func (v *Validator) RadiusKM(field, raw string) float64 {
	radius, ok := v.float(field, raw)
	if ok {
		v.Check(field, Radius(radius))
	}
	return radius
}

// BoundingBox parses the four edges of a search rectangle.
func (v *Validator) BoundingBox(rawNorth, rawSouth, rawEast, rawWest string) poidomain.BoundingBox {
	var box poidomain.BoundingBox
	north, okN := v.float("north", rawNorth)
	south, okS := v.float("south", rawSouth)
	east, okE := v.float("east", rawEast)
	west, okW := v.float("west", rawWest)
	if okN {
		v.Check("north", Latitude(north))
	}
	if okS {
		v.Check("south", Latitude(south))
	}
	if okE {
		v.Check("east", Longitude(east))
	}
	if okW {
		v.Check("west", Longitude(west))
	}
	box = poidomain.BoundingBox{North: north, South: south, East: east, West: west}
	if okN && okS {
		v.Check("north", Box(box))
	}
	return box
}

// Date parses a YYYY-MM-DD calendar date.
func (v *Validator) Date(field, raw string) bookingdomain.Date {
	value := v.Required(field, raw)
	if value == "" {
		return bookingdomain.Date{}
	}
	d, err := bookingdomain.ParseDate(value)
	if err != nil {
		v.Check(field, errors.New("must be a date formatted as YYYY-MM-DD"))
	}
	return d
}

// DateRange parses both ends of a stay and checks their order.
func (v *Validator) DateRange(startField, endField, rawStart, rawEnd string) (bookingdomain.Date, bookingdomain.Date) {
	start := v.Date(startField, rawStart)
	end := v.Date(endField, rawEnd)
	if !start.IsZero() && !end.IsZero() {
		v.Check(endField, Range(start, end))
	}
	return start, end
}

// Pagination parses limit and offset, applying defaults for blank values.
func (v *Validator) Pagination(rawLimit, rawOffset string) poidomain.Page {
	page := poidomain.Page{Limit: DefaultLimit}
	if raw := strings.TrimSpace(rawLimit); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			v.Check("limit", errors.New("must be an integer"))
		} else {
			v.Check("limit", Limit(limit))
			page.Limit = limit
		}
	}
	if raw := strings.TrimSpace(rawOffset); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			v.Check("offset", errors.New("must be an integer"))
		} else {
			v.Check("offset", Offset(offset))
			page.Offset = offset
		}
	}
	return page
}

// Categories parses repeated or comma separated category values. An empty
// input yields nil, meaning no category filter.
func (v *Validator) Categories(field string, raw []string) []poidomain.Category {
	var out []poidomain.Category
	seen := make(map[poidomain.Category]struct{})
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			c, err := poidomain.ParseCategory(part)
			if err != nil {
				v.Check(field, fmt.Errorf("unknown category %q", strings.TrimSpace(part)))
				continue
			}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
