package api

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"solar-monitor-backend/internal/model"
	"solar-monitor-backend/internal/stats"
	"solar-monitor-backend/internal/store"
)

var errInvalidPeriod = errors.New("period must be day, month or year")

func errInvalidAnchor(name, layout string) error {
	return fmt.Errorf("invalid %s, expected %s", name, layout)
}

type washPoint struct {
	Voltage   float64   `json:"voltage"`
	Current   float64   `json:"current"`
	Power     float64   `json:"power"`
	Timestamp time.Time `json:"timestamp"`
}

func toWashPoint(rec *model.WashRecord) *washPoint {
	if rec == nil {
		return nil
	}
	return &washPoint{
		Voltage:   rec.Voltage,
		Current:   rec.Current,
		Power:     rec.Power,
		Timestamp: rec.Timestamp,
	}
}

type locationInfo struct {
	City          string  `json:"city"`
	State         string  `json:"state"`
	Country       string  `json:"country"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	PricePerUnit  float64 `json:"price_per_unit"`
	CapacityWatts float64 `json:"capacity_watts"`
}

// GetSolarStats handles GET /api/solar/stats.
//
// period selects the bucketing: day (per-sample points for one calendar
// date), month (per-day averages) or year (per-month averages). The
// anchor comes from date=YYYY-MM-DD, month=YYYY-MM or year=YYYY and
// defaults to the current period.
func (h *Handler) GetSolarStats(c *gin.Context) {
	deviceCode := c.Query("device_id")
	if deviceCode == "" {
		badRequest(c, "device_id required")
		return
	}
	period := c.DefaultQuery("period", "day")

	from, to, err := statsRange(c, period)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	samples, err := h.store.SamplesForRange(c.Request.Context(), deviceCode, from, to)
	if err != nil {
		fail(c, err, "solar stats sample fetch failed")
		return
	}

	var agg stats.Aggregate
	switch period {
	case "day":
		agg = stats.AggregateDay(samples)
	case "month":
		agg = stats.AggregateMonth(samples)
	case "year":
		agg = stats.AggregateYear(samples)
	}

	records, err := h.store.WashRecords(c.Request.Context(), deviceCode)
	if err != nil {
		fail(c, err, "solar stats wash fetch failed")
		return
	}
	before, after := stats.PairWash(records)

	loc, err := h.store.Location(c.Request.Context(), deviceCode)
	if err != nil {
		fail(c, err, "solar stats location fetch failed")
		return
	}

	var price *float64
	var locInfo *locationInfo
	if loc != nil {
		price = &loc.PricePerUnit
		locInfo = &locationInfo{
			City:          loc.City,
			State:         loc.State,
			Country:       loc.Country,
			Lat:           loc.Lat,
			Lon:           loc.Lon,
			PricePerUnit:  loc.PricePerUnit,
			CapacityWatts: loc.CapacityWatts,
		}
	}

	ok(c, "Stats fetched", gin.H{
		"data":        agg.Points,
		"periodYield": agg.PeriodYield,
		"avgPower":    agg.AvgPower,
		"moneySaved":  stats.MoneySaved(agg.PeriodYield, price),
		"wash": gin.H{
			"before": toWashPoint(before),
			"after":  toWashPoint(after),
		},
		"location": locInfo,
		"weather":  gin.H{"temperature": h.temperatureFor(c, loc)},
	})
}

// temperatureFor looks up current weather for a device location.
// Best-effort: any failure degrades to a null temperature.
func (h *Handler) temperatureFor(c *gin.Context, loc *model.DeviceLocation) *float64 {
	if loc == nil || (loc.Lat == 0 && loc.Lon == 0) {
		return nil
	}
	temp, err := h.weather.CurrentTemperature(c.Request.Context(), loc.Lat, loc.Lon)
	if err != nil {
		log.Printf("Weather lookup failed for %s: %v", loc.DeviceCode, err)
		return nil
	}
	return &temp
}

func statsRange(c *gin.Context, period string) (time.Time, time.Time, error) {
	now := time.Now()
	switch period {
	case "day":
		anchor := now
		if raw := c.Query("date"); raw != "" {
			parsed, err := time.ParseInLocation("2006-01-02", raw, now.Location())
			if err != nil {
				return time.Time{}, time.Time{}, errInvalidAnchor("date", "YYYY-MM-DD")
			}
			anchor = parsed
		}
		from, to := stats.DayRange(anchor)
		return from, to, nil
	case "month":
		year, month := now.Year(), now.Month()
		if raw := c.Query("month"); raw != "" {
			parsed, err := time.ParseInLocation("2006-01", raw, now.Location())
			if err != nil {
				return time.Time{}, time.Time{}, errInvalidAnchor("month", "YYYY-MM")
			}
			year, month = parsed.Year(), parsed.Month()
		}
		from, to := stats.MonthRange(year, month, now.Location())
		return from, to, nil
	case "year":
		year := now.Year()
		if raw := c.Query("year"); raw != "" {
			parsed, err := time.ParseInLocation("2006", raw, now.Location())
			if err != nil {
				return time.Time{}, time.Time{}, errInvalidAnchor("year", "YYYY")
			}
			year = parsed.Year()
		}
		from, to := stats.YearRange(year, now.Location())
		return from, to, nil
	default:
		return time.Time{}, time.Time{}, errInvalidPeriod
	}
}

// GetLatestSolarData handles GET /api/solar/latest.
func (h *Handler) GetLatestSolarData(c *gin.Context) {
	deviceCode := c.Query("device_id")
	if deviceCode == "" {
		badRequest(c, "device_id required")
		return
	}

	sample, err := h.store.LatestSample(c.Request.Context(), deviceCode)
	if err != nil {
		fail(c, err, "solar latest fetch failed")
		return
	}
	if sample == nil {
		respond(c, 404, false, "No data for device", nil)
		return
	}

	ok(c, "Latest data fetched", gin.H{
		"data": gin.H{
			"voltage":   sample.Voltage,
			"current":   sample.Current,
			"power":     sample.Power,
			"energy":    sample.Energy,
			"timestamp": sample.Timestamp,
		},
	})
}

type locationPingRequest struct {
	DeviceID      string  `json:"device_id" binding:"required"`
	City          string  `json:"city" binding:"required"`
	State         string  `json:"state" binding:"required"`
	Country       string  `json:"country"`
	Zip           string  `json:"zip"`
	PricePerUnit  float64 `json:"price_per_unit"`
	CapacityWatts float64 `json:"capacity_watts"`
}

// SaveDeviceLocation handles POST /api/solar/location-ping. The textual
// location is forward-geocoded to a coordinate; a geocoding failure
// still stores the textual fields.
func (h *Handler) SaveDeviceLocation(c *gin.Context) {
	var req locationPingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "device_id, state and city are required")
		return
	}

	loc := model.DeviceLocation{
		DeviceCode:    store.NormalizeDeviceCode(req.DeviceID),
		City:          req.City,
		State:         req.State,
		Country:       req.Country,
		Zip:           req.Zip,
		PricePerUnit:  req.PricePerUnit,
		CapacityWatts: req.CapacityWatts,
	}

	lat, lon, err := h.geocode.Forward(c.Request.Context(), req.City, req.State)
	if err != nil {
		log.Printf("Geocoding failed for %s (%s, %s): %v", req.DeviceID, req.City, req.State, err)
	} else {
		loc.Lat, loc.Lon = lat, lon
	}

	if err := h.store.UpsertLocation(c.Request.Context(), &loc); err != nil {
		fail(c, err, "location-ping upsert failed")
		return
	}
	ok(c, "Location saved", gin.H{"lat": loc.Lat, "lon": loc.Lon})
}
