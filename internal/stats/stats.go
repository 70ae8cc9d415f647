// Package stats holds the pure aggregation logic behind the solar
// statistics API: period bucketing of telemetry samples and the
// before/after wash-event pairing heuristic.
package stats

import (
	"math"
	"time"

	"solar-monitor-backend/internal/model"
)

// Point is one chart point in a stats response.
type Point struct {
	Time  string  `json:"time"`
	Power float64 `json:"power"`
}

// Aggregate is the result of bucketing one period's samples.
//
// PeriodYield is always the sum over every underlying sample, never a
// sum of bucket averages; for hourly-cadence devices the power values
// already represent per-sample watt-hours, so the sum is the period's
// energy yield.
type Aggregate struct {
	Points      []Point
	PeriodYield float64
	AvgPower    float64
}

const defaultPricePerUnit = 5.0

// AggregateDay formats one calendar day's samples as (HH:MM, power)
// points. Samples must be in ascending time order.
func AggregateDay(samples []model.SolarSample) Aggregate {
	agg := Aggregate{Points: make([]Point, 0, len(samples))}
	for _, s := range samples {
		agg.Points = append(agg.Points, Point{
			Time:  s.Timestamp.Format("15:04"),
			Power: round2(s.Power),
		})
		agg.PeriodYield += s.Power
	}
	if len(samples) > 0 {
		agg.AvgPower = round2(agg.PeriodYield / float64(len(samples)))
	}
	agg.PeriodYield = round2(agg.PeriodYield)
	return agg
}

// AggregateMonth buckets a month's samples by calendar day, one point
// per day carrying the day's average power. Samples must be in
// ascending time order.
func AggregateMonth(samples []model.SolarSample) Aggregate {
	return bucketize(samples, "02-Jan")
}

// AggregateYear buckets a year's samples by calendar month.
func AggregateYear(samples []model.SolarSample) Aggregate {
	return bucketize(samples, "Jan")
}

func bucketize(samples []model.SolarSample, labelLayout string) Aggregate {
	type bucket struct {
		sum   float64
		count int
	}
	var agg Aggregate
	var order []string
	buckets := make(map[string]*bucket)

	var total float64
	for _, s := range samples {
		label := s.Timestamp.Format(labelLayout)
		b, ok := buckets[label]
		if !ok {
			b = &bucket{}
			buckets[label] = b
			order = append(order, label)
		}
		b.sum += s.Power
		b.count++
		total += s.Power
	}

	agg.Points = make([]Point, 0, len(order))
	for _, label := range order {
		b := buckets[label]
		agg.Points = append(agg.Points, Point{
			Time:  label,
			Power: round2(b.sum / float64(b.count)),
		})
	}
	agg.PeriodYield = round2(total)
	if len(samples) > 0 {
		agg.AvgPower = round2(total / float64(len(samples)))
	}
	return agg
}

// PairWash scans wash records, newest first, for the most recent
// complete before/after pair. The record immediately after the first
// AFTER in that ordering must be literally BEFORE; otherwise the AFTER
// is unpaired and no deeper search is attempted. Intentionally strict:
// the pairing is a heuristic over append-only readings, not a
// referential link.
func PairWash(records []model.WashRecord) (before, after *model.WashRecord) {
	for i := range records {
		if records[i].WashType != model.WashAfter {
			continue
		}
		if i+1 < len(records) && records[i+1].WashType == model.WashBefore {
			return &records[i+1], &records[i]
		}
		return nil, nil
	}
	return nil, nil
}

// MoneySaved converts a period yield in Wh to currency using the
// device's tariff; nil falls back to the default price per kWh.
func MoneySaved(periodYield float64, pricePerUnit *float64) float64 {
	price := defaultPricePerUnit
	if pricePerUnit != nil && *pricePerUnit > 0 {
		price = *pricePerUnit
	}
	return round2(periodYield / 1000 * price)
}

// DayRange returns the [start, end) bounds of a calendar date.
func DayRange(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return start, start.AddDate(0, 0, 1)
}

// MonthRange returns the [start, end) bounds of a calendar month.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// YearRange returns the [start, end) bounds of a calendar year.
func YearRange(year int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, 1, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(1, 0, 0)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
