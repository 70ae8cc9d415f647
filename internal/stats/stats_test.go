package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"solar-monitor-backend/internal/model"
)

func sample(ts time.Time, power float64) model.SolarSample {
	return model.SolarSample{Power: power, Energy: power, Timestamp: ts}
}

func TestAggregateDay(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	t.Run("empty input", func(t *testing.T) {
		agg := AggregateDay(nil)
		assert.Empty(t, agg.Points)
		assert.Equal(t, 0.0, agg.PeriodYield)
		assert.Equal(t, 0.0, agg.AvgPower)
	})

	t.Run("one point per sample with HH:MM labels", func(t *testing.T) {
		agg := AggregateDay([]model.SolarSample{
			sample(day.Add(9*time.Hour), 120),
			sample(day.Add(10*time.Hour), 250.456),
			sample(day.Add(11*time.Hour), 310),
		})
		assert.Len(t, agg.Points, 3)
		assert.Equal(t, "09:00", agg.Points[0].Time)
		assert.Equal(t, "10:00", agg.Points[1].Time)
		assert.Equal(t, 250.46, agg.Points[1].Power)
		assert.Equal(t, 680.46, agg.PeriodYield)
		assert.Equal(t, 226.82, agg.AvgPower)
	})
}

func TestAggregateMonth(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	samples := []model.SolarSample{
		sample(day1.Add(9*time.Hour), 100),
		sample(day1.Add(10*time.Hour), 300),
		sample(day2.Add(9*time.Hour), 50),
	}

	agg := AggregateMonth(samples)

	assert.Len(t, agg.Points, 2)
	assert.Equal(t, "01-Mar", agg.Points[0].Time)
	assert.Equal(t, 200.0, agg.Points[0].Power, "day bucket carries the day average")
	assert.Equal(t, "02-Mar", agg.Points[1].Time)
	assert.Equal(t, 50.0, agg.Points[1].Power)

	// The period yield is the sum over all samples, not the sum of the
	// bucket averages (which would be 250 here).
	assert.Equal(t, 450.0, agg.PeriodYield)
	assert.Equal(t, 150.0, agg.AvgPower)
}

func TestAggregateYear(t *testing.T) {
	samples := []model.SolarSample{
		sample(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC), 100),
		sample(time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC), 200),
		sample(time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC), 400),
	}

	agg := AggregateYear(samples)

	assert.Len(t, agg.Points, 2)
	assert.Equal(t, "Jan", agg.Points[0].Time)
	assert.Equal(t, 150.0, agg.Points[0].Power)
	assert.Equal(t, "Feb", agg.Points[1].Time)
	assert.Equal(t, 400.0, agg.Points[1].Power)
	assert.Equal(t, 700.0, agg.PeriodYield)
}

func TestPairWash(t *testing.T) {
	now := time.Now()
	rec := func(washType string, age time.Duration, power float64) model.WashRecord {
		return model.WashRecord{WashType: washType, Power: power, Timestamp: now.Add(-age)}
	}

	testCases := []struct {
		name    string
		records []model.WashRecord // newest first, as the store returns them
		before  *float64
		after   *float64
	}{
		{
			name:    "no records",
			records: nil,
		},
		{
			name: "complete pair",
			records: []model.WashRecord{
				rec(model.WashAfter, 1*time.Hour, 320),
				rec(model.WashBefore, 2*time.Hour, 240),
			},
			before: ptr(240.0),
			after:  ptr(320.0),
		},
		{
			name: "only the newest pair is reported",
			records: []model.WashRecord{
				rec(model.WashAfter, 1*time.Hour, 320),
				rec(model.WashBefore, 2*time.Hour, 240),
				rec(model.WashAfter, 3*time.Hour, 310),
			},
			before: ptr(240.0),
			after:  ptr(320.0),
		},
		{
			name: "only a before record",
			records: []model.WashRecord{
				rec(model.WashBefore, 1*time.Hour, 240),
			},
		},
		{
			name: "after followed by older after stops the search",
			records: []model.WashRecord{
				rec(model.WashAfter, 1*time.Hour, 320),
				rec(model.WashAfter, 3*time.Hour, 300),
				rec(model.WashBefore, 5*time.Hour, 240),
			},
		},
		{
			name: "leading before is skipped, pair found behind it",
			records: []model.WashRecord{
				rec(model.WashBefore, 30*time.Minute, 250),
				rec(model.WashAfter, 2*time.Hour, 320),
				rec(model.WashBefore, 4*time.Hour, 240),
			},
			before: ptr(240.0),
			after:  ptr(320.0),
		},
		{
			name: "lone after at the tail",
			records: []model.WashRecord{
				rec(model.WashAfter, 1*time.Hour, 320),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			before, after := PairWash(tc.records)
			if tc.before == nil {
				assert.Nil(t, before)
				assert.Nil(t, after)
				return
			}
			if assert.NotNil(t, before) && assert.NotNil(t, after) {
				assert.Equal(t, *tc.before, before.Power)
				assert.Equal(t, *tc.after, after.Power)
			}
		})
	}
}

func TestMoneySaved(t *testing.T) {
	assert.Equal(t, 2.5, MoneySaved(500, nil), "default tariff is 5.0 per kWh")
	assert.Equal(t, 3.6, MoneySaved(500, ptr(7.2)))
	assert.Equal(t, 2.5, MoneySaved(500, ptr(0.0)), "zero tariff falls back to the default")
}

func TestPeriodRanges(t *testing.T) {
	loc := time.UTC

	start, end := DayRange(time.Date(2026, 3, 14, 13, 45, 0, 0, loc))
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, loc), end)

	start, end = MonthRange(2026, time.February, loc)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, loc), end)

	start, end = YearRange(2026, loc)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, loc), end)
}

func ptr(v float64) *float64 { return &v }
