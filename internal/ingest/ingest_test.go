package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"solar-monitor-backend/config"
	"solar-monitor-backend/internal/db"
	"solar-monitor-backend/internal/model"
	"solar-monitor-backend/internal/store"
)

type nopOtpSender struct{}

func (nopOtpSender) Send(context.Context, string, string) error { return nil }

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))

	st := store.NewGormStore(gormDB, nopOtpSender{}, 15*time.Minute)
	return NewService(&config.Config{}, st), gormDB
}

func TestProcessMessageHourly(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()

	body := []byte(`{"device_id":"sn-001","voltage":230.5,"current":4.2,"power":968.1,"lat":12.97,"lon":77.59}`)
	require.NoError(t, svc.processMessage(ctx, "solar/sn-001/data/hourly", body))

	var sample model.SolarSample
	require.NoError(t, gdb.Where("device_code = ?", "SN-001").First(&sample).Error)
	assert.Equal(t, 230.5, sample.Voltage)
	assert.Equal(t, 968.1, sample.Power)
	assert.Equal(t, 968.1, sample.Energy, "hourly power doubles as the Wh yield")
	require.NotNil(t, sample.Lat)
	assert.Equal(t, 12.97, *sample.Lat)
	assert.WithinDuration(t, time.Now(), sample.Timestamp, 5*time.Second)
}

func TestProcessMessageWash(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.processMessage(ctx, "solar/sn-002/data/before_wash",
		[]byte(`{"device_id":"sn-002","voltage":229,"current":1.1,"power":252}`)))
	require.NoError(t, svc.processMessage(ctx, "solar/sn-002/data/after_wash",
		[]byte(`{"device_id":"sn-002","voltage":231,"current":1.4,"power":323}`)))

	var records []model.WashRecord
	require.NoError(t, gdb.Where("device_code = ?", "SN-002").Order("id ASC").Find(&records).Error)
	require.Len(t, records, 2)
	assert.Equal(t, model.WashBefore, records[0].WashType)
	assert.Equal(t, 252.0, records[0].Power)
	assert.Equal(t, model.WashAfter, records[1].WashType)
	assert.Equal(t, 323.0, records[1].Power)
}

func TestProcessMessageMalformed(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()

	assert.Error(t, svc.processMessage(ctx, "solar/x/data/hourly", []byte(`{not json`)))
	assert.Error(t, svc.processMessage(ctx, "solar/x/data/hourly", []byte(`{"voltage":1}`)), "missing device_id")
	assert.Error(t, svc.processMessage(ctx, "solar/x/data/unknown", []byte(`{"device_id":"x"}`)))

	var count int64
	gdb.Model(&model.SolarSample{}).Count(&count)
	assert.Equal(t, int64(0), count, "bad messages never persist")
}

func TestResolveLocationFallbacks(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()

	t.Run("no location anywhere", func(t *testing.T) {
		require.NoError(t, svc.processMessage(ctx, "solar/sn-003/data/hourly",
			[]byte(`{"device_id":"sn-003","power":100}`)))

		var sample model.SolarSample
		require.NoError(t, gdb.Where("device_code = ?", "SN-003").First(&sample).Error)
		assert.Nil(t, sample.Lat)
		assert.Nil(t, sample.Lon)
	})

	t.Run("payload coordinates are cached for later samples", func(t *testing.T) {
		require.NoError(t, svc.processMessage(ctx, "solar/sn-004/data/hourly",
			[]byte(`{"device_id":"sn-004","power":100,"lat":10.5,"lon":76.2}`)))
		require.NoError(t, svc.processMessage(ctx, "solar/sn-004/data/hourly",
			[]byte(`{"device_id":"sn-004","power":110}`)))

		var samples []model.SolarSample
		require.NoError(t, gdb.Where("device_code = ?", "SN-004").Order("id ASC").Find(&samples).Error)
		require.Len(t, samples, 2)
		require.NotNil(t, samples[1].Lat)
		assert.Equal(t, 10.5, *samples[1].Lat)
		assert.Equal(t, 76.2, *samples[1].Lon)
	})

	t.Run("stored device location backfills a cold cache", func(t *testing.T) {
		require.NoError(t, gdb.Create(&model.DeviceLocation{
			DeviceCode: "SN-005", Lat: 28.6, Lon: 77.2, UpdatedAt: time.Now(),
		}).Error)

		require.NoError(t, svc.processMessage(ctx, "solar/sn-005/data/hourly",
			[]byte(`{"device_id":"sn-005","power":100}`)))

		var sample model.SolarSample
		require.NoError(t, gdb.Where("device_code = ?", "SN-005").First(&sample).Error)
		require.NotNil(t, sample.Lat)
		assert.Equal(t, 28.6, *sample.Lat)
	})
}
