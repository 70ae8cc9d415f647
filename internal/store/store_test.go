package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"solar-monitor-backend/internal/db"
)

// fakeSender records dispatched OTP codes instead of calling WhatsApp.
type fakeSender struct {
	mu    sync.Mutex
	codes map[string]string
	sent  int
	fail  bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{codes: make(map[string]string)}
}

func (f *fakeSender) Send(_ context.Context, phone, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("gateway unavailable")
	}
	f.codes[phone] = code
	f.sent++
	return nil
}

func (f *fakeSender) lastCode(phone string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[phone]
}

// newTestStore opens an isolated in-memory SQLite database with the
// production schema. TranslateError matches the production gorm config
// so unique violations surface as gorm.ErrDuplicatedKey here too.
func newTestStore(t *testing.T) (Store, *gorm.DB, *fakeSender) {
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

	sender := newFakeSender()
	return NewGormStore(gormDB, sender, 15*time.Minute), gormDB, sender
}
