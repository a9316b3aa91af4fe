package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/n3/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestInstrumentDB(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	reader := sdkmetric.NewManualReader()
	mp := telemetry.NewMeterProviderWithReader(reader, zaptest.NewLogger(t))
	require.NoError(t, telemetry.InstrumentDB(db, mp.Meter("db"), telemetry.DBConfig{
		TraceEnabled:    true,
		DBSystem:        "sqlite",
		SlowQueryThresh: time.Nanosecond,
	}, zaptest.NewLogger(t)))

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).AutoMigrate(&widget{}))
	require.NoError(t, db.WithContext(ctx).Create(&widget{Name: "a"}).Error)
	var got []widget
	require.NoError(t, db.WithContext(ctx).Find(&got).Error)

	data := collect(t, reader)
	require.Contains(t, data, "n3_db_query_total")
	require.Contains(t, data, "n3_db_slow_query_total")
	require.Positive(t, sumFor(t, data["n3_db_query_total"],
		telemetry.AttrDBOp.String("query"), telemetry.AttrDBTable.String("widgets")))
}
