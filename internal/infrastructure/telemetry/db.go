package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig configures database instrumentation
type DBConfig struct {
	TraceEnabled    bool
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	// DBSystem is reported on spans, e.g. "postgresql" or "sqlite"
	DBSystem string
}

type dbStartKey struct{}

// dbInstrumentation adds slow-query marking to otelgorm spans and records
// per-statement metrics
type dbInstrumentation struct {
	config   DBConfig
	total    *Counter
	duration *Histogram
	slow     *Counter
}

// InstrumentDB registers otelgorm (when tracing is enabled) plus query count,
// latency and slow-query metrics on db
func InstrumentDB(db *gorm.DB, meter metric.Meter, cfg DBConfig, logger *zap.Logger) error {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}

	if cfg.TraceEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
		if !cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	inst := &dbInstrumentation{config: cfg}
	var err error
	if inst.total, err = NewCounter(meter, "n3_db_query_total", "Database statements by operation", "{query}"); err != nil {
		return err
	}
	if inst.duration, err = NewHistogram(meter, "n3_db_query_duration_seconds", "Database statement latency", "s", DBDurationBuckets); err != nil {
		return err
	}
	if inst.slow, err = NewCounter(meter, "n3_db_slow_query_total", "Statements slower than the threshold", "{query}"); err != nil {
		return err
	}
	if err := inst.register(db); err != nil {
		return err
	}

	logger.Info("Database instrumentation enabled",
		zap.Bool("tracing", cfg.TraceEnabled),
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

type callbackRegistrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

func (d *dbInstrumentation) register(db *gorm.DB) error {
	cb := db.Callback()
	steps := []struct {
		op            string
		before, after callbackRegistrar
	}{
		{"create", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create")},
		{"query", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query")},
		{"update", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update")},
		{"delete", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete")},
		{"row", cb.Row().Before("gorm:row"), cb.Row().After("gorm:row")},
		{"raw", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw")},
	}
	for _, step := range steps {
		op := step.op
		if err := step.before.Register("n3_metrics:before_"+op, d.before); err != nil {
			return err
		}
		if err := step.after.Register("n3_metrics:after_"+op, func(db *gorm.DB) { d.after(db, op) }); err != nil {
			return err
		}
	}
	return nil
}

func (d *dbInstrumentation) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, dbStartKey{}, time.Now())
	}
}

func (d *dbInstrumentation) after(db *gorm.DB, op string) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	start, ok := ctx.Value(dbStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if op == "raw" || op == "row" {
		op = statementOperation(db.Statement.SQL.String())
	}
	attrs := []attribute.KeyValue{AttrDBOp.String(op), AttrDBTable.String(db.Statement.Table)}

	d.total.Inc(ctx, attrs...)
	d.duration.RecordDuration(ctx, elapsed, attrs...)

	span := trace.SpanFromContext(ctx)
	if elapsed > d.config.SlowQueryThresh {
		d.slow.Inc(ctx, attrs...)
		if span.IsRecording() {
			span.SetAttributes(attribute.Bool("db.slow_query", true))
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", d.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
	if span.IsRecording() && db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
	}
}

// statementOperation classifies raw SQL by its leading keyword
func statementOperation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "other"
	}
	switch kw := strings.ToLower(fields[0]); kw {
	case "select", "insert", "update", "delete":
		return kw
	case "with":
		return "select"
	default:
		return "other"
	}
}
