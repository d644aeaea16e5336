package log

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/arabic-corpus/ingest-pipeline/pkg/requestid"
)

// StructuredLogger is a thin wrapper over the global zap logger that ties
// log lines to a named component and, when available, the request id found
// in the context.
type StructuredLogger struct {
	name   string
	fields []zap.Field
}

func NewDebugLogger(name string) *StructuredLogger {
	return &StructuredLogger{name: name}
}

func (l *StructuredLogger) WithContext(ctx context.Context) *StructuredLogger {
	if reqID := requestid.FromContext(ctx); reqID != "" {
		return &StructuredLogger{
			name:   l.name,
			fields: append(append([]zap.Field{}, l.fields...), zap.String("request_id", reqID)),
		}
	}
	return l
}

// Operation starts an operation trace builder. The resulting tracer logs a
// single line on Success or Error carrying the accumulated fields and the
// elapsed time since Build was called.
func (l *StructuredLogger) Operation(op string) *OperationBuilder {
	return &OperationBuilder{
		logger: l,
		fields: append(append([]zap.Field{}, l.fields...), zap.String("operation", op)),
	}
}

type OperationBuilder struct {
	logger *StructuredLogger
	fields []zap.Field
}

func (b *OperationBuilder) WithString(key, value string) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value))
	return b
}

func (b *OperationBuilder) WithInt(key string, value int) *OperationBuilder {
	b.fields = append(b.fields, zap.Int(key, value))
	return b
}

func (b *OperationBuilder) WithUUID(key string, value uuid.UUID) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value.String()))
	return b
}

func (b *OperationBuilder) WithFloat(key string, value float64) *OperationBuilder {
	b.fields = append(b.fields, zap.Float64(key, value))
	return b
}

func (b *OperationBuilder) Build() *OperationTracer {
	return &OperationTracer{
		logger:  b.logger,
		fields:  b.fields,
		started: time.Now(),
	}
}

type OperationTracer struct {
	logger  *StructuredLogger
	fields  []zap.Field
	started time.Time
}

func (t *OperationTracer) Success() *OperationEvent {
	return &OperationEvent{tracer: t, level: zap.InfoLevel, msg: "operation completed"}
}

func (t *OperationTracer) Error(err error) *OperationEvent {
	ev := &OperationEvent{tracer: t, level: zap.ErrorLevel, msg: "operation failed"}
	ev.fields = append(ev.fields, zap.Error(err))
	return ev
}

type OperationEvent struct {
	tracer *OperationTracer
	level  zapcore.Level
	msg    string
	fields []zap.Field
}

func (e *OperationEvent) WithString(key, value string) *OperationEvent {
	e.fields = append(e.fields, zap.String(key, value))
	return e
}

func (e *OperationEvent) WithInt(key string, value int) *OperationEvent {
	e.fields = append(e.fields, zap.Int(key, value))
	return e
}

func (e *OperationEvent) WithFloat(key string, value float64) *OperationEvent {
	e.fields = append(e.fields, zap.Float64(key, value))
	return e
}

func (e *OperationEvent) Log() {
	fields := append(append([]zap.Field{}, e.tracer.fields...), e.fields...)
	fields = append(fields, zap.Duration("elapsed", time.Since(e.tracer.started)))

	logger := zap.L().Named(e.tracer.logger.name)
	if e.level >= zapcore.ErrorLevel {
		logger.Error(e.msg, fields...)
		return
	}
	logger.Info(e.msg, fields...)
}
