package event

import (
	"context"
	"sort"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/awantoch/scriptflow/utils"
)

// zapLoggerAdapter routes Watermill's logging through the shared zap logger.
// Watermill logs subscriptions and acks at info level; those are reported as
// debug here.
type zapLoggerAdapter struct {
	fields watermill.LogFields
}

func NewZapLoggerAdapter() watermill.LoggerAdapter {
	return &zapLoggerAdapter{}
}

func (l *zapLoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	kv := l.keyvals(fields)
	if err != nil {
		kv = append(kv, "error", err.Error())
	}
	utils.ErrorCtx(context.Background(), msg, kv...)
}

func (l *zapLoggerAdapter) Info(msg string, fields watermill.LogFields) {
	utils.DebugCtx(context.Background(), msg, l.keyvals(fields)...)
}

func (l *zapLoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	utils.DebugCtx(context.Background(), msg, l.keyvals(fields)...)
}

func (l *zapLoggerAdapter) Trace(msg string, fields watermill.LogFields) {}

func (l *zapLoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &zapLoggerAdapter{fields: l.fields.Add(fields)}
}

func (l *zapLoggerAdapter) keyvals(fields watermill.LogFields) []any {
	all := l.fields.Add(fields)
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kv := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		kv = append(kv, k, all[k])
	}
	return kv
}
