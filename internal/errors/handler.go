package errors

import (
	"github.com/cardtable/cards-client/internal/logger"
	"github.com/cardtable/cards-client/internal/metrics"
	"go.uber.org/zap"
)

// Handler logs classified errors at a level matching their severity and
// counts them by type.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a handler logging to l, or to the "errors" component
// logger when l is nil.
func NewHandler(l *zap.Logger) *Handler {
	if l == nil {
		l = logger.New("errors")
	}
	return &Handler{logger: l}
}

// Handle classifies err (anything that is not already an AppError becomes an
// internal error), records it and returns the classified value.
func (h *Handler) Handle(operation string, err error, fields ...zap.Field) *AppError {
	if err == nil {
		return nil
	}

	appErr, ok := As(err)
	if !ok {
		appErr = Wrap(err, ErrorTypeInternal, "INTERNAL_ERROR", operation+" failed").
			WithSeverity(SeverityHigh)
	}

	h.log(operation, appErr, fields)
	metrics.IncrementErrorCount(string(appErr.Type))
	return appErr
}

func (h *Handler) log(operation string, err *AppError, extra []zap.Field) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("error_type", string(err.Type)),
		zap.String("error_code", err.Code),
		zap.String("severity", string(err.Severity)),
		zap.Bool("recoverable", IsRecoverable(err)),
	}
	if err.StatusCode != 0 {
		fields = append(fields, zap.Int("status_code", err.StatusCode))
	}
	if err.Details != "" {
		fields = append(fields, zap.String("details", err.Details))
	}
	if err.Cause != nil {
		fields = append(fields, zap.Error(err.Cause))
	}
	if err.Severity == SeverityCritical {
		fields = append(fields, zap.String("stack_trace", err.StackTrace))
	}
	fields = append(fields, extra...)

	switch err.Severity {
	case SeverityLow:
		h.logger.Info(err.Message, fields...)
	case SeverityMedium:
		h.logger.Warn(err.Message, fields...)
	default:
		h.logger.Error(err.Message, fields...)
	}
}
