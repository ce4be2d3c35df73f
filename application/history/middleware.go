package history

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"relmap-backend/application/commands"
)

// Applier applies and reverts entries. The commands Dispatcher is the
// production implementation.
type Applier interface {
	Apply(e commands.Entry) (commands.Payload, error)
	Revert(e commands.Entry, payload commands.Payload) error
}

// ApplierFuncs adapts a pair of functions to Applier
type ApplierFuncs struct {
	ApplyFunc  func(e commands.Entry) (commands.Payload, error)
	RevertFunc func(e commands.Entry, payload commands.Payload) error
}

// Apply implements Applier
func (f ApplierFuncs) Apply(e commands.Entry) (commands.Payload, error) {
	return f.ApplyFunc(e)
}

// Revert implements Applier
func (f ApplierFuncs) Revert(e commands.Entry, payload commands.Payload) error {
	return f.RevertFunc(e, payload)
}

// Middleware wraps an Applier
type Middleware func(next Applier) Applier

// Chain wraps applier so that the first middleware is the outermost
func Chain(applier Applier, middlewares ...Middleware) Applier {
	for i := len(middlewares) - 1; i >= 0; i-- {
		applier = middlewares[i](applier)
	}
	return applier
}

// LoggingMiddleware logs every apply and revert
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next Applier) Applier {
		return ApplierFuncs{
			ApplyFunc: func(e commands.Entry) (commands.Payload, error) {
				payload, err := next.Apply(e)
				logPhase(logger, "apply", e, err)
				return payload, err
			},
			RevertFunc: func(e commands.Entry, payload commands.Payload) error {
				err := next.Revert(e, payload)
				logPhase(logger, "revert", e, err)
				return err
			},
		}
	}
}

func logPhase(logger *zap.Logger, phase string, e commands.Entry, err error) {
	fields := []zap.Field{
		zap.String("phase", phase),
		zap.String("op", opName(e.Op)),
		zap.String("kind", string(e.Meta.Kind)),
		zap.Strings("ids", e.Meta.IDs),
	}
	if err != nil {
		logger.Warn("entry failed", append(fields, zap.Error(err))...)
		return
	}
	logger.Debug("entry done", fields...)
}

// MetricsMiddleware records apply/revert outcomes and latency
func MetricsMiddleware(metrics Metrics) Middleware {
	return func(next Applier) Applier {
		return ApplierFuncs{
			ApplyFunc: func(e commands.Entry) (commands.Payload, error) {
				start := time.Now()
				payload, err := next.Apply(e)
				metrics.ObserveApply("apply", string(e.Meta.Kind), time.Since(start), err)
				return payload, err
			},
			RevertFunc: func(e commands.Entry, payload commands.Payload) error {
				start := time.Now()
				err := next.Revert(e, payload)
				metrics.ObserveApply("revert", string(e.Meta.Kind), time.Since(start), err)
				return err
			},
		}
	}
}

func opName(op commands.Op) string {
	return fmt.Sprintf("%T", op)
}
