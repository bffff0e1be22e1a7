package app

import (
	"context"

	"timerd/internal/eventbus"
	logx "timerd/pkg/logx"
)

// EventOperationInvoke is published for operation-kind actions. The actual
// operation execution belongs to whatever host system subscribes; timerd
// only delivers the rendered call.
const EventOperationInvoke = "operation.invoke"

// busEmitter delivers event-kind actions as bus events.
type busEmitter struct {
	bus eventbus.Bus
}

func (e busEmitter) Emit(ctx context.Context, event string, data map[string]any) error {
	_ = ctx
	e.bus.Publish(eventbus.Event{Type: event, Data: data})
	return nil
}

// busInvoker publishes operation-kind actions for external subscribers and
// logs the call.
type busInvoker struct {
	bus eventbus.Bus
	log logx.Logger
}

func (i busInvoker) Invoke(ctx context.Context, namespace, operation string, data, target map[string]any) error {
	_ = ctx
	i.bus.Publish(eventbus.Event{
		Type: EventOperationInvoke,
		Data: map[string]any{
			"namespace": namespace,
			"operation": operation,
			"data":      data,
			"target":    target,
		},
	})
	i.log.Info("operation dispatched",
		logx.String("namespace", namespace),
		logx.String("operation", operation))
	return nil
}
