package manager

import (
	"context"
	"errors"

	"timerd/internal/timer"
	logx "timerd/pkg/logx"
)

// dispatchActions runs a timer's actions in order. One action's failure is
// logged and never stops the siblings or blocks the timer's removal.
func (s *Service) dispatchActions(ctx context.Context, name string, t *timer.Timer) {
	for i, a := range t.Actions {
		if err := s.dispatchOne(ctx, a); err != nil {
			s.log.Error("action failed",
				logx.String("timer", name), logx.Int("action", i), logx.Err(err))
		}
	}
}

func (s *Service) dispatchOne(ctx context.Context, a timer.Action) error {
	switch a.Kind {
	case timer.ActionEvent:
		if s.deps.Emitter == nil {
			return errors.New("no event emitter configured")
		}
		data := s.renderMap(a.EventData)
		if err := s.deps.Emitter.Emit(ctx, a.Event, data); err != nil {
			return err
		}
		s.log.Debug("fired event", logx.String("event", a.Event))
		return nil

	case timer.ActionService:
		if s.deps.Invoker == nil {
			return errors.New("no operation invoker configured")
		}
		ns, op, err := timer.SplitOperation(a.Operation)
		if err != nil {
			return err
		}
		data := s.renderMap(a.Data)
		target := s.renderMap(a.Target)
		if err := s.deps.Invoker.Invoke(ctx, ns, op, data, target); err != nil {
			return err
		}
		s.log.Debug("invoked operation", logx.String("operation", a.Operation))
		return nil

	default:
		s.log.Warn("skipping unresolvable action")
		return nil
	}
}

// renderMap renders every string leaf of a value tree immediately before
// dispatch. A failed render falls back to the raw literal with a warning; it
// never aborts the action.
func (s *Service) renderMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out, _ := s.renderValue(m).(map[string]any)
	return out
}

func (s *Service) renderValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = s.renderValue(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = s.renderValue(item)
		}
		return out
	case string:
		if s.deps.Renderer == nil {
			return x
		}
		rendered, err := s.deps.Renderer.RenderString(x)
		if err != nil {
			s.log.Warn("template render failed, using literal",
				logx.String("value", x), logx.Err(err))
			return x
		}
		return rendered
	default:
		return v
	}
}
