package service

import (
	"context"
	"fmt"
	"log"
)

// EventEmitter broadcasts realtime events.
type EventEmitter interface {
	Emit(ctx context.Context, name string, payload map[string]interface{}) error
}

// Realtime event names.
const (
	EventLoadAssigned      = "load.assigned"
	EventLoadStatusChanged = "load.status_changed"
	EventDispatchUpdated   = "dispatch.updated"
)

// effect is a side effect held back until the primary write commits.
type effect struct {
	name string
	// warning is reported to the caller when run fails.
	warning string
	run     func(ctx context.Context) ([]string, error)
}

// outbox collects side effects during a unit of work. It is flushed only
// after commit, and each effect succeeds or fails on its own.
type outbox struct {
	subject string
	effects []effect
}

func newOutbox(subject string) *outbox {
	return &outbox{subject: subject}
}

func (o *outbox) add(name, warning string, fn func(ctx context.Context) error) {
	o.effects = append(o.effects, effect{
		name:    name,
		warning: warning,
		run: func(ctx context.Context) ([]string, error) {
			return nil, fn(ctx)
		},
	})
}

func (o *outbox) addWithWarnings(name string, fn func(ctx context.Context) ([]string, error)) {
	o.effects = append(o.effects, effect{name: name, run: fn})
}

// flush runs every queued effect in order and returns the warnings they produced.
func (o *outbox) flush(ctx context.Context) []string {
	warnings := []string{}
	for _, e := range o.effects {
		w, err := o.runOne(ctx, e)
		warnings = append(warnings, w...)
		if err != nil {
			log.Printf("[LOAD] side effect %s failed for %s: %v", e.name, o.subject, err)
			if e.warning != "" {
				warnings = append(warnings, e.warning)
			}
		}
	}
	o.effects = nil
	return warnings
}

func (o *outbox) runOne(ctx context.Context, e effect) (warnings []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.run(ctx)
}
