package logging

import (
	"fmt"
	"runtime/debug"
)

// PanicError is what a recovered panic turns into.
type PanicError struct {
	Component string
	Value     any
	Stack     string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Component, e.Value)
}

// RecoveryHandler turns panics in one component into logged errors.
type RecoveryHandler struct {
	Component string
	// OnPanic runs after the panic is logged, e.g. to tell the user.
	OnPanic func(*PanicError)
	log     *Logger
}

func NewRecoveryHandler(component string) *RecoveryHandler {
	return &RecoveryHandler{
		Component: component,
		log:       New(component),
	}
}

// Wrap runs fn and swallows a panic after logging it.
func (r *RecoveryHandler) Wrap(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.handle(rec, debug.Stack())
		}
	}()
	fn()
}

// WrapError runs fn; a panic comes back as a *PanicError.
func (r *RecoveryHandler) WrapError(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = r.handle(rec, debug.Stack())
		}
	}()
	return fn()
}

func (r *RecoveryHandler) handle(rec any, stack []byte) *PanicError {
	pe := &PanicError{Component: r.Component, Value: rec, Stack: string(stack)}
	r.log.Error("panic_recovered", map[string]any{"stack": pe.Stack}, pe)
	if r.OnPanic != nil {
		r.OnPanic(pe)
	}
	return pe
}

// SafeGo starts fn on its own goroutine with panic recovery.
func SafeGo(component string, fn func()) {
	go NewRecoveryHandler(component).Wrap(fn)
}
