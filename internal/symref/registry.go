// Package symref maps callables to stable textual references and back.
//
// Go cannot serialize a func value, so jobs store the name a callback was
// registered under. Names default to the function's fully qualified runtime
// name (e.g. "github.com/crystaldolphin/tickerbot/internal/bot.Tick"), which
// stays stable across restarts of the same build.
package symref

import (
	"reflect"
	"runtime"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrUnresolvableReference is returned when a reference or callable has no
// registered counterpart in the current build.
var ErrUnresolvableReference = errors.New("unresolvable reference")

// Registry is a two-way mapping between reference names and callables of
// type F. F must be a func type.
type Registry[F any] struct {
	mu     sync.RWMutex
	byName map[string]F
	byPC   map[uintptr]string
}

// NewRegistry creates an empty Registry.
func NewRegistry[F any]() *Registry[F] {
	return &Registry[F]{
		byName: make(map[string]F),
		byPC:   make(map[uintptr]string),
	}
}

// Register adds fn under its runtime name and returns that name.
// It panics if fn is nil or not a func; registration happens at startup.
func (r *Registry[F]) Register(fn F) string {
	pc := funcPC(fn)
	name := runtime.FuncForPC(pc).Name()
	r.add(name, pc, fn)
	return name
}

// RegisterNamed adds fn under an explicit name, for callbacks that must
// keep a reference across a rename or move.
func (r *Registry[F]) RegisterNamed(name string, fn F) {
	r.add(name, funcPC(fn), fn)
}

func (r *Registry[F]) add(name string, pc uintptr, fn F) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = fn
	r.byPC[pc] = name
}

// Reference returns the name fn was registered under.
func (r *Registry[F]) Reference(fn F) (string, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "", errors.Wrap(ErrUnresolvableReference, "not a func")
	}
	r.mu.RLock()
	name, ok := r.byPC[v.Pointer()]
	r.mu.RUnlock()
	if !ok {
		return "", errors.Wrapf(ErrUnresolvableReference, "callable %s is not registered",
			runtime.FuncForPC(v.Pointer()).Name())
	}
	return name, nil
}

// Resolve returns the callable registered under name.
func (r *Registry[F]) Resolve(name string) (F, error) {
	r.mu.RLock()
	fn, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		var zero F
		return zero, errors.WithHint(
			errors.Wrapf(ErrUnresolvableReference, "no callable named %q", name),
			"the callback was renamed or removed since the job was saved",
		)
	}
	return fn, nil
}

// Names lists every registered reference, sorted.
func (r *Registry[F]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func funcPC(fn any) uintptr {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		panic("symref: Register requires a non-nil func")
	}
	return v.Pointer()
}
