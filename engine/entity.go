package engine

import "fmt"

// State is an opaque value produced by snapshotting an entity, sufficient to
// fully restore it. The engine treats States as immutable value records: it
// never inspects or mutates their contents, only threads them between an
// entity's Snapshot and Restore.
type State []byte

// Entity is the capability set a user-defined domain type must satisfy to be
// driven by the engine: it can produce a snapshot of its mutable state,
// accept a snapshot to replace that state, and report its own identity.
type Entity interface {
	// Snapshot captures the entity's current mutable state.
	Snapshot() (State, error)
	// Restore replaces the entity's mutable state with a previously captured
	// snapshot. Only the entity's own methods may transition state after
	// this point — the engine never mutates state directly.
	Restore(State) error
	// Ref reports the entity's stable identity.
	Ref() Ref
}

// MethodFunc is the calling convention a domain method is registered under.
// The engine invokes methods only through this signature; it never
// introspects method bodies or calls them by reflection. ctx is the
// capability object ("calling context") through which the method performs
// every cross-entity call, entity creation, and service invocation —
// reading or writing the receiver's own state needs no such mediation.
type MethodFunc func(ctx *Ctx, receiver Entity, args []any, kwargs map[string]any) (any, error)

// Registry binds (entity type, method name) pairs to invokable MethodFuncs
// and entity type names to constructors. This is the statically-typed
// stand-in for the dynamic-language technique of rebinding methods on a
// type: domain packages register their methods once at init time instead of
// the engine monkey-patching them at call time (see spec Design Notes §9).
type Registry struct {
	methods      map[MethodRef]MethodFunc
	constructors map[string]func(args []any, kwargs map[string]any) (Entity, error)
}

// NewRegistry returns an empty Registry ready for method and constructor
// registration.
func NewRegistry() *Registry {
	return &Registry{
		methods:      make(map[MethodRef]MethodFunc),
		constructors: make(map[string]func(args []any, kwargs map[string]any) (Entity, error)),
	}
}

// RegisterMethod binds a method reference to its invokable implementation.
// Panics on duplicate registration: this is a wiring-time programmer error,
// not a runtime fault the engine should surface as a Message.
func (r *Registry) RegisterMethod(ref MethodRef, fn MethodFunc) {
	if _, dup := r.methods[ref]; dup {
		panic(fmt.Sprintf("engine: method %s already registered", ref))
	}
	r.methods[ref] = fn
}

// RegisterConstructor binds an entity type name to a constructor invoked
// when a domain method creates a new entity of that type (the action the
// Interceptor mediates as CreateEntityRequestSent/Received).
func (r *Registry) RegisterConstructor(entityType string, fn func(args []any, kwargs map[string]any) (Entity, error)) {
	if _, dup := r.constructors[entityType]; dup {
		panic(fmt.Sprintf("engine: constructor for %q already registered", entityType))
	}
	r.constructors[entityType] = fn
}

func (r *Registry) lookupMethod(ref MethodRef) (MethodFunc, bool) {
	fn, ok := r.methods[ref]
	return fn, ok
}

func (r *Registry) lookupConstructor(entityType string) (func(args []any, kwargs map[string]any) (Entity, error), bool) {
	fn, ok := r.constructors[entityType]
	return fn, ok
}

// Construct invokes the constructor registered for entityType, the host-side
// counterpart to the CreateEntityRequestSent a domain method emits through
// ctx.Create. A host answering that request should call Construct rather than
// re-deriving the same args-to-entity mapping RegisterConstructor already
// captured.
func (r *Registry) Construct(entityType string, args []any, kwargs map[string]any) (Entity, error) {
	fn, ok := r.lookupConstructor(entityType)
	if !ok {
		return nil, fmt.Errorf("engine: no constructor registered for entity type %q", entityType)
	}
	return fn(args, kwargs)
}
