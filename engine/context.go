package engine

import "context"

// Ctx is the capability object domain methods receive to perform every
// cross-entity call, entity creation, and service invocation. It is the
// statically-typed calling convention named in the spec's design notes as
// the alternative to monkey-patching: rather than the engine rebinding
// methods on a type, domain code calls out through this explicit,
// scoped handle. Reading or writing the receiver's own fields needs no
// mediation through Ctx at all — only external interactions do.
type Ctx struct {
	ctx context.Context
	ic  *interceptor
}

// Context returns the standard Go context for the current execution, for
// domain code that wants cancellation propagation without itself being a
// suspension point (e.g. bounding how long it waits on a mutex).
func (c *Ctx) Context() context.Context { return c.ctx }

// Subject returns the identity of the entity this execution is driving.
func (c *Ctx) Subject() Ref { return c.ic.subjectRef }

// Call invokes a method on another entity. If the call was already
// performed in a prior complete() invocation, the logged response is
// returned immediately. Otherwise the current method is suspended here: the
// call never returns in this process; instead Complete halts and returns a
// new EntityMethodRequestSent to the caller.
func (c *Ctx) Call(receiver Ref, method MethodRef, args []any, kwargs map[string]any) any {
	return c.ic.callMethod(receiver, method, args, kwargs)
}

// Create constructs a new entity of entityType, deferring actual
// construction to the host (the engine never materializes entities itself —
// see spec §1's scope boundary). Returns the identity of the newly created
// entity once a CreateEntityResponseReceived is available in the log.
func (c *Ctx) Create(entityType string, args []any, kwargs map[string]any) Ref {
	return c.ic.createEntity(entityType, args, kwargs)
}

// Invoke calls an external service by name. Services are reachable only by
// message; Invoke suspends exactly like Call and Create when no logged
// response is available yet.
func (c *Ctx) Invoke(service string, args []any, kwargs map[string]any) any {
	return c.ic.invokeService(service, args, kwargs)
}
