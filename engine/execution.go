package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/codes"

	"github.com/returnnullptr/runa/telemetry"
)

// Execution is the transient driver bound to one entity type for the
// duration of a single Complete call. It holds the subject placeholder, the
// replay cursor (via the interceptor), and the accumulating output buffer.
type Execution struct {
	registry   *Registry
	entityType string
	newEntity  func() Entity

	logger  telemetry.Logger
	metrics telemetry.Metrics
	tracer  telemetry.Tracer
}

// ExecutionOption configures an Execution.
type ExecutionOption func(*Execution)

// WithLogger sets the logger used to record suspensions and faults.
// Defaults to a no-op logger.
func WithLogger(l telemetry.Logger) ExecutionOption {
	return func(e *Execution) { e.logger = l }
}

// WithMetrics sets the metrics recorder used to count suspensions and
// faults. Defaults to a no-op recorder.
func WithMetrics(m telemetry.Metrics) ExecutionOption {
	return func(e *Execution) { e.metrics = m }
}

// WithTracer sets the tracer used to span each Complete call: one span per
// call, with the call's trace_offset recorded as a span event. Spans of
// separate Complete calls on the same trace_offset are not linked to each
// other. Defaults to a no-op tracer.
func WithTracer(t telemetry.Tracer) ExecutionOption {
	return func(e *Execution) { e.tracer = t }
}

// New constructs an Execution bound to entityType. newEntity must return a
// fresh, zero-value instance of the domain type; every Complete call creates
// one and restores the logged EntityStateChanged snapshots into it. When the
// input carries no EntityStateChanged, its default state stands as the
// subject (a brand-new entity whose default state is meaningful until its
// first snapshot).
func New(registry *Registry, entityType string, newEntity func() Entity, opts ...ExecutionOption) *Execution {
	e := &Execution{
		registry:   registry,
		entityType: entityType,
		newEntity:  newEntity,
		logger:     telemetry.NewNoopLogger(),
		metrics:    telemetry.NewNoopMetrics(),
		tracer:     telemetry.NewNoopTracer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subject returns a placeholder Ref for embedding in input messages
// constructed before Complete runs and the concrete entity identity is
// known.
func (e *Execution) Subject() Ref { return Subject() }

// Complete consumes an ordered input message sequence, drives the domain
// method to its next external interaction point or to completion, and
// returns the resulting ordered output message sequence. Complete never
// panics past its own boundary or returns a Go error for domain-level
// failures — every failure mode is reified as a trailing ErrorRaised
// message in the returned slice, per spec §7.
func (e *Execution) Complete(ctx context.Context, inputs []Message) []Message {
	parsed, fault := parseInput(inputs)
	if fault != nil {
		e.logger.Error(ctx, "engine: malformed input", "entity_type", e.entityType, "fault", fault.Kind)
		return []Message{{Kind: KindErrorRaised, Offset: nextOffsetFor(inputs), Fault: fault}}
	}

	out := newOutputBuilder(parsed.maxOffset + 1)
	traceOffset := parsed.topLevel.Offset

	ctx, span := e.tracer.Start(ctx, "engine.complete")
	span.AddEvent("trace_offset", "value", int64(traceOffset), "entity_type", e.entityType)
	defer span.End()

	entity := e.newEntity()
	subjectRef, fault := rebuildState(entity, parsed.stateChanges)
	if fault != nil {
		return e.completeWithFault(ctx, span, out, traceOffset, fault)
	}

	pairs := resolveSubjectInPairs(parsed.pairs, subjectRef)

	method, ok := e.registry.lookupMethod(parsed.topLevel.Method)
	if !ok {
		fault := NewFault(FaultContractViolation,
			fmt.Sprintf("method %s is not registered", parsed.topLevel.Method))
		return e.completeWithFault(ctx, span, out, traceOffset, fault)
	}

	ic := &interceptor{
		pairs:       pairs,
		out:         out,
		traceOffset: traceOffset,
		subject:     entity,
		subjectRef:  subjectRef,
		logger:      e.logger,
		logCtx:      ctx,
	}
	execCtx := &Ctx{ctx: ctx, ic: ic}

	result, methodErr, suspended, fault := runMethod(method, execCtx, entity, parsed.topLevel.Args, parsed.topLevel.Kwargs)
	if suspended {
		// Either a new *RequestSent was just appended by the interceptor
		// (live extension), or this call resumed exactly up to the single
		// trailing logged request (nothing to emit either way).
		e.logger.Debug(ctx, "engine: suspended", "entity_type", e.entityType, "trace_offset", int64(traceOffset))
		span.AddEvent("suspended", "entity_type", e.entityType)
		e.metrics.IncCounter("engine.suspended", 1, "entity_type", e.entityType)
		return out.messages()
	}
	if fault != nil {
		return e.completeWithFault(ctx, span, out, traceOffset, fault)
	}
	if ic.cursor < len(ic.pairs) {
		fault := NewFault(FaultNonDeterminism, "method completed without replaying every logged interaction")
		return e.completeWithFault(ctx, span, out, traceOffset, fault)
	}
	if methodErr != nil {
		fault := WrapFault(FaultDomainFailure, methodErr)
		return e.completeWithFault(ctx, span, out, traceOffset, fault)
	}

	reqOffset := parsed.topLevel.Offset
	out.emit(Message{Kind: KindEntityMethodResponseSent, RequestOffset: &reqOffset, Response: result}, traceOffset)
	span.SetStatus(codes.Ok, "completed")
	e.metrics.IncCounter("engine.completed", 1, "entity_type", e.entityType)
	return out.messages()
}

// completeWithFault logs and spans a terminal fault, emits the ErrorRaised
// message, and returns the accumulated output.
func (e *Execution) completeWithFault(ctx context.Context, span telemetry.Span, out *outputBuilder, traceOffset Offset, fault *Fault) []Message {
	e.logger.Error(ctx, "engine: fault raised", "entity_type", e.entityType, "fault_kind", fault.Kind, "message", fault.Message)
	span.RecordError(fault)
	span.SetStatus(codes.Error, fault.Error())
	e.metrics.IncCounter("engine.fault", 1, "entity_type", e.entityType, "fault_kind", string(fault.Kind))
	out.emit(Message{Kind: KindErrorRaised, Fault: fault}, traceOffset)
	return out.messages()
}

// runMethod invokes fn, recovering the two control-flow signals the
// interceptor uses in place of genuine coroutines (see interceptor.go).
// Any other panic is an abnormal termination of the domain method and is
// reported as a FaultDomainFailure instead of escaping Complete.
func runMethod(fn MethodFunc, ctx *Ctx, receiver Entity, args []any, kwargs map[string]any) (result any, methodErr error, suspended bool, fault *Fault) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch v := r.(type) {
		case suspendSignal:
			suspended = true
		case haltFault:
			fault = v.fault
		default:
			fault = NewFault(FaultDomainFailure, fmt.Sprintf("method panicked: %v", r))
		}
	}()
	result, methodErr = fn(ctx, receiver, args, kwargs)
	return
}

// rebuildState applies every logged EntityStateChanged to entity in order
// (§4.3 step 1: "last snapshot wins"), validating that they all refer to the
// same identity. When there are none, entity's constructor-provided
// zero-value state stands as the subject.
func rebuildState(entity Entity, changes []Message) (Ref, *Fault) {
	var known *Ref
	for _, m := range changes {
		if known != nil && m.Entity != *known {
			return Ref{}, NewFault(FaultLogInconsistency, fmt.Sprintf(
				"EntityStateChanged for unknown entity %s (subject is %s)", m.Entity, *known))
		}
		if err := entity.Restore(m.State); err != nil {
			return Ref{}, NewFault(FaultLogInconsistency, fmt.Sprintf("restoring state: %v", err))
		}
		ref := entity.Ref()
		known = &ref
	}
	if known != nil {
		return *known, nil
	}
	return entity.Ref(), nil
}

// resolveSubjectInPairs substitutes the resolved subject identity for every
// occurrence of the Subject placeholder inside logged request arguments,
// per §3's "Subject" model.
func resolveSubjectInPairs(pairs []loggedPair, subject Ref) []loggedPair {
	out := make([]loggedPair, len(pairs))
	for i, p := range pairs {
		req := p.request
		req.Args = resolveSubjectArgs(req.Args, subject)
		req.Kwargs = resolveSubjectKwargs(req.Kwargs, subject)
		if req.Receiver.Subject {
			req.Receiver = subject
		}
		out[i] = loggedPair{request: req, response: p.response}
	}
	return out
}

// nextOffsetFor is used only for the degenerate empty/unparseable-input
// fault path, where no valid offset basis exists yet.
func nextOffsetFor(inputs []Message) Offset {
	if len(inputs) == 0 {
		return 1
	}
	max := inputs[0].Offset
	for _, m := range inputs {
		if m.Offset > max {
			max = m.Offset
		}
	}
	return max + 1
}
