package engine

import (
	"context"
	"fmt"

	"github.com/returnnullptr/runa/telemetry"
)

// loggedPair is one already-recorded request paired with its response, or
// with a nil response when it is the single trailing request a prior
// complete() call suspended on.
type loggedPair struct {
	request  Message
	response *Message
}

// interceptor mediates every external action a method body attempts: a call
// on another entity, the construction of an entity, or a service
// invocation. During replay it matches each attempt against the log in
// strict order and hands back the logged response; the moment an attempt
// has no logged counterpart, it halts the method body instead of performing
// any real side effect.
//
// Method bodies never suspend mid-expression in the Go sense — there is no
// coroutine here. Halting is implemented by panicking with a sentinel that
// Execution.Complete recovers, exactly the "re-execution from a snapshot"
// technique described in the spec's design notes: cheaper than a real
// continuation, at the cost of requiring method bodies to be deterministic.
type interceptor struct {
	pairs       []loggedPair
	cursor      int
	out         *outputBuilder
	traceOffset Offset
	subject     Entity
	subjectRef  Ref

	logger telemetry.Logger
	logCtx context.Context
}

// suspendSignal unwinds the method body's call stack back to Complete once
// the interceptor has decided the execution must pause here. live is true
// when a brand new *RequestSent was just appended to the output (the
// "suspension" case of §4.3 step 4); it is false when the attempt matched
// the single trailing unresponded request from a prior call (§3 invariant 2's
// "resumed only up to that suspension" case), where nothing new is emitted.
type suspendSignal struct{ live bool }

// haltFault unwinds the call stack when the interceptor detects a fault
// (non-determinism or log inconsistency) partway through re-execution.
type haltFault struct{ fault *Fault }

// mediate is the shared core for callMethod/createEntity/invokeService: it
// compares attempt's shape against the next unconsumed logged pair (if any)
// and either returns the logged response, halts on mismatch, or — once the
// log for this trace is exhausted — emits a new request and suspends.
func (ic *interceptor) mediate(attempt Message) *Message {
	attemptShape := shapeOf(attempt)

	if ic.cursor < len(ic.pairs) {
		pair := ic.pairs[ic.cursor]
		if shapeOf(pair.request) != attemptShape {
			fault := NewFault(FaultNonDeterminism, fmt.Sprintf(
				"replayed method attempted %s but the log recorded %s at the same position",
				describeShape(attemptShape), describeShape(shapeOf(pair.request)),
			))
			ic.logger.Error(ic.logCtx, "engine: replay divergence", "attempted", describeShape(attemptShape),
				"logged", describeShape(shapeOf(pair.request)))
			panic(haltFault{fault: fault})
		}
		ic.cursor++
		if pair.response == nil {
			// Trailing unmatched request from a prior suspension: resume is
			// bounded exactly here, nothing new is emitted.
			panic(suspendSignal{live: false})
		}
		resp := pair.response
		return resp
	}

	// Log exhausted for this trace: this is a genuinely new interaction.
	// Emit a state snapshot of the subject first so no partial state is ever
	// leaked to the caller, then the request itself, then suspend.
	if snap, err := ic.subject.Snapshot(); err == nil {
		ic.out.emit(Message{Kind: KindEntityStateChanged, Entity: ic.subjectRef, State: snap}, ic.traceOffset)
	}
	ic.out.emit(attempt, ic.traceOffset)
	ic.logger.Debug(ic.logCtx, "engine: new interaction suspends execution", "kind", attempt.Kind, "trace_offset", int64(ic.traceOffset))
	panic(suspendSignal{live: true})
}

func (ic *interceptor) callMethod(receiver Ref, method MethodRef, args []any, kwargs map[string]any) any {
	resp := ic.mediate(Message{Kind: KindEntityMethodRequestSent, Receiver: receiver, Method: method, Args: args, Kwargs: kwargs})
	return resp.Response
}

func (ic *interceptor) createEntity(entityType string, args []any, kwargs map[string]any) Ref {
	resp := ic.mediate(Message{Kind: KindCreateEntityRequestSent, EntityType: entityType, Args: args, Kwargs: kwargs})
	return resp.CreatedRef
}

func (ic *interceptor) invokeService(service string, args []any, kwargs map[string]any) any {
	resp := ic.mediate(Message{Kind: KindServiceRequestSent, Service: service, Args: args, Kwargs: kwargs})
	return resp.Response
}

func describeShape(s requestShape) string {
	switch s.Kind {
	case KindEntityMethodRequestSent:
		return fmt.Sprintf("call %s on %s with %s", s.Method, s.Receiver, s.Args)
	case KindCreateEntityRequestSent:
		return fmt.Sprintf("create %s with %s", s.EntityType, s.Args)
	case KindServiceRequestSent:
		return fmt.Sprintf("invoke service %s with %s", s.Service, s.Args)
	default:
		return string(s.Kind)
	}
}
