package engine

// Builders for the handful of message kinds a caller (rather than the
// engine itself) ever constructs: the two top-level "seed" kinds
// (EntityStateChanged, EntityMethodRequestReceived) and the three response
// kinds delivered back once a suspended request has been serviced.
// *RequestSent / *ResponseSent / ErrorRaised are only ever produced by the
// engine itself (see output.go) — constructing them by hand would defeat
// the point of the message taxonomy being a closed set the engine owns.

func offsetPtr(o Offset) *Offset { return &o }

// StateChanged builds an EntityStateChanged message applying state to
// entity before any method body runs.
func StateChanged(offset Offset, entity Ref, state State) Message {
	return Message{Kind: KindEntityStateChanged, Offset: offset, Entity: entity, State: state}
}

// MethodRequestReceived builds the top-level EntityMethodRequestReceived
// message that identifies the work to do.
func MethodRequestReceived(offset Offset, method MethodRef, args []any, kwargs map[string]any) Message {
	return Message{Kind: KindEntityMethodRequestReceived, Offset: offset, Method: method, Args: args, Kwargs: kwargs}
}

// MethodResponseReceived builds the reply to an earlier EntityMethodRequestSent.
func MethodResponseReceived(offset, traceOffset, requestOffset Offset, response any) Message {
	return Message{
		Kind: KindEntityMethodResponseReceived, Offset: offset,
		TraceOffset: offsetPtr(traceOffset), RequestOffset: offsetPtr(requestOffset),
		Response: response,
	}
}

// EntityCreated builds the reply to an earlier CreateEntityRequestSent.
func EntityCreated(offset, traceOffset, requestOffset Offset, created Ref) Message {
	return Message{
		Kind: KindCreateEntityResponseReceived, Offset: offset,
		TraceOffset: offsetPtr(traceOffset), RequestOffset: offsetPtr(requestOffset),
		CreatedRef: created,
	}
}

// ServiceResponded builds the reply to an earlier ServiceRequestSent.
func ServiceResponded(offset, traceOffset, requestOffset Offset, response any) Message {
	return Message{
		Kind: KindServiceResponseReceived, Offset: offset,
		TraceOffset: offsetPtr(traceOffset), RequestOffset: offsetPtr(requestOffset),
		Response: response,
	}
}
