package engine

import "fmt"

// parsedInput is the result of validating and indexing one complete() call's
// input sequence: the ordered state snapshots to apply, the single
// top-level request driving this invocation, and the ordered, paired
// interaction log the interceptor will replay against.
type parsedInput struct {
	stateChanges []Message
	topLevel     Message
	pairs        []loggedPair
	maxOffset    Offset
}

// parseInput implements the replay driver's "state rebuild" and "work
// selection" duties (§4.3 steps 1–2) plus every contract/log-inconsistency
// check that can be decided from the input alone, before any domain code
// runs.
func parseInput(inputs []Message) (*parsedInput, *Fault) {
	if len(inputs) == 0 {
		return nil, NewFault(FaultContractViolation, "input sequence is empty")
	}

	var (
		stateChanges []Message
		topLevel     *Message
		topLevelSeen int
		maxOffset    = inputs[0].Offset
	)

	for i, m := range inputs {
		if i > 0 && m.Offset <= inputs[i-1].Offset {
			return nil, NewFault(FaultContractViolation, fmt.Sprintf(
				"offsets not strictly increasing: %d follows %d", m.Offset, inputs[i-1].Offset))
		}
		if m.Offset > maxOffset {
			maxOffset = m.Offset
		}
		switch m.Kind {
		case KindEntityStateChanged:
			stateChanges = append(stateChanges, m)
		case KindEntityMethodRequestReceived:
			topLevelSeen++
			if topLevelSeen > 1 {
				return nil, NewFault(FaultContractViolation, "more than one top-level EntityMethodRequestReceived in input")
			}
			cp := m
			topLevel = &cp
		}
	}
	if i0 := inputs[0]; i0.Kind != KindEntityStateChanged && i0.Kind != KindEntityMethodRequestReceived {
		return nil, NewFault(FaultContractViolation, "first input message must be EntityStateChanged or EntityMethodRequestReceived")
	}
	if topLevel == nil {
		return nil, NewFault(FaultContractViolation, "missing top-level EntityMethodRequestReceived")
	}

	pairs, fault := pairInteractions(inputs, topLevel.Offset)
	if fault != nil {
		return nil, fault
	}

	return &parsedInput{
		stateChanges: stateChanges,
		topLevel:     *topLevel,
		pairs:        pairs,
		maxOffset:    maxOffset,
	}, nil
}

// pairInteractions collects every *RequestSent/*ResponseReceived message
// whose trace offset matches traceOffset, in input order, and pairs each
// request with its response by request_offset. At most one request may be
// unpaired, and it must be the last one (the suspension point a prior
// complete() call left off at) — anything else is a log-inconsistency fault.
func pairInteractions(inputs []Message, traceOffset Offset) ([]loggedPair, *Fault) {
	var requests []Message
	responsesByReqOffset := make(map[Offset]Message)

	for _, m := range inputs {
		if m.TraceOffset == nil || *m.TraceOffset != traceOffset {
			continue
		}
		switch {
		case m.IsRequest():
			requests = append(requests, m)
		case m.IsResponse():
			if m.RequestOffset == nil {
				return nil, NewFault(FaultLogInconsistency, "response message missing request_offset")
			}
			if _, dup := responsesByReqOffset[*m.RequestOffset]; dup {
				return nil, NewFault(FaultLogInconsistency, fmt.Sprintf(
					"more than one response for request at offset %d", *m.RequestOffset))
			}
			responsesByReqOffset[*m.RequestOffset] = m
		}
	}

	pairs := make([]loggedPair, 0, len(requests))
	seenResponses := make(map[Offset]bool, len(responsesByReqOffset))
	for i, req := range requests {
		resp, ok := responsesByReqOffset[req.Offset]
		if !ok {
			if i != len(requests)-1 {
				return nil, NewFault(FaultLogInconsistency, fmt.Sprintf(
					"request at offset %d has no response and is not the final logged interaction", req.Offset))
			}
			pairs = append(pairs, loggedPair{request: req})
			continue
		}
		wantKind, ok := responseKindFor(req.Kind)
		if !ok || resp.Kind != wantKind {
			return nil, NewFault(FaultLogInconsistency, fmt.Sprintf(
				"response at offset %d (%s) does not match request kind %s", resp.Offset, resp.Kind, req.Kind))
		}
		seenResponses[req.Offset] = true
		respCopy := resp
		pairs = append(pairs, loggedPair{request: req, response: &respCopy})
	}

	for reqOffset := range responsesByReqOffset {
		if !seenResponses[reqOffset] {
			return nil, NewFault(FaultLogInconsistency, fmt.Sprintf(
				"response references request_offset %d which has no matching request in this trace", reqOffset))
		}
	}

	return pairs, nil
}
