package engine_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/returnnullptr/runa/engine"
)

// seqState is the opaque snapshot for the seq entity: a running total, kept
// only so Snapshot/Restore have something real to round-trip.
type seqState struct{ Total int }

type seqEntity struct {
	id    string
	total int
}

func (s *seqEntity) Snapshot() (engine.State, error) {
	b, err := json.Marshal(seqState{Total: s.total})
	return engine.State(b), err
}
func (s *seqEntity) Restore(st engine.State) error {
	var v seqState
	if err := json.Unmarshal(st, &v); err != nil {
		return err
	}
	s.total = v.Total
	return nil
}
func (s *seqEntity) Ref() engine.Ref { return engine.Ref{Type: "Seq", ID: s.id} }

var runMethod = engine.MethodRef{EntityType: "Seq", Method: "Run"}

func runFn(ctx *engine.Ctx, receiver engine.Entity, args []any, _ map[string]any) (any, error) {
	s := receiver.(*seqEntity)
	n, _ := args[0].(int)
	for i := 0; i < n; i++ {
		v := ctx.Invoke("counter", []any{i}, nil)
		amount, _ := v.(int)
		s.total += amount
	}
	return s.total, nil
}

func newSeqExecution() *engine.Execution {
	reg := engine.NewRegistry()
	reg.RegisterMethod(runMethod, runFn)
	return engine.New(reg, "Seq", func() engine.Entity { return &seqEntity{} })
}

// runConversation drives n suspensions to completion, feeding back a
// service response of 1 after each suspension, and returns the full
// cumulative log (inputs interleaved with every Complete call's output) plus
// the final response message.
func runConversation(n int) ([]engine.Message, engine.Message) {
	log := []engine.Message{engine.MethodRequestReceived(1, runMethod, []any{n}, nil)}
	exec := newSeqExecution()
	for {
		out := exec.Complete(context.Background(), log)
		log = append(log, out...)
		last := out[len(out)-1]
		if last.Kind == engine.KindEntityMethodResponseSent || last.Kind == engine.KindErrorRaised {
			return log, last
		}
		// last is a ServiceRequestSent: supply its response and continue.
		resp := engine.ServiceResponded(last.Offset+1, *last.TraceOffset, last.Offset, 1)
		log = append(log, resp)
	}
}

// TestPropertyOffsetsMonotonicAndTraced verifies invariant 1 (strictly
// increasing, post-input offsets) and invariant 2 (every trace_offset
// resolves to the top-level request's offset) for any number of
// suspensions.
func TestPropertyOffsetsMonotonicAndTraced(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("offsets strictly increase and every trace_offset is the top-level request offset", prop.ForAll(
		func(n int) bool {
			log, _ := runConversation(n)
			for i := 1; i < len(log); i++ {
				if log[i].Offset <= log[i-1].Offset {
					return false
				}
			}
			for _, m := range log {
				if m.TraceOffset != nil && *m.TraceOffset != 1 {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 12),
	))
	properties.TestingRun(t)
}

// TestPropertyDeterminism verifies invariant 4: identical input sequences
// (here, identical conversation shapes) yield identical output sequences.
func TestPropertyDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("running the same conversation twice yields the same log", prop.ForAll(
		func(n int) bool {
			log1, _ := runConversation(n)
			log2, _ := runConversation(n)
			if len(log1) != len(log2) {
				return false
			}
			for i := range log1 {
				if log1[i].Kind != log2[i].Kind || log1[i].Offset != log2[i].Offset {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 12),
	))
	properties.TestingRun(t)
}

// TestPropertySnapshotRoundTrip verifies invariant 5: restoring a snapshot
// reproduces the entity's observable state.
func TestPropertySnapshotRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("restore(snapshot(e)) == e for user entities", prop.ForAll(
		func(id, name string) bool {
			u := &user{id: id, name: name}
			snap, err := u.Snapshot()
			if err != nil {
				return false
			}
			restored := &user{}
			if err := restored.Restore(snap); err != nil {
				return false
			}
			return *restored == *u
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))
	properties.TestingRun(t)
}

// TestReplaySplitAnywhereYieldsSameFinalResult verifies invariant 3:
// replaying any prefix of a conversation and then feeding the remaining
// responses yields the same final response as running the whole thing in a
// single pass.
func TestReplaySplitAnywhereYieldsSameFinalResult(t *testing.T) {
	const n = 5
	_, wholeFinal := runConversation(n)

	// Split after every possible suspension point and confirm the same
	// final response is reached regardless of where execution paused.
	log := []engine.Message{engine.MethodRequestReceived(1, runMethod, []any{n}, nil)}
	exec := newSeqExecution()
	for {
		out := exec.Complete(context.Background(), log)
		log = append(log, out...)
		last := out[len(out)-1]
		if last.Kind == engine.KindEntityMethodResponseSent {
			require.Equal(t, wholeFinal.Response, last.Response)
			return
		}
		require.NotEqual(t, engine.KindErrorRaised, last.Kind)
		resp := engine.ServiceResponded(last.Offset+1, *last.TraceOffset, last.Offset, 1)
		log = append(log, resp)
		// A brand-new Execution (simulating a process restart between
		// complete() calls) re-parses the whole log from scratch each time.
		exec = newSeqExecution()
	}
}
