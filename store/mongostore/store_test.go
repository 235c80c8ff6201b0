package mongostore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/returnnullptr/runa/engine"
)

func TestStoreAppendAndLoadRoundTrip(t *testing.T) {
	coll := &fakeCollection{}
	s := &store{coll: coll}

	one := engine.Offset(1)
	two := engine.Offset(2)
	messages := []engine.Message{
		{Kind: engine.KindEntityStateChanged, Offset: 1, Entity: engine.Ref{Type: "User", ID: "u1"}, State: engine.State(`{"id":"u1"}`)},
		{
			Kind: engine.KindEntityMethodRequestReceived, Offset: 2,
			Method: engine.MethodRef{EntityType: "User", Method: "WriteArticle"},
			Args:   []any{"Hello"},
		},
		{
			Kind: engine.KindEntityMethodResponseSent, Offset: 3,
			TraceOffset: &two, RequestOffset: &one,
			Response: map[string]any{"title": "Hello"},
		},
	}

	require.NoError(t, s.Append(context.Background(), "trace-1", messages))
	require.Len(t, coll.inserted, 3)

	got, err := s.Load(context.Background(), "trace-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, engine.KindEntityStateChanged, got[0].Kind)
	assert.Equal(t, "User", got[0].Entity.Type)
	assert.Equal(t, []any{"Hello"}, got[1].Args)
	assert.Equal(t, engine.KindEntityMethodResponseSent, got[2].Kind)
	require.NotNil(t, got[2].RequestOffset)
	assert.EqualValues(t, 1, *got[2].RequestOffset)
	assert.Equal(t, map[string]any{"title": "Hello"}, got[2].Response)
}

func TestStoreAppendEmptyIsNoop(t *testing.T) {
	coll := &fakeCollection{}
	s := &store{coll: coll}
	require.NoError(t, s.Append(context.Background(), "trace-1", nil))
	assert.Empty(t, coll.inserted)
}

func TestStoreAppendEncodesFault(t *testing.T) {
	coll := &fakeCollection{}
	s := &store{coll: coll}

	fault := engine.NewFault(engine.FaultNonDeterminism, "diverged")
	require.NoError(t, s.Append(context.Background(), "trace-1", []engine.Message{
		{Kind: engine.KindErrorRaised, Offset: 1, Fault: fault},
	}))

	got, err := s.Load(context.Background(), "trace-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Fault)
	assert.Equal(t, engine.FaultNonDeterminism, got[0].Fault.Kind)
	assert.Equal(t, "diverged", got[0].Fault.Message)
}

// fakeCollection is an in-memory stand-in for the Mongo collection,
// sufficient for exercising encode/decode without a live server.
type fakeCollection struct {
	inserted []messageDocument
}

func (c *fakeCollection) InsertMany(_ context.Context, documents []any, _ ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	ids := make([]any, len(documents))
	for i, d := range documents {
		doc := d.(messageDocument)
		c.inserted = append(c.inserted, doc)
		ids[i] = doc.Offset
	}
	return &mongo.InsertManyResult{InsertedIDs: ids}, nil
}

func (c *fakeCollection) Find(_ context.Context, _ any, _ ...*options.FindOptions) (cursor, error) {
	return &fakeCursor{docs: c.inserted}, nil
}

func (c *fakeCollection) Indexes() indexView { return fakeIndexView{} }

type fakeIndexView struct{}

func (fakeIndexView) CreateOne(context.Context, mongo.IndexModel, ...*options.CreateIndexesOptions) (string, error) {
	return "", nil
}

type fakeCursor struct {
	docs []messageDocument
	pos  int
}

func (c *fakeCursor) Next(context.Context) bool {
	if c.pos >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *fakeCursor) Decode(val any) error {
	p := val.(*messageDocument)
	*p = c.docs[c.pos-1]
	return nil
}

func (c *fakeCursor) Err() error                      { return nil }
func (c *fakeCursor) Close(context.Context) error { return nil }
