// Package mongostore is an example durable message-log adapter backing an
// engine host: it persists the ordered per-trace message sequence that
// engine.Execution.Complete is replayed against. It lives outside the engine
// package on purpose — engine never reads or writes storage itself, it only
// consumes and produces []engine.Message in memory (see spec Design Notes
// on statelessness between steps).
package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/returnnullptr/runa/engine"
)

type (
	// Store appends to and reads back the message log for a single trace
	// (identified by its top-level request's offset plus the subject's
	// entity reference, since offsets alone are only unique within a trace).
	Store interface {
		Ping(ctx context.Context) error

		// Append persists messages in order. Safe to call with an empty
		// slice (the output of a Complete call that resumed only up to the
		// trailing request still awaiting its response).
		Append(ctx context.Context, traceID string, messages []engine.Message) error

		// Load returns every message recorded for traceID, in offset order.
		Load(ctx context.Context, traceID string) ([]engine.Message, error)
	}

	// Options configures the Mongo-backed store.
	Options struct {
		Client     *mongodriver.Client
		Database   string
		Collection string
		Timeout    time.Duration
	}

	store struct {
		mongo   *mongodriver.Client
		coll    collection
		timeout time.Duration
	}

	messageDocument struct {
		ID            primitive.ObjectID `bson:"_id,omitempty"`
		TraceID       string             `bson:"trace_id"`
		Kind          string             `bson:"kind"`
		Offset        int64              `bson:"offset"`
		TraceOffset   *int64             `bson:"trace_offset,omitempty"`
		RequestOffset *int64             `bson:"request_offset,omitempty"`
		EntityType    string             `bson:"entity_type,omitempty"`
		EntityID      string             `bson:"entity_id,omitempty"`
		EntitySubject bool               `bson:"entity_subject,omitempty"`
		State         []byte             `bson:"state,omitempty"`
		ReceiverType  string             `bson:"receiver_type,omitempty"`
		ReceiverID    string             `bson:"receiver_id,omitempty"`
		MethodEntity  string             `bson:"method_entity,omitempty"`
		MethodName    string             `bson:"method_name,omitempty"`
		Service       string             `bson:"service,omitempty"`
		CreatedType   string             `bson:"created_type,omitempty"`
		CreatedID     string             `bson:"created_id,omitempty"`
		ArgsJSON      []byte             `bson:"args_json,omitempty"`
		KwargsJSON    []byte             `bson:"kwargs_json,omitempty"`
		ResponseJSON  []byte             `bson:"response_json,omitempty"`
		FaultKind     string             `bson:"fault_kind,omitempty"`
		FaultMessage  string             `bson:"fault_message,omitempty"`
		RecordedAt    time.Time          `bson:"recorded_at"`
	}
)

const (
	defaultCollection = "engine_messages"
	defaultTimeout    = 5 * time.Second
)

// New returns a Store backed by the provided MongoDB client.
func New(opts Options) (Store, error) {
	if opts.Client == nil {
		return nil, errors.New("mongostore: mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("mongostore: database name is required")
	}
	collName := opts.Collection
	if collName == "" {
		collName = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	mcoll := opts.Client.Database(opts.Database).Collection(collName)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	wrapper := mongoCollection{coll: mcoll}
	if err := ensureIndexes(ctx, wrapper); err != nil {
		return nil, err
	}
	return &store{mongo: opts.Client, coll: wrapper, timeout: timeout}, nil
}

func (s *store) Ping(ctx context.Context) error {
	return s.mongo.Ping(ctx, readpref.Primary())
}

func (s *store) Append(ctx context.Context, traceID string, messages []engine.Message) error {
	if len(messages) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	docs := make([]any, len(messages))
	for i, m := range messages {
		doc, err := toDocument(traceID, m)
		if err != nil {
			return fmt.Errorf("mongostore: encoding message at offset %d: %w", m.Offset, err)
		}
		docs[i] = doc
	}
	_, err := s.coll.InsertMany(ctx, docs)
	return err
}

func (s *store) Load(ctx context.Context, traceID string) ([]engine.Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.coll.Find(ctx, bson.M{"trace_id": traceID}, options.Find().SetSort(bson.D{{Key: "offset", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	var messages []engine.Message
	for cur.Next(ctx) {
		var doc messageDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		m, err := fromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("mongostore: decoding message at offset %d: %w", doc.Offset, err)
		}
		messages = append(messages, m)
	}
	return messages, cur.Err()
}

func (s *store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func toDocument(traceID string, m engine.Message) (messageDocument, error) {
	doc := messageDocument{
		TraceID:       traceID,
		Kind:          string(m.Kind),
		Offset:        int64(m.Offset),
		EntityType:    m.Entity.Type,
		EntityID:      m.Entity.ID,
		EntitySubject: m.Entity.Subject,
		State:         []byte(m.State),
		ReceiverType:  m.Receiver.Type,
		ReceiverID:    m.Receiver.ID,
		MethodEntity:  m.Method.EntityType,
		MethodName:    m.Method.Method,
		Service:       m.Service,
		CreatedType:   m.CreatedRef.Type,
		CreatedID:     m.CreatedRef.ID,
		RecordedAt:    time.Now().UTC(),
	}
	if doc.EntityType == "" {
		doc.EntityType = m.EntityType
	}
	if m.TraceOffset != nil {
		v := int64(*m.TraceOffset)
		doc.TraceOffset = &v
	}
	if m.RequestOffset != nil {
		v := int64(*m.RequestOffset)
		doc.RequestOffset = &v
	}
	var err error
	if doc.ArgsJSON, err = marshalIfSet(m.Args); err != nil {
		return doc, err
	}
	if doc.KwargsJSON, err = marshalIfSet(m.Kwargs); err != nil {
		return doc, err
	}
	if doc.ResponseJSON, err = marshalIfSet(m.Response); err != nil {
		return doc, err
	}
	if m.Fault != nil {
		doc.FaultKind = string(m.Fault.Kind)
		doc.FaultMessage = m.Fault.Message
	}
	return doc, nil
}

func fromDocument(doc messageDocument) (engine.Message, error) {
	m := engine.Message{
		Kind:       engine.Kind(doc.Kind),
		Offset:     engine.Offset(doc.Offset),
		Entity:     engine.Ref{Type: doc.EntityType, ID: doc.EntityID, Subject: doc.EntitySubject},
		State:      engine.State(doc.State),
		Receiver:   engine.Ref{Type: doc.ReceiverType, ID: doc.ReceiverID},
		Method:     engine.MethodRef{EntityType: doc.MethodEntity, Method: doc.MethodName},
		EntityType: doc.EntityType,
		Service:    doc.Service,
		CreatedRef: engine.Ref{Type: doc.CreatedType, ID: doc.CreatedID},
	}
	if doc.TraceOffset != nil {
		v := engine.Offset(*doc.TraceOffset)
		m.TraceOffset = &v
	}
	if doc.RequestOffset != nil {
		v := engine.Offset(*doc.RequestOffset)
		m.RequestOffset = &v
	}
	if len(doc.ArgsJSON) > 0 {
		if err := json.Unmarshal(doc.ArgsJSON, &m.Args); err != nil {
			return m, err
		}
	}
	if len(doc.KwargsJSON) > 0 {
		if err := json.Unmarshal(doc.KwargsJSON, &m.Kwargs); err != nil {
			return m, err
		}
	}
	if len(doc.ResponseJSON) > 0 {
		if err := json.Unmarshal(doc.ResponseJSON, &m.Response); err != nil {
			return m, err
		}
	}
	if doc.FaultKind != "" {
		m.Fault = engine.NewFault(engine.FaultKind(doc.FaultKind), doc.FaultMessage)
	}
	return m, nil
}

func marshalIfSet(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func ensureIndexes(ctx context.Context, coll collection) error {
	index := mongodriver.IndexModel{
		Keys:    bson.D{{Key: "trace_id", Value: 1}, {Key: "offset", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, err := coll.Indexes().CreateOne(ctx, index)
	return err
}

type collection interface {
	InsertMany(ctx context.Context, documents []any, opts ...*options.InsertManyOptions) (*mongodriver.InsertManyResult, error)
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (cursor, error)
	Indexes() indexView
}

type indexView interface {
	CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...*options.CreateIndexesOptions) (string, error)
}

type cursor interface {
	Next(ctx context.Context) bool
	Decode(val any) error
	Err() error
	Close(ctx context.Context) error
}

type mongoCollection struct {
	coll *mongodriver.Collection
}

func (c mongoCollection) InsertMany(ctx context.Context, documents []any, opts ...*options.InsertManyOptions) (*mongodriver.InsertManyResult, error) {
	return c.coll.InsertMany(ctx, documents, opts...)
}

func (c mongoCollection) Find(ctx context.Context, filter any, opts ...*options.FindOptions) (cursor, error) {
	cur, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return mongoCursor{cur: cur}, nil
}

func (c mongoCollection) Indexes() indexView {
	return mongoIndexView{view: c.coll.Indexes()}
}

type mongoCursor struct {
	cur *mongodriver.Cursor
}

func (c mongoCursor) Next(ctx context.Context) bool   { return c.cur.Next(ctx) }
func (c mongoCursor) Decode(val any) error            { return c.cur.Decode(val) }
func (c mongoCursor) Err() error                      { return c.cur.Err() }
func (c mongoCursor) Close(ctx context.Context) error { return c.cur.Close(ctx) }

type mongoIndexView struct {
	view mongodriver.IndexView
}

func (v mongoIndexView) CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...*options.CreateIndexesOptions) (string, error) {
	return v.view.CreateOne(ctx, model, opts...)
}
