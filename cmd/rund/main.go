// Command rund is a minimal host for the engine package: it wires config,
// telemetry, and the service directory together, then drives a single blog
// scenario (User.WriteArticle) end to end by
// repeatedly calling Execution.Complete and feeding back synthesized
// responses, the way a real host would feed back responses recorded from an
// actual message bus.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/returnnullptr/runa/config"
	"github.com/returnnullptr/runa/directory"
	"github.com/returnnullptr/runa/engine"
	"github.com/returnnullptr/runa/example/blog"
	"github.com/returnnullptr/runa/telemetry"
)

func main() {
	ctx := context.Background()

	cfg := loadConfig(ctx)

	logger := telemetry.NewNoopLogger()
	tracer := telemetry.NewNoopTracer()
	metrics := telemetry.NewNoopMetrics()
	if cfg.Telemetry.Debug {
		logger = telemetry.NewClueLogger()
		tracer = telemetry.NewClueTracer()
		metrics = telemetry.NewClueMetrics()
	}

	dir := directory.NewManager(
		directory.WithStaticEndpoints(cfg.Directory.StaticEndpoints),
		directory.WithTTL(cfg.Directory.CacheTTL),
		directory.WithLogger(logger),
	)
	if endpoint, err := dir.Resolve(ctx, "Article"); err == nil {
		fmt.Println("Article service resolved to:", endpoint)
	}

	reg := blog.Registry()
	execOpts := []engine.ExecutionOption{
		engine.WithLogger(logger),
		engine.WithTracer(tracer),
		engine.WithMetrics(metrics),
	}

	userRef := engine.Ref{Type: "User", ID: "u1"}
	author := &blog.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}
	authorState, err := author.Snapshot()
	if err != nil {
		panic(err)
	}

	seed := []engine.Message{
		engine.StateChanged(1, userRef, authorState),
		engine.MethodRequestReceived(2, blog.WriteArticle, []any{"Hello, World", "first post"}, nil),
	}

	response, trace := driveToCompletion(ctx, reg, execOpts, blog.NewUserExecution(reg, execOpts...), seed)
	fmt.Println("WriteArticle response:", response)
	fmt.Println("messages exchanged:", len(trace))
}

// loadConfig reads the path given as the first argument, falling back to
// built-in defaults (with a directory static endpoint so validation passes)
// when no path is given or the file cannot be read.
func loadConfig(ctx context.Context) *config.Config {
	if len(os.Args) > 1 {
		cfg, err := config.Load(ctx, os.Args[1])
		if err == nil {
			return cfg
		}
		fmt.Fprintln(os.Stderr, "rund: falling back to defaults:", err)
	}
	cfg := config.Default()
	cfg.Directory.StaticEndpoints = map[string]string{"Article": "articles.local:443", "Comment": "comments.local:443"}
	return cfg
}

// driveToCompletion repeatedly calls exec.Complete, synthesizing a response
// for each CreateEntityRequestSent/EntityMethodRequestSent the blog methods
// emit, until a EntityMethodResponseSent or ErrorRaised message appears. It
// returns that terminal message's payload and the full accumulated trace.
func driveToCompletion(ctx context.Context, reg *engine.Registry, execOpts []engine.ExecutionOption, exec *engine.Execution, seed []engine.Message) (any, []engine.Message) {
	trace := append([]engine.Message{}, seed...)

	for {
		out := exec.Complete(ctx, trace)
		trace = append(trace, out...)

		last := out[len(out)-1]
		switch last.Kind {
		case engine.KindEntityMethodResponseSent:
			return last.Response, trace
		case engine.KindErrorRaised:
			return fmt.Sprintf("fault: %s: %s", last.Fault.Kind, last.Fault.Message), trace
		case engine.KindCreateEntityRequestSent:
			trace = append(trace, respondToCreate(reg, last))
		case engine.KindEntityMethodRequestSent:
			trace = append(trace, respondToCall(ctx, reg, execOpts, last))
		default:
			return nil, trace
		}
	}
}

// respondToCreate materializes the entity a create request named by routing
// it through the same Registry the issuing domain method's Execution was
// bound to, and appends the resulting CreateEntityResponseReceived.
func respondToCreate(reg *engine.Registry, req engine.Message) engine.Message {
	entity, err := reg.Construct(req.EntityType, req.Args, req.Kwargs)
	if err != nil {
		return engine.EntityCreated(req.Offset+1, *req.TraceOffset, req.Offset, engine.Ref{})
	}
	return engine.EntityCreated(req.Offset+1, *req.TraceOffset, req.Offset, entity.Ref())
}

// respondToCall drives a fresh Article Execution (Article is the only entity
// type the blog methods call) far enough to answer the call synchronously,
// the way a real host would route the call over the network to whichever
// process owns that entity.
func respondToCall(ctx context.Context, reg *engine.Registry, execOpts []engine.ExecutionOption, req engine.Message) engine.Message {
	var state engine.State
	switch req.Receiver.Type {
	case "Article":
		st, _ := (&blog.Article{ID: req.Receiver.ID}).Snapshot()
		state = st
	}
	calleeInputs := []engine.Message{
		engine.StateChanged(1, req.Receiver, state),
		engine.MethodRequestReceived(2, req.Method, req.Args, req.Kwargs),
	}
	response, _ := driveToCompletion(ctx, reg, execOpts, blog.NewArticleExecution(reg, execOpts...), calleeInputs)
	return engine.MethodResponseReceived(req.Offset+1, *req.TraceOffset, req.Offset, response)
}
