package blog

import (
	"github.com/returnnullptr/runa/engine"
)

// Method references for User and Article (Comment has no methods). Exported so a host can build
// top-level EntityMethodRequestReceived messages without the blog package
// exposing MethodFunc implementations directly.
var (
	WriteArticle  = engine.MethodRef{EntityType: "User", Method: "WriteArticle"}
	WriteComment  = engine.MethodRef{EntityType: "User", Method: "WriteComment"}
	AddComment    = engine.MethodRef{EntityType: "Article", Method: "AddComment"}
	DeleteArticle = engine.MethodRef{EntityType: "Article", Method: "Delete"}
)

func writeArticleFn(ctx *engine.Ctx, _ engine.Entity, args []any, _ map[string]any) (any, error) {
	title, _ := args[0].(string)
	body, _ := args[1].(string)
	return ctx.Create("Article", []any{ctx.Subject(), title, body}, nil), nil
}

func writeCommentFn(ctx *engine.Ctx, _ engine.Entity, args []any, _ map[string]any) (any, error) {
	article, _ := args[0].(engine.Ref)
	text, _ := args[1].(string)
	comment := ctx.Create("Comment", []any{ctx.Subject(), text}, nil)
	ctx.Call(article, AddComment, []any{comment}, nil)
	return comment, nil
}

func addCommentFn(_ *engine.Ctx, receiver engine.Entity, args []any, _ map[string]any) (any, error) {
	a := receiver.(*Article)
	commentRef, _ := args[0].(engine.Ref)
	a.Comments = append(a.Comments, commentRef)
	return nil, nil
}

func deleteArticleFn(_ *engine.Ctx, receiver engine.Entity, _ []any, _ map[string]any) (any, error) {
	a := receiver.(*Article)
	a.Deleted = true
	return nil, nil
}

// Registry returns an engine.Registry with every blog method and entity
// constructor bound. A host drives each entity type through its own
// engine.Execution (see NewUserExecution, NewArticleExecution,
// NewCommentExecution) sharing this one Registry.
func Registry() *engine.Registry {
	reg := engine.NewRegistry()
	reg.RegisterMethod(WriteArticle, writeArticleFn)
	reg.RegisterMethod(WriteComment, writeCommentFn)
	reg.RegisterMethod(AddComment, addCommentFn)
	reg.RegisterMethod(DeleteArticle, deleteArticleFn)

	reg.RegisterConstructor("Article", func(args []any, _ map[string]any) (engine.Entity, error) {
		author, _ := args[0].(engine.Ref)
		title, _ := args[1].(string)
		body, _ := args[2].(string)
		return NewArticle(author, title, body), nil
	})
	reg.RegisterConstructor("Comment", func(args []any, _ map[string]any) (engine.Entity, error) {
		author, _ := args[0].(engine.Ref)
		text, _ := args[1].(string)
		return NewComment(author, text), nil
	})
	return reg
}

// NewUserExecution binds reg to the User entity type.
func NewUserExecution(reg *engine.Registry, opts ...engine.ExecutionOption) *engine.Execution {
	return engine.New(reg, "User", func() engine.Entity { return &User{} }, opts...)
}

// NewArticleExecution binds reg to the Article entity type.
func NewArticleExecution(reg *engine.Registry, opts ...engine.ExecutionOption) *engine.Execution {
	return engine.New(reg, "Article", func() engine.Entity { return &Article{} }, opts...)
}

// NewCommentExecution binds reg to the Comment entity type.
func NewCommentExecution(reg *engine.Registry, opts ...engine.ExecutionOption) *engine.Execution {
	return engine.New(reg, "Comment", func() engine.Entity { return &Comment{} }, opts...)
}
