// Package blog is a worked example of three entity types driven by the
// engine package: User, Article, and Comment. It exists to show a realistic
// domain wired through engine.Registry rather than the engine package's own
// minimal test fixtures.
package blog

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/returnnullptr/runa/engine"
)

// User authors articles and comments. Its own state never changes as a
// result of those actions — WriteArticle and WriteComment only create and
// call other entities — but it carries a snapshot regardless, matching the
// shape every entity in the taxonomy is expected to have.
type User struct {
	ID    string
	Name  string
	Email string
}

type userState struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Snapshot() (engine.State, error) {
	b, err := json.Marshal(userState{ID: u.ID, Name: u.Name, Email: u.Email})
	return engine.State(b), err
}

func (u *User) Restore(s engine.State) error {
	var st userState
	if err := json.Unmarshal(s, &st); err != nil {
		return err
	}
	u.ID, u.Name, u.Email = st.ID, st.Name, st.Email
	return nil
}

func (u *User) Ref() engine.Ref { return engine.Ref{Type: "User", ID: u.ID} }

// Article is written by exactly one User and accumulates comment refs as
// readers reply. Deleted articles keep their state (the taxonomy has no
// tombstone kind); Deleted is just another field.
type Article struct {
	ID       string
	Title    string
	Body     string
	Author   engine.Ref
	Comments []engine.Ref
	Deleted  bool
}

type articleState struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Body     string       `json:"body"`
	Author   engine.Ref   `json:"author"`
	Comments []engine.Ref `json:"comments"`
	Deleted  bool         `json:"deleted"`
}

func (a *Article) Snapshot() (engine.State, error) {
	b, err := json.Marshal(articleState{
		ID: a.ID, Title: a.Title, Body: a.Body,
		Author: a.Author, Comments: a.Comments, Deleted: a.Deleted,
	})
	return engine.State(b), err
}

func (a *Article) Restore(s engine.State) error {
	var st articleState
	if err := json.Unmarshal(s, &st); err != nil {
		return err
	}
	a.ID, a.Title, a.Body = st.ID, st.Title, st.Body
	a.Author, a.Comments, a.Deleted = st.Author, st.Comments, st.Deleted
	return nil
}

func (a *Article) Ref() engine.Ref { return engine.Ref{Type: "Article", ID: a.ID} }

// Comment is a leaf entity: once created it exposes no further methods in
// this example, only a constructor.
type Comment struct {
	ID     string
	Author engine.Ref
	Text   string
}

type commentState struct {
	ID     string     `json:"id"`
	Author engine.Ref `json:"author"`
	Text   string     `json:"text"`
}

func (c *Comment) Snapshot() (engine.State, error) {
	b, err := json.Marshal(commentState{ID: c.ID, Author: c.Author, Text: c.Text})
	return engine.State(b), err
}

func (c *Comment) Restore(s engine.State) error {
	var st commentState
	if err := json.Unmarshal(s, &st); err != nil {
		return err
	}
	c.ID, c.Author, c.Text = st.ID, st.Author, st.Text
	return nil
}

func (c *Comment) Ref() engine.Ref { return engine.Ref{Type: "Comment", ID: c.ID} }

// NewArticle materializes an Article from a CreateEntityRequestSent carrying
// EntityType "Article". This is host-side work: engine never constructs
// entities itself (see engine.Ctx.Create), so whatever drives Complete is
// responsible for calling this once it observes the request.
func NewArticle(author engine.Ref, title, body string) *Article {
	return &Article{ID: uuid.NewString(), Author: author, Title: title, Body: body}
}

// NewComment materializes a Comment from a CreateEntityRequestSent carrying
// EntityType "Comment", mirroring NewArticle.
func NewComment(author engine.Ref, text string) *Comment {
	return &Comment{ID: uuid.NewString(), Author: author, Text: text}
}
