package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostDeepCopyIsIndependent(t *testing.T) {
	p := Post{ID: "p1", Tags: []string{"go", "cache"}, Likes: 5}
	c := p.DeepCopyEntity().(Post)
	c.Tags[0] = "rust"
	c.Likes++

	assert.Equal(t, "go", p.Tags[0])
	assert.Equal(t, int64(5), p.Likes)
}

func TestPostDeepCopyKeepsEmptyTags(t *testing.T) {
	p := Post{ID: "p1", Tags: []string{}}
	assert.Equal(t, p, p.DeepCopy())

	var nilTags Post
	assert.Nil(t, nilTags.DeepCopy().Tags)
}

func TestCommentsDeepCopyCopiesParent(t *testing.T) {
	cs := Comments{
		{ID: "1", PostID: "p"},
		{ID: "2", PostID: "p", ParentID: StringPtr("1")},
	}
	cp := cs.DeepCopyEntity().(Comments)
	*cp[1].ParentID = "x"
	cp[0].Likes = 10

	assert.Equal(t, "1", *cs[1].ParentID)
	assert.Zero(t, cs[0].Likes)
	assert.Nil(t, Comments(nil).DeepCopyEntity().(Comments))
}

func TestCommentsValidateRejectsForeignPost(t *testing.T) {
	cs := Comments{{ID: "1", PostID: "p"}, {ID: "2", PostID: "q"}}
	err := cs.Validate("p")

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "postId", ve.Field)
}

func TestNewPostValidate(t *testing.T) {
	np := NewPost{Title: "  Hello ", Content: "body", AuthorID: "u1", Tags: []string{" go ", "", "web"}}
	require.NoError(t, np.Validate())
	assert.Equal(t, "Hello", np.Title)
	assert.Equal(t, []string{"go", "web"}, np.Tags)

	missing := NewPost{Title: " ", Content: "body", AuthorID: "u1"}
	assert.Error(t, missing.Validate())
}

func TestNewCommentValidate(t *testing.T) {
	nc := NewComment{PostID: "p", Content: "  hi  ", AuthorID: "u", ParentID: StringPtr("")}
	require.NoError(t, nc.Validate())
	assert.Equal(t, "hi", nc.Content)
	assert.Nil(t, nc.ParentID)

	empty := NewComment{PostID: "p", Content: "   ", AuthorID: "u"}
	assert.Error(t, empty.Validate())
}

func TestPatchApply(t *testing.T) {
	p := Post{ID: "p", Likes: 1, Views: 2, CommentsCount: 3, CreatedAt: time.Unix(10, 0)}
	PostPatch{Likes: Int64Ptr(7)}.ApplyTo(&p)
	assert.Equal(t, int64(7), p.Likes)
	assert.Equal(t, int64(2), p.Views)

	assert.Error(t, PostPatch{Views: Int64Ptr(-1)}.Validate())
	assert.Error(t, CommentPatch{Likes: Int64Ptr(-1)}.Validate())
}

func TestErrorClassification(t *testing.T) {
	te := fmt.Errorf("like: %w", &TransportError{Op: "updatePost", Err: errors.New("503")})
	assert.True(t, IsTransport(te))
	assert.True(t, Classified(te))
	assert.True(t, IsNotFound(&NotFoundError{Kind: KindPost, ID: "x"}))
	assert.False(t, Classified(errors.New("boom")))

	pw := &PartialWriteError{Op: "count", Err: errors.New("503")}
	assert.True(t, IsPartialWrite(fmt.Errorf("comment: %w", pw)))
	assert.True(t, Classified(pw))
	assert.False(t, IsTransport(pw))
}

func TestStaticIdentity(t *testing.T) {
	_, err := StaticIdentity{}.Identity()
	assert.ErrorIs(t, err, ErrUnauthenticated)

	id, err := StaticIdentity{UserID: "u1", Name: "Ada"}.Identity()
	require.NoError(t, err)
	assert.Equal(t, "Ada", id.Name)
}
