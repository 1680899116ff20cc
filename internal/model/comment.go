package model

import (
	"strings"
	"time"
)

// Comment is a flat comment record. ParentID is nil for top-level comments.
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"postId"`
	ParentID   *string   `json:"parentId"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	CreatedAt  time.Time `json:"createdAt"`
	Likes      int64     `json:"likes"`
}

// DeepCopy returns an independent copy of the comment.
func (c Comment) DeepCopy() Comment {
	out := c
	out.ParentID = copyStringPtr(c.ParentID)
	return out
}

// IsReply reports whether the comment names a parent.
func (c Comment) IsReply() bool {
	return c.ParentID != nil && *c.ParentID != ""
}

// Validate checks a comment received from the remote store.
func (c Comment) Validate() error {
	switch {
	case c.ID == "":
		return &ValidationError{Kind: KindComment, Field: "id", Reason: "empty"}
	case c.PostID == "":
		return &ValidationError{Kind: KindComment, Field: "postId", Reason: "empty"}
	case c.Likes < 0:
		return &ValidationError{Kind: KindComment, Field: "likes", Reason: "negative"}
	}
	return nil
}

// Comments is the flat comment list of one post in ascending creation order.
type Comments []Comment

func (cs Comments) EntityKind() string { return KindComments }

func (cs Comments) DeepCopyEntity() Entity {
	if cs == nil {
		return Comments(nil)
	}
	out := make(Comments, len(cs))
	for i, c := range cs {
		out[i] = c.DeepCopy()
	}
	return out
}

// Validate checks every comment and that all of them belong to postID.
func (cs Comments) Validate(postID string) error {
	for _, c := range cs {
		if err := c.Validate(); err != nil {
			return err
		}
		if c.PostID != postID {
			return &ValidationError{Kind: KindComment, Field: "postId", Reason: "belongs to post " + c.PostID}
		}
	}
	return nil
}

// NewComment is the record the client submits to create a comment or reply.
type NewComment struct {
	PostID     string  `json:"postId"`
	ParentID   *string `json:"parentId"`
	Content    string  `json:"content"`
	AuthorID   string  `json:"authorId"`
	AuthorName string  `json:"authorName"`
}

// Validate trims the content and checks required fields.
func (n *NewComment) Validate() error {
	n.Content = strings.TrimSpace(n.Content)
	switch {
	case n.PostID == "":
		return &ValidationError{Kind: KindComment, Field: "postId", Reason: "required"}
	case n.Content == "":
		return &ValidationError{Kind: KindComment, Field: "content", Reason: "required"}
	case n.AuthorID == "":
		return &ValidationError{Kind: KindComment, Field: "authorId", Reason: "required"}
	}
	if n.ParentID != nil && *n.ParentID == "" {
		n.ParentID = nil
	}
	return nil
}

// CommentPatch is a partial update. Nil fields are left untouched.
type CommentPatch struct {
	Content *string `json:"content,omitempty"`
	Likes   *int64  `json:"likes,omitempty"`
}

// Validate rejects negative counters.
func (cp CommentPatch) Validate() error {
	if cp.Likes != nil && *cp.Likes < 0 {
		return &ValidationError{Kind: KindComment, Field: "likes", Reason: "negative"}
	}
	return nil
}

// ApplyTo writes the non-nil fields onto c.
func (cp CommentPatch) ApplyTo(c *Comment) {
	if cp.Content != nil {
		c.Content = *cp.Content
	}
	if cp.Likes != nil {
		c.Likes = *cp.Likes
	}
}
