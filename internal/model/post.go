package model

import (
	"strings"
	"time"
)

// Post is a forum post as returned by the remote store.
type Post struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Tags          []string  `json:"tags,omitempty"`
	AuthorID      string    `json:"authorId"`
	AuthorName    string    `json:"authorName"`
	CreatedAt     time.Time `json:"createdAt"`
	Likes         int64     `json:"likes"`
	Views         int64     `json:"views"`
	CommentsCount int64     `json:"commentsCount"`
}

func (p Post) EntityKind() string { return KindPost }

func (p Post) DeepCopyEntity() Entity { return p.DeepCopy() }

// DeepCopy returns an independent copy of the post.
func (p Post) DeepCopy() Post {
	out := p
	out.Tags = copyStrings(p.Tags)
	return out
}

// Validate checks a post received from the remote store.
func (p Post) Validate() error {
	switch {
	case p.ID == "":
		return &ValidationError{Kind: KindPost, Field: "id", Reason: "empty"}
	case p.Likes < 0:
		return &ValidationError{Kind: KindPost, Field: "likes", Reason: "negative"}
	case p.Views < 0:
		return &ValidationError{Kind: KindPost, Field: "views", Reason: "negative"}
	case p.CommentsCount < 0:
		return &ValidationError{Kind: KindPost, Field: "commentsCount", Reason: "negative"}
	}
	return nil
}

// Posts is the feed: every post, newest first.
type Posts []Post

func (ps Posts) EntityKind() string { return KindPosts }

func (ps Posts) DeepCopyEntity() Entity {
	if ps == nil {
		return Posts(nil)
	}
	out := make(Posts, len(ps))
	for i, p := range ps {
		out[i] = p.DeepCopy()
	}
	return out
}

// Validate checks every post in the feed.
func (ps Posts) Validate() error {
	for _, p := range ps {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NewPost is the record the client submits to create a post. The remote store
// assigns the id, creation time and zeroed counters.
type NewPost struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags,omitempty"`
	AuthorID   string   `json:"authorId"`
	AuthorName string   `json:"authorName"`
}

// Validate trims the record and checks required fields.
func (n *NewPost) Validate() error {
	n.Title = strings.TrimSpace(n.Title)
	n.Content = strings.TrimSpace(n.Content)
	if n.Title == "" {
		return &ValidationError{Kind: KindPost, Field: "title", Reason: "required"}
	}
	if n.Content == "" {
		return &ValidationError{Kind: KindPost, Field: "content", Reason: "required"}
	}
	if n.AuthorID == "" {
		return &ValidationError{Kind: KindPost, Field: "authorId", Reason: "required"}
	}
	tags := n.Tags[:0:0]
	for _, t := range n.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	n.Tags = tags
	return nil
}

// PostPatch is a partial update. Nil fields are left untouched.
type PostPatch struct {
	Title         *string `json:"title,omitempty"`
	Content       *string `json:"content,omitempty"`
	Likes         *int64  `json:"likes,omitempty"`
	Views         *int64  `json:"views,omitempty"`
	CommentsCount *int64  `json:"commentsCount,omitempty"`
}

// Validate rejects negative counters.
func (pp PostPatch) Validate() error {
	for field, v := range map[string]*int64{"likes": pp.Likes, "views": pp.Views, "commentsCount": pp.CommentsCount} {
		if v != nil && *v < 0 {
			return &ValidationError{Kind: KindPost, Field: field, Reason: "negative"}
		}
	}
	return nil
}

// ApplyTo writes the non-nil fields onto p.
func (pp PostPatch) ApplyTo(p *Post) {
	if pp.Title != nil {
		p.Title = *pp.Title
	}
	if pp.Content != nil {
		p.Content = *pp.Content
	}
	if pp.Likes != nil {
		p.Likes = *pp.Likes
	}
	if pp.Views != nil {
		p.Views = *pp.Views
	}
	if pp.CommentsCount != nil {
		p.CommentsCount = *pp.CommentsCount
	}
}
