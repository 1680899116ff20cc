package model

import "context"

// Remote is the remote read/write interface of the forum store. Failures are
// reported as *TransportError, missing entities as *NotFoundError.
type Remote interface {
	FetchPost(ctx context.Context, id string) (Post, error)
	// FetchPosts returns the feed, newest first.
	FetchPosts(ctx context.Context) (Posts, error)
	// FetchComments returns the comments of one post ordered by creation time.
	FetchComments(ctx context.Context, postID string) (Comments, error)
	CreateComment(ctx context.Context, c NewComment) (Comment, error)
	CreatePost(ctx context.Context, p NewPost) (Post, error)
	UpdatePost(ctx context.Context, id string, patch PostPatch) (Post, error)
	UpdateComment(ctx context.Context, id string, patch CommentPatch) (Comment, error)
}
