package forum

import (
	"context"

	"github.com/zetareticula/forumsync/internal/cache"
	"github.com/zetareticula/forumsync/internal/invalidation"
	"github.com/zetareticula/forumsync/internal/model"
	"github.com/zetareticula/forumsync/internal/mutation"
)

func editPost(edit func(p *model.Post)) cache.Projection {
	return func(v model.Entity) (model.Entity, error) {
		p := v.(model.Post)
		edit(&p)
		return p, nil
	}
}

// postCounter returns the value a post counter should be written as. A cached
// post yields its projected value; otherwise the remote value plus one.
func (c *Client) postCounter(ctx context.Context, applied mutation.Applied, id string, field func(model.Post) int64) (int64, error) {
	if p, ok := applied.Post(cache.PostKey(id)); ok {
		return field(p), nil
	}
	p, err := c.remote.FetchPost(ctx, id)
	if err != nil {
		return 0, err
	}
	return field(p) + 1, nil
}

// bumpCommentsCount writes the raised comment count of a post. A transport
// failure is retried once since the comment it accounts for already exists.
func (c *Client) bumpCommentsCount(ctx context.Context, applied mutation.Applied, postID string) error {
	commentsCount := func(p model.Post) int64 { return p.CommentsCount }
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var n int64
		if n, err = c.postCounter(ctx, applied, postID, commentsCount); err != nil {
			return err
		}
		if _, err = c.remote.UpdatePost(ctx, postID, model.PostPatch{CommentsCount: &n}); err == nil || !model.IsTransport(err) {
			return err
		}
	}
	return err
}

// LikePost adds one like to a post.
func (c *Client) LikePost(ctx context.Context, postID string) error {
	if err := requireID(model.KindPost, postID); err != nil {
		return err
	}
	likes := func(p model.Post) int64 { return p.Likes }
	return c.engine.Run(ctx, mutation.Mutation{
		Kind:   invalidation.LikePost,
		Target: invalidation.Target{PostID: postID},
		Steps: []mutation.Step{
			{Key: cache.PostKey(postID), Project: editPost(func(p *model.Post) { p.Likes++ })},
		},
		Write: func(ctx context.Context, applied mutation.Applied) error {
			n, err := c.postCounter(ctx, applied, postID, likes)
			if err != nil {
				return err
			}
			_, err = c.remote.UpdatePost(ctx, postID, model.PostPatch{Likes: &n})
			return err
		},
	})
}

// IncrementViews adds one view to a post.
func (c *Client) IncrementViews(ctx context.Context, postID string) error {
	if err := requireID(model.KindPost, postID); err != nil {
		return err
	}
	views := func(p model.Post) int64 { return p.Views }
	return c.engine.Run(ctx, mutation.Mutation{
		Kind:   invalidation.IncrementViews,
		Target: invalidation.Target{PostID: postID},
		Steps: []mutation.Step{
			{Key: cache.PostKey(postID), Project: editPost(func(p *model.Post) { p.Views++ })},
		},
		Write: func(ctx context.Context, applied mutation.Applied) error {
			n, err := c.postCounter(ctx, applied, postID, views)
			if err != nil {
				return err
			}
			_, err = c.remote.UpdatePost(ctx, postID, model.PostPatch{Views: &n})
			return err
		},
	})
}

func findComment(cs model.Comments, id string) int {
	for i := range cs {
		if cs[i].ID == id {
			return i
		}
	}
	return -1
}

// LikeComment adds one like to a comment of a post.
func (c *Client) LikeComment(ctx context.Context, postID, commentID string) error {
	if err := requireID(model.KindPost, postID); err != nil {
		return err
	}
	if err := requireID(model.KindComment, commentID); err != nil {
		return err
	}
	if IsPending(commentID) {
		return &model.ValidationError{Kind: model.KindComment, Field: "id", Reason: "not yet confirmed"}
	}
	key := cache.CommentsKey(postID)
	return c.engine.Run(ctx, mutation.Mutation{
		Kind:   invalidation.LikeComment,
		Target: invalidation.Target{PostID: postID, CommentID: commentID},
		Steps: []mutation.Step{{Key: key, Project: func(v model.Entity) (model.Entity, error) {
			cs := v.(model.Comments)
			i := findComment(cs, commentID)
			if i < 0 {
				return nil, &model.NotFoundError{Kind: model.KindComment, ID: commentID}
			}
			cs[i].Likes++
			return cs, nil
		}}},
		Write: func(ctx context.Context, applied mutation.Applied) error {
			var likes int64
			if cs, ok := applied.Comments(key); ok {
				likes = cs[findComment(cs, commentID)].Likes
			} else {
				cs, err := c.remote.FetchComments(ctx, postID)
				if err != nil {
					return err
				}
				i := findComment(cs, commentID)
				if i < 0 {
					return &model.NotFoundError{Kind: model.KindComment, ID: commentID}
				}
				likes = cs[i].Likes + 1
			}
			_, err := c.remote.UpdateComment(ctx, commentID, model.CommentPatch{Likes: &likes})
			return err
		},
	})
}

// CreateComment adds a comment to a post as the acting user. A nil or empty
// parentID creates a root comment. The comment is visible in the cached list
// under a pending id until the list is refetched, and the post's comment count
// is raised by one in the same mutation.
//
// When the comment is stored but the count update fails, the created comment
// is returned together with a *model.PartialWriteError. The comment must not
// be created again; the cached post and comments are refetched.
func (c *Client) CreateComment(ctx context.Context, postID string, parentID *string, content string) (model.Comment, error) {
	who, err := c.identity.Identity()
	if err != nil {
		return model.Comment{}, err
	}
	nc := model.NewComment{
		PostID:     postID,
		ParentID:   parentID,
		Content:    content,
		AuthorID:   who.UserID,
		AuthorName: who.Name,
	}
	if err := nc.Validate(); err != nil {
		return model.Comment{}, err
	}
	if nc.ParentID != nil && IsPending(*nc.ParentID) {
		return model.Comment{}, &model.ValidationError{Kind: model.KindComment, Field: "parentId", Reason: "not yet confirmed"}
	}
	provisional := model.Comment{
		ID:         newPendingID(),
		PostID:     nc.PostID,
		ParentID:   nc.ParentID,
		Content:    nc.Content,
		AuthorID:   nc.AuthorID,
		AuthorName: nc.AuthorName,
		CreatedAt:  c.now().UTC(),
	}
	var created model.Comment
	err = c.engine.Run(ctx, mutation.Mutation{
		Kind:   invalidation.CreateComment,
		Target: invalidation.Target{PostID: postID},
		Steps: []mutation.Step{
			{Key: cache.CommentsKey(postID), Project: func(v model.Entity) (model.Entity, error) {
				return append(v.(model.Comments), provisional), nil
			}},
			{Key: cache.PostKey(postID), Project: editPost(func(p *model.Post) { p.CommentsCount++ })},
		},
		Write: func(ctx context.Context, applied mutation.Applied) error {
			var err error
			if created, err = c.remote.CreateComment(ctx, nc); err != nil {
				return err
			}
			if err := c.bumpCommentsCount(ctx, applied, postID); err != nil {
				return &model.PartialWriteError{Op: "update comments count of post " + postID, Err: err}
			}
			return nil
		},
	})
	if err != nil && !model.IsPartialWrite(err) {
		return model.Comment{}, err
	}
	return created, err
}

// CreatePost publishes a post as the acting user. The post heads the cached
// feed under a pending id until the feed is refetched.
func (c *Client) CreatePost(ctx context.Context, title, content string, tags []string) (model.Post, error) {
	who, err := c.identity.Identity()
	if err != nil {
		return model.Post{}, err
	}
	np := model.NewPost{
		Title:      title,
		Content:    content,
		Tags:       tags,
		AuthorID:   who.UserID,
		AuthorName: who.Name,
	}
	if err := np.Validate(); err != nil {
		return model.Post{}, err
	}
	provisional := model.Post{
		ID:         newPendingID(),
		Title:      np.Title,
		Content:    np.Content,
		Tags:       np.Tags,
		AuthorID:   np.AuthorID,
		AuthorName: np.AuthorName,
		CreatedAt:  c.now().UTC(),
	}

	var created model.Post
	err = c.engine.Run(ctx, mutation.Mutation{
		Kind: invalidation.CreatePost,
		Steps: []mutation.Step{{Key: cache.PostsKey(), Project: func(v model.Entity) (model.Entity, error) {
			return append(model.Posts{provisional}, v.(model.Posts)...), nil
		}}},
		Write: func(ctx context.Context, _ mutation.Applied) error {
			var err error
			created, err = c.remote.CreatePost(ctx, np)
			return err
		},
	})
	if err != nil {
		return model.Post{}, err
	}
	return created, nil
}
