package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/zetareticula/forumsync/internal/commenttree"
	"github.com/zetareticula/forumsync/internal/forum"
	"github.com/zetareticula/forumsync/internal/model"
)

// Example session against the configured forum store: publish a post, like
// it, start a discussion and print the reply tree.
func main() {
	var (
		configPath string
		user       string
	)
	flag.StringVar(&configPath, "config", "", "Path to the client configuration file. Defaults to an in-memory store.")
	flag.StringVar(&user, "user", "demo", "Acting user id.")
	opts := zap.Options{Development: true}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	log := zap.New(zap.UseFlagOptions(&opts)).WithName("forumsync")
	if err := run(log, configPath, user); err != nil {
		log.Error(err, "session failed")
		os.Exit(1)
	}
}

func run(log logr.Logger, configPath, user string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg := forum.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = forum.LoadConfig(configPath); err != nil {
			return err
		}
	}
	backend, err := forum.OpenRemote(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	reg := prometheus.NewRegistry()
	client := forum.NewClient(backend, model.StaticIdentity{UserID: user, Name: user},
		forum.WithConfig(cfg),
		forum.WithLogger(log),
		forum.WithRegisterer(reg))
	defer client.Close()

	post, err := client.CreatePost(ctx, "Hello", "First post from the sync client.", []string{"demo"})
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	if err := client.LikePost(ctx, post.ID); err != nil {
		return fmt.Errorf("like post: %w", err)
	}
	root, err := client.CreateComment(ctx, post.ID, nil, "Welcome!")
	if err != nil {
		return fmt.Errorf("comment: %w", err)
	}
	if _, err := client.CreateComment(ctx, post.ID, &root.ID, "Thanks."); err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	if err := client.LikeComment(ctx, post.ID, root.ID); err != nil {
		return fmt.Errorf("like comment: %w", err)
	}
	if err := client.RefreshStale(ctx); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	p, err := client.GetPost(ctx, post.ID)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%d likes, %d comments)\n", p.Title, p.Likes, p.CommentsCount)

	tree, err := client.GetCommentTree(ctx, post.ID, forum.OrderCreated)
	if err != nil {
		return err
	}
	commenttree.Walk(tree, func(n *commenttree.Node, depth int) bool {
		reply := ""
		if client.CanReply(depth) {
			reply = " [reply]"
		}
		fmt.Printf("%s- %s: %s (%d likes)%s\n", strings.Repeat("  ", depth+1),
			n.Comment.AuthorName, n.Comment.Content, n.Comment.Likes, reply)
		return true
	})

	families, err := reg.Gather()
	if err != nil {
		return err
	}
	log.Info("session complete", "metricFamilies", len(families))
	return nil
}
