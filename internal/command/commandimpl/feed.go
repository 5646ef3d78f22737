package commandimpl

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

func (c *CommandImpl) handleFeed(ctx context.Context, chatID int64) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if err := c.Loader.Refresh(ctxWithTimeout); err != nil {
		c.Telegram.SendMessage(chatID, "⚠️ Could not load the feed, showing the last known posts.")
	}

	posts := c.Reconciler.Posts()
	if len(posts) == 0 {
		_, err := c.Telegram.SendMessage(chatID, "The feed is empty.")
		return err
	}

	c.Renderer.Attach(chatID)
	return nil
}

func (c *CommandImpl) handleComments(chatID int64, args string) error {
	postID, ok := c.parsePostID(chatID, args, "/comments <post_id>")
	if !ok {
		return nil
	}

	card, found := c.Reconciler.Card(postID)
	if !found {
		_, err := c.Telegram.SendMessage(chatID, fmt.Sprintf("Post #%d is not in the feed.", postID))
		return err
	}
	card.ToggleComments()
	return nil
}

// parsePostID reads a post id argument and answers with usage on failure.
func (c *CommandImpl) parsePostID(chatID int64, args, usage string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(args), "#"), 10, 64)
	if err != nil || id <= 0 {
		c.Telegram.SendMessage(chatID, "Please provide a post id: "+usage)
		return 0, false
	}
	return id, true
}
