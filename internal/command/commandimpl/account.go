package commandimpl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/orgball2608/social-feed-bot/internal/session"
)

func (c *CommandImpl) handleLogin(ctx context.Context, chatID int64, args string) error {
	token := strings.TrimSpace(args)
	if token == "" {
		_, err := c.Telegram.SendMessage(chatID, "Please provide a token: /login <token>")
		return err
	}

	cred := session.FromToken(token, c.Logger)
	if cred.IsAnonymous() {
		_, err := c.Telegram.SendMessage(chatID, "❌ That token could not be decoded.")
		return err
	}

	c.Reconciler.SetCredential(cred)
	c.refreshQuietly(ctx)

	_, err := c.Telegram.SendMessage(chatID, fmt.Sprintf("✅ Signed in as %s.", describe(cred)))
	return err
}

func (c *CommandImpl) handleLogout(ctx context.Context, chatID int64) error {
	c.Reconciler.SetCredential(session.Credential{})
	c.refreshQuietly(ctx)

	_, err := c.Telegram.SendMessage(chatID, "Signed out, continuing as an anonymous viewer.")
	return err
}

func (c *CommandImpl) handleWhoAmI(chatID int64) error {
	cred := c.Reconciler.Credential()
	if cred.IsAnonymous() {
		_, err := c.Telegram.SendMessage(chatID, "Anonymous viewer. Use /login <token> to sign in.")
		return err
	}

	text := "Signed in as " + describe(cred)
	if cred.Claims.Email != "" {
		text += "\nEmail: " + cred.Claims.Email
	}
	if issued := cred.Claims.IssuedTime(); !issued.IsZero() {
		text += "\nToken issued: " + issued.UTC().Format(time.RFC1123)
	}
	_, err := c.Telegram.SendMessage(chatID, text)
	return err
}

// refreshQuietly reloads the feed for a new viewer. A failure is already
// logged by the loader and the old posts stay.
func (c *CommandImpl) refreshQuietly(ctx context.Context) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	_ = c.Loader.Refresh(ctxWithTimeout)
}

func describe(cred session.Credential) string {
	name := cred.Claims.FullName
	if name == "" {
		name = cred.Claims.Username
	}
	if cred.Claims.Username != "" && name != cred.Claims.Username {
		name += " (@" + cred.Claims.Username + ")"
	}
	if name == "" {
		name = "an unnamed account"
	}
	return name
}
