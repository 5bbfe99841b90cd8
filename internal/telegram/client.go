// Package telegram wraps the Bot API: operator messages, channel membership
// lookups and the operator commands.
package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	tgModels "github.com/go-telegram/bot/models"

	"github.com/core-coin/rota/internal/models"
	"github.com/core-coin/rota/pkg/logger"
)

type Client struct {
	logger *logger.Logger
	bot    *bot.Bot
}

// NewClient creates the bot. Updates are not polled until Start is called.
func NewClient(token string, logger *logger.Logger, opts ...bot.Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	c := &Client{logger: logger.With("component", "telegram")}

	opts = append([]bot.Option{bot.WithDefaultHandler(c.defaultHandler)}, opts...)
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	c.bot = b
	return c, nil
}

// Start polls for updates until ctx is done. It blocks.
func (c *Client) Start(ctx context.Context) {
	c.logger.Info("Starting Telegram bot")
	c.bot.Start(ctx)
	c.logger.Info("Telegram bot stopped")
}

// RegisterCommands wires the operator commands into the bot.
func (c *Client) RegisterCommands(cmds *Commands) {
	for _, name := range cmds.Names() {
		command := name
		c.bot.RegisterHandler(bot.HandlerTypeMessageText, command, bot.MatchTypePrefix,
			func(ctx context.Context, _ *bot.Bot, update *tgModels.Update) {
				c.handleCommand(ctx, cmds, update)
			})
	}
}

func (c *Client) handleCommand(ctx context.Context, cmds *Commands, update *tgModels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	reply, ok := cmds.Reply(ctx, update.Message.From.ID, update.Message.Text)
	if !ok {
		c.logger.Debugw("Ignoring command", "from", update.Message.From.ID, "text", update.Message.Text)
		return
	}
	if err := c.SendMessage(ctx, update.Message.Chat.ID, reply); err != nil {
		c.logger.Errorw("Failed to reply to command", "chat_id", update.Message.Chat.ID, "error", err)
	}
}

func (c *Client) defaultHandler(ctx context.Context, _ *bot.Bot, update *tgModels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	c.logger.Debugw("Telegram update", "username", update.Message.From.Username, "text", update.Message.Text)
}

// SendMessage sends a plain text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
	return nil
}

// GetMembershipStatus looks up a user's status in a public channel.
func (c *Client) GetMembershipStatus(ctx context.Context, channelUsername string, userID int64) (models.MembershipStatus, error) {
	member, err := c.bot.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: "@" + channelUsername,
		UserID: userID,
	})
	if err != nil {
		return models.MembershipError, fmt.Errorf("failed to get chat member: %w", err)
	}
	return membershipStatus(member), nil
}

func membershipStatus(member *tgModels.ChatMember) models.MembershipStatus {
	if member == nil {
		return models.MembershipError
	}
	switch status := models.MembershipStatus(member.Type); status {
	case models.MembershipCreator, models.MembershipAdministrator, models.MembershipMember,
		models.MembershipRestricted, models.MembershipLeft, models.MembershipKicked:
		return status
	}
	return models.MembershipError
}

var (
	_ models.MessageSender    = (*Client)(nil)
	_ models.MembershipLookup = (*Client)(nil)
)
