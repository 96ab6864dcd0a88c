// Package notify announces dashboard updates via the Telegram Bot API.
// After a refresh changes the leaderboard leader, the notifier sends the
// current top snacks as a MarkdownV2 message, with retry on delivery
// failures.
package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/snackclub/snackboard/internal/report"
)

// Client sends Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SendLeaderboard sends the top of the current leaderboard. topN caps the
// number of snacks listed; 0 means all.
func (c *Client) SendLeaderboard(rep *report.Report, topN int) error {
	msg := tgbotapi.NewMessage(c.chatID, FormatLeaderboard(rep, topN))
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// FormatLeaderboard renders the leaderboard message body in MarkdownV2.
func FormatLeaderboard(rep *report.Report, topN int) string {
	var b strings.Builder
	b.WriteString("🍿 *Snack leaderboard updated*\n\n")

	overview := fmt.Sprintf("%d ratings from %d people across %d snacks",
		rep.Overview.RatingCount, rep.Overview.PeopleCount, rep.Overview.SnackCount)
	b.WriteString(escapeMarkdownV2(overview))
	b.WriteString("\n\n")

	snacks := rep.Snacks
	if topN > 0 && len(snacks) > topN {
		snacks = snacks[:topN]
	}

	for i, snack := range snacks {
		medal := ""
		if i == 0 {
			medal = "🥇 "
		}
		line := fmt.Sprintf("%d. %s%s: %.2f", i+1, medal, snack.Label, snack.CombinedAverage)
		b.WriteString(escapeMarkdownV2(line))
		b.WriteString("\n")
	}

	return b.String()
}

// escapeMarkdownV2 escapes the characters Telegram's MarkdownV2 parser
// treats as markup.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
