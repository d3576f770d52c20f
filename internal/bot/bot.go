package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// telegramAPI is the subset of *tgbotapi.BotAPI the bot uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TaskCompleter completes a task and announces it to the recurrence flow.
type TaskCompleter interface {
	CompleteTask(ctx context.Context, taskID uint) (*model.Task, error)
}

// Bot delivers reminders to Telegram chats and accepts /complete commands.
type Bot struct {
	api           telegramAPI
	tasks         TaskCompleter
	defaultChatID int64
	logger        *slog.Logger
}

func New(token string, tasks TaskCompleter, defaultChatID int64, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	b := newBot(api, tasks, defaultChatID, logger)
	b.logger.Info("bot authorized", "account", api.Self.UserName)
	return b, nil
}

func newBot(api telegramAPI, tasks TaskCompleter, defaultChatID int64, logger *slog.Logger) *Bot {
	return &Bot{
		api:           api,
		tasks:         tasks,
		defaultChatID: defaultChatID,
		logger:        logger.With("component", "telegram"),
	}
}

// Start polls updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil || update.Message.Chat == nil {
			continue
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.logger.Error("handle message", "chat_id", update.Message.Chat.ID, "error", err)
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "Send /help for the list of commands.")
	}

	b.logger.Info("command received", "chat_id", msg.Chat.ID, "command", msg.Command(), "args", msg.CommandArguments())
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "complete", "done":
		return b.handleComplete(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := "there"
	if msg.From != nil && strings.TrimSpace(msg.From.FirstName) != "" {
		name = strings.TrimSpace(msg.From.FirstName)
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>TaskFlow will remind you here when tasks fall due.</b>\n\n"+
			"Your chat id is <code>%d</code>. Use it as the user id of your tasks to get reminders in this chat.\n\n"+
			"• /complete &lt;id&gt; — mark a task as done\n"+
			"• /help — hints",
		escape(name), msg.Chat.ID,
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Hints</b>\n" +
		"• /complete &lt;id&gt; — mark a task as done (for example, /complete 3). Recurring tasks get their next occurrence scheduled.\n" +
		"• /start — show your chat id"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleComplete(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, "Give the task id: /complete 12")
	}

	taskID, err := strconv.ParseUint(args, 10, 64)
	if err != nil || taskID == 0 {
		return b.sendText(msg.Chat.ID, "The task id must be a positive number.")
	}

	task, err := b.tasks.CompleteTask(ctx, uint(taskID))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return b.sendText(msg.Chat.ID, "Task not found.")
	case err != nil && task == nil:
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
	case err != nil:
		b.logger.Warn("completion saved but not announced", "task_id", task.ID, "error", err)
	}

	if task.IsRecurring {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Recurring task «%s» completed. The next one is on its way.", escape(task.Description)))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Task «%s» completed.", escape(task.Description)))
}

// Send delivers a notification to its user's chat. The user id is used as
// the chat id when it is numeric; otherwise the default chat is used, and
// with neither the notification is skipped.
func (b *Bot) Send(ctx context.Context, n model.Notification) error {
	chatID, ok := b.recipient(n.UserID)
	if !ok {
		b.logger.Debug("no telegram recipient, skipping", "notification_id", n.ID, "user_id", n.UserID)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.sendText(chatID, formatNotification(n)); err != nil {
		return fmt.Errorf("send notification %s to chat %d: %w", n.ID, chatID, err)
	}
	return nil
}

func (b *Bot) recipient(userID string) (int64, bool) {
	if id, err := strconv.ParseInt(strings.TrimSpace(userID), 10, 64); err == nil && id != 0 {
		return id, true
	}
	if b.defaultChatID != 0 {
		return b.defaultChatID, true
	}
	return 0, false
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func formatNotification(n model.Notification) string {
	var sb strings.Builder
	sb.WriteString("⏰ <b>")
	sb.WriteString(escape(n.Title))
	sb.WriteString("</b>")
	if body := strings.TrimSpace(n.Body); body != "" {
		sb.WriteString("\n")
		sb.WriteString(escape(body))
	}
	if n.TaskID != nil && n.TaskID.Valid {
		fmt.Fprintf(&sb, "\n\nDone? /complete %d", n.TaskID.ID)
	}
	return sb.String()
}

func escape(s string) string {
	return html.EscapeString(s)
}
