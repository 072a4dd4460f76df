package storage

import (
	"context"
	"fmt"
	"os"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/KMINALI2005/School-management-system/internal/config"
)

// Telegram rejects bot uploads above this size.
const telegramMaxFileMB = 50

// TelegramStorage sends archives, or a short notice about them, to a chat.
// It cannot list or delete, so retention never touches it.
type TelegramStorage struct {
	bot        *tgbotapi.BotAPI
	chatID     int64
	sendFile   bool
	notifyOnly bool
}

func NewTelegram(cfg *config.UploadTarget) (*TelegramStorage, error) {
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat_id %q: %w", cfg.ChatID, err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramStorage{
		bot:        bot,
		chatID:     chatID,
		sendFile:   cfg.SendFile,
		notifyOnly: cfg.NotifyOnly,
	}, nil
}

func (t *TelegramStorage) Upload(ctx context.Context, localPath string, remoteName string) error {
	fileInfo, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	fileSizeMB := float64(fileInfo.Size()) / (1024 * 1024)

	if t.notifyOnly || !t.sendFile || fileSizeMB > telegramMaxFileMB {
		message := fmt.Sprintf(
			"✅ School backup created\n\n"+
				"📁 File: %s\n"+
				"📊 Size: %.2f MB\n"+
				"🕐 Time: %s",
			remoteName,
			fileSizeMB,
			fileInfo.ModTime().Format("2006-01-02 15:04:05"),
		)
		return t.Notify(ctx, message)
	}

	file := tgbotapi.NewDocument(t.chatID, tgbotapi.FilePath(localPath))
	file.Caption = fmt.Sprintf("📦 Backup: %s (%.2f MB)", remoteName, fileSizeMB)

	if _, err := t.bot.Send(file); err != nil {
		return fmt.Errorf("failed to send telegram file: %w", err)
	}
	return nil
}

func (t *TelegramStorage) List(ctx context.Context) ([]string, error) {
	return []string{}, nil
}

func (t *TelegramStorage) Delete(ctx context.Context, remoteName string) error {
	return nil
}

// Notify sends a plain text message to the configured chat.
func (t *TelegramStorage) Notify(ctx context.Context, message string) error {
	msg := tgbotapi.NewMessage(t.chatID, message)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}
