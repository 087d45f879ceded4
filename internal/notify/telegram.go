package notify

import (
	"fmt"
	"html"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSink delivers reminders as messages to a single chat. Useful
// when the planner runs headless on a machine the user is not watching.
type TelegramSink struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Printf("[info] reminder sink authorized on account %s", api.Self.UserName)
	return &TelegramSink{api: api, chatID: chatID}, nil
}

func (s *TelegramSink) Deliver(taskID uint, title string, firesAt time.Time) {
	text := fmt.Sprintf("⏰ <b>%s</b>\n🗓 %s", html.EscapeString(title), firesAt.Format("02.01.2006 15:04"))
	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.api.Send(msg); err != nil {
		log.Printf("[warn] deliver reminder for task %d: %v", taskID, err)
	}
}
