package bot

import (
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/mlahtinen/telegram-haggle-bot/internal/appraisal"
)

// MessageSender abstracts the ability to send Telegram messages, decoupling
// UserSession from the full Bot for testability.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// UserSession holds one user's workflow and collaborators.
//
// Threading model: updates are handled in per-update goroutines; the session
// mutex serializes them so only one handler mutates the workflow at a time.
// Handlers release the mutex around remote calls and re-apply results through
// the workflow's generation-guarded Finish*/Fail* methods, so a reset issued
// while a request is outstanding simply makes its result stale.
type UserSession struct {
	userId int64
	sender MessageSender
	client *appraisal.Client
	mu     sync.Mutex

	workflow *Workflow
	location locationSlot

	// locationAsked tracks the one-shot location prompt; the probe happens
	// once per session whether or not the user ever answers.
	locationAsked bool

	lastInteraction time.Time
}

// touch records user activity for idle expiry.
func (s *UserSession) touch() {
	s.lastInteraction = time.Now()
}

func (s *UserSession) replyWithError(err error) tgbotapi.Message {
	log.Error().Stack().Err(err).Send()
	return s.reply("Unexpected error: %s", err)
}

func (s *UserSession) replyWithMessage(msg tgbotapi.MessageConfig) tgbotapi.Message {
	msg.ChatID = s.userId
	sent, err := s.sender.Send(msg)
	if err != nil {
		log.Error().Stack().
			Interface("msg", msg).
			Err(fmt.Errorf("failed to send reply message: %w", err)).Send()
	}
	return sent
}

func (s *UserSession) reply(text string, a ...any) tgbotapi.Message {
	msg := tgbotapi.MessageConfig{
		Text:      formatReplyText(text, a...),
		ParseMode: tgbotapi.ModeMarkdown,
	}
	return s.replyWithMessage(msg)
}

// replyAndRemoveCustomKeyboard sends a reply while removing any custom reply
// keyboard (e.g. a leftover location prompt) still attached to the chat.
func (s *UserSession) replyAndRemoveCustomKeyboard(text string, a ...any) tgbotapi.Message {
	msg := tgbotapi.MessageConfig{
		Text:      formatReplyText(text, a...),
		ParseMode: tgbotapi.ModeMarkdown,
	}
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	return s.replyWithMessage(msg)
}
