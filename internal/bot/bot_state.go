package bot

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mlahtinen/telegram-haggle-bot/internal/appraisal"
)

// WorkflowTimeout is how long a workflow may sit idle before the reaper
// resets it and releases its preview handle.
const WorkflowTimeout = 30 * time.Minute

type BotState struct {
	bot      *Bot
	mu       sync.Mutex
	sessions map[int64]*UserSession
}

func (bs *BotState) newUserSession(userId int64) *UserSession {
	token := ""
	if bs.bot.store != nil {
		t, err := bs.bot.store.GetToken(userId)
		if err != nil {
			log.Warn().Err(err).Int64("userId", userId).Msg("failed to load stored token")
		} else {
			token = t
		}
	}

	session := UserSession{
		userId: userId,
		sender: bs.bot.tg,
		client: appraisal.NewClient(appraisal.ClientOpts{
			BaseURL: bs.bot.apiBaseURL,
			Token:   token,
		}),
		workflow:        NewWorkflow(),
		lastInteraction: time.Now(),
	}
	log.Info().Int64("userId", userId).Bool("hasToken", token != "").Msg("new user session created")
	return &session
}

func (bs *BotState) getUserSession(userId int64) *UserSession {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	session, ok := bs.sessions[userId]
	if !ok {
		session = bs.newUserSession(userId)
		bs.sessions[userId] = session
	}
	return session
}

func (b *Bot) NewBotState() BotState {
	return BotState{
		bot:      b,
		sessions: make(map[int64]*UserSession),
	}
}

// expireIdle resets workflows that have been inactive past WorkflowTimeout,
// releasing their captured images. The user is told their appraisal expired.
func (bs *BotState) expireIdle() {
	bs.mu.Lock()
	sessions := make([]*UserSession, 0, len(bs.sessions))
	for _, session := range bs.sessions {
		sessions = append(sessions, session)
	}
	bs.mu.Unlock()

	for _, session := range sessions {
		session.mu.Lock()
		expired := session.workflow.Stage() != StageIdle &&
			time.Since(session.lastInteraction) > WorkflowTimeout
		if expired {
			session.workflow.Reset()
		}
		session.mu.Unlock()

		if expired {
			log.Info().Int64("userId", session.userId).Msg("workflow expired due to inactivity")
			session.replyAndRemoveCustomKeyboard(MsgWorkflowExpired)
		}
	}
}
