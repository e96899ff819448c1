package bot

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/mlahtinen/telegram-haggle-bot/internal/appraisal"
	"github.com/mlahtinen/telegram-haggle-bot/internal/storage"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot drives the appraisal workflow over Telegram.
type Bot struct {
	tg         BotAPI
	state      BotState
	store      storage.UserStore
	apiBaseURL string
}

// NewBot creates a new Bot instance. The store may be nil in tests; tokens
// and last-job memory are then simply not persisted.
func NewBot(tg BotAPI, store storage.UserStore, apiBaseURL string) *Bot {
	bot := &Bot{
		tg:         tg,
		store:      store,
		apiBaseURL: apiBaseURL,
	}
	bot.state = bot.NewBotState()
	return bot
}

// HandleUpdate is the main update router.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update)
		return
	}

	if update.Message == nil {
		return
	}

	session := b.state.getUserSession(update.Message.From.ID)

	session.mu.Lock()
	defer session.mu.Unlock()
	session.touch()

	message := update.Message

	if message.Location != nil {
		b.handleLocation(session, message.Location)
		return
	}

	if message.IsCommand() {
		b.handleCommand(ctx, session, message)
		return
	}

	if len(message.Photo) > 0 || message.Document != nil {
		b.handleImage(ctx, session, message)
		return
	}

	session.reply(MsgUnknownInput)
}

func (b *Bot) handleCommand(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	command, args := parseCommand(message.Text)
	switch command {
	case "/start":
		session.reply(MsgStart)
	case "/help":
		session.reply(MsgHelp)
	case "/reset":
		session.workflow.Reset()
		session.replyAndRemoveCustomKeyboard(MsgWorkflowReset)
	case "/offers":
		jobID := ""
		if len(args) > 0 {
			jobID = args[0]
		}
		b.handleOffers(ctx, session, jobID)
	case "/token":
		b.handleTokenCommand(session, args)
	case "/logout":
		b.handleLogoutCommand(session)
	default:
		session.reply(MsgUnknownInput)
	}
}

// handleImage runs the capture path: extract the image attachment, download
// it, and move the workflow to preview. Non-image inputs are silently
// ignored and the stage does not change.
func (b *Bot) handleImage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	input := imageFromMessage(message)
	if input == nil {
		return
	}

	img, err := captureImage(ctx, b.tg.GetFileDirectURL, input)
	if err != nil {
		session.replyWithError(err)
		return
	}
	if img == nil {
		return
	}

	session.workflow.SelectImage(img)
	log.Info().Int64("userId", session.userId).Str("fileName", img.FileName).
		Str("mimeType", img.MimeType).Int("bytes", len(img.Data)).Msg("image captured")

	msg := tgbotapi.MessageConfig{Text: MsgPreview}
	msg.ReplyMarkup = previewKeyboard()
	session.replyWithMessage(msg)

	// Probe for location once per session. It never blocks anything: the
	// analyze request reads the slot opportunistically when it is built.
	if !session.locationAsked {
		session.locationAsked = true
		locMsg := tgbotapi.MessageConfig{Text: MsgShareLocation}
		locMsg.ReplyMarkup = locationRequestKeyboard()
		session.replyWithMessage(locMsg)
	}
}

func (b *Bot) handleLocation(session *UserSession, location *tgbotapi.Location) {
	if session.location.Set(location.Latitude, location.Longitude) {
		log.Info().Int64("userId", session.userId).Msg("location captured for session")
		session.replyAndRemoveCustomKeyboard(MsgLocationSaved)
	} else {
		session.replyAndRemoveCustomKeyboard(MsgLocationIgnored)
	}
}

// handleCallback routes inline keyboard interactions.
func (b *Bot) handleCallback(ctx context.Context, update tgbotapi.Update) {
	session := b.state.getUserSession(update.CallbackQuery.From.ID)

	// Acknowledge the tap so the client stops showing a spinner
	callback := tgbotapi.NewCallback(update.CallbackQuery.ID, "")
	if _, err := b.tg.Request(callback); err != nil {
		log.Warn().Err(err).Msg("failed to answer callback query")
	}

	data := update.CallbackQuery.Data

	session.mu.Lock()
	session.touch()
	session.mu.Unlock()

	switch {
	case data == CallbackAnalyze:
		b.handleAnalyze(ctx, session)
	case data == CallbackNegotiate:
		b.handleNegotiate(ctx, session)
	case data == CallbackRetry:
		session.mu.Lock()
		if session.workflow.Retry() {
			msg := tgbotapi.MessageConfig{Text: MsgPreview}
			msg.ReplyMarkup = previewKeyboard()
			session.replyWithMessage(msg)
		}
		session.mu.Unlock()
	case data == CallbackReset:
		session.mu.Lock()
		session.workflow.Reset()
		session.replyAndRemoveCustomKeyboard(MsgWorkflowReset)
		session.mu.Unlock()
	case strings.HasPrefix(data, CallbackOffersPrefix):
		session.mu.Lock()
		b.handleOffers(ctx, session, strings.TrimPrefix(data, CallbackOffersPrefix))
		session.mu.Unlock()
	default:
		log.Warn().Str("data", data).Msg("unknown callback data")
	}
}

// handleAnalyze submits the captured image for analysis. The session lock is
// released for the duration of the remote call; the generation guard drops
// the result if the workflow was reset meanwhile.
func (b *Bot) handleAnalyze(ctx context.Context, session *UserSession) {
	session.mu.Lock()
	gen, img, ok := session.workflow.BeginAnalysis()
	coords := session.location.Get()
	client := session.client
	if !ok {
		if session.workflow.Stage() == StageIdle {
			session.reply(MsgNothingToAnalyze)
		}
		session.mu.Unlock()
		return
	}
	session.reply(MsgAnalyzing)
	session.mu.Unlock()

	started := time.Now()
	result, err := client.Analyze(ctx, img.FileName, img.Data, coords)

	session.mu.Lock()
	defer session.mu.Unlock()

	if err != nil {
		if session.workflow.FailAnalysis(gen, err.Error()) {
			log.Warn().Err(err).Int64("userId", session.userId).Msg("analysis failed")
			msg := tgbotapi.MessageConfig{Text: formatReplyText(MsgAnalysisFailed, err)}
			msg.ReplyMarkup = errorKeyboard()
			session.replyWithMessage(msg)
		} else {
			log.Info().Int64("userId", session.userId).Msg("discarding stale analysis failure")
		}
		return
	}

	if !session.workflow.FinishAnalysis(gen, result) {
		log.Info().Int64("userId", session.userId).Str("analysisId", result.AnalysisID).
			Msg("discarding stale analysis result")
		return
	}

	log.Info().Int64("userId", session.userId).Str("analysisId", result.AnalysisID).
		Dur("took", time.Since(started)).Msg("analysis complete")

	msg := tgbotapi.MessageConfig{
		Text:      renderResults(result),
		ParseMode: tgbotapi.ModeMarkdown,
	}
	msg.ReplyMarkup = resultsKeyboard(len(result.LocalStores) > 0)
	session.replyWithMessage(msg)
}

// handleNegotiate dispatches the delegated store-calling job and hands the
// user off to the offer-review view keyed by the returned job id.
func (b *Bot) handleNegotiate(ctx context.Context, session *UserSession) {
	session.mu.Lock()
	gen, analysisID, ok := session.workflow.BeginNegotiation()
	client := session.client
	session.mu.Unlock()
	if !ok {
		return
	}

	job, err := client.Negotiate(ctx, analysisID)

	session.mu.Lock()
	defer session.mu.Unlock()

	if err != nil {
		if session.workflow.FailNegotiation(gen, err.Error()) {
			log.Warn().Err(err).Int64("userId", session.userId).Msg("negotiation dispatch failed")
			msg := tgbotapi.MessageConfig{Text: formatReplyText(MsgNegotiateFailed, err)}
			msg.ReplyMarkup = errorKeyboard()
			session.replyWithMessage(msg)
		}
		return
	}

	if !session.workflow.FinishNegotiation(gen, job.JobID) {
		log.Info().Int64("userId", session.userId).Str("jobId", job.JobID).
			Msg("discarding stale negotiation job")
		return
	}

	if b.store != nil {
		if err := b.store.SetLastJob(session.userId, job.JobID); err != nil {
			log.Warn().Err(err).Int64("userId", session.userId).Msg("failed to remember last job")
		}
	}

	log.Info().Int64("userId", session.userId).Str("jobId", job.JobID).Msg("negotiation job dispatched")

	msg := tgbotapi.MessageConfig{
		Text:      formatReplyText(MsgCalling, job.JobID, job.JobID),
		ParseMode: tgbotapi.ModeMarkdown,
	}
	msg.ReplyMarkup = offersKeyboard(job.JobID)
	session.replyWithMessage(msg)
}

func (b *Bot) handleTokenCommand(session *UserSession, args []string) {
	if len(args) != 1 || args[0] == "" {
		session.reply(MsgTokenUsage)
		return
	}
	token := args[0]

	if b.store != nil {
		if err := b.store.SetToken(session.userId, token); err != nil {
			session.replyWithError(err)
			return
		}
	}
	session.client = appraisal.NewClient(appraisal.ClientOpts{
		BaseURL: b.apiBaseURL,
		Token:   token,
	})
	session.reply(MsgTokenSaved)
}

func (b *Bot) handleLogoutCommand(session *UserSession) {
	if b.store != nil {
		if err := b.store.DeleteToken(session.userId); err != nil {
			session.replyWithError(err)
			return
		}
	}
	session.client = appraisal.NewClient(appraisal.ClientOpts{BaseURL: b.apiBaseURL})
	session.reply(MsgTokenCleared)
}

// RunReaper periodically expires idle workflows until ctx is cancelled.
func (b *Bot) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.state.expireIdle()
		}
	}
}
