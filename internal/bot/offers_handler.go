package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// handleOffers is the offer-review view: it fetches the current snapshot for
// a job and renders it. Called with the session lock held; the lock is
// released for the duration of the fetch and re-acquired before returning, so
// a slow backend never blocks other updates (reset included) for the user.
//
// The view is independent of the workflow stage: fetching offers never moves
// the workflow, and a fetch failure renders an inline error with a Refresh
// retry instead of entering the error stage. When no job id is given it falls
// back to the workflow's job, then to the last job remembered for the user;
// with neither we have a missing job reference and say so.
func (b *Bot) handleOffers(ctx context.Context, session *UserSession, jobID string) {
	if jobID == "" {
		jobID = session.workflow.JobID()
	}
	if jobID == "" && b.store != nil {
		stored, err := b.store.GetLastJob(session.userId)
		if err != nil {
			log.Warn().Err(err).Int64("userId", session.userId).Msg("failed to look up last job")
		} else {
			jobID = stored
		}
	}
	if jobID == "" {
		session.reply(MsgNoJobReference)
		return
	}

	client := session.client
	session.mu.Unlock()
	snapshot, err := client.FetchOffers(ctx, jobID)
	session.mu.Lock()

	if err != nil {
		log.Warn().Err(err).Str("jobId", jobID).Msg("offer fetch failed")
		msg := tgbotapi.MessageConfig{Text: formatReplyText(MsgOfferFetchError, err)}
		msg.ReplyMarkup = offersKeyboard(jobID)
		session.replyWithMessage(msg)
		return
	}

	msg := tgbotapi.MessageConfig{
		Text:      renderOffers(snapshot),
		ParseMode: tgbotapi.ModeMarkdown,
	}
	if !snapshot.Done() {
		msg.ReplyMarkup = offersKeyboard(jobID)
	}
	session.replyWithMessage(msg)
}
