package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mlahtinen/telegram-haggle-bot/internal/appraisal"
)

func previewKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnAnalyze, CallbackAnalyze),
			tgbotapi.NewInlineKeyboardButtonData(BtnStartOver, CallbackReset),
		),
	)
}

func resultsKeyboard(hasStores bool) tgbotapi.InlineKeyboardMarkup {
	row := []tgbotapi.InlineKeyboardButton{}
	if hasStores {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(BtnNegotiate, CallbackNegotiate))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData(BtnStartOver, CallbackReset))
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(row...))
}

func errorKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnRetry, CallbackRetry),
			tgbotapi.NewInlineKeyboardButtonData(BtnStartOver, CallbackReset),
		),
	)
}

func offersKeyboard(jobID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnRefresh, CallbackOffersPrefix+jobID),
		),
	)
}

// locationRequestKeyboard is the one-time "share location" prompt keyboard.
func locationRequestKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewOneTimeReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonLocation("Share location"),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// renderResults formats the analysis payload for the user: price estimate,
// marketplace comparison, nearby stores, condition tips and the suggested
// negotiation plan.
func renderResults(a *appraisal.AnalysisResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*%s*\n", a.ItemName)
	if a.ItemDescription != "" {
		fmt.Fprintf(&b, "%s\n", a.ItemDescription)
	}
	if a.Condition != "" {
		fmt.Fprintf(&b, "Condition: %s\n", strings.ReplaceAll(a.Condition, "_", " "))
	}

	fmt.Fprintf(&b, "\nEstimated value: *%s*", a.EstimatedPriceRange.Display())
	if a.EstimatedPriceRange.Fair > 0 {
		fmt.Fprintf(&b, " (fair: %s%s)",
			currencySymbol(a.EstimatedPriceRange.Currency),
			trimFloat(a.EstimatedPriceRange.Fair))
	}
	fmt.Fprintf(&b, "\nConfidence: %.0f%%\n", a.Confidence*100)

	if a.MarketContext != "" {
		fmt.Fprintf(&b, "\n_%s_\n", a.MarketContext)
	}

	if len(a.Platforms) > 0 {
		fmt.Fprintf(&b, "\n*Where to sell* (best: %s)\n", a.BestPlatform)
		for _, p := range a.Platforms {
			fmt.Fprintf(&b, "• %s — %s%s, %s demand", p.Name, currencySymbol(""), trimFloat(p.AvgPrice), p.Demand)
			if p.TimeToSellDays != nil {
				fmt.Fprintf(&b, ", ~%d days to sell", *p.TimeToSellDays)
			}
			if p.SellThroughRate != "" {
				fmt.Fprintf(&b, ", %s sell-through", p.SellThroughRate)
			}
			b.WriteString("\n")
		}
	}

	if len(a.LocalStores) > 0 {
		b.WriteString("\n*Nearby stores that might buy it*\n")
		for _, s := range a.LocalStores {
			fmt.Fprintf(&b, "• %s (%s)\n  %s, %s", s.Name, s.Specialty, s.Address, s.Phone)
			if s.Rating != nil {
				fmt.Fprintf(&b, ", rated %.1f", *s.Rating)
			}
			if s.Reason != "" {
				fmt.Fprintf(&b, "\n  _%s_", s.Reason)
			}
			b.WriteString("\n")
		}
	}

	if len(a.ConditionTips) > 0 {
		b.WriteString("\n*Before selling*\n")
		for _, tip := range a.ConditionTips {
			fmt.Fprintf(&b, "• %s\n", tip)
		}
	}

	if ns := a.NegotiationStrategy; ns != nil {
		sym := currencySymbol(a.EstimatedPriceRange.Currency)
		fmt.Fprintf(&b, "\n*Negotiation plan*\nOpen at %s%s, target %s%s, walk away below %s%s\n",
			sym, trimFloat(ns.OpeningPrice), sym, trimFloat(ns.TargetPrice), sym, trimFloat(ns.WalkAwayPrice))
	}

	if len(a.LocalStores) > 0 {
		b.WriteString("\nWant me to call the stores and negotiate for you?")
	}

	return strings.TrimRight(b.String(), "\n")
}

// renderOffers formats an offers snapshot. While the job is not done the
// offers are explicitly presented as in progress, never as final.
func renderOffers(snapshot *appraisal.OffersSnapshot) string {
	var b strings.Builder

	if snapshot.ItemName != "" {
		fmt.Fprintf(&b, "*Store calls — %s*\n", snapshot.ItemName)
	} else {
		b.WriteString("*Store calls*\n")
	}

	if !snapshot.Done() {
		fmt.Fprintf(&b, "Still calling stores... %d reached so far. Check back in a bit.", len(snapshot.Offers))
		return b.String()
	}

	accepted, declined := appraisal.PartitionOffers(snapshot.Offers)

	if len(accepted) == 0 && len(declined) == 0 {
		b.WriteString("All calls finished, but no stores could be reached.")
		return b.String()
	}

	if len(accepted) > 0 {
		fmt.Fprintf(&b, "\n✅ *Accepted (%d)*\n", len(accepted))
		for _, o := range accepted {
			fmt.Fprintf(&b, "• %s — ", o.StoreName)
			if o.AgreedPrice != nil {
				fmt.Fprintf(&b, "agreed *$%s*", trimFloat(*o.AgreedPrice))
			} else {
				b.WriteString("accepted")
			}
			fmt.Fprintf(&b, "\n  %s, %s\n", o.StoreAddress, o.StorePhone)
			if o.CallSummary != "" {
				fmt.Fprintf(&b, "  _%s_\n", o.CallSummary)
			}
		}
	}

	if len(declined) > 0 {
		fmt.Fprintf(&b, "\n❌ *Declined (%d)*\n", len(declined))
		for _, o := range declined {
			fmt.Fprintf(&b, "• %s (%s)\n", o.StoreName, o.StoreSpecialty)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func currencySymbol(currency string) string {
	if currency == "USD" || currency == "" {
		return "$"
	}
	return currency
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
