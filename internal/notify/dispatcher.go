package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tokenarena/internal/card"
	"tokenarena/internal/models"
	"tokenarena/internal/repository"
	"tokenarena/internal/service"
)

const defaultSendTimeout = 5 * time.Second

// Dispatcher formats round lifecycle events and fans them out to every known
// recipient. Sends are bounded by a timeout and failures are logged and
// dropped; notification trouble never propagates into the scheduler tick.
type Dispatcher struct {
	Repo    repository.Repository
	Sender  Sender
	Logger  *zap.Logger
	Timeout time.Duration
}

func (d *Dispatcher) RoundOpened(ctx context.Context, round *models.Round, tokens []models.RoundToken) {
	if d == nil || d.Sender == nil {
		return
	}
	d.broadcast(ctx, formatRoundOpened(round, tokens))
}

func (d *Dispatcher) RoundSettled(ctx context.Context, round *models.Round, standings []service.Entry) {
	if d == nil || d.Sender == nil {
		return
	}
	d.broadcast(ctx, formatRoundSettled(round, standings))
}

func (d *Dispatcher) broadcast(ctx context.Context, text string) {
	recipients, err := d.Repo.ListKnownRecipients(ctx)
	if err != nil {
		if d.Logger != nil {
			d.Logger.Warn("recipient list failed", zap.Error(err))
		}
		return
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	for _, chatID := range recipients {
		sendCtx, cancel := context.WithTimeout(ctx, timeout)
		err := d.Sender.SendText(sendCtx, chatID, text)
		cancel()
		if err != nil && d.Logger != nil {
			d.Logger.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}

func formatRoundOpened(round *models.Round, tokens []models.RoundToken) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round #%d is open!\n", round.ID)
	fmt.Fprintf(&b, "Window: %s - %s UTC\n",
		round.StartAt.UTC().Format("15:04"),
		round.EndAt.UTC().Format("15:04"))
	symbols := make([]string, 0, len(tokens))
	for _, t := range tokens {
		symbols = append(symbols, strings.ToUpper(t.Symbol))
	}
	b.WriteString("Tokens: ")
	b.WriteString(strings.Join(symbols, ", "))
	b.WriteString("\nPick long or short before the clock runs out.")
	return b.String()
}

func formatRoundSettled(round *models.Round, standings []service.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round #%d settled.\n", round.ID)
	if len(standings) == 0 {
		b.WriteString("No plays this round.")
		return b.String()
	}
	b.WriteString("Final standings:\n")
	top := standings
	if len(top) > 10 {
		top = top[:10]
	}
	for _, e := range top {
		name := e.PlayerName
		if name == "" {
			name = e.PlayerID
		}
		fmt.Fprintf(&b, "#%d %s %s\n", e.Rank, name, card.FormatPct(e.PnLPercent))
	}
	return strings.TrimRight(b.String(), "\n")
}

// decodeRoundTokens unmarshals a round's frozen token set.
func decodeRoundTokens(round *models.Round) []models.RoundToken {
	var tokens []models.RoundToken
	if round == nil || len(round.Tokens) == 0 {
		return nil
	}
	_ = json.Unmarshal(round.Tokens, &tokens)
	return tokens
}
