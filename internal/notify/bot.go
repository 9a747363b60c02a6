package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	"go.uber.org/zap"

	"tokenarena/internal/card"
	"tokenarena/internal/repository"
	"tokenarena/internal/service"
)

// Bot answers inbound chat commands: current round, live standing, last
// finished leaderboard, and time remaining.
type Bot struct {
	Bot    *telego.Bot
	Sender Sender
	Repo   repository.Repository
	Board  *service.Leaderboard
	Logger *zap.Logger

	// Now is replaceable for tests; defaults to time.Now.
	Now func() time.Time
}

func (b *Bot) now() time.Time {
	if b.Now != nil {
		return b.Now().UTC()
	}
	return time.Now().UTC()
}

// Run long-polls for updates until the context ends.
func (b *Bot) Run(ctx context.Context) error {
	updates, err := b.Bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update telego.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	command := strings.ToLower(strings.TrimSpace(update.Message.Text))
	if i := strings.Index(command, "@"); i > 0 {
		command = command[:i]
	}

	var reply string
	switch command {
	case "/round", "/start":
		reply = b.currentRound(ctx)
	case "/mypnl":
		reply = b.myStanding(ctx, chatID)
	case "/leaderboard":
		reply = b.lastLeaderboard(ctx)
	case "/timeleft":
		reply = b.timeLeft(ctx)
	default:
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, defaultSendTimeout)
	defer cancel()
	if err := b.Sender.SendText(sendCtx, chatID, reply); err != nil && b.Logger != nil {
		b.Logger.Warn("command reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) currentRound(ctx context.Context) string {
	round, err := b.Repo.GetActiveRound(ctx, b.now())
	if err != nil || round == nil {
		return "No round is running right now."
	}
	return formatRoundOpened(round, decodeRoundTokens(round))
}

func (b *Bot) timeLeft(ctx context.Context) string {
	now := b.now()
	round, err := b.Repo.GetActiveRound(ctx, now)
	if err != nil || round == nil {
		return "No round is running right now."
	}
	left := round.EndAt.Sub(now).Round(time.Second)
	return fmt.Sprintf("Round #%d ends in %s.", round.ID, left)
}

func (b *Bot) lastLeaderboard(ctx context.Context) string {
	round, err := b.Repo.GetLastSettledRound(ctx)
	if err != nil || round == nil {
		return "No finished rounds yet."
	}
	standings, err := b.Board.Standings(ctx, round.ID, service.ViewFinal)
	if err != nil {
		return "Leaderboard is unavailable, try again later."
	}
	return formatRoundSettled(round, standings)
}

func (b *Bot) myStanding(ctx context.Context, chatID int64) string {
	now := b.now()
	round, err := b.Repo.GetActiveRound(ctx, now)
	if err != nil || round == nil {
		return "No round is running right now."
	}
	playerID := strconv.FormatInt(chatID, 10)
	live, err := b.Repo.GetLivePnL(ctx, round.ID, playerID)
	if err != nil || live == nil {
		return "You have no play in the current round."
	}
	rank, total, err := b.Board.PlayerRank(ctx, round.ID, playerID, service.ViewLive)
	if err != nil {
		rank, total = 0, 0
	}
	play, _ := b.Repo.GetPlay(ctx, round.ID, playerID)
	name := ""
	if play != nil {
		name = play.PlayerName
	}
	c, err := card.Build("Live PnL", name, rank, total, live.PnLPercent, live.Detail)
	if err != nil {
		return "Your standing is unavailable, try again later."
	}
	return c.Caption()
}
