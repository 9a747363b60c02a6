// Package card defines the shareable PnL card contract. Image rendering is an
// external collaborator; this package only builds the data structure it
// consumes and a plain-text caption for chat delivery.
package card

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"tokenarena/internal/models"
)

// Selection is one row of the card table.
type Selection struct {
	Symbol    string           `json:"symbol"`
	Name      string           `json:"name,omitempty"`
	Logo      string           `json:"logo,omitempty"`
	Direction string           `json:"direction"`
	Entry     *decimal.Decimal `json:"entry,omitempty"`
	Exit      *decimal.Decimal `json:"exit,omitempty"`
	PnL       *decimal.Decimal `json:"pnl,omitempty"`
}

// Card is the renderer input for one player's round summary.
type Card struct {
	Title        string          `json:"title"`
	PlayerName   string          `json:"player_name"`
	Rank         int             `json:"rank"`
	TotalPlayers int             `json:"total_players"`
	TotalPct     decimal.Decimal `json:"total_pct"`
	Selections   []Selection     `json:"selections"`
}

// Build assembles a card from stored result picks (live or final detail rows
// share the same shape).
func Build(title, playerName string, rank, totalPlayers int, totalPct decimal.Decimal, picksJSON []byte) (*Card, error) {
	var picks []models.ResultPick
	if len(picksJSON) > 0 {
		if err := json.Unmarshal(picksJSON, &picks); err != nil {
			return nil, err
		}
	}
	selections := make([]Selection, 0, len(picks))
	for _, p := range picks {
		selections = append(selections, Selection{
			Symbol:    p.Symbol,
			Name:      p.Name,
			Logo:      p.LogoURI,
			Direction: p.Direction,
			Entry:     p.EntryPrice,
			Exit:      p.ExitPrice,
			PnL:       p.PnLPercent,
		})
	}
	return &Card{
		Title:        title,
		PlayerName:   playerName,
		Rank:         rank,
		TotalPlayers: totalPlayers,
		TotalPct:     totalPct,
		Selections:   selections,
	}, nil
}

// FormatPct renders a signed two-decimal percent, e.g. +10.00% or -5.67%.
func FormatPct(v decimal.Decimal) string {
	s := v.StringFixed(2) + "%"
	if v.Sign() >= 0 {
		return "+" + s
	}
	return s
}

// Caption renders the card as chat text: header, total, long/short mix, and
// one line per selection.
func (c *Card) Caption() string {
	var b strings.Builder
	b.WriteString(c.Title)
	if c.PlayerName != "" {
		b.WriteString(" - ")
		b.WriteString(c.PlayerName)
	}
	b.WriteString("\n")
	if c.Rank > 0 && c.TotalPlayers > 0 {
		fmt.Fprintf(&b, "Rank #%d/%d\n", c.Rank, c.TotalPlayers)
	}
	b.WriteString("Total: ")
	b.WriteString(FormatPct(c.TotalPct))
	b.WriteString("\n")

	longs, shorts := 0, 0
	for _, s := range c.Selections {
		if s.Direction == models.DirectionShort {
			shorts++
		} else {
			longs++
		}
	}
	fmt.Fprintf(&b, "%d long / %d short\n", longs, shorts)

	for _, s := range c.Selections {
		pnl := "n/a"
		if s.PnL != nil {
			pnl = FormatPct(*s.PnL)
		}
		fmt.Fprintf(&b, "%s %s %s\n", strings.ToUpper(s.Symbol), strings.ToUpper(s.Direction), pnl)
	}
	return strings.TrimRight(b.String(), "\n")
}
