package journal

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MudgalLabs/arthveda-sub000/position"
)

// Review aggregates a set of positions for a periodic journal review.
type Review struct {
	Title   string
	Created time.Time

	Positions  int
	Open       int
	Wins       int
	Losses     int
	Breakevens int

	GrossPnL decimal.Decimal
	NetPnL   decimal.Decimal
	Charges  decimal.Decimal

	// Over closed positions only.
	WinRate      decimal.Decimal // percent
	AvgRFactor   decimal.Decimal
	ProfitFactor decimal.Decimal // zero when there are no losses

	Best  *position.Position
	Worst *position.Position
}

// NewReview summarises positions. Open positions count towards the totals
// but not towards win rate, R or profit factor.
func NewReview(title string, now time.Time, positions []position.Position) Review {
	r := Review{Title: title, Created: now, Positions: len(positions)}

	var (
		closed    int
		rSum      decimal.Decimal
		grossWin  decimal.Decimal
		grossLoss decimal.Decimal
	)
	for i := range positions {
		p := &positions[i]
		r.GrossPnL = r.GrossPnL.Add(p.GrossPnL)
		r.NetPnL = r.NetPnL.Add(p.NetPnL)
		for _, t := range p.Trades {
			r.Charges = r.Charges.Add(t.Charges)
		}

		switch p.Status {
		case position.StatusOpen:
			r.Open++
			continue
		case position.StatusWin:
			r.Wins++
			grossWin = grossWin.Add(p.NetPnL)
		case position.StatusLoss:
			r.Losses++
			grossLoss = grossLoss.Add(p.NetPnL.Abs())
		case position.StatusBreakeven:
			r.Breakevens++
		}
		closed++
		rSum = rSum.Add(p.RFactor)

		if r.Best == nil || p.NetPnL.GreaterThan(r.Best.NetPnL) {
			r.Best = p
		}
		if r.Worst == nil || p.NetPnL.LessThan(r.Worst.NetPnL) {
			r.Worst = p
		}
	}

	if closed > 0 {
		n := decimal.NewFromInt(int64(closed))
		r.WinRate = decimal.NewFromInt(int64(r.Wins)).Mul(hundred).Div(n).Round(2)
		r.AvgRFactor = rSum.Div(n).Round(2)
	}
	if grossLoss.IsPositive() {
		r.ProfitFactor = grossWin.Div(grossLoss).Round(2)
	}
	return r
}

var hundred = decimal.NewFromInt(100)

var reviewOrgFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

// Org renders the review as an Org-mode document.
func (r Review) Org() (string, error) {
	t, err := template.New("review").Funcs(reviewOrgFuncs).Parse(ReviewOrgTemplate)
	if err != nil {
		return "", fmt.Errorf("parse review template: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := t.Execute(buf, r); err != nil {
		return "", fmt.Errorf("render review: %w", err)
	}
	return buf.String(), nil
}

const ReviewOrgTemplate = `* REVIEW: {{if .Title}}{{.Title}}{{else}}(untitled){{end}}
:PROPERTIES:
:POSITIONS:   {{.Positions}}
:OPEN:        {{.Open}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:BREAKEVENS:  {{.Breakevens}}
:GROSS_PNL:   {{money .GrossPnL}}
:NET_PNL:     {{money .NetPnL}}
:CHARGES:     {{money .Charges}}
:WIN_RATE:    {{money .WinRate}}
:AVG_R:       {{money .AvgRFactor}}
:PROFIT_FAC:  {{if .ProfitFactor.IsZero}}(no losses){{else}}{{money .ProfitFactor}}{{end}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Net P/L:        *{{money .NetPnL}}*
- Win Rate:       *{{money .WinRate}}%*
- Average R:      *{{money .AvgRFactor}}*
{{- if .Best}}
- Best:           {{.Best.Symbol}} {{money .Best.NetPnL}}
{{- end}}
{{- if .Worst}}
- Worst:          {{.Worst.Symbol}} {{money .Worst.NetPnL}}
{{- end}}

** Outcome Distribution
| Outcome   | Count |
|-----------+-------|
| Wins      | {{.Wins}} |
| Losses    | {{.Losses}} |
| Breakeven | {{.Breakevens}} |
| Open      | {{.Open}} |
| Total     | {{.Positions}} |
`
