package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MudgalLabs/arthveda-sub000/position"
)

const computePath = "/positions/compute"

// HTTPClient calls a remote computation service over JSON. It never
// retries; the next qualifying edit issues a fresh request.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient returns a client for the service rooted at baseURL. token
// is sent as a bearer token when non-empty.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type wireTrade struct {
	Kind          string          `json:"kind"`
	Time          time.Time       `json:"time"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	ChargesAmount decimal.Decimal `json:"charges_amount"`
}

type wireRequest struct {
	Trades                  []wireTrade     `json:"trades"`
	RiskAmount              decimal.Decimal `json:"risk_amount"`
	Instrument              string          `json:"instrument"`
	AddChargesAutomatically bool            `json:"add_charges_automatically"`
	BrokerID                *string         `json:"broker_id"`
}

type wireResult struct {
	OpenedAt                    string            `json:"opened_at"`
	ClosedAt                    *string           `json:"closed_at"`
	Direction                   string            `json:"direction"`
	Status                      string            `json:"status"`
	GrossPnLAmount              decimal.Decimal   `json:"gross_pnl_amount"`
	NetPnLAmount                decimal.Decimal   `json:"net_pnl_amount"`
	RFactor                     decimal.Decimal   `json:"r_factor"`
	NetReturnPercentage         decimal.Decimal   `json:"net_return_percentage"`
	ChargesAsPercentageOfNetPnL decimal.Decimal   `json:"charges_as_percentage_of_net_pnl"`
	OpenQuantity                decimal.Decimal   `json:"open_quantity"`
	OpenAveragePriceAmount      decimal.Decimal   `json:"open_average_price_amount"`
	TradeCharges                []decimal.Decimal `json:"trade_charges"`
}

type envelope struct {
	Message string      `json:"message"`
	Data    *wireResult `json:"data"`
}

func encodeRequest(req Request) wireRequest {
	w := wireRequest{
		Trades:                  make([]wireTrade, len(req.Trades)),
		RiskAmount:              req.RiskAmount,
		Instrument:              string(req.Instrument),
		AddChargesAutomatically: req.AutoCharges,
	}
	if req.BrokerAccountID != "" {
		b := req.BrokerAccountID
		w.BrokerID = &b
	}
	for i, t := range req.Trades {
		w.Trades[i] = wireTrade{
			Kind:          string(t.Kind),
			Time:          t.Time.UTC(),
			Quantity:      t.Quantity,
			Price:         t.Price,
			ChargesAmount: t.Charges,
		}
	}
	return w
}

// decode converts the wire result, turning timestamp strings into
// time.Time values.
func (w wireResult) decode() (Result, error) {
	res := Result{
		Derived: position.Derived{
			Direction:    position.Direction(w.Direction),
			Status:       position.Status(w.Status),
			GrossPnL:     w.GrossPnLAmount,
			NetPnL:       w.NetPnLAmount,
			RFactor:      w.RFactor,
			NetReturnPct: w.NetReturnPercentage,
			ChargesPct:   w.ChargesAsPercentageOfNetPnL,
			OpenQuantity: w.OpenQuantity,
			OpenAvgPrice: w.OpenAveragePriceAmount,
		},
		Charges: w.TradeCharges,
	}

	if w.OpenedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, w.OpenedAt)
		if err != nil {
			return Result{}, fmt.Errorf("parse opened_at: %w", err)
		}
		res.OpenedAt = t
	}
	if w.ClosedAt != nil && *w.ClosedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, *w.ClosedAt)
		if err != nil {
			return Result{}, fmt.Errorf("parse closed_at: %w", err)
		}
		res.ClosedAt = t
	}
	return res, nil
}

func (c *HTTPClient) Compute(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(encodeRequest(req))
	if err != nil {
		return Result{}, fmt.Errorf("encode compute request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+computePath, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("compute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read compute response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && env.Message != "" {
			msg = env.Message
		}
		return Result{}, fmt.Errorf("%w: %d: %s", ErrStatus, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return Result{}, fmt.Errorf("decode compute response: %w", decodeErr)
	}
	if env.Data == nil {
		return Result{}, fmt.Errorf("decode compute response: missing data")
	}

	return env.Data.decode()
}
