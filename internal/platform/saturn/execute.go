package saturn

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

type createRequest struct {
	Blockchain string `json:"blockchain"`
	Token      string `json:"token"`
	Side       string `json:"side"`
	Amount     string `json:"amount"`
	Price      string `json:"price"`
	Nonce      int64  `json:"nonce"`
}

type orderRef struct {
	Blockchain string `json:"blockchain"`
	Contract   string `json:"contract"`
	OrderID    string `json:"order_id"`
	Amount     string `json:"amount,omitempty"`
	Nonce      int64  `json:"nonce"`
}

// PlaceOrder posts a new quote.
func (c *Client) PlaceOrder(ctx context.Context, o domain.NewOrder) (domain.ExecResult, error) {
	return c.submit(ctx, "/api/v2/orders/create.json", createRequest{
		Blockchain: c.cfg.Blockchain,
		Token:      c.cfg.Token,
		Side:       string(o.Side),
		Amount:     o.Amount.String(),
		Price:      o.Price.String(),
		Nonce:      time.Now().UnixNano(),
	})
}

// CancelOrder cancels one of the wallet's resting orders.
func (c *Client) CancelOrder(ctx context.Context, co domain.CancelOrder) (domain.ExecResult, error) {
	return c.submit(ctx, "/api/v2/orders/cancel.json", orderRef{
		Blockchain: c.cfg.Blockchain,
		Contract:   co.Contract,
		OrderID:    co.OrderID,
		Nonce:      time.Now().UnixNano(),
	})
}

// Trade fills part of a resting order.
func (c *Client) Trade(ctx context.Context, t domain.Trade) (domain.ExecResult, error) {
	return c.submit(ctx, "/api/v2/orders/trade.json", orderRef{
		Blockchain: c.cfg.Blockchain,
		Contract:   t.Contract,
		OrderID:    t.OrderID,
		Amount:     t.Amount.String(),
		Nonce:      time.Now().UnixNano(),
	})
}

func (c *Client) submit(ctx context.Context, path string, payload any) (domain.ExecResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.ExecResult{}, fmt.Errorf("saturn: marshal %s: %w", path, err)
	}
	resp, err := c.postSigned(ctx, path, body)
	if err != nil {
		return domain.ExecResult{}, fmt.Errorf("saturn: %s: %w", path, err)
	}

	res := domain.ExecResult{
		Success: gjson.GetBytes(resp, "success").Bool(),
		TxHash:  gjson.GetBytes(resp, "tx").String(),
		Error:   gjson.GetBytes(resp, "error").String(),
	}
	if !res.Success {
		return res, fmt.Errorf("saturn: %s rejected: %s", path, res.Error)
	}
	return res, nil
}
