package saturn

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

// OrderBook returns every resting order on the configured pair.
func (c *Client) OrderBook(ctx context.Context) (domain.OrderBook, error) {
	path := fmt.Sprintf("/api/v2/orders/%s/%s/%s/all.json", c.cfg.Blockchain, c.cfg.Token, EtherAddress)
	body, err := c.get(ctx, path)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("saturn: order book: %w", err)
	}
	book, err := decodeBook(body)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("saturn: order book: %w", err)
	}
	return book, nil
}

// OrdersFor returns address's own resting orders on the configured pair.
// Orders on other tokens are ignored.
func (c *Client) OrdersFor(ctx context.Context, address string) (domain.OrderBook, error) {
	body, err := c.get(ctx, fmt.Sprintf("/api/v2/orders/trader/%s.json", address))
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("saturn: orders for %s: %w", address, err)
	}
	book, err := decodeTraderOrders(body, c.cfg.Token)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("saturn: orders for %s: %w", address, err)
	}
	return book, nil
}

func decodeBook(body []byte) (domain.OrderBook, error) {
	if !gjson.ValidBytes(body) {
		return domain.OrderBook{}, fmt.Errorf("invalid JSON")
	}
	var book domain.OrderBook
	var err error
	if book.Buys, err = decodeOrders(gjson.GetBytes(body, "buys"), "buys"); err != nil {
		return domain.OrderBook{}, err
	}
	if book.Sells, err = decodeOrders(gjson.GetBytes(body, "sells"), "sells"); err != nil {
		return domain.OrderBook{}, err
	}
	return book, nil
}

func decodeOrders(arr gjson.Result, field string) ([]domain.Order, error) {
	if !arr.Exists() {
		return []domain.Order{}, nil
	}
	if !arr.IsArray() {
		return nil, fmt.Errorf("%s: expected array", field)
	}
	rows := arr.Array()
	out := make([]domain.Order, 0, len(rows))
	for i, row := range rows {
		o, err := decodeOrder(row)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		out = append(out, o)
	}
	return out, nil
}

func decodeTraderOrders(body []byte, token string) (domain.OrderBook, error) {
	if !gjson.ValidBytes(body) {
		return domain.OrderBook{}, fmt.Errorf("invalid JSON")
	}
	book := domain.OrderBook{Buys: []domain.Order{}, Sells: []domain.Order{}}
	var decodeErr error
	gjson.GetBytes(body, "orders").ForEach(func(idx, row gjson.Result) bool {
		if !strings.EqualFold(row.Get("token").String(), token) {
			return true
		}
		o, err := decodeOrder(row)
		if err != nil {
			decodeErr = fmt.Errorf("orders[%d]: %w", idx.Int(), err)
			return false
		}
		switch strings.ToLower(row.Get("type").String()) {
		case "buy":
			book.Buys = append(book.Buys, o)
		case "sell":
			book.Sells = append(book.Sells, o)
		default:
			decodeErr = fmt.Errorf("orders[%d]: unknown type %q", idx.Int(), row.Get("type").String())
			return false
		}
		return true
	})
	if decodeErr != nil {
		return domain.OrderBook{}, decodeErr
	}
	return book, nil
}

// decodeOrder validates one exchange row into a domain.Order.
func decodeOrder(row gjson.Result) (domain.Order, error) {
	price, err := decimalField(row, "price")
	if err != nil {
		return domain.Order{}, err
	}
	balance, err := decimalField(row, "balance")
	if err != nil {
		return domain.Order{}, err
	}
	if price.Sign() <= 0 {
		return domain.Order{}, fmt.Errorf("%w: price %s must be positive", domain.ErrInvalidOrder, price)
	}
	if balance.Sign() < 0 {
		return domain.Order{}, fmt.Errorf("%w: negative balance %s", domain.ErrInvalidOrder, balance)
	}

	o := domain.Order{
		Price:    price,
		Balance:  balance,
		Contract: row.Get("contract").String(),
		OrderID:  row.Get("order_id").String(),
	}
	if o.Contract == "" || o.OrderID == "" {
		return domain.Order{}, fmt.Errorf("%w: missing contract or order_id", domain.ErrInvalidOrder)
	}
	return o, nil
}

// decimalField parses a numeric field sent either as a JSON string or a
// JSON number. Numbers are parsed from their raw text so no precision is
// lost to float64.
func decimalField(row gjson.Result, name string) (decimal.Decimal, error) {
	v := row.Get(name)
	var text string
	switch v.Type {
	case gjson.String:
		text = v.Str
	case gjson.Number:
		text = v.Raw
	default:
		return decimal.Zero, fmt.Errorf("%w: %s missing or not numeric", domain.ErrInvalidOrder, name)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q: %v", domain.ErrInvalidOrder, name, text, err)
	}
	return d, nil
}
