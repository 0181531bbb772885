package saturn

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/saturn-network/market-maker-strategy/internal/crypto"
	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

const testToken = "0xac55641cbb734bdf6510d1bbd62e240c2409040f"

func newTestClient(t *testing.T, h http.Handler, signer *crypto.Signer) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Blockchain: "ETC", Token: testToken}, signer)
}

func TestOrderBook(t *testing.T) {
	var gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		io.WriteString(w, `{
			"buys": [
				{"price": "0.000123456789012345678", "balance": "10", "contract": "0xex", "order_id": "1"},
				{"price": 0.5, "balance": 2, "contract": "0xex", "order_id": 2}
			],
			"sells": [
				{"price": "0.9", "balance": "0", "contract": "0xex", "order_id": "3"}
			]
		}`)
	}), nil)

	book, err := c.OrderBook(context.Background())
	if err != nil {
		t.Fatalf("OrderBook: %v", err)
	}
	wantPath := "/api/v2/orders/ETC/" + testToken + "/" + EtherAddress + "/all.json"
	if gotPath != wantPath {
		t.Fatalf("path: got %s, want %s", gotPath, wantPath)
	}
	if len(book.Buys) != 2 || len(book.Sells) != 1 {
		t.Fatalf("unexpected book sizes %d/%d", len(book.Buys), len(book.Sells))
	}
	if !book.Buys[0].Price.Equal(decimal.RequireFromString("0.000123456789012345678")) {
		t.Fatalf("precision lost: %s", book.Buys[0].Price)
	}
	if book.Buys[1].OrderID != "2" || !book.Buys[1].Price.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("numeric fields not decoded: %+v", book.Buys[1])
	}
}

func TestOrderBook_RejectsMalformedRows(t *testing.T) {
	cases := map[string]string{
		"zero price":    `{"buys":[{"price":"0","balance":"1","contract":"c","order_id":"1"}],"sells":[]}`,
		"bad number":    `{"buys":[{"price":"abc","balance":"1","contract":"c","order_id":"1"}],"sells":[]}`,
		"missing id":    `{"buys":[],"sells":[{"price":"1","balance":"1","contract":"c"}]}`,
		"neg balance":   `{"buys":[],"sells":[{"price":"1","balance":"-1","contract":"c","order_id":"1"}]}`,
		"invalid json":  `{"buys":[`,
		"buys not list": `{"buys":{},"sells":[]}`,
	}
	for name, body := range cases {
		body := body
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, body)
			}), nil)
			if _, err := c.OrderBook(context.Background()); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}

func TestOrdersFor(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/orders/trader/0xbot.json" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `{"orders":[
			{"type":"BUY","token":"`+testToken+`","price":"1","balance":"2","contract":"c","order_id":"1"},
			{"type":"sell","token":"`+testToken+`","price":"3","balance":"4","contract":"c","order_id":"2"},
			{"type":"sell","token":"0xother","price":"3","balance":"4","contract":"c","order_id":"3"}
		]}`)
	}), nil)

	own, err := c.OrdersFor(context.Background(), "0xbot")
	if err != nil {
		t.Fatalf("OrdersFor: %v", err)
	}
	if len(own.Buys) != 1 || len(own.Sells) != 1 || own.Sells[0].OrderID != "2" {
		t.Fatalf("unexpected own orders %+v", own)
	}
}

func TestStatusMapping(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}), nil)
	_, err := c.OrderBook(context.Background())
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestPlaceOrder_Signed(t *testing.T) {
	signer, err := crypto.NewSigner("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	var body []byte
	var sig, addr string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		sig = r.Header.Get("X-Signature")
		addr = r.Header.Get("X-Address")
		io.WriteString(w, `{"success":true,"tx":"0xabc"}`)
	}), signer)

	res, err := c.PlaceOrder(context.Background(), domain.NewOrder{
		Side:   domain.SideBuy,
		Amount: decimal.RequireFromString("7.39"),
		Price:  decimal.RequireFromString("1.216667"),
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if !res.Success || res.TxHash != "0xabc" {
		t.Fatalf("unexpected result %+v", res)
	}

	recovered, err := crypto.Recover(body, sig)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if recovered.Hex() != addr || addr != signer.Address().Hex() {
		t.Fatalf("signature does not match sender: %s vs %s", recovered.Hex(), addr)
	}

	var req createRequest
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if req.Side != "buy" || req.Amount != "7.39" || req.Price != "1.216667" || req.Token != testToken {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestTrade_Rejected(t *testing.T) {
	signer, _ := crypto.NewSigner("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":false,"error":"order already filled"}`)
	}), signer)

	res, err := c.Trade(context.Background(), domain.Trade{Contract: "c", OrderID: "1", Amount: decimal.NewFromInt(1)})
	if err == nil {
		t.Fatal("expected rejection error")
	}
	if res.Error != "order already filled" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSubmit_RequiresSigner(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, nil)
	_, err := c.CancelOrder(context.Background(), domain.CancelOrder{Contract: "c", OrderID: "1"})
	if !errors.Is(err, domain.ErrSigningFailed) {
		t.Fatalf("expected ErrSigningFailed, got %v", err)
	}
}
