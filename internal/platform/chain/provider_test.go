package chain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	tokenAddr  = "0xac55641cbb734bdf6510d1bbd62e240c2409040f"
	walletAddr = "0x90f8bf6a479f320ead074411a4b0e7944ea8c9c1"
)

type mockBackend struct {
	wei           *big.Int
	tokenBalance  *big.Int
	decimals      uint8
	decimalsCalls int
	err           error
}

func (m *mockBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return m.wei, m.err
}

func (m *mockBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	selector := call.Data[:4]
	switch {
	case bytes.Equal(selector, common.FromHex("0x313ce567")): // decimals()
		m.decimalsCalls++
		return common.LeftPadBytes([]byte{m.decimals}, 32), nil
	case bytes.Equal(selector, common.FromHex("0x70a08231")): // balanceOf(address)
		return common.LeftPadBytes(m.tokenBalance.Bytes(), 32), nil
	}
	return nil, errors.New("unexpected call")
}

func TestQuoteBalance(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	p, err := NewProvider(&mockBackend{wei: wei}, tokenAddr)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	got, err := p.QuoteBalance(context.Background(), walletAddr)
	if err != nil {
		t.Fatalf("QuoteBalance: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("expected 1.5, got %s", got)
	}
}

func TestBaseTokenBalance_CachesDecimals(t *testing.T) {
	m := &mockBackend{tokenBalance: big.NewInt(123456), decimals: 4}
	p, err := NewProvider(m, tokenAddr)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	for i := 0; i < 3; i++ {
		got, err := p.BaseTokenBalance(context.Background(), walletAddr)
		if err != nil {
			t.Fatalf("BaseTokenBalance: %v", err)
		}
		if !got.Equal(decimal.RequireFromString("12.3456")) {
			t.Fatalf("expected 12.3456, got %s", got)
		}
	}
	if m.decimalsCalls != 1 {
		t.Fatalf("expected decimals fetched once, got %d", m.decimalsCalls)
	}
}

func TestProvider_Errors(t *testing.T) {
	if _, err := NewProvider(&mockBackend{}, "not-an-address"); err == nil {
		t.Fatal("expected invalid token error")
	}

	boom := errors.New("node down")
	p, _ := NewProvider(&mockBackend{err: boom}, tokenAddr)
	if _, err := p.TokenDecimals(context.Background(), tokenAddr); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped node error, got %v", err)
	}
	if _, err := p.QuoteBalance(context.Background(), walletAddr); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped node error, got %v", err)
	}
}
