// Package chain reads wallet balances and token metadata from an EVM node.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// NativeDecimals is the precision of the chain's native currency.
const NativeDecimals = 18

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

// Backend is the subset of ethclient.Client the provider needs.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Provider reports balances for one base token.
type Provider struct {
	backend Backend
	token   common.Address
	erc20   abi.ABI

	mu       sync.Mutex
	decimals map[common.Address]int32
}

// Dial connects to the node at rpcURL.
func Dial(ctx context.Context, rpcURL, token string) (*Provider, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}
	p, err := NewProvider(client, token)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return p, client, nil
}

// NewProvider creates a Provider on top of backend.
func NewProvider(backend Backend, token string) (*Provider, error) {
	if !common.IsHexAddress(token) {
		return nil, fmt.Errorf("chain: invalid token address %q", token)
	}
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse erc20 abi: %w", err)
	}
	return &Provider{
		backend:  backend,
		token:    common.HexToAddress(token),
		erc20:    parsed,
		decimals: make(map[common.Address]int32),
	}, nil
}

// QuoteBalance returns the native currency held by address.
func (p *Provider) QuoteBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	wei, err := p.backend.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("chain: balance of %s: %w", address, err)
	}
	return decimal.NewFromBigInt(wei, -NativeDecimals), nil
}

// BaseTokenBalance returns the base token held by address.
func (p *Provider) BaseTokenBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	decimals, err := p.TokenDecimals(ctx, p.token.Hex())
	if err != nil {
		return decimal.Zero, err
	}
	out, err := p.call(ctx, p.token, "balanceOf", common.HexToAddress(address))
	if err != nil {
		return decimal.Zero, fmt.Errorf("chain: token balance of %s: %w", address, err)
	}
	raw, ok := out[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("chain: token balance of %s: unexpected type %T", address, out[0])
	}
	return decimal.NewFromBigInt(raw, -decimals), nil
}

// TokenDecimals returns the ERC-20 decimals of token. The value is cached
// for the life of the provider.
func (p *Provider) TokenDecimals(ctx context.Context, token string) (int32, error) {
	if !common.IsHexAddress(token) {
		return 0, fmt.Errorf("chain: invalid token address %q", token)
	}
	addr := common.HexToAddress(token)

	p.mu.Lock()
	d, ok := p.decimals[addr]
	p.mu.Unlock()
	if ok {
		return d, nil
	}

	out, err := p.call(ctx, addr, "decimals")
	if err != nil {
		return 0, fmt.Errorf("chain: decimals of %s: %w", token, err)
	}
	v, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("chain: decimals of %s: unexpected type %T", token, out[0])
	}

	p.mu.Lock()
	p.decimals[addr] = int32(v)
	p.mu.Unlock()
	return int32(v), nil
}

func (p *Provider) call(ctx context.Context, to common.Address, method string, args ...any) ([]any, error) {
	data, err := p.erc20.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	res, err := p.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	out, err := p.erc20.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned nothing", method)
	}
	return out, nil
}
