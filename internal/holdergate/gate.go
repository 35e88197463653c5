package holdergate

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"channelbuyer/internal/chain"
	"channelbuyer/internal/config"
)

// Gate is the optional holder admission check: a wallet must hold at least
// MinUnits of the configured token before it may be registered. When no
// token is configured the gate is open.
type Gate struct {
	Chain chain.Client

	token    common.Address
	minUnits *big.Int
	enabled  bool
}

func New(cfg config.HolderGateConfig, chainClient chain.Client) (*Gate, error) {
	g := &Gate{Chain: chainClient}
	addr := strings.TrimSpace(cfg.TokenAddress)
	if addr == "" {
		return g, nil
	}
	if !common.IsHexAddress(addr) {
		return nil, fmt.Errorf("holdergate: invalid token address %q", addr)
	}
	min, ok := new(big.Int).SetString(strings.TrimSpace(cfg.MinUnits), 10)
	if !ok || min.Sign() < 0 {
		return nil, fmt.Errorf("holdergate: invalid min units %q", cfg.MinUnits)
	}
	g.token = common.HexToAddress(addr)
	g.minUnits = min
	g.enabled = true
	return g, nil
}

// Allows reports whether the wallet address passes the holder requirement.
func (g *Gate) Allows(ctx context.Context, walletAddress string) (bool, error) {
	if g == nil || !g.enabled {
		return true, nil
	}
	if !common.IsHexAddress(walletAddress) {
		return false, nil
	}
	bal, err := g.Chain.BalanceOf(ctx, g.token, common.HexToAddress(walletAddress))
	if err != nil {
		return false, fmt.Errorf("holdergate: balance check: %w", err)
	}
	return bal.Cmp(g.minUnits) >= 0, nil
}
