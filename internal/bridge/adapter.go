package bridge

import (
	"context"

	"ttb-broker/internal/engine"
)

// EngineAdapter narrows Bridge to the engine.Bridger surface, translating
// between bridge's full upstream types and the engine's minimal copies
// (spec §9 Design Notes: engine unit-tests substitute a fake Bridger, so the
// real subprocess bridge is kept out of the engine package's import graph).
type EngineAdapter struct {
	*Bridge
}

func NewEngineAdapter(b *Bridge) EngineAdapter {
	return EngineAdapter{Bridge: b}
}

func (a EngineAdapter) PlaceTrade(ctx context.Context, req engine.TradeRequest) (engine.TradeResult, error) {
	result, err := a.Bridge.PlaceTrade(ctx, TradeRequest{
		Symbol:  req.Symbol,
		Volume:  req.Volume,
		Type:    req.Type,
		Comment: req.Comment,
	})
	if err != nil {
		return engine.TradeResult{}, err
	}
	return engine.TradeResult{Ticket: result.Ticket, Price: result.Price, Retcode: result.Retcode}, nil
}

func (a EngineAdapter) CloseTrade(ctx context.Context, ticket int64, symbol string, volume float64) (engine.CloseResult, error) {
	result, err := a.Bridge.CloseTrade(ctx, ticket, symbol, volume)
	if err != nil {
		return engine.CloseResult{}, err
	}
	return engine.CloseResult{
		Success:      result.Success,
		ClosePrice:   result.ClosePrice,
		Profit:       result.Profit,
		LikelyClosed: result.LikelyClosed,
	}, nil
}
