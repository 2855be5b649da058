package agent

import (
	"context"
	"strings"

	xerrors "HODL-Box/internal/errors"
	"HODL-Box/internal/market"
)

// MarketReport 汇总一次行情查询的结果。
type MarketReport struct {
	Snapshot market.Snapshot `json:"snapshot"`
	State    *market.State   `json:"market_state,omitempty"`
}

// MarketAgent 查询行情并附带市场状态研判。
type MarketAgent struct {
	source market.Source
}

// NewMarketAgent 创建行情智能体。
func NewMarketAgent(source market.Source) *MarketAgent {
	return &MarketAgent{source: source}
}

// Handle 获取指定符号的行情快照。includeState 控制是否附带市场研判。
func (a *MarketAgent) Handle(ctx context.Context, symbol, vsCurrency string, includeState bool) (*MarketReport, error) {
	if a.source == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置行情数据源")
	}
	if strings.TrimSpace(symbol) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "行情查询缺少符号")
	}

	snapshot, err := a.source.Fetch(ctx, symbol, vsCurrency)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeMarketDataFailure, err, "获取行情数据失败")
	}

	report := &MarketReport{Snapshot: snapshot}
	if includeState {
		state := market.Analyze(snapshot.Change24h, snapshot.Change7d)
		report.State = &state
	}
	return report, nil
}
