package web3

import "context"

// ChainSnapshot represents summarized network metadata for replies/reporting.
type ChainSnapshot struct {
	ChainID     string
	BlockNumber string
	Notes       string
}

// SwapRequest carries the normalized fields an execution layer needs to
// prepare a token swap. Amounts stay textual end to end.
type SwapRequest struct {
	TokenIn  string
	TokenOut string
	AmountIn string
}

// SwapTicket is the submission-shaped outcome of preparing a swap.
// Signing and broadcast happen outside this system.
type SwapTicket struct {
	Chain       string `json:"chain"`
	TokenIn     string `json:"token_in"`
	TokenOut    string `json:"token_out"`
	AmountIn    string `json:"amount_in"`
	GasPriceWei string `json:"gas_price_wei"`
	Reference   string `json:"reference"`
}

// Client defines the common interface that any chain implementation must
// provide so higher layers can interact with different networks uniformly.
type Client interface {
	FetchChainSnapshot(ctx context.Context) (ChainSnapshot, error)
	PrepareSwap(ctx context.Context, req SwapRequest) (SwapTicket, error)
	Close()
}
