package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	xerrors "HODL-Box/internal/errors"
	"HODL-Box/internal/web3"
)

type stubGateway struct {
	client web3.Client
	err    error
}

func (s *stubGateway) ClientFor(string) (web3.Client, error) {
	return s.client, s.err
}

type stubChainClient struct {
	ticket web3.SwapTicket
	err    error
}

func (s *stubChainClient) FetchChainSnapshot(context.Context) (web3.ChainSnapshot, error) {
	return web3.ChainSnapshot{}, nil
}

func (s *stubChainClient) PrepareSwap(_ context.Context, req web3.SwapRequest) (web3.SwapTicket, error) {
	if s.err != nil {
		return web3.SwapTicket{}, s.err
	}
	ticket := s.ticket
	ticket.TokenIn = req.TokenIn
	ticket.TokenOut = req.TokenOut
	ticket.AmountIn = req.AmountIn
	return ticket, nil
}

func (s *stubChainClient) Close() {}

func TestSwapAgentTimeout(t *testing.T) {
	llmClient := &stubLLM{wait: 50 * time.Millisecond}
	ag := NewSwapAgent(llmClient, nil, 10*time.Millisecond)

	_, err := ag.Handle(context.Background(), "换100u的btc", "")
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline exceeded, got %v", err)
	}
	if xerrors.CodeOf(err) != xerrors.CodeTimeout {
		t.Fatalf("expected timeout code, got %v", err)
	}
}

func TestSwapAgentInvalidLLMOutput(t *testing.T) {
	ag := NewSwapAgent(&stubLLM{reply: "抱歉，我不明白"}, nil, 0)

	_, err := ag.Handle(context.Background(), "换100u的btc", "")
	if xerrors.CodeOf(err) != xerrors.CodeLLMFailure {
		t.Fatalf("expected llm failure, got %v", err)
	}
}

func TestSwapAgentPreparesTicket(t *testing.T) {
	llmClient := &stubLLM{reply: "```json\n{\"chain\":\"bsc\",\"tkBuy\":\"eth\",\"tkSell\":\"usdt\",\"count\":\"50\"}\n```"}
	gateway := &stubGateway{client: &stubChainClient{ticket: web3.SwapTicket{Chain: "BSC", Reference: "ref-9"}}}
	ag := NewSwapAgent(llmClient, gateway, 0)

	outcome, err := ag.Handle(context.Background(), "在bsc上用50usdt换eth", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Ticket == nil || outcome.Ticket.Reference != "ref-9" {
		t.Fatalf("unexpected ticket: %+v", outcome.Ticket)
	}
	if outcome.Ticket.TokenIn != "USDT" || outcome.Ticket.TokenOut != "ETH" || outcome.Ticket.AmountIn != "50" {
		t.Fatalf("ticket fields mismatch: %+v", outcome.Ticket)
	}
}

func TestSwapAgentChainFailureIsObservation(t *testing.T) {
	llmClient := &stubLLM{reply: `{"chain":"eth","tkBuy":"btc","tkSell":"usdt","count":"10"}`}
	gateway := &stubGateway{client: &stubChainClient{err: errors.New("rpc unreachable")}}
	ag := NewSwapAgent(llmClient, gateway, 0)

	outcome, err := ag.Handle(context.Background(), "用10usdt换btc", "")
	if err != nil {
		t.Fatalf("chain failure must not fail the request: %v", err)
	}
	if outcome.Ticket != nil || outcome.Observations == "" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}
