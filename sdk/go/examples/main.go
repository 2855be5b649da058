package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"HODL-Box/sdk/go/hodlbox"
)

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(hodlbox.Health{Status: "healthy", Service: "HODL Box API", Version: "1.0.0"})
	})
	mux.HandleFunc("/api/v1/swap", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": hodlbox.SwapOutcome{
				Intent: &hodlbox.SwapIntent{Chain: "Ethereum", TkBuy: "BTC", TkSell: "USDT", Count: "100", Valid: true},
			},
		})
	})
	mux.HandleFunc("/api/v1/dca", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": hodlbox.DCAOutcome{
				Plan: &hodlbox.Plan{ID: "plan-demo", UserID: "demo", Status: "active", Frequency: "daily"},
			},
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := hodlbox.NewClient(srv.URL, srv.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("service %s is %s\n", health.Service, health.Status)

	swap, err := client.ParseSwap(ctx, "用100u换btc", "")
	if err != nil {
		panic(err)
	}
	fmt.Printf("parsed swap: buy %s with %s %s\n", swap.Intent.TkBuy, swap.Intent.Count, swap.Intent.TkSell)

	plan, err := client.CreateDCAPlan(ctx, "demo", "每天定投100u买btc")
	if err != nil {
		panic(err)
	}
	fmt.Printf("created plan %s (status=%s)\n", plan.Plan.ID, plan.Plan.Status)
}
