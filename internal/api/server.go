// Package api 暴露 REST 接口，把 HTTP 请求翻译为各智能体调用，
// 并以统一的 status/data/error 信封返回结果。
package api

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"io"
	"net/http"
	"strings"
	"time"

	"HODL-Box/internal/agent"
	"HODL-Box/internal/dca"
	xerrors "HODL-Box/internal/errors"
	"HODL-Box/internal/intent"
)

// Version 随健康检查返回。
const Version = "1.0.0"

// Server 负责暴露 REST 接口。
type Server struct {
	addr   string
	router *agent.Router
	swap   *agent.SwapAgent
	dca    *agent.DCAAgent
	mental *agent.MentalAgent
	market *agent.MarketAgent
	plans  *dca.Service
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, router *agent.Router, swap *agent.SwapAgent, dcaAgent *agent.DCAAgent,
	mental *agent.MentalAgent, market *agent.MarketAgent, plans *dca.Service) *Server {
	return &Server{
		addr:   addr,
		router: router,
		swap:   swap,
		dca:    dcaAgent,
		mental: mental,
		market: market,
		plans:  plans,
	}
}

// Handler 返回完整路由的 http.Handler，便于测试复用。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/v1/chat", s.handleChat)
	mux.HandleFunc("/api/v1/swap", s.handleSwap)
	mux.HandleFunc("/api/v1/dca", s.handleDCA)
	mux.HandleFunc("/api/v1/dca/plans", s.handleListPlans)
	mux.HandleFunc("/api/v1/mental-support", s.handleMentalSupport)
	mux.HandleFunc("/api/v1/market-data", s.handleMarketData)
	return mux
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "HODL Box API",
		"version": Version,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	if s.router == nil {
		writeError(w, http.StatusServiceUnavailable, "服务未初始化")
		return
	}

	var req agent.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}

	result, err := s.router.Handle(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, result)
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	if s.swap == nil {
		writeError(w, http.StatusServiceUnavailable, "服务未初始化")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "请求体读取失败")
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	// 结构化字段接受长短两套命名（tkBuy/tokenBuy 等），
	// 歧义由 SwapFields 的反序列化统一消除。
	var fields intent.SwapFields
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}
	hasFields := fields.TokenBuy != "" || fields.TokenSell != "" || fields.Amount != ""

	var outcome *agent.SwapOutcome
	if strings.TrimSpace(req.Message) == "" && hasFields {
		outcome, err = s.swap.HandleFields(r.Context(), fields)
	} else {
		outcome, err = s.swap.Handle(r.Context(), req.Message, fields.Chain)
		// 模型不可用或超时但请求已携带结构化字段时直接走字段校验。
		if err != nil && hasFields {
			switch xerrors.CodeOf(err) {
			case xerrors.CodeLLMFailure, xerrors.CodeTimeout:
				outcome, err = s.swap.HandleFields(r.Context(), fields)
			}
		}
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, outcome)
}

func (s *Server) handleDCA(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	if s.dca == nil {
		writeError(w, http.StatusServiceUnavailable, "服务未初始化")
		return
	}

	var req struct {
		UserID  string `json:"user_id"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}

	outcome, err := s.dca.Handle(r.Context(), req.UserID, req.Message)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, outcome)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	if s.plans == nil {
		writeError(w, http.StatusServiceUnavailable, "服务未初始化")
		return
	}

	plans, err := s.plans.List(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, map[string]any{"plans": plans})
}

func (s *Server) handleMentalSupport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	if s.mental == nil {
		writeError(w, http.StatusServiceUnavailable, "服务未初始化")
		return
	}

	var req struct {
		UserID      string `json:"user_id"`
		Message     string `json:"message"`
		MarketState string `json:"market_state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}

	outcome, err := s.mental.Handle(r.Context(), req.UserID, req.Message, req.MarketState)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, outcome)
}

func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	if s.market == nil {
		writeError(w, http.StatusServiceUnavailable, "服务未初始化")
		return
	}

	var req struct {
		Symbol             string `json:"symbol"`
		VsCurrency         string `json:"vs_currency"`
		IncludeMarketState *bool  `json:"include_market_state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}

	includeState := true
	if req.IncludeMarketState != nil {
		includeState = *req.IncludeMarketState
	}

	report, err := s.market.Handle(r.Context(), req.Symbol, req.VsCurrency, includeState)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, report)
}

// writeDomainError 把领域错误映射为 HTTP 状态与统一错误信封。
func writeDomainError(w http.ResponseWriter, err error) {
	var missing *intent.MissingFieldError
	if stdErrors.As(err, &missing) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"status":   "error",
			"error":    missing.Error(),
			"required": missing.Required,
			"provided": missing.Provided,
		})
		return
	}

	status := http.StatusInternalServerError
	switch xerrors.CodeOf(err) {
	case xerrors.CodeInvalidArgument, xerrors.CodeMissingField, dca.CodePlanValidation:
		status = http.StatusBadRequest
	case xerrors.CodeNotFound, dca.CodePlanNotFound:
		status = http.StatusNotFound
	case xerrors.CodeTimeout:
		status = http.StatusGatewayTimeout
	case xerrors.CodeLLMFailure, xerrors.CodeMarketDataFailure, xerrors.CodeChainFailure:
		status = http.StatusBadGateway
	}
	writeError(w, status, err.Error())
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"status": "error",
		"error":  message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
