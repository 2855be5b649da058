// Package llm 定义调用大模型的统一接口，具体后端由子包实现。
package llm

import "context"

// Request 描述一次大模型调用：各智能体注入自己的系统提示词。
type Request struct {
	SystemPrompt string
	UserMessage  string
	Temperature  float64
	MaxTokens    int
}

// Response 是大模型生成的回复。
type Response struct {
	Reply string
}

// Client 定义了调用大模型的统一接口。
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}
