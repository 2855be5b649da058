// Package agent 实现各领域智能体：代币交换、定投、心理支持与行情查询，
// 以及把自由文本路由到对应智能体的 Router。
package agent
