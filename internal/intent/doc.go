// Package intent 实现自然语言消息的意图归一化：
// 代币与链名的别名归一、领域分类以及交换意图的结构化提取。
// 包内所有函数均为纯函数，规则表在进程启动时构建且只读。
package intent
