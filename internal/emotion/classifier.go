// Package emotion 基于关键词识别用户情绪，并为心理支持场景
// 提供鼓励语录与行情建议内容。
package emotion

import "strings"

// Label 是消息级的情绪标签，核心不保留任何历史。
type Label string

const (
	LabelFearful    Label = "fearful"
	LabelExcited    Label = "excited"
	LabelFrustrated Label = "frustrated"
	LabelNeutral    Label = "neutral"
)

// emotionRules 按优先级排列的情绪关键词规则，首个命中获胜。
var emotionRules = []struct {
	label    Label
	keywords []string
}{
	{LabelFearful, []string{"怕", "担心", "恐惧", "恐慌", "焦虑"}},
	{LabelExcited, []string{"赚", "涨", "激动", "贪婪", "期待"}},
	{LabelFrustrated, []string{"亏", "跌", "失望", "沮丧", "伤心"}},
}

// Classify 识别消息中的用户情绪，无命中时回落到 neutral。
func Classify(message string) Label {
	lowered := strings.ToLower(message)
	for _, r := range emotionRules {
		for _, keyword := range r.keywords {
			if strings.Contains(lowered, keyword) {
				return r.label
			}
		}
	}
	return LabelNeutral
}
