package service

import (
	"fmt"
	"regexp"

	"github.com/XronosSchedulingLtd/scheduler-sub003/config"
)

// RuleMatcher 允许重叠规则匹配器
// 持有一份不可变的有序规则表，纯函数匹配，无任何运行期状态。
// 规则建立在自由文本事件描述上，本质是启发式：宁可漏抑制（把真冲突
// 报给人看）也不能误抑制。
type RuleMatcher struct {
	rules []overloadRule
}

// overloadRule 编译后的规则对
type overloadRule struct {
	cover    *regexp.Regexp
	clashing *regexp.Regexp
}

// NewRuleMatcher 从配置构建匹配器，规则顺序即声明顺序
func NewRuleMatcher(rules []config.OverloadRule) (*RuleMatcher, error) {
	compiled := make([]overloadRule, 0, len(rules))
	for i, r := range rules {
		cover, err := regexp.Compile(r.Cover)
		if err != nil {
			return nil, fmt.Errorf("允许重叠规则[%d] cover 正则编译失败: %w", i, err)
		}
		clashing, err := regexp.Compile(r.Clashing)
		if err != nil {
			return nil, fmt.Errorf("允许重叠规则[%d] clashing 正则编译失败: %w", i, err)
		}
		compiled = append(compiled, overloadRule{cover: cover, clashing: clashing})
	}
	return &RuleMatcher{rules: compiled}, nil
}

// Suppressed 判定一对事件描述是否构成允许的重叠
// 按序命中第一条 cover 与 clashing 同时匹配的规则即抑制；无命中返回 false
func (m *RuleMatcher) Suppressed(coverBody, clashingBody string) bool {
	for _, r := range m.rules {
		if r.cover.MatchString(coverBody) && r.clashing.MatchString(clashingBody) {
			return true
		}
	}
	return false
}

// Len 返回规则条数
func (m *RuleMatcher) Len() int { return len(m.rules) }
