package domain

import (
	"context"
	"time"
)

// Action 决议动作
type Action string

const (
	ActionEscalate Action = "ESCALATE" // 升级人工并准备 SAR
	ActionRFI      Action = "RFI"      // 向客户发补充材料请求
	ActionIVR      Action = "IVR"      // 外呼核实
	ActionClose    Action = "CLOSE"    // 误报关闭
	ActionBlock    Action = "BLOCK"    // 冻结账户
)

// ValidAction 判断动作是否受支持。
func ValidAction(a Action) bool {
	switch a {
	case ActionEscalate, ActionRFI, ActionIVR, ActionClose, ActionBlock:
		return true
	}
	return false
}

// SOP 标准处置规程规则。条件文本在规则创建时编译校验，
// 裁决阶段复用缓存的编译结果；编译失败的规则按不匹配跳过(fail-closed)。
type SOP struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	RuleID        string    `json:"rule_id" gorm:"uniqueIndex;size:32"`
	Scenario      Scenario  `json:"scenario" gorm:"size:32;index"`
	RuleName      string    `json:"rule_name" gorm:"size:128"`
	ConditionText string    `json:"condition_text" gorm:"size:1024"`
	Action        Action    `json:"action" gorm:"size:16"`
	Priority      int       `json:"priority"`
	Version       int       `json:"version"`
	Active        bool      `json:"active" gorm:"index"`
}

func (SOP) TableName() string {
	return "triage_sops"
}

// SOPRepository SOP 仓储。ListActive 按 (priority, rule_id) 升序返回。
type SOPRepository interface {
	Save(ctx context.Context, sop *SOP) error
	FindByRuleID(ctx context.Context, ruleID string) (*SOP, error)
	ListActive(ctx context.Context, scenario Scenario) ([]*SOP, error)
	ListAll(ctx context.Context, scenario Scenario) ([]*SOP, error)
}
