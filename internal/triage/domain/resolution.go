package domain

import (
	"context"
	"time"
)

// 决议置信度常量：规则命中与兜底决策各自固定。
const (
	RuleMatchConfidence = 0.95
	FallbackConfidence  = 0.50
)

// FallbackRuleID 无 SOP 命中时写入决议的哨兵规则号。
const FallbackRuleID = "FALLBACK"

// Resolution 一次调查的最终决议。FindingsJSON/ContextJSON 保存
// 裁决时刻的完整求值输入，支持事后逐字重放。
type Resolution struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	CreatedAt     time.Time `json:"created_at"`
	ResolutionID  string    `json:"resolution_id" gorm:"uniqueIndex;size:64"`
	AlertID       string    `json:"alert_id" gorm:"uniqueIndex;size:64"`
	Action        Action    `json:"action" gorm:"size:16"`
	MatchedRuleID string    `json:"matched_rule_id" gorm:"size:32"`
	Confidence    float64   `json:"confidence"`
	Rationale     string    `json:"rationale" gorm:"size:1024"`
	FindingsJSON  string    `json:"findings_json" gorm:"type:text"`
	ContextJSON   string    `json:"context_json" gorm:"type:text"`
	DecidedAt     time.Time `json:"decided_at"`
}

func (Resolution) TableName() string {
	return "triage_resolutions"
}

// ActionResultStatus 动作执行结果状态
type ActionResultStatus string

const (
	ActionStatusCompleted ActionResultStatus = "COMPLETED"
	ActionStatusDegraded  ActionResultStatus = "DEGRADED" // 下游通道失败，已记录待补偿
)

// ActionResult 动作执行结果
type ActionResult struct {
	Action     Action             `json:"action"`
	Status     ActionResultStatus `json:"status"`
	Reference  string             `json:"reference"` // SAR 编号、通知单号等
	Detail     string             `json:"detail"`
	ExecutedAt time.Time          `json:"executed_at"`
}

// SARCase 升级动作产生的可疑活动报告立案记录。
type SARCase struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	CaseNo    string    `json:"case_no" gorm:"uniqueIndex;size:64"`
	AlertID   string    `json:"alert_id" gorm:"index;size:64"`
	RuleID    string    `json:"rule_id" gorm:"size:32"`
	Narrative string    `json:"narrative" gorm:"size:2048"`
}

func (SARCase) TableName() string {
	return "triage_sar_cases"
}

// ResolutionRepository 决议仓储。每个告警至多一条决议，重跑覆盖。
type ResolutionRepository interface {
	Save(ctx context.Context, resolution *Resolution) error
	FindByAlertID(ctx context.Context, alertID string) (*Resolution, error)
}

// SARCaseRepository SAR 立案仓储。
type SARCaseRepository interface {
	Save(ctx context.Context, sarCase *SARCase) error
	FindByAlertID(ctx context.Context, alertID string) (*SARCase, error)
}

// RationaleGenerator 可选的决议说明生成器(LLM 辅助)。
// 只允许改写说明文本，永远不得影响动作、置信度或命中规则。
type RationaleGenerator interface {
	Rationale(ctx context.Context, alert *Alert, resolution *Resolution) (string, error)
}
