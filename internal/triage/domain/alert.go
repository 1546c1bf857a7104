package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/fsm"
	"github.com/wyfcoding/pkg/idgen"
)

// Scenario 告警场景码
type Scenario string

const (
	ScenarioVelocitySpike     Scenario = "VELOCITY_SPIKE"     // A-001 交易速率突增
	ScenarioStructuring       Scenario = "STRUCTURING"        // A-002 拆分存款
	ScenarioKYCInconsistency  Scenario = "KYC_INCONSISTENCY"  // A-003 交易与 KYC 画像不符
	ScenarioSanctionsHit      Scenario = "SANCTIONS_HIT"      // A-004 制裁名单命中
	ScenarioDormantActivation Scenario = "DORMANT_ACTIVATION" // A-005 休眠账户激活
)

// KnownScenario 判断场景码是否受支持。
func KnownScenario(s Scenario) bool {
	switch s {
	case ScenarioVelocitySpike, ScenarioStructuring, ScenarioKYCInconsistency,
		ScenarioSanctionsHit, ScenarioDormantActivation:
		return true
	}
	return false
}

// Severity 告警严重级别
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// AlertStatus 告警状态
type AlertStatus string

const (
	AlertStatusOpen          AlertStatus = "OPEN"          // 新建，未调查
	AlertStatusInvestigating AlertStatus = "INVESTIGATING" // 调查执行中
	AlertStatusResolved      AlertStatus = "RESOLVED"      // 已出决议
)

// Alert 反洗钱告警聚合根
type Alert struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	AlertID     string      `json:"alert_id" gorm:"uniqueIndex;size:64"`
	Scenario    Scenario    `json:"scenario" gorm:"size:32;index"`
	Severity    Severity    `json:"severity" gorm:"size:16"`
	Status      AlertStatus `json:"status" gorm:"size:16;index"`
	CustomerID  string      `json:"customer_id" gorm:"size:64;index"`
	AccountID   string      `json:"account_id" gorm:"size:64;index"`
	Description string      `json:"description" gorm:"size:512"`
	TriggeredAt time.Time   `json:"triggered_at"`
	fsm         *fsm.Machine
}

func (Alert) TableName() string {
	return "aml_alerts"
}

// NewAlert 创建告警
func NewAlert(scenario Scenario, severity Severity, customerID, accountID, description string, triggeredAt time.Time) (*Alert, error) {
	if !KnownScenario(scenario) {
		return nil, fmt.Errorf("%w: unknown scenario %q", ErrConfiguration, scenario)
	}
	a := &Alert{
		AlertID:     fmt.Sprintf("ALERT-%d", idgen.GenID()),
		Scenario:    scenario,
		Severity:    severity,
		Status:      AlertStatusOpen,
		CustomerID:  customerID,
		AccountID:   accountID,
		Description: description,
		TriggeredAt: triggeredAt,
	}
	a.initFSM()
	return a, nil
}

func (a *Alert) initFSM() {
	m := fsm.NewMachine(fsm.State(a.Status))
	m.AddTransition(fsm.State(AlertStatusOpen), "START", fsm.State(AlertStatusInvestigating))
	m.AddTransition(fsm.State(AlertStatusInvestigating), "RESOLVE", fsm.State(AlertStatusResolved))
	m.AddTransition(fsm.State(AlertStatusResolved), "REOPEN", fsm.State(AlertStatusInvestigating))
	a.fsm = m
}

// InitFSM 确保状态机已初始化
func (a *Alert) InitFSM() {
	if a.fsm == nil {
		a.initFSM()
	}
}

// StartInvestigation 进入调查中。已处于调查中的告警视为幂等重入
// (上一次调查失败后重试的路径)。
func (a *Alert) StartInvestigation(ctx context.Context) error {
	if a.Status == AlertStatusInvestigating {
		return nil
	}
	a.InitFSM()
	event := "START"
	if a.Status == AlertStatusResolved {
		event = "REOPEN"
	}
	if err := a.fsm.Trigger(ctx, fsm.Event(event)); err != nil {
		return err
	}
	a.Status = AlertStatusInvestigating
	return nil
}

// Resolve 调查完结
func (a *Alert) Resolve(ctx context.Context) error {
	a.InitFSM()
	if err := a.fsm.Trigger(ctx, "RESOLVE"); err != nil {
		return err
	}
	a.Status = AlertStatusResolved
	return nil
}

// Flatten 展平为条件求值空间中的 alert 段。
func (a *Alert) Flatten() map[string]any {
	return map[string]any{
		"alert_id":    a.AlertID,
		"scenario":    string(a.Scenario),
		"severity":    string(a.Severity),
		"status":      string(a.Status),
		"customer_id": a.CustomerID,
		"account_id":  a.AccountID,
	}
}

// AlertRepository 告警仓储
type AlertRepository interface {
	Save(ctx context.Context, alert *Alert) error
	FindByAlertID(ctx context.Context, alertID string) (*Alert, error)
	List(ctx context.Context, status AlertStatus, scenario Scenario, limit, offset int) ([]*Alert, int64, error)
}

// InvestigationLocker 调查互斥锁：同一告警同一时刻至多一条调查流水线在跑。
type InvestigationLocker interface {
	// Acquire 尝试取锁，已被占用时返回 false。
	Acquire(ctx context.Context, alertID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, alertID string) error
}
