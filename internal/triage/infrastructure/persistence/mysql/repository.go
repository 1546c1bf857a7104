package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wyfcoding/amltriage/internal/triage/domain"
)

// AlertRepository 告警仓储的 MySQL 实现
type AlertRepository struct {
	db *gorm.DB
}

// NewAlertRepository 创建告警仓储
func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Save(ctx context.Context, alert *domain.Alert) error {
	return r.db.WithContext(ctx).Save(alert).Error
}

func (r *AlertRepository) FindByAlertID(ctx context.Context, alertID string) (*domain.Alert, error) {
	var alert domain.Alert
	err := r.db.WithContext(ctx).Where("alert_id = ?", alertID).First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	alert.InitFSM()
	return &alert, nil
}

func (r *AlertRepository) List(ctx context.Context, status domain.AlertStatus, scenario domain.Scenario, limit, offset int) ([]*domain.Alert, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Alert{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if scenario != "" {
		query = query.Where("scenario = ?", scenario)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var alerts []*domain.Alert
	if err := query.Order("id DESC").Limit(limit).Offset(offset).Find(&alerts).Error; err != nil {
		return nil, 0, err
	}
	for _, a := range alerts {
		a.InitFSM()
	}
	return alerts, total, nil
}

// SOPRepository SOP 仓储的 MySQL 实现
type SOPRepository struct {
	db *gorm.DB
}

// NewSOPRepository 创建 SOP 仓储
func NewSOPRepository(db *gorm.DB) *SOPRepository {
	return &SOPRepository{db: db}
}

func (r *SOPRepository) Save(ctx context.Context, sop *domain.SOP) error {
	return r.db.WithContext(ctx).Save(sop).Error
}

func (r *SOPRepository) FindByRuleID(ctx context.Context, ruleID string) (*domain.SOP, error) {
	var sop domain.SOP
	err := r.db.WithContext(ctx).Where("rule_id = ?", ruleID).First(&sop).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sop, nil
}

func (r *SOPRepository) ListActive(ctx context.Context, scenario domain.Scenario) ([]*domain.SOP, error) {
	var sops []*domain.SOP
	err := r.db.WithContext(ctx).
		Where("scenario = ? AND active = ?", scenario, true).
		Order("priority ASC, rule_id ASC").
		Find(&sops).Error
	return sops, err
}

func (r *SOPRepository) ListAll(ctx context.Context, scenario domain.Scenario) ([]*domain.SOP, error) {
	query := r.db.WithContext(ctx).Model(&domain.SOP{})
	if scenario != "" {
		query = query.Where("scenario = ?", scenario)
	}
	var sops []*domain.SOP
	err := query.Order("priority ASC, rule_id ASC").Find(&sops).Error
	return sops, err
}

// ResolutionRepository 决议仓储的 MySQL 实现
type ResolutionRepository struct {
	db *gorm.DB
}

// NewResolutionRepository 创建决议仓储
func NewResolutionRepository(db *gorm.DB) *ResolutionRepository {
	return &ResolutionRepository{db: db}
}

func (r *ResolutionRepository) Save(ctx context.Context, resolution *domain.Resolution) error {
	// 同一告警重跑覆盖旧决议。
	var existing domain.Resolution
	err := r.db.WithContext(ctx).Where("alert_id = ?", resolution.AlertID).First(&existing).Error
	if err == nil {
		resolution.ID = existing.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.WithContext(ctx).Save(resolution).Error
}

func (r *ResolutionRepository) FindByAlertID(ctx context.Context, alertID string) (*domain.Resolution, error) {
	var resolution domain.Resolution
	err := r.db.WithContext(ctx).Where("alert_id = ?", alertID).First(&resolution).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resolution, nil
}

// SARCaseRepository SAR 立案仓储的 MySQL 实现
type SARCaseRepository struct {
	db *gorm.DB
}

// NewSARCaseRepository 创建 SAR 立案仓储
func NewSARCaseRepository(db *gorm.DB) *SARCaseRepository {
	return &SARCaseRepository{db: db}
}

func (r *SARCaseRepository) Save(ctx context.Context, sarCase *domain.SARCase) error {
	return r.db.WithContext(ctx).Save(sarCase).Error
}

func (r *SARCaseRepository) FindByAlertID(ctx context.Context, alertID string) (*domain.SARCase, error) {
	var sarCase domain.SARCase
	err := r.db.WithContext(ctx).Where("alert_id = ?", alertID).Order("id DESC").First(&sarCase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sarCase, nil
}

// ProofRepository 证明材料仓储的 MySQL 实现
type ProofRepository struct {
	db *gorm.DB
}

// NewProofRepository 创建证明材料仓储
func NewProofRepository(db *gorm.DB) *ProofRepository {
	return &ProofRepository{db: db}
}

func (r *ProofRepository) Save(ctx context.Context, submission *domain.ProofSubmission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *ProofRepository) ListByAlert(ctx context.Context, alertID string) ([]*domain.ProofSubmission, error) {
	var submissions []*domain.ProofSubmission
	err := r.db.WithContext(ctx).Where("alert_id = ?", alertID).Order("id ASC").Find(&submissions).Error
	return submissions, err
}

// eventRow 审计事件行，Payload 序列化为 JSON 文本存储。
type eventRow struct {
	ID        uint   `gorm:"primaryKey"`
	EventID   string `gorm:"uniqueIndex;size:64"`
	AlertID   string `gorm:"index;size:64"`
	Kind      string `gorm:"size:32"`
	Stage     string `gorm:"size:32"`
	Sequence  int
	Payload   string `gorm:"type:text"`
	CreatedAt int64  // unix 毫秒
}

func (eventRow) TableName() string {
	return "triage_events"
}

// EventSink 审计事件流的 MySQL 实现，同一告警按插入顺序读取。
type EventSink struct {
	db *gorm.DB
}

// NewEventSink 创建审计事件流
func NewEventSink(db *gorm.DB) *EventSink {
	return &EventSink{db: db}
}

func (s *EventSink) Append(ctx context.Context, event *domain.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	row := &eventRow{
		EventID:   event.EventID,
		AlertID:   event.AlertID,
		Kind:      string(event.Kind),
		Stage:     event.Stage,
		Sequence:  event.Sequence,
		Payload:   string(payload),
		CreatedAt: event.CreatedAt.UnixMilli(),
	}
	return s.db.WithContext(ctx).Create(row).Error
}

func (s *EventSink) ListByAlert(ctx context.Context, alertID string) ([]*domain.Event, error) {
	var rows []*eventRow
	if err := s.db.WithContext(ctx).Where("alert_id = ?", alertID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	events := make([]*domain.Event, 0, len(rows))
	for _, row := range rows {
		event, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (row *eventRow) toDomain() (*domain.Event, error) {
	var payload map[string]any
	if row.Payload != "" {
		if err := json.Unmarshal([]byte(row.Payload), &payload); err != nil {
			return nil, fmt.Errorf("unmarshal event %s payload: %w", row.EventID, err)
		}
	}
	return &domain.Event{
		EventID:   row.EventID,
		AlertID:   row.AlertID,
		Kind:      domain.EventKind(row.Kind),
		Stage:     row.Stage,
		Sequence:  row.Sequence,
		Payload:   payload,
		CreatedAt: time.UnixMilli(row.CreatedAt),
	}, nil
}
