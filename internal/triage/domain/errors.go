package domain

import "errors"

var (
	// ErrNotFound 告警、客户或账户不存在。结构性错误，流水线中止且不落任何状态。
	ErrNotFound = errors.New("record not found")
	// ErrConfiguration 未知场景码或 SOP 条件不合法。
	ErrConfiguration = errors.New("invalid configuration")
	// ErrEvidenceUnavailable 证据库不可达，本次调查失败但告警保持可重试。
	ErrEvidenceUnavailable = errors.New("evidence store unavailable")
	// ErrDownstreamChannel 下游动作通道失败。非致命，降级记录。
	ErrDownstreamChannel = errors.New("downstream channel failure")
	// ErrInvestigationRunning 同一告警已有调查在执行中。
	ErrInvestigationRunning = errors.New("investigation already running")
)
