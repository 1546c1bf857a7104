package domain

import (
	"context"
	"time"
)

// ProofOutcome 补充材料审核结论
type ProofOutcome string

const (
	ProofAccepted ProofOutcome = "ACCEPTED" // 材料充分，告警维持关闭
	ProofRejected ProofOutcome = "REJECTED" // 材料不充分，建议升级
)

// ProofSubmission RFI 决议后客户提交的证明材料及其审核结论。
type ProofSubmission struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	CreatedAt     time.Time    `json:"created_at"`
	SubmissionID  string       `json:"submission_id" gorm:"uniqueIndex;size:64"`
	AlertID       string       `json:"alert_id" gorm:"index;size:64"`
	DocumentKinds string       `json:"document_kinds" gorm:"size:256"` // 逗号分隔的材料类型
	SourceOfFunds string       `json:"source_of_funds" gorm:"size:512"`
	Outcome       ProofOutcome `json:"outcome" gorm:"size:16"`
	Note          string       `json:"note" gorm:"size:512"`
}

func (ProofSubmission) TableName() string {
	return "triage_proof_submissions"
}

// ProofRepository 证明材料仓储。
type ProofRepository interface {
	Save(ctx context.Context, submission *ProofSubmission) error
	ListByAlert(ctx context.Context, alertID string) ([]*ProofSubmission, error)
}
