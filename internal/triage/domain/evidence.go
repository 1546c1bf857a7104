package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// 证据库记录。调查流水线对这些表只读，BLOCK 动作例外(账户管控走独立端口)。

// TransactionDirection 资金方向
type TransactionDirection string

const (
	DirectionInbound  TransactionDirection = "INBOUND"
	DirectionOutbound TransactionDirection = "OUTBOUND"
)

// TransactionChannel 交易渠道
type TransactionChannel string

const (
	ChannelCash     TransactionChannel = "CASH"
	ChannelWire     TransactionChannel = "WIRE"
	ChannelCard     TransactionChannel = "CARD"
	ChannelTransfer TransactionChannel = "TRANSFER"
)

// Transaction 账户流水
type Transaction struct {
	ID                  uint                 `json:"id" gorm:"primaryKey"`
	TransactionID       string               `json:"transaction_id" gorm:"uniqueIndex;size:64"`
	AccountID           string               `json:"account_id" gorm:"size:64;index:idx_txn_account_time"`
	Direction           TransactionDirection `json:"direction" gorm:"size:16"`
	Channel             TransactionChannel   `json:"channel" gorm:"size:16"`
	Amount              decimal.Decimal      `json:"amount" gorm:"type:decimal(20,4)"`
	Currency            string               `json:"currency" gorm:"size:8"`
	Counterparty        string               `json:"counterparty" gorm:"size:128"`
	CounterpartyMCC     string               `json:"counterparty_mcc" gorm:"size:16"`
	CounterpartyCountry string               `json:"counterparty_country" gorm:"size:8"`
	BranchLocation      string               `json:"branch_location" gorm:"size:64"`
	OccurredAt          time.Time            `json:"occurred_at" gorm:"index:idx_txn_account_time"`
}

func (Transaction) TableName() string {
	return "evidence_transactions"
}

// Customer KYC 客户档案
type Customer struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	CustomerID     string          `json:"customer_id" gorm:"uniqueIndex;size:64"`
	Name           string          `json:"name" gorm:"size:128"`
	Occupation     string          `json:"occupation" gorm:"size:64"`
	Employer       string          `json:"employer" gorm:"size:128"`
	KYCRisk        string          `json:"kyc_risk" gorm:"size:16"` // LOW / MEDIUM / HIGH
	DeclaredIncome decimal.Decimal `json:"declared_income" gorm:"type:decimal(20,4)"`
	Jurisdiction   string          `json:"jurisdiction" gorm:"size:32"`
	ProfiledAt     time.Time       `json:"profiled_at"`
}

func (Customer) TableName() string {
	return "evidence_customers"
}

// AccountStatus 账户状态
type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "ACTIVE"
	AccountStatusDormant AccountStatus = "DORMANT"
	AccountStatusBlocked AccountStatus = "BLOCKED"
)

// Account 账户档案
type Account struct {
	ID             uint          `json:"id" gorm:"primaryKey"`
	AccountID      string        `json:"account_id" gorm:"uniqueIndex;size:64"`
	CustomerID     string        `json:"customer_id" gorm:"size:64;index"`
	Status         AccountStatus `json:"status" gorm:"size:16"`
	OpenedAt       time.Time     `json:"opened_at"`
	LastActivityAt time.Time     `json:"last_activity_at"`
}

func (Account) TableName() string {
	return "evidence_accounts"
}

// SanctionsEntity 制裁名单条目
type SanctionsEntity struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	EntityID     string `json:"entity_id" gorm:"uniqueIndex;size:64"`
	Name         string `json:"name" gorm:"size:128;index"`
	Jurisdiction string `json:"jurisdiction" gorm:"size:32"`
	Program      string `json:"program" gorm:"size:64"`
}

func (SanctionsEntity) TableName() string {
	return "sanctions_entities"
}

// SanctionsMatch 针对某个名称的一条候选命中，分值 0~1。
type SanctionsMatch struct {
	EntityID     string  `json:"entity_id"`
	EntityName   string  `json:"entity_name"`
	Jurisdiction string  `json:"jurisdiction"`
	Score        float64 `json:"score"`
}

// EvidenceStore 证据库读端口。所有流水查询按时间升序返回。
type EvidenceStore interface {
	GetTransactions(ctx context.Context, accountID string, since time.Time) ([]*Transaction, error)
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	GetAccount(ctx context.Context, accountID string) (*Account, error)
	GetLinkedAccounts(ctx context.Context, customerID string) ([]*Account, error)
	ScreenName(ctx context.Context, name string) ([]*SanctionsMatch, error)
}

// AccountControl 账户管控端口，仅供 BLOCK 动作使用。
type AccountControl interface {
	BlockAccount(ctx context.Context, accountID string) error
}
