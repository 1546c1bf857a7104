package mysql

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/wyfcoding/amltriage/internal/triage/domain"
)

// fuzzyMatchFloor 名单筛查的模糊命中下限，低于此分值的候选不返回。
const fuzzyMatchFloor = 0.80

// EvidenceStore 证据库的 MySQL 实现。调查流水线只经由此处读证据。
type EvidenceStore struct {
	db *gorm.DB
}

// NewEvidenceStore 创建证据库
func NewEvidenceStore(db *gorm.DB) *EvidenceStore {
	return &EvidenceStore{db: db}
}

func (s *EvidenceStore) GetTransactions(ctx context.Context, accountID string, since time.Time) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND occurred_at >= ?", accountID, since).
		Order("occurred_at ASC").
		Find(&txns).Error
	return txns, err
}

func (s *EvidenceStore) GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error) {
	var customer domain.Customer
	err := s.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *EvidenceStore) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	var account domain.Account
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *EvidenceStore) GetLinkedAccounts(ctx context.Context, customerID string) ([]*domain.Account, error) {
	var accounts []*domain.Account
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("account_id ASC").
		Find(&accounts).Error
	return accounts, err
}

// ScreenName 对名单全量做模糊匹配，返回分值达标的候选，按分值降序。
func (s *EvidenceStore) ScreenName(ctx context.Context, name string) ([]*domain.SanctionsMatch, error) {
	var entities []*domain.SanctionsEntity
	if err := s.db.WithContext(ctx).Find(&entities).Error; err != nil {
		return nil, err
	}
	var matches []*domain.SanctionsMatch
	for _, entity := range entities {
		score := nameSimilarity(name, entity.Name)
		if score < fuzzyMatchFloor {
			continue
		}
		matches = append(matches, &domain.SanctionsMatch{
			EntityID:     entity.EntityID,
			EntityName:   entity.Name,
			Jurisdiction: entity.Jurisdiction,
			Score:        score,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].EntityID < matches[j].EntityID
	})
	return matches, nil
}

// BlockAccount 账户管控：冻结账户。实现 domain.AccountControl。
func (s *EvidenceStore) BlockAccount(ctx context.Context, accountID string) error {
	result := s.db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("account_id = ?", accountID).
		Update("status", domain.AccountStatusBlocked)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// nameSimilarity 归一化编辑距离相似度，完全一致为 1.0。
func nameSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1.0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	return 1.0 - float64(editDistance(a, b))/float64(maxLen)
}

func editDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
