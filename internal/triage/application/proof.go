package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/wyfcoding/pkg/idgen"

	"github.com/wyfcoding/amltriage/internal/triage/domain"
)

// acceptableProofKinds RFI 可采信的材料类型。
var acceptableProofKinds = map[string]bool{
	"INVOICE":        true,
	"CONTRACT":       true,
	"BANK_STATEMENT": true,
	"TAX_RETURN":     true,
	"PAYROLL_RECORD": true,
}

// ProofService RFI 决议后的补充材料审核：材料类型可采信且申报了资金来源
// 则采纳，否则建议升级。规则确定性，同一份材料的结论可复算。
type ProofService struct {
	alerts      domain.AlertRepository
	resolutions domain.ResolutionRepository
	proofs      domain.ProofRepository
}

// NewProofService 创建材料审核服务。
func NewProofService(alerts domain.AlertRepository, resolutions domain.ResolutionRepository, proofs domain.ProofRepository) *ProofService {
	return &ProofService{
		alerts:      alerts,
		resolutions: resolutions,
		proofs:      proofs,
	}
}

// Submit 提交并审核材料。只有 RFI 决议的告警接受材料。
func (s *ProofService) Submit(ctx context.Context, alertID string, documentKinds []string, sourceOfFunds string) (*domain.ProofSubmission, error) {
	alert, err := s.alerts.FindByAlertID(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("load alert %s: %w", alertID, err)
	}
	if alert == nil {
		return nil, fmt.Errorf("%w: alert %s", domain.ErrNotFound, alertID)
	}
	resolution, err := s.resolutions.FindByAlertID(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("load resolution for %s: %w", alertID, err)
	}
	if resolution == nil || resolution.Action != domain.ActionRFI {
		return nil, fmt.Errorf("%w: alert %s has no pending information request", domain.ErrConfiguration, alertID)
	}

	submission := &domain.ProofSubmission{
		SubmissionID:  fmt.Sprintf("PROOF-%d", idgen.GenID()),
		AlertID:       alertID,
		DocumentKinds: strings.Join(documentKinds, ","),
		SourceOfFunds: sourceOfFunds,
	}
	submission.Outcome, submission.Note = evaluateProof(documentKinds, sourceOfFunds)
	if err := s.proofs.Save(ctx, submission); err != nil {
		return nil, fmt.Errorf("save proof submission for %s: %w", alertID, err)
	}
	return submission, nil
}

// List 列出告警下的全部材料提交记录。
func (s *ProofService) List(ctx context.Context, alertID string) ([]*domain.ProofSubmission, error) {
	return s.proofs.ListByAlert(ctx, alertID)
}

func evaluateProof(documentKinds []string, sourceOfFunds string) (domain.ProofOutcome, string) {
	if strings.TrimSpace(sourceOfFunds) == "" {
		return domain.ProofRejected, "source of funds not declared; recommend escalation"
	}
	var accepted []string
	for _, kind := range documentKinds {
		if acceptableProofKinds[strings.ToUpper(strings.TrimSpace(kind))] {
			accepted = append(accepted, kind)
		}
	}
	if len(accepted) == 0 {
		return domain.ProofRejected, "no verifiable document kind provided; recommend escalation"
	}
	return domain.ProofAccepted, fmt.Sprintf("accepted on %s", strings.Join(accepted, ", "))
}
