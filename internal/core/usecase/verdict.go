package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
	"github.com/aravindkv/underwriter-review/internal/core/ports"
)

// VerdictService forwards the underwriter's final decision to the
// underwriting status service. The transition itself is external; this only
// validates and relays it.
type VerdictService struct {
	sink ports.UnderwritingStatusService
}

func NewVerdictService(sink ports.UnderwritingStatusService) *VerdictService {
	return &VerdictService{sink: sink}
}

func (s *VerdictService) Submit(ctx context.Context, proposerID string, status domain.VerdictStatus, message string) error {
	if !status.Valid() {
		return domain.WrapError(domain.ErrInvalidInput, "submit verdict", fmt.Errorf("unknown status %q", status))
	}
	if strings.TrimSpace(message) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "submit verdict", errors.New("message is required"))
	}
	if err := s.sink.UpdateStatus(ctx, proposerID, status, strings.TrimSpace(message)); err != nil {
		return fmt.Errorf("update underwriting status: %w", err)
	}
	return nil
}
