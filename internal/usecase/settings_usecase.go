package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/iho/fxledger/internal/domain"
)

// SettingsUseCase reads and writes the layout blobs carried in exports.
// Values are opaque JSON; only well-formedness is checked.
type SettingsUseCase struct {
	txManager    TransactionManager
	settingsRepo SettingsRepository
	perms        PermissionChecker
}

// NewSettingsUseCase creates a new SettingsUseCase.
func NewSettingsUseCase(txManager TransactionManager, settingsRepo SettingsRepository, perms PermissionChecker) *SettingsUseCase {
	return &SettingsUseCase{
		txManager:    txManager,
		settingsRepo: settingsRepo,
		perms:        perms,
	}
}

// GetSetting returns the blob stored under key.
func (uc *SettingsUseCase) GetSetting(ctx context.Context, key string) (json.RawMessage, error) {
	if err := authorize(ctx, uc.perms, domain.CategorySettings, domain.ActionView); err != nil {
		return nil, err
	}
	key, err := settingKey(key)
	if err != nil {
		return nil, err
	}
	return uc.settingsRepo.Get(ctx, key)
}

// PutSetting replaces the blob stored under key.
func (uc *SettingsUseCase) PutSetting(ctx context.Context, key string, value json.RawMessage) error {
	if err := authorize(ctx, uc.perms, domain.CategorySettings, domain.ActionUpdate); err != nil {
		return err
	}
	key, err := settingKey(key)
	if err != nil {
		return err
	}
	if len(value) == 0 {
		return domain.NewValidationError("value", "setting value is required")
	}

	return runInUnit(ctx, uc.txManager, func(txCtx context.Context, tx Transaction) error {
		return uc.settingsRepo.Put(txCtx, tx, key, value)
	})
}

func settingKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", domain.NewValidationError("key", "setting key is required")
	}
	return key, nil
}
