package usecase_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/fxledger/internal/adapter/repository/memory"
	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
	"github.com/iho/fxledger/internal/usecase/mocks"
)

func TestSettingsUseCase_PutAndGet(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	settings := usecase.NewSettingsUseCase(memory.NewTxManager(e.store), memory.NewSettingsRepository(e.store), nil)

	require.NoError(t, settings.PutSetting(ctx, " sidebar ", json.RawMessage(`["capital","profit"]`)))

	value, err := settings.GetSetting(ctx, "sidebar")
	require.NoError(t, err)
	assert.JSONEq(t, `["capital","profit"]`, string(value))

	// Settings travel with the exported bundle.
	bundle, err := e.backup.Export(ctx, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `["capital","profit"]`, string(bundle.Settings["sidebar"]))

	_, err = settings.GetSetting(ctx, "dashboard")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSettingsUseCase_Validation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	settings := usecase.NewSettingsUseCase(memory.NewTxManager(e.store), memory.NewSettingsRepository(e.store), nil)

	require.ErrorIs(t, settings.PutSetting(ctx, "  ", json.RawMessage(`{}`)), domain.ErrValidation)
	require.ErrorIs(t, settings.PutSetting(ctx, "dashboard", nil), domain.ErrValidation)
	require.ErrorIs(t, settings.PutSetting(ctx, "dashboard", json.RawMessage(`{broken`)), domain.ErrValidation)
	_, err := settings.GetSetting(ctx, "")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestSettingsUseCase_Permissions(t *testing.T) {
	store := memory.NewStore()
	settings := usecase.NewSettingsUseCase(
		memory.NewTxManager(store), memory.NewSettingsRepository(store),
		mocks.NewMockPermissionChecker(domain.RoleViewer),
	)

	err := settings.PutSetting(context.Background(), "dashboard", json.RawMessage(`{}`))
	require.ErrorIs(t, err, domain.ErrPermissionDenied)
}
