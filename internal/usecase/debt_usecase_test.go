package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
	"github.com/iho/fxledger/internal/usecase/mocks"
)

func TestDebtUseCase_CreateDebt(t *testing.T) {
	tests := []struct {
		name             string
		input            usecase.CreateDebtInput
		wantInstallments int
		expectError      error
	}{
		{
			name:             "with opening installment",
			input:            usecase.CreateDebtInput{Party: "Salem", Currency: "usd", Direction: domain.DebtOwedToUs, Amount: dec("500"), Note: "loan"},
			wantInstallments: 1,
		},
		{
			name:  "without installment",
			input: usecase.CreateDebtInput{Party: "Supplier", Currency: "LYD", Direction: domain.DebtOwedByUs},
		},
		{
			name:        "negative amount",
			input:       usecase.CreateDebtInput{Party: "Salem", Currency: "USD", Direction: domain.DebtOwedToUs, Amount: dec("-1")},
			expectError: domain.ErrValidation,
		},
		{
			name:        "missing party",
			input:       usecase.CreateDebtInput{Currency: "USD", Direction: domain.DebtOwedToUs},
			expectError: domain.ErrValidation,
		},
		{
			name:        "unknown direction",
			input:       usecase.CreateDebtInput{Party: "Salem", Currency: "USD", Direction: "sideways"},
			expectError: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)

			debt, err := e.debts.CreateDebt(context.Background(), tt.input)
			if tt.expectError != nil {
				require.ErrorIs(t, err, tt.expectError)
				return
			}
			require.NoError(t, err)
			assert.Len(t, debt.Installments, tt.wantInstallments)
			assert.Equal(t, domain.NormalizeCurrency(tt.input.Currency), debt.Currency)
			requireDecimal(t, tt.input.Amount.String(), debt.Outstanding())
		})
	}
}

func TestDebtUseCase_Installments(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	debt, err := e.debts.CreateDebt(ctx, usecase.CreateDebtInput{Party: "Salem", Currency: "LYD", Direction: domain.DebtOwedToUs, Amount: dec("100")})
	require.NoError(t, err)

	debt, err = e.debts.AddInstallment(ctx, debt.ID, dec("40"), "second")
	require.NoError(t, err)
	require.Len(t, debt.Installments, 2)
	requireDecimal(t, "140", debt.Outstanding())

	_, err = e.debts.AddInstallment(ctx, debt.ID, dec("0"), "")
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = e.debts.AddInstallment(ctx, "ghost", dec("1"), "")
	require.ErrorIs(t, err, domain.ErrNotFound)

	debt, err = e.debts.ArchiveInstallment(ctx, debt.ID, debt.Installments[0].ID)
	require.NoError(t, err)
	assert.True(t, debt.Installments[0].Archived)
	requireDecimal(t, "40", debt.Outstanding())

	_, err = e.debts.ArchiveInstallment(ctx, debt.ID, "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDebtUseCase_ListDebts(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.debts.CreateDebt(ctx, usecase.CreateDebtInput{Party: "Salem", Currency: "LYD", Direction: domain.DebtOwedToUs})
	require.NoError(t, err)
	_, err = e.debts.CreateDebt(ctx, usecase.CreateDebtInput{Party: "Supplier", Currency: "LYD", Direction: domain.DebtOwedByUs})
	require.NoError(t, err)

	all, err := e.debts.ListDebts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	owed, err := e.debts.ListDebts(ctx, domain.DebtOwedByUs)
	require.NoError(t, err)
	require.Len(t, owed, 1)
	assert.Equal(t, "Supplier", owed[0].Party)

	_, err = e.debts.ListDebts(ctx, "sideways")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestDebtUseCase_RepositoryError(t *testing.T) {
	ctrl := gomock.NewController(t)
	txm := mocks.NewMockTransactionManager(ctrl)
	tx := mocks.NewMockTransaction(ctrl)
	repo := mocks.NewMockDebtRepository(ctrl)

	txm.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	repo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(errors.New("connection refused"))
	tx.EXPECT().Rollback(gomock.Any()).Return(nil)

	uc := usecase.NewDebtUseCase(txm, repo, mocks.NewMockIDGenerator(), nil, zerolog.Nop())
	_, err := uc.CreateDebt(context.Background(), usecase.CreateDebtInput{Party: "Salem", Currency: "LYD", Direction: domain.DebtOwedToUs})
	require.EqualError(t, err, "connection refused")
}

func TestDebtUseCase_Permissions(t *testing.T) {
	ctrl := gomock.NewController(t)
	uc := usecase.NewDebtUseCase(
		mocks.NewMockTransactionManager(ctrl), mocks.NewMockDebtRepository(ctrl), mocks.NewMockIDGenerator(),
		mocks.NewMockPermissionChecker(domain.RoleOperator), zerolog.Nop(),
	)

	_, err := uc.ArchiveInstallment(context.Background(), "d1", "i1")
	require.ErrorIs(t, err, domain.ErrPermissionDenied)
}
