package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/infrastructure/format"
	"github.com/iho/fxledger/internal/usecase"
)

// AssetResponse represents an asset and its balance in API responses.
type AssetResponse struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Currency       string           `json:"currency"`
	Kind           domain.AssetKind `json:"kind"`
	BankID         string           `json:"bank_id,omitempty"`
	OpeningBalance decimal.Decimal  `json:"opening_balance"`
	Balance        decimal.Decimal  `json:"balance"`
	Display        string           `json:"display"`
	CreatedAt      time.Time        `json:"created_at"`
}

// AssetFromDomain converts a domain asset to a response.
func AssetFromDomain(a *domain.Asset) *AssetResponse {
	return &AssetResponse{
		ID:             a.ID,
		Name:           a.Name,
		Currency:       a.Currency,
		Kind:           a.Kind,
		BankID:         a.BankID,
		OpeningBalance: a.OpeningBalance,
		Balance:        a.Balance,
		Display:        format.Amount(a.Balance, a.Currency),
		CreatedAt:      a.CreatedAt,
	}
}

// AssetsFromDomain converts domain assets to responses.
func AssetsFromDomain(assets []*domain.Asset) []*AssetResponse {
	result := make([]*AssetResponse, len(assets))
	for i, a := range assets {
		result[i] = AssetFromDomain(a)
	}
	return result
}

// HistoricalBalanceResponse is an asset balance as of a point in time.
type HistoricalBalanceResponse struct {
	AssetID string          `json:"asset_id"`
	At      time.Time       `json:"at"`
	Balance decimal.Decimal `json:"balance"`
}

// TransactionListResponse is a page of transactions.
type TransactionListResponse struct {
	Transactions []*domain.Transaction `json:"transactions"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// GroupResponse represents a transaction group.
type GroupResponse struct {
	ID      string                `json:"id"`
	Kind    domain.OperationKind  `json:"kind,omitempty"`
	State   usecase.GroupState    `json:"state"`
	Primary *domain.Transaction   `json:"primary,omitempty"`
	Members []*domain.Transaction `json:"members"`
}

// GroupFromView converts a group view to a response.
func GroupFromView(v *usecase.GroupView) *GroupResponse {
	return &GroupResponse{
		ID:      v.ID,
		Kind:    v.Kind,
		State:   v.State,
		Primary: v.Primary,
		Members: v.Members,
	}
}

// DebtResponse represents a debt with its outstanding amount.
type DebtResponse struct {
	*domain.Debt
	Outstanding decimal.Decimal `json:"outstanding"`
}

// DebtFromDomain converts a domain debt to a response.
func DebtFromDomain(d *domain.Debt) *DebtResponse {
	return &DebtResponse{Debt: d, Outstanding: d.Outstanding()}
}

// DebtsFromDomain converts domain debts to responses.
func DebtsFromDomain(debts []*domain.Debt) []*DebtResponse {
	result := make([]*DebtResponse, len(debts))
	for i, d := range debts {
		result[i] = DebtFromDomain(d)
	}
	return result
}

// CapitalResponse represents current capital per currency.
type CapitalResponse struct {
	Totals    map[string]decimal.Decimal      `json:"totals"`
	Display   map[string]string               `json:"display"`
	Breakdown map[string][]domain.CapitalItem `json:"breakdown"`
}

// CapitalFromDomain converts capital totals to a response.
func CapitalFromDomain(c domain.CapitalTotals) *CapitalResponse {
	resp := &CapitalResponse{
		Totals:    c.Totals,
		Display:   make(map[string]string, len(c.Totals)),
		Breakdown: c.Breakdown,
	}
	for cur, v := range c.Totals {
		resp.Display[cur] = format.Amount(v, cur)
	}
	return resp
}

// EvolutionResponse compares two capital closings.
type EvolutionResponse struct {
	Start      *domain.CapitalHistoryEntry `json:"start,omitempty"`
	End        *domain.CapitalHistoryEntry `json:"end"`
	StartTotal decimal.Decimal             `json:"start_total"`
	EndTotal   decimal.Decimal             `json:"end_total"`
	Change     decimal.Decimal             `json:"change"`
	Percentage string                      `json:"percentage"`
}

// EvolutionFromDomain converts a capital evolution to a response.
func EvolutionFromDomain(ev domain.CapitalEvolution) *EvolutionResponse {
	return &EvolutionResponse{
		Start:      ev.Start,
		End:        ev.End,
		StartTotal: ev.StartTotal,
		EndTotal:   ev.EndTotal,
		Change:     ev.Change,
		Percentage: format.Percent(ev.Percentage),
	}
}

// ProfitResponse represents a profit and cost analysis.
type ProfitResponse struct {
	From            *time.Time          `json:"from,omitempty"`
	To              *time.Time          `json:"to,omitempty"`
	TotalProfit     decimal.Decimal     `json:"total_profit"`
	TotalCosts      decimal.Decimal     `json:"total_costs"`
	NetProfit       decimal.Decimal     `json:"net_profit"`
	ProfitBreakdown []domain.ProfitLine `json:"profit_breakdown"`
	CostBreakdown   []domain.ProfitLine `json:"cost_breakdown"`
}

// ProfitFromDomain converts a profit report to a response.
func ProfitFromDomain(r domain.ProfitReport) *ProfitResponse {
	resp := &ProfitResponse{
		TotalProfit:     r.TotalProfit,
		TotalCosts:      r.TotalCosts,
		NetProfit:       r.NetProfit,
		ProfitBreakdown: nonNil(r.ProfitBreakdown),
		CostBreakdown:   nonNil(r.CostBreakdown),
	}
	if !r.Range.From.IsZero() {
		resp.From = &r.Range.From
	}
	if !r.Range.To.IsZero() {
		resp.To = &r.Range.To
	}
	return resp
}

func nonNil(lines []domain.ProfitLine) []domain.ProfitLine {
	if lines == nil {
		return []domain.ProfitLine{}
	}
	return lines
}

// ReconciliationResponse represents the reconciliation of one asset.
type ReconciliationResponse struct {
	AssetID           string          `json:"asset_id"`
	Currency          string          `json:"currency"`
	RecordedBalance   decimal.Decimal `json:"recorded_balance"`
	CalculatedBalance decimal.Decimal `json:"calculated_balance"`
	Difference        decimal.Decimal `json:"difference"`
	IsReconciled      bool            `json:"is_reconciled"`
	LastChecked       time.Time       `json:"last_checked"`
}

// ReconciliationFromResult converts a reconciliation result to a response.
func ReconciliationFromResult(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		AssetID:           r.AssetID,
		Currency:          r.Currency,
		RecordedBalance:   r.RecordedBalance,
		CalculatedBalance: r.CalculatedBalance,
		Difference:        r.Difference,
		IsReconciled:      r.IsReconciled,
		LastChecked:       r.LastChecked,
	}
}

// ReconciliationReportResponse represents a full reconciliation report.
type ReconciliationReportResponse struct {
	TotalAssets      int                       `json:"total_assets"`
	ReconciledAssets int                       `json:"reconciled_assets"`
	Discrepancies    []*ReconciliationResponse `json:"discrepancies"`
	LedgerConsistent bool                      `json:"ledger_consistent"`
	CheckedAt        time.Time                 `json:"checked_at"`
}

// ReconciliationReportFromDomain converts a reconciliation report to a response.
func ReconciliationReportFromDomain(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	resp := &ReconciliationReportResponse{
		TotalAssets:      r.TotalAssets,
		ReconciledAssets: r.ReconciledAssets,
		Discrepancies:    make([]*ReconciliationResponse, len(r.Discrepancies)),
		LedgerConsistent: r.LedgerConsistent,
		CheckedAt:        r.CheckedAt,
	}
	for i, d := range r.Discrepancies {
		resp.Discrepancies[i] = ReconciliationFromResult(d)
	}
	return resp
}

// BackupResponse names a stored backup.
type BackupResponse struct {
	Name string `json:"name"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// OperationResponse is the transaction group an operation posted.
type OperationResponse struct {
	GroupID      string                `json:"group_id"`
	Transactions []*domain.Transaction `json:"transactions"`
}

// OperationFromDomain converts posted transactions to a response.
func OperationFromDomain(txs []*domain.Transaction) *OperationResponse {
	resp := &OperationResponse{Transactions: txs}
	if len(txs) > 0 {
		resp.GroupID = txs[0].GroupID
	}
	return resp
}

// PolicyResponse represents the capital closing parameters.
type PolicyResponse struct {
	ReferenceCurrency string          `json:"reference_currency"`
	Tolerance         decimal.Decimal `json:"tolerance"`
}
