package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// OperationKind tags the semantic operation a transaction belongs to.
type OperationKind string

const (
	KindBuy         OperationKind = "buy"
	KindSell        OperationKind = "sell"
	KindTransfer    OperationKind = "transfer"
	KindExpense     OperationKind = "expense"
	KindExchangeFee OperationKind = "exchange_fee"
	KindSale        OperationKind = "sale"
	KindAdjustment  OperationKind = "adjustment"
	KindDeposit     OperationKind = "deposit"
	KindWithdrawal  OperationKind = "withdrawal"
	KindDebtPayment OperationKind = "debt_payment"
)

// Channel separates cash and bank trades for cost-basis purposes.
type Channel string

const (
	ChannelCash Channel = "cash"
	ChannelBank Channel = "bank"
)

// Operation is the typed payload attached to the primary transaction of a group.
// The set of variants is closed: every implementation lives in this file.
type Operation interface {
	Kind() OperationKind
	operation()
}

// BuyOperation records foreign currency bought with local currency.
type BuyOperation struct {
	Currency       string          `json:"currency"`
	Channel        Channel         `json:"channel"`
	CounterAssetID string          `json:"counter_asset_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	LocalAmount    decimal.Decimal `json:"local_amount"`
	Rate           decimal.Decimal `json:"rate"`
}

// SellOperation records foreign currency sold for local currency.
// CostRate, when valid, overrides the weighted-average cost basis.
type SellOperation struct {
	Currency       string              `json:"currency"`
	Channel        Channel             `json:"channel"`
	CounterAssetID string              `json:"counter_asset_id"`
	Quantity       decimal.Decimal     `json:"quantity"`
	LocalAmount    decimal.Decimal     `json:"local_amount"`
	Rate           decimal.Decimal     `json:"rate"`
	CostRate       decimal.NullDecimal `json:"cost_rate"`
}

// TransferOperation moves money between two assets of the same currency.
type TransferOperation struct {
	FromAssetID string          `json:"from_asset_id"`
	ToAssetID   string          `json:"to_asset_id"`
	Amount      decimal.Decimal `json:"amount"`
}

// ExpenseOperation is an operating cost. Amount is in the reference currency.
type ExpenseOperation struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// ExchangeFeeOperation is fee income. Amount is in the reference currency.
type ExchangeFeeOperation struct {
	Amount decimal.Decimal `json:"amount"`
}

// SaleOperation is a point-of-sale ticket. Amounts are in the reference currency.
type SaleOperation struct {
	Revenue decimal.Decimal `json:"revenue"`
	Cost    decimal.Decimal `json:"cost"`
}

// NetMargin is revenue minus cost of goods.
func (o SaleOperation) NetMargin() decimal.Decimal {
	return o.Revenue.Sub(o.Cost)
}

// AdjustmentOperation is a manual profit (Loss=false) or loss (Loss=true).
// Amount is a positive reference-currency value.
type AdjustmentOperation struct {
	Reason string          `json:"reason"`
	Amount decimal.Decimal `json:"amount"`
	Loss   bool            `json:"loss"`
}

// DepositOperation is capital brought into an asset from outside the business.
type DepositOperation struct {
	Source string `json:"source"`
}

// WithdrawalOperation is money taken out of an asset. An in-flight
// withdrawal is still counted as business capital until its group is deleted.
type WithdrawalOperation struct {
	Purpose  string `json:"purpose"`
	InFlight bool   `json:"in_flight"`
}

// DebtPaymentOperation settles part of a debt or receivable installment.
type DebtPaymentOperation struct {
	DebtID        string          `json:"debt_id"`
	InstallmentID string          `json:"installment_id"`
	Amount        decimal.Decimal `json:"amount"`
}

func (BuyOperation) Kind() OperationKind         { return KindBuy }
func (SellOperation) Kind() OperationKind        { return KindSell }
func (TransferOperation) Kind() OperationKind    { return KindTransfer }
func (ExpenseOperation) Kind() OperationKind     { return KindExpense }
func (ExchangeFeeOperation) Kind() OperationKind { return KindExchangeFee }
func (SaleOperation) Kind() OperationKind        { return KindSale }
func (AdjustmentOperation) Kind() OperationKind  { return KindAdjustment }
func (DepositOperation) Kind() OperationKind     { return KindDeposit }
func (WithdrawalOperation) Kind() OperationKind  { return KindWithdrawal }
func (DebtPaymentOperation) Kind() OperationKind { return KindDebtPayment }

func (BuyOperation) operation()         {}
func (SellOperation) operation()        {}
func (TransferOperation) operation()    {}
func (ExpenseOperation) operation()     {}
func (ExchangeFeeOperation) operation() {}
func (SaleOperation) operation()        {}
func (AdjustmentOperation) operation()  {}
func (DepositOperation) operation()     {}
func (WithdrawalOperation) operation()  {}
func (DebtPaymentOperation) operation() {}

// ParseOperationKind validates a kind string.
func ParseOperationKind(s string) (OperationKind, error) {
	kind := OperationKind(s)
	switch kind {
	case KindBuy, KindSell, KindTransfer, KindExpense, KindExchangeFee,
		KindSale, KindAdjustment, KindDeposit, KindWithdrawal, KindDebtPayment:
		return kind, nil
	default:
		return "", NewValidationError("kind", "unknown operation kind %q", s)
	}
}

type operationEnvelope struct {
	Kind OperationKind   `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalOperation encodes an operation as {"kind": ..., "data": {...}}.
func MarshalOperation(op Operation) ([]byte, error) {
	if op == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("encode %s operation: %w", op.Kind(), err)
	}
	return json.Marshal(operationEnvelope{Kind: op.Kind(), Data: data})
}

// UnmarshalOperation decodes the envelope produced by MarshalOperation.
func UnmarshalOperation(raw []byte) (Operation, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var env operationEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode operation envelope: %w", err)
	}

	switch env.Kind {
	case KindBuy:
		return decodeOperation[BuyOperation](env.Data)
	case KindSell:
		return decodeOperation[SellOperation](env.Data)
	case KindTransfer:
		return decodeOperation[TransferOperation](env.Data)
	case KindExpense:
		return decodeOperation[ExpenseOperation](env.Data)
	case KindExchangeFee:
		return decodeOperation[ExchangeFeeOperation](env.Data)
	case KindSale:
		return decodeOperation[SaleOperation](env.Data)
	case KindAdjustment:
		return decodeOperation[AdjustmentOperation](env.Data)
	case KindDeposit:
		return decodeOperation[DepositOperation](env.Data)
	case KindWithdrawal:
		return decodeOperation[WithdrawalOperation](env.Data)
	case KindDebtPayment:
		return decodeOperation[DebtPaymentOperation](env.Data)
	default:
		return nil, NewValidationError("operation.kind", "unknown operation kind %q", env.Kind)
	}
}

func decodeOperation[T Operation](data json.RawMessage) (Operation, error) {
	var op T
	if len(data) > 0 {
		if err := json.Unmarshal(data, &op); err != nil {
			return nil, fmt.Errorf("decode %s operation: %w", op.Kind(), err)
		}
	}
	return op, nil
}
