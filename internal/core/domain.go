package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Snowball  Strategy = "snowball"
	Avalanche Strategy = "avalanche"
	Balanced  Strategy = "balanced"
	Custom    Strategy = "custom"
)

const (
	BucketIncome   BucketType = "income"
	BucketFixed    BucketType = "fixed"
	BucketVariable BucketType = "variable"
	BucketOther    BucketType = "other"
)

const (
	GoalSavings GoalType = "savings"
	GoalDebt    GoalType = "debt"
)

const (
	KindIncome    LedgerKind = "income"
	KindFixedCost LedgerKind = "fixed_cost"
	KindAsset     LedgerKind = "asset"
	KindVariable  LedgerKind = "variable"
)

const (
	SourceManual   LedgerSource = "manual"
	SourceDetected LedgerSource = "detected"
)

type (
	Strategy     string
	BucketType   string
	GoalType     string
	LedgerKind   string
	LedgerSource string

	// DebtObligation is a caller-owned debt. The simulator never mutates it.
	DebtObligation struct {
		ID               string          `json:"id"`
		Label            string          `json:"label,omitempty"`
		RemainingBalance decimal.Decimal `json:"remainingBalance"`
		MinimumPayment   decimal.Decimal `json:"minimumPayment"`
	}

	// CustomPlan tweaks a simulation run. All fields are optional.
	CustomPlan struct {
		PriorityOrder []string `json:"priorityOrder,omitempty"`
		// ExtraPerDebt replaces the minimum payment of the keyed debt.
		ExtraPerDebt          map[string]decimal.Decimal `json:"extraPerDebt,omitempty"`
		MonthlyBudgetOverride *decimal.Decimal           `json:"monthlyBudgetOverride,omitempty"`
	}

	DebtPayment struct {
		DebtID  string          `json:"debtId"`
		Paid    decimal.Decimal `json:"paid"`
		Balance decimal.Decimal `json:"balance"`
	}

	// MonthPlan is one simulated month, 1-based.
	MonthPlan struct {
		Month    int             `json:"month"`
		Payments []DebtPayment   `json:"payments"`
		Paid     decimal.Decimal `json:"paid"`
		FreeRoom decimal.Decimal `json:"freeRoom"`
	}

	SimulationResult struct {
		Strategy           Strategy          `json:"strategy"`
		TotalDebtStart     decimal.Decimal   `json:"totalDebtStart"`
		TotalDebtRemaining decimal.Decimal   `json:"totalDebtRemaining"`
		MonthlyPressureNow decimal.Decimal   `json:"monthlyPressureNow"`
		FreeRoomNow        decimal.Decimal   `json:"freeRoomNow"`
		MonthsToZero       *int              `json:"monthsToZero"`
		PressureByMonth    []decimal.Decimal `json:"pressureByMonth"`
		FreeRoomByMonth    []decimal.Decimal `json:"freeRoomByMonth"`
		Schedule           []MonthPlan       `json:"schedule,omitempty"`
		PaidOffMonth       map[string]int    `json:"paidOffMonth,omitempty"`
	}

	// TransactionRecord is a raw bank transaction as delivered by the sync layer.
	// Date and Amount stay strings until bucketing parses them.
	TransactionRecord struct {
		ID           string `json:"id"`
		Date         string `json:"date"`
		Amount       string `json:"amount"`
		Description  string `json:"description"`
		Counterparty string `json:"counterparty,omitempty"`
		AccountID    string `json:"accountId"`
	}

	Bucket struct {
		ID                   string          `json:"id"`
		Label                string          `json:"label"`
		Type                 BucketType      `json:"type"`
		MonthlyAverage       decimal.Decimal `json:"monthlyAverage"`
		LastAmount           decimal.Decimal `json:"lastAmount"`
		Recurring            bool            `json:"recurring"`
		SampleTransactionIDs []string        `json:"sampleTransactionIds"`
		TransactionCount     int             `json:"transactionCount"`
		UserLocked           bool            `json:"userLocked"`
	}

	// BucketOverride carries user edits for one bucket. Nil fields are left alone.
	BucketOverride struct {
		BucketID       string           `json:"bucketId"`
		Label          *string          `json:"label,omitempty"`
		Type           *BucketType      `json:"type,omitempty"`
		MonthlyAverage *decimal.Decimal `json:"monthlyAverage,omitempty"`
		Recurring      *bool            `json:"recurring,omitempty"`
	}

	Goal struct {
		ID                  string          `json:"id"`
		Type                GoalType        `json:"type"`
		Label               string          `json:"label,omitempty"`
		TargetAmount        decimal.Decimal `json:"targetAmount"`
		CurrentAmount       decimal.Decimal `json:"currentAmount"`
		MonthlyContribution decimal.Decimal `json:"monthlyContribution"`
		Deadline            *time.Time      `json:"deadline,omitempty"`
		LinkedBucketIDs     []string        `json:"linkedBucketIds,omitempty"`
	}

	GoalProjection struct {
		GoalID              string          `json:"goalId"`
		Remaining           decimal.Decimal `json:"remaining"`
		MonthsToTarget      *int            `json:"monthsToTarget"`
		PressurePerMonth    decimal.Decimal `json:"pressurePerMonth"`
		ProjectedCompletion *time.Time      `json:"projectedCompletion,omitempty"`
	}

	// LedgerItem is an income item, a fixed cost, an asset or a variable spending estimate.
	LedgerItem struct {
		ID     string          `json:"id"`
		Kind   LedgerKind      `json:"kind"`
		Label  string          `json:"label"`
		Amount decimal.Decimal `json:"amount"`
		Source LedgerSource    `json:"source,omitempty"`
	}

	FinancialSnapshot struct {
		NetIncome         decimal.Decimal  `json:"netIncome"`
		FixedCosts        decimal.Decimal  `json:"fixedCosts"`
		FixedCostSource   LedgerSource     `json:"fixedCostSource"`
		VariableSpending  decimal.Decimal  `json:"variableSpending"`
		FreeCash          decimal.Decimal  `json:"freeCash"`
		FixedCostPressure decimal.Decimal  `json:"fixedCostPressure"`
		TotalDebts        decimal.Decimal  `json:"totalDebts"`
		TotalAssets       decimal.Decimal  `json:"totalAssets"`
		BufferMonths      *decimal.Decimal `json:"bufferMonths"`
		GoalsCount        int              `json:"goalsCount"`
	}
)

var (
	ErrEmptyID          = errors.New("empty id")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrNegativeAmount   = errors.New("amount cannot be negative")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidStrategy  = errors.New("invalid strategy")
	ErrInvalidGoalType  = errors.New("invalid goal type")
	ErrInvalidKind      = errors.New("invalid ledger kind")
	ErrInvalidBucket    = errors.New("invalid bucket type")
	ErrEmptyLabel       = errors.New("empty label")
	ErrEmptyDescription = errors.New("empty description")
	ErrIDConflict       = errors.New("id already used by another record")
)

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool {
	switch s {
	case Snowball, Avalanche, Balanced, Custom:
		return true
	}
	return false
}

func (t BucketType) Valid() bool {
	switch t {
	case BucketIncome, BucketFixed, BucketVariable, BucketOther:
		return true
	}
	return false
}

func (k LedgerKind) Valid() bool {
	switch k {
	case KindIncome, KindFixedCost, KindAsset, KindVariable:
		return true
	}
	return false
}

func (d DebtObligation) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ErrEmptyID
	}
	if d.RemainingBalance.IsNegative() || d.MinimumPayment.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return ErrEmptyID
	}
	switch g.Type {
	case GoalSavings, GoalDebt:
	default:
		return ErrInvalidGoalType
	}
	if g.TargetAmount.IsNegative() || g.CurrentAmount.IsNegative() || g.MonthlyContribution.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (li LedgerItem) Validate() error {
	if strings.TrimSpace(li.ID) == "" {
		return ErrEmptyID
	}
	if !li.Kind.Valid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(li.Label) == "" {
		return ErrEmptyLabel
	}
	if len(li.Label) > 200 {
		return errors.New("label too long (max 200 characters)")
	}
	if li.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Validate checks that the record is usable. Bucketing itself tolerates bad
// records; this is for the import boundary.
func (tr TransactionRecord) Validate() error {
	if strings.TrimSpace(tr.ID) == "" {
		return ErrEmptyID
	}
	if _, err := ParseDate(tr.Date); err != nil {
		return err
	}
	if _, err := ParseAmount(tr.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(tr.Description) == "" && strings.TrimSpace(tr.Counterparty) == "" {
		return ErrEmptyDescription
	}
	return nil
}

func (o BucketOverride) Validate() error {
	if strings.TrimSpace(o.BucketID) == "" {
		return ErrEmptyID
	}
	if o.Type != nil && !o.Type.Valid() {
		return ErrInvalidBucket
	}
	if o.MonthlyAverage != nil && o.MonthlyAverage.IsNegative() {
		return ErrNegativeAmount
	}
	if o.Label != nil && strings.TrimSpace(*o.Label) == "" {
		return ErrEmptyLabel
	}
	return nil
}
