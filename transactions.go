package schwab

import (
	"context"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const transactionsEndpoint = "transactions"

// TransactionService handles account transaction history.
type TransactionService struct {
	client *Client
}

// TransactionType filters transaction listings.
type TransactionType string

const (
	TransactionTypeTrade              TransactionType = "TRADE"
	TransactionTypeCashReceipt        TransactionType = "RECEIVE_AND_DELIVER"
	TransactionTypeDividendOrInterest TransactionType = "DIVIDEND_OR_INTEREST"
	TransactionTypeACHReceipt         TransactionType = "ACH_RECEIPT"
	TransactionTypeACHDisbursement    TransactionType = "ACH_DISBURSEMENT"
	TransactionTypeWireIn             TransactionType = "WIRE_IN"
	TransactionTypeWireOut            TransactionType = "WIRE_OUT"
	TransactionTypeJournal            TransactionType = "JOURNAL"
)

// Transaction represents one account activity record.
type Transaction struct {
	ActivityID     int64           `json:"activityId"`
	Type           TransactionType `json:"type"`
	Status         string          `json:"status,omitempty"`
	Description    string          `json:"description,omitempty"`
	TradeDate      time.Time       `json:"tradeDate,omitzero"`
	SettlementDate time.Time       `json:"settlementDate,omitzero"`
	NetAmount      decimal.Decimal `json:"netAmount"`
	Fees           decimal.Decimal `json:"fees,omitempty"`
}

// TransactionListOptions filters transaction listings.
type TransactionListOptions struct {
	// StartDate and EndDate bound the trade date of returned
	// transactions. The API requires both when either is set.
	StartDate time.Time
	EndDate   time.Time

	// Types restricts results to the given transaction types.
	Types []TransactionType

	// Symbol restricts results to activity in one symbol.
	Symbol string
}

func (o *TransactionListOptions) query() string {
	if o == nil {
		return ""
	}
	v := url.Values{}
	if !o.StartDate.IsZero() {
		v.Set("startDate", o.StartDate.UTC().Format(time.RFC3339))
	}
	if !o.EndDate.IsZero() {
		v.Set("endDate", o.EndDate.UTC().Format(time.RFC3339))
	}
	for _, t := range o.Types {
		v.Add("types", string(t))
	}
	if o.Symbol != "" {
		v.Set("symbol", o.Symbol)
	}
	return v.Encode()
}

// List retrieves transactions for an account.
func (s *TransactionService) List(ctx context.Context, accountNumber string, opts *TransactionListOptions) ([]Transaction, error) {
	path, err := s.client.accountPath(ctx, accountNumber, transactionsEndpoint)
	if err != nil {
		return nil, err
	}
	if q := opts.query(); q != "" {
		path += "?" + q
	}

	var transactions []Transaction
	if err := s.client.get(ctx, path, &transactions); err != nil {
		return nil, err
	}
	return transactions, nil
}

// Get retrieves a single transaction by activity ID.
func (s *TransactionService) Get(ctx context.Context, accountNumber string, activityID int64) (*Transaction, error) {
	path, err := s.client.accountPath(ctx, accountNumber, transactionsEndpoint, itoa(activityID))
	if err != nil {
		return nil, err
	}

	var tx Transaction
	if err := s.client.get(ctx, path, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}
