package schwab

import (
	"context"
	"net/url"

	"github.com/shopspring/decimal"
)

const accountsEndpoint = "accounts"

// AccountService handles operations related to accounts.
type AccountService struct {
	client *Client
}

// AccountNumberPair is one entry of the account-numbers listing: a
// plaintext account number and the encrypted hash the API expects in
// URL paths.
type AccountNumberPair struct {
	AccountNumber string `json:"accountNumber"`
	HashValue     string `json:"hashValue"`
}

// Balances holds the monetary state of an account.
type Balances struct {
	CashBalance             decimal.Decimal `json:"cashBalance"`
	Equity                  decimal.Decimal `json:"equity"`
	LiquidationValue        decimal.Decimal `json:"liquidationValue"`
	BuyingPower             decimal.Decimal `json:"buyingPower"`
	AvailableFunds          decimal.Decimal `json:"availableFunds"`
	MaintenanceRequirement  decimal.Decimal `json:"maintenanceRequirement"`
	DayTradingBuyingPower   decimal.Decimal `json:"dayTradingBuyingPower,omitempty"`
	UnsettledCash           decimal.Decimal `json:"unsettledCash,omitempty"`
}

// Position represents one holding in an account.
type Position struct {
	Symbol                string          `json:"symbol"`
	Description           string          `json:"description,omitempty"`
	AssetType             string          `json:"assetType"`
	Quantity              decimal.Decimal `json:"longQuantity"`
	ShortQuantity         decimal.Decimal `json:"shortQuantity,omitempty"`
	AveragePrice          decimal.Decimal `json:"averagePrice"`
	MarketValue           decimal.Decimal `json:"marketValue"`
	CurrentDayProfitLoss  decimal.Decimal `json:"currentDayProfitLoss"`
	LongOpenProfitLoss    decimal.Decimal `json:"longOpenProfitLoss,omitempty"`
}

// Account represents one brokerage account.
type Account struct {
	AccountNumber   string     `json:"accountNumber"`
	Type            string     `json:"type"`
	RoundTrips      int        `json:"roundTrips,omitempty"`
	IsDayTrader     bool       `json:"isDayTrader,omitempty"`
	IsClosingOnly   bool       `json:"isClosingOnlyRestricted,omitempty"`
	CurrentBalances Balances   `json:"currentBalances"`
	InitialBalances Balances   `json:"initialBalances,omitempty"`
	Positions       []Position `json:"positions,omitempty"`
}

// AccountFields selects optional sub-resources on account reads.
type AccountFields string

// FieldsPositions includes positions in account responses.
const FieldsPositions AccountFields = "positions"

// AccountNumbers retrieves the plaintext-to-encrypted account number
// pairs for the authenticated user. The resolver consumes the same
// endpoint internally; this method is for caller-side diagnostics.
func (s *AccountService) AccountNumbers(ctx context.Context) ([]AccountNumberPair, error) {
	listing, err := s.client.accountNumbers(ctx)
	if err != nil {
		return nil, err
	}
	pairs := make([]AccountNumberPair, 0, len(listing.Records))
	for _, rec := range listing.Records {
		pairs = append(pairs, AccountNumberPair{
			AccountNumber: rec.AccountNumber,
			HashValue:     rec.HashValue,
		})
	}
	return pairs, nil
}

// List retrieves all accounts for the authenticated user.
func (s *AccountService) List(ctx context.Context, fields ...AccountFields) ([]Account, error) {
	path := accountsEndpoint
	if q := fieldsQuery(fields); q != "" {
		path += "?" + q
	}

	var accounts []Account
	if err := s.client.get(ctx, path, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Get retrieves a specific account. accountNumber may be plaintext or
// an encrypted hash.
func (s *AccountService) Get(ctx context.Context, accountNumber string, fields ...AccountFields) (*Account, error) {
	path, err := s.client.accountPath(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if q := fieldsQuery(fields); q != "" {
		path += "?" + q
	}

	var account Account
	if err := s.client.get(ctx, path, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// Positions retrieves the positions held in an account.
func (s *AccountService) Positions(ctx context.Context, accountNumber string) ([]Position, error) {
	account, err := s.Get(ctx, accountNumber, FieldsPositions)
	if err != nil {
		return nil, err
	}
	return account.Positions, nil
}

// fieldsQuery encodes the fields query parameter.
func fieldsQuery(fields []AccountFields) string {
	if len(fields) == 0 {
		return ""
	}
	v := url.Values{}
	for _, f := range fields {
		v.Add("fields", string(f))
	}
	return v.Encode()
}
