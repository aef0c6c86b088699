package schwab

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const ordersEndpoint = "orders"

// OrderService handles order placement, replacement, cancellation,
// listing, and preview.
type OrderService struct {
	client *Client
}

// OrderStatus represents the status of an order.
type OrderStatus string

const (
	OrderStatusAwaitingReview OrderStatus = "AWAITING_PARENT_ORDER"
	OrderStatusPendingNew     OrderStatus = "PENDING_ACTIVATION"
	OrderStatusWorking        OrderStatus = "WORKING"
	OrderStatusFilled         OrderStatus = "FILLED"
	OrderStatusCanceled       OrderStatus = "CANCELED"
	OrderStatusRejected       OrderStatus = "REJECTED"
	OrderStatusExpired        OrderStatus = "EXPIRED"
	OrderStatusReplaced       OrderStatus = "REPLACED"
)

// OrderType represents the execution type of an order.
type OrderType string

const (
	OrderTypeMarket       OrderType = "MARKET"
	OrderTypeLimit        OrderType = "LIMIT"
	OrderTypeStop         OrderType = "STOP"
	OrderTypeStopLimit    OrderType = "STOP_LIMIT"
	OrderTypeTrailingStop OrderType = "TRAILING_STOP"
)

// Instruction represents the side of an order leg.
type Instruction string

const (
	InstructionBuy         Instruction = "BUY"
	InstructionSell        Instruction = "SELL"
	InstructionBuyToCover  Instruction = "BUY_TO_COVER"
	InstructionSellShort   Instruction = "SELL_SHORT"
	InstructionBuyToOpen   Instruction = "BUY_TO_OPEN"
	InstructionBuyToClose  Instruction = "BUY_TO_CLOSE"
	InstructionSellToOpen  Instruction = "SELL_TO_OPEN"
	InstructionSellToClose Instruction = "SELL_TO_CLOSE"
)

// Duration represents how long an order remains active.
type Duration string

const (
	DurationDay               Duration = "DAY"
	DurationGoodTillCanceled  Duration = "GOOD_TILL_CANCEL"
	DurationImmediateOrCancel Duration = "IMMEDIATE_OR_CANCEL"
	DurationFillOrKill        Duration = "FILL_OR_KILL"
)

// Session represents the trading session an order participates in.
type Session string

const (
	SessionNormal   Session = "NORMAL"
	SessionAM       Session = "AM"
	SessionPM       Session = "PM"
	SessionSeamless Session = "SEAMLESS"
)

// Instrument identifies the security of an order leg.
type Instrument struct {
	Symbol    string `json:"symbol"`
	AssetType string `json:"assetType"`
}

// OrderLeg is one leg of an order.
type OrderLeg struct {
	Instruction Instruction     `json:"instruction"`
	Quantity    decimal.Decimal `json:"quantity"`
	Instrument  Instrument      `json:"instrument"`
}

// Order represents a trading order.
type Order struct {
	OrderID       int64           `json:"orderId,omitempty"`
	Session       Session         `json:"session"`
	Duration      Duration        `json:"duration"`
	Type          OrderType       `json:"orderType"`
	Price         decimal.Decimal `json:"price,omitempty"`
	StopPrice     decimal.Decimal `json:"stopPrice,omitempty"`
	Quantity      decimal.Decimal `json:"quantity,omitempty"`
	FilledQty     decimal.Decimal `json:"filledQuantity,omitempty"`
	RemainingQty  decimal.Decimal `json:"remainingQuantity,omitempty"`
	Status        OrderStatus     `json:"status,omitempty"`
	Legs          []OrderLeg      `json:"orderLegCollection"`
	Strategy      string          `json:"orderStrategyType,omitempty"`
	EnteredTime   time.Time       `json:"enteredTime,omitzero"`
	CloseTime     time.Time       `json:"closeTime,omitzero"`
	CancelTime    time.Time       `json:"cancelTime,omitzero"`
	StatusDetails string          `json:"statusDescription,omitempty"`
}

// Validate checks that an order is well-formed before submission.
func (o *Order) Validate() error {
	if len(o.Legs) == 0 {
		return fmt.Errorf("%w: at least one order leg is required", ErrInvalidRequest)
	}
	for i, leg := range o.Legs {
		if leg.Instrument.Symbol == "" {
			return fmt.Errorf("%w: leg %d: symbol is required", ErrInvalidRequest, i)
		}
		if leg.Instruction == "" {
			return fmt.Errorf("%w: leg %d: instruction is required", ErrInvalidRequest, i)
		}
		if !leg.Quantity.IsPositive() {
			return fmt.Errorf("%w: leg %d: quantity must be positive", ErrInvalidRequest, i)
		}
	}
	if o.Type == "" {
		return fmt.Errorf("%w: order type is required", ErrInvalidRequest)
	}
	if o.Duration == "" {
		return fmt.Errorf("%w: duration is required", ErrInvalidRequest)
	}

	switch o.Type {
	case OrderTypeLimit, OrderTypeStopLimit:
		if !o.Price.IsPositive() {
			return fmt.Errorf("%w: price is required for %s orders", ErrInvalidRequest, o.Type)
		}
	}
	switch o.Type {
	case OrderTypeStop, OrderTypeStopLimit:
		if !o.StopPrice.IsPositive() {
			return fmt.Errorf("%w: stopPrice is required for %s orders", ErrInvalidRequest, o.Type)
		}
	}

	return nil
}

// OrderPreview is the API's projection of an order before submission.
type OrderPreview struct {
	OrderValue        decimal.Decimal `json:"orderValue"`
	Commission        decimal.Decimal `json:"commission"`
	Fees              decimal.Decimal `json:"fees,omitempty"`
	ProjectedBalances Balances        `json:"projectedBalances,omitempty"`
	Warnings          []string        `json:"warnings,omitempty"`
	Rejected          bool            `json:"rejected,omitempty"`
	RejectReason      string          `json:"rejectReason,omitempty"`
}

// OrderListOptions filters order listings.
type OrderListOptions struct {
	// Status restricts results to one order status.
	Status OrderStatus

	// From and To bound the entered time of returned orders.
	From time.Time
	To   time.Time

	// MaxResults caps the number of returned orders.
	MaxResults int
}

// query encodes the options as URL query parameters.
func (o *OrderListOptions) query() string {
	if o == nil {
		return ""
	}
	v := url.Values{}
	if o.Status != "" {
		v.Set("status", string(o.Status))
	}
	if !o.From.IsZero() {
		v.Set("fromEnteredTime", o.From.UTC().Format(time.RFC3339))
	}
	if !o.To.IsZero() {
		v.Set("toEnteredTime", o.To.UTC().Format(time.RFC3339))
	}
	if o.MaxResults > 0 {
		v.Set("maxResults", fmt.Sprint(o.MaxResults))
	}
	return v.Encode()
}

// Place submits a new order for the account.
func (s *OrderService) Place(ctx context.Context, accountNumber string, order *Order) (*Order, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	path, err := s.client.accountPath(ctx, accountNumber, ordersEndpoint)
	if err != nil {
		return nil, err
	}

	var placed Order
	if err := s.client.post(ctx, path, order, &placed); err != nil {
		return nil, err
	}
	return &placed, nil
}

// Preview asks the API to evaluate an order without submitting it.
func (s *OrderService) Preview(ctx context.Context, accountNumber string, order *Order) (*OrderPreview, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	path, err := s.client.accountPath(ctx, accountNumber, "previewOrder")
	if err != nil {
		return nil, err
	}

	var preview OrderPreview
	if err := s.client.post(ctx, path, order, &preview); err != nil {
		return nil, err
	}
	return &preview, nil
}

// Get retrieves a specific order.
func (s *OrderService) Get(ctx context.Context, accountNumber string, orderID int64) (*Order, error) {
	path, err := s.client.accountPath(ctx, accountNumber, ordersEndpoint, fmt.Sprint(orderID))
	if err != nil {
		return nil, err
	}

	var order Order
	if err := s.client.get(ctx, path, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Replace replaces an existing order. The original order is canceled
// and a new one is created.
func (s *OrderService) Replace(ctx context.Context, accountNumber string, orderID int64, order *Order) error {
	if err := order.Validate(); err != nil {
		return err
	}

	path, err := s.client.accountPath(ctx, accountNumber, ordersEndpoint, fmt.Sprint(orderID))
	if err != nil {
		return err
	}
	return s.client.put(ctx, path, order, nil)
}

// Cancel cancels an open order.
func (s *OrderService) Cancel(ctx context.Context, accountNumber string, orderID int64) error {
	path, err := s.client.accountPath(ctx, accountNumber, ordersEndpoint, fmt.Sprint(orderID))
	if err != nil {
		return err
	}
	return s.client.delete(ctx, path)
}

// ListForAccount retrieves orders for one account.
func (s *OrderService) ListForAccount(ctx context.Context, accountNumber string, opts *OrderListOptions) ([]Order, error) {
	path, err := s.client.accountPath(ctx, accountNumber, ordersEndpoint)
	if err != nil {
		return nil, err
	}
	if q := opts.query(); q != "" {
		path += "?" + q
	}

	var orders []Order
	if err := s.client.get(ctx, path, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListAll retrieves orders across all accounts of the authenticated
// user.
func (s *OrderService) ListAll(ctx context.Context, opts *OrderListOptions) ([]Order, error) {
	path := ordersEndpoint
	if q := opts.query(); q != "" {
		path += "?" + q
	}

	var orders []Order
	if err := s.client.get(ctx, path, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
