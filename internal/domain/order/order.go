package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openpos/settlement/internal/domain/shared"
	"github.com/openpos/settlement/internal/domain/shared/valueobject"
)

// Kind distinguishes sale orders (stock leaves a location) from
// purchase orders (stock enters a location)
type Kind string

const (
	KindSale     Kind = "SALE"
	KindPurchase Kind = "PURCHASE"
)

// IsValid checks if the kind is a valid order Kind
func (k Kind) IsValid() bool {
	return k == KindSale || k == KindPurchase
}

// String returns the string representation of Kind
func (k Kind) String() string {
	return string(k)
}

// StockDirection returns the sign applied to delivered quantities when
// moving stock: sales decrement, purchases increment
func (k Kind) StockDirection() decimal.Decimal {
	if k == KindPurchase {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}

// Line represents one product entry within an order
type Line struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName       string          `gorm:"type:varchar(200);not null"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Discount          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LineTotal         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DeliveredQuantity decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0"`
	CreatedAt         time.Time       `gorm:"not null"`
	UpdatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Line) TableName() string {
	return "order_lines"
}

// NewLine creates a new order line
// The line total is (unitPrice - discount) * quantity
func NewLine(orderID, productID uuid.UUID, productName string, quantity decimal.Decimal, unitPrice, discount valueobject.Money) (*Line, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if discount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Line discount cannot be negative")
	}
	if discount.Amount().GreaterThan(unitPrice.Amount()) {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Line discount cannot exceed unit price")
	}

	now := time.Now()
	effectivePrice := unitPrice.Amount().Sub(discount.Amount())

	return &Line{
		ID:                uuid.New(),
		OrderID:           orderID,
		ProductID:         productID,
		ProductName:       productName,
		Quantity:          quantity,
		UnitPrice:         unitPrice.Amount(),
		Discount:          discount.Amount(),
		LineTotal:         effectivePrice.Mul(quantity),
		DeliveredQuantity: decimal.Zero,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// SetDeliveredQuantity records the delivered portion of the line
// The value must stay within [0, Quantity]
func (l *Line) SetDeliveredQuantity(delivered decimal.Decimal) error {
	if delivered.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Delivered quantity cannot be negative")
	}
	if delivered.GreaterThan(l.Quantity) {
		return shared.ErrOverDelivery
	}
	l.DeliveredQuantity = delivered
	l.UpdatedAt = time.Now()
	return nil
}

// UnitPriceMoney returns the unit price as a Money value object
func (l *Line) UnitPriceMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(l.UnitPrice)
}

// LineTotalMoney returns the line total as a Money value object
func (l *Line) LineTotalMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(l.LineTotal)
}

// Order represents a sale or purchase transaction header.
// It is the aggregate root for settlement operations.
type Order struct {
	shared.BaseAggregateRoot
	Kind            Kind            `gorm:"type:varchar(10);not null"`
	LocationID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	PartyID         *uuid.UUID      `gorm:"type:uuid;index"`
	PartyName       string          `gorm:"type:varchar(200)"`
	Lines           []Line          `gorm:"foreignKey:OrderID;references:ID"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ShippingFee     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	FinalTotal      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DeliveryStatus  DeliveryStatus  `gorm:"type:varchar(20);not null;default:'PENDING'"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(20);not null;default:'PENDING'"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	RemainingAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Notes           string          `gorm:"type:text"`
	CancelledAt     *time.Time
	CancelReason    string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// New creates a new order in pending state. The location identifies the
// warehouse or point of sale whose stock the order moves.
func New(kind Kind, locationID uuid.UUID, partyID *uuid.UUID, partyName string) (*Order, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Order kind must be SALE or PURCHASE")
	}
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}
	if partyID != nil && *partyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARTY", "Party ID cannot be the zero UUID")
	}

	return &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Kind:              kind,
		LocationID:        locationID,
		PartyID:           partyID,
		PartyName:         partyName,
		Lines:             make([]Line, 0),
		Subtotal:          decimal.Zero,
		DiscountAmount:    decimal.Zero,
		ShippingFee:       decimal.Zero,
		FinalTotal:        decimal.Zero,
		DeliveryStatus:    DeliveryPending,
		PaymentStatus:     PaymentPending,
		PaidAmount:        decimal.Zero,
		RemainingAmount:   decimal.Zero,
	}, nil
}

// AddLine adds a new line to the order
func (o *Order) AddLine(productID uuid.UUID, productName string, quantity decimal.Decimal, unitPrice, discount valueobject.Money) (*Line, error) {
	if !o.CanModify() {
		return nil, shared.ErrInvalidState
	}
	for _, line := range o.Lines {
		if line.ProductID == productID {
			return nil, shared.NewDomainError("DUPLICATE_PRODUCT", "Product already exists in order")
		}
	}

	line, err := NewLine(o.ID, productID, productName, quantity, unitPrice, discount)
	if err != nil {
		return nil, err
	}

	o.Lines = append(o.Lines, *line)
	o.recalculateTotals()
	o.UpdatedAt = time.Now()

	return line, nil
}

// ReplaceLines swaps the full line set for a new one.
// Used on the update path: lines are fully replaced, never diffed.
func (o *Order) ReplaceLines(lines []Line) error {
	if !o.CanModify() {
		return shared.ErrInvalidState
	}
	if len(lines) == 0 {
		return shared.ErrEmptyOrder
	}
	seen := make(map[uuid.UUID]bool, len(lines))
	for i := range lines {
		if seen[lines[i].ProductID] {
			return shared.NewDomainError("DUPLICATE_PRODUCT", "Product already exists in order")
		}
		seen[lines[i].ProductID] = true
		lines[i].OrderID = o.ID
	}
	o.Lines = lines
	o.recalculateTotals()
	o.UpdatedAt = time.Now()
	return nil
}

// ApplyDiscount applies an order-level discount
func (o *Order) ApplyDiscount(discount valueobject.Money) error {
	if !o.CanModify() {
		return shared.ErrInvalidState
	}
	if discount.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}
	if discount.Amount().GreaterThan(o.Subtotal) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot exceed subtotal")
	}

	o.DiscountAmount = discount.Amount()
	o.recalculateTotals()
	o.UpdatedAt = time.Now()
	return nil
}

// SetShippingFee sets the shipping fee added to the final total
func (o *Order) SetShippingFee(fee valueobject.Money) error {
	if !o.CanModify() {
		return shared.ErrInvalidState
	}
	if fee.IsNegative() {
		return shared.NewDomainError("INVALID_SHIPPING", "Shipping fee cannot be negative")
	}
	o.ShippingFee = fee.Amount()
	o.recalculateTotals()
	o.UpdatedAt = time.Now()
	return nil
}

// SetNotes sets the free-text notes
func (o *Order) SetNotes(notes string) {
	o.Notes = notes
	o.UpdatedAt = time.Now()
}

// ApplyPayment records the paid amount and derives the payment status
// Excess payment is clamped: remaining never goes below zero
func (o *Order) ApplyPayment(paid valueobject.Money) error {
	result, err := ComputePaymentStatus(valueobject.NewMoneyUSD(o.FinalTotal), paid)
	if err != nil {
		return err
	}
	o.PaidAmount = paid.Amount()
	o.RemainingAmount = result.Remaining.Amount()
	o.PaymentStatus = result.Status
	o.UpdatedAt = time.Now()
	return nil
}

// ApplyDeliveries records per-line delivered quantities and the
// order-level delivery status. The lines must be the result of
// ComputeLineDeliveries over this order's lines.
func (o *Order) ApplyDeliveries(status DeliveryStatus, lines []Line) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_DELIVERY_STATUS", "Unknown delivery status")
	}
	if len(lines) != len(o.Lines) {
		return shared.NewDomainError("INVALID_LINES", "Delivery computation must cover every order line")
	}
	o.DeliveryStatus = status
	o.Lines = lines
	o.UpdatedAt = time.Now()
	return nil
}

// Cancel cancels the order and all its lines
func (o *Order) Cancel(reason string) error {
	if o.IsCancelled() {
		return shared.ErrInvalidState
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	o.CancelledAt = &now
	o.CancelReason = reason
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderCancelledEvent(o))
	return nil
}

// recalculateTotals recomputes subtotal and final total from the lines
func (o *Order) recalculateTotals() {
	subtotal := decimal.Zero
	for _, line := range o.Lines {
		subtotal = subtotal.Add(line.LineTotal)
	}
	o.Subtotal = subtotal

	// Keep discount within bounds if lines shrank
	if o.DiscountAmount.GreaterThan(o.Subtotal) {
		o.DiscountAmount = o.Subtotal
	}
	o.FinalTotal = o.Subtotal.Sub(o.DiscountAmount).Add(o.ShippingFee)
	o.RemainingAmount = decimal.Max(decimal.Zero, o.FinalTotal.Sub(o.PaidAmount))
}

// TotalDelivered returns the sum of delivered quantities across lines
func (o *Order) TotalDelivered() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.DeliveredQuantity)
	}
	return total
}

// TotalQuantity returns the sum of ordered quantities across lines
func (o *Order) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Quantity)
	}
	return total
}

// LineByProduct returns the line for a product, or nil
func (o *Order) LineByProduct(productID uuid.UUID) *Line {
	for idx := range o.Lines {
		if o.Lines[idx].ProductID == productID {
			return &o.Lines[idx]
		}
	}
	return nil
}

// IsCancelled returns true if the order was cancelled
func (o *Order) IsCancelled() bool {
	return o.CancelledAt != nil
}

// IsTerminal returns true if the order can no longer change:
// cancelled, or fully delivered and fully paid
func (o *Order) IsTerminal() bool {
	if o.IsCancelled() {
		return true
	}
	return o.DeliveryStatus == DeliveryDelivered && o.PaymentStatus == PaymentPaid
}

// CanModify returns true if lines and amounts may still change
func (o *Order) CanModify() bool {
	return !o.IsTerminal()
}

// FinalTotalMoney returns the final total as Money
func (o *Order) FinalTotalMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(o.FinalTotal)
}
