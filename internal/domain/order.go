package domain

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Order statuses. An order starts PENDING (one per user), or MOMENTAL for
// unregistered purchases, and ends FINISHED or FAILED.
const (
	OrderStatusPending    = "PENDING"
	OrderStatusMomental   = "MOMENTAL"
	OrderStatusPayment    = "PAYMENT"
	OrderStatusCreated    = "CREATED"
	OrderStatusDelivering = "DELIVERING"
	OrderStatusFinished   = "FINISHED"
	OrderStatusFailed     = "FAILED"
)

// Order line statuses.
const (
	LineStatusPending    = "PENDING"
	LineStatusDelivering = "DELIVERING"
	LineStatusAccepted   = "ACCEPTED"
	LineStatusDelivered  = "DELIVERED"
	LineStatusFinished   = "FINISHED"
	LineStatusFailed     = "FAILED"
	LineStatusCanceled   = "CANCELED"
	LineStatusReturned   = "RETURNED"
)

// Attribute keys stamped onto Order.Attributes during checkout.
const (
	AttrPromoCode     = "promocode"
	AttrFinalPrice    = "final_price"
	AttrCustomerName  = "customer_name"
	AttrCustomerEmail = "customer_email"
	AttrCustomerPhone = "customer_phone"
	AttrPaymentMethod = "payment_method"
)

// Note is one user-visible notification record. The "errors" list on orders
// and lines is append-only for admin visibility.
type Note struct {
	Detail string `json:"detail"`
}

// Notifications groups notes by topic ("errors", "delivery", ...).
type Notifications map[string][]Note

// Append adds a note under a topic without dropping existing entries.
func (n Notifications) Append(topic, detail string) Notifications {
	if n == nil {
		n = Notifications{}
	}
	n[topic] = append(n[topic], Note{Detail: detail})
	return n
}

// Order is a basket that transitions into a purchase record.
// User is nil for momental (unregistered) orders.
type Order struct {
	OrderID         uuid.UUID
	HumanReadableID string
	UserID          *uuid.UUID
	Status          string
	PromoCodeID     *uuid.UUID
	BillingAddress  *uuid.UUID
	ShippingAddress *uuid.UUID
	BuyTime         *time.Time
	Attributes      map[string]any
	Notifications   Notifications
	Lines           []OrderLine
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderLine is one (product, attributes) entry within an order.
type OrderLine struct {
	LineID        uuid.UUID
	OrderID       uuid.UUID
	ProductID     uuid.UUID
	VendorID      *uuid.UUID
	Quantity      int
	BuyPrice      float64
	Status        string
	AttributesKey string
	Attributes    map[string]string
	AssetRef      string
	TrackingID    string
	Notifications Notifications
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// failedLineStatuses mirror the statuses excluded from the order total.
var failedLineStatuses = map[string]bool{
	LineStatusFailed:   true,
	LineStatusCanceled: true,
	LineStatusReturned: true,
}

// terminalLineStatuses are the states after which a line never moves again,
// except RETURNED which may still be reached from DELIVERED.
var terminalLineStatuses = map[string]bool{
	LineStatusAccepted: true,
	LineStatusFinished: true,
	LineStatusFailed:   true,
	LineStatusCanceled: true,
	LineStatusReturned: true,
}

// LineFailed reports whether a line status counts as a failure for totals.
func LineFailed(status string) bool { return failedLineStatuses[status] }

// LineTerminal reports whether a line status is terminal. DELIVERED counts as
// terminal-success for finalisation purposes.
func LineTerminal(status string) bool {
	return terminalLineStatuses[status] || status == LineStatusDelivered
}

// BasketMutable reports whether basket add/remove operations are allowed.
func (o *Order) BasketMutable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusMomental
}

// TotalPrice sums buy_price*quantity over non-failed lines, rounding at the
// final step only.
func (o *Order) TotalPrice() float64 {
	total := 0.0
	for _, line := range o.Lines {
		if LineFailed(line.Status) {
			continue
		}
		total += line.BuyPrice * float64(line.Quantity)
	}
	return Round2(total)
}

// TotalQuantity is the unit count across all lines.
func (o *Order) TotalQuantity() int {
	total := 0
	for _, line := range o.Lines {
		total += line.Quantity
	}
	return total
}

// FindLine locates the line matching a (product, attributes) identity key.
func (o *Order) FindLine(productID uuid.UUID, attributesKey string) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ProductID == productID && o.Lines[i].AttributesKey == attributesKey {
			return &o.Lines[i]
		}
	}
	return nil
}

// AllLinesTerminal reports whether the order can be finalised.
func (o *Order) AllLinesTerminal() bool {
	if len(o.Lines) == 0 {
		return false
	}
	for _, line := range o.Lines {
		if !LineTerminal(line.Status) {
			return false
		}
	}
	return true
}

// AllLinesFailed distinguishes a FAILED finalisation from a FINISHED one.
func (o *Order) AllLinesFailed() bool {
	if len(o.Lines) == 0 {
		return false
	}
	for _, line := range o.Lines {
		if line.Status != LineStatusFailed {
			return false
		}
	}
	return true
}

// orderTransitions is the allowed transition graph for the order machine.
var orderTransitions = map[string][]string{
	OrderStatusPending:    {OrderStatusCreated, OrderStatusPayment},
	OrderStatusMomental:   {OrderStatusPayment},
	OrderStatusPayment:    {OrderStatusCreated, OrderStatusFailed},
	OrderStatusCreated:    {OrderStatusDelivering, OrderStatusFinished, OrderStatusFailed},
	OrderStatusDelivering: {OrderStatusFinished, OrderStatusFailed},
}

// CanTransition reports whether the order machine allows from -> to.
func CanTransition(from, to string) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AttributesKey serialises basket attributes into the canonical line identity.
// Keys are sorted so identical attribute sets always produce identical keys.
func AttributesKey(attributes map[string]string) string {
	if len(attributes) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(attributes[k])
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.String()
}
