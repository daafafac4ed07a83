package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestTotalPriceSkipsFailedLines(t *testing.T) {
	t.Parallel()

	order := Order{Lines: []OrderLine{
		{Quantity: 2, BuyPrice: 10.55, Status: LineStatusPending},
		{Quantity: 1, BuyPrice: 4.30, Status: LineStatusDelivering},
		{Quantity: 3, BuyPrice: 99.99, Status: LineStatusFailed},
		{Quantity: 1, BuyPrice: 50, Status: LineStatusCanceled},
		{Quantity: 2, BuyPrice: 25, Status: LineStatusReturned},
	}}

	if got := order.TotalPrice(); got != 25.40 {
		t.Fatalf("total price = %v, want 25.40", got)
	}
	if got := order.TotalQuantity(); got != 9 {
		t.Fatalf("total quantity = %d, want 9", got)
	}
}

func TestTotalPriceRoundsOnceAtTheEnd(t *testing.T) {
	t.Parallel()

	// Each line alone rounds to 0.10 but they must be summed unrounded.
	order := Order{Lines: []OrderLine{
		{Quantity: 1, BuyPrice: 0.104, Status: LineStatusPending},
		{Quantity: 1, BuyPrice: 0.104, Status: LineStatusPending},
		{Quantity: 1, BuyPrice: 0.104, Status: LineStatusPending},
	}}

	if got := order.TotalPrice(); got != 0.31 {
		t.Fatalf("total price = %v, want 0.31", got)
	}
}

func TestBasketMutable(t *testing.T) {
	t.Parallel()

	mutable := map[string]bool{
		OrderStatusPending:    true,
		OrderStatusMomental:   true,
		OrderStatusPayment:    false,
		OrderStatusCreated:    false,
		OrderStatusDelivering: false,
		OrderStatusFinished:   false,
		OrderStatusFailed:     false,
	}
	for status, want := range mutable {
		order := Order{Status: status}
		if got := order.BasketMutable(); got != want {
			t.Fatalf("BasketMutable(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	allowed := [][2]string{
		{OrderStatusPending, OrderStatusCreated},
		{OrderStatusPending, OrderStatusPayment},
		{OrderStatusMomental, OrderStatusPayment},
		{OrderStatusPayment, OrderStatusCreated},
		{OrderStatusPayment, OrderStatusFailed},
		{OrderStatusCreated, OrderStatusDelivering},
		{OrderStatusCreated, OrderStatusFinished},
		{OrderStatusCreated, OrderStatusFailed},
		{OrderStatusDelivering, OrderStatusFinished},
		{OrderStatusDelivering, OrderStatusFailed},
	}
	for _, pair := range allowed {
		if !CanTransition(pair[0], pair[1]) {
			t.Fatalf("transition %s -> %s should be allowed", pair[0], pair[1])
		}
	}

	denied := [][2]string{
		{OrderStatusPending, OrderStatusFinished},
		{OrderStatusPayment, OrderStatusPending},
		{OrderStatusCreated, OrderStatusPending},
		{OrderStatusFinished, OrderStatusFailed},
		{OrderStatusFailed, OrderStatusFinished},
		{OrderStatusMomental, OrderStatusCreated},
	}
	for _, pair := range denied {
		if CanTransition(pair[0], pair[1]) {
			t.Fatalf("transition %s -> %s should be denied", pair[0], pair[1])
		}
	}
}

func TestAttributesKeyDeterministic(t *testing.T) {
	t.Parallel()

	if got := AttributesKey(nil); got != "{}" {
		t.Fatalf("empty attributes key = %q, want {}", got)
	}
	if got := AttributesKey(map[string]string{}); got != "{}" {
		t.Fatalf("empty attributes key = %q, want {}", got)
	}

	a := AttributesKey(map[string]string{"size": "M", "color": "red"})
	b := AttributesKey(map[string]string{"color": "red", "size": "M"})
	if a != b {
		t.Fatalf("attribute key order should not matter: %q vs %q", a, b)
	}
	if a != `{"color":"red","size":"M"}` {
		t.Fatalf("attributes key = %q", a)
	}

	c := AttributesKey(map[string]string{"color": "blue", "size": "M"})
	if a == c {
		t.Fatalf("different attributes must yield different keys")
	}
}

func TestFindLineMatchesProductAndAttributes(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	order := Order{Lines: []OrderLine{
		{ProductID: productID, AttributesKey: `{"size":"M"}`, Quantity: 1},
		{ProductID: productID, AttributesKey: `{"size":"L"}`, Quantity: 2},
	}}

	line := order.FindLine(productID, `{"size":"L"}`)
	if line == nil || line.Quantity != 2 {
		t.Fatalf("expected the size L line, got %+v", line)
	}
	if order.FindLine(productID, "{}") != nil {
		t.Fatalf("expected no line for unmatched attributes")
	}
	if order.FindLine(uuid.New(), `{"size":"M"}`) != nil {
		t.Fatalf("expected no line for unmatched product")
	}
}

func TestLineTerminalAndFinalisation(t *testing.T) {
	t.Parallel()

	terminal := []string{
		LineStatusAccepted, LineStatusDelivered, LineStatusFinished,
		LineStatusFailed, LineStatusCanceled, LineStatusReturned,
	}
	for _, status := range terminal {
		if !LineTerminal(status) {
			t.Fatalf("LineTerminal(%s) should be true", status)
		}
	}
	for _, status := range []string{LineStatusPending, LineStatusDelivering} {
		if LineTerminal(status) {
			t.Fatalf("LineTerminal(%s) should be false", status)
		}
	}

	empty := Order{}
	if empty.AllLinesTerminal() {
		t.Fatalf("an order with no lines must not finalise")
	}
	if empty.AllLinesFailed() {
		t.Fatalf("an order with no lines is not failed")
	}

	mixed := Order{Lines: []OrderLine{
		{Status: LineStatusDelivered},
		{Status: LineStatusDelivering},
	}}
	if mixed.AllLinesTerminal() {
		t.Fatalf("a delivering line must block finalisation")
	}

	done := Order{Lines: []OrderLine{
		{Status: LineStatusDelivered},
		{Status: LineStatusFailed},
	}}
	if !done.AllLinesTerminal() {
		t.Fatalf("all terminal lines must allow finalisation")
	}
	if done.AllLinesFailed() {
		t.Fatalf("a delivered line means the order did not fully fail")
	}

	failed := Order{Lines: []OrderLine{
		{Status: LineStatusFailed},
		{Status: LineStatusFailed},
	}}
	if !failed.AllLinesFailed() {
		t.Fatalf("all failed lines must mark the order failed")
	}
}

func TestNotificationsAppend(t *testing.T) {
	t.Parallel()

	var n Notifications
	n = n.Append("errors", "first")
	n = n.Append("errors", "second")
	n = n.Append("delivery", "shipped")

	if len(n["errors"]) != 2 || n["errors"][0].Detail != "first" || n["errors"][1].Detail != "second" {
		t.Fatalf("errors topic = %+v", n["errors"])
	}
	if len(n["delivery"]) != 1 {
		t.Fatalf("delivery topic = %+v", n["delivery"])
	}
}
