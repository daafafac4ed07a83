package application

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/evibes/commerce/internal/domain"
	"github.com/evibes/commerce/internal/ports"
)

// DispatchOrder pushes every deliverable digital line of a paid order to its
// vendor adapter. Lines already carrying an asset or tracking id are skipped,
// so repeated dispatch of the same order is safe. Vendors without adapters
// are fulfilled manually and left untouched.
func (s *Service) DispatchOrder(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusCreated && order.Status != domain.OrderStatusDelivering {
		return nil
	}

	for _, line := range order.Lines {
		if line.Status != domain.LineStatusDelivering {
			continue
		}
		if line.AssetRef != "" || line.TrackingID != "" {
			continue
		}
		fulfilment, adapter, ok, err := s.fulfilmentLine(ctx, line)
		if err != nil {
			return err
		}
		if !ok || !fulfilment.Product.IsDigital {
			continue
		}

		result, buyErr := adapter.BuyOrderProduct(ctx, fulfilment)
		update := ports.LineFulfilmentUpdate{NowUTC: s.nowFn()}
		switch {
		case buyErr != nil:
			update.Status = domain.LineStatusFailed
			update.ErrorNote = buyErr.Error()
		case result.AssetRef != "":
			update.Status = domain.LineStatusDelivered
			update.AssetRef = result.AssetRef
		default:
			update.Status = domain.LineStatusDelivering
			update.TrackingID = result.TrackingID
		}
		if _, err := s.orders.UpdateLineFulfilmentTx(ctx, line.LineID, update); err != nil {
			return err
		}
	}
	return s.FinalizeOrder(ctx, orderID)
}

// DispatchPending finds paid lines no vendor call has been made for yet and
// dispatches their orders.
func (s *Service) DispatchPending(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = 100
	}
	lines, err := s.orders.ListLinesInStatus(ctx, []string{domain.LineStatusDelivering}, limit)
	if err != nil {
		return err
	}

	orders := map[uuid.UUID]bool{}
	for _, line := range lines {
		if line.AssetRef != "" || line.TrackingID != "" {
			continue
		}
		orders[line.OrderID] = true
	}
	for orderID := range orders {
		if err := s.DispatchOrder(ctx, orderID); err != nil {
			return err
		}
	}
	return nil
}

// PollDeliveries asks each vendor adapter for the current state of its
// outstanding lines and advances them, finalising orders whose lines have
// all reached a terminal state. This is the periodic retry path for vendors
// that answered with a tracking id.
func (s *Service) PollDeliveries(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = 100
	}
	lines, err := s.orders.ListLinesInStatus(ctx, []string{domain.LineStatusDelivering}, limit)
	if err != nil {
		return err
	}

	byVendor := map[string][]ports.FulfilmentLine{}
	adapters := map[string]ports.VendorAdapter{}
	touched := map[uuid.UUID]bool{}
	for _, line := range lines {
		fulfilment, adapter, ok, err := s.fulfilmentLine(ctx, line)
		if err != nil {
			return err
		}
		if !ok || fulfilment.Line.TrackingID == "" {
			continue
		}
		name := strings.ToLower(adapter.Name())
		byVendor[name] = append(byVendor[name], fulfilment)
		adapters[name] = adapter
	}

	for name, vendorLines := range byVendor {
		updates, err := adapters[name].UpdateOrderProductStatuses(ctx, vendorLines)
		if err != nil {
			// One vendor being down must not block the others.
			continue
		}
		byLineID := map[string]ports.FulfilmentLine{}
		for _, fulfilment := range vendorLines {
			byLineID[fulfilment.Line.LineID.String()] = fulfilment
		}
		for _, update := range updates {
			fulfilment, ok := byLineID[update.LineID]
			if !ok || update.Status == fulfilment.Line.Status {
				continue
			}
			if _, err := s.orders.UpdateLineFulfilmentTx(ctx, fulfilment.Line.LineID, ports.LineFulfilmentUpdate{
				Status:   update.Status,
				AssetRef: update.AssetRef,
				NowUTC:   s.nowFn(),
			}); err != nil {
				return err
			}
			touched[fulfilment.Line.OrderID] = true
		}
	}

	for orderID := range touched {
		if err := s.FinalizeOrder(ctx, orderID); err != nil {
			return err
		}
	}
	return nil
}

// FinalizeOrder closes the order once every line is terminal: FAILED when
// all lines failed, FINISHED otherwise. The closing notification is emitted
// exactly once; calling this on a non-terminal or already closed order is a
// no-op.
func (s *Service) FinalizeOrder(ctx context.Context, orderID uuid.UUID) error {
	now := s.nowFn()
	_, _, err := s.orders.FinalizeTx(ctx, orderID,
		s.orderClosedEvent(ports.EventOrderFinished, orderID, now),
		s.orderClosedEvent(ports.EventOrderFailed, orderID, now),
		now,
	)
	return err
}

// ReturnBalanceBack marks a line RETURNED and credits its buy price to the
// owner's balance. The credit lands exactly once however many times the
// return is submitted.
func (s *Service) ReturnBalanceBack(ctx context.Context, actor Actor, lineID uuid.UUID) (bool, float64, error) {
	if !actor.Staff {
		return false, 0, domain.ErrForbidden
	}
	return s.orders.ReturnBalanceBackTx(ctx, lineID, s.nowFn())
}

// fulfilmentLine resolves the catalog context an adapter needs for one line.
// The bool result is false when the line's vendor has no registered adapter.
func (s *Service) fulfilmentLine(ctx context.Context, line domain.OrderLine) (ports.FulfilmentLine, ports.VendorAdapter, bool, error) {
	if line.VendorID == nil {
		return ports.FulfilmentLine{}, nil, false, nil
	}
	vendor, err := s.catalog.GetVendor(ctx, *line.VendorID)
	if err != nil {
		return ports.FulfilmentLine{}, nil, false, err
	}
	adapter, ok := s.vendors.Adapter(vendor.Name)
	if !ok {
		return ports.FulfilmentLine{}, nil, false, nil
	}
	product, err := s.catalog.GetProduct(ctx, line.ProductID)
	if err != nil {
		return ports.FulfilmentLine{}, nil, false, err
	}
	stocks, err := s.catalog.ListStocks(ctx, line.ProductID)
	if err != nil {
		return ports.FulfilmentLine{}, nil, false, err
	}
	var stock domain.Stock
	for _, candidate := range stocks {
		if candidate.VendorID == vendor.VendorID {
			stock = candidate
			break
		}
	}
	return ports.FulfilmentLine{
		Line:    line,
		Product: product,
		Stock:   stock,
		Vendor:  vendor,
	}, adapter, true, nil
}
