package postgres

import (
	"encoding/json"
	"errors"

	"github.com/evibes/commerce/internal/domain"
	"gorm.io/gorm"
)

func toDomainUser(row userModel) domain.User {
	return domain.User{
		UserID:    row.UserID,
		Email:     row.Email,
		Language:  row.Language,
		IsStaff:   row.IsStaff,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
	}
}

func toDomainAddress(row addressModel) domain.Address {
	return domain.Address{
		AddressID:  row.AddressID,
		UserID:     row.UserID,
		Street:     row.Street,
		City:       row.City,
		Region:     row.Region,
		PostalCode: row.PostalCode,
		Country:    row.Country,
	}
}

func toDomainBrand(row brandModel) domain.Brand {
	return domain.Brand{
		BrandID:  row.BrandID,
		Name:     row.Name,
		IsActive: row.IsActive,
	}
}

func toDomainCategory(row categoryModel) domain.Category {
	return domain.Category{
		CategoryID:    row.CategoryID,
		ParentID:      row.ParentID,
		Name:          row.Name,
		MarkupPercent: row.MarkupPercent,
		IsActive:      row.IsActive,
	}
}

func toDomainVendor(row vendorModel) domain.Vendor {
	return domain.Vendor{
		VendorID:       row.VendorID,
		Name:           row.Name,
		MarkupPercent:  row.MarkupPercent,
		IsActive:       row.IsActive,
		Authentication: jsonToMap(row.Authentication),
	}
}

func toDomainProduct(row productModel) domain.Product {
	return domain.Product{
		ProductID:  row.ProductID,
		CategoryID: row.CategoryID,
		BrandID:    row.BrandID,
		Name:       row.Name,
		IsDigital:  row.IsDigital,
		IsActive:   row.IsActive,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

func toDomainStock(row stockModel) domain.Stock {
	return domain.Stock{
		StockID:       row.StockID,
		ProductID:     row.ProductID,
		VendorID:      row.VendorID,
		SKU:           row.SKU,
		Price:         row.Price,
		PurchasePrice: row.PurchasePrice,
		Quantity:      row.Quantity,
		DigitalAsset:  row.DigitalAsset,
		ModifiedAt:    row.ModifiedAt,
	}
}

func toDomainPromoCode(row promoCodeModel) domain.PromoCode {
	return domain.PromoCode{
		PromoCodeID:     row.PromoCodeID,
		Code:            row.Code,
		DiscountPercent: row.DiscountPercent,
		DiscountAmount:  row.DiscountAmount,
		StartTime:       row.StartTime,
		EndTime:         row.EndTime,
		UsedOn:          row.UsedOn,
		UserID:          row.UserID,
	}
}

func toDomainBalance(row balanceModel) domain.Balance {
	return domain.Balance{
		BalanceID: row.BalanceID,
		UserID:    row.UserID,
		Amount:    row.Amount,
		UpdatedAt: row.UpdatedAt,
	}
}

func toDomainTransaction(row transactionModel) domain.Transaction {
	return domain.Transaction{
		TransactionID: row.TransactionID,
		BalanceID:     row.BalanceID,
		OrderID:       row.OrderID,
		Amount:        row.Amount,
		Currency:      row.Currency,
		PaymentMethod: row.PaymentMethod,
		Process:       jsonToMap(row.Process),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func toDomainLine(row orderProductModel) domain.OrderLine {
	return domain.OrderLine{
		LineID:        row.OrderProductID,
		OrderID:       row.OrderID,
		ProductID:     row.ProductID,
		VendorID:      row.VendorID,
		Quantity:      row.Quantity,
		BuyPrice:      row.BuyPrice,
		Status:        row.Status,
		AttributesKey: row.AttributesKey,
		Attributes:    jsonToStringMap(row.Attributes),
		AssetRef:      row.AssetRef,
		TrackingID:    row.TrackingID,
		Notifications: jsonToNotifications(row.Notifications),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func toDomainOrder(row orderModel, lines []orderProductModel) domain.Order {
	order := domain.Order{
		OrderID:         row.OrderID,
		HumanReadableID: row.HumanReadableID,
		UserID:          row.UserID,
		Status:          row.Status,
		PromoCodeID:     row.PromoCodeID,
		BillingAddress:  row.BillingAddress,
		ShippingAddress: row.ShippingAddress,
		BuyTime:         row.BuyTime,
		Attributes:      jsonToMap(row.Attributes),
		Notifications:   jsonToNotifications(row.Notifications),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	order.Lines = make([]domain.OrderLine, 0, len(lines))
	for _, line := range lines {
		order.Lines = append(order.Lines, toDomainLine(line))
	}
	return order
}

func jsonToMap(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	out := map[string]any{}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func jsonToStringMap(raw string) map[string]string {
	if raw == "" {
		return map[string]string{}
	}
	out := map[string]string{}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func jsonToNotifications(raw string) domain.Notifications {
	if raw == "" {
		return domain.Notifications{}
	}
	out := domain.Notifications{}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func mapToJSON(m map[string]any) string {
	if len(m) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func stringMapToJSON(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func notificationsToJSON(n domain.Notifications) string {
	if len(n) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
