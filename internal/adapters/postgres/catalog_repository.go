package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evibes/commerce/internal/domain"
)

type catalogRepository struct {
	db *gorm.DB
}

func (r *catalogRepository) GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error) {
	var rec productModel
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Product{}, domain.ErrNotFound
		}
		return domain.Product{}, err
	}
	return toDomainProduct(rec), nil
}

func (r *catalogRepository) GetBrand(ctx context.Context, brandID uuid.UUID) (domain.Brand, error) {
	var rec brandModel
	if err := r.db.WithContext(ctx).Where("brand_id = ?", brandID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Brand{}, domain.ErrNotFound
		}
		return domain.Brand{}, err
	}
	return toDomainBrand(rec), nil
}

func (r *catalogRepository) GetCategory(ctx context.Context, categoryID uuid.UUID) (domain.Category, error) {
	var rec categoryModel
	if err := r.db.WithContext(ctx).Where("category_id = ?", categoryID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Category{}, domain.ErrNotFound
		}
		return domain.Category{}, err
	}
	return toDomainCategory(rec), nil
}

func (r *catalogRepository) ListStocks(ctx context.Context, productID uuid.UUID) ([]domain.Stock, error) {
	var rows []stockModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("price ASC, modified_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Stock, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainStock(row))
	}
	return result, nil
}

func (r *catalogRepository) GetVendor(ctx context.Context, vendorID uuid.UUID) (domain.Vendor, error) {
	var rec vendorModel
	if err := r.db.WithContext(ctx).Where("vendor_id = ?", vendorID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Vendor{}, domain.ErrNotFound
		}
		return domain.Vendor{}, err
	}
	return toDomainVendor(rec), nil
}

func (r *catalogRepository) ListVendors(ctx context.Context) ([]domain.Vendor, error) {
	var rows []vendorModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Vendor, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainVendor(row))
	}
	return result, nil
}

// FindCategoryByLenientName returns the closest active category for a vendor
// feed name. Trigram similarity over the name column stands in for a
// full-text index; the 0.4 floor rejects unrelated matches.
func (r *catalogRepository) FindCategoryByLenientName(ctx context.Context, name string) (domain.Category, error) {
	var rec categoryModel
	res := r.db.WithContext(ctx).Raw(`
		SELECT * FROM categories
		WHERE is_active = TRUE AND similarity(name, ?) > 0.4
		ORDER BY similarity(name, ?) DESC, name ASC
		LIMIT 1`, name, name).Scan(&rec)
	if res.Error != nil {
		return domain.Category{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Category{}, domain.ErrNotFound
	}
	return toDomainCategory(rec), nil
}

func (r *catalogRepository) CreateInactiveCategory(ctx context.Context, name string) (domain.Category, error) {
	rec := categoryModel{Name: name, IsActive: false}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Category{}, err
	}
	return toDomainCategory(rec), nil
}

func (r *catalogRepository) FindBrandByLenientName(ctx context.Context, name string) (domain.Brand, error) {
	var rec brandModel
	res := r.db.WithContext(ctx).Raw(`
		SELECT * FROM brands
		WHERE is_active = TRUE AND similarity(name, ?) > 0.4
		ORDER BY similarity(name, ?) DESC, name ASC
		LIMIT 1`, name, name).Scan(&rec)
	if res.Error != nil {
		return domain.Brand{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Brand{}, domain.ErrNotFound
	}
	return toDomainBrand(rec), nil
}

func (r *catalogRepository) CreateInactiveBrand(ctx context.Context, name string) (domain.Brand, error) {
	rec := brandModel{Name: name, IsActive: false}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Brand{}, err
	}
	return toDomainBrand(rec), nil
}

type promotionRepository struct {
	db *gorm.DB
}

func (r *promotionRepository) ListActiveForProduct(ctx context.Context, productID uuid.UUID) ([]domain.Promotion, error) {
	var rows []promotionModel
	if err := r.db.WithContext(ctx).
		Joins("JOIN promotion_products pp ON pp.promotion_id = promotions.promotion_id").
		Where("pp.product_id = ?", productID).
		Where("promotions.is_active = TRUE").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Promotion, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.Promotion{
			PromotionID:     row.PromotionID,
			Name:            row.Name,
			DiscountPercent: row.DiscountPercent,
			IsActive:        row.IsActive,
			ProductIDs:      []uuid.UUID{productID},
		})
	}
	return result, nil
}

type promoCodeRepository struct {
	db *gorm.DB
}

func (r *promoCodeRepository) GetByID(ctx context.Context, promoCodeID uuid.UUID) (domain.PromoCode, error) {
	var rec promoCodeModel
	if err := r.db.WithContext(ctx).Where("promo_code_id = ?", promoCodeID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PromoCode{}, domain.ErrNotFound
		}
		return domain.PromoCode{}, err
	}
	return toDomainPromoCode(rec), nil
}

func (r *promoCodeRepository) GetByCode(ctx context.Context, code string) (domain.PromoCode, error) {
	var rec promoCodeModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PromoCode{}, domain.ErrNotFound
		}
		return domain.PromoCode{}, err
	}
	return toDomainPromoCode(rec), nil
}
