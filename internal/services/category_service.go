package services

import (
	"strings"

	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
	"ledgerbook/internal/store"
)

// categoryService handles asset category bookkeeping.
type categoryService struct {
	store store.Store
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(st store.Store) CategoryServicer {
	return &categoryService{store: st}
}

// CreateCategory creates a new asset category.
func (s *categoryService) CreateCategory(region, categoryType, redeemLocation string) (*models.AssetCategory, error) {
	region = strings.TrimSpace(region)
	categoryType = strings.TrimSpace(categoryType)
	redeemLocation = strings.TrimSpace(redeemLocation)

	if region == "" {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "region is required")
	}
	if categoryType == "" {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "category_type is required")
	}
	if redeemLocation == "" {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "redeem_location is required")
	}

	category := &models.AssetCategory{
		Region:         region,
		CategoryType:   categoryType,
		RedeemLocation: redeemLocation,
	}
	if err := s.store.CreateCategory(category); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return category, nil
}

// GetCategories retrieves a paginated list of asset categories.
func (s *categoryService) GetCategories(page pagination.PageRequest) (*pagination.PageResponse[models.AssetCategory], error) {
	page.Defaults()

	categories, total, err := s.store.ListCategories(page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, total)
	return &result, nil
}

// GetCategoryByUID retrieves an asset category by its external id.
func (s *categoryService) GetCategoryByUID(uid string) (*models.AssetCategory, error) {
	category, err := s.store.GetCategoryByUID(uid)
	if err != nil {
		return nil, mapStoreError(err, apperrors.ErrCategoryNotFound)
	}
	return category, nil
}

// DeleteCategory deletes a category no ledger has ever referenced.
func (s *categoryService) DeleteCategory(uid string) error {
	return s.store.Transaction(func(tx store.Store) error {
		category, err := tx.GetCategoryByUID(uid)
		if err != nil {
			return mapStoreError(err, apperrors.ErrCategoryNotFound)
		}

		n, err := tx.CountLedgersInCategory(category.ID)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if n > 0 {
			return apperrors.ErrCategoryInUse
		}

		if err := tx.DeleteCategory(category); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}
