package store

import (
	"awsugmdu-backend/internal/domain"
	appErrors "awsugmdu-backend/pkg/errors"
	"awsugmdu-backend/pkg/validation"
)

type CreateItemInput struct {
	Name           string          `json:"name" validate:"required"`
	Description    string          `json:"description"`
	Points         int             `json:"points" validate:"gte=0"`
	ItemType       domain.ItemType `json:"itemType" validate:"required,oneof=virtual physical"`
	Category       string          `json:"category"`
	ImageURL       string          `json:"imageUrl"`
	AvailableCodes []string        `json:"availableCodes"`
	Stock          int             `json:"stock" validate:"gte=0"`
}

func (in CreateItemInput) Validate() error { return validation.Struct(in) }

// UpdateItemInput changes only the fields that are set.
type UpdateItemInput struct {
	Name           *string          `json:"name" validate:"omitnil,min=1"`
	Description    *string          `json:"description"`
	Points         *int             `json:"points" validate:"omitnil,gte=0"`
	ItemType       *domain.ItemType `json:"itemType" validate:"omitnil,oneof=virtual physical"`
	Category       *string          `json:"category"`
	ImageURL       *string          `json:"imageUrl"`
	AvailableCodes *[]string        `json:"availableCodes"`
	Stock          *int             `json:"stock" validate:"omitnil,gte=0"`
}

func (in UpdateItemInput) Validate() error { return validation.Struct(in) }

func (in UpdateItemInput) apply(item *domain.StoreItem) {
	if in.Name != nil {
		item.Name = *in.Name
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.Points != nil {
		item.Points = *in.Points
	}
	if in.ItemType != nil {
		item.ItemType = *in.ItemType
	}
	if in.Category != nil {
		item.Category = *in.Category
	}
	if in.ImageURL != nil {
		item.ImageURL = *in.ImageURL
	}
	if in.AvailableCodes != nil {
		item.AvailableCodes = append([]string{}, (*in.AvailableCodes)...)
	}
	if in.Stock != nil {
		item.Stock = *in.Stock
	}
	item.Normalize()
}

type RedeemInput struct {
	UserID          string                  `json:"userId" validate:"required"`
	ShippingAddress *domain.ShippingAddress `json:"shippingAddress" validate:"-"`
}

func (in RedeemInput) Validate() error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	if in.ShippingAddress != nil {
		return validation.Struct(*in.ShippingAddress)
	}
	return nil
}

// CreateOrderInput is an order an admin records by hand. No points or stock
// move.
type CreateOrderInput struct {
	UserID          string                  `json:"userId" validate:"required"`
	UserName        string                  `json:"userName"`
	UserEmail       string                  `json:"userEmail" validate:"omitempty,email"`
	ItemID          string                  `json:"itemId" validate:"required"`
	ShippingAddress *domain.ShippingAddress `json:"shippingAddress" validate:"-"`
	AdminNotes      string                  `json:"adminNotes"`
}

func (in CreateOrderInput) Validate() error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	if in.ShippingAddress != nil {
		return validation.Struct(*in.ShippingAddress)
	}
	return nil
}

type OrderFilter struct {
	UserID string
	Status domain.OrderStatus
}

type UpdateStatusInput struct {
	Status     domain.OrderStatus `json:"status" validate:"required"`
	AdminNotes *string            `json:"adminNotes"`
}

func (in UpdateStatusInput) Validate() error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	if !domain.ValidOrderStatus(in.Status) {
		return appErrors.NewValidationf("invalid status %q", in.Status)
	}
	return nil
}

type AssignCodeInput struct {
	// Code defaults to the item's first available code.
	Code string `json:"code"`
}

type ImageUploadInput struct {
	ContentType string `json:"contentType" validate:"required"`
}

func (in ImageUploadInput) Validate() error { return validation.Struct(in) }
