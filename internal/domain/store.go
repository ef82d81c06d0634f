package domain

import "time"

// ItemType distinguishes code-delivered rewards from shipped merchandise.
type ItemType string

const (
	ItemVirtual  ItemType = "virtual"
	ItemPhysical ItemType = "physical"
)

// StoreItem is a reward users can redeem with points.
type StoreItem struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Points         int      `json:"points"`
	ItemType       ItemType `json:"itemType"`
	Category       string   `json:"category,omitempty"`
	ImageURL       string   `json:"imageUrl,omitempty"`
	AvailableCodes []string `json:"availableCodes"`
	Stock          int      `json:"stock"`
	InStock        bool     `json:"inStock"`
	Record
}

func (i *StoreItem) AggregateID() string { return i.ID }

func (i *StoreItem) Normalize() {
	if i.AvailableCodes == nil {
		i.AvailableCodes = []string{}
	}
	i.RefreshStock()
}

// RefreshStock derives InStock: virtual items need a code, physical items
// need a positive stock count.
func (i *StoreItem) RefreshStock() {
	if i.ItemType == ItemVirtual {
		i.InStock = len(i.AvailableCodes) > 0
		return
	}
	i.InStock = i.Stock > 0
}

// TakeCode removes and returns the first available code.
func (i *StoreItem) TakeCode() (string, bool) {
	if len(i.AvailableCodes) == 0 {
		return "", false
	}
	code := i.AvailableCodes[0]
	i.AvailableCodes = append([]string{}, i.AvailableCodes[1:]...)
	i.RefreshStock()
	return code, true
}

// RemoveCode consumes a specific code.
func (i *StoreItem) RemoveCode(code string) bool {
	var ok bool
	i.AvailableCodes, ok = remove(i.AvailableCodes, code)
	i.RefreshStock()
	return ok
}

// ReturnCode puts a code back into the pool, e.g. after a cancellation.
func (i *StoreItem) ReturnCode(code string) {
	if code == "" || contains(i.AvailableCodes, code) {
		return
	}
	i.AvailableCodes = append(i.AvailableCodes, code)
	i.RefreshStock()
}

// HasCode reports whether code is still available.
func (i *StoreItem) HasCode(code string) bool { return contains(i.AvailableCodes, code) }

// OrderStatus is the lifecycle state of a store order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCompleted, OrderCancelled},
	OrderProcessing: {OrderCompleted, OrderCancelled},
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderPending, OrderProcessing, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order may move from s to next.
// Completed and cancelled are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderSource tells redemptions, which moved points and stock, apart from
// orders an admin created by hand.
type OrderSource string

const (
	OrderSourceRedemption OrderSource = "redemption"
	OrderSourceManual     OrderSource = "manual"
)

// ShippingAddress is required for physical redemptions.
type ShippingAddress struct {
	Name       string `json:"name" validate:"required"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
	Phone      string `json:"phone,omitempty"`
}

// Order records a redemption or a manually created fulfilment.
type Order struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	UserName        string           `json:"userName,omitempty"`
	UserEmail       string           `json:"userEmail,omitempty"`
	ItemID          string           `json:"itemId"`
	ItemName        string           `json:"itemName"`
	ItemType        ItemType         `json:"itemType"`
	Points          int              `json:"points"`
	Status          OrderStatus      `json:"status"`
	Source          OrderSource      `json:"source,omitempty"`
	Code            string           `json:"code,omitempty"`
	ShippingAddress *ShippingAddress `json:"shippingAddress,omitempty"`
	AdminNotes      string           `json:"adminNotes,omitempty"`
	CompletedAt     *time.Time       `json:"completedAt,omitempty"`
	Record
}

func (o *Order) AggregateID() string { return o.ID }

// Redeemed reports whether the order debited points and stock when it was
// created. Orders written before sources were recorded count as manual.
func (o *Order) Redeemed() bool { return o.Source == OrderSourceRedemption }

// CanMoveTo reports whether the order may move to next. On top of the status
// transitions, a completed virtual order holding a code may still be
// cancelled, which takes the code back.
func (o *Order) CanMoveTo(next OrderStatus) bool {
	if o.Status.CanTransitionTo(next) {
		return true
	}
	return o.Status == OrderCompleted && next == OrderCancelled &&
		o.ItemType == ItemVirtual && o.Code != ""
}

// Complete marks the order completed at now.
func (o *Order) Complete(now time.Time) {
	o.Status = OrderCompleted
	o.CompletedAt = &now
}
