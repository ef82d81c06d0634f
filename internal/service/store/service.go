// Package store implements the points store: reward items, redemptions and
// order fulfilment. Every write that moves points, codes or stock together
// goes through a single transaction.
package store

import (
	"context"
	"fmt"
	"time"

	"awsugmdu-backend/internal/assets"
	"awsugmdu-backend/internal/domain"
	"awsugmdu-backend/internal/events"
	"awsugmdu-backend/internal/notify"
	"awsugmdu-backend/internal/repository"
	svc "awsugmdu-backend/internal/service"
	appErrors "awsugmdu-backend/pkg/errors"

	"go.uber.org/zap"
)

// Service defines the store operations.
type Service interface {
	ListItems(ctx context.Context) ([]*domain.StoreItem, error)
	CreateItem(ctx context.Context, in CreateItemInput) (*domain.StoreItem, error)
	GetItem(ctx context.Context, id string) (*domain.StoreItem, error)
	UpdateItem(ctx context.Context, id string, in UpdateItemInput) (*domain.StoreItem, error)
	DeleteItem(ctx context.Context, id string) error

	// Redeem spends the user's points on an item and returns the new order
	Redeem(ctx context.Context, itemID string, in RedeemInput) (*domain.Order, error)

	// ImageUploadURL presigns an upload for a new item image
	ImageUploadURL(ctx context.Context, itemID string, in ImageUploadInput) (*assets.Upload, error)

	ListOrders(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)
	CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, in UpdateStatusInput) (*domain.Order, error)
	AssignCode(ctx context.Context, id string, in AssignCodeInput) (*domain.Order, error)
}

// Uploader presigns item image uploads.
type Uploader interface {
	PresignItemImage(ctx context.Context, itemID, contentType string) (*assets.Upload, error)
}

type service struct {
	items        repository.ItemStore
	orders       repository.OrderStore
	users        repository.UserStore
	transactions repository.Transactions
	uploads      Uploader
	deps         svc.Deps
}

// NewService creates a store service.
func NewService(
	items repository.ItemStore,
	orders repository.OrderStore,
	users repository.UserStore,
	transactions repository.Transactions,
	uploads Uploader,
	deps svc.Deps,
) Service {
	return &service{
		items:        items,
		orders:       orders,
		users:        users,
		transactions: transactions,
		uploads:      uploads,
		deps:         deps,
	}
}

func (s *service) ListItems(ctx context.Context) ([]*domain.StoreItem, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list store items")
	}
	for _, item := range items {
		item.Normalize()
	}
	return items, nil
}

func (s *service) CreateItem(ctx context.Context, in CreateItemInput) (*domain.StoreItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.deps.Now()
	item := &domain.StoreItem{
		ID:             domain.NewID(domain.PrefixItem, now),
		Name:           in.Name,
		Description:    in.Description,
		Points:         in.Points,
		ItemType:       in.ItemType,
		Category:       in.Category,
		ImageURL:       in.ImageURL,
		AvailableCodes: in.AvailableCodes,
		Stock:          in.Stock,
	}
	item.Normalize()
	item.Touch(now)

	if err := s.items.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, "failed to create store item")
	}
	s.deps.Logger.Info("Store item created", zap.String("itemId", item.ID), zap.String("itemType", string(item.ItemType)))
	return item, nil
}

func (s *service) GetItem(ctx context.Context, id string) (*domain.StoreItem, error) {
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Normalize()
	return item, nil
}

func (s *service) UpdateItem(ctx context.Context, id string, in UpdateItemInput) (*domain.StoreItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return repository.Mutate(ctx, s.deps.RetryFor("store_item"), s.items, id, func(item *domain.StoreItem) error {
		in.apply(item)
		item.Touch(s.deps.Now())
		return nil
	})
}

func (s *service) DeleteItem(ctx context.Context, id string) error {
	if err := s.items.Delete(ctx, id); err != nil {
		return err
	}
	s.deps.Logger.Info("Store item deleted", zap.String("itemId", id))
	return nil
}

func (s *service) ImageUploadURL(ctx context.Context, itemID string, in ImageUploadInput) (*assets.Upload, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.items.Get(ctx, itemID); err != nil {
		return nil, err
	}
	return s.uploads.PresignItemImage(ctx, itemID, in.ContentType)
}

// Redeem checks stock, balance and shipping details, then debits the user,
// creates the order and updates the item in one transaction. A concurrent
// change to the item restarts the whole check.
func (s *service) Redeem(ctx context.Context, itemID string, in RedeemInput) (*domain.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var (
		order *domain.Order
		user  *domain.User
	)
	err := repository.Retry(ctx, s.deps.RetryFor("store_item"), itemID, func() error {
		item, err := s.items.Get(ctx, itemID)
		if err != nil {
			return err
		}
		item.Normalize()
		if !item.InStock {
			return appErrors.NewValidation("Item is out of stock")
		}

		user, err = s.users.Get(ctx, in.UserID)
		if err != nil {
			return err
		}
		if user.Points < item.Points {
			return repository.ErrInsufficientPoints
		}
		if item.ItemType == domain.ItemPhysical && in.ShippingAddress == nil {
			return appErrors.NewValidation("shippingAddress is required for physical items")
		}

		now := s.deps.Now()
		order = &domain.Order{
			ID:              domain.NewID(domain.PrefixOrder, now),
			UserID:          user.ID,
			UserName:        user.Name,
			UserEmail:       user.Email,
			ItemID:          item.ID,
			ItemName:        item.Name,
			ItemType:        item.ItemType,
			Points:          item.Points,
			Status:          domain.OrderPending,
			Source:          domain.OrderSourceRedemption,
			ShippingAddress: in.ShippingAddress,
		}
		if item.ItemType == domain.ItemVirtual {
			code, _ := item.TakeCode()
			order.Code = code
			order.Complete(now)
		} else {
			item.Stock--
			item.RefreshStock()
		}
		order.Touch(now)
		item.Touch(now)

		return s.transactions.CommitRedemption(ctx, repository.Redemption{
			UserID: user.ID,
			Cost:   item.Points,
			Order:  order,
			Item:   item,
			Now:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.deps.Metrics.OrdersCreated.WithLabelValues(string(order.ItemType), string(order.Source)).Inc()
	s.deps.Metrics.PointsRedeemed.Add(float64(order.Points))
	s.deps.Logger.Info("Item redeemed",
		zap.String("orderId", order.ID),
		zap.String("itemId", itemID),
		zap.String("userId", order.UserID),
		zap.Int("points", order.Points),
	)

	s.deps.Publish(ctx, events.TypeOrderCreated, order.ID, orderDetail(order))
	email := orderEmail(order, user.Email, user.Name)
	if order.ItemType == domain.ItemVirtual {
		s.deps.Email(ctx, "code_delivered", func(ctx context.Context, n notify.Notifier) error {
			return n.CodeDelivered(ctx, email)
		})
	} else {
		s.deps.Email(ctx, "order_received", func(ctx context.Context, n notify.Notifier) error {
			return n.OrderReceived(ctx, email)
		})
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, filter OrderFilter) ([]*domain.Order, error) {
	var filters []repository.Filter
	if filter.UserID != "" {
		filters = append(filters, repository.Filter{Attribute: "userId", Value: filter.UserID})
	}
	if filter.Status != "" {
		if !domain.ValidOrderStatus(filter.Status) {
			return nil, appErrors.NewValidationf("invalid status %q", filter.Status)
		}
		filters = append(filters, repository.Filter{Attribute: "status", Value: string(filter.Status)})
	}

	orders, err := s.orders.List(ctx, filters...)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list orders")
	}
	return orders, nil
}

func (s *service) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	item, err := s.items.Get(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}

	now := s.deps.Now()
	order := &domain.Order{
		ID:              domain.NewID(domain.PrefixOrder, now),
		UserID:          in.UserID,
		UserName:        in.UserName,
		UserEmail:       in.UserEmail,
		ItemID:          item.ID,
		ItemName:        item.Name,
		ItemType:        item.ItemType,
		Points:          item.Points,
		Status:          domain.OrderPending,
		Source:          domain.OrderSourceManual,
		ShippingAddress: in.ShippingAddress,
		AdminNotes:      in.AdminNotes,
	}
	order.Touch(now)

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, appErrors.Wrap(err, "failed to create order")
	}
	s.deps.Metrics.OrdersCreated.WithLabelValues(string(order.ItemType), string(order.Source)).Inc()
	s.deps.Logger.Info("Order created", zap.String("orderId", order.ID), zap.String("itemId", item.ID))
	s.deps.Publish(ctx, events.TypeOrderCreated, order.ID, orderDetail(order))
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.orders.Get(ctx, id)
}

// UpdateOrderStatus moves an order along its state machine. Re-sending the
// current status only updates the admin notes. Completing a physical order
// emails the user. Virtual orders complete through AssignCode and stay
// cancellable while they hold a code. Cancelling a redemption refunds its
// points and puts the code or stock back in the same transaction.
func (s *service) UpdateOrderStatus(ctx context.Context, id string, in UpdateStatusInput) (*domain.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var (
		order    *domain.Order
		previous domain.OrderStatus
	)
	err := repository.Retry(ctx, s.deps.RetryFor("order"), id, func() error {
		var err error
		order, err = s.orders.Get(ctx, id)
		if err != nil {
			return err
		}
		previous = order.Status
		if in.Status != previous && !order.CanMoveTo(in.Status) {
			return appErrors.NewValidationf("Cannot change order status from %s to %s", previous, in.Status)
		}
		if in.Status == domain.OrderCompleted && previous != domain.OrderCompleted &&
			order.ItemType == domain.ItemVirtual && order.Code == "" {
			return appErrors.NewValidation("Virtual orders are completed by assigning a code")
		}

		now := s.deps.Now()
		if in.AdminNotes != nil {
			order.AdminNotes = *in.AdminNotes
		}
		order.Touch(now)

		switch {
		case in.Status == previous:
			return s.orders.Save(ctx, order)
		case in.Status == domain.OrderCompleted:
			order.Complete(now)
			return s.orders.Save(ctx, order)
		case in.Status == domain.OrderCancelled:
			order.Status = domain.OrderCancelled
			return s.cancel(ctx, order, now)
		default:
			order.Status = in.Status
			return s.orders.Save(ctx, order)
		}
	})
	if err != nil {
		return nil, err
	}
	if order.Status == previous {
		return order, nil
	}

	s.deps.Logger.Info("Order status changed",
		zap.String("orderId", order.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(order.Status)),
	)
	s.deps.Publish(ctx, events.TypeOrderStatusChanged, order.ID, map[string]any{
		"orderId": order.ID,
		"userId":  order.UserID,
		"from":    previous,
		"to":      order.Status,
	})
	if order.Status == domain.OrderCompleted && order.ItemType == domain.ItemPhysical {
		s.deps.Email(ctx, "order_completed", func(ctx context.Context, n notify.Notifier) error {
			email, err := s.orderRecipient(ctx, order)
			if err != nil {
				return err
			}
			return n.OrderCompleted(ctx, email)
		})
	}
	return order, nil
}

// cancel commits a cancellation. Redemptions get their points back and their
// stock returned; an assigned code always goes back into the item's pool. An
// item that no longer exists is left alone.
func (s *service) cancel(ctx context.Context, order *domain.Order, now time.Time) error {
	c := repository.Cancellation{Order: order, Now: now}
	if order.Redeemed() {
		c.Refund = order.Points
	}

	returnsCode := order.Code != ""
	returnsStock := order.ItemType == domain.ItemPhysical && order.Redeemed()
	if returnsCode || returnsStock {
		item, err := s.items.Get(ctx, order.ItemID)
		switch {
		case appErrors.IsNotFound(err):
			s.deps.Logger.Warn("Cancelled order references a deleted item",
				zap.String("orderId", order.ID), zap.String("itemId", order.ItemID))
		case err != nil:
			return err
		default:
			item.Normalize()
			if returnsCode {
				item.ReturnCode(order.Code)
			}
			if returnsStock {
				item.Stock++
				item.RefreshStock()
			}
			item.Touch(now)
			c.Item = item
		}
	}

	if err := s.transactions.CommitCancellation(ctx, c); err != nil {
		return err
	}
	if c.Refund > 0 {
		s.deps.Logger.Info("Order refunded", zap.String("orderId", order.ID), zap.Int("points", c.Refund))
	}
	return nil
}

// AssignCode gives an order a code from its item, the first available one
// unless a specific code is requested, and completes the order.
func (s *service) AssignCode(ctx context.Context, id string, in AssignCodeInput) (*domain.Order, error) {
	var order *domain.Order
	err := repository.Retry(ctx, s.deps.RetryFor("order"), id, func() error {
		var err error
		order, err = s.orders.Get(ctx, id)
		if err != nil {
			return err
		}
		if order.Code != "" {
			return appErrors.NewValidation("Order already has a code assigned")
		}
		if order.Status == domain.OrderCancelled {
			return appErrors.NewValidation("Cannot assign a code to a cancelled order")
		}

		item, err := s.items.Get(ctx, order.ItemID)
		if err != nil {
			return err
		}
		item.Normalize()

		code := in.Code
		if code == "" {
			var ok bool
			if code, ok = item.TakeCode(); !ok {
				return appErrors.NewValidation("No codes available for this item")
			}
		} else if !item.RemoveCode(code) {
			return appErrors.NewValidation("Code is not available for this item")
		}

		now := s.deps.Now()
		order.Code = code
		order.Complete(now)
		order.Touch(now)
		item.Touch(now)

		return s.transactions.CommitCodeAssignment(ctx, repository.CodeAssignment{Order: order, Item: item})
	})
	if err != nil {
		return nil, err
	}

	s.deps.Logger.Info("Code assigned", zap.String("orderId", order.ID), zap.String("itemId", order.ItemID))
	s.deps.Publish(ctx, events.TypeOrderStatusChanged, order.ID, map[string]any{
		"orderId": order.ID,
		"userId":  order.UserID,
		"to":      order.Status,
	})
	s.deps.Email(ctx, "code_delivered", func(ctx context.Context, n notify.Notifier) error {
		email, err := s.orderRecipient(ctx, order)
		if err != nil {
			return err
		}
		return n.CodeDelivered(ctx, email)
	})
	return order, nil
}

// orderRecipient addresses an order email, looking the user up when the
// order has no email of its own. Unknown users yield an empty recipient,
// which the mailer skips.
func (s *service) orderRecipient(ctx context.Context, order *domain.Order) (notify.OrderEmail, error) {
	if order.UserEmail != "" {
		return orderEmail(order, order.UserEmail, order.UserName), nil
	}
	user, err := s.users.Get(ctx, order.UserID)
	if appErrors.IsNotFound(err) {
		return orderEmail(order, "", order.UserName), nil
	}
	if err != nil {
		return notify.OrderEmail{}, fmt.Errorf("failed to look up order recipient: %w", err)
	}
	return orderEmail(order, user.Email, user.Name), nil
}

func orderEmail(order *domain.Order, to, userName string) notify.OrderEmail {
	return notify.OrderEmail{
		To:       to,
		UserName: userName,
		OrderID:  order.ID,
		ItemName: order.ItemName,
		Points:   order.Points,
		Code:     order.Code,
		Address:  order.ShippingAddress,
	}
}

func orderDetail(order *domain.Order) map[string]any {
	return map[string]any{
		"orderId":  order.ID,
		"userId":   order.UserID,
		"itemId":   order.ItemID,
		"itemType": order.ItemType,
		"points":   order.Points,
		"status":   order.Status,
		"source":   order.Source,
	}
}
