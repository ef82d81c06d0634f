package store

import (
	"context"
	"errors"
	"testing"

	"awsugmdu-backend/internal/assets"
	"awsugmdu-backend/internal/domain"
	"awsugmdu-backend/internal/events"
	"awsugmdu-backend/internal/notify"
	"awsugmdu-backend/internal/repository/memory"
	svc "awsugmdu-backend/internal/service"
	"awsugmdu-backend/internal/service/servicetest"
	appErrors "awsugmdu-backend/pkg/errors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	itemID, contentType string
}

func (f *fakeUploader) PresignItemImage(ctx context.Context, itemID, contentType string) (*assets.Upload, error) {
	f.itemID, f.contentType = itemID, contentType
	return &assets.Upload{UploadURL: "https://upload.example.com", Key: "store-items/" + itemID + "/x.png", Method: "PUT"}, nil
}

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	rec      *servicetest.Recorder
	deps     svc.Deps
	uploader *fakeUploader
	service  Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	rec := &servicetest.Recorder{}
	deps := servicetest.NewDeps(rec)
	uploader := &fakeUploader{}
	return &fixture{
		ctx:      context.Background(),
		store:    store,
		rec:      rec,
		deps:     deps,
		uploader: uploader,
		service:  NewService(store.Items, store.Orders, store.Users, store, uploader, deps),
	}
}

func (f *fixture) seedItem(t *testing.T, item *domain.StoreItem) {
	t.Helper()
	item.Normalize()
	require.NoError(t, f.store.Items.Create(f.ctx, item))
}

func (f *fixture) points(t *testing.T, userID string) int {
	t.Helper()
	u, err := f.store.Users.Get(f.ctx, userID)
	require.NoError(t, err)
	return u.Points
}

var address = &domain.ShippingAddress{
	Name:       "Uma",
	Line1:      "12 Temple Road",
	City:       "Madurai",
	PostalCode: "625001",
	Country:    "IN",
}

func TestItems(t *testing.T) {
	f := newFixture(t)

	virtual, err := f.service.CreateItem(f.ctx, CreateItemInput{
		Name:           "AWS credits",
		Points:         100,
		ItemType:       domain.ItemVirtual,
		AvailableCodes: []string{"AAA"},
	})
	require.NoError(t, err)
	assert.True(t, virtual.InStock)

	physical, err := f.service.CreateItem(f.ctx, CreateItemInput{Name: "Hoodie", Points: 300, ItemType: domain.ItemPhysical})
	require.NoError(t, err)
	assert.False(t, physical.InStock)

	t.Run("UpdateRecomputesStock", func(t *testing.T) {
		stock := 5
		updated, err := f.service.UpdateItem(f.ctx, physical.ID, UpdateItemInput{Stock: &stock})
		require.NoError(t, err)
		assert.True(t, updated.InStock)
		assert.Equal(t, 2, updated.Version)

		codes := []string{}
		updated, err = f.service.UpdateItem(f.ctx, virtual.ID, UpdateItemInput{AvailableCodes: &codes})
		require.NoError(t, err)
		assert.False(t, updated.InStock)
	})

	t.Run("InvalidType", func(t *testing.T) {
		_, err := f.service.CreateItem(f.ctx, CreateItemInput{Name: "Sticker", ItemType: "digital"})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("ListAndDelete", func(t *testing.T) {
		items, err := f.service.ListItems(f.ctx)
		require.NoError(t, err)
		assert.Len(t, items, 2)

		require.NoError(t, f.service.DeleteItem(f.ctx, physical.ID))
		_, err = f.service.GetItem(f.ctx, physical.ID)
		assert.True(t, appErrors.IsNotFound(err))
	})
}

func TestRedeem_VirtualLastCode(t *testing.T) {
	f := newFixture(t)
	f.store.Users.Put(domain.User{ID: "u1", Email: "u1@example.com", Name: "Uma", Points: 150})
	f.seedItem(t, &domain.StoreItem{ID: "item-1", Name: "AWS credits", Points: 100, ItemType: domain.ItemVirtual, AvailableCodes: []string{"LAST-CODE"}})

	order, err := f.service.Redeem(f.ctx, "item-1", RedeemInput{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, order.Status)
	assert.Equal(t, "LAST-CODE", order.Code)
	assert.Equal(t, domain.OrderSourceRedemption, order.Source)
	require.NotNil(t, order.CompletedAt)

	item, err := f.store.Items.Get(f.ctx, "item-1")
	require.NoError(t, err)
	assert.False(t, item.InStock)
	assert.Empty(t, item.AvailableCodes)
	assert.Equal(t, 50, f.points(t, "u1"))

	stored, err := f.store.Orders.Get(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "LAST-CODE", stored.Code)

	assert.Equal(t, []string{string(notify.KindCodeDelivered)}, f.rec.Emails)
	assert.Equal(t, "LAST-CODE", f.rec.LastOrder.Code)
	assert.Equal(t, []string{events.TypeOrderCreated}, f.rec.EventTypes())
	assert.Equal(t, 100.0, testutil.ToFloat64(f.deps.Metrics.PointsRedeemed))

	t.Run("OutOfStock", func(t *testing.T) {
		_, err := f.service.Redeem(f.ctx, "item-1", RedeemInput{UserID: "u1"})
		require.Error(t, err)
		assert.Equal(t, "Item is out of stock", appErrors.Message(err))
	})
}

func TestRedeem_InsufficientPoints(t *testing.T) {
	f := newFixture(t)
	f.store.Users.Put(domain.User{ID: "u1", Points: 40})
	f.seedItem(t, &domain.StoreItem{ID: "item-1", Points: 100, ItemType: domain.ItemVirtual, AvailableCodes: []string{"A"}})

	_, err := f.service.Redeem(f.ctx, "item-1", RedeemInput{UserID: "u1"})
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Equal(t, 40, f.points(t, "u1"))

	orders, err := f.store.Orders.List(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, f.rec.Emails)
}

func TestRedeem_Physical(t *testing.T) {
	f := newFixture(t)
	f.store.Users.Put(domain.User{ID: "u1", Email: "u1@example.com", Points: 500})
	f.seedItem(t, &domain.StoreItem{ID: "item-1", Name: "Hoodie", Points: 300, ItemType: domain.ItemPhysical, Stock: 1})

	_, err := f.service.Redeem(f.ctx, "item-1", RedeemInput{UserID: "u1"})
	require.Error(t, err)
	assert.Equal(t, "shippingAddress is required for physical items", appErrors.Message(err))

	_, err = f.service.Redeem(f.ctx, "item-1", RedeemInput{UserID: "u1", ShippingAddress: &domain.ShippingAddress{Name: "Uma"}})
	assert.True(t, appErrors.IsValidation(err))

	order, err := f.service.Redeem(f.ctx, "item-1", RedeemInput{UserID: "u1", ShippingAddress: address})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.Empty(t, order.Code)
	assert.Equal(t, 200, f.points(t, "u1"))

	item, _ := f.store.Items.Get(f.ctx, "item-1")
	assert.Equal(t, 0, item.Stock)
	assert.False(t, item.InStock)
	assert.Equal(t, []string{string(notify.KindOrderReceived)}, f.rec.Emails)
}

func TestRedeem_UnknownUserOrItem(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, &domain.StoreItem{ID: "item-1", Points: 10, ItemType: domain.ItemVirtual, AvailableCodes: []string{"A"}})

	_, err := f.service.Redeem(f.ctx, "item-1", RedeemInput{UserID: "ghost"})
	assert.True(t, appErrors.IsNotFound(err))

	_, err = f.service.Redeem(f.ctx, "item-missing", RedeemInput{UserID: "ghost"})
	assert.True(t, appErrors.IsNotFound(err))

	_, err = f.service.Redeem(f.ctx, "item-1", RedeemInput{})
	assert.True(t, appErrors.IsValidation(err))
}

func TestRedeem_EmailFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.rec.Err = errors.New("ses down")
	f.store.Users.Put(domain.User{ID: "u1", Email: "u1@example.com", Points: 100})
	f.seedItem(t, &domain.StoreItem{ID: "item-1", Points: 10, ItemType: domain.ItemVirtual, AvailableCodes: []string{"A"}})

	order, err := f.service.Redeem(f.ctx, "item-1", RedeemInput{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "A", order.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.deps.Metrics.SideEffects.WithLabelValues("email.code_delivered", "failure")))
}

func TestRedeem_TransactionFailureLeavesNothing(t *testing.T) {
	f := newFixture(t)
	f.store.Users.Put(domain.User{ID: "u1", Points: 100})
	f.seedItem(t, &domain.StoreItem{ID: "item-1", Points: 10, ItemType: domain.ItemVirtual, AvailableCodes: []string{"A"}})
	f.store.SetError("store.CommitRedemption", appErrors.NewConflict("transaction cancelled", nil))

	_, err := f.service.Redeem(f.ctx, "item-1", RedeemInput{UserID: "u1"})
	assert.True(t, appErrors.IsConflict(err))
	assert.Equal(t, 100, f.points(t, "u1"))

	item, _ := f.store.Items.Get(f.ctx, "item-1")
	assert.Equal(t, []string{"A"}, item.AvailableCodes)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.deps.Metrics.OptimisticRetries.WithLabelValues("store_item")))
}

func TestOrders_ListAndCreate(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, &domain.StoreItem{ID: "item-1", Name: "Hoodie", Points: 300, ItemType: domain.ItemPhysical, Stock: 3})
	f.store.Users.Put(domain.User{ID: "u1", Points: 0})

	order, err := f.service.CreateOrder(f.ctx, CreateOrderInput{UserID: "u1", ItemID: "item-1", AdminNotes: "speaker gift"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.Equal(t, domain.OrderSourceManual, order.Source)
	assert.Equal(t, "Hoodie", order.ItemName)
	assert.Equal(t, 0, f.points(t, "u1"))

	item, _ := f.store.Items.Get(f.ctx, "item-1")
	assert.Equal(t, 3, item.Stock)

	_, err = f.service.CreateOrder(f.ctx, CreateOrderInput{UserID: "u1", ItemID: "item-missing"})
	assert.True(t, appErrors.IsNotFound(err))

	require.NoError(t, f.store.Orders.Create(f.ctx, &domain.Order{ID: "order-other", UserID: "u2", Status: domain.OrderCompleted}))

	mine, err := f.service.ListOrders(f.ctx, OrderFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	completed, err := f.service.ListOrders(f.ctx, OrderFilter{Status: domain.OrderCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "order-other", completed[0].ID)

	_, err = f.service.ListOrders(f.ctx, OrderFilter{Status: "shipped"})
	assert.True(t, appErrors.IsValidation(err))
}

func TestUpdateOrderStatus(t *testing.T) {
	f := newFixture(t)
	seed := func(t *testing.T, order *domain.Order) {
		t.Helper()
		require.NoError(t, f.store.Orders.Create(f.ctx, order))
	}
	f.store.Users.Put(domain.User{ID: "u1", Email: "u1@example.com", Points: 0})

	t.Run("PendingToProcessingToCompleted", func(t *testing.T) {
		seed(t, &domain.Order{ID: "order-1", UserID: "u1", ItemType: domain.ItemPhysical, Status: domain.OrderPending})

		order, err := f.service.UpdateOrderStatus(f.ctx, "order-1", UpdateStatusInput{Status: domain.OrderProcessing})
		require.NoError(t, err)
		assert.Equal(t, domain.OrderProcessing, order.Status)

		order, err = f.service.UpdateOrderStatus(f.ctx, "order-1", UpdateStatusInput{Status: domain.OrderCompleted})
		require.NoError(t, err)
		assert.Equal(t, domain.OrderCompleted, order.Status)
		assert.NotNil(t, order.CompletedAt)
		assert.Contains(t, f.rec.Emails, string(notify.KindOrderCompleted))
		assert.Equal(t, "u1@example.com", f.rec.LastOrder.To)
	})

	t.Run("TerminalStatesAreFinal", func(t *testing.T) {
		_, err := f.service.UpdateOrderStatus(f.ctx, "order-1", UpdateStatusInput{Status: domain.OrderProcessing})
		require.Error(t, err)
		assert.Equal(t, "Cannot change order status from completed to processing", appErrors.Message(err))
	})

	t.Run("SameStatusUpdatesNotes", func(t *testing.T) {
		notes := "delivered by hand"
		order, err := f.service.UpdateOrderStatus(f.ctx, "order-1", UpdateStatusInput{Status: domain.OrderCompleted, AdminNotes: &notes})
		require.NoError(t, err)
		assert.Equal(t, notes, order.AdminNotes)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		_, err := f.service.UpdateOrderStatus(f.ctx, "order-1", UpdateStatusInput{Status: "shipped"})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("CancelRedeemedVirtualOrderRefundsAndReturnsCode", func(t *testing.T) {
		f.store.Users.Put(domain.User{ID: "u1", Email: "u1@example.com", Points: 70})
		f.seedItem(t, &domain.StoreItem{ID: "item-v", Points: 70, ItemType: domain.ItemVirtual, AvailableCodes: []string{"CODE-9"}})

		redeemed, err := f.service.Redeem(f.ctx, "item-v", RedeemInput{UserID: "u1"})
		require.NoError(t, err)
		require.Equal(t, domain.OrderCompleted, redeemed.Status)
		require.Equal(t, 0, f.points(t, "u1"))

		order, err := f.service.UpdateOrderStatus(f.ctx, redeemed.ID, UpdateStatusInput{Status: domain.OrderCancelled})
		require.NoError(t, err)
		assert.Equal(t, domain.OrderCancelled, order.Status)
		assert.Equal(t, 70, f.points(t, "u1"))

		item, _ := f.store.Items.Get(f.ctx, "item-v")
		assert.Equal(t, []string{"CODE-9"}, item.AvailableCodes)
		assert.True(t, item.InStock)

		_, err = f.service.UpdateOrderStatus(f.ctx, redeemed.ID, UpdateStatusInput{Status: domain.OrderPending})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("CancelPhysicalRedemptionRestocks", func(t *testing.T) {
		f.seedItem(t, &domain.StoreItem{ID: "item-p", ItemType: domain.ItemPhysical, Stock: 0})
		seed(t, &domain.Order{
			ID: "order-3", UserID: "u1", ItemID: "item-p", ItemType: domain.ItemPhysical,
			Points: 30, Status: domain.OrderProcessing, Source: domain.OrderSourceRedemption,
		})

		_, err := f.service.UpdateOrderStatus(f.ctx, "order-3", UpdateStatusInput{Status: domain.OrderCancelled})
		require.NoError(t, err)
		assert.Equal(t, 100, f.points(t, "u1"))

		item, _ := f.store.Items.Get(f.ctx, "item-p")
		assert.Equal(t, 1, item.Stock)
		assert.True(t, item.InStock)
	})

	t.Run("CancelManualOrderMovesNoPoints", func(t *testing.T) {
		seed(t, &domain.Order{
			ID: "order-4", UserID: "u1", ItemID: "item-p", ItemType: domain.ItemPhysical,
			Points: 30, Status: domain.OrderPending, Source: domain.OrderSourceManual,
		})

		_, err := f.service.UpdateOrderStatus(f.ctx, "order-4", UpdateStatusInput{Status: domain.OrderCancelled})
		require.NoError(t, err)
		assert.Equal(t, 100, f.points(t, "u1"))

		item, _ := f.store.Items.Get(f.ctx, "item-p")
		assert.Equal(t, 1, item.Stock)
	})

	t.Run("CancelWithDeletedItem", func(t *testing.T) {
		seed(t, &domain.Order{
			ID: "order-5", UserID: "u1", ItemID: "item-gone", ItemType: domain.ItemVirtual,
			Points: 5, Code: "X", Status: domain.OrderCompleted, Source: domain.OrderSourceRedemption,
		})

		_, err := f.service.UpdateOrderStatus(f.ctx, "order-5", UpdateStatusInput{Status: domain.OrderCancelled})
		require.NoError(t, err)
		assert.Equal(t, 105, f.points(t, "u1"))
	})
}

func TestUpdateOrderStatus_VirtualOrders(t *testing.T) {
	f := newFixture(t)
	f.store.Users.Put(domain.User{ID: "u1", Email: "u1@example.com", Points: 10})
	f.seedItem(t, &domain.StoreItem{ID: "item-v", ItemType: domain.ItemVirtual, AvailableCodes: []string{"GIFT-1"}})

	manual, err := f.service.CreateOrder(f.ctx, CreateOrderInput{UserID: "u1", ItemID: "item-v"})
	require.NoError(t, err)

	t.Run("CompletingWithoutCodeIsRejected", func(t *testing.T) {
		_, err := f.service.UpdateOrderStatus(f.ctx, manual.ID, UpdateStatusInput{Status: domain.OrderCompleted})
		require.Error(t, err)
		assert.Equal(t, "Virtual orders are completed by assigning a code", appErrors.Message(err))

		stored, _ := f.store.Orders.Get(f.ctx, manual.ID)
		assert.Equal(t, domain.OrderPending, stored.Status)
	})

	t.Run("CancelAfterAssignCodeReturnsCode", func(t *testing.T) {
		assigned, err := f.service.AssignCode(f.ctx, manual.ID, AssignCodeInput{})
		require.NoError(t, err)
		require.Equal(t, domain.OrderCompleted, assigned.Status)

		order, err := f.service.UpdateOrderStatus(f.ctx, manual.ID, UpdateStatusInput{Status: domain.OrderCancelled})
		require.NoError(t, err)
		assert.Equal(t, domain.OrderCancelled, order.Status)
		assert.Equal(t, 10, f.points(t, "u1"))

		item, _ := f.store.Items.Get(f.ctx, "item-v")
		assert.Equal(t, []string{"GIFT-1"}, item.AvailableCodes)
	})

	t.Run("CompletedPhysicalStaysFinal", func(t *testing.T) {
		require.NoError(t, f.store.Orders.Create(f.ctx, &domain.Order{
			ID: "order-shipped", UserID: "u1", ItemID: "item-p", ItemType: domain.ItemPhysical,
			Status: domain.OrderCompleted, Source: domain.OrderSourceRedemption,
		}))
		_, err := f.service.UpdateOrderStatus(f.ctx, "order-shipped", UpdateStatusInput{Status: domain.OrderCancelled})
		require.Error(t, err)
		assert.Equal(t, "Cannot change order status from completed to cancelled", appErrors.Message(err))
	})
}

func TestAssignCode(t *testing.T) {
	f := newFixture(t)
	f.store.Users.Put(domain.User{ID: "u1", Email: "u1@example.com", Name: "Uma"})
	f.seedItem(t, &domain.StoreItem{ID: "item-1", Name: "AWS credits", ItemType: domain.ItemVirtual, AvailableCodes: []string{"C1", "C2"}})
	require.NoError(t, f.store.Orders.Create(f.ctx, &domain.Order{ID: "order-1", UserID: "u1", ItemID: "item-1", ItemType: domain.ItemVirtual, Status: domain.OrderPending}))
	require.NoError(t, f.store.Orders.Create(f.ctx, &domain.Order{ID: "order-2", UserID: "u1", ItemID: "item-1", ItemType: domain.ItemVirtual, Status: domain.OrderPending}))

	t.Run("UnavailableCode", func(t *testing.T) {
		_, err := f.service.AssignCode(f.ctx, "order-1", AssignCodeInput{Code: "NOPE"})
		require.Error(t, err)
		assert.Equal(t, "Code is not available for this item", appErrors.Message(err))
	})

	t.Run("SpecificCode", func(t *testing.T) {
		order, err := f.service.AssignCode(f.ctx, "order-1", AssignCodeInput{Code: "C2"})
		require.NoError(t, err)
		assert.Equal(t, "C2", order.Code)
		assert.Equal(t, domain.OrderCompleted, order.Status)

		item, _ := f.store.Items.Get(f.ctx, "item-1")
		assert.Equal(t, []string{"C1"}, item.AvailableCodes)
		assert.Equal(t, "u1@example.com", f.rec.LastOrder.To)
	})

	t.Run("AlreadyAssigned", func(t *testing.T) {
		_, err := f.service.AssignCode(f.ctx, "order-1", AssignCodeInput{})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("FirstAvailable", func(t *testing.T) {
		order, err := f.service.AssignCode(f.ctx, "order-2", AssignCodeInput{})
		require.NoError(t, err)
		assert.Equal(t, "C1", order.Code)

		item, _ := f.store.Items.Get(f.ctx, "item-1")
		assert.Empty(t, item.AvailableCodes)
		assert.False(t, item.InStock)
	})

	t.Run("NoCodesLeft", func(t *testing.T) {
		require.NoError(t, f.store.Orders.Create(f.ctx, &domain.Order{ID: "order-3", UserID: "u1", ItemID: "item-1", Status: domain.OrderPending}))
		_, err := f.service.AssignCode(f.ctx, "order-3", AssignCodeInput{})
		require.Error(t, err)
		assert.Equal(t, "No codes available for this item", appErrors.Message(err))
	})

	t.Run("CancelledOrder", func(t *testing.T) {
		require.NoError(t, f.store.Orders.Create(f.ctx, &domain.Order{ID: "order-4", UserID: "u1", ItemID: "item-1", Status: domain.OrderCancelled}))
		_, err := f.service.AssignCode(f.ctx, "order-4", AssignCodeInput{})
		assert.True(t, appErrors.IsValidation(err))
	})
}

func TestImageUploadURL(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, &domain.StoreItem{ID: "item-1", ItemType: domain.ItemPhysical})

	upload, err := f.service.ImageUploadURL(f.ctx, "item-1", ImageUploadInput{ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "PUT", upload.Method)
	assert.Equal(t, "item-1", f.uploader.itemID)

	_, err = f.service.ImageUploadURL(f.ctx, "item-missing", ImageUploadInput{ContentType: "image/png"})
	assert.True(t, appErrors.IsNotFound(err))

	_, err = f.service.ImageUploadURL(f.ctx, "item-1", ImageUploadInput{})
	assert.True(t, appErrors.IsValidation(err))
}
