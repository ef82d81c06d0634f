package handlers

import (
	"net/http"

	"awsugmdu-backend/internal/domain"
	"awsugmdu-backend/internal/service/store"
	"awsugmdu-backend/pkg/api"

	"github.com/go-chi/chi/v5"
)

// StoreHandler handles /store requests.
type StoreHandler struct {
	base
	store store.Service
}

func NewStoreHandler(s store.Service, b base) *StoreHandler {
	return &StoreHandler{base: b, store: s}
}

// Routes mounts the item and order endpoints.
func (h *StoreHandler) Routes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.ListItems)
		r.Post("/", h.CreateItem)
		r.Get("/{itemID}", h.GetItem)
		r.Put("/{itemID}", h.UpdateItem)
		r.Delete("/{itemID}", h.DeleteItem)
		r.Post("/{itemID}/redeem", h.Redeem)
		r.Post("/{itemID}/image-upload-url", h.ImageUploadURL)
	})
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Post("/", h.CreateOrder)
		r.Get("/{orderID}", h.GetOrder)
		r.Patch("/{orderID}/status", h.UpdateOrderStatus)
		r.Patch("/{orderID}/assign-code", h.AssignCode)
	})
}

func (h *StoreHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListItems(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, items)
}

func (h *StoreHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var in store.CreateItemInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	item, err := h.store.CreateItem(r.Context(), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, item)
}

func (h *StoreHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.store.GetItem(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, item)
}

func (h *StoreHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var in store.UpdateItemInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	item, err := h.store.UpdateItem(r.Context(), chi.URLParam(r, "itemID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, item)
}

func (h *StoreHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteItem(r.Context(), chi.URLParam(r, "itemID")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Message(w, http.StatusOK, "Store item deleted successfully")
}

func (h *StoreHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var in store.RedeemInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	userID, err := resolveUserID(r, in.UserID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	in.UserID = userID

	order, err := h.store.Redeem(r.Context(), chi.URLParam(r, "itemID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, order)
}

func (h *StoreHandler) ImageUploadURL(w http.ResponseWriter, r *http.Request) {
	var in store.ImageUploadInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	upload, err := h.store.ImageUploadURL(r.Context(), chi.URLParam(r, "itemID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, upload)
}

func (h *StoreHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	orders, err := h.store.ListOrders(r.Context(), store.OrderFilter{
		UserID: query.Get("userId"),
		Status: domain.OrderStatus(query.Get("status")),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, orders)
}

func (h *StoreHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var in store.CreateOrderInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	order, err := h.store.CreateOrder(r.Context(), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, order)
}

func (h *StoreHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.store.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, order)
}

func (h *StoreHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var in store.UpdateStatusInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	order, err := h.store.UpdateOrderStatus(r.Context(), chi.URLParam(r, "orderID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, order)
}

func (h *StoreHandler) AssignCode(w http.ResponseWriter, r *http.Request) {
	var in store.AssignCodeInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	order, err := h.store.AssignCode(r.Context(), chi.URLParam(r, "orderID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, order)
}
