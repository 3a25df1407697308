package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/api"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

// Handler handles HTTP requests for the application.
type Handler struct {
	cartSvc    *service.CartService
	catalogSvc *service.CatalogService
	orderSvc   *service.OrderService
	logger     *slog.Logger
}

func NewHandler(cartSvc *service.CartService, catalogSvc *service.CatalogService, orderSvc *service.OrderService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cartSvc:    cartSvc,
		catalogSvc: catalogSvc,
		orderSvc:   orderSvc,
		logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.handleHealth)

	mux.HandleFunc("GET /api/products", h.handleGetProducts)
	mux.HandleFunc("GET /api/products/{id}", h.handleGetProduct)
	mux.HandleFunc("PUT /api/products/{id}/stock", h.handleSetStock)
	mux.HandleFunc("GET /api/stores/{id}", h.handleGetStore)

	mux.HandleFunc("GET /api/cart", h.authed(h.handleGetCart))
	mux.HandleFunc("POST /api/cart/items", h.authed(h.handleAddItem))
	mux.HandleFunc("PUT /api/cart/items/{id}", h.authed(h.handleUpdateItem))
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.authed(h.handleRemoveItem))
	mux.HandleFunc("DELETE /api/cart", h.authed(h.handleClearCart))

	mux.HandleFunc("POST /api/orders", h.authed(h.handleCreateOrder))
	mux.HandleFunc("GET /api/orders/my-orders", h.authed(h.handleMyOrders))
}

type authedFunc func(w http.ResponseWriter, r *http.Request, shopperID string)

// authed resolves the bearer token. The development backend treats the
// token as the shopper id.
func (h *Handler) authed(next authedFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, api.Error{Error: "authentication required"})
			return
		}
		next(w, r, token)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleGetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalogSvc.Products(r.Context())
	if err != nil {
		h.writeError(w, "get products", err)
		return
	}
	out := make([]api.Product, 0, len(products))
	names := h.storeNames(r)
	for _, p := range products {
		out = append(out, productToAPI(p, names(p.StoreID)))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.catalogSvc.Product(r.Context(), id)
	if err != nil {
		h.writeError(w, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, productToAPI(p, h.storeNames(r)(p.StoreID)))
}

func (h *Handler) handleSetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	qty, ok := queryQuantity(w, r)
	if !ok {
		return
	}
	if err := h.catalogSvc.SetStock(r.Context(), id, qty); err != nil {
		h.writeError(w, "set stock", err)
		return
	}
	h.handleGetProduct(w, r)
}

func (h *Handler) handleGetStore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s, err := h.catalogSvc.Store(r.Context(), id)
	if err != nil {
		h.writeError(w, "get store", err)
		return
	}
	writeJSON(w, http.StatusOK, api.Store{ID: s.ID, Name: s.Name, Address: s.Address, Phone: s.Phone, Hours: s.Hours})
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request, shopperID string) {
	agg, err := h.cartSvc.GetCart(r.Context(), shopperID)
	h.respondCart(w, r, "get cart", agg, err)
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request, shopperID string) {
	var req api.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: "invalid request body"})
		return
	}
	agg, err := h.cartSvc.AddItem(r.Context(), shopperID, req.ProductID, req.Quantity)
	h.respondCart(w, r, "add item", agg, err)
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request, shopperID string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	qty, ok := queryQuantity(w, r)
	if !ok {
		return
	}
	agg, err := h.cartSvc.UpdateItem(r.Context(), shopperID, id, qty)
	h.respondCart(w, r, "update item", agg, err)
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request, shopperID string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	agg, err := h.cartSvc.RemoveItem(r.Context(), shopperID, id)
	h.respondCart(w, r, "remove item", agg, err)
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request, shopperID string) {
	agg, err := h.cartSvc.Clear(r.Context(), shopperID)
	h.respondCart(w, r, "clear cart", agg, err)
}

func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, op string, agg *entity.CartAggregate, err error) {
	if err != nil {
		h.writeError(w, op, err)
		return
	}
	names := h.storeNames(r)
	out := api.Cart{
		ID:         agg.GetAggregateID(),
		Items:      make([]api.CartItem, 0, len(agg.Lines)),
		TotalItems: agg.TotalItems(),
		Subtotal:   agg.Subtotal(),
		Total:      agg.Subtotal(),
	}
	for _, l := range agg.Lines {
		item := api.CartItem{
			ID:          l.ID,
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Price:       l.Price,
			Quantity:    l.Quantity,
			ImageURL:    l.ImageURL,
		}
		if l.StoreID > 0 {
			storeID := l.StoreID
			item.StoreID = &storeID
			item.StoreName = names(l.StoreID)
		}
		out.Items = append(out.Items, item)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request, shopperID string) {
	var req api.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: "invalid request body"})
		return
	}

	cmd := &entity.PlaceOrder{
		ShopperID:     shopperID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		PaymentMethod: req.PaymentMethod,
		Comment:       req.Comment,
		Items:         make([]entity.PlaceOrderItem, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		cmd.Items = append(cmd.Items, entity.PlaceOrderItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}

	order, err := h.orderSvc.PlaceOrder(r.Context(), cmd)
	if err != nil {
		h.writeError(w, "place order", err)
		return
	}
	writeJSON(w, http.StatusCreated, orderToAPI(*order))
}

func (h *Handler) handleMyOrders(w http.ResponseWriter, r *http.Request, shopperID string) {
	orders, err := h.orderSvc.MyOrders(r.Context(), shopperID)
	if err != nil {
		h.writeError(w, "list orders", err)
		return
	}
	out := make([]api.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderToAPI(o))
	}
	writeJSON(w, http.StatusOK, out)
}

// storeNames memoizes store names for one request. Unknown stores get an
// empty name.
func (h *Handler) storeNames(r *http.Request) func(int64) string {
	cache := make(map[int64]string)
	return func(id int64) string {
		if name, ok := cache[id]; ok {
			return name
		}
		s, err := h.catalogSvc.Store(r.Context(), id)
		if err != nil {
			h.logger.Warn("Store lookup failed", "store_id", id, "err", err)
		}
		cache[id] = s.Name
		return s.Name
	}
}

func productToAPI(p entity.Product, storeName string) api.Product {
	return api.Product{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		ImageURL:      p.ImageURL,
		Category:      p.Category,
		StockQuantity: p.Stock,
		Active:        p.Active,
		StoreID:       p.StoreID,
		StoreName:     storeName,
	}
}

func orderToAPI(o entity.Order) api.Order {
	out := api.Order{
		ID:            o.ID,
		OrderNumber:   o.Number,
		Status:        o.Status,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		PaymentMethod: o.PaymentMethod,
		Comment:       o.Comment,
		Items:         make([]api.OrderItem, 0, len(o.Items)),
		Subtotal:      o.Subtotal,
		Total:         o.Total,
		StoreID:       o.StoreID,
		CreatedAt:     o.CreatedAt,
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, api.OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.Name,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			TotalPrice:  it.LineTotal(),
		})
	}
	return out
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: "invalid id"})
		return 0, false
	}
	return id, true
}

func queryQuantity(w http.ResponseWriter, r *http.Request) (int, bool) {
	qty, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: "invalid quantity"})
		return 0, false
	}
	return qty, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrPaymentMethod),
		errors.Is(err, service.ErrMissingCustomer):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, service.ErrProductUnavailable),
		errors.Is(err, repository.ErrConcurrency):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "err", err)
		writeJSON(w, status, api.Error{Error: "internal server error"})
		return
	}
	h.logger.Info("Request rejected", "op", op, "status", status, "err", err)
	writeJSON(w, status, api.Error{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// EnableCORS is a middleware to allow browser storefronts to connect.
func EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
