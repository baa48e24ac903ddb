package api

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/styleshop/storefront/internal/cart"
	"github.com/styleshop/storefront/internal/checkout"
	"github.com/styleshop/storefront/internal/metrics"
	"github.com/styleshop/storefront/internal/middleware"
	"github.com/styleshop/storefront/internal/models"
	"github.com/styleshop/storefront/internal/services"
)

// App holds application dependencies
type App struct {
	metrics         *metrics.AppMetrics
	logger          *zap.Logger
	limiter         *middleware.RateLimiter
	productService  *services.ProductService
	cartService     *services.CartService
	checkoutService *services.CheckoutService
	orderService    *services.OrderService
	userService     *services.UserService
}

// NewApp creates a new application instance
func NewApp(
	m *metrics.AppMetrics,
	logger *zap.Logger,
	limiter *middleware.RateLimiter,
	ps *services.ProductService,
	cs *services.CartService,
	cos *services.CheckoutService,
	os *services.OrderService,
	us *services.UserService,
) *App {
	return &App{
		metrics:         m,
		logger:          logger,
		limiter:         limiter,
		productService:  ps,
		cartService:     cs,
		checkoutService: cos,
		orderService:    os,
		userService:     us,
	}
}

// SetupRoutes configures the HTTP routes
func (a *App) SetupRoutes(r *mux.Router) {
	// Middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.ErrorHandlerMiddleware(a.logger))
	r.Use(middleware.MetricsMiddleware(a.metrics, a.logger))
	if a.limiter != nil {
		r.Use(a.limiter.Middleware)
	}

	// API Routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.SessionMiddleware)
	api.Use(middleware.AuthMiddleware(a.userService, a.logger))

	// Products
	api.HandleFunc("/products", a.ListProductsHandler).Methods("GET")
	api.HandleFunc("/products/{id}", a.GetProductHandler).Methods("GET")
	api.HandleFunc("/categories/{category}/products", a.CategoryProductsHandler).Methods("GET")
	api.HandleFunc("/filters", a.FiltersHandler).Methods("GET")

	// Cart
	api.HandleFunc("/cart", a.GetCartHandler).Methods("GET")
	api.HandleFunc("/cart", a.ClearCartHandler).Methods("DELETE")
	api.HandleFunc("/cart/add", a.AddToCartHandler).Methods("POST")
	api.HandleFunc("/cart/update", a.UpdateCartHandler).Methods("POST")
	api.HandleFunc("/cart/remove", a.RemoveFromCartHandler).Methods("POST")

	// Favorites
	api.HandleFunc("/favorites", a.ListFavoritesHandler).Methods("GET")
	api.HandleFunc("/favorites/{id}", a.ToggleFavoriteHandler).Methods("POST")

	// Checkout
	api.HandleFunc("/checkout", a.GetCheckoutHandler).Methods("GET")
	api.HandleFunc("/checkout/options", a.CheckoutOptionsHandler).Methods("GET")
	api.HandleFunc("/checkout/shipping", a.SetShippingHandler).Methods("PUT")
	api.HandleFunc("/checkout/payment", a.SetPaymentHandler).Methods("PUT")
	api.HandleFunc("/checkout/shipping-method", a.SetShippingMethodHandler).Methods("PUT")
	api.HandleFunc("/checkout/next", a.CheckoutNextHandler).Methods("POST")
	api.HandleFunc("/checkout/back", a.CheckoutBackHandler).Methods("POST")
	api.HandleFunc("/checkout/reset", a.CheckoutResetHandler).Methods("POST")
	api.HandleFunc("/checkout/submit", a.SubmitOrderHandler).Methods("POST")

	// Orders
	api.Handle("/orders", middleware.RequireAuth(http.HandlerFunc(a.ListOrdersHandler))).Methods("GET")
	api.HandleFunc("/orders/{number}", a.GetOrderHandler).Methods("GET")
	api.Handle("/orders/{number}/status", middleware.RequireAdmin(http.HandlerFunc(a.UpdateOrderStatusHandler))).Methods("PUT")

	// Auth
	api.HandleFunc("/auth/login", a.LoginHandler).Methods("POST")
	api.HandleFunc("/auth/register", a.RegisterHandler).Methods("POST")
	api.Handle("/auth/logout", middleware.RequireAuth(http.HandlerFunc(a.LogoutHandler))).Methods("POST")
	api.Handle("/auth/me", middleware.RequireAuth(http.HandlerFunc(a.MeHandler))).Methods("GET")

	// Health
	r.HandleFunc("/health", a.HealthHandler).Methods("GET")

	// CORS preflight; CORSMiddleware answers it
	r.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
}

// HealthHandler handles health check requests
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ListProductsHandler handles GET /api/v1/products
func (a *App) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	req, err := ParseListRequest(r.URL.Query(), a.productService.Filters().Defaults.PriceRange)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a.productService.ListProducts(r.Context(), req))
}

// CategoryProductsHandler handles GET /api/v1/categories/{category}/products
func (a *App) CategoryProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	// landing pages only honour price, rating, sort and paging
	landing := url.Values{}
	for _, key := range []string{"minPrice", "maxPrice", "rating", "sort", "page", "limit"} {
		if v, ok := q[key]; ok {
			landing[key] = v
		}
	}

	req, err := ParseListRequest(landing, a.productService.Filters().Defaults.PriceRange)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	req.Category = mux.Vars(r)["category"]
	writeJSON(w, http.StatusOK, a.productService.ListProducts(r.Context(), req))
}

// GetProductHandler handles GET /api/v1/products/{id}
func (a *App) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	product, err := a.productService.GetProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// FiltersHandler handles GET /api/v1/filters
func (a *App) FiltersHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.productService.Filters())
}

// GetCartHandler handles GET /api/v1/cart
func (a *App) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := a.cartService.GetCart(r.Context(), middleware.SessionIDFromContext(r.Context()))
	a.respondCart(w, r, resp, err)
}

// AddToCartHandler handles POST /api/v1/cart/add. A missing quantity adds
// one unit.
func (a *App) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AddToCartRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.ProductID == "" {
		badRequest(w, "product_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	resp, err := a.cartService.AddToCart(r.Context(), middleware.SessionIDFromContext(r.Context()), req)
	a.respondCart(w, r, resp, err)
}

// UpdateCartHandler handles POST /api/v1/cart/update
func (a *App) UpdateCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateCartRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	resp, err := a.cartService.UpdateQuantity(r.Context(), middleware.SessionIDFromContext(r.Context()), req)
	a.respondCart(w, r, resp, err)
}

// RemoveFromCartHandler handles POST /api/v1/cart/remove
func (a *App) RemoveFromCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RemoveFromCartRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	resp, err := a.cartService.RemoveFromCart(r.Context(), middleware.SessionIDFromContext(r.Context()), req)
	a.respondCart(w, r, resp, err)
}

// ClearCartHandler handles DELETE /api/v1/cart
func (a *App) ClearCartHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := a.cartService.ClearCart(r.Context(), middleware.SessionIDFromContext(r.Context()))
	a.respondCart(w, r, resp, err)
}

func (a *App) respondCart(w http.ResponseWriter, r *http.Request, resp *models.CartResponse, err error) {
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListFavoritesHandler handles GET /api/v1/favorites
func (a *App) ListFavoritesHandler(w http.ResponseWriter, r *http.Request) {
	favs, err := a.cartService.Favorites(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, favs)
}

// ToggleFavoriteHandler handles POST /api/v1/favorites/{id}
func (a *App) ToggleFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	on, err := a.cartService.ToggleFavorite(r.Context(), middleware.SessionIDFromContext(r.Context()), id)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"product_id": id, "favorite": on})
}

// GetCheckoutHandler handles GET /api/v1/checkout
func (a *App) GetCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	view, err := a.checkoutService.GetCheckout(r.Context(), middleware.SessionIDFromContext(r.Context()))
	a.respondCheckout(w, r, view, err)
}

// CheckoutOptionsHandler handles GET /api/v1/checkout/options
func (a *App) CheckoutOptionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"shipping_options": cart.ShippingOptions,
		"payment_options":  checkout.PaymentOptions,
	})
}

// SetShippingHandler handles PUT /api/v1/checkout/shipping
func (a *App) SetShippingHandler(w http.ResponseWriter, r *http.Request) {
	var info models.ShippingInfo
	if err := decodeBody(w, r, &info); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	view, err := a.checkoutService.SetShipping(r.Context(), middleware.SessionIDFromContext(r.Context()), info)
	a.respondCheckout(w, r, view, err)
}

// SetPaymentHandler handles PUT /api/v1/checkout/payment
func (a *App) SetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var info models.PaymentInfo
	if err := decodeBody(w, r, &info); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	view, err := a.checkoutService.SetPayment(r.Context(), middleware.SessionIDFromContext(r.Context()), info)
	a.respondCheckout(w, r, view, err)
}

// SetShippingMethodHandler handles PUT /api/v1/checkout/shipping-method
func (a *App) SetShippingMethodHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string `json:"method"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	view, err := a.checkoutService.SetShippingMethod(r.Context(), middleware.SessionIDFromContext(r.Context()), req.Method)
	a.respondCheckout(w, r, view, err)
}

// CheckoutNextHandler handles POST /api/v1/checkout/next
func (a *App) CheckoutNextHandler(w http.ResponseWriter, r *http.Request) {
	view, err := a.checkoutService.Next(r.Context(), middleware.SessionIDFromContext(r.Context()))
	a.respondCheckout(w, r, view, err)
}

// CheckoutBackHandler handles POST /api/v1/checkout/back
func (a *App) CheckoutBackHandler(w http.ResponseWriter, r *http.Request) {
	view, err := a.checkoutService.Back(r.Context(), middleware.SessionIDFromContext(r.Context()))
	a.respondCheckout(w, r, view, err)
}

// CheckoutResetHandler handles POST /api/v1/checkout/reset
func (a *App) CheckoutResetHandler(w http.ResponseWriter, r *http.Request) {
	view, err := a.checkoutService.Reset(r.Context(), middleware.SessionIDFromContext(r.Context()))
	a.respondCheckout(w, r, view, err)
}

func (a *App) respondCheckout(w http.ResponseWriter, r *http.Request, view *services.CheckoutView, err error) {
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// SubmitOrderHandler handles POST /api/v1/checkout/submit. Guests may
// order; a logged in user's order is added to their history.
func (a *App) SubmitOrderHandler(w http.ResponseWriter, r *http.Request) {
	var user *models.User
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		user = claims.User()
	}

	order, err := a.checkoutService.Submit(r.Context(), middleware.SessionIDFromContext(r.Context()), user)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// ListOrdersHandler handles GET /api/v1/orders
func (a *App) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	orders, err := a.orderService.ListUserOrders(r.Context(), claims.Subject, r.URL.Query().Get("status"))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetOrderHandler handles GET /api/v1/orders/{number}?email=. The owner or
// an admin may omit the email; anyone else gets 404 without a matching one.
func (a *App) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	number := mux.Vars(r)["number"]

	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		order, err := a.orderService.GetOrder(r.Context(), number)
		if err == nil && (claims.IsAdmin || (order.UserID != "" && order.UserID == claims.Subject)) {
			writeJSON(w, http.StatusOK, order)
			return
		}
	}

	email := r.URL.Query().Get("email")
	if email == "" {
		a.respondError(w, r, services.ErrOrderNotFound)
		return
	}
	order, err := a.orderService.LookupOrder(r.Context(), number, email)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// UpdateOrderStatusHandler handles PUT /api/v1/orders/{number}/status
func (a *App) UpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	number := mux.Vars(r)["number"]
	if err := a.orderService.UpdateOrderStatus(r.Context(), number, req.Status); err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"number": number, "status": req.Status})
}

// LoginHandler handles POST /api/v1/auth/login
func (a *App) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	resp, err := a.userService.Login(r.Context(), req)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RegisterHandler handles POST /api/v1/auth/register
func (a *App) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	resp, err := a.userService.Register(r.Context(), req)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// LogoutHandler handles POST /api/v1/auth/logout
func (a *App) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.userService.Logout(r.Context(), middleware.ClaimsFromContext(r.Context())); err != nil {
		a.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MeHandler handles GET /api/v1/auth/me
func (a *App) MeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.ClaimsFromContext(r.Context()).User())
}
