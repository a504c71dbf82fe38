package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/HaDo2003/DTechAPI-sub002/api/controllers"
	webhookcontrollers "github.com/HaDo2003/DTechAPI-sub002/api/controllers/webhooks"
	"github.com/HaDo2003/DTechAPI-sub002/api/middleware"
	"github.com/HaDo2003/DTechAPI-sub002/internal/cart"
	checkoutsvc "github.com/HaDo2003/DTechAPI-sub002/internal/checkout"
	couponsvc "github.com/HaDo2003/DTechAPI-sub002/internal/coupon"
	"github.com/HaDo2003/DTechAPI-sub002/internal/orders"
	"github.com/HaDo2003/DTechAPI-sub002/internal/payment"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/config"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/db"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/logger"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	cartService cart.Service,
	couponService couponsvc.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	paymentService payment.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	// gateway endpoints authenticate with the HMAC signature, not a bearer token
	r.Route("/api/v1/webhooks/gateway", func(r chi.Router) {
		r.Post("/notify", webhookcontrollers.GatewayNotify(paymentService, logg))
		r.Get("/return", webhookcontrollers.GatewayReturn(paymentService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/items/{lineId}", controllers.CartUpdateLine(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
		})

		r.Post("/coupons/apply", controllers.CouponApply(couponService, cartService, logg))

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", controllers.CheckoutPlaceOrder(checkoutService, logg))
			r.Get("/orders/{orderId}/payment-url", controllers.CheckoutPaymentURL(paymentService, logg))
		})

		r.Get("/orders", controllers.OrderList(ordersService, logg))
		r.Get("/orders/{orderId}", controllers.OrderStatus(ordersService, logg))
	})

	return r
}
