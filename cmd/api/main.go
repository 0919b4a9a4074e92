package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eaarma/tour-site-sub000/internal/consumer"
	"github.com/eaarma/tour-site-sub000/internal/events"
	"github.com/eaarma/tour-site-sub000/internal/handlers"
	"github.com/eaarma/tour-site-sub000/internal/middlewares"
	"github.com/eaarma/tour-site-sub000/internal/notifier"
	"github.com/eaarma/tour-site-sub000/internal/repository"
	"github.com/eaarma/tour-site-sub000/internal/service"
	"github.com/eaarma/tour-site-sub000/internal/stripepay"
	"github.com/eaarma/tour-site-sub000/internal/worker"
	"github.com/eaarma/tour-site-sub000/pkg/auth"
	"github.com/eaarma/tour-site-sub000/pkg/config"
	"github.com/eaarma/tour-site-sub000/pkg/db"
	"github.com/eaarma/tour-site-sub000/pkg/mq"
	"github.com/eaarma/tour-site-sub000/pkg/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.EnableTracing {
		shutdown := obs.InitTracer("tour-booking")
		defer func() { _ = shutdown(context.Background()) }()
	}

	gdb := db.Open(cfg.PGTourDSN)
	if err := repository.AutoMigrate(gdb); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	schedules := repository.NewScheduleRepo(gdb)
	tours := repository.NewTourRepo(gdb)
	members := repository.NewShopMemberRepo(gdb)
	orders := repository.NewOrderRepo(gdb, schedules)
	payments := repository.NewPaymentRepo(gdb)
	payouts := repository.NewPayoutRepo(gdb)

	var pub *mq.Publisher
	if cfg.RabbitURL != "" {
		pub, err = mq.NewPublisher(cfg.RabbitURL, cfg.NotifyExchange)
		if err != nil {
			log.Fatalf("rabbitmq publisher: %v", err)
		}
		defer pub.Close()

		cons, err := mq.NewConsumer(cfg.RabbitURL, cfg.NotifyExchange, cfg.NotifyQueue,
			[]string{events.RKOrderPaid, events.RKOrderExpired})
		if err != nil {
			log.Fatalf("rabbitmq consumer: %v", err)
		}
		defer cons.Close()
		nc := consumer.NewNotificationConsumer(cons, notifier.NewConsole())
		if err := nc.Run(ctx); err != nil {
			log.Fatalf("notification consumer: %v", err)
		}
	}

	provider := stripepay.New(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	reservations := service.NewReservationSvc(orders, schedules, tours,
		cfg.ReservationTTL, cfg.PlatformRate, cfg.Currency)
	settlement := service.NewSettlementSvc(gdb, orders, payments, provider, pub)
	payoutSvc := service.NewPayoutSvc(payouts)

	rec := worker.NewReconciler(orders, schedules, pub, cfg.SweepInterval)
	go rec.Run(ctx)

	r := gin.Default()
	r.Use(middlewares.Prometheus())
	r.GET("/health", handlers.Health(gdb))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rh := handlers.NewReservationHandler(reservations)
	oh := handlers.NewOrderHandler(reservations, settlement)
	mh := handlers.NewManagerHandler(reservations)
	sh := handlers.NewScheduleHandler(schedules, tours)
	ph := handlers.NewPayoutHandler(payoutSvc)
	wh := handlers.NewWebhookHandler(provider, settlement)

	shopFromTour := func(c *gin.Context) (string, error) {
		t, err := tours.TourByID(c.Request.Context(), c.Param("tourId"))
		if err != nil {
			return "", err
		}
		return t.ShopID, nil
	}
	shopFromParam := func(c *gin.Context) (string, error) {
		return c.Param("shopId"), nil
	}
	shopFromItem := func(c *gin.Context) (string, error) {
		o, err := orders.ByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			return "", err
		}
		for _, it := range o.Items {
			if it.ID == c.Param("itemId") {
				return it.ShopID, nil
			}
		}
		return "", errors.New("item not in order")
	}

	v1 := r.Group("/v1")
	{
		v1.POST("/reservations", middlewares.OptionalAuth(), rh.Create)
		v1.POST("/webhooks/stripe", wh.Handle)

		v1.GET("/tours/:tourId/schedules", sh.List)
		v1.POST("/tours/:tourId/schedules",
			middlewares.JWTAuth(),
			middlewares.RequireRole(auth.RoleManager, auth.RoleAdmin),
			middlewares.RequireShopAccess(members, shopFromTour),
			sh.Create,
		)

		ord := v1.Group("/orders")
		ord.Use(middlewares.OptionalAuth())
		{
			ord.GET("/:id", oh.Get)
			ord.POST("/:id/cancel", oh.Cancel)
			ord.POST("/:id/intent", oh.CreateIntent)
		}
		v1.GET("/orders", middlewares.JWTAuth(), rh.ListMine)

		staff := v1.Group("/orders")
		staff.Use(middlewares.JWTAuth(), middlewares.RequireRole(auth.RoleManager, auth.RoleAdmin))
		{
			staff.POST("/:id/refund", mh.Refund)
			staff.POST("/:id/items/:itemId/cancel",
				middlewares.RequireShopAccess(members, shopFromItem), mh.CancelItem)
			staff.POST("/:id/items/:itemId/assign",
				middlewares.RequireShopAccess(members, shopFromItem), mh.AssignItem)
		}

		v1.POST("/shops/:shopId/payouts",
			middlewares.JWTAuth(),
			middlewares.RequireRole(auth.RoleManager, auth.RoleAdmin),
			middlewares.RequireShopAccess(members, shopFromParam),
			ph.Settle,
		)
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Println("tour-booking api on", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutCtx)
}
