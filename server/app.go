package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tdash/config"
	"tdash/internal/auth"
	"tdash/internal/dashboard"
	"tdash/internal/db"
	"tdash/internal/health"
	"tdash/internal/logs"
	"tdash/internal/middleware"
	"tdash/internal/models"
	"tdash/internal/odoo"
	"tdash/internal/repo"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type App struct {
	cfg        *config.Config
	db         *gorm.DB
	Router     *mux.Router
	handler    http.Handler
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) {
	a.cfg = cfg

	/* 1) Логи */
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	/* 2) DB — обязательна: без user store auth не работает */
	d, err := db.Open(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	a.db = d

	if err := a.db.AutoMigrate(
		&models.User{},
		&models.DashboardSnapshot{},
	); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	/* 3) Auth: store + сервис + bootstrap системного админа */
	users := repo.NewUserStore(a.db)
	snaps := repo.NewSnapshotStore(a.db)

	authSvc := auth.NewService(users, a.cfg.Auth.JWTSecret,
		time.Duration(a.cfg.Auth.TokenTTLMinutes)*time.Minute)

	if err := auth.EnsureSystemAdmin(context.Background(), users,
		a.cfg.Auth.AdminUsername, a.cfg.Auth.AdminPassword); err != nil {
		log.Fatalf("system admin bootstrap failed: %v", err)
	}

	/* 4) Odoo-клиенты (каждый опционален) */
	var (
		dash     *odoo.Dashboard
		inter    *odoo.Intermodal
		erpProbe health.ERPProbe
	)
	if a.cfg.Odoo.Enabled() {
		client, err := odoo.NewClient(a.cfg.Odoo)
		if err != nil {
			log.Fatalf("odoo client: %v", err)
		}
		dash = odoo.NewDashboard(client)
		erpProbe = client.TestConnection
	} else {
		logs.Logger.Warn("odoo block not configured, terminal dashboard disabled")
	}
	if a.cfg.Odoo2.Enabled() {
		client, err := odoo.NewClient(a.cfg.Odoo2)
		if err != nil {
			log.Fatalf("odoo2 client: %v", err)
		}
		inter = odoo.NewIntermodal(client)
	} else {
		logs.Logger.Warn("odoo2 block not configured, intermodal dashboard disabled")
	}

	/* 5) Router + middleware */
	a.Router = mux.NewRouter().StrictSlash(true)
	a.Router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.LoggerMW,
	)

	/* 6) Health */
	health.RegisterRoutesWithDB(a.Router, a.db, erpProbe) // /healthz, /readyz, /api/health

	/* 7) Auth + дашборды */
	auth.RegisterRoutes(a.Router, authSvc, users)
	dashboard.RegisterRoutes(a.Router, dashboard.NewHandler(dash, inter, snaps), authSvc)

	/* 8) CORS: фронтенд живёт на другом origin */
	a.handler = a.corsHandler()(a.Router)

	/* (необязательно) вывести известные маршруты в лог при старте */
	_ = a.Router.Walk(func(rt *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, _ := rt.GetPathTemplate()
		methods, _ := rt.GetMethods()
		if len(methods) == 0 {
			methods = []string{"ANY"}
		}
		log.Printf("route: %-6v %s", methods, path)
		return nil
	})
}

// corsHandler: в network_mode — wildcard без credentials (вместе они
// невозможны), иначе — явный список origin-ов фронтенда.
func (a *App) corsHandler() func(http.Handler) http.Handler {
	methods := handlers.AllowedMethods([]string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
	})
	headers := handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Request-Id"})

	if a.cfg.CORS.NetworkMode {
		return handlers.CORS(handlers.AllowedOrigins([]string{"*"}), methods, headers)
	}
	return handlers.CORS(
		handlers.AllowedOrigins(a.cfg.CORS.AllowedOrigins),
		methods, headers,
		handlers.AllowCredentials(),
	)
}

func (a *App) Run() error {
	if a.handler == nil || a.cfg == nil {
		return fmt.Errorf("server not initialized")
	}

	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigs
		logs.Logger.Infof("shutdown signal: %s", s)
		a.cancel()
	}()

	// Жёсткие таймауты — это важно для production
	a.httpServer = &http.Server{
		Addr:              bind,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logs.Logger.Infof("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Logger.Fatalf("http server error: %v", err)
		}
	}()

	<-a.ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logs.Logger.Errorf("http shutdown: %v", err)
	}
	return nil
}
