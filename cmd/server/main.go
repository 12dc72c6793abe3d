package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	directorystore "orgportal/internal/directory/store"
	"orgportal/internal/notification/email"
	notifhandler "orgportal/internal/notification/handler"
	notifstore "orgportal/internal/notification/store"
	"orgportal/internal/platform/config"
	"orgportal/internal/platform/database"
	"orgportal/internal/platform/health"
	"orgportal/internal/platform/logger"
	reghandler "orgportal/internal/registration/handler"
	regmetrics "orgportal/internal/registration/metrics"
	"orgportal/internal/registration/service"
	regstore "orgportal/internal/registration/store"
	regtracer "orgportal/internal/registration/tracer"
	"orgportal/internal/seeder"
	tenanthandler "orgportal/internal/tenant/handler"
	tenantservice "orgportal/internal/tenant/service"
	tenantstore "orgportal/internal/tenant/store"
	httptransport "orgportal/internal/transport/http"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing orgportal",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	pool, err := database.New(database.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}

	var (
		users         service.UserStore
		tenants       tenantservice.TenantStore
		requests      service.RequestStore
		notifications service.NotificationStore
		notifStore    notifhandler.Store
		deptLister    tenantservice.DepartmentLister
		storeTx       service.StoreTx
	)
	if pool != nil {
		log.Info("using postgres stores")
		if cfg.Database.RunMigrations {
			if err := database.Migrate(ctx, pool.DB()); err != nil {
				return err
			}
		}
		userPG := directorystore.NewPostgres(pool.DB())
		users = userPG
		tenants = tenantstore.NewPostgres(pool.DB())
		requests = regstore.NewPostgres(pool.DB())
		ns := notifstore.NewPostgres(pool.DB())
		notifications = ns
		notifStore = ns
		deptLister = userPG
		storeTx = newWorkflowPostgresTx(pool.DB())
		defer pool.Close() //nolint:errcheck
	} else {
		log.Info("no DATABASE_URL set, using in-memory stores")
		userMem := directorystore.NewInMemory()
		users = userMem
		tenantMem := tenantstore.NewInMemory()
		tenants = tenantMem
		requestMem := regstore.NewInMemory()
		requests = requestMem
		ns := notifstore.NewInMemory()
		notifications = ns
		notifStore = ns
		deptLister = userMem
		storeTx = service.NewInMemoryStoreTx(userMem, tenantMem, requestMem, ns)
	}

	if err := seeder.New(users, cfg.Admin, log).SeedAdmin(ctx); err != nil {
		return err
	}

	var notifier service.DecisionNotifier
	if cfg.SMTP.Host != "" {
		mailer, err := email.NewMailer(email.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			TLS:      cfg.SMTP.TLS,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, log)
		if err != nil {
			return err
		}
		notifier = mailer
	} else {
		notifier = email.NewLogNotifier(log)
	}

	workflow := service.NewService(requests, users, tenants, notifications, storeTx,
		service.Policy{
			EmailDomains:      cfg.Policy.EmailDomains(),
			MinPasswordLength: cfg.Policy.MinPasswordLength,
		},
		service.WithLogger(log),
		service.WithNotifier(notifier),
		service.WithMetrics(regmetrics.New()),
		service.WithTracer(regtracer.NewOTel()),
	)
	tenantSvc := tenantservice.New(tenants, deptLister)

	healthHandler := health.New(cfg.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("database", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(checkCtx)
		})
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Registration:  reghandler.New(workflow, log),
		Tenant:        tenanthandler.New(tenantSvc, log),
		Notification:  notifhandler.New(notifStore, log),
		Health:        healthHandler,
		JWTSigningKey: cfg.Auth.JWTSigningKey,
		Logger:        log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
