package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"car-service/pkg/api"
	"car-service/pkg/config"
	"car-service/pkg/db"
	"car-service/pkg/events"
	"car-service/pkg/store"
	"car-service/pkg/tracker"
	"car-service/pkg/uploads"
	"car-service/pkg/version"
)

func main() {
	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.Printf("%s starting store=%s", version.String(), cfg.Store)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	base, closer, err := store.Open(cfg.Store, cfg.SQLitePath, cfg.ConsulAddr)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer closer.Close()

	bus := events.NewBus()
	st := store.WithEvents(base, bus)
	if s := cfg.Settings(); s.StampMode != "" || s.DefaultTechnician != "" {
		cur, err := st.GetSettings()
		if err != nil {
			log.Fatalf("load settings: %v", err)
		}
		if s.StampMode != "" {
			cur.StampMode = s.StampMode
		}
		if s.DefaultTechnician != "" {
			cur.DefaultTechnician = s.DefaultTechnician
		}
		if err := st.UpdateSettings(cur); err != nil {
			log.Fatalf("save settings: %v", err)
		}
	}

	// other controllers writing to consul show up as anonymous storage events
	if kvs, ok := base.(*store.KVStore); ok {
		if w, ok := kvs.Backend().(interface {
			StartWatch(context.Context, func())
		}); ok {
			go w.StartWatch(ctx, func() {
				bus.Publish(events.Event{Kind: events.KindStorage})
				log.Printf("consul watch triggered")
			})
		}
	}

	svc := tracker.New(st, tracker.WithPublisher(bus))
	authz := api.Authorizer{Token: cfg.Token}

	mux := http.NewServeMux()
	if db.Configured() {
		gdb, err := db.Init()
		if err != nil {
			log.Fatalf("mysql init: %v", err)
		}
		authz.JWT = true
		(&api.AuthHandler{DB: gdb}).RegisterRoutes(mux)
		log.Printf("user accounts enabled (mysql)")
	}

	images := api.NewImageCache(svc, cfg.ImageCacheTTL)
	images.Invalidate(ctx, bus)
	api.RegisterRoutes(mux, svc, authz, images)
	hub := api.NewWSHub(bus, authz)
	hub.RegisterRoutes(mux)

	if cfg.UploadDir != "" {
		prefix := cfg.UploadURLPrefix
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.UploadDir))))
		w := uploads.NewWatcher(cfg.UploadDir, prefix, svc)
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Printf("upload watcher stopped: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		hub.Close()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("server listening on %s", cfg.Addr)
	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		err = srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
	<-stopped
	log.Printf("server stopped")
}
