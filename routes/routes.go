package routes

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	pushController "github.com/m-barthelemy/dating-pwa/controllers/push"
	pwaController "github.com/m-barthelemy/dating-pwa/controllers/pwa"
	"github.com/m-barthelemy/dating-pwa/models"
	"github.com/m-barthelemy/dating-pwa/services"
	"github.com/m-barthelemy/dating-pwa/services/worker"
	"github.com/markbates/pkger"
	"gorm.io/gorm"
)

func New(config *models.Config, db *gorm.DB, bus *EventBus.Bus) http.Handler {
	// Prepare embedded templates
	dir := pkger.Include("/templates")
	tplHandler := NewTemplateHandler(config)
	if err := tplHandler.CompileTemplates(dir); err != nil {
		log.Fatalf("Error compiling templates: %s", err.Error())
	}

	registry := services.NewSubscriptionRegistry(db, config)
	transport := services.NewWebPushTransport(config)
	dispatcher := services.NewPushDispatcher(registry, transport, config, bus)
	if err := dispatcher.SubscribeEvents(); err != nil {
		log.Fatalf("Error subscribing dispatcher to event bus: %s", err.Error())
	}

	logged := func(h http.HandlerFunc) http.Handler {
		return handlers.LoggingHandler(os.Stdout, h)
	}

	router := mux.NewRouter()

	pushC := pushController.New(config, registry, dispatcher)
	router.Handle("/api/push/key", logged(pushC.GetKey)).Methods(http.MethodGet)
	router.Handle("/api/push/subscribe", logged(pushC.Subscribe)).Methods(http.MethodPost)
	router.Handle("/api/push/unsubscribe", logged(pushC.Unsubscribe)).Methods(http.MethodPost)
	router.Handle("/api/push/send", logged(pushC.Send)).Methods(http.MethodPost)

	pwaC := pwaController.New(config)
	router.Handle("/manifest.webmanifest", logged(pwaC.Manifest)).Methods(http.MethodGet)
	router.Handle("/api/pwa/status", logged(pwaC.Status)).Methods(http.MethodGet)
	router.Handle("/api/pwa/dismiss", logged(pwaC.Dismiss)).Methods(http.MethodPost)

	router.HandleFunc("/sw.js", tplHandler.HandleServiceWorker).Methods(http.MethodGet)
	router.HandleFunc("/icon.svg", tplHandler.HandleIcon).Methods(http.MethodGet)
	router.PathPrefix("/assets/").HandlerFunc(tplHandler.HandleStaticAsset)

	// With an upstream origin configured, everything else goes through the
	// offline gateway; otherwise the embedded shell pages are served
	// directly.
	if config.OriginURL != nil {
		router.PathPrefix("/").Handler(newOfflineGateway(config))
	} else {
		router.PathPrefix("/").HandlerFunc(tplHandler.HandleEmbeddedTemplate)
	}

	return router
}

// newOfflineGateway builds and starts the worker fronting the app origin.
// An install failure is not fatal: the gateway then proxies everything
// straight through, like a page without an active worker.
func newOfflineGateway(config *models.Config) http.Handler {
	store := worker.NewCacheStore()
	fetcher := worker.NewHTTPFetcher(&http.Client{Timeout: 30 * time.Second}, config.OriginURL)
	w := worker.New(worker.Config{
		StaticCacheName:  config.StaticCacheName(),
		DynamicCacheName: config.DynamicCacheName(),
		Precache:         []string{"/", "/offline.html", "/icon.svg", "/favicon.ico"},
		Origin:           config.OriginURL,
		APIPrefix:        config.APIPrefix,
		OfflinePath:      "/offline.html",
	}, store, fetcher)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := w.Install(ctx); err != nil {
		log.Printf("Gateway: Worker install failed, proxying without cache: %s", err.Error())
	} else if err := w.Activate(ctx); err != nil {
		log.Printf("Gateway: Worker activation failed, proxying without cache: %s", err.Error())
	}
	return worker.NewGateway(w, fetcher)
}
