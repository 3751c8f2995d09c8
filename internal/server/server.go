package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/CampusRAG/internal/adapter/utils"
	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/middleware"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

// RegisterRoutes mounts every endpoint on r.
func RegisterRoutes(r chi.Router) {
	r.Get("/health", middleware.GetHandler)

	r.Post("/search", middleware.SearchHandler)
	r.Get("/stats", middleware.StatsHandler)
	r.Get("/sources", middleware.ListSourcesHandler)
	r.Delete("/sources", middleware.DeleteSourceHandler)
	r.Get("/sources/chunks", middleware.GetSourceHandler)

	r.Post("/chat", middleware.ChatHandler)
	r.Post("/chat/stream", middleware.ChatStreamHandler)
	r.Get("/chat/models", middleware.ModelsHandler)

	r.Post("/ingest/upload", middleware.PostIngestUploadHandler)
	r.Post("/ingest/text", middleware.PostIngestTextHandler)
	r.Post("/ingest/crawl", middleware.PostIngestCrawlHandler)
	r.Get("/status/{id}", middleware.GetStatusHandler)

	r.Post("/admin/repair", middleware.RepairHandler)
	r.Get("/admin/contacts", middleware.ContactsHandler)
}

func CreateServer(listenAddr string) {
	r := utils.GetRouter()
	RegisterRoutes(r.Router)

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		if err := server.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully", "err", err)
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully shut down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
