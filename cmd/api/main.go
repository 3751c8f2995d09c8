// @title           CampusRAG API
// @version         1.0
// @description     Knowledge base and assistant for ESILV: crawl and upload ingestion, semantic search and chat.
// @termsOfService  http://swagger.io/terms/

// @contact.name    CampusRAG maintainers
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/CampusRAG/internal/bootstrap"
	"github.com/akolanti/CampusRAG/internal/config"
	jobmodel "github.com/akolanti/CampusRAG/internal/domain/jobModel"
	"github.com/akolanti/CampusRAG/internal/handlers"
	"github.com/akolanti/CampusRAG/internal/job"
	"github.com/akolanti/CampusRAG/internal/server"
	"github.com/akolanti/CampusRAG/internal/worker"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

var (
	configPath        string
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&configPath, "config", "", "path to the yaml config file")
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides the config")
	flag.Parse()

	settings, err := config.Load(configPath)
	if err != nil {
		logger.Error("Could not load the configuration", "err", err)
		os.Exit(1)
	}
	logger_i.InitWith(logger_i.ParseLevel(settings.Log.Level), settings.Log.JSON)
	if listenAddr == "" {
		listenAddr = settings.Server.ListenAddr
	}

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	app, err := bootstrap.New(serviceContext, settings)
	if err != nil {
		logger.Error("One or more external services failed to initialize. Shutting down.", "err", err)
		return
	}
	defer app.Close()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	logger.Info("Starting job service")
	service := job.InitJobService(job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          app.JobStore,
	})

	handlers.InitJobHandler(service)
	handlers.InitRagHandler(app.Service)

	//init worker pool
	worker.InitServices(service, app.Service)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}
