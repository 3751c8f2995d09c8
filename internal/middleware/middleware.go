package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/CampusRAG/internal/handlers"
	"github.com/akolanti/CampusRAG/internal/metrics"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
	id           string
}

var GetHandler = Wrap(handlers.GetHandler)
var GetStatusHandler = Wrap(handlers.GetStatusHandler)

var SearchHandler = Wrap(handlers.SearchHandler)
var StatsHandler = Wrap(handlers.StatsHandler)
var ListSourcesHandler = Wrap(handlers.ListSourcesHandler)
var GetSourceHandler = Wrap(handlers.GetSourceHandler)
var DeleteSourceHandler = Wrap(handlers.DeleteSourceHandler)

var ChatHandler = Wrap(handlers.ChatHandler)
var ChatStreamHandler = Wrap(handlers.ChatStreamHandler)
var ModelsHandler = Wrap(handlers.ModelsHandler)

var PostIngestUploadHandler = Wrap(handlers.PostIngestUploadHandler)
var PostIngestTextHandler = Wrap(handlers.PostIngestTextHandler)
var PostIngestCrawlHandler = Wrap(handlers.PostIngestCrawlHandler)

var RepairHandler = Wrap(handlers.RepairHandler)
var ContactsHandler = Wrap(handlers.ContactsHandler)

func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec})

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc()
			return
		}
		next(rec, re.req)

		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		return re
	}
	re.logger.Info("New request received", "method", re.req.Method, "path", re.req.URL.Path)
	return rateLimiter(re)
}
