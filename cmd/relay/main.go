package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/flashbots/go-utils/cli"
	"github.com/lanternfi/relay-node/batchq"
	"github.com/lanternfi/relay-node/httpserver"
	"github.com/lanternfi/relay-node/relay"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

var (
	version = "dev" // is set during build process

	// The batch queue is configured using its own env variables, see `batchq` package.

	// Default values
	defaultDebug         = os.Getenv("DEBUG") == "1"
	defaultLogProd       = os.Getenv("LOG_PROD") == "1"
	defaultLogService    = os.Getenv("LOG_SERVICE")
	defaultPort          = cli.GetEnv("PORT", "8080")
	defaultMetricsPort   = cli.GetEnv("METRICS_PORT", "8088")
	defaultEndpoint      = cli.GetEnv("RELAY_ENDPOINT", "")
	defaultRedisEndpoint = cli.GetEnv("RELAY_REDIS_ENDPOINT", "")
	defaultMirrorConfig  = cli.GetEnv("RELAY_MIRROR_CONFIG", "")
	defaultOutcomeTTL    = cli.GetEnv("RELAY_OUTCOME_TTL_MIN", "10")
	defaultSendRateLimit = cli.GetEnv("RELAY_SEND_RATE_LIMIT", "0")

	// Flags
	debugPtr         = flag.Bool("debug", defaultDebug, "print debug output")
	logProdPtr       = flag.Bool("log-prod", defaultLogProd, "log in production mode (json)")
	logServicePtr    = flag.String("log-service", defaultLogService, "'service' tag to logs")
	portPtr          = flag.String("port", defaultPort, "port to listen on")
	endpointPtr      = flag.String("endpoint", defaultEndpoint, "remote execution endpoint url")
	redisPtr         = flag.String("redis", defaultRedisEndpoint, "redis url for the shared outcome store (empty for in-memory)")
	mirrorConfigPtr  = flag.String("mirror-config", defaultMirrorConfig, "mirror endpoints config file")
	outcomeTTLPtr    = flag.String("outcome-ttl-min", defaultOutcomeTTL, "terminal outcome retention in minutes (0 to keep forever)")
	sendRateLimitPtr = flag.String("send-rate-limit", defaultSendRateLimit, "max sends per second to the remote endpoint (0 for unlimited)")
)

func main() {
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	if *logProdPtr {
		atom := zap.NewAtomicLevel()
		if *debugPtr {
			atom.SetLevel(zap.DebugLevel)
		}

		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		logger = zap.New(zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.Lock(os.Stdout),
			atom,
		))
	}
	defer func() { _ = logger.Sync() }()
	if *logServicePtr != "" {
		logger = logger.With(zap.String("service", *logServicePtr))
	}

	logger.Info("Starting relay-node", zap.String("version", version))

	queueConfig, err := batchq.ConfigFromEnv()
	if err != nil {
		logger.Fatal("Failed to load batch queue config", zap.Error(err))
	}

	outcomeTTLMin, err := strconv.Atoi(*outcomeTTLPtr)
	if err != nil {
		logger.Fatal("Failed to parse outcome ttl", zap.Error(err))
	}
	outcomeTTL := time.Duration(outcomeTTLMin) * time.Minute

	var outcomes relay.OutcomeStore
	if *redisPtr != "" {
		redisOpts, err := redis.ParseURL(*redisPtr)
		if err != nil {
			logger.Fatal("Failed to parse redis url", zap.Error(err))
		}
		outcomes = relay.NewRedisOutcomeStore(redis.NewClient(redisOpts), "relay-outcome:", outcomeTTL)
	} else {
		outcomes = relay.NewMemoryOutcomeStore(outcomeTTL)
	}

	if *endpointPtr == "" {
		logger.Warn("No remote endpoint configured, all sends will fail")
	}
	backend := relay.NewSendBackend(*endpointPtr)

	mirrors, err := relay.LoadMirrorsConfig(*mirrorConfigPtr)
	if err != nil {
		logger.Fatal("Failed to load mirror config", zap.Error(err))
	}

	sendRateLimit, err := strconv.ParseFloat(*sendRateLimitPtr, 64)
	if err != nil {
		logger.Fatal("Failed to parse send rate limit", zap.Error(err))
	}
	var limiter *rate.Limiter
	if sendRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(sendRateLimit), 1)
	}

	submitter := relay.NewSubmitter(logger, backend, mirrors, outcomes, limiter)
	queue := batchq.New(logger, queueConfig, submitter.SubmitBatch)
	api := relay.NewAPI(logger, queue, outcomes)

	mux := http.NewServeMux()
	mux.Handle("/submit", httpserver.WithOrigin(httpserver.LogRequests(logger, api.Handler())))
	server := httpserver.New(fmt.Sprintf(":%s", *portPtr), mux)

	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	go func() {
		metricsMux.Handle("/debug/pprof/", http.HandlerFunc(pprof.Index))
		metricsMux.Handle("/debug/pprof/cmdline", http.HandlerFunc(pprof.Cmdline))
		metricsMux.Handle("/debug/pprof/profile", http.HandlerFunc(pprof.Profile))
		metricsMux.Handle("/debug/pprof/symbol", http.HandlerFunc(pprof.Symbol))
		metricsMux.Handle("/debug/pprof/trace", http.HandlerFunc(pprof.Trace))

		metricsServer := httpserver.New(fmt.Sprintf("0.0.0.0:%s", defaultMetricsPort), metricsMux)
		err := metricsServer.ListenAndServe()
		if err != nil {
			logger.Fatal("Failed to start metrics server", zap.Error(err))
		}
	}()

	connectionsClosed := make(chan struct{})
	go func() {
		notifier := make(chan os.Signal, 1)
		signal.Notify(notifier, os.Interrupt, syscall.SIGTERM)
		<-notifier
		logger.Info("Shutting down...")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("Failed to shutdown server", zap.Error(err))
		}
		close(connectionsClosed)
	}()

	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("ListenAndServe: ", zap.Error(err))
	}

	<-connectionsClosed
	// wait for the in-flight batch to finish
	queue.Close()
}
