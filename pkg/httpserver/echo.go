package httpserver

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gopkg.in/go-playground/validator.v9"
)

const shutdownTimeout = 10 * time.Second

var agentHost = os.Getenv("JAEGER_AGENT_HOST")
var serviceName = os.Getenv("JAEGER_SERVICE_NAME")

type Routes interface {
	Register(router *echo.Echo)
}

// Register builds the echo instance with the common middleware stack,
// the metrics and health endpoints, and the given routes. Any origin may
// call the routes.
func Register(logger *zap.Logger, routes Routes) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(middleware.RemoveTrailingSlash())

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(Logger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = customValidator{
		validate: validator.New(),
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	routes.Register(e)

	return e
}

// RegisterAndStart serves routes on address until ctx is done, then shuts
// the server down gracefully.
func RegisterAndStart(ctx context.Context, logger *zap.Logger, address string, routes Routes) error {
	tp, err := initTracer()
	if err != nil {
		return err
	}
	if tp != nil {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	e := Register(logger, routes)
	e.Use(otelecho.Middleware(serviceName))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("address", address))
		errCh <- e.Start(address)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down http server")
	return e.Shutdown(shutdownCtx)
}

type customValidator struct {
	validate *validator.Validate
}

func (v customValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// initTracer installs a jaeger backed tracer provider when JAEGER_AGENT_HOST
// is set. Without it spans stay on the no-op global provider.
func initTracer() (*sdktrace.TracerProvider, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	if agentHost == "" {
		return nil, nil
	}

	exporter, err := jaeger.New(jaeger.WithAgentEndpoint(jaeger.WithAgentHost(agentHost)))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}
