package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jessyrel/wedding-rsvp/internal/app"
	"github.com/jessyrel/wedding-rsvp/internal/config"
	"github.com/jessyrel/wedding-rsvp/internal/handlers"
	"github.com/jessyrel/wedding-rsvp/internal/logging"
)

func setupRouter(a *app.App) *gin.Engine {
	cfg := a.Config
	return handlers.NewRouter(handlers.HandlerConfig{
		Pipeline:    a.Pipeline,
		Store:       a.Store,
		Env:         cfg.Env,
		Production:  cfg.IsProduction(),
		BasePath:    cfg.BasePath,
		FrontendURL: cfg.FrontendURL,
		AdminToken:  cfg.AdminToken,
		Logger:      logging.Component(a.Logger, "http"),
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logging.New(os.Stdout, cfg.LogLevel, cfg.IsProduction())
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start")
	}
	defer a.Close()

	r := setupRouter(a)

	// if RUN_LOCAL is true, run a local HTTP server for development.
	if cfg.RunLocal {
		if err := serve(r, cfg.Port, log); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}

// serve runs the HTTP server until SIGINT or SIGTERM, then drains in-flight
// requests.
func serve(h http.Handler, port int, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("running local server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
