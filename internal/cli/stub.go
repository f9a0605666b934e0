package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JuanRG-20221039/paulofraire-media/internal/logger"
	"github.com/JuanRG-20221039/paulofraire-media/internal/stubserver"
)

var stubPort int

func newStubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Run the in-memory CMS stub server",
		Long: `Run a local stand-in for the CMS backend's multipart endpoints,
useful for developing against the upload pipeline without a real backend.`,
		RunE: runStub,
	}

	cmd.Flags().IntVar(&stubPort, "port", 0, "Listen port (overrides STUB_PORT)")

	return cmd
}

func runStub(cmd *cobra.Command, args []string) error {
	port := cfg.Stub.Port
	if stubPort != 0 {
		port = stubPort
	}

	server := stubserver.New(logger.Logger, stubserver.Options{
		Token:           cfg.Stub.Token,
		AllowedOrigins:  cfg.Stub.AllowedOrigins,
		MaxRequestBytes: cfg.Stub.MaxRequestBytes,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      server.Router(),
		ReadTimeout:  5 * time.Minute, // video-weight uploads
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Logger.Info("stub server starting", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("stub server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("shutting down stub server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("stub server forced to shutdown", zap.Error(err))
		return err
	}

	return nil
}
