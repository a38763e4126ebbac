package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/artifacts-client/internal/constants"
	"github.com/fivetwenty-io/artifacts-client/internal/fakeserver"
)

// NewServeCommand creates the local fake service command.
func NewServeCommand() *cobra.Command {
	var (
		addr            string
		mode            string
		pageSize        int
		pollsBeforeDone int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local in-memory artifacts service",
		Long:  "Run an in-memory artifacts service for trying the CLI and client without a workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := fakeserver.New(fakeserver.Options{
				Mode:            fakeserver.Mode(mode),
				PageSize:        pageSize,
				PollsBeforeDone: pollsBeforeDone,
			})

			listener, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}

			httpServer := &http.Server{
				Handler:           server,
				ReadHeaderTimeout: constants.ShortHTTPTimeout,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := NewLogger(cmd.ErrOrStderr(), true)
			logger.Info("Serving artifacts", map[string]interface{}{
				"endpoint": "http://" + listener.Addr().String(),
				"mode":     mode,
			})

			errCh := make(chan error, 1)

			go func() {
				errCh <- httpServer.Serve(listener)
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server stopped: %w", err)
				}

				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShortHTTPTimeout)
			defer cancel()

			err = httpServer.Shutdown(shutdownCtx)
			if err != nil {
				return fmt.Errorf("failed to shut down server: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&mode, "mode", string(fakeserver.ModeSync), "mutation mode (sync, async, location, accepted)")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "list page size (0 means one page)")
	cmd.Flags().IntVar(&pollsBeforeDone, "polls-before-done", 1, "in-progress polls before an operation completes")

	return cmd
}
