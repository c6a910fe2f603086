package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the extension over HTTP for out-of-process hosts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen := current.cfg.Server.Listen
		if cmd.Flags().Changed("listen") {
			listen, _ = cmd.Flags().GetString("listen")
		}

		hub := server.NewLogHub()
		srv := &http.Server{
			Addr:              listen,
			Handler:           server.NewRouter(current.host, current.params, hub),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       1 * time.Minute,
			WriteTimeout:      5 * time.Minute,
		}

		ctx, stop := signal.NotifyContext(current.ctx, os.Interrupt)
		defer stop()

		done := make(chan struct{})
		go func() {
			defer close(done)
			<-ctx.Done()
			api.Log(current.ctx, api.LogInfo, "Shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				api.Log(current.ctx, api.LogError, "Shutdown failed: %v", err)
			}
		}()

		api.Log(current.ctx, api.LogInfo, "Listening on %s", listen)
		err := srv.ListenAndServe()
		if err != nil && !eris.Is(err, http.ErrServerClosed) {
			return eris.Wrapf(err, "failed to listen on %s", listen)
		}

		// wait for in-flight requests before the state DB is closed
		<-done
		return nil
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "address to listen on (overrides server.listen)")
	rootCmd.AddCommand(serveCmd)
}
