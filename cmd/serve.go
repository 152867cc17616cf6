package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/naka-gawa/repostats/internal/handler"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the dashboard views over HTTP",
	Long: `Serves every dashboard view as JSON under /api/v1/views. The dataset is
loaded once on the first request and shared by all later ones.`,
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(cmd)
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			a.cfg.Server.Addr = addr
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		router := handler.NewRouter(handler.NewViewHandler(a.dashboard, a.logger), verbose)
		server := &http.Server{
			Addr:         a.cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  a.cfg.Server.ReadTimeout(),
			WriteTimeout: a.cfg.Server.WriteTimeout(),
		}

		// Start server in a goroutine
		errCh := make(chan error, 1)
		go func() {
			fmt.Fprintf(os.Stderr, "Serving %v on %s\n", a.cfg.Data.Paths, a.cfg.Server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		// Wait for interrupt signal to gracefully shutdown the server
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
			os.Exit(1)
		case <-quit:
		}
		a.logger.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Server forced to shutdown: %v\n", err)
			os.Exit(1)
		}
		a.logger.Println("Server exited")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default server.addr)")
}
