package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/W-Z-FinTech-GmbH/sms-plusserver/internal/simulator"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a local SMS platform simulator",
	Long: `Run an HTTP simulator of the platform's put.php and sms-state.php
endpoints, for trying the CLI and client code without a real account.
Accepted messages move through new, processed and arrived on a timer.

In one terminal:
  plussms simulate --username sim --password secret

In another:
  plussms send +4917512345678 "hello" --wait \
    --put-url http://127.0.0.1:9025/put.php \
    --state-url http://127.0.0.1:9025/sms-state.php \
    --username sim --password secret`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().String("addr", "127.0.0.1:9025", "Listen address")
	simulateCmd.Flags().String("username", "", "Require this Basic Auth username")
	simulateCmd.Flags().String("password", "", "Require this Basic Auth password")
	simulateCmd.Flags().Duration("process-after", 2*time.Second, "Move messages to \"processed\" after this long")
	simulateCmd.Flags().Duration("arrive-after", 5*time.Second, "Move messages to \"arrived\" after this long")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	processAfter, _ := cmd.Flags().GetDuration("process-after")
	arriveAfter, _ := cmd.Flags().GetDuration("arrive-after")

	level := "info"
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	logger := newLogger(level, "text")

	sim := simulator.New(simulator.Options{
		Username:     username,
		Password:     password,
		ProcessAfter: processAfter,
		ArriveAfter:  arriveAfter,
		Logger:       logger,
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: sim.Routes()}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	fmt.Printf("Simulator listening on %s\n", ln.Addr())
	fmt.Printf("  submit endpoint: http://%s/put.php\n", ln.Addr())
	fmt.Printf("  state endpoint:  http://%s/sms-state.php\n", ln.Addr())
	if username == "" && password == "" {
		fmt.Println("  auth:            disabled")
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("simulator: %w", err)
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
		signal.Stop(sigCh) // Second Ctrl-C triggers Go default (immediate exit).
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	fmt.Printf("Simulator stopped (%d messages accepted).\n", sim.Accepted())
	return nil
}
