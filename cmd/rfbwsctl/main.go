// Command rfbwsctl is a small cobra-based CLI around package rfbws: one
// subcommand per verb, config resolved from flags or a YAML profile, and a
// signal-driven shutdown loop.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rfbws"
	"rfbws/internal/config"
	"rfbws/internal/probe"
	"rfbws/internal/telemetry"
)

// version is overwritten at build time with -ldflags "-X main.version=...".
var version = "dev"

var configDir string

var rootCmd = &cobra.Command{
	Use:   "rfbwsctl",
	Short: "RFB-over-WebSocket client",
	Long: `rfbwsctl drives an RFB (VNC) session carried over a WebSocket
transport: it runs the handshake, authenticates if the server asks for it,
and relays lifecycle events to the terminal until interrupted.`,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", defaultConfigDir(), "directory holding config.yaml")
	rootCmd.AddCommand(connectCmd(), probeCmd(), versionCmd())
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/rfbwsctl"
	}
	return "."
}

func connectCmd() *cobra.Command {
	var (
		endpoint             string
		sessionName          string
		passwordEnv          string
		viewOnly             bool
		scale                float64
		debug                bool
		timeout              time.Duration
		maxReconnectAttempts int
		metricsAddr          string
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to an RFB server and log events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resolveOptions(resolveInput{
				endpoint:             endpoint,
				sessionName:          sessionName,
				passwordEnv:          passwordEnv,
				viewOnly:             viewOnly,
				scale:                scale,
				debug:                debug,
				timeout:              timeout,
				maxReconnectAttempts: maxReconnectAttempts,
			})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if metricsAddr != "" {
				telemetry.Enable()
				go func() {
					if err := telemetry.StartServer(ctx, metricsAddr); err != nil {
						log.Printf("[rfbwsctl] metrics server stopped: %v", err)
					}
				}()
				log.Printf("[rfbwsctl] metrics listening on %s", metricsAddr)
			}

			sess := rfbws.NewSession(opts)
			id, events := sess.Subscribe()
			defer sess.Unsubscribe(id)

			sigc := make(chan os.Signal, 1)
			signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigc
				log.Printf("[rfbwsctl] shutting down...")
				_ = sess.Disconnect()
				cancel()
			}()

			if err := sess.Connect(ctx); err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			st := sess.State()
			log.Printf("[rfbwsctl] connected to %q (%dx%d)", st.ServerName, st.Width, st.Height)

			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return nil
					}
					logEvent(ev)
				case <-ctx.Done():
					return nil
				}
			}
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "ws:// or wss:// RFB endpoint URL")
	cmd.Flags().StringVar(&sessionName, "session", "", "named session from config.yaml (alternative to --endpoint)")
	cmd.Flags().StringVar(&passwordEnv, "password-env", "", "environment variable holding the VNC password")
	cmd.Flags().BoolVar(&viewOnly, "view-only", false, "never send input to the server")
	cmd.Flags().BoolVar(&debug, "debug", false, "trace protocol phases and dropped events")
	cmd.Flags().Float64Var(&scale, "scale", 1.0, "pointer coordinate scale divisor")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "connect timeout")
	cmd.Flags().IntVar(&maxReconnectAttempts, "max-reconnect-attempts", 3, "reconnect attempts after an abnormal close")
	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "Prometheus metrics listen address, e.g. :9101")
	return cmd
}

func probeCmd() *cobra.Command {
	var endpoint string
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check reachability of a WebSocket endpoint without running the RFB handshake",
		RunE: func(cmd *cobra.Command, args []string) error {
			if endpoint == "" {
				return fmt.Errorf("probe: --endpoint is required")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			d, err := probe.Endpoint(ctx, endpoint)
			if err != nil {
				return fmt.Errorf("probe: %w", err)
			}
			fmt.Printf("%s reachable in %s\n", endpoint, d)
			return nil
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "ws:// or wss:// endpoint URL")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}

type resolveInput struct {
	endpoint             string
	sessionName          string
	passwordEnv          string
	viewOnly             bool
	scale                float64
	debug                bool
	timeout              time.Duration
	maxReconnectAttempts int
}

// resolveOptions builds rfbws.Options either from explicit flags or from a
// named session in config.yaml (looked up by name or 1-based index).
func resolveOptions(in resolveInput) (rfbws.Options, error) {
	if in.sessionName != "" {
		cfg, err := config.LoadGlobalConfig(configDir)
		if err != nil {
			return rfbws.Options{}, fmt.Errorf("connect: %w", err)
		}
		sc, err := config.FindSession(cfg, in.sessionName)
		if err != nil {
			return rfbws.Options{}, fmt.Errorf("connect: %w", err)
		}
		if err := sc.Validate(); err != nil {
			return rfbws.Options{}, fmt.Errorf("connect: %w", err)
		}
		return rfbws.FromConfig(sc), nil
	}

	if in.endpoint == "" {
		return rfbws.Options{}, fmt.Errorf("connect: either --endpoint or --session is required")
	}
	opts := rfbws.Options{
		Endpoint:             in.endpoint,
		ViewOnly:             in.viewOnly,
		Scale:                in.scale,
		Debug:                in.debug,
		ConnectTimeout:       in.timeout,
		MaxReconnectAttempts: in.maxReconnectAttempts,
	}
	if in.passwordEnv != "" {
		opts.Password = os.Getenv(in.passwordEnv)
	}
	return opts, nil
}

func logEvent(ev rfbws.Event) {
	switch ev.Kind {
	case rfbws.KindConnecting:
		log.Printf("[rfbwsctl] connecting...")
	case rfbws.KindConnected:
		log.Printf("[rfbwsctl] connected")
	case rfbws.KindDisconnected:
		log.Printf("[rfbwsctl] disconnected")
	case rfbws.KindError:
		log.Printf("[rfbwsctl] error: %s", ev.Message)
	case rfbws.KindFramebufferUpdate:
		log.Printf("[rfbwsctl] framebuffer update: %d bytes", len(ev.Payload))
	case rfbws.KindServerCutText:
		log.Printf("[rfbwsctl] server clipboard: %d bytes", len(ev.Payload))
	case rfbws.KindBell:
		log.Printf("[rfbwsctl] bell")
	case rfbws.KindResize:
		log.Printf("[rfbwsctl] resize: %dx%d", ev.Width, ev.Height)
	}
}
