// Command soxyproxy runs a single SOCKS4/SOCKS4a/SOCKS5 listener described
// by a TOML configuration file. The CLI shape (a single root command
// taking a positional config path) mirrors the teacher's cmd/cli rootCmd
// construction with spf13/cobra; the run/shutdown shape mirrors
// cmd/vpn-node's signal.Notify + service Start/Stop lifecycle.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shpaker/soxyproxy/pkg/adminapi"
	"github.com/shpaker/soxyproxy/pkg/auth"
	"github.com/shpaker/soxyproxy/pkg/config"
	"github.com/shpaker/soxyproxy/pkg/engine"
	"github.com/shpaker/soxyproxy/pkg/logger"
	"github.com/shpaker/soxyproxy/pkg/metrics"
	"github.com/shpaker/soxyproxy/pkg/proxy"
	"github.com/shpaker/soxyproxy/pkg/resolver"
	"github.com/shpaker/soxyproxy/pkg/transport"
)

var logFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "soxyproxy [config]",
		Short: "A SOCKS4/SOCKS4a/SOCKS5 proxy server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
	}
	rootCmd.Flags().StringVar(&logFile, "logfile", "", "write logs to this file instead of stdout")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Service: "soxyproxy",
		Version: "dev",
	}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening logfile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logCfg.Output = f
	}
	log := logger.New(logCfg)
	logger.SetGlobal(log)

	protocol, err := cfg.Protocol()
	if err != nil {
		log.LogError("resolving protocol", err)
		os.Exit(1)
	}

	rs, err := cfg.Ruleset()
	if err != nil {
		log.LogError("building ruleset", err)
		os.Exit(1)
	}

	socks4Auth, socks5Auth := auth.FromCredentials(cfg.Credentials())

	var res engine.Resolver
	if protocol.RequiresResolver() {
		res = resolver.New(nil).Resolve
	}

	eng := engine.New(protocol, authenticatorFor(protocol, socks4Auth, socks5Auth), res)

	var recorder metrics.Recorder = metrics.NoOp
	if cfg.Admin.Enabled {
		recorder = metrics.NewPrometheus()
	}

	srv := &proxy.Server{
		ListenAddr: cfg.ListenAddress(),
		Protocol:   cfg.Transport.Protocol,
		Engine:     eng,
		Ruleset:    rs,
		Dialer:     transport.NewDialer(),
		Recorder:   recorder,
		Logger:     log,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	var admin *adminapi.Server
	if cfg.Admin.Enabled {
		admin = adminapi.New(rs, log)
		go func() {
			if err := admin.ListenAndServe(cfg.Admin.Address); err != nil {
				log.LogError("admin surface stopped", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			log.LogError("listener stopped", err)
			os.Exit(1)
		}
	}

	if admin != nil {
		_ = admin.Shutdown()
	}
	return nil
}

// authenticatorFor returns the Authenticator matching protocol; SOCKS4
// variants only ever check a username (there is no password field in the
// wire format), SOCKS5 checks both.
func authenticatorFor(protocol engine.Protocol, socks4, socks5 engine.Authenticator) engine.Authenticator {
	if protocol == engine.ProtocolSocks4 || protocol == engine.ProtocolSocks4a {
		return socks4
	}
	return socks5
}
