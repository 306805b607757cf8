package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trialq/trialq/internal/config"
	"github.com/trialq/trialq/internal/server"
)

const banner = `
 _       _       _
| |_ _ _(_)__ _ | |__ _
|  _| '_| / _' || / _' |
 \__|_| |_\__,_||_\__, |
                     |_|
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		noUI bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the trialq API server",
		Long:  "Start the HTTP server that answers questions over a REST API, serves the query UI and exposes Prometheus metrics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, noUI)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 3000, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&noUI, "no-ui", false, "Disable the query UI")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

// serverConfig maps the server section of the config file onto the HTTP
// server settings.
func serverConfig(cfg *config.AppConfig) (server.Config, error) {
	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Server.Host
	srvCfg.Port = cfg.Server.Port
	srvCfg.RateLimit = cfg.Server.RateLimit
	if len(cfg.Server.CORS.Origins) > 0 {
		srvCfg.CORSOrigins = cfg.Server.CORS.Origins
	}

	if cfg.Server.MaxBodySize != "" {
		n, err := config.ParseByteSize(cfg.Server.MaxBodySize)
		if err != nil {
			return server.Config{}, fmt.Errorf("parse server.max_body_size: %w", err)
		}
		srvCfg.MaxBodySize = n
	}
	if cfg.Server.ShutdownTimeout != "" {
		d, err := time.ParseDuration(cfg.Server.ShutdownTimeout)
		if err != nil {
			return server.Config{}, fmt.Errorf("parse server.shutdown_timeout: %w", err)
		}
		srvCfg.ShutdownTimeout = d
	}
	return srvCfg, nil
}

func runServe(cmd *cobra.Command, noUI bool) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	srvCfg, err := serverConfig(cfg)
	if err != nil {
		return err
	}

	fmt.Print(banner)
	fmt.Println()

	logger := newLogger(cfg.Logging)
	a, err := buildApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.store.Close()

	srvCfg.EnableUI = !noUI
	srvCfg.ReportsDir = a.reportsDir
	srvCfg.Version = versionString()

	srv := server.New(srvCfg, a.svc, logger)

	base := fmt.Sprintf("http://%s:%d", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ trialq %s\n", versionString())
	fmt.Printf("→ Listening on %s\n", base)
	if !noUI {
		fmt.Printf("→ Query UI:   %s/\n", base)
	}
	fmt.Printf("→ OpenAPI:    %s/openapi.json\n", base)
	fmt.Printf("→ Metrics:    %s/metrics\n", base)
	fmt.Printf("→ Health:     %s/healthz\n", base)
	fmt.Printf("→ Sources:    %v (default: %s)\n", a.svc.Sources(), a.svc.DefaultSource())
	fmt.Printf("→ Model:      %s %s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Println()

	// ListenAndServe closes the sources on shutdown.
	return srv.ListenAndServe(cmd.Context())
}
