package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-geochat/internal/config"
	"github.com/joeblew999/plat-geochat/internal/db"
	"github.com/joeblew999/plat-geochat/internal/demo"
	"github.com/joeblew999/plat-geochat/internal/server"
)

// Options defines all CLI flags and env vars for the geochat server.
// Flags: --host, --port, --data-dir, --web-dir, --backend-url, --realtime-url
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_WEB_DIR, ...
type Options struct {
	Host        string `doc:"Host to bind to" default:"0.0.0.0"`
	Port        int    `doc:"Port to listen on" short:"p" default:"8087"`
	DataDir     string `doc:"Directory for session data files" default:".data"`
	WebDir      string `doc:"Path to web/ directory" default:"web"`
	BackendURL  string `doc:"Remote analysis backend URL (empty runs the embedded demo agent)"`
	RealtimeURL string `doc:"Websocket URL for server-pushed session updates"`
}

func newLogger() *zap.Logger {
	cfg := config.Load()
	var logger *zap.Logger
	var err error
	if cfg.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	return logger
}

func newServer(opts *Options, logger *zap.Logger) *server.Server {
	cfg := server.ConfigFromEnv(server.Config{
		Host:        opts.Host,
		Port:        fmt.Sprintf("%d", opts.Port),
		DataDir:     opts.DataDir,
		WebDir:      opts.WebDir,
		BackendURL:  opts.BackendURL,
		RealtimeURL: opts.RealtimeURL,
	})
	srv, err := server.New(cfg, logger)
	if err != nil {
		log.Fatalf("server init: %v", err)
	}
	return srv
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		logger := newLogger()
		srv := newServer(opts, logger)

		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-geochat server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			if opts.BackendURL != "" {
				fmt.Printf("  Backend: %s\n", opts.BackendURL)
			} else {
				fmt.Printf("  Backend: embedded demo agent\n")
			}
			fmt.Println()
			fmt.Printf("  App:     %s/\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			go srv.Run(ctx)

			if err := http.ListenAndServe(addr, srv); err != nil {
				logger.Fatal("server error", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			cancel()
			srv.Close()
			logger.Sync()
		})
	})

	cli.Root().Use = "geochat"
	cli.Root().Short = "Conversational geospatial analysis sessions"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := newServer(opts, zap.NewNop())
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// demo subcommand: run one query through the embedded agent
	demoCmd := &cobra.Command{
		Use:   "demo [query]",
		Short: "Answer one query with the embedded demo agent and print the response",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			conn, err := db.Get(db.Config{})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
				os.Exit(1)
			}
			defer db.Close()

			agent, err := demo.NewAgent(conn, zap.NewNop())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error initializing agent: %v\n", err)
				os.Exit(1)
			}
			resp, err := agent.Chat(cmd.Context(), strings.Join(args, " "), nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error answering query: %v\n", err)
				os.Exit(1)
			}
			output, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling response: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		},
	}
	cli.Root().AddCommand(demoCmd)

	cli.Run()
}
