// Command mapquiz starts the map quiz server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, descriptor and data directories, session retention,
// debug logging, version output, and optional ngrok tunneling. Every flag
// defaults to its environment variable, which may come from a .env file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mapquiz/api"
	"github.com/wricardo/mapquiz/game/config"
	"github.com/wricardo/mapquiz/game/region"
	"github.com/wricardo/mapquiz/game/service"
	"github.com/wricardo/mapquiz/game/session"
	"github.com/wricardo/mapquiz/transport/mcp"
	"github.com/wricardo/mapquiz/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Map Quiz Server"
)

// envConfig holds the environment defaults of the command line flags
type envConfig struct {
	Port           int           `env:"MAPQUIZ_PORT" envDefault:"8080"`
	Host           string        `env:"MAPQUIZ_HOST" envDefault:"localhost"`
	ConfigDir      string        `env:"CONFIG_DIR" envDefault:"configs"`
	DataDir        string        `env:"DATA_DIR" envDefault:"data"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	NgrokEnabled   bool          `env:"NGROK_ENABLED"`
	NgrokAuthToken string        `env:"NGROK_AUTHTOKEN"`
	NgrokAuthAlt   string        `env:"NGROK_AUTH_TOKEN"`
	NgrokDomain    string        `env:"NGROK_DOMAIN"`
}

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 8080, "HTTP server port (MAPQUIZ_PORT)")
	host         = flag.String("host", "localhost", "HTTP server host (MAPQUIZ_HOST)")
	configDir    = flag.String("config-dir", "configs", "Directory containing dataset descriptors (CONFIG_DIR)")
	dataDir      = flag.String("data-dir", "data", "Directory dataset file locators are resolved against (DATA_DIR)")
	sessionTTL   = flag.Duration("session-ttl", 24*time.Hour, "Remove sessions idle for longer than this (SESSION_TTL)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel (NGROK_ENABLED)")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (NGROK_DOMAIN)")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                          # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -data-dir ./geo          # Resolve dataset files under ./geo\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp                # Run MCP stdio server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s mcp -port 9090           # Run MCP stdio server with internal HTTP on port 9090\n", os.Args[0])
	}
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	flag.Parse()

	cfg, err := parseEnv()
	if err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}
	applyEnvDefaults(cfg)

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	args := flag.Args()
	mode := "server"
	if len(args) > 0 {
		mode = args[0]
	}

	log.Printf("Starting %s v%s (mode: %s)", AppName, Version, mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	quizService, sessions, err := initializeServices(hub)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	go sessionCleanupRoutine(ctx, sessions, *sessionTTL, time.Hour)

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(quizService, hub)

	case "server", "http":
		runHTTPServer(ctx, cancel, quizService, hub)

	default:
		log.Fatalf("Unknown mode: %s. Use 'server' (default) or 'stdio-mcp'", mode)
	}
}

// parseEnv reads the environment defaults
func parseEnv() (envConfig, error) {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.NgrokAuthToken == "" {
		cfg.NgrokAuthToken = cfg.NgrokAuthAlt
	}
	return cfg, nil
}

// applyEnvDefaults copies environment values into every flag not given on the command line
func applyEnvDefaults(cfg envConfig) {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["port"] {
		*port = cfg.Port
	}
	if !set["host"] {
		*host = cfg.Host
	}
	if !set["config-dir"] {
		*configDir = cfg.ConfigDir
	}
	if !set["data-dir"] {
		*dataDir = cfg.DataDir
	}
	if !set["session-ttl"] {
		*sessionTTL = cfg.SessionTTL
	}
	if !set["ngrok"] {
		*ngrokEnabled = cfg.NgrokEnabled
	}
	if !set["ngrok-auth"] {
		*ngrokAuth = cfg.NgrokAuthToken
	}
	if !set["ngrok-domain"] {
		*ngrokDomain = cfg.NgrokDomain
	}
}

// newMux combines the API server with the /mcp proxy endpoint
func newMux(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cancel context.CancelFunc, quizService service.QuizService, hub *websocket.Hub) {
	apiServer := api.NewServer(quizService, hub)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	mainRouter := newMux(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	if *ngrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, mainRouter)
		}()
	}

	sig := <-stop
	log.Printf("Received signal: %v. Shutting down...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
}

func runNgrokTunnel(ctx context.Context, handler http.Handler) {
	if *ngrokAuth == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if *ngrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(*ngrokDomain))
		log.Printf("Using custom ngrok domain: %s", *ngrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(*ngrokAuth))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// initializeServices wires the dataset and session managers into the quiz service.
// State changes of every session are published to notifier.
func initializeServices(notifier service.StateNotifier) (service.QuizService, *session.Manager, error) {
	datasets, err := config.NewManager(*configDir, region.NewLoader(*dataDir))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create dataset manager: %w", err)
	}

	sessions := session.NewManager()

	var opts []service.Option
	if notifier != nil {
		opts = append(opts, service.WithNotifier(notifier))
	}
	return service.NewQuizService(sessions, datasets, opts...), sessions, nil
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the retention window, until ctx is cancelled.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl, interval time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.Printf("Cleaned up %d expired sessions", removed)
			}
		}
	}
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API on the configured port; if unavailable, it
// starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(quizService service.QuizService, hub *websocket.Hub) {
	var baseURL string

	externalURL := fmt.Sprintf("http://%s:%d", *host, *port)
	log.Printf("Checking for external API server at %s...", externalURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Printf("External API server found at %s, using it for MCP", externalURL)
		baseURL = externalURL
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			log.Fatalf("Failed to get available port: %v", err)
		}

		internalAddr := listener.Addr().String()
		log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		httpServer := &http.Server{
			Handler: api.NewServerWithStatic(quizService, hub, ""),
		}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)

	if baseURL == externalURL {
		log.Println("MCP stdio server ready (using external HTTP server)")
	} else {
		log.Println("MCP stdio server ready (using internal HTTP server)")
	}

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		log.Fatalf("MCP stdio server error: %v", err)
	}
}
