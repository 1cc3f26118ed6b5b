package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/munashe04/buyza/pkg/config"
	"github.com/munashe04/buyza/pkg/db"
	"github.com/munashe04/buyza/pkg/flow"
	"github.com/munashe04/buyza/pkg/log"
	"github.com/munashe04/buyza/pkg/messages"
	"github.com/munashe04/buyza/pkg/server"
	"github.com/munashe04/buyza/pkg/server/endpoints"
	gormstore "github.com/munashe04/buyza/pkg/server/store/gorm"
	"github.com/munashe04/buyza/pkg/session"
	"github.com/munashe04/buyza/pkg/sheets"
	"github.com/munashe04/buyza/pkg/whatsapp"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

func defaultPortInt() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 8000
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the Buyza bot server",
	Long: `Run the Buyza bot server.

The server requires GOOGLE_SHEETS_SPREADSHEET_ID and GOOGLE_CREDENTIALS_BASE64
for the ledger, and the WHATSAPP_* variables to talk to the Cloud API.

When DATABASE_URL is set orders are mirrored to PostgreSQL and database
migrations are run on startup. Use --no-migrate to skip.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if cfg.DatabaseURL != "" && !noMigrate {
			fmt.Println("Running database migrations...")
			if err := runMigrations(); err != nil {
				fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
				os.Exit(1)
			}
		}

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runServer(ctx, cfg, host, port); err != nil {
			fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
}

// loadConfig loads and validates configuration and sets up logging
func loadConfig() (*config.BotConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log.Configure(log.Config{Level: cfg.LogLevel, Service: "buyza"})
	return cfg, nil
}

func runServer(ctx context.Context, cfg *config.BotConfig, host, port string) error {
	logger := log.WithComponent("main")

	ledger, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}

	sessions, checks, err := openSessions(ctx, cfg)
	if err != nil {
		return err
	}

	catalog, err := messages.Load(cfg.MessagesPath)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}

	sender := whatsapp.NewClient(whatsapp.ClientConfig{
		GraphURL:      cfg.WhatsAppGraphURL,
		GraphVersion:  cfg.WhatsAppGraphVersion,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		AccessToken:   cfg.WhatsAppAccessToken,
		SendRate:      cfg.WhatsAppSendRate,
	})

	flowCfg := flow.Config{
		Ledger:   ledger,
		Sessions: sessions,
		Messages: catalog,
		Sender:   sender,
	}

	var health *gormstore.HealthStore
	if cfg.DatabaseURL != "" {
		gdb, err := db.Connect(db.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return err
		}
		flowCfg.Orders = gormstore.NewOrderStore(gdb)
		health = gormstore.NewHealthStore(gdb)
		logger.Info().Msg("order mirror enabled")
	}

	svc := flow.NewService(flowCfg)
	s := server.NewServer(cfg, svc, host, port)
	s.Orders = flowCfg.Orders
	if health != nil {
		s.HealthStore = health
	}
	s.Checks = checks
	endpoints.RegisterAll(s)

	g, ctx := errgroup.WithContext(ctx)
	if cfg.MessagesPath != "" {
		g.Go(func() error {
			return catalog.Watch(ctx, cfg.MessagesPath)
		})
	}
	g.Go(func() error {
		logger.Info().Str("addr", s.Addr()).Msg("running server")
		return s.Run(ctx)
	})
	return g.Wait()
}

// openLedger connects to the spreadsheet and makes sure both tabs exist
func openLedger(ctx context.Context, cfg *config.BotConfig) (*sheets.Ledger, error) {
	creds, err := cfg.CredentialsJSON()
	if err != nil {
		return nil, err
	}
	values, err := sheets.NewGoogleValues(ctx, sheets.GoogleConfig{
		SpreadsheetID:   cfg.SheetsSpreadsheetID,
		CredentialsJSON: creds,
		ApplicationName: cfg.SheetsApplicationName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sheets: %w", err)
	}

	ledger := sheets.NewLedger(sheets.Instrument(values))
	if err := ledger.EnsureTabs(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare spreadsheet: %w", err)
	}
	return ledger, nil
}

// openSessions returns the configured session store and any readiness
// checks it needs
func openSessions(ctx context.Context, cfg *config.BotConfig) (session.Store, []server.Check, error) {
	ttl := cfg.SessionTTLDuration()
	if cfg.SessionBackend != config.SessionBackendRedis {
		return session.NewMemoryStore(ttl), nil, nil
	}

	client, err := session.DialRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	store := session.NewRedisStore(client, ttl)
	return store, []server.Check{{Name: "redis", Check: store.HealthCheck}}, nil
}
