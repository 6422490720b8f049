package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tejzpr/eloy-nominator/internal/config"
	"github.com/tejzpr/eloy-nominator/internal/db"
	"github.com/tejzpr/eloy-nominator/internal/events"
	"github.com/tejzpr/eloy-nominator/internal/form"
	"github.com/tejzpr/eloy-nominator/internal/handler"
	"github.com/tejzpr/eloy-nominator/internal/logger"
	"github.com/tejzpr/eloy-nominator/internal/nomination"
	"github.com/tejzpr/eloy-nominator/internal/submitter"
	"github.com/tejzpr/eloy-nominator/internal/webserver"
)

const version = "1.0.0"

// app is the wired pipeline shared by every command.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	database  *gorm.DB
	ledger    *db.Ledger
	broker    *events.Broker
	submitter *submitter.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	ledger := db.NewLedger(database)
	broker := events.NewBroker()

	httpClient := submitter.NewHTTPClient(cfg)
	extractor := form.NewExtractor(cfg, httpClient, log)
	client := submitter.New(cfg, httpClient, extractor, ledger, log,
		submitter.WithRecordedHook(broker.PublishSubmission),
	)

	return &app{
		cfg:       cfg,
		logger:    log,
		database:  database,
		ledger:    ledger,
		broker:    broker,
		submitter: client,
	}, nil
}

func (a *app) close() {
	if err := db.Close(a.database); err != nil {
		a.logger.Warn("Closing ledger failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API (categories, submit, submissions, events)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		addr := a.cfg.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := webserver.New(a.submitter, a.ledger, a.broker, a.logger)
		return srv.ListenAndServe(ctx, addr)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the nomination tools over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		s := server.NewMCPServer(
			"eloy-nominator",
			version,
			server.WithToolCapabilities(false),
		)
		handler.NewTools(a.submitter, a.ledger, a.logger).Register(s)

		if err := server.ServeStdio(s); err != nil {
			return fmt.Errorf("mcp server error: %w", err)
		}
		return nil
	},
}

var requestFile string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Fetch live form state and print the payload that would be sent, without sending it",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		req, err := loadRequest(requestFile)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Timeout)
		defer cancel()

		state, fields, headers, err := a.submitter.Preview(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to get form data: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Form state:")
		fmt.Fprintf(out, "  form id:    %s\n", state.FormID)
		fmt.Fprintf(out, "  token:      %s\n", truncate(state.Token, 20))
		fmt.Fprintf(out, "  token time: %d (%s)\n", state.TokenTime, time.Unix(state.TokenTime, 0).Format(time.RFC3339))
		fmt.Fprintf(out, "  categories: %d found\n", len(state.Categories))
		fmt.Fprintf(out, "\nTarget: POST %s\n", a.cfg.SubmitURL)

		fmt.Fprintln(out, "\nHeaders:")
		for _, k := range []string{"User-Agent", "Content-Type", "Referer", "Origin", "Accept", "Accept-Language", "X-Requested-With"} {
			fmt.Fprintf(out, "  %s: %s\n", k, headers.Get(k))
		}

		fmt.Fprintln(out, "\nPayload:")
		for _, k := range fields.Keys() {
			v := fields[k]
			if strings.Contains(k, "token") {
				v = truncate(v, 20)
			}
			fmt.Fprintf(out, "  %s: %s\n", k, v)
		}
		return nil
	},
}

var checkServer string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Smoke-test a running API: categories, submit, submissions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		c := webserver.NewRemoteClient(checkServer, 60*time.Second)

		if !c.Healthy(ctx) {
			return fmt.Errorf("no nominator server at %s", checkServer)
		}

		cats, err := c.Categories(ctx)
		if err != nil {
			return fmt.Errorf("categories failed: %w", err)
		}
		fmt.Fprintf(out, "categories loaded: %d\n", len(cats))

		req, err := loadRequest(requestFile)
		if err != nil {
			return err
		}
		outcome, err := c.Submit(ctx, req)
		if err != nil {
			return fmt.Errorf("submit failed: %w", err)
		}
		if outcome.Success {
			fmt.Fprintf(out, "submission successful: %s\n", outcome.Detail)
		} else {
			fmt.Fprintf(out, "submission failed: %s\n", outcome.Detail)
		}

		subs, err := c.Submissions(ctx)
		if err != nil {
			return fmt.Errorf("submissions failed: %w", err)
		}
		fmt.Fprintf(out, "submissions retrieved: %d total\n", len(subs))
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	inspectCmd.Flags().StringVar(&requestFile, "file", "", "JSON nomination to use instead of the built-in sample")
	checkCmd.Flags().StringVar(&requestFile, "file", "", "JSON nomination to submit instead of the built-in sample")
	checkCmd.Flags().StringVar(&checkServer, "server", "http://localhost:5000", "base URL of a running API")
}

// sampleRequest is the nomination used by inspect and check when no file is given.
func sampleRequest() nomination.Request {
	return nomination.Request{
		NominatorFirst:   "John",
		NominatorLast:    "Doe",
		NominatorPhone:   "+1234567890",
		NominatorEmail:   "john@example.com",
		Category:         "Best Entrepreneur",
		NomineeFirst:     "Jane",
		NomineeLast:      "Smith",
		NomineeInstagram: "@janesmith",
		NomineeLinkedIn:  "linkedin.com/in/janesmith",
		Reason:           "Outstanding leadership and innovation",
		NomineeEmail:     "jane@example.com",
		NomineePhone:     "+0987654321",
		NomineeWebsite:   "janesmith.com",
	}
}

func loadRequest(path string) (nomination.Request, error) {
	if path == "" {
		return sampleRequest(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nomination.Request{}, fmt.Errorf("read nomination file: %w", err)
	}
	var req nomination.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nomination.Request{}, fmt.Errorf("parse nomination file: %w", err)
	}
	return req, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
