package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Napageneral/chatscope/internal/analytics"
	"github.com/Napageneral/chatscope/internal/config"
	"github.com/Napageneral/chatscope/internal/contacts"
	"github.com/Napageneral/chatscope/internal/dashboard"
	"github.com/Napageneral/chatscope/internal/db"
	"github.com/Napageneral/chatscope/internal/export"
	"github.com/Napageneral/chatscope/internal/live"
	"github.com/Napageneral/chatscope/internal/logging"
	"github.com/Napageneral/chatscope/internal/metrics"
	"github.com/Napageneral/chatscope/internal/reconcile"
)

var (
	version    = "dev"
	commit     = "none"
	buildDate  = "unknown"
	jsonOutput bool

	flagStore       string
	flagContacts    string
	flagOutput      string
	flagPhoneRule   string
	flagCountryCode string
	flagLogLevel    string
	flagLogFormat   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chatscope",
		Short: "WhatsApp message analytics and transcript export",
		Long: `Chatscope reconciles a WhatsApp msgstore.db with a vCard contact
export into one message table, serves analytics over it and writes
plain-text transcripts per chat.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	pf.StringVar(&flagStore, "store", "", "Path to msgstore.db")
	pf.StringVar(&flagContacts, "contacts", "", "Path to contacts.vcf")
	pf.StringVar(&flagOutput, "output", "", "Transcript output directory")
	pf.StringVar(&flagPhoneRule, "phone-rule", "", "Phone canonicalization rule (last10 or country-prefix)")
	pf.StringVar(&flagCountryCode, "country-code", "", "Country code for the country-prefix rule")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format (console or json)")

	// version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(map[string]string{
					"version": version,
					"commit":  commit,
					"date":    buildDate,
				})
			} else {
				fmt.Printf("chatscope %s (%s, %s)\n", version, commit, buildDate)
			}
		},
	})

	// init command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the config and data directories and a default config",
		Run: func(cmd *cobra.Command, args []string) {
			type Result struct {
				OK         bool   `json:"ok"`
				Message    string `json:"message,omitempty"`
				ConfigDir  string `json:"config_dir,omitempty"`
				DataDir    string `json:"data_dir,omitempty"`
				ConfigPath string `json:"config_path,omitempty"`
				Created    bool   `json:"created"`
			}

			configDir, err := config.GetConfigDir()
			if err != nil {
				exitWith("Failed to get config directory: %v", err)
			}
			dataDir, err := config.GetDataDir()
			if err != nil {
				exitWith("Failed to get data directory: %v", err)
			}
			if err := os.MkdirAll(dataDir, 0755); err != nil {
				exitWith("Failed to create data directory: %v", err)
			}

			result := Result{OK: true, ConfigDir: configDir, DataDir: dataDir, ConfigPath: filepath.Join(configDir, "config.yaml")}
			if _, err := os.Stat(result.ConfigPath); os.IsNotExist(err) {
				if err := config.Default().Save(); err != nil {
					exitWith("Failed to write config: %v", err)
				}
				result.Created = true
			}
			result.Message = "Chatscope initialized successfully"

			if jsonOutput {
				printJSON(result)
			} else {
				fmt.Printf("✓ Config directory: %s\n", result.ConfigDir)
				fmt.Printf("✓ Data directory: %s\n", result.DataDir)
				if result.Created {
					fmt.Printf("✓ Wrote default config: %s\n", result.ConfigPath)
				} else {
					fmt.Printf("✓ Config exists: %s\n", result.ConfigPath)
				}
			}
		},
	})

	// config command
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustConfig()
			if jsonOutput {
				printJSON(cfg)
				return
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				exitWith("Failed to render config: %v", err)
			}
			fmt.Print(string(out))
		},
	})
	rootCmd.AddCommand(configCmd)

	// contacts command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "contacts",
		Short: "List the parsed contact book",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustConfig()
			book, err := contacts.LoadFile(cfg.ContactsPath, mustNormalizer(cfg))
			if err != nil {
				exitWith("Failed to read contacts: %v", err)
			}
			entries := book.Entries()
			if jsonOutput {
				printJSON(map[string]any{"ok": true, "count": len(entries), "contacts": entries})
				return
			}
			for _, e := range entries {
				fmt.Printf("%-12s %s\n", e.Phone, e.Name)
			}
			fmt.Printf("%s contacts from %s\n", humanize.Comma(int64(len(entries))), cfg.ContactsPath)
		},
	})

	// export command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Write one transcript per chat",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustConfig()
			log := mustLogger(cfg)
			ctx := cmd.Context()

			table, err := newLoader(cfg, log, nil).Load(ctx)
			if err != nil {
				exitWith("Export failed: %v", err)
			}
			res, err := newExporter(cfg, log, nil).Export(ctx, table)
			if err != nil {
				exitWith("Export failed: %v", err)
			}
			if jsonOutput {
				printJSON(res)
				return
			}
			fmt.Printf("✓ Exported %s chats to %s (%s skipped)\n",
				humanize.Comma(int64(len(res.Files))), cfg.OutputDir, humanize.Comma(int64(res.Skipped)))
		},
	})

	// stats command
	var statsStart, statsEnd, statsTZ string
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print analytics for a date range",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustConfig()
			log := mustLogger(cfg)

			start, end, err := analytics.ParseRange(statsStart, statsEnd)
			if err != nil {
				exitWith("%v", err)
			}
			tz := cfg.Timezone
			if statsTZ != "" {
				tz = statsTZ
			}
			loc, err := config.LoadLocation(tz)
			if err != nil {
				exitWith("Invalid timezone: %v", err)
			}

			table, err := newLoader(cfg, log, nil).Load(cmd.Context())
			if err != nil {
				exitWith("Failed to load messages: %v", err)
			}
			rep := analytics.Build(table, analytics.Options{Start: start, End: end, Location: loc})
			if jsonOutput {
				printJSON(rep)
				return
			}
			printReport(rep)
		},
	}
	statsCmd.Flags().StringVar(&statsStart, "start", "", "Start date (YYYY-MM-DD, YYYY-MM or YYYY)")
	statsCmd.Flags().StringVar(&statsEnd, "end", "", "End date (YYYY-MM-DD, YYYY-MM or YYYY)")
	statsCmd.Flags().StringVar(&statsTZ, "tz", "", "Time zone for the hourly breakdown")
	rootCmd.AddCommand(statsCmd)

	// serve command
	var serveAddr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analytics dashboard API",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustConfig()
			log := mustLogger(cfg)
			if serveAddr != "" {
				cfg.Dashboard.Addr = serveAddr
			}
			loc, err := config.LoadLocation(cfg.Timezone)
			if err != nil {
				exitWith("Invalid timezone: %v", err)
			}

			gin.SetMode(gin.ReleaseMode)
			m := metrics.New()
			router := dashboard.NewRouter(&dashboard.Server{
				Loader:   newLoader(cfg, log, m),
				Location: loc,
				Metrics:  m,
				Log:      logging.Component(log, "dashboard"),
			})
			srv := &http.Server{
				Addr:              cfg.Dashboard.Addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			log.Info().Str("addr", cfg.Dashboard.Addr).Msg("dashboard listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				exitWith("Server failed: %v", err)
			}
		},
	}
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
	rootCmd.AddCommand(serveCmd)

	// watch command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Re-export transcripts whenever the store or contacts change",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustConfig()
			log := mustLogger(cfg)
			loader := newLoader(cfg, log, nil)
			exporter := newExporter(cfg, log, nil)

			storePath, err := filepath.Abs(cfg.StorePath)
			if err != nil {
				exitWith("Invalid store path: %v", err)
			}
			contactsPath, err := filepath.Abs(cfg.ContactsPath)
			if err != nil {
				exitWith("Invalid contacts path: %v", err)
			}

			w := &live.Watcher{
				StorePath:    storePath,
				ContactsPath: contactsPath,
				Debounce:     time.Duration(cfg.Watch.DebounceSeconds) * time.Second,
				Heartbeat:    time.Minute,
				Log:          logging.Component(log, "watch"),
				Run: func(ctx context.Context) error {
					table, err := loader.Load(ctx)
					if err != nil {
						return err
					}
					_, err = exporter.Export(ctx, table)
					return err
				},
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := w.Watch(ctx); err != nil {
				exitWith("Watch failed: %v", err)
			}
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// mustConfig loads the config file, applies flag overrides and resolves
// relative store paths against the data directory.
func mustConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		exitWith("Failed to load config: %v", err)
	}
	if flagStore != "" {
		cfg.StorePath = flagStore
	}
	if flagContacts != "" {
		cfg.ContactsPath = flagContacts
	}
	if flagOutput != "" {
		cfg.OutputDir = flagOutput
	}
	if flagPhoneRule != "" {
		cfg.Phone.Rule = flagPhoneRule
	}
	if flagCountryCode != "" {
		cfg.Phone.CountryCode = flagCountryCode
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Log.Format = flagLogFormat
	}
	if err := cfg.Validate(); err != nil {
		exitWith("Invalid config: %v", err)
	}

	dataDir, _ := config.GetDataDir()
	cfg.StorePath = db.GetPath(dataDir, cfg.StorePath)
	cfg.ContactsPath = db.GetPath(dataDir, cfg.ContactsPath)
	return cfg
}

func mustLogger(cfg *config.Config) zerolog.Logger {
	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		exitWith("Invalid log config: %v", err)
	}
	return log
}

func mustNormalizer(cfg *config.Config) contacts.Normalizer {
	n, err := contacts.NewNormalizer(cfg.Phone.Rule, cfg.Phone.CountryCode)
	if err != nil {
		exitWith("Invalid phone config: %v", err)
	}
	return n
}

func newLoader(cfg *config.Config, log zerolog.Logger, m *metrics.Metrics) *reconcile.Loader {
	return &reconcile.Loader{
		StorePath:    cfg.StorePath,
		ContactsPath: cfg.ContactsPath,
		Normalizer:   mustNormalizer(cfg),
		Log:          logging.Component(log, "reconcile"),
		Metrics:      m,
	}
}

func newExporter(cfg *config.Config, log zerolog.Logger, m *metrics.Metrics) *export.Exporter {
	loc, err := config.LoadLocation(cfg.ExportTimezone)
	if err != nil {
		exitWith("Invalid export timezone: %v", err)
	}
	return &export.Exporter{
		OutputDir: cfg.OutputDir,
		Location:  loc,
		Log:       logging.Component(log, "export"),
		Metrics:   m,
	}
}

func printReport(rep analytics.Report) {
	if rep.NoData {
		fmt.Println("No messages in the selected range.")
		return
	}
	ov := rep.Overview
	fmt.Printf("Messages:      %s\n", humanize.Comma(int64(ov.TotalMessages)))
	fmt.Printf("Active chats:  %s\n", humanize.Comma(int64(ov.ActiveChats)))
	fmt.Printf("Senders:       %s\n", humanize.Comma(int64(ov.UniqueSenders)))
	if ov.AvgMessagesDay != nil {
		fmt.Printf("Per day:       %.1f over %d days\n", *ov.AvgMessagesDay, ov.Days)
	}
	if rep.Hourly.PeakHour != nil {
		fmt.Printf("Peak hour:     %02d:00 %s (%s messages)\n",
			*rep.Hourly.PeakHour, rep.Hourly.Timezone, humanize.Comma(int64(rep.Hourly.PeakCount)))
	}

	fmt.Println("\nChat types:")
	for _, c := range rep.ChatTypes.Categories {
		fmt.Printf("  %-22s %8s  %5.1f%%\n", c.Name, humanize.Comma(int64(c.Count)), c.Percentage)
	}

	fmt.Println("\nTop one-on-one chats:")
	for _, c := range rep.TopChats.OneOnOne {
		fmt.Printf("  %-30s %8s\n", c.Label, humanize.Comma(int64(c.Count)))
	}
	fmt.Println("\nTop groups:")
	for _, c := range rep.TopChats.Groups {
		fmt.Printf("  %-30s %8s\n", c.Label, humanize.Comma(int64(c.Count)))
	}

	fmt.Println("\nResponse times:")
	for _, g := range rep.ResponseTimes.Groups {
		if g.Median == nil {
			fmt.Printf("  %-15s no data\n", g.Direction)
			continue
		}
		fmt.Printf("  %-15s median %.1f min, mean %.1f min (%s)\n",
			g.Direction, *g.Median, *g.Mean, humanize.Comma(int64(g.Count)))
	}
}

// exitWith reports a failure in the selected output mode and exits 1.
func exitWith(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if jsonOutput {
		printJSON(map[string]any{"ok": false, "message": msg})
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
