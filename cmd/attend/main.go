// Package main is the entry point for the attendance client. It loads
// configuration, starts the services, and runs the Bubble Tea program.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/attendance-tui/internal/app"
	"github.com/j-veylop/attendance-tui/internal/config"
	"github.com/j-veylop/attendance-tui/internal/logger"
	"github.com/j-veylop/attendance-tui/internal/services"
	"github.com/j-veylop/attendance-tui/internal/ui/tabs/attendance"
	"github.com/j-veylop/attendance-tui/internal/ui/tabs/history"
	"github.com/j-veylop/attendance-tui/internal/ui/tabs/login"
	"github.com/j-veylop/attendance-tui/internal/ui/tabs/profile"
	"github.com/j-veylop/attendance-tui/internal/version"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-v" || os.Args[1] == "--version") {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		printUsage()
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run contains the main application logic, separated for cleaner error handling.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// The TUI owns the terminal, so logs go to a file.
	logCloser, err := logger.Init(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logCloser.Close()

	logger.Info("starting", "version", version.GetVersion(), "api", cfg.APIBaseURL, "platform", cfg.Platform)

	svcManager, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := svcManager.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	model := app.NewModel(svcManager)
	state := model.GetState()

	model.SetLogin(login.New(svcManager))
	model.SetTabs([]app.Tab{
		attendance.New(state, svcManager),
		profile.New(state, cfg, svcManager),
		history.New(state, svcManager),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
	)

	go func() {
		<-sigChan
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	logger.Info("exiting")
	return nil
}

// printUsage prints the command-line usage information.
func printUsage() {
	fmt.Println(`attendance-tui - employee check-in and check-out client

Usage:
  attend [flags]

Flags:
  -h, --help      Show this help message
  -v, --version   Show version information

Keyboard Shortcuts:
  1-3             Switch between tabs (Attendance, Profile, History)
  Tab/Shift+Tab   Navigate between tabs
  Enter/Space     Check in or check out
  m               Choose work mode
  s               Open location settings
  e               Export history to XLSX
  L               Logout
  r               Refresh
  ?               Toggle help
  q, Ctrl+C       Quit

Environment Variables:
  ATTENDANCE_API_BASE_URL  Attendance server base URL (required)
  DEVICE_PLATFORM          android or ios (default: android)
  DEVICE_PATH              Device state JSON file path
  DATABASE_PATH            SQLite database path
  EXPORT_DIR               Directory for XLSX exports
  DISPLAY_TIMEZONE         IANA zone for displayed times (default: local)
  LOG_PATH                 Log file path
  LOG_LEVEL                debug, info, warn or error (default: info)
  HTTP_TIMEOUT             Request timeout (default: 30s)
  LOCATION_CACHE_TTL       Max age of a reusable fix (default: 2m)
  FAST_FIX_TIMEOUT         Low accuracy fix timeout (default: 2s)
  PRECISE_FIX_TIMEOUT      High accuracy fix timeout (default: 10s)
  GPS_PROBE_TIMEOUT        Location service probe timeout (default: 3s)
  DESKTOP_NOTIFICATIONS    Notify on check-in/out (default: true)

Configuration:
  The application looks for .env files in the following locations:
  - Current directory
  - ~/.config/attendance-tui/.env
  - ~/.attendance/.env`)
}
