package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nadimkh/mouneh/internal/api"
	"github.com/nadimkh/mouneh/internal/dailylog"
	"github.com/nadimkh/mouneh/internal/db"
	"github.com/nadimkh/mouneh/internal/inventory"
	"github.com/nadimkh/mouneh/internal/ledger"
	"github.com/nadimkh/mouneh/internal/model"
	"github.com/nadimkh/mouneh/internal/notify"
	"github.com/nadimkh/mouneh/internal/persist"
	"github.com/nadimkh/mouneh/internal/store"
	"github.com/nadimkh/mouneh/internal/transfer"
)

const jwtSecretKey = "jwt_secret"

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func main() {
	fs := flag.NewFlagSet("mouneh", flag.ContinueOnError)

	var dbPath string
	fs.StringVar(&dbPath, "db", "mouneh.sqlite3", "")
	fs.StringVar(&dbPath, "d", "mouneh.sqlite3", "")

	var addr string
	fs.StringVar(&addr, "addr", ":8080", "")
	fs.StringVar(&addr, "a", ":8080", "")

	var adminUser string
	fs.StringVar(&adminUser, "user", "admin", "")
	fs.StringVar(&adminUser, "u", "admin", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: mouneh [flags]

Flags:
  -d, -db <path>          SQLite database path (default: mouneh.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	closeLog, err := setupLogger(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		database, password, err := initDatabase(dbPath, adminUser)
		if err != nil {
			slog.Error("failed to initialize database", "error", err)
			os.Exit(1)
		}
		database.Close()

		printInitResult(dbPath, adminUser, password)
		fmt.Println()
	}

	database, err := db.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.Migrate(database); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	slog.Info("database ready", "path", dbPath)

	ctx := context.Background()

	// Load JWT secret from settings (generated on first need).
	jwtSecret, err := loadJWTSecret(ctx, database)
	if err != nil {
		slog.Error("failed to load JWT secret", "error", err)
		os.Exit(1)
	}

	// Warm the optimistic caches from the store. The store is ground
	// truth; the caches answer all reads and take writes first.
	inv := inventory.NewRepository()
	log := ledger.NewLog()
	if err := loadCaches(ctx, database, inv, log); err != nil {
		slog.Error("failed to load caches", "error", err)
		os.Exit(1)
	}

	// The write queue durably applies cache mutations in order. If a
	// write fails, everything queued behind it is stale; rebuild the
	// caches from the store and carry on.
	queue := persist.NewQueue(database, func(cause error) {
		slog.Warn("resyncing caches from store", "cause", cause)
		if err := loadCaches(context.Background(), database, inv, log); err != nil {
			slog.Error("cache resync failed", "error", err)
		}
	})
	defer queue.Close()

	notifier := notify.NewEmitter(nil)

	router := api.NewRouter(api.Config{
		DB:        database,
		Inventory: inv,
		Ledger:    log,
		Queue:     queue,
		Transfers: transfer.New(inv, log, queue),
		DailyLog:  dailylog.New(inv, log, queue),
		Notifier:  notifier,
		JWTSecret: jwtSecret,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           api.LoggingMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	// Drain pending durable writes before the database closes.
	slog.Info("server stopped, draining write queue")
	queue.Wait()
}

// loadCaches replaces the in-memory inventory and transaction log with
// the store's current state.
func loadCaches(ctx context.Context, database *sql.DB, inv *inventory.Repository, log *ledger.Log) error {
	items, err := store.ListItems(ctx, database, "")
	if err != nil {
		return fmt.Errorf("loading items: %w", err)
	}
	txns, err := store.ListTransactions(ctx, database, "", "")
	if err != nil {
		return fmt.Errorf("loading transactions: %w", err)
	}
	inv.Load(items)
	log.Load(txns)
	slog.Info("caches loaded", "items", len(items), "transactions", len(txns))
	return nil
}

// loadJWTSecret returns the persisted signing secret, generating and
// storing one on first run so tokens survive restarts.
func loadJWTSecret(ctx context.Context, database *sql.DB) (string, error) {
	secret, err := store.GetSetting(ctx, database, jwtSecretKey)
	if err != nil {
		return "", err
	}
	if secret != "" {
		return secret, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating JWT secret: %w", err)
	}
	secret = hex.EncodeToString(buf)

	if err := store.SetSetting(ctx, database, jwtSecretKey, secret); err != nil {
		return "", err
	}
	return secret, nil
}

// initDatabase creates a new database, applies the schema, seeds the
// fixed locations, and creates the admin user.
func initDatabase(path, adminUsername string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	fail := func(err error) (*sql.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	if err := db.Migrate(database); err != nil {
		return fail(fmt.Errorf("migrating schema: %w", err))
	}

	ctx := context.Background()

	// The warehouse and the production unit always exist; branches are
	// provisioned later alongside their managers.
	locations := []model.Location{
		{ID: model.LocationWarehouse, Name: "Central Warehouse", Icon: "warehouse", Type: model.LocationTypeCentral},
		{ID: model.LocationMammal, Name: "Mammal", Icon: "factory", Type: model.LocationTypeCentral},
	}
	for _, loc := range locations {
		if err := store.UpsertLocation(ctx, database, loc); err != nil {
			return fail(fmt.Errorf("seeding location %s: %w", loc.ID, err))
		}
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fail(fmt.Errorf("hashing password: %w", err))
	}

	if _, err := store.CreateUser(ctx, database, adminUsername, string(hash), "Administrator", model.RoleAdmin, ""); err != nil {
		return fail(fmt.Errorf("creating admin user: %w", err))
	}

	return database, password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized, locations seeded.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password — it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
