package utils

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	_ "github.com/lib/pq"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"planner/src-server/account"
	"planner/src-server/kv"
	"planner/src-server/model"
	"planner/src-server/store"
	"planner/src-server/timeline"
)

type AppState struct {
	Config *Config
	RawDB  *sql.DB
	BunDB  *bun.DB
	When   *when.Parser

	KV       *kv.BunStore
	Events   *store.EventStore
	Accounts *account.Service
	Owner    *account.Owner
	Tokens   *account.Tokens
	Grid     timeline.Grid

	MetricChans *Metric

	// receives OS signals, or a synthetic one when the HTTP server dies
	AppCloseSignalChan chan os.Signal

	gracefulShutdownChans []*chan struct{}
	gracefulShutdownMu    sync.Mutex
}

// OpenDatabase opens the key-value/profile database and makes sure the schema
// exists. SQLite is capped to one connection so ":memory:" stays one database.
func OpenDatabase(ctx context.Context, driver, dsn string) (*sql.DB, *bun.DB, error) {
	var rawDB *sql.DB
	var bunDB *bun.DB
	var err error
	switch driver {
	case DB_DRIVER_POSTGRES:
		if rawDB, err = sql.Open("postgres", dsn); err != nil {
			return nil, nil, fmt.Errorf("OpenDatabase: can't open postgres: %w", err)
		}
		bunDB = bun.NewDB(rawDB, pgdialect.New())
	case DB_DRIVER_SQLITE, "":
		if rawDB, err = sql.Open(sqliteshim.ShimName, dsn); err != nil {
			return nil, nil, fmt.Errorf("OpenDatabase: can't open sqlite: %w", err)
		}
		rawDB.SetMaxOpenConns(1)
		bunDB = bun.NewDB(rawDB, sqlitedialect.New())
	default:
		return nil, nil, fmt.Errorf("OpenDatabase: unknown driver %q", driver)
	}

	if err := model.CreateSchema(ctx, bunDB); err != nil {
		bunDB.Close()
		return nil, nil, fmt.Errorf("OpenDatabase: %w", err)
	}
	return rawDB, bunDB, nil
}

// NewWhen returns a date parser with the english and common rules loaded.
func NewWhen() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

func NewAppState() *AppState {
	as := &AppState{
		AppCloseSignalChan: make(chan os.Signal, 1),
		MetricChans:        NewMetric(),
		When:               NewWhen(),
	}

	// env
	as.Config = NewConfig()

	// database
	var err error
	as.RawDB, as.BunDB, err = OpenDatabase(context.Background(), as.Config.GetDBDriver(), as.Config.GetDBDSN())
	if err != nil {
		slog.Error("cannot open database", "driver", as.Config.GetDBDriver(), "error", err)
		os.Exit(1)
	}

	// domain services
	as.KV = kv.NewBunStore(as.BunDB, as.MetricChans)
	as.Events = store.NewEventStore(as.KV, as.Config.GetLocation())
	as.Owner = account.NewOwner(as.KV, as.Config.GetOwnerUID())
	as.Accounts = account.NewService(as.BunDB, as.Events, as.Owner)
	as.Tokens = account.NewTokens(as.Config.GetAuthSecret())
	as.Grid = timeline.NewGrid(as.Config.GetPixelsPerHour())

	return as
}

// CreateGracefulShutdownChan hands out a channel that is closed by
// GracefulShutdown. Long-running goroutines select on it.
func (as *AppState) CreateGracefulShutdownChan() *chan struct{} {
	as.gracefulShutdownMu.Lock()
	defer as.gracefulShutdownMu.Unlock()
	ch := make(chan struct{})
	as.gracefulShutdownChans = append(as.gracefulShutdownChans, &ch)
	return &ch
}

// GracefulShutdown stops every listener of CreateGracefulShutdownChan and
// closes the database.
func (as *AppState) GracefulShutdown() {
	as.gracefulShutdownMu.Lock()
	for _, ch := range as.gracefulShutdownChans {
		close(*ch)
	}
	as.gracefulShutdownChans = nil
	as.gracefulShutdownMu.Unlock()

	if as.BunDB != nil {
		if err := as.BunDB.Close(); err != nil {
			slog.Warn("can't close database", "error", err)
		}
	}
}
