// Command dbtool applies schema migrations and inspects the poll-run log
// without starting the board server.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/config"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/db"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/logging"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/migrate"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/runs"
)

const usage = `usage: %s <command>
  migrate              apply pending schema migrations
  runs [source] [n]    print the newest n poll runs (default 20)
`

func main() {
	os.Exit(realMain(os.Args, os.Stdout, os.Stderr))
}

// realMain returns the process exit code so deferred cleanup runs before exit.
func realMain(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintf(stderr, usage, args[0])
		return 1
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return 1
	}
	logger := logging.New(stderr, cfg, "dev", "dbtool")
	slog.SetDefault(logger)

	conn, err := db.Open(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "db open: %v\n", err)
		return 1
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()

	if err := run(context.Background(), conn, args[1:], stdout); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", args[1], err)
		return 1
	}
	return 0
}

func run(ctx context.Context, conn *sql.DB, args []string, out io.Writer) error {
	switch args[0] {
	case "migrate":
		if err := migrate.Run(ctx, conn); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations applied")
		return nil
	case "runs":
		source, limit := "", 20
		if len(args) > 1 {
			source = args[1]
		}
		if len(args) > 2 {
			n, err := strconv.Atoi(args[2])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid count %q", args[2])
			}
			limit = n
		}
		items, err := runs.NewRepository(conn).List(ctx, source, limit)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	default:
		return fmt.Errorf("unknown command (see usage)")
	}
}
