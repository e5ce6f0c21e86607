package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
)

const (
	journalComponentName = "journal"

	closedPositionsTable = "closed_positions"
	cancelledOrdersTable = "cancelled_orders"
)

var ErrNotOpen = errors.New("journal is not open")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ` + closedPositionsTable + ` (
		id            BIGINT    NOT NULL,
		instrument    VARCHAR   NOT NULL,
		direction     VARCHAR   NOT NULL,
		size          VARCHAR   NOT NULL,
		entry_price   VARCHAR   NOT NULL,
		entry_time    TIMESTAMP NOT NULL,
		exit_price    VARCHAR   NOT NULL,
		exit_time     TIMESTAMP NOT NULL,
		gross_pl      VARCHAR   NOT NULL,
		commission    VARCHAR   NOT NULL,
		net_profit    VARCHAR   NOT NULL,
		balance_after VARCHAR   NOT NULL,
		partial       BOOLEAN   NOT NULL,
		strategy      VARCHAR,
		execution_id  VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS ` + cancelledOrdersTable + ` (
		id           BIGINT    NOT NULL,
		instrument   VARCHAR   NOT NULL,
		direction    VARCHAR   NOT NULL,
		kind         VARCHAR   NOT NULL,
		size         VARCHAR   NOT NULL,
		price        VARCHAR   NOT NULL,
		reason       VARCHAR   NOT NULL,
		cancelled_at TIMESTAMP NOT NULL,
		strategy     VARCHAR,
		execution_id VARCHAR
	)`,
}

// Journal persists terminal trade records into DuckDB, or into PostgreSQL
// when the DSN is a postgres URL. Decimals are stored as text so they read
// back exactly.
type Journal struct {
	dsn      string
	db       *sql.DB
	sq       squirrel.StatementBuilderType
	logger   *zap.Logger
	failures int
}

func NewJournal(dsn string, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{
		dsn:    dsn,
		logger: logger.Named(journalComponentName),
	}
}

func (j *Journal) Open(ctx context.Context) error {
	driver, placeholders := driverFor(j.dsn)
	j.sq = squirrel.StatementBuilder.PlaceholderFormat(placeholders)

	db, err := sql.Open(driver, j.dsn)
	if err != nil {
		return fmt.Errorf("unable to open journal %q: %w", j.dsn, err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("unable to initialize journal: %w", err)
		}
	}
	j.db = db
	return nil
}

func (j *Journal) Close() {
	if j.db != nil {
		_ = j.db.Close()
		j.db = nil
	}
}

// Failures returns how many router events could not be written.
func (j *Journal) Failures() int {
	return j.failures
}

func (j *Journal) OnPositionClose(ctx context.Context, closed common.ClosedPosition) {
	if err := j.RecordClose(ctx, closed); err != nil {
		j.failures++
		j.logger.Warn("unable to journal closed position", append(closed.Fields(), zap.Error(err))...)
	}
}

func (j *Journal) OnOrderCancel(ctx context.Context, cancelled common.CancelledOrder) {
	if err := j.RecordCancel(ctx, cancelled); err != nil {
		j.failures++
		j.logger.Warn("unable to journal cancelled order", append(cancelled.Fields(), zap.Error(err))...)
	}
}

func (j *Journal) RecordClose(ctx context.Context, c common.ClosedPosition) error {
	if j.db == nil {
		return ErrNotOpen
	}
	_, err := j.sq.Insert(closedPositionsTable).
		Columns("id", "instrument", "direction", "size", "entry_price", "entry_time", "exit_price", "exit_time",
			"gross_pl", "commission", "net_profit", "balance_after", "partial", "strategy", "execution_id").
		Values(int64(c.Id), c.Instrument, c.Direction.String(), c.Size.String(), c.EntryPrice.String(), c.EntryTime.UTC(),
			c.ExitPrice.String(), c.ExitTime.UTC(), c.GrossPL.String(), c.Commission.String(), c.NetProfit.String(),
			c.BalanceAfter.String(), c.Partial, c.Strategy, c.ExecutionId.String()).
		RunWith(j.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert closed position %d: %w", c.Id, err)
	}
	return nil
}

func (j *Journal) RecordCancel(ctx context.Context, c common.CancelledOrder) error {
	if j.db == nil {
		return ErrNotOpen
	}
	_, err := j.sq.Insert(cancelledOrdersTable).
		Columns("id", "instrument", "direction", "kind", "size", "price", "reason", "cancelled_at", "strategy", "execution_id").
		Values(int64(c.Id), c.Instrument, c.Direction.String(), c.Kind().String(), c.Size.String(), c.Price.String(),
			c.Reason, c.CancelledAt.UTC(), c.Strategy, c.ExecutionId.String()).
		RunWith(j.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert cancelled order %d: %w", c.Id, err)
	}
	return nil
}

// ClosedPositions reads the journaled closes in order of exit time and id.
func (j *Journal) ClosedPositions(ctx context.Context) ([]common.ClosedPosition, error) {
	if j.db == nil {
		return nil, ErrNotOpen
	}
	rows, err := j.sq.
		Select("id", "instrument", "direction", "size", "entry_price", "entry_time", "exit_price", "exit_time",
			"gross_pl", "commission", "net_profit", "balance_after", "partial", "strategy").
		From(closedPositionsTable).
		OrderBy("exit_time ASC", "id ASC").
		RunWith(j.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query closed positions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []common.ClosedPosition
	for rows.Next() {
		var c common.ClosedPosition
		var id int64
		var direction, size, entry, exit, gross, comm, net, balance string
		var strategy sql.NullString
		var entryTime, exitTime time.Time

		if err := rows.Scan(&id, &c.Instrument, &direction, &size, &entry, &entryTime, &exit, &exitTime,
			&gross, &comm, &net, &balance, &c.Partial, &strategy); err != nil {
			return nil, fmt.Errorf("scan closed position: %w", err)
		}

		c.Id = common.OrderId(id)
		c.EntryTime = entryTime.UTC()
		c.ExitTime = exitTime.UTC()
		c.Strategy = strategy.String
		if c.Direction, err = common.ParseDirection(direction); err != nil {
			return nil, err
		}
		if err := parseAll(
			field{size, &c.Size}, field{entry, &c.EntryPrice}, field{exit, &c.ExitPrice}, field{gross, &c.GrossPL},
			field{comm, &c.Commission}, field{net, &c.NetProfit}, field{balance, &c.BalanceAfter},
		); err != nil {
			return nil, fmt.Errorf("closed position %d: %w", id, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CancelReasons counts journaled cancellations per reason.
func (j *Journal) CancelReasons(ctx context.Context) (map[string]int, error) {
	if j.db == nil {
		return nil, ErrNotOpen
	}
	rows, err := j.sq.
		Select("reason", "COUNT(*)").
		From(cancelledOrdersTable).
		GroupBy("reason").
		RunWith(j.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query cancel reasons: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int)
	for rows.Next() {
		var reason string
		var count int
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, fmt.Errorf("scan cancel reason: %w", err)
		}
		out[reason] = count
	}
	return out, rows.Err()
}

func driverFor(dsn string) (string, squirrel.PlaceholderFormat) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", squirrel.Dollar
	}
	return "duckdb", squirrel.Question
}

type field struct {
	text string
	dst  *fixed.Point
}

func parseAll(fields ...field) error {
	for _, f := range fields {
		p, err := fixed.FromString(f.text)
		if err != nil {
			return err
		}
		*f.dst = p
	}
	return nil
}
