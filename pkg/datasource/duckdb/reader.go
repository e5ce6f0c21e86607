package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/datasource"
	"github.com/peter-kozarec/vbroker/pkg/utility"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
)

const (
	readerComponentName = "datasource.duckdb.reader"
	DefaultTable        = "bars"
)

// Reader loads bars from a DuckDB table with the columns
// ts, symbol, open, high, low, close, volume.
type Reader struct {
	dsn    string
	table  string
	period time.Duration
	db     *sql.DB
	sq     squirrel.StatementBuilderType
	logger *zap.Logger
}

func NewReader(dsn string, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		dsn:    dsn,
		table:  DefaultTable,
		db:     nil,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		logger: logger,
	}
}

func (r *Reader) WithTable(table string) *Reader {
	r.table = table
	return r
}

func (r *Reader) WithPeriod(period time.Duration) *Reader {
	r.period = period
	return r
}

func (r *Reader) Connect() error {
	db, err := sql.Open("duckdb", r.dsn)
	if err != nil {
		return fmt.Errorf("unable to open duckdb %q: %w", r.dsn, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("unable to connect to duckdb %q: %w", r.dsn, err)
	}
	r.db = db
	return nil
}

func (r *Reader) Close() {
	if r.db != nil {
		_ = r.db.Close()
		r.db = nil
	}
}

// EnsureTable creates the bar table when it does not exist yet.
func (r *Reader) EnsureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts     TIMESTAMP NOT NULL,
		symbol VARCHAR   NOT NULL,
		open   DOUBLE    NOT NULL,
		high   DOUBLE    NOT NULL,
		low    DOUBLE    NOT NULL,
		close  DOUBLE    NOT NULL,
		volume DOUBLE    NOT NULL
	)`, r.table))
	if err != nil {
		return fmt.Errorf("unable to create table %s: %w", r.table, err)
	}
	return nil
}

func (r *Reader) Insert(ctx context.Context, bars ...common.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	f := func(p fixed.Point) float64 {
		v, _ := p.Float64()
		return v
	}

	query := r.sq.Insert(r.table).Columns("ts", "symbol", "open", "high", "low", "close", "volume")
	for _, bar := range bars {
		query = query.Values(bar.TimeStamp.UTC(), bar.Symbol, f(bar.Open), f(bar.High), f(bar.Low), f(bar.Close), f(bar.Volume))
	}

	if _, err := query.RunWith(r.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("unable to insert %d bars: %w", len(bars), err)
	}
	return nil
}

// LoadBars streams the bars of the given symbols in [from, to] ordered by
// time and then symbol. An empty symbol list loads every symbol.
func (r *Reader) LoadBars(ctx context.Context, symbols []string, from, to time.Time, handler func(common.Bar) error) error {
	where := squirrel.And{
		squirrel.GtOrEq{"ts": from.UTC()},
		squirrel.LtOrEq{"ts": to.UTC()},
	}
	if len(symbols) > 0 {
		where = append(where, squirrel.Eq{"symbol": symbols})
	}

	query, args, err := r.sq.
		Select("ts", "symbol", "open", "high", "low", "close", "volume").
		From(r.table).
		Where(where).
		OrderBy("ts ASC", "symbol ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("unable to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("unable to query bars: %w", err)
	}
	defer func() { _ = rows.Close() }()

	executionId := utility.GetExecutionID()

	for rows.Next() {
		var (
			ts                             time.Time
			symbol                         string
			open, high, low, close, volume float64
		)
		if err := rows.Scan(&ts, &symbol, &open, &high, &low, &close, &volume); err != nil {
			return fmt.Errorf("unable to scan bar: %w", err)
		}

		bar := common.Bar{
			Source:      readerComponentName,
			Symbol:      symbol,
			ExecutionId: executionId,
			TimeStamp:   ts.UTC(),
			Period:      r.period,
			Open:        fixed.FromFloat64(open),
			High:        fixed.FromFloat64(high),
			Low:         fixed.FromFloat64(low),
			Close:       fixed.FromFloat64(close),
			Volume:      fixed.FromFloat64(volume),
		}
		if err := handler(bar); err != nil {
			return fmt.Errorf("error processing bar: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating bars: %w", err)
	}
	return nil
}

// Load reads the whole range into memory and returns it as a data source.
func (r *Reader) Load(ctx context.Context, symbols []string, from, to time.Time) (*datasource.SliceSource, error) {
	var bars []common.Bar
	err := r.LoadBars(ctx, symbols, from, to, func(bar common.Bar) error {
		bars = append(bars, bar)
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("bars loaded",
		zap.String("dsn", r.dsn),
		zap.Strings("symbols", symbols),
		zap.Int("count", len(bars)))

	return datasource.NewSliceSource(bars), nil
}
