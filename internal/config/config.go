package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/peter-kozarec/vbroker/pkg/bus"
	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/exchange/virtual"
	"github.com/peter-kozarec/vbroker/pkg/middleware"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
)

const (
	DataKindDuckDB    = "duckdb"
	DataKindBinary    = "binary"
	DataKindSynthetic = "synthetic"

	defaultRouterCapacity = 1024
	defaultPeriod         = time.Minute

	orderScriptSource = "config.orders"
)

var ErrEmptyConfig = errors.New("configuration is empty")

type Config struct {
	Account     Account             `yaml:"account"`
	Instruments []common.Instrument `yaml:"instruments" validate:"dive"`
	Data        Data                `yaml:"data"`
	Journal     Journal             `yaml:"journal"`
	Log         Log                 `yaml:"log"`
	Router      Router              `yaml:"router"`
	Orders      []Order             `yaml:"orders" validate:"dive"`
}

type Account struct {
	Deposit      fixed.Point `yaml:"deposit" validate:"gt=0"`
	Leverage     fixed.Point `yaml:"leverage" validate:"gt=0"`
	Commission   fixed.Point `yaml:"commission" validate:"gte=0"`
	Spread       fixed.Point `yaml:"spread" validate:"gte=0"`
	PipSize      fixed.Point `yaml:"pip_size" validate:"gt=0"`
	HomeCurrency string      `yaml:"home_currency" validate:"omitempty,len=3,uppercase"`
}

type Data struct {
	Kind      string        `yaml:"kind" validate:"required,oneof=duckdb binary synthetic"`
	DSN       string        `yaml:"dsn" validate:"required_if=Kind duckdb"`
	Table     string        `yaml:"table"`
	Files     []File        `yaml:"files" validate:"required_if=Kind binary,dive"`
	Symbols   []string      `yaml:"symbols" validate:"required_if=Kind synthetic,dive,required"`
	From      time.Time     `yaml:"from" validate:"required"`
	To        time.Time     `yaml:"to" validate:"required,gtfield=From"`
	Period    time.Duration `yaml:"period" validate:"gte=0"`
	Resample  time.Duration `yaml:"resample" validate:"gte=0"`
	Synthetic Synthetic     `yaml:"synthetic"`
}

type File struct {
	Symbol string `yaml:"symbol" validate:"required"`
	Path   string `yaml:"path" validate:"required"`
}

type Synthetic struct {
	Seed       int64   `yaml:"seed"`
	StartPrice float64 `yaml:"start_price" validate:"gte=0"`
	Mu         float64 `yaml:"mu"`
	Sigma      float64 `yaml:"sigma" validate:"gte=0"`
	Digits     int     `yaml:"digits" validate:"gte=0"`
	Volume     float64 `yaml:"volume" validate:"gte=0"`
}

type Journal struct {
	DSN string `yaml:"dsn"`
}

func (j Journal) Enabled() bool {
	return j.DSN != ""
}

type Log struct {
	Dev     bool     `yaml:"dev"`
	Level   string   `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Monitor []string `yaml:"monitor"`
}

type Router struct {
	Capacity int `yaml:"capacity" validate:"gte=0"`
}

// Order is one entry of the scheduled order script. Zero decimals mean the
// field is not set.
type Order struct {
	At           time.Time        `yaml:"at" validate:"required"`
	Instrument   string           `yaml:"instrument" validate:"required"`
	Direction    common.Direction `yaml:"direction" validate:"required"`
	Kind         string           `yaml:"kind" validate:"omitempty,oneof=market limit stop_limit close reduce"`
	Size         fixed.Point      `yaml:"size" validate:"gte=0"`
	Price        fixed.Point      `yaml:"price" validate:"gte=0"`
	Stop         fixed.Point      `yaml:"stop" validate:"gte=0"`
	Related      int64            `yaml:"related" validate:"required_if=Kind close,gte=0"`
	StopLoss     fixed.Point      `yaml:"stop_loss" validate:"gte=0"`
	StopDistance fixed.Point      `yaml:"stop_distance" validate:"gte=0"`
	Trailing     bool             `yaml:"trailing"`
	TakeProfit   fixed.Point      `yaml:"take_profit" validate:"gte=0"`
	HCF          fixed.Point      `yaml:"hcf" validate:"gte=0"`
	Strategy     string           `yaml:"strategy"`
}

func (o Order) Request() common.OrderRequest {
	req := common.OrderRequest{
		Instrument: o.Instrument,
		Direction:  o.Direction,
		Size:       o.Size,
		Price:      o.Price,
		HCF:        o.HCF,
		Strategy:   o.Strategy,
		Source:     orderScriptSource,
		TimeStamp:  o.At,
	}

	switch o.Kind {
	case "limit":
		req.Type = common.Limit{Price: o.Price}
	case "stop_limit":
		req.Type = common.StopLimit{Stop: o.Stop, Limit: o.Price}
	case "close":
		req.Type = common.Close{Related: common.OrderId(o.Related)}
	case "reduce":
		req.Type = common.Reduce{}
	default:
		req.Type = common.Market{}
	}

	if !o.StopLoss.IsZero() || !o.StopDistance.IsZero() {
		stop := common.StopLoss{Kind: common.StopKindFixed}
		if o.Trailing {
			stop.Kind = common.StopKindTrailing
		}
		if !o.StopLoss.IsZero() {
			stop.Price = optional.Some(o.StopLoss)
		}
		if !o.StopDistance.IsZero() {
			stop.Distance = optional.Some(o.StopDistance)
		}
		req.StopLoss = optional.Some(stop)
	}
	if !o.TakeProfit.IsZero() {
		req.TakeProfit = optional.Some(o.TakeProfit)
	}

	return req
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config %q: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML, fills defaults and validates the result. Unknown keys
// are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyConfig
		}
		return nil, fmt.Errorf("unable to decode: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Account.Leverage.IsZero() {
		c.Account.Leverage = fixed.One
	}
	if c.Account.PipSize.IsZero() {
		c.Account.PipSize = fixed.FromInt(1, 4)
	}
	if c.Data.Period == 0 {
		c.Data.Period = defaultPeriod
	}
	if c.Router.Capacity == 0 {
		c.Router.Capacity = defaultRouterCapacity
	}
	if c.Data.Kind == DataKindSynthetic {
		if c.Data.Synthetic.StartPrice == 0 {
			c.Data.Synthetic.StartPrice = 1
		}
		if c.Data.Synthetic.Digits == 0 {
			c.Data.Synthetic.Digits = 5
		}
	}
}

func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, unknown := middleware.ParseMonitorFlags(c.Log.Monitor); len(unknown) > 0 {
		return fmt.Errorf("invalid configuration: unknown monitor events %s", strings.Join(unknown, ", "))
	}

	if c.Data.Resample > 0 && c.Data.Resample < c.Data.Period {
		return fmt.Errorf("invalid configuration: resample %s is finer than period %s", c.Data.Resample, c.Data.Period)
	}

	seen := make(map[string]bool, len(c.Instruments))
	for _, instrument := range c.Instruments {
		if seen[instrument.Symbol] {
			return fmt.Errorf("invalid configuration: instrument %s listed twice", instrument.Symbol)
		}
		if instrument.PipSize.IsNeg() {
			return fmt.Errorf("invalid configuration: instrument %s has negative pip size", instrument.Symbol)
		}
		seen[instrument.Symbol] = true
	}
	return nil
}

// MonitorFlags returns the router events selected for logging.
func (c *Config) MonitorFlags() middleware.MonitorFlags {
	flags, _ := middleware.ParseMonitorFlags(c.Log.Monitor)
	return flags
}

func (c *Config) BrokerOptions(logger *zap.Logger, router *bus.Router) []virtual.Option {
	opts := []virtual.Option{
		virtual.WithLogger(logger),
		virtual.WithRouter(router),
		virtual.WithLeverage(c.Account.Leverage),
		virtual.WithCommission(c.Account.Commission),
		virtual.WithSpread(c.Account.Spread),
		virtual.WithDefaultPipSize(c.Account.PipSize),
		virtual.WithHomeCurrency(c.Account.HomeCurrency),
	}
	for _, instrument := range c.Instruments {
		if instrument.PipSize.IsZero() {
			continue
		}
		opts = append(opts, virtual.WithInstrument(instrument))
	}
	return opts
}

func (c *Config) OrderRequests() []common.OrderRequest {
	out := make([]common.OrderRequest, 0, len(c.Orders))
	for _, order := range c.Orders {
		out = append(out, order.Request())
	}
	return out
}

// SymbolList lists the instruments the data section reads.
func (d Data) SymbolList() []string {
	if d.Kind == DataKindBinary {
		out := make([]string, 0, len(d.Files))
		for _, f := range d.Files {
			out = append(out, f.Symbol)
		}
		return out
	}
	return d.Symbols
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if p, ok := field.Interface().(fixed.Point); ok {
			f, _ := p.Float64()
			return f
		}
		return nil
	}, fixed.Point{})
	return v
}
