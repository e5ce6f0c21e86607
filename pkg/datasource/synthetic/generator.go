package synthetic

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/datasource"
	"github.com/peter-kozarec/vbroker/pkg/utility"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
)

const (
	generatorComponentName = "datasource.synthetic.generator"

	secondsPerYear = 365.25 * 24 * 3600
)

var ErrInvalidConfig = errors.New("invalid synthetic generator configuration")

// Config describes a geometric Brownian motion price path sampled into bars.
// Mu and Sigma are annualized.
type Config struct {
	Symbol     string
	Start      time.Time
	Period     time.Duration
	Bars       int
	StartPrice float64
	Mu         float64
	Sigma      float64
	Digits     int
	AvgVolume  float64
	// SubSteps is the number of path points inside one bar. Defaults to 4.
	SubSteps int
}

type Generator struct {
	cfg Config
	rng *rand.Rand

	t         int
	lastTime  time.Time
	lastPrice float64

	driftPerStep float64
	volPerStep   float64
}

func NewGenerator(rng *rand.Rand, cfg Config) (*Generator, error) {
	if cfg.Symbol == "" || cfg.Period <= 0 || cfg.Bars < 0 || cfg.StartPrice <= 0 || cfg.Sigma < 0 {
		return nil, ErrInvalidConfig
	}
	if cfg.SubSteps <= 0 {
		cfg.SubSteps = 4
	}
	if cfg.Digits <= 0 {
		cfg.Digits = 5
	}

	deltaT := cfg.Period.Seconds() / float64(cfg.SubSteps) / secondsPerYear

	return &Generator{
		cfg:          cfg,
		rng:          rng,
		lastTime:     cfg.Start,
		lastPrice:    cfg.StartPrice,
		driftPerStep: (cfg.Mu - 0.5*cfg.Sigma*cfg.Sigma) * deltaT,
		volPerStep:   cfg.Sigma * math.Sqrt(deltaT),
	}, nil
}

func (g *Generator) GetNext() (common.Bar, error) {
	if g.t >= g.cfg.Bars {
		return common.Bar{}, datasource.ErrEof
	}

	open := g.lastPrice
	high, low, last := open, open, open

	for i := 0; i < g.cfg.SubSteps; i++ {
		last *= math.Exp(g.driftPerStep + g.volPerStep*g.rng.NormFloat64())
		high = math.Max(high, last)
		low = math.Min(low, last)
	}

	g.t++
	g.lastTime = g.lastTime.Add(g.cfg.Period)
	g.lastPrice = last

	return common.Bar{
		Source:      generatorComponentName,
		Symbol:      g.cfg.Symbol,
		ExecutionId: utility.GetExecutionID(),
		TimeStamp:   g.lastTime,
		Period:      g.cfg.Period,
		Open:        g.price(open),
		High:        g.price(high),
		Low:         g.price(low),
		Close:       g.price(last),
		Volume:      g.volume(),
	}, nil
}

func (g *Generator) price(v float64) fixed.Point {
	return fixed.FromFloat64(v).Rescale(g.cfg.Digits)
}

func (g *Generator) volume() fixed.Point {
	if g.cfg.AvgVolume <= 0 {
		return fixed.Zero
	}
	v := g.cfg.AvgVolume * math.Exp(0.5*g.rng.NormFloat64())
	return fixed.FromFloat64(v).Rescale(2)
}
