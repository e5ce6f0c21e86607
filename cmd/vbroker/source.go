package main

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/peter-kozarec/vbroker/internal/config"
	"github.com/peter-kozarec/vbroker/pkg/datasource"
	"github.com/peter-kozarec/vbroker/pkg/datasource/duckdb"
	"github.com/peter-kozarec/vbroker/pkg/datasource/historical"
	"github.com/peter-kozarec/vbroker/pkg/datasource/synthetic"
	"github.com/peter-kozarec/vbroker/pkg/tools/bar"
)

// openSource builds the bar source described by the data section. The
// returned cleanup must be called once the replay is done.
func openSource(ctx context.Context, data config.Data, logger *zap.Logger) (datasource.BarDataSource, func(), error) {
	source, cleanup, err := openRawSource(ctx, data, logger)
	if err != nil {
		return nil, nil, err
	}
	if data.Resample > 0 {
		logger.Info("resampling bars", zap.Duration("from", data.Period), zap.Duration("to", data.Resample))
		return bar.NewBuilder(source, data.Resample), cleanup, nil
	}
	return source, cleanup, nil
}

func openRawSource(ctx context.Context, data config.Data, logger *zap.Logger) (datasource.BarDataSource, func(), error) {
	switch data.Kind {
	case config.DataKindDuckDB:
		reader := duckdb.NewReader(data.DSN, logger).WithPeriod(data.Period)
		if data.Table != "" {
			reader = reader.WithTable(data.Table)
		}
		if err := reader.Connect(); err != nil {
			return nil, nil, err
		}
		source, err := reader.Load(ctx, data.Symbols, data.From, data.To)
		if err != nil {
			reader.Close()
			return nil, nil, err
		}
		return source, reader.Close, nil

	case config.DataKindBinary:
		var files []*historical.Source[historical.BinaryBar]
		var readers []datasource.BarDataSource
		cleanup := func() {
			for _, f := range files {
				f.Close()
			}
		}
		for _, file := range data.Files {
			src := historical.NewSource[historical.BinaryBar](file.Path)
			if err := src.Open(); err != nil {
				cleanup()
				return nil, nil, err
			}
			files = append(files, src)
			readers = append(readers, historical.NewBarReader(src, file.Symbol, data.Period, data.From, data.To))
		}
		return datasource.NewMergeSource(readers...), cleanup, nil

	case config.DataKindSynthetic:
		bars := int(data.To.Sub(data.From) / data.Period)
		var generators []datasource.BarDataSource
		for i, symbol := range data.Symbols {
			generator, err := synthetic.NewGenerator(rand.New(rand.NewSource(data.Synthetic.Seed+int64(i))), synthetic.Config{ // #nosec G404
				Symbol:     symbol,
				Start:      data.From,
				Period:     data.Period,
				Bars:       bars,
				StartPrice: data.Synthetic.StartPrice,
				Mu:         data.Synthetic.Mu,
				Sigma:      data.Synthetic.Sigma,
				Digits:     data.Synthetic.Digits,
				AvgVolume:  data.Synthetic.Volume,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("synthetic %s: %w", symbol, err)
			}
			generators = append(generators, generator)
		}
		return datasource.NewMergeSource(generators...), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported data kind %q", data.Kind)
	}
}
