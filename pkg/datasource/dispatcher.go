package datasource

import (
	"github.com/peter-kozarec/vbroker/pkg/bus"
	"github.com/peter-kozarec/vbroker/pkg/common"
)

// CreateBarDispatcher returns a router loop callback. Each call reads one
// bar, hands it to process and then posts it on the router. An error from
// the source or from process stops the loop.
func CreateBarDispatcher(r *bus.Router, ds BarDataSource, process func(common.Bar) error) func() error {
	return func() error {
		var bar common.Bar
		var err error

		if bar, err = ds.GetNext(); err != nil {
			return err
		}
		if process != nil {
			if err = process(bar); err != nil {
				return err
			}
		}
		if err = r.Post(bus.BarEvent, bar); err != nil {
			return err
		}
		return nil
	}
}
