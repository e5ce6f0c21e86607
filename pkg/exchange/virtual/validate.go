package virtual

import (
	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
)

// referencePrice is the price stop loss and take profit are checked against.
func referencePrice(req common.OrderRequest) fixed.Point {
	if !req.Price.IsZero() {
		return req.Price
	}
	switch t := req.Type.(type) {
	case common.Limit:
		return t.Price
	case common.StopLimit:
		return t.Limit
	}
	return fixed.Zero
}

// validate reports whether a request is structurally sound. A stop loss must
// sit strictly on the loss side of the order price and a take profit strictly
// on the profit side.
func validate(req common.OrderRequest) bool {
	if req.Instrument == "" || !req.Direction.IsValid() || req.Size.IsNeg() || req.HCF.IsNeg() {
		return false
	}

	switch t := req.Type.(type) {
	case nil, common.Market:
	case common.Limit:
		if !t.Price.IsPos() {
			return false
		}
	case common.StopLimit:
		if !t.Stop.IsPos() || !t.Limit.IsPos() {
			return false
		}
	case common.Close:
		return t.Related > 0
	case common.Reduce:
		return req.Size.IsPos()
	default:
		return false
	}

	if !req.Size.IsPos() {
		return false
	}

	dir := req.Direction.Sign()
	price := referencePrice(req)

	if req.StopLoss.IsSome() {
		sl := req.StopLoss.Unwrap()
		if sl.Distance.IsSome() && !sl.Distance.Unwrap().IsPos() {
			return false
		}
		if sl.Price.IsNone() && sl.Distance.IsNone() {
			return false
		}
		if sl.Price.IsSome() && !price.IsZero() {
			if !dir.Mul(price.Sub(sl.Price.Unwrap())).IsPos() {
				return false
			}
		}
	}

	if req.TakeProfit.IsSome() && !price.IsZero() {
		if !dir.Mul(req.TakeProfit.Unwrap().Sub(price)).IsPos() {
			return false
		}
	}

	return true
}
