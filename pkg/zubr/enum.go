package zubr

import (
	"fmt"
	"strconv"

	"github.com/zubr-exchange/zubr-sdk/pkg/exception"
)

// OrderSide buy, sell
type OrderSide uint8

const (
	_order_side_beg OrderSide = iota
	OrderSideBuy
	OrderSideSell
	_order_side_end
)

func (s OrderSide) IsAvailable() bool {
	return s > _order_side_beg && s < _order_side_end
}

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "BUY"
	case OrderSideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

func (s OrderSide) MarshalJSON() ([]byte, error) {
	if !s.IsAvailable() {
		return nil, fmt.Errorf("%w: %d", exception.ErrOrderUnsupportedSide, s)
	}
	return strconv.AppendQuote(nil, s.String()), nil
}

func (s *OrderSide) UnmarshalJSON(b []byte) error {
	v, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("%w: %s", exception.ErrOrderUnsupportedSide, b)
	}
	switch v {
	case "BUY":
		*s = OrderSideBuy
	case "SELL":
		*s = OrderSideSell
	default:
		return fmt.Errorf("%w: %q", exception.ErrOrderUnsupportedSide, v)
	}
	return nil
}

// OrderType limit, post only, market
type OrderType uint8

const (
	_order_type_beg OrderType = iota
	OrderTypeLimit
	OrderTypePostOnly
	OrderTypeMarket
	_order_type_end
)

func (t OrderType) IsAvailable() bool {
	return t > _order_type_beg && t < _order_type_end
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypePostOnly:
		return "POST_ONLY"
	case OrderTypeMarket:
		return "MARKET"
	default:
		return "UNKNOWN"
	}
}

func (t OrderType) MarshalJSON() ([]byte, error) {
	if !t.IsAvailable() {
		return nil, fmt.Errorf("%w: %d", exception.ErrOrderUnsupportedType, t)
	}
	return strconv.AppendQuote(nil, t.String()), nil
}

func (t *OrderType) UnmarshalJSON(b []byte) error {
	v, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("%w: %s", exception.ErrOrderUnsupportedType, b)
	}
	switch v {
	case "LIMIT":
		*t = OrderTypeLimit
	case "POST_ONLY":
		*t = OrderTypePostOnly
	case "MARKET":
		*t = OrderTypeMarket
	default:
		return fmt.Errorf("%w: %q", exception.ErrOrderUnsupportedType, v)
	}
	return nil
}

// TimeInForce GTC, IOC, FOK, session
type TimeInForce uint8

const (
	_time_in_force_beg TimeInForce = iota
	TimeInForceGTC
	TimeInForceIOC
	TimeInForceFOK
	TimeInForceSession
	_time_in_force_end
)

func (f TimeInForce) IsAvailable() bool {
	return f > _time_in_force_beg && f < _time_in_force_end
}

func (f TimeInForce) String() string {
	switch f {
	case TimeInForceGTC:
		return "GTC"
	case TimeInForceIOC:
		return "IOC"
	case TimeInForceFOK:
		return "FOK"
	case TimeInForceSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

func (f TimeInForce) MarshalJSON() ([]byte, error) {
	if !f.IsAvailable() {
		return nil, fmt.Errorf("%w: %d", exception.ErrOrderUnsupportedTimeInForce, f)
	}
	return strconv.AppendQuote(nil, f.String()), nil
}

func (f *TimeInForce) UnmarshalJSON(b []byte) error {
	v, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("%w: %s", exception.ErrOrderUnsupportedTimeInForce, b)
	}
	switch v {
	case "GTC":
		*f = TimeInForceGTC
	case "IOC":
		*f = TimeInForceIOC
	case "FOK":
		*f = TimeInForceFOK
	case "SESSION":
		*f = TimeInForceSession
	default:
		return fmt.Errorf("%w: %q", exception.ErrOrderUnsupportedTimeInForce, v)
	}
	return nil
}
