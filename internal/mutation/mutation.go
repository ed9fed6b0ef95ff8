// Package mutation sends writes to the backend and invalidates the cached
// resources each write affects. Response payloads are returned to the
// caller and never written into the cache.
package mutation

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/five82/tradedeck/internal/api"
	"github.com/five82/tradedeck/internal/cache"
	"github.com/five82/tradedeck/internal/logging"
	"github.com/five82/tradedeck/internal/resource"
)

// Invalidator is the part of cache.Store mutations need.
type Invalidator interface {
	Invalidate(key cache.Key)
}

var _ Invalidator = (*cache.Store)(nil)

// ValidationError reports input rejected before any request was sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Coordinator runs mutations. It holds no lock: concurrent identical
// mutations are each sent.
type Coordinator struct {
	writer api.Writer
	cache  Invalidator
	log    *logging.Entry
}

// New creates a coordinator. A nil logger discards output.
func New(writer api.Writer, inv Invalidator, log *logging.Log) *Coordinator {
	return &Coordinator{
		writer: writer,
		cache:  inv,
		log:    logging.OrDiscard(log).WithComponent("mutation"),
	}
}

// PlaceOrder validates spec, submits it, and on success invalidates the
// user's orders and balances. MARKET orders are sent without a price.
func (c *Coordinator) PlaceOrder(ctx context.Context, userID int64, spec api.OrderSpec) (api.Order, error) {
	spec, err := ValidateOrder(spec)
	if err != nil {
		return api.Order{}, err
	}
	log := c.log.WithFields(logging.Fields{
		"user_id": userID,
		"symbol":  spec.Symbol,
		"side":    spec.Side,
		"type":    spec.OrderType,
	})
	order, err := c.writer.PlaceOrder(ctx, userID, spec)
	if err != nil {
		log.WithError(err).Warn("place order failed")
		return api.Order{}, fmt.Errorf("place order: %w", err)
	}
	log.WithField("order_id", order.ID).Info("order placed")
	c.invalidate(resource.OrdersKey(userID), resource.BalancesKey(userID))
	return order, nil
}

// CancelOrder cancels orderID and on success invalidates the user's orders.
func (c *Coordinator) CancelOrder(ctx context.Context, userID, orderID int64) (api.Order, error) {
	if orderID <= 0 {
		return api.Order{}, invalid("order id", "must be positive")
	}
	log := c.log.WithFields(logging.Fields{"user_id": userID, "order_id": orderID})
	order, err := c.writer.CancelOrder(ctx, userID, orderID)
	if err != nil {
		log.WithError(err).Warn("cancel order failed")
		return api.Order{}, fmt.Errorf("cancel order %d: %w", orderID, err)
	}
	log.WithField("status", order.Status).Info("order cancelled")
	c.invalidate(resource.OrdersKey(userID))
	return order, nil
}

// CreateStrategy validates draft, submits it, and on success invalidates the
// user's strategies.
func (c *Coordinator) CreateStrategy(ctx context.Context, userID int64, draft api.StrategyDraft) (api.Strategy, error) {
	draft, err := ValidateStrategy(draft)
	if err != nil {
		return api.Strategy{}, err
	}
	log := c.log.WithFields(logging.Fields{"user_id": userID, "name": draft.Name, "type": draft.Type})
	strategy, err := c.writer.CreateStrategy(ctx, userID, draft)
	if err != nil {
		log.WithError(err).Warn("create strategy failed")
		return api.Strategy{}, fmt.Errorf("create strategy: %w", err)
	}
	log.WithField("strategy_id", strategy.ID).Info("strategy created")
	c.invalidate(resource.StrategiesKey(userID))
	return strategy, nil
}

// ToggleStrategyStatus sets a strategy's status and on success invalidates
// the user's strategies.
func (c *Coordinator) ToggleStrategyStatus(ctx context.Context, userID, strategyID int64, status api.StrategyStatus) (api.Strategy, error) {
	if !status.Valid() {
		return api.Strategy{}, invalid("status", fmt.Sprintf("unknown status %q", status))
	}
	log := c.log.WithFields(logging.Fields{"user_id": userID, "strategy_id": strategyID, "status": status})
	strategy, err := c.writer.ToggleStrategyStatus(ctx, userID, strategyID, status)
	if err != nil {
		log.WithError(err).Warn("toggle strategy failed")
		return api.Strategy{}, fmt.Errorf("set strategy %d %s: %w", strategyID, status, err)
	}
	log.Info("strategy status changed")
	c.invalidate(resource.StrategiesKey(userID))
	return strategy, nil
}

func (c *Coordinator) invalidate(keys ...cache.Key) {
	for _, k := range keys {
		c.cache.Invalidate(k)
	}
}

// ValidateOrder checks spec and returns it normalized: symbol upper-cased
// and trimmed, price dropped for MARKET orders.
func ValidateOrder(spec api.OrderSpec) (api.OrderSpec, error) {
	spec.Symbol = strings.ToUpper(strings.TrimSpace(spec.Symbol))
	switch {
	case spec.Symbol == "":
		return spec, invalid("symbol", "required")
	case !spec.ExchangeType.Valid():
		return spec, invalid("exchange", fmt.Sprintf("unknown exchange %q", spec.ExchangeType))
	case !spec.Side.Valid():
		return spec, invalid("side", fmt.Sprintf("unknown side %q", spec.Side))
	case !spec.OrderType.Valid():
		return spec, invalid("order type", fmt.Sprintf("unknown order type %q", spec.OrderType))
	case !spec.Quantity.IsPositive():
		return spec, invalid("quantity", "must be positive")
	}
	if spec.OrderType == api.OrderTypeMarket {
		spec.Price = decimal.NullDecimal{}
		return spec, nil
	}
	if !spec.Price.Valid {
		return spec, invalid("price", "required for LIMIT orders")
	}
	if !spec.Price.Decimal.IsPositive() {
		return spec, invalid("price", "must be positive")
	}
	return spec, nil
}

// ValidateStrategy checks that draft names a known type and carries
// parameters of the matching variant.
func ValidateStrategy(draft api.StrategyDraft) (api.StrategyDraft, error) {
	draft.Name = strings.TrimSpace(draft.Name)
	draft.Symbol = strings.ToUpper(strings.TrimSpace(draft.Symbol))
	switch {
	case draft.Name == "":
		return draft, invalid("name", "required")
	case draft.Symbol == "":
		return draft, invalid("symbol", "required")
	case !draft.Type.Valid():
		return draft, invalid("type", fmt.Sprintf("unknown strategy type %q", draft.Type))
	case draft.Parameters == nil:
		return draft, invalid("parameters", "required")
	case draft.Parameters.StrategyType() != draft.Type:
		return draft, invalid("parameters", fmt.Sprintf("%s parameters for a %s strategy", draft.Parameters.StrategyType(), draft.Type))
	case draft.Status != "" && !draft.Status.Valid():
		return draft, invalid("status", fmt.Sprintf("unknown status %q", draft.Status))
	}
	if _, ok := draft.Parameters.(api.RawParams); ok {
		return draft, invalid("parameters", "typed parameters required")
	}
	return draft, nil
}
