package territory

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	dErrors "plebis/pkg/domain-errors"
)

// OrderCutoff is the date from which membership orders are rewritten for
// comarcal consistency. Earlier orders predate the comarcal model.
var OrderCutoff = time.Date(2020, 9, 30, 0, 0, 0, 0, time.UTC)

// Stats summarizes one classifier run.
type Stats struct {
	Internal  int
	Spain     int
	Exterior  int
	Orders    int
	Unmatched int
}

// Classifier derives territorial geography for circles from the structure of
// their codes, in three passes: internal circles, circles inside Spain, and
// the exterior remainder. Every row is saved as it is visited, so an
// interrupted run resumes where it stopped. Passes two and three only touch
// rows whose geography is still fully unset, which makes re-runs idempotent;
// the internal pass is unconditional because its outcome is constant.
type Classifier struct {
	circles CircleStore
	orders  OrderStore
	logger  *slog.Logger
	tracer  trace.Tracer
}

type ClassifierOption func(*Classifier)

func WithLogger(logger *slog.Logger) ClassifierOption {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// WithOrderStore enables the order consistency pass.
func WithOrderStore(orders OrderStore) ClassifierOption {
	return func(c *Classifier) {
		c.orders = orders
	}
}

func NewClassifier(circles CircleStore, opts ...ClassifierOption) (*Classifier, error) {
	if circles == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "circle store is required")
	}
	c := &Classifier{
		circles: circles,
		logger:  slog.Default(),
		tracer:  otel.Tracer("plebis/territory"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run executes the full classification, then the order consistency pass when
// an order store is configured.
func (c *Classifier) Run(ctx context.Context) (Stats, error) {
	ctx, span := c.tracer.Start(ctx, "territory.Classify")
	defer span.End()

	var stats Stats
	if err := c.classifyInternal(ctx, &stats); err != nil {
		return stats, err
	}
	if err := c.classifySpain(ctx, &stats); err != nil {
		return stats, err
	}
	if err := c.classifyExterior(ctx, &stats); err != nil {
		return stats, err
	}
	if c.orders != nil {
		if err := c.reconcileOrders(ctx, &stats); err != nil {
			return stats, err
		}
	}
	c.logger.InfoContext(ctx, "territorial classification finished",
		slog.Int("internal", stats.Internal),
		slog.Int("spain", stats.Spain),
		slog.Int("exterior", stats.Exterior),
		slog.Int("orders", stats.Orders),
		slog.Int("unmatched", stats.Unmatched),
	)
	return stats, nil
}

func (c *Classifier) classifyInternal(ctx context.Context, stats *Stats) error {
	return c.circles.ForEachByPrefix(ctx, PrefixInterno, false, func(vc *VoteCircle) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		vc.Kind = KindInterno
		vc.ClearGeography()
		if err := c.circles.Update(ctx, vc); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save internal circle")
		}
		stats.Internal++
		return nil
	})
}

var spainKinds = []struct {
	prefix string
	kind   CircleKind
}{
	{PrefixBarrial, KindBarrial},
	{PrefixMunicipal, KindMunicipal},
	{PrefixComarcal, KindComarcal},
}

func (c *Classifier) classifySpain(ctx context.Context, stats *Stats) error {
	for _, sk := range spainKinds {
		err := c.circles.ForEachByPrefix(ctx, sk.prefix, true, func(vc *VoteCircle) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			vc.Kind = sk.kind
			c.deriveSpainGeography(ctx, vc, stats)
			if err := c.circles.Update(ctx, vc); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save circle geography")
			}
			stats.Spain++
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// deriveSpainGeography fills the geography of a Spanish-prefixed circle. A
// bound municipality wins over the code digits; codes without a municipality
// fall back to the autonomy and province embedded in the code itself. A
// Spanish prefix with a non-Spanish code body is treated as exterior
// geography under a Spanish kind, matching the roster as migrated.
func (c *Classifier) deriveSpainGeography(ctx context.Context, vc *VoteCircle, stats *Stats) {
	spain := "ES"
	switch {
	case len(vc.Town) >= 4:
		province := "p_" + vc.Town[2:4]
		vc.ProvinceCode = &province
		if autonomy, _, ok := AutonomyForProvince(province); ok {
			vc.AutonomyCode = &autonomy
		} else {
			stats.Unmatched++
			c.logger.WarnContext(ctx, "town maps to unknown province",
				slog.String("code", vc.Code),
				slog.String("town", vc.Town),
			)
		}
		if vc.IslandCode == nil {
			if island, _, ok := IslandForTown(vc.Town); ok {
				vc.IslandCode = &island
			}
		}
		vc.CountryCode = &spain

	case vc.CodeInSpain() && len(vc.Code) >= 6:
		autonomy := "c_" + vc.Code[2:4]
		province := "p_" + vc.Code[4:6]
		vc.Town = ""
		vc.AutonomyCode = &autonomy
		vc.ProvinceCode = &province
		vc.CountryCode = &spain

	default:
		country := strings.ToUpper(vc.Code[:2])
		vc.ClearGeography()
		vc.CountryCode = &country
	}
}

func (c *Classifier) classifyExterior(ctx context.Context, stats *Stats) error {
	prefixes := []string{PrefixBarrial, PrefixMunicipal, PrefixComarcal, PrefixInterno}
	return c.circles.ForEachWithoutPrefixes(ctx, prefixes, true, func(vc *VoteCircle) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		vc.Kind = KindExterior
		country := ""
		if len(vc.Code) >= 2 {
			country = strings.ToUpper(vc.Code[:2])
		}
		vc.ClearGeography()
		vc.CountryCode = &country
		if err := c.circles.Update(ctx, vc); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save exterior circle")
		}
		stats.Exterior++
		return nil
	})
}

// reconcileOrders aligns recent membership orders with their circle: an order
// made under a comarcal circle carries the circle's autonomy and no town or
// island. Orders already consistent are left untouched.
func (c *Classifier) reconcileOrders(ctx context.Context, stats *Stats) error {
	return c.orders.ForEachPaidSince(ctx, OrderCutoff, func(o *Order) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if o.VoteCircleID == nil {
			return nil
		}
		circle, err := c.circles.GetByID(ctx, *o.VoteCircleID)
		if err != nil {
			stats.Unmatched++
			c.logger.WarnContext(ctx, "order references missing circle",
				slog.Int64("order_id", o.ID),
				slog.Int64("vote_circle_id", *o.VoteCircleID),
			)
			return nil
		}
		if circle.Kind != KindComarcal {
			return nil
		}
		if ordersAligned(o, circle) {
			return nil
		}
		o.TownCode = nil
		o.IslandCode = nil
		o.AutonomyCode = circle.AutonomyCode
		o.VoteCircleTownCode = nil
		o.VoteCircleIslandCode = nil
		o.VoteCircleAutonomyCode = circle.AutonomyCode
		if err := c.orders.Update(ctx, o); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save order territory")
		}
		stats.Orders++
		return nil
	})
}

func ordersAligned(o *Order, circle *VoteCircle) bool {
	return o.TownCode == nil && o.IslandCode == nil &&
		o.VoteCircleTownCode == nil && o.VoteCircleIslandCode == nil &&
		equalPtr(o.AutonomyCode, circle.AutonomyCode) &&
		equalPtr(o.VoteCircleAutonomyCode, circle.AutonomyCode)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
