package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/refdata/internal/identity"
	"github.com/Checker-Finance/refdata/internal/model"
	"github.com/Checker-Finance/refdata/internal/refdata"
)

// ErrNotFound is returned for names that resolve to nothing in the snapshot.
var ErrNotFound = errors.New("not found")

const dateLayout = "20060102"

// Handler serves read-only lookups against a frozen snapshot.
type Handler struct {
	logger *zap.Logger
	snap   *refdata.Snapshot
	now    func() time.Time
}

func NewHandler(logger *zap.Logger, snap *refdata.Snapshot) *Handler {
	return &Handler{logger: logger, snap: snap, now: time.Now}
}

func notFound(c *fiber.Ctx, what, name string) error {
	return c.Status(fiber.StatusNotFound).JSON(errorResponse{
		Error: fmt.Errorf("%s %q: %w", what, name, ErrNotFound).Error(),
	})
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
}

// ListProducts returns every product info in canonical order.
func (h *Handler) ListProducts(c *fiber.Ctx) error {
	return c.JSON(h.snap.ProductInfos())
}

// GetProduct returns the product info for "<symbol>.<exchange>".
func (h *Handler) GetProduct(c *fiber.Ctx) error {
	name := c.Params("name")
	info, ok := h.snap.ProductInfoByName(name)
	if !ok {
		return notFound(c, "product", name)
	}
	return c.JSON(info)
}

// GetTicker resolves a ticker name to its identity and product parameters.
// Unknown tickers whose product is known are answered without interning.
func (h *Handler) GetTicker(c *fiber.Ctx) error {
	name := c.Params("name")
	symbol, exchange := identity.SplitName(name)
	if symbol == "" || exchange == "" {
		return badRequest(c, fmt.Errorf("ticker %q: want <symbol>.<exchange>", name))
	}

	resp := TickerResponse{
		Name:        name,
		Symbol:      symbol,
		Exchange:    exchange,
		ProductName: identity.ProductName(symbol),
	}
	if t, ok := h.snap.Registry().LookupTicker(symbol, exchange); ok {
		resp.Interned = true
		resp.Product = t.Product
	} else if p, ok := h.snap.ProductForTicker(name); ok {
		resp.Product = p
	} else {
		return notFound(c, "ticker", name)
	}

	if info, ok := h.snap.ProductInfo(resp.Product); ok {
		resp.Info = &info
	}
	return c.JSON(resp)
}

// QuoteFill prices a fill of the ticker from ?direction, ?offset, ?price and
// ?volume, charging commission from the product parameters.
func (h *Handler) QuoteFill(c *fiber.Ctx) error {
	name := c.Params("name")
	symbol, exchange := identity.SplitName(name)
	if symbol == "" || exchange == "" {
		return badRequest(c, fmt.Errorf("ticker %q: want <symbol>.<exchange>", name))
	}

	direction, err := model.ParseDirection(c.Query("direction", string(model.DirectionLong)))
	if err != nil {
		return badRequest(c, err)
	}
	offset, err := model.ParseOffsetFlag(c.Query("offset", string(model.OffsetOpen)))
	if err != nil {
		return badRequest(c, err)
	}
	price, err := decimal.NewFromString(c.Query("price"))
	if err != nil {
		return badRequest(c, fmt.Errorf("price %q: %w", c.Query("price"), err))
	}
	volume, err := decimal.NewFromString(c.Query("volume", "1"))
	if err != nil || !volume.IsPositive() {
		return badRequest(c, fmt.Errorf("volume %q: want a positive number", c.Query("volume")))
	}

	ticker, ok := h.snap.Registry().LookupTicker(symbol, exchange)
	if !ok {
		product, found := h.snap.ProductForTicker(name)
		if !found {
			return notFound(c, "ticker", name)
		}
		ticker = identity.Ticker{
			Symbol:      symbol,
			Exchange:    exchange,
			ProductName: identity.ProductName(symbol),
			Product:     product,
		}
	}
	info, ok := h.snap.ProductInfo(ticker.Product)
	if !ok {
		return notFound(c, "product info", ticker.Product.Name())
	}

	trade := model.Trade{
		Time:       h.now(),
		Ticker:     ticker,
		Direction:  direction,
		Offset:     offset,
		Price:      price,
		Volume:     volume,
		Commission: info.Commission(price, volume, offset),
	}
	return c.JSON(FillResponse{
		Trade:  trade,
		Header: model.TradeSeriesHeader,
		Row:    trade.String(),
	})
}

// ListSessions returns every calendar revision of a timezone.
func (h *Handler) ListSessions(c *fiber.Ctx) error {
	sessions := h.snap.Sessions(c.Params("tz"))
	if sessions == nil {
		sessions = []refdata.TradingSession{}
	}
	return c.JSON(sessions)
}

// GetSession resolves the revision in force on ?date=YYYYMMDD (today when
// omitted). The product may be named by product or by ticker.
func (h *Handler) GetSession(c *fiber.Ctx) error {
	tz := c.Params("tz")
	name := c.Params("product")

	asOf := refdata.DateOf(h.now())
	if raw := c.Query("date"); raw != "" {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return badRequest(c, fmt.Errorf("date %q: want YYYYMMDD", raw))
		}
		asOf = d
	}

	product, ok := h.snap.Registry().LookupProductByName(name)
	if !ok {
		product, ok = h.snap.ProductForTicker(name)
	}
	if !ok {
		return notFound(c, "product", name)
	}

	session, ok := h.snap.Session(tz, product, asOf)
	if !ok {
		h.logger.Debug("api.session_miss",
			zap.String("timezone", tz),
			zap.String("product", product.Name()),
			zap.Time("as_of", asOf))
		return notFound(c, "session", tz+"/"+product.Name())
	}
	return c.JSON(SessionResponse{
		Timezone: tz,
		AsOf:     asOf.Format(dateLayout),
		Session:  session,
	})
}

func (h *Handler) Stats(c *fiber.Ctx) error {
	return c.JSON(h.snap.Stats())
}
