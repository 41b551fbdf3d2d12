package booking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/booking-ledger/internal/common"
	"github.com/noah-isme/booking-ledger/internal/ledger"
	"github.com/noah-isme/booking-ledger/internal/money"
	"github.com/noah-isme/booking-ledger/internal/obs"
	"github.com/noah-isme/booking-ledger/internal/pack"
	"github.com/noah-isme/booking-ledger/internal/partner"
	"github.com/noah-isme/booking-ledger/internal/pricing"
	"github.com/noah-isme/booking-ledger/internal/reqscope"
	"github.com/noah-isme/booking-ledger/internal/store"
)

const (
	pathQuote    = "quote"
	pathFinalize = "finalize"
)

// ErrNotConfigured is returned when a required collaborator is missing.
var ErrNotConfigured = errors.New("booking service not configured")

// ResultStore persists authoritative ledger results.
type ResultStore interface {
	Save(ctx context.Context, rec store.Record) (store.Outcome, error)
	Get(ctx context.Context, bookingID string) (store.Record, bool, error)
}

// PartnerSignals are the inputs the partner resolver considers.
type PartnerSignals struct {
	OverrideCode string
	AppliedCodes []string
	// PackOwnerID is only honoured for administrators.
	PackOwnerID string
}

// QuoteRequest asks for a ledger preview of one pack.
type QuoteRequest struct {
	EventID    string
	Actor      common.Actor
	WithRental bool
	// Form prices replace catalog prices on the preview only.
	ParticipationPrice *float64
	RentalPrice        *float64
	Partner            PartnerSignals
	// At pins the evaluation time. Only honoured for administrators.
	At time.Time
}

// Quote is a non-authoritative ledger preview.
type Quote struct {
	EventID         string          `json:"eventId"`
	Ledger          ledger.Result   `json:"ledger"`
	Partner         partner.Context `json:"partner"`
	ExternalPercent string          `json:"externalPercent"`
	QuotedAt        time.Time       `json:"quotedAt"`
}

// FinalizeRequest recomputes a booking before it is charged.
type FinalizeRequest struct {
	BookingID      string
	EventID        string
	Actor          common.Actor
	Lines          []pack.Line
	Partner        PartnerSignals
	SubmittedTotal float64
}

// Finalized is the authoritative outcome of Finalize.
type Finalized struct {
	BookingID       string                `json:"bookingId"`
	Ledger          ledger.Result         `json:"ledger"`
	Partner         partner.Context       `json:"partner"`
	ExternalPercent string                `json:"externalPercent"`
	Reconciliation  ledger.Reconciliation `json:"reconciliation"`
	Healed          bool                  `json:"healed"`
	Submitted       float64               `json:"submitted"`
	Charged         float64               `json:"charged"`
	Stored          store.Outcome         `json:"stored"`
}

// Service glues the catalog, the partner directory and the calculator.
type Service struct {
	Catalog          Catalog
	Partners         partner.Directory
	Calculator       *ledger.Calculator
	Results          ResultStore
	Tolerance        float64
	PercentSeparator string
	Logger           zerolog.Logger
	Now              func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) scope(ctx context.Context) *reqscope.Scope {
	if sc, ok := reqscope.FromContext(ctx); ok {
		return sc
	}
	return reqscope.New(s.Logger, s.now())
}

// Quote previews the ledger of a pack. It never writes.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	if s == nil || s.Catalog == nil || s.Calculator == nil {
		return Quote{}, ErrNotConfigured
	}
	ctx, span := otel.Tracer("booking.Service").Start(ctx, "BookingService.Quote")
	defer span.End()
	sc := s.scope(ctx)

	ev, err := s.event(ctx, req.EventID)
	if err != nil {
		span.RecordError(err)
		return Quote{}, err
	}
	prices := ev.Prices(req.WithRental)
	if req.ParticipationPrice != nil {
		prices.Participation = money.NonNegative(*req.ParticipationPrice)
	}
	if req.RentalPrice != nil && prices.HasRental {
		prices.Rental = money.NonNegative(*req.RentalPrice)
	}

	at := sc.Now
	if !req.At.IsZero() {
		if req.Actor.Admin {
			at = req.At.UTC()
		} else if e := sc.WarnOnce("quote_at_ignored"); e != nil {
			e.Str("user_id", req.Actor.UserID).Msg("evaluation time override requires admin")
		}
	}

	owner := s.owner(sc, req.Actor, req.Partner.PackOwnerID)
	pc, err := s.resolvePartner(ctx, req.Actor, req.Partner, owner)
	if err != nil {
		// The preview degrades to no attribution; Finalize is the authority.
		if e := sc.WarnOnce("partner_directory"); e != nil {
			e.Err(err).Msg("partner lookup failed; quoting without partner")
		}
		span.RecordError(err)
		pc = partner.Inactive(partner.FlagNone)
	}

	res := s.Calculator.Calculate(ledger.Input{
		Prices:                prices,
		Policy:                ev.Policy,
		EventStart:            ev.StartsAt,
		Now:                   at,
		Partner:               pc,
		PartnerProgramEnabled: ev.PartnerProgramEnabled,
	})
	obs.ObserveLedgerCalculation(pathQuote)
	span.SetAttributes(
		attribute.String("event.id", ev.ID),
		attribute.String("partner.source", string(pc.Source)),
		attribute.Float64("ledger.total_after_eb", res.TotalAfterEB),
	)

	return Quote{
		EventID:         ev.ID,
		Ledger:          res,
		Partner:         pc,
		ExternalPercent: s.externalPercent(res.PartnerDiscountPct),
		QuotedAt:        at,
	}, nil
}

// Finalize recomputes the ledger from the catalog, reconciles the submitted
// total and stores the authoritative result.
func (s *Service) Finalize(ctx context.Context, req FinalizeRequest) (Finalized, error) {
	if s == nil || s.Catalog == nil || s.Calculator == nil {
		return Finalized{}, ErrNotConfigured
	}
	ctx, span := otel.Tracer("booking.Service").Start(ctx, "BookingService.Finalize")
	defer span.End()
	sc := s.scope(ctx)
	fail := func(err error) (Finalized, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Finalized{}, err
	}

	bookingID := strings.TrimSpace(req.BookingID)
	if bookingID == "" {
		return fail(common.NewAppError("INVALID_BOOKING", "booking id is required", http.StatusBadRequest, store.ErrNoBooking))
	}
	owner := s.owner(sc, req.Actor, req.Partner.PackOwnerID)
	if s.Results != nil {
		existing, found, err := s.Results.Get(ctx, bookingID)
		if err != nil {
			return fail(storeUnavailable(err))
		}
		if found {
			if !canAccess(req.Actor, existing) {
				return fail(forbidden(nil))
			}
			if existing.OwnerID != "" {
				owner = existing.OwnerID
			}
		}
	}
	withRental, err := packShape(req.Lines)
	if err != nil {
		return fail(err)
	}
	ev, err := s.event(ctx, req.EventID)
	if err != nil {
		return fail(err)
	}
	if withRental && !ev.RentalAvailable {
		return fail(common.NewAppError("INVALID_PACK", "rental is not offered for this event", http.StatusUnprocessableEntity, nil))
	}
	pc, err := s.resolvePartner(ctx, req.Actor, req.Partner, owner)
	if err != nil {
		return fail(common.NewAppError("PARTNER_DIRECTORY_UNAVAILABLE", "partner directory unavailable", http.StatusServiceUnavailable, err))
	}

	res := s.Calculator.Calculate(ledger.Input{
		Prices:                ev.Prices(withRental),
		Policy:                ev.Policy,
		EventStart:            ev.StartsAt,
		Now:                   sc.Now,
		Partner:               pc,
		PartnerProgramEnabled: ev.PartnerProgramEnabled,
	})
	obs.ObserveLedgerCalculation(pathFinalize)

	rec := ledger.Reconcile(req.SubmittedTotal, res.TotalAfterEB, s.Tolerance)
	obs.ObserveSelfHeal(rec.Healed, rec.Delta)
	ledger.LogHeal(sc.Logger.With().Str("booking_id", bookingID).Str("event_id", ev.ID).Logger(), rec, res)

	out := Finalized{
		BookingID:       bookingID,
		Ledger:          res,
		Partner:         pc,
		ExternalPercent: s.externalPercent(res.PartnerDiscountPct),
		Reconciliation:  rec,
		Healed:          rec.Healed,
		Submitted:       rec.Submitted,
		Charged:         rec.Value,
		Stored:          store.OutcomeUnchanged,
	}
	if s.Results != nil {
		outcome, err := s.Results.Save(ctx, store.Record{
			BookingID: bookingID,
			EventID:   ev.ID,
			OwnerID:   owner,
			Result:    res,
			Partner:   pc,
			Submitted: rec.Submitted,
			Healed:    rec.Healed,
			StoredAt:  sc.Now,
		})
		if errors.Is(err, store.ErrOwnerMismatch) {
			return fail(forbidden(err))
		}
		if err != nil {
			return fail(storeUnavailable(err))
		}
		out.Stored = outcome
		if outcome == store.OutcomeOverwritten {
			sc.Logger.Info().Str("booking_id", bookingID).Float64("total_after_eb", res.TotalAfterEB).Msg("ledger_overwritten")
		}
	}

	span.SetAttributes(
		attribute.String("booking.id", bookingID),
		attribute.String("event.id", ev.ID),
		attribute.Bool("ledger.healed", rec.Healed),
		attribute.String("ledger.stored", string(out.Stored)),
	)
	return out, nil
}

// Ledger returns the stored ledger of a booking. Only the booking's owner
// and administrators may read it.
func (s *Service) Ledger(ctx context.Context, actor common.Actor, bookingID string) (store.Record, error) {
	if s == nil || s.Results == nil {
		return store.Record{}, ErrNotConfigured
	}
	rec, found, err := s.Results.Get(ctx, bookingID)
	if err != nil {
		return store.Record{}, storeUnavailable(err)
	}
	if !found {
		return store.Record{}, common.NewAppError("LEDGER_NOT_FOUND", "no ledger stored for booking", http.StatusNotFound, nil)
	}
	if !canAccess(actor, rec) {
		return store.Record{}, forbidden(nil)
	}
	return rec, nil
}

// owner returns the user a pack is booked for. Administrators may book on
// behalf of someone else; everyone else always books for themselves.
func (s *Service) owner(sc *reqscope.Scope, actor common.Actor, requested string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" || requested == actor.UserID {
		return actor.UserID
	}
	if actor.Admin {
		return requested
	}
	if e := sc.WarnOnce("pack_owner_ignored"); e != nil {
		e.Str("user_id", actor.UserID).Str("pack_owner_id", requested).Msg("pack owner override requires admin")
	}
	return actor.UserID
}

// externalPercent renders a partner percent for the coupon engine.
func (s *Service) externalPercent(p float64) string {
	if s.PercentSeparator == "" {
		return money.FormatPercentForExternal(p)
	}
	return money.FormatPercent(p, s.PercentSeparator)
}

func canAccess(actor common.Actor, rec store.Record) bool {
	return actor.Admin || rec.OwnerID == "" || rec.OwnerID == actor.UserID
}

func forbidden(err error) error {
	return common.NewAppError("FORBIDDEN", "booking belongs to another user", http.StatusForbidden, err)
}

func storeUnavailable(err error) error {
	return common.NewAppError("LEDGER_STORE_UNAVAILABLE", "ledger store unavailable", http.StatusServiceUnavailable, err)
}

func (s *Service) event(ctx context.Context, id string) (Event, error) {
	ev, err := s.Catalog.Event(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return Event{}, common.NewAppError("EVENT_NOT_FOUND", "event not found", http.StatusNotFound, err)
		}
		return Event{}, fmt.Errorf("load event %s: %w", id, err)
	}
	return ev, nil
}

func (s *Service) resolvePartner(ctx context.Context, actor common.Actor, sig PartnerSignals, owner string) (partner.Context, error) {
	if s.Partners == nil {
		return partner.Inactive(partner.FlagNone), nil
	}
	pc, err := partner.NewResolver(s.Partners).Resolve(ctx, partner.Request{
		Actor:        partner.Actor{UserID: actor.UserID, IsAdmin: actor.Admin},
		OverrideCode: sig.OverrideCode,
		AppliedCodes: sig.AppliedCodes,
		PackOwnerID:  owner,
	})
	if err != nil {
		return partner.Inactive(partner.FlagNone), err
	}
	obs.ObservePartnerResolution(string(pc.Source), pc.Active)
	return pc, nil
}

// packShape validates the finalization lines and reports whether the pack
// carries a rental line.
func packShape(lines []pack.Line) (bool, error) {
	var participation, rental int
	for _, l := range lines {
		switch l.Scope {
		case pricing.ScopeParticipation:
			participation++
		case pricing.ScopeRental:
			rental++
		}
	}
	if err := pack.ValidateFinalization(lines); err != nil {
		return false, err
	}
	if participation != 1 || rental > 1 {
		return false, common.NewAppError("INVALID_PACK", "a pack holds one participation line and at most one rental line", http.StatusUnprocessableEntity, nil)
	}
	return rental > 0, nil
}
