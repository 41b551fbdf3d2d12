package booking

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/booking-ledger/internal/common"
	"github.com/noah-isme/booking-ledger/internal/money"
	"github.com/noah-isme/booking-ledger/internal/pack"
	"github.com/noah-isme/booking-ledger/internal/pricing"
	"github.com/noah-isme/booking-ledger/internal/reqscope"
)

const maxBodyBytes = 64 << 10

// Handler exposes the quote, pack and booking endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   zerolog.Logger
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service   *Service
	Validator *validator.Validate
	Logger    zerolog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	v := cfg.Validator
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}
	return &Handler{service: cfg.Service, validate: v, logger: cfg.Logger}
}

type signalsPayload struct {
	OverrideCode string   `json:"overrideCode" validate:"max=64"`
	AppliedCodes []string `json:"appliedCodes" validate:"max=10,dive,max=64"`
	PackOwnerID  string   `json:"packOwnerId" validate:"max=128"`
}

func (p signalsPayload) signals() PartnerSignals {
	return PartnerSignals{OverrideCode: p.OverrideCode, AppliedCodes: p.AppliedCodes, PackOwnerID: p.PackOwnerID}
}

type quotePayload struct {
	signalsPayload
	EventID            string     `json:"eventId" validate:"required,max=128"`
	ParticipationPrice *string    `json:"participationPrice"`
	RentalPrice        *string    `json:"rentalPrice"`
	HasRental          bool       `json:"hasRental"`
	Now                *time.Time `json:"now"`
}

type linePayload struct {
	ID      string `json:"id" validate:"required,max=128"`
	GroupID string `json:"groupId" validate:"max=128"`
	Scope   string `json:"scope" validate:"required,oneof=participation rental"`
}

type finalizePayload struct {
	signalsPayload
	EventID        string        `json:"eventId" validate:"required,max=128"`
	Lines          []linePayload `json:"lines" validate:"required,min=1,max=2,dive"`
	SubmittedTotal string        `json:"submittedTotal" validate:"required,max=32"`
}

type removeLinePayload struct {
	Lines  []linePayload `json:"lines" validate:"required,min=1,max=20,dive"`
	LineID string        `json:"lineId" validate:"required,max=128"`
}

func toLines(in []linePayload) []pack.Line {
	lines := make([]pack.Line, 0, len(in))
	for _, l := range in {
		scope := pricing.Scope(l.Scope)
		lines = append(lines, pack.Line{ID: l.ID, GroupID: l.GroupID, Scope: scope, Role: pack.RoleFor(scope)})
	}
	return lines
}

// Routes groups the middleware stacks Mount applies. Quotes wraps the
// anonymous preview and pack endpoints. Bookings wraps the finalize and
// ledger endpoints, which need an authenticated actor; Writes
// additionally wraps finalize only.
type Routes struct {
	Quotes   []func(http.Handler) http.Handler
	Bookings []func(http.Handler) http.Handler
	Writes   []func(http.Handler) http.Handler
}

// Mount registers the routes on r.
func (h *Handler) Mount(r chi.Router, routes Routes) {
	r.With(routes.Quotes...).Post("/quotes", h.Quote)
	r.With(routes.Quotes...).Post("/packs/remove-line", h.RemoveLine)
	r.Group(func(b chi.Router) {
		b.Use(routes.Bookings...)
		b.With(routes.Writes...).Post("/bookings/{id}/finalize", h.Finalize)
		b.Get("/bookings/{id}/ledger", h.Ledger)
	})
}

// Quote handles POST /api/v1/quotes.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "booking service not configured", nil)
		return
	}
	sc := h.scope(r)
	ctx := reqscope.WithScope(r.Context(), sc)

	var body quotePayload
	if err := h.decode(w, r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	actor, _ := common.ActorFrom(ctx)
	req := QuoteRequest{
		EventID:    strings.TrimSpace(body.EventID),
		Actor:      actor,
		WithRental: body.HasRental,
		Partner:    body.signals(),
	}
	if body.ParticipationPrice != nil {
		v := parseMoney(sc, "participationPrice", *body.ParticipationPrice)
		req.ParticipationPrice = &v
	}
	if body.RentalPrice != nil {
		v := parseMoney(sc, "rentalPrice", *body.RentalPrice)
		req.RentalPrice = &v
	}
	if body.Now != nil {
		req.At = *body.Now
	}

	quote, err := h.service.Quote(ctx, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}

// Finalize handles POST /api/v1/bookings/{id}/finalize.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "booking service not configured", nil)
		return
	}
	actor, ok := common.ActorFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	sc := h.scope(r)
	ctx := reqscope.WithScope(r.Context(), sc)

	var body finalizePayload
	if err := h.decode(w, r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	lines := toLines(body.Lines)

	out, err := h.service.Finalize(ctx, FinalizeRequest{
		BookingID:      chi.URLParam(r, "id"),
		EventID:        strings.TrimSpace(body.EventID),
		Actor:          actor,
		Lines:          lines,
		Partner:        body.signals(),
		SubmittedTotal: parseMoney(sc, "submittedTotal", body.SubmittedTotal),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// RemoveLine handles POST /api/v1/packs/remove-line. It removes one line
// from the caller's transaction together with the rest of its pack and
// returns the lines that remain.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	var body removeLinePayload
	if err := h.decode(w, r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	out, err := pack.Remove(r.Context(), toLines(body.Lines), body.LineID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// Ledger handles GET /api/v1/bookings/{id}/ledger.
func (h *Handler) Ledger(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "booking service not configured", nil)
		return
	}
	actor, ok := common.ActorFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	rec, err := h.service.Ledger(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rec})
}

func (h *Handler) scope(r *http.Request) *reqscope.Scope {
	logger := h.logger
	if id := r.Header.Get("X-Request-Id"); id != "" {
		logger = logger.With().Str("request_id", id).Logger()
	}
	return reqscope.New(logger, h.service.now())
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return common.NewAppError("INVALID_JSON", "invalid request body", http.StatusBadRequest, err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// parseMoney never fails; unparseable input counts as zero and is reported
// once per request.
func parseMoney(sc *reqscope.Scope, field, raw string) float64 {
	v, ok := money.ParseMoneyOK(raw)
	if !ok && strings.TrimSpace(raw) != "" {
		if e := sc.WarnOnce("unparseable_money:" + field); e != nil {
			e.Str("field", field).Str("value", raw).Msg("unparseable money value treated as zero")
		}
	}
	return v
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return common.NewAppError("VALIDATION_FAILED", "invalid request", http.StatusBadRequest, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()] = fe.Tag()
	}
	return common.NewAppError("VALIDATION_FAILED", "invalid request", http.StatusBadRequest, err).
		WithDetails(map[string]any{"fields": fields})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if appErr, ok := common.AsAppError(err); ok {
		var syntaxErr *json.SyntaxError
		if appErr.Details == nil && errors.As(appErr.Err, &syntaxErr) {
			appErr.Details = map[string]any{"offset": syntaxErr.Offset}
		}
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			h.logger.Error().Err(err).Str("code", appErr.Code).Msg("booking request failed")
		}
		common.WriteAppError(w, appErr, http.StatusInternalServerError)
		return
	}
	if errors.Is(err, ErrNotConfigured) {
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "booking service unavailable", nil)
		return
	}
	h.logger.Error().Err(err).Msg("booking request failed")
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
