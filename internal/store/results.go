// Package store persists authoritative ledger results as booking metadata.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/booking-ledger/internal/ledger"
	"github.com/noah-isme/booking-ledger/internal/lock"
	"github.com/noah-isme/booking-ledger/internal/partner"
)

var (
	// ErrNoBooking is returned when a record carries no booking id.
	ErrNoBooking = errors.New("store: booking id required")
	// ErrOwnerMismatch is returned when a save would hand a booking to a
	// different owner than the one it was first stored for.
	ErrOwnerMismatch = errors.New("store: booking belongs to another owner")
)

// Outcome tells what Save did.
type Outcome string

const (
	OutcomeCreated     Outcome = "created"
	OutcomeUnchanged   Outcome = "unchanged"
	OutcomeOverwritten Outcome = "overwritten"
)

const (
	keyPrefix = "ledger:result:"
	lockTTL   = 5 * time.Second
)

// Record is the ledger metadata stored against a booking.
type Record struct {
	BookingID string          `json:"bookingId"`
	EventID   string          `json:"eventId"`
	OwnerID   string          `json:"ownerId,omitempty"`
	Result    ledger.Result   `json:"result"`
	Partner   partner.Context `json:"partner"`
	Submitted float64         `json:"submitted"`
	Healed    bool            `json:"healed"`
	StoredAt  time.Time       `json:"storedAt"`
}

// ResultStore writes each booking's ledger once and rewrites it only when a
// later authoritative computation disagrees with what is stored.
type ResultStore struct {
	client redis.Cmdable
	locker lock.Locker
	ttl    time.Duration
	now    func() time.Time
}

// NewResultStore constructs a store. A zero ttl keeps records forever.
func NewResultStore(client redis.Cmdable, ttl time.Duration) *ResultStore {
	return &ResultStore{
		client: client,
		locker: lock.Locker{Client: client, Prefix: "ledger:lock:"},
		ttl:    ttl,
		now:    time.Now,
	}
}

func key(bookingID string) string {
	return keyPrefix + bookingID
}

// Get returns the stored record for a booking and whether one exists.
func (s *ResultStore) Get(ctx context.Context, bookingID string) (Record, bool, error) {
	bookingID = strings.TrimSpace(bookingID)
	if s == nil || s.client == nil || bookingID == "" {
		return Record{}, false, nil
	}
	data, err := s.client.Get(ctx, key(bookingID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("get ledger %s: %w", bookingID, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode ledger %s: %w", bookingID, err)
	}
	return rec, true, nil
}

// Save stores rec. The first write wins; later writes replace it only when
// the ledger amounts or the attributed partner differ, and never change the
// owner of an existing record.
func (s *ResultStore) Save(ctx context.Context, rec Record) (Outcome, error) {
	rec.BookingID = strings.TrimSpace(rec.BookingID)
	if rec.BookingID == "" {
		return "", ErrNoBooking
	}
	if s == nil || s.client == nil {
		return OutcomeUnchanged, nil
	}
	if rec.StoredAt.IsZero() {
		rec.StoredAt = s.now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode ledger %s: %w", rec.BookingID, err)
	}

	created, err := s.client.SetNX(ctx, key(rec.BookingID), data, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("store ledger %s: %w", rec.BookingID, err)
	}
	if created {
		return OutcomeCreated, nil
	}

	outcome := OutcomeUnchanged
	err = s.locker.WithLock(ctx, rec.BookingID, lockTTL, func(ctx context.Context) error {
		existing, found, err := s.Get(ctx, rec.BookingID)
		if err != nil {
			return err
		}
		if found && existing.OwnerID != "" && existing.OwnerID != rec.OwnerID {
			return ErrOwnerMismatch
		}
		if found && Same(existing, rec) {
			return nil
		}
		if err := s.client.Set(ctx, key(rec.BookingID), data, s.ttl).Err(); err != nil {
			return fmt.Errorf("overwrite ledger %s: %w", rec.BookingID, err)
		}
		outcome = OutcomeOverwritten
		return nil
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

// Same reports whether two records carry the same ledger and attribution.
func Same(a, b Record) bool {
	ra, rb := a.Result, b.Result
	return ra.BasePrice == rb.BasePrice &&
		ra.EBDiscountAmount == rb.EBDiscountAmount &&
		ra.TotalAfterEB == rb.TotalAfterEB &&
		ra.PartnerDiscountAmount == rb.PartnerDiscountAmount &&
		ra.TotalAfterPartner == rb.TotalAfterPartner &&
		ra.PartnerCommission == rb.PartnerCommission &&
		a.Partner.Code == b.Partner.Code &&
		a.Partner.Active == b.Partner.Active
}
