package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/booking-ledger/internal/partner"
)

const (
	lookupPartnerSQL = `SELECT code, user_id, discount_pct, commission_pct, email
FROM partners WHERE lower(code) = $1 AND active`
	partnerCodeForUserSQL = `SELECT code FROM partners WHERE user_id = $1 AND active ORDER BY created_at LIMIT 1`
)

// PartnerDirectory is the Postgres backed partner.Directory.
type PartnerDirectory struct {
	DB DB
}

// LookupCode implements partner.Directory.
func (d PartnerDirectory) LookupCode(ctx context.Context, code string) (partner.Record, bool, error) {
	code = partner.NormalizeCode(code)
	if code == "" {
		return partner.Record{}, false, nil
	}
	var rec partner.Record
	err := d.DB.QueryRow(ctx, lookupPartnerSQL, code).Scan(&rec.Code, &rec.UserID, &rec.DiscountPct, &rec.CommissionPct, &rec.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return partner.Record{}, false, nil
		}
		return partner.Record{}, false, fmt.Errorf("lookup partner: %w", err)
	}
	return rec, true, nil
}

// CodeForUser implements partner.Directory.
func (d PartnerDirectory) CodeForUser(ctx context.Context, userID string) (string, bool, error) {
	if userID == "" {
		return "", false, nil
	}
	var code string
	if err := d.DB.QueryRow(ctx, partnerCodeForUserSQL, userID).Scan(&code); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("partner for user: %w", err)
	}
	return code, true, nil
}
