package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/booking-ledger/internal/booking"
	"github.com/noah-isme/booking-ledger/internal/config"
	"github.com/noah-isme/booking-ledger/internal/earlybooking"
	"github.com/noah-isme/booking-ledger/internal/money"
	"github.com/noah-isme/booking-ledger/internal/partner"
	"github.com/noah-isme/booking-ledger/internal/repo"
)

//go:embed seed.json
var defaultSeed []byte

type seedEvent struct {
	ID                    string              `json:"id"`
	Name                  string              `json:"name"`
	StartsAt              time.Time           `json:"startsAt"`
	ParticipationPrice    float64             `json:"participationPrice"`
	RentalPrice           float64             `json:"rentalPrice"`
	RentalAvailable       bool                `json:"rentalAvailable"`
	PartnerProgramEnabled bool                `json:"partnerProgramEnabled"`
	Policy                earlybooking.Policy `json:"earlyBooking"`
}

// percent accepts 7.5, "7.5" or "7,5 %" so fixtures can be pasted from the
// partner spreadsheets as is.
type percent float64

func (p *percent) UnmarshalJSON(data []byte) error {
	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		raw = string(data)
	}
	*p = percent(money.ParsePercent(raw))
	return nil
}

type seedPartner struct {
	Code          string  `json:"code"`
	UserID        string  `json:"userId"`
	Email         string  `json:"email"`
	DiscountPct   percent `json:"discountPct"`
	CommissionPct percent `json:"commissionPct"`
}

type seedFile struct {
	Events   []seedEvent   `json:"events"`
	Partners []seedPartner `json:"partners"`
}

func parseSeed(data []byte) ([]booking.Event, []partner.Record, error) {
	var f seedFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("decode seed: %w", err)
	}
	events := make([]booking.Event, 0, len(f.Events))
	for _, e := range f.Events {
		if strings.TrimSpace(e.ID) == "" {
			return nil, nil, fmt.Errorf("event %q: id is required", e.Name)
		}
		if e.StartsAt.IsZero() {
			return nil, nil, fmt.Errorf("event %s: startsAt is required", e.ID)
		}
		events = append(events, booking.Event{
			ID:                    e.ID,
			Name:                  e.Name,
			StartsAt:              e.StartsAt.UTC(),
			ParticipationPrice:    e.ParticipationPrice,
			RentalPrice:           e.RentalPrice,
			RentalAvailable:       e.RentalAvailable,
			PartnerProgramEnabled: e.PartnerProgramEnabled,
			Policy:                e.Policy,
		})
	}
	partners := make([]partner.Record, 0, len(f.Partners))
	for _, p := range f.Partners {
		code := partner.NormalizeCode(p.Code)
		if code == "" {
			return nil, nil, fmt.Errorf("partner %q: code is required", p.UserID)
		}
		partners = append(partners, partner.Record{
			Code:          code,
			UserID:        strings.TrimSpace(p.UserID),
			Email:         strings.TrimSpace(p.Email),
			DiscountPct:   float64(p.DiscountPct),
			CommissionPct: float64(p.CommissionPct),
		})
	}
	return events, partners, nil
}

func main() {
	var (
		file    = flag.String("file", "", "seed file; defaults to the embedded development fixture")
		migrate = flag.Bool("migrate", true, "apply schema migrations before seeding")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	data := defaultSeed
	if *file != "" {
		if data, err = os.ReadFile(*file); err != nil {
			log.Fatalf("read seed file: %v", err)
		}
	}
	events, partners, err := parseSeed(data)
	if err != nil {
		log.Fatalf("parse seed: %v", err)
	}

	if *migrate {
		if err := repo.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, ev := range events {
			if err := repo.UpsertEvent(ctx, tx, ev); err != nil {
				return err
			}
		}
		for _, rec := range partners {
			if err := repo.UpsertPartner(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("seeded %d events and %d partners", len(events), len(partners))
}
