// Package leads is the typed, invariant-enforcing access layer over the lead table.
// It is the only package that issues SQL against the store.
package leads

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"leadgenius-engine/internal/domain"
	"leadgenius-engine/internal/store"
)

var ErrNotFound = errors.New("lead not found")

// createdAtLayout sorts lexically in the same order as CURRENT_TIMESTAMP values
// written by older exports.
const createdAtLayout = "2006-01-02 15:04:05.000"

var leadColumns = []string{
	"id", "name", "address", "rating", "latitude", "longitude", "industry",
	"marketGaps", "pitchAngle", "website", "hasChatbot", "hasOnlineBooking",
	"sentiment", "isSaved", "notes", "proposal", "createdAt",
}

type Repository struct {
	store *store.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewRepository(s *store.Store, log *zap.Logger) *Repository {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository{store: s, log: log, now: time.Now}
}

// Upsert inserts or updates by id. The effective isSaved is savedOverride when
// given, else the stored value, else false. Blank notes/proposal never erase
// stored content, and createdAt is only written on insert.
func (r *Repository) Upsert(ctx context.Context, lead domain.Lead, savedOverride *bool) error {
	if strings.TrimSpace(lead.ID) == "" {
		return errors.New("upsert lead: empty id")
	}

	gaps := lead.MarketGaps
	if gaps == nil {
		gaps = []string{}
	}
	gapsJSON, err := json.Marshal(gaps)
	if err != nil {
		return fmt.Errorf("upsert lead: encode marketGaps: %w", err)
	}

	createdAt := lead.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	var saved any
	if savedOverride != nil {
		saved = boolToInt(*savedOverride)
	}

	err = r.store.Mutate(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
INSERT INTO leads (id, name, address, rating, latitude, longitude, industry, marketGaps, pitchAngle, website,
  hasChatbot, hasOnlineBooking, sentiment, isSaved, notes, proposal, createdAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, 0), ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  name=excluded.name,
  address=excluded.address,
  rating=excluded.rating,
  latitude=excluded.latitude,
  longitude=excluded.longitude,
  industry=excluded.industry,
  marketGaps=excluded.marketGaps,
  pitchAngle=excluded.pitchAngle,
  website=excluded.website,
  hasChatbot=excluded.hasChatbot,
  hasOnlineBooking=excluded.hasOnlineBooking,
  sentiment=excluded.sentiment,
  isSaved=COALESCE(?, leads.isSaved),
  notes=COALESCE(excluded.notes, leads.notes),
  proposal=COALESCE(excluded.proposal, leads.proposal);`,
			lead.ID, lead.Name, lead.Address, lead.Rating, lead.Latitude, lead.Longitude, lead.Industry,
			string(gapsJSON), lead.PitchAngle, strings.TrimSpace(lead.Website),
			boolToInt(lead.HasChatbot), boolToInt(lead.HasOnlineBooking),
			string(domain.ParseSentiment(string(lead.Sentiment))),
			saved, nullIfBlank(lead.Notes), nullIfBlank(lead.Proposal),
			createdAt.UTC().Format(createdAtLayout),
			saved,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert lead %s: %w", lead.ID, err)
	}
	return nil
}

// UpdateIntelligence patches only notes, proposal and pitchAngle. An empty
// patch does nothing. An unknown id returns ErrNotFound and writes nothing.
func (r *Repository) UpdateIntelligence(ctx context.Context, id string, patch domain.IntelligencePatch) error {
	if patch.Empty() {
		return nil
	}

	q := sq.Update("leads").Where(sq.Eq{"id": id})
	if patch.Notes != nil {
		q = q.Set("notes", *patch.Notes)
	}
	if patch.Proposal != nil {
		q = q.Set("proposal", *patch.Proposal)
	}
	if patch.PitchAngle != nil {
		q = q.Set("pitchAngle", *patch.PitchAngle)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return err
	}

	return r.store.Mutate(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update intelligence %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ToggleSave flips isSaved in one UPDATE and returns the new value.
func (r *Repository) ToggleSave(ctx context.Context, id string) (bool, error) {
	var saved sql.NullInt64
	err := r.store.Mutate(ctx, func(ctx context.Context, db *sql.DB) error {
		err := db.QueryRowContext(ctx,
			`UPDATE leads SET isSaved = NOT COALESCE(isSaved, 0) WHERE id = ? RETURNING isSaved;`, id).Scan(&saved)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		return false, err
	}
	return saved.Int64 == 1, nil
}

// GetAll returns every lead, most recently scouted first.
func (r *Repository) GetAll(ctx context.Context) ([]domain.Lead, error) {
	query, args, err := sq.Select(leadColumns...).
		From("leads").
		OrderBy("createdAt DESC", "rowid DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	out := []domain.Lead{}
	err = r.store.Read(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			l, err := scanLead(rows)
			if err != nil {
				return err
			}
			out = append(out, l)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return out, nil
}

// GetByID returns nil, nil when no lead has the id.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	query, args, err := sq.Select(leadColumns...).
		From("leads").
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var found *domain.Lead
	err = r.store.Read(ctx, func(ctx context.Context, db *sql.DB) error {
		l, err := scanLead(db.QueryRowContext(ctx, query, args...))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = &l
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get lead %s: %w", id, err)
	}
	return found, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(row scanner) (domain.Lead, error) {
	var (
		l                                    domain.Lead
		name, address, industry, gaps, pitch sql.NullString
		website, sentiment, notes, proposal  sql.NullString
		rating, lat, lng                     sql.NullFloat64
		hasChatbot, hasBooking, isSaved      sql.NullInt64
		createdAt                            any
	)
	if err := row.Scan(
		&l.ID, &name, &address, &rating, &lat, &lng, &industry,
		&gaps, &pitch, &website, &hasChatbot, &hasBooking,
		&sentiment, &isSaved, &notes, &proposal, &createdAt,
	); err != nil {
		return domain.Lead{}, err
	}

	l.Name = name.String
	l.Address = address.String
	l.Rating = rating.Float64
	l.Latitude = lat.Float64
	l.Longitude = lng.Float64
	l.Industry = industry.String
	l.MarketGaps = decodeGaps(gaps.String)
	l.PitchAngle = pitch.String
	l.Website = website.String
	l.HasChatbot = hasChatbot.Int64 == 1
	l.HasOnlineBooking = hasBooking.Int64 == 1
	l.Sentiment = domain.ParseSentiment(sentiment.String)
	l.IsSaved = isSaved.Int64 == 1
	l.Notes = notes.String
	l.Proposal = proposal.String
	l.CreatedAt = parseCreatedAt(createdAt)
	return l, nil
}

// decodeGaps tolerates NULL and malformed JSON from foreign snapshots.
func decodeGaps(s string) []string {
	out := []string{}
	if strings.TrimSpace(s) == "" {
		return out
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

var createdAtFormats = []string{
	createdAtLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// The driver hands DATETIME columns back as time.Time when it can parse them
// and as text otherwise.
func parseCreatedAt(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		return parseTimeText(t)
	case []byte:
		return parseTimeText(string(t))
	case int64:
		return time.Unix(t, 0).UTC()
	default:
		return time.Time{}
	}
}

func parseTimeText(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range createdAtFormats {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func nullIfBlank(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
