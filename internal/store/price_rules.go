package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const printRuleColumns = `id, service_type, color_mode, sidedness, page_range_start, page_range_end,
	student_price, institute_price, regular_price, is_active, created_at, updated_at`

func scanPrintRule(row interface{ Scan(...any) error }) (PrintPriceRule, error) {
	var r PrintPriceRule
	err := row.Scan(&r.ID, &r.ServiceType, &r.ColorMode, &r.Sidedness, &r.PageRangeStart, &r.PageRangeEnd,
		&r.StudentPrice, &r.InstitutePrice, &r.RegularPrice, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func collectPrintRules(rows pgx.Rows) ([]PrintPriceRule, error) {
	defer rows.Close()
	var out []PrintPriceRule
	for rows.Next() {
		r, err := scanPrintRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type PrintRuleParams struct {
	ServiceType    string
	ColorMode      string
	Sidedness      string
	PageRangeStart int
	PageRangeEnd   int
	StudentPrice   int64
	InstitutePrice int64
	RegularPrice   int64
}

func (s *Store) CreatePrintRule(ctx context.Context, p PrintRuleParams) (PrintPriceRule, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO print_price_rules
			(service_type, color_mode, sidedness, page_range_start, page_range_end,
			 student_price, institute_price, regular_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+printRuleColumns,
		p.ServiceType, p.ColorMode, p.Sidedness, p.PageRangeStart, p.PageRangeEnd,
		p.StudentPrice, p.InstitutePrice, p.RegularPrice)
	return scanPrintRule(row)
}

func (s *Store) UpdatePrintRule(ctx context.Context, id uuid.UUID, p PrintRuleParams, isActive bool) (PrintPriceRule, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE print_price_rules SET
			service_type = $2, color_mode = $3, sidedness = $4,
			page_range_start = $5, page_range_end = $6,
			student_price = $7, institute_price = $8, regular_price = $9,
			is_active = $10, updated_at = now()
		WHERE id = $1
		RETURNING `+printRuleColumns,
		id, p.ServiceType, p.ColorMode, p.Sidedness, p.PageRangeStart, p.PageRangeEnd,
		p.StudentPrice, p.InstitutePrice, p.RegularPrice, isActive)
	return scanPrintRule(row)
}

func (s *Store) GetPrintRule(ctx context.Context, id uuid.UUID) (PrintPriceRule, error) {
	row := s.db.QueryRow(ctx, `SELECT `+printRuleColumns+` FROM print_price_rules WHERE id = $1`, id)
	return scanPrintRule(row)
}

func (s *Store) ListPrintRules(ctx context.Context, activeOnly bool) ([]PrintPriceRule, error) {
	q := `SELECT ` + printRuleColumns + ` FROM print_price_rules`
	if activeOnly {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY service_type, color_mode, sidedness, page_range_start, created_at`
	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return collectPrintRules(rows)
}

// ActivePrintRulesFor returns active rules whose dimensions accept the given
// color mode and sidedness, exact matches and 'both' alike, ordered oldest
// first so downstream tie breaking is stable.
func (s *Store) ActivePrintRulesFor(ctx context.Context, serviceType, colorMode, sidedness string) ([]PrintPriceRule, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+printRuleColumns+`
		FROM print_price_rules
		WHERE is_active
		  AND service_type = $1
		  AND color_mode IN ($2, 'both')
		  AND sidedness IN ($3, 'both')
		ORDER BY created_at`,
		serviceType, colorMode, sidedness)
	if err != nil {
		return nil, err
	}
	return collectPrintRules(rows)
}

// OverlappingPrintRules returns active rules that share a dimension overlap
// and intersect the page range, excluding the rule being edited.
func (s *Store) OverlappingPrintRules(ctx context.Context, excludeID *uuid.UUID, p PrintRuleParams) ([]PrintPriceRule, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+printRuleColumns+`
		FROM print_price_rules
		WHERE is_active
		  AND service_type = $1
		  AND (color_mode = $2 OR color_mode = 'both' OR $2 = 'both')
		  AND (sidedness = $3 OR sidedness = 'both' OR $3 = 'both')
		  AND page_range_start <= $5
		  AND page_range_end >= $4
		  AND ($6::uuid IS NULL OR id <> $6)`,
		p.ServiceType, p.ColorMode, p.Sidedness, p.PageRangeStart, p.PageRangeEnd, excludeID)
	if err != nil {
		return nil, err
	}
	return collectPrintRules(rows)
}
