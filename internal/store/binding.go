package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func scanBindingType(row interface{ Scan(...any) error }) (BindingType, error) {
	var b BindingType
	err := row.Scan(&b.ID, &b.Name, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (s *Store) CreateBindingType(ctx context.Context, name string) (BindingType, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO binding_types (name) VALUES ($1)
		RETURNING id, name, is_active, created_at, updated_at`, name)
	return scanBindingType(row)
}

func (s *Store) GetBindingType(ctx context.Context, id uuid.UUID) (BindingType, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, is_active, created_at, updated_at
		FROM binding_types WHERE id = $1`, id)
	return scanBindingType(row)
}

func (s *Store) GetBindingTypeByName(ctx context.Context, name string) (BindingType, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, is_active, created_at, updated_at
		FROM binding_types WHERE name = $1`, name)
	return scanBindingType(row)
}

func (s *Store) ListBindingTypes(ctx context.Context, activeOnly bool) ([]BindingType, error) {
	q := `SELECT id, name, is_active, created_at, updated_at FROM binding_types`
	if activeOnly {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY name`
	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BindingType
	for rows.Next() {
		b, err := scanBindingType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) UpdateBindingType(ctx context.Context, id uuid.UUID, name string, isActive bool) (BindingType, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE binding_types SET name = $2, is_active = $3, updated_at = now()
		WHERE id = $1
		RETURNING id, name, is_active, created_at, updated_at`, id, name, isActive)
	return scanBindingType(row)
}

func (s *Store) DeleteBindingType(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM binding_types WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const bindingRuleColumns = `id, binding_type_id, page_range_start, page_range_end,
	student_price, institute_price, regular_price, is_active, created_at, updated_at`

func scanBindingRule(row interface{ Scan(...any) error }) (BindingPriceRule, error) {
	var r BindingPriceRule
	err := row.Scan(&r.ID, &r.BindingTypeID, &r.PageRangeStart, &r.PageRangeEnd,
		&r.StudentPrice, &r.InstitutePrice, &r.RegularPrice, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func collectBindingRules(rows pgx.Rows) ([]BindingPriceRule, error) {
	defer rows.Close()
	var out []BindingPriceRule
	for rows.Next() {
		r, err := scanBindingRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type BindingRuleParams struct {
	BindingTypeID  uuid.UUID
	PageRangeStart int
	PageRangeEnd   int
	StudentPrice   int64
	InstitutePrice int64
	RegularPrice   int64
}

func (s *Store) CreateBindingRule(ctx context.Context, p BindingRuleParams) (BindingPriceRule, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO binding_price_rules
			(binding_type_id, page_range_start, page_range_end, student_price, institute_price, regular_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+bindingRuleColumns,
		p.BindingTypeID, p.PageRangeStart, p.PageRangeEnd, p.StudentPrice, p.InstitutePrice, p.RegularPrice)
	return scanBindingRule(row)
}

func (s *Store) UpdateBindingRule(ctx context.Context, id uuid.UUID, p BindingRuleParams, isActive bool) (BindingPriceRule, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE binding_price_rules SET
			binding_type_id = $2, page_range_start = $3, page_range_end = $4,
			student_price = $5, institute_price = $6, regular_price = $7,
			is_active = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+bindingRuleColumns,
		id, p.BindingTypeID, p.PageRangeStart, p.PageRangeEnd,
		p.StudentPrice, p.InstitutePrice, p.RegularPrice, isActive)
	return scanBindingRule(row)
}

func (s *Store) GetBindingRule(ctx context.Context, id uuid.UUID) (BindingPriceRule, error) {
	row := s.db.QueryRow(ctx, `SELECT `+bindingRuleColumns+` FROM binding_price_rules WHERE id = $1`, id)
	return scanBindingRule(row)
}

func (s *Store) DeleteBindingRule(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM binding_price_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) ListBindingRules(ctx context.Context, bindingTypeID *uuid.UUID) ([]BindingPriceRule, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bindingRuleColumns+`
		FROM binding_price_rules
		WHERE $1::uuid IS NULL OR binding_type_id = $1
		ORDER BY page_range_start, created_at`, bindingTypeID)
	if err != nil {
		return nil, err
	}
	return collectBindingRules(rows)
}

// ActiveBindingRulesFor returns active rules for a binding type ordered
// oldest first.
func (s *Store) ActiveBindingRulesFor(ctx context.Context, bindingTypeID uuid.UUID) ([]BindingPriceRule, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bindingRuleColumns+`
		FROM binding_price_rules
		WHERE is_active AND binding_type_id = $1
		ORDER BY created_at`, bindingTypeID)
	if err != nil {
		return nil, err
	}
	return collectBindingRules(rows)
}

func (s *Store) OverlappingBindingRules(ctx context.Context, excludeID *uuid.UUID, p BindingRuleParams) ([]BindingPriceRule, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bindingRuleColumns+`
		FROM binding_price_rules
		WHERE is_active
		  AND binding_type_id = $1
		  AND page_range_start <= $3
		  AND page_range_end >= $2
		  AND ($4::uuid IS NULL OR id <> $4)`,
		p.BindingTypeID, p.PageRangeStart, p.PageRangeEnd, excludeID)
	if err != nil {
		return nil, err
	}
	return collectBindingRules(rows)
}
