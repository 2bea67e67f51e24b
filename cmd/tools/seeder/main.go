package main

import (
	"context"
	"log"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-printhub/internal/config"
	"github.com/noah-isme/backend-printhub/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedUsers(ctx, pool)
	seedBindingTypes(ctx, pool)
	seedPrintRules(ctx, pool)
	seedBindingRules(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool) {
	users := []struct {
		Name  string
		Email string
		Phone string
		Tier  string
		Role  string
	}{
		{"Shop Admin", "admin@printhub.in", "9800000001", "Staff", "admin"},
		{"Counter Staff", "counter@printhub.in", "9800000002", "Staff", "employee"},
		{"Ravi Kumar", "ravi@example.com", "9812345678", "Regular", "user"},
		{"Asha Verma", "asha@example.com", "9823456789", "Student", "user"},
		{"NIT Print Cell", "printcell@nit.example.edu", "9834567890", "Institute", "user"},
	}

	hash, err := argon2id.CreateHash("password123", argon2id.DefaultParams)
	if err != nil {
		log.Fatalf("Failed to hash seed password: %v", err)
	}

	log.Println("Seeding Users...")
	for _, u := range users {
		_, err := pool.Exec(ctx, `
			INSERT INTO users (name, email, password_hash, phone, tier, role)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (email) DO NOTHING;
		`, u.Name, u.Email, hash, u.Phone, u.Tier, u.Role)
		if err != nil {
			log.Printf("Failed to seed user %s: %v", u.Email, err)
		}
	}
}

func seedBindingTypes(ctx context.Context, pool *pgxpool.Pool) {
	types := []string{"None", "Spiral", "Staple", "Hardcover"}

	log.Println("Seeding Binding Types...")
	for _, name := range types {
		_, err := pool.Exec(ctx, `
			INSERT INTO binding_types (name) VALUES ($1)
			ON CONFLICT (name) DO NOTHING;
		`, name)
		if err != nil {
			log.Printf("Failed to seed binding type %s: %v", name, err)
		}
	}
}

func seedPrintRules(ctx context.Context, pool *pgxpool.Pool) {
	// Prices in paise per page.
	rules := []struct {
		ColorMode string
		Sidedness string
		Start     int
		End       int
		Student   int64
		Institute int64
		Regular   int64
	}{
		{"mono", "both", 1, 50, 150, 120, 200},
		{"mono", "both", 51, 500, 100, 90, 150},
		{"color", "single", 1, 50, 800, 700, 1000},
		{"color", "double", 1, 50, 700, 600, 900},
		{"color", "both", 51, 500, 600, 500, 800},
	}

	log.Println("Seeding Print Price Rules...")
	for _, r := range rules {
		_, err := pool.Exec(ctx, `
			INSERT INTO print_price_rules
				(service_type, color_mode, sidedness, page_range_start, page_range_end,
				 student_price, institute_price, regular_price)
			SELECT 'Normal Print', $1, $2, $3, $4, $5, $6, $7
			WHERE NOT EXISTS (
				SELECT 1 FROM print_price_rules
				WHERE service_type = 'Normal Print' AND color_mode = $1 AND sidedness = $2
				  AND page_range_start = $3 AND page_range_end = $4
			);
		`, r.ColorMode, r.Sidedness, r.Start, r.End, r.Student, r.Institute, r.Regular)
		if err != nil {
			log.Printf("Failed to seed print rule %s/%s %d-%d: %v", r.ColorMode, r.Sidedness, r.Start, r.End, err)
		}
	}
}

func seedBindingRules(ctx context.Context, pool *pgxpool.Pool) {
	// Flat price per copy for the page range.
	rules := []struct {
		TypeName  string
		Start     int
		End       int
		Student   int64
		Institute int64
		Regular   int64
	}{
		{"Spiral", 1, 100, 3000, 2500, 4000},
		{"Spiral", 101, 500, 5000, 4500, 6000},
		{"Staple", 1, 50, 500, 500, 1000},
		{"Hardcover", 1, 500, 15000, 12000, 20000},
	}

	log.Println("Seeding Binding Price Rules...")
	for _, r := range rules {
		_, err := pool.Exec(ctx, `
			INSERT INTO binding_price_rules
				(binding_type_id, page_range_start, page_range_end,
				 student_price, institute_price, regular_price)
			SELECT bt.id, $2, $3, $4, $5, $6
			FROM binding_types bt
			WHERE bt.name = $1
			  AND NOT EXISTS (
				SELECT 1 FROM binding_price_rules r
				WHERE r.binding_type_id = bt.id
				  AND r.page_range_start = $2 AND r.page_range_end = $3
			);
		`, r.TypeName, r.Start, r.End, r.Student, r.Institute, r.Regular)
		if err != nil {
			log.Printf("Failed to seed binding rule %s %d-%d: %v", r.TypeName, r.Start, r.End, err)
		}
	}
}
