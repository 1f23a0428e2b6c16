package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/egx-lab/backend-cotacao/internal/quotation"
	"github.com/egx-lab/backend-cotacao/internal/sequence"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedAdmin(db)
	quotationID := seedQuotation(db)
	seedItems(db, quotationID)
	seedSuppliers(db, quotationID)

	log.Println("Seeding completed successfully!")
}

func nextID(db *sql.DB, entity string) int64 {
	var id int64
	err := db.QueryRow(`
		INSERT INTO counters (key, seq) VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET seq = counters.seq + 1
		RETURNING seq;
	`, entity).Scan(&id)
	if err != nil {
		log.Fatalf("Failed to allocate id for %s: %v", entity, err)
	}
	return id
}

func seedAdmin(db *sql.DB) {
	login := os.Getenv("ADMIN_LOGIN")
	if login == "" {
		login = "admin"
	}
	openID := "local:" + login

	fmt.Println("Seeding Admin User...")
	var existing int64
	err := db.QueryRow(`SELECT id FROM users WHERE open_id = $1`, openID).Scan(&existing)
	if err == nil {
		log.Printf("Admin user already present with id %d", existing)
		return
	}
	if err != sql.ErrNoRows {
		log.Fatalf("Failed to look up admin user: %v", err)
	}

	id := nextID(db, sequence.EntityUser)
	_, err = db.Exec(`
		INSERT INTO users (id, open_id, name, email, login_method, role)
		VALUES ($1, $2, $3, $3, 'local', 'admin')
		ON CONFLICT (open_id) DO NOTHING;
	`, id, openID, login)
	if err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}
}

func seedQuotation(db *sql.DB) int64 {
	fmt.Println("Seeding Quotation...")

	var existing int64
	err := db.QueryRow(`SELECT id FROM quotations WHERE title = 'Cotação de demonstração'`).Scan(&existing)
	if err == nil {
		log.Printf("Demo quotation already present with id %d", existing)
		return existing
	}
	if err != sql.ErrNoRows {
		log.Fatalf("Failed to look up demo quotation: %v", err)
	}

	id := nextID(db, sequence.EntityQuotation)
	_, err = db.Exec(`
		INSERT INTO quotations (id, title, description, status, expires_at)
		VALUES ($1, 'Cotação de demonstração', 'Gerada pelo seeder', 'active', $2);
	`, id, time.Now().AddDate(0, 0, 14))
	if err != nil {
		log.Fatalf("Failed to seed quotation: %v", err)
	}
	return id
}

func seedItems(db *sql.DB, quotationID int64) {
	fmt.Println("Seeding Quotation Items...")

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM quotation_items WHERE quotation_id = $1`, quotationID).Scan(&count); err != nil {
		log.Fatalf("Failed to count items: %v", err)
	}
	if count > 0 {
		log.Printf("Quotation %d already has %d items, skipping", quotationID, count)
		return
	}

	for _, item := range quotation.DefaultItems() {
		id := nextID(db, sequence.EntityQuotationItem)
		_, err := db.Exec(`
			INSERT INTO quotation_items (id, quotation_id, item_name, item_type, quantity, quantity_to_buy)
			VALUES ($1, $2, $3, $4, $5, $6);
		`, id, quotationID, item.ItemName, item.ItemType, item.Quantity, item.QuantityToBuy)
		if err != nil {
			log.Printf("Failed to seed item %s: %v", item.ItemName, err)
		}
	}
}

func seedSuppliers(db *sql.DB, quotationID int64) {
	suppliers := []struct {
		CNPJ        string
		CompanyName string
		Password    string
	}{
		{"11.111.111/0001-11", "Alpha Componentes Ltda", "demo-alpha"},
		{"22.222.222/0001-22", "Beta Eletrônicos SA", "demo-beta"},
	}

	fmt.Println("Seeding Suppliers...")
	for _, s := range suppliers {
		id := nextID(db, sequence.EntitySupplier)
		_, err := db.Exec(`
			INSERT INTO suppliers (id, cnpj, company_name, temporary_password, password_expires_at, is_active, quotation_id)
			VALUES ($1, $2, $3, $4, $5, TRUE, $6)
			ON CONFLICT (cnpj, quotation_id) DO NOTHING;
		`, id, s.CNPJ, s.CompanyName, s.Password, time.Now().AddDate(0, 0, 14), quotationID)
		if err != nil {
			log.Printf("Failed to seed supplier %s: %v", s.CompanyName, err)
		}
	}
}
