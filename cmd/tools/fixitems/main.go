package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Repairs quotations whose item template was seeded twice. For each
// (quotation_id, item_name) group the oldest row is kept; the extra rows and
// any supplier quotes or observations that reference them are removed.
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

	tx, err := db.Begin()
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`
		SELECT id, quotation_id, item_name
		FROM quotation_items q
		WHERE id <> (
			SELECT MIN(id) FROM quotation_items d
			WHERE d.quotation_id = q.quotation_id AND d.item_name = q.item_name
		)
		ORDER BY id;
	`)
	if err != nil {
		log.Fatalf("Failed to find duplicated items: %v", err)
	}

	type dupe struct {
		id          int64
		quotationID int64
		itemName    string
	}
	var dupes []dupe
	for rows.Next() {
		var d dupe
		if err := rows.Scan(&d.id, &d.quotationID, &d.itemName); err != nil {
			log.Fatalf("Failed to scan duplicated item: %v", err)
		}
		dupes = append(dupes, d)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Failed to read duplicated items: %v", err)
	}

	if len(dupes) == 0 {
		log.Println("No duplicated items found.")
		return
	}
	log.Printf("Found %d duplicated item(s).", len(dupes))

	var removedQuotes int64
	for _, d := range dupes {
		res, err := tx.Exec(`DELETE FROM supplier_quotes WHERE quotation_item_id = $1`, d.id)
		if err != nil {
			log.Fatalf("Failed to remove quotes for item %d: %v", d.id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			removedQuotes += n
		}
		if _, err := tx.Exec(`DELETE FROM supplier_observations WHERE quotation_item_id = $1`, d.id); err != nil {
			log.Fatalf("Failed to remove observations for item %d: %v", d.id, err)
		}
		if _, err := tx.Exec(`DELETE FROM quotation_items WHERE id = $1`, d.id); err != nil {
			log.Fatalf("Failed to remove item %d: %v", d.id, err)
		}
		log.Printf("Removed duplicated item %q (quotation %d, id %d).", d.itemName, d.quotationID, d.id)
	}

	if removedQuotes > 0 {
		log.Printf("Removed %d supplier quote(s) linked to duplicated items.", removedQuotes)
	} else {
		log.Println("No supplier quotes referenced the duplicated items.")
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}
	log.Println("Completed successfully.")
}
