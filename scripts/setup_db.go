//go:build ignore

// Applies scripts/init_db.sql to the database named by POSTGRES_DSN.
//
//	go run scripts/setup_db.go [dsn]
package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"

	_ "github.com/lib/pq"
)

func main() {
	dsn := os.Getenv("POSTGRES_DSN")
	if len(os.Args) > 1 {
		dsn = os.Args[1]
	}
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is not set")
	}

	fmt.Printf("connecting to %s\n", maskPassword(dsn))

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("pinging database: %v", err)
	}

	sqlContent, err := os.ReadFile("scripts/init_db.sql")
	if err != nil {
		log.Fatalf("reading init_db.sql: %v", err)
	}

	if _, err := db.Exec(string(sqlContent)); err != nil {
		log.Fatalf("executing init_db.sql: %v", err)
	}

	tables := []string{
		"users", "organizations", "organization_memberships", "categories",
		"items", "item_components", "transformations",
		"reservations", "reservation_items", "reservation_extensions",
	}
	for _, table := range tables {
		var count int
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			log.Fatalf("verifying table %s: %v", table, err)
		}
		fmt.Printf("table %s: %d rows\n", table, count)
	}

	fmt.Println("database setup complete")
}

func maskPassword(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "(unparseable dsn)"
	}
	if _, has := u.User.Password(); has {
		u.User = url.UserPassword(u.User.Username(), "*****")
	}
	return u.String()
}
