package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

// Resets events stuck in the transient registering status back to approved.
// The service does this on startup too; this tool covers the case where the
// service itself cannot come up.
func main() {
	_ = godotenv.Load()

	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	res, err := db.Exec(
		"UPDATE events SET status = 'approved', updated_at = NOW() WHERE status = 'registering'")
	if err != nil {
		panic(err)
	}

	n, _ := res.RowsAffected()
	fmt.Printf("Requeued %d stuck events\n", n)
}
