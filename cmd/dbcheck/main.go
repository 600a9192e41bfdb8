// Command dbcheck verifies the database settings: it connects with the
// configured credentials and prints the tables and the users columns.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/movie-recommender/internal/config"
	"github.com/ayush/movie-recommender/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	fmt.Println("Movie Recommendation System - Database Check")
	if _, err := os.Stat(".env"); err != nil {
		fmt.Println("warning: .env file not found, using defaults and environment")
	}

	cfg, err := config.Read()
	if err != nil {
		fmt.Printf("FAIL config: %v\n", err)
		return 1
	}
	db := cfg.Database
	password := "(empty)"
	if db.Password != "" {
		password = "***"
	}
	fmt.Printf("\nConfiguration:\n  Host: %s:%d\n  User: %s\n  Database: %s\n  Password: %s\n",
		db.Host, db.Port, db.User, db.Name, password)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, db.DSN())
	if err != nil {
		fmt.Printf("FAIL connect: %v\n", err)
		return 1
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		fmt.Printf("FAIL connect: %v\n", err)
		return 1
	}
	fmt.Println("\nOK connected")

	pg := store.NewPostgresStore(pool)
	tables, err := pg.Tables(ctx)
	if err != nil {
		fmt.Printf("FAIL %v\n", err)
		return 1
	}
	fmt.Println("\nTables:")
	if len(tables) == 0 {
		fmt.Println("  (none, created on first server start)")
	}
	for _, t := range tables {
		fmt.Printf("  %s\n", t)
	}

	cols, err := pg.Columns(ctx, "users")
	if err != nil {
		fmt.Printf("FAIL %v\n", err)
		return 1
	}
	if len(cols) > 0 {
		fmt.Println("\nusers columns:")
		for _, c := range cols {
			fmt.Printf("  %s (%s)\n", c.Name, c.Type)
		}
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("\nFAIL %v\n", err)
		return 1
	}
	fmt.Println("\nAll checks passed.")
	return 0
}
