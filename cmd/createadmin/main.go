// Command createadmin provisions (or repairs) the administrator account.
// Registration over HTTP always creates plain users, so this is the only
// way an admin comes into existence.  Usage:
//
//	createadmin -username admin -email admin@example.com -password secret
//
// Running it again for an existing username resets that user's password
// and promotes it to admin.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/avioline/flight-seat-reservation/internal/config"
	"github.com/avioline/flight-seat-reservation/internal/database"
	"github.com/avioline/flight-seat-reservation/internal/model"
	"github.com/avioline/flight-seat-reservation/internal/repository"
	"github.com/avioline/flight-seat-reservation/internal/utils"
)

func main() {
	username := flag.String("username", "admin", "admin username")
	email := flag.String("email", "admin@example.com", "admin email")
	password := flag.String("password", "", "admin password (required)")
	flag.Parse()

	if *password == "" {
		log.Fatal("missing -password")
	}

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	users := repository.NewUserRepo(db)
	uid, err := users.Create(ctx, *username, *email, *password, model.RoleAdmin, cfg.BcryptCost)
	if err == nil {
		log.Printf("created admin %q (id=%d)", *username, uid)
		return
	}
	if err != repository.ErrUsernameExists && err != repository.ErrEmailExists {
		log.Fatalf("create admin failed: %v", err)
	}

	// Already present: reset the password and make sure the role is admin.
	hash, err := utils.HashPassword(*password, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("hash password failed: %v", err)
	}
	res, err := db.ExecContext(ctx,
		"UPDATE users SET password_hash=?, role=? WHERE username=?",
		hash, string(model.RoleAdmin), *username)
	if err != nil {
		log.Fatalf("update admin failed: %v", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		log.Fatalf("user %q not found for update", *username)
	}
	log.Printf("updated admin %q: password reset, role=admin", *username)
}
