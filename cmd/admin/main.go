// Command admin is the operator CLI: list active rooms, close a room,
// promote an account to admin.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"supportchat/backend/internal/config"
	"supportchat/backend/internal/models"
	"supportchat/backend/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewStorageService(db, nil) // No redis needed for the CLI

	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "rooms":
		rooms, err := storageSvc.GetActiveRooms()
		if err != nil {
			log.Fatalf("Error listing rooms: %v", err)
		}
		for _, room := range rooms {
			last := "never"
			if room.LastMessageAt != nil {
				last = room.LastMessageAt.Format("2006-01-02 15:04:05")
			}
			email := ""
			if room.Customer != nil {
				email = room.Customer.Email
			}
			fmt.Printf("%s  %-30s  last message: %s\n", room.ID, email, last)
		}
	case "close":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin close <room_id>")
			os.Exit(1)
		}
		if err := storageSvc.CloseRoom(os.Args[2]); err != nil {
			log.Fatalf("Error closing room: %v", err)
		}
		fmt.Printf("Room %s has been closed.\n", os.Args[2])
	case "promote":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin promote <email>")
			os.Exit(1)
		}
		if err := promote(db, os.Args[2]); err != nil {
			log.Fatalf("Error promoting user: %v", err)
		}
		fmt.Printf("User %s is now an admin.\n", os.Args[2])
	default:
		usage()
	}
}

func promote(db *gorm.DB, email string) error {
	result := db.Model(&models.User{}).
		Where("email = ?", email).
		Update("user_type", models.RoleAdmin)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no user with email %s", email)
	}
	return nil
}

func usage() {
	fmt.Println("Usage: admin <rooms|close|promote> [args]")
	os.Exit(1)
}
