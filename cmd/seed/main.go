package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/nearmi/localhunt-backend/config"
	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/internal/app/repository"
	"github.com/nearmi/localhunt-backend/internal/app/repository/docstore"
	"github.com/nearmi/localhunt-backend/internal/app/service"
	"github.com/nearmi/localhunt-backend/internal/db"
	"github.com/nearmi/localhunt-backend/internal/importer"
)

func main() {
	owner := flag.String("owner", "", "email of the account that will own the imported vendors")
	status := flag.String("status", string(model.VendorStatusApproved), "initial vendor status")
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	// arguments
	if flag.NArg() < 1 || *owner == "" {
		log.Fatal("Usage: go run cmd/seed/main.go -owner admin@example.com [-status approved] [-yes] <xlsx_file_path>")
	}
	filePath := flag.Arg(0)

	// config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	ctx := context.Background()

	// database
	conn, err := db.Open(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close(conn)

	if err := db.Migrate(conn); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	userRepo := repository.NewUserRepository(conn)
	vendorRepo := repository.NewVendorRepository(conn)
	reviewRepo := repository.NewReviewRepository(conn)
	if cfg.Firestore.Enabled {
		client, err := docstore.NewClient(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile)
		if err != nil {
			log.Fatal("Failed to initialize Firestore:", err)
		}
		defer client.Close()
		vendorRepo = docstore.NewVendorRepository(client)
		reviewRepo = docstore.NewReviewRepository(client)
	}

	ownerUser, err := userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(*owner)))
	if err != nil {
		log.Fatalf("Owner %s not found: %v", *owner, err)
	}

	// read the sheet
	fmt.Printf("Reading XLSX file: %s\n", filePath)
	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	defer f.Close()

	inputs, report, err := importer.ReadVendors(f)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Rows: %d, accepted: %d, skipped: %d, duplicates: %d, bad coordinates: %d\n",
		report.Rows, report.Accepted, report.Skipped, report.Duplicates, report.BadCoords)

	// confirm with the operator
	if !*yes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	vendorService := service.NewVendorService(vendorRepo, reviewRepo, userRepo, nil, nil, nil, cfg.Search)
	imported, err := vendorService.BulkImport(ctx, ownerUser.ID, model.VendorStatus(*status), inputs)
	if err != nil {
		log.Fatal("Failed to import vendors:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total vendors imported: %d\n", imported)
}
