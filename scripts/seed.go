package main

import (
	"context"
	"log"
	"os"

	"github.com/cartillasalud/backend/internal/adapters/database"
	"github.com/cartillasalud/backend/internal/application/services"
	"github.com/cartillasalud/backend/internal/domain/entities"
	"github.com/cartillasalud/backend/internal/infrastructure/clients/postgres"
	"github.com/cartillasalud/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	ctx := context.Background()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				directory_entries,
				registrations,
				provider_plans,
				provider_categories,
				provider_specialties,
				providers,
				localities,
				provinces,
				plans,
				categories,
				specialties
			CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	catalogAdapter := database.NewCatalogAdapter()
	providerAdapter := database.NewProviderAdapter()
	directoryAdapter := database.NewDirectoryAdapter()

	catalogService := services.NewCatalogService(pgClient, catalogAdapter, directoryAdapter, nil, nil)
	providerService := services.NewProviderService(pgClient, providerAdapter, catalogAdapter, directoryAdapter, nil, nil, nil)

	// 1. Seed catalog entities
	seed := func(kind entities.EntityKind, input services.CatalogInput) *entities.CatalogEntry {
		entry, err := catalogService.Create(ctx, kind, input)
		if err != nil {
			log.Fatalf("Failed to create %s %q: %v", kind, input.Name, err)
		}
		return entry
	}

	planBasic := seed(entities.KindPlan, services.CatalogInput{Name: "Plan Basico"})
	planPremium := seed(entities.KindPlan, services.CatalogInput{Name: "Plan Premium"})

	catClinic := seed(entities.KindCategory, services.CatalogInput{Name: "Clinica"})
	catLab := seed(entities.KindCategory, services.CatalogInput{Name: "Laboratorio"})

	specCardio := seed(entities.KindSpecialty, services.CatalogInput{Name: "Cardiologia"})
	specPediatrics := seed(entities.KindSpecialty, services.CatalogInput{Name: "Pediatria"})

	provinceBA := seed(entities.KindProvince, services.CatalogInput{Name: "Buenos Aires"})
	provinceCordoba := seed(entities.KindProvince, services.CatalogInput{Name: "Cordoba"})

	localityLaPlata := seed(entities.KindLocality, services.CatalogInput{Name: "La Plata", ProvinceID: provinceBA.ID})
	localityCordoba := seed(entities.KindLocality, services.CatalogInput{Name: "Cordoba Capital", ProvinceID: provinceCordoba.ID})

	// 2. Seed providers with registrations and directory entries
	providerInputs := []services.CreateProviderInput{
		{
			Name:         "Clinica del Sol",
			Address:      "Av. Siempreviva 742",
			Phones:       "0221-4567890",
			Email:        "turnos@clinicadelsol.example",
			LocalityID:   localityLaPlata.ID,
			PlanIDs:      []string{planBasic.ID, planPremium.ID},
			CategoryIDs:  []string{catClinic.ID},
			SpecialtyIDs: []string{specCardio.ID, specPediatrics.ID},
		},
		{
			Name:         "Laboratorio Central",
			Address:      "Bv. San Juan 123",
			Phones:       "0351-1234567",
			Email:        "info@labcentral.example",
			LocalityID:   localityCordoba.ID,
			PlanIDs:      []string{planBasic.ID},
			CategoryIDs:  []string{catLab.ID},
			SpecialtyIDs: []string{specCardio.ID},
		},
	}

	for _, input := range providerInputs {
		result, err := providerService.Create(ctx, input)
		if err != nil {
			log.Fatalf("Failed to create provider %q: %v", input.Name, err)
		}
		log.Printf("Created provider %s (%s) with %d registrations",
			result.Provider.Name, result.Provider.ID, result.Total)
	}

	log.Println("Seeding complete")
}
