package main

import (
	"context"
	"fmt"
	"log"

	"voicepool/internal/config"
	"voicepool/internal/database"
	"voicepool/internal/features/credential"
	"voicepool/internal/features/resource"

	"go.uber.org/fx"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	app := fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			database.NewDatabase,
			credential.NewCredentialRepository,
			resource.NewResourceRepository,
			resource.NewConnectionRepository,
		),
		fx.Invoke(seed),
	)

	app.Run()
}

func seed(lc fx.Lifecycle, shutdowner fx.Shutdowner, credRepo credential.CredentialRepository, resourceRepo resource.ResourceRepository, connRepo resource.ConnectionRepository) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				runSeed(credRepo, resourceRepo, connRepo)
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
	})
}

// runSeed loads a small demo estate: three credentials with uneven load,
// plus one drifted connection so the drift report has something to show.
func runSeed(credRepo credential.CredentialRepository, resourceRepo resource.ResourceRepository, connRepo resource.ConnectionRepository) {
	ctx := context.Background()

	log.Println("Starting database seeding...")

	creds := []credential.Credential{
		{CredentialID: "cred-alpha", Secret: "sk-demo-alpha", Label: "Alpha (primary)", IsActive: true, HealthStatus: credential.HealthUnknown, MaxResourceThreshold: 10},
		{CredentialID: "cred-beta", Secret: "sk-demo-beta", Label: "Beta", IsActive: true, HealthStatus: credential.HealthUnknown, MaxResourceThreshold: 10},
		{CredentialID: "cred-gamma", Secret: "sk-demo-gamma", Label: "Gamma (overflow)", IsActive: true, HealthStatus: credential.HealthUnknown, MaxResourceThreshold: 5},
	}
	for i := range creds {
		if err := credRepo.Create(ctx, &creds[i]); err != nil {
			log.Fatalf("Failed to seed credential %s: %v", creds[i].CredentialID, err)
		}
	}
	log.Printf("Seeded %d credentials", len(creds))

	resources := []resource.Resource{
		{ResourceID: "agent-support", Kind: resource.KindAgent, Name: "Support Agent", OwnerID: "tenant-1", RemoteID: "r-1001", AssignedCredentialID: "cred-alpha"},
		{ResourceID: "agent-sales", Kind: resource.KindAgent, Name: "Sales Agent", OwnerID: "tenant-1", RemoteID: "r-1002", AssignedCredentialID: "cred-alpha"},
		{ResourceID: "agent-intake", Kind: resource.KindAgent, Name: "Intake Agent", OwnerID: "tenant-2", RemoteID: "r-1003", AssignedCredentialID: "cred-beta"},
		{ResourceID: "phone-100", Kind: resource.KindPhoneNumber, Name: "+1 555 0100", OwnerID: "tenant-1", RemoteID: "r-2001", AssignedCredentialID: "cred-alpha"},
		// Deliberately drifted: connected to agent-sales on cred-alpha but
		// registered through cred-beta.
		{ResourceID: "phone-101", Kind: resource.KindPhoneNumber, Name: "+1 555 0101", OwnerID: "tenant-1", RemoteID: "r-2002", AssignedCredentialID: "cred-beta"},
		{ResourceID: "phone-102", Kind: resource.KindPhoneNumber, Name: "+1 555 0102", OwnerID: "tenant-2", RemoteID: "r-2003", AssignedCredentialID: "cred-beta"},
		{ResourceID: "voice-nova", Kind: resource.KindVoice, Name: "Nova", OwnerID: "tenant-1", RemoteID: "r-3001", AssignedCredentialID: "cred-alpha"},
		{ResourceID: "phone-unrouted", Kind: resource.KindPhoneNumber, Name: "+1 555 0199", OwnerID: "tenant-2", RemoteID: "r-2004", AssignedCredentialID: "cred-gamma"},
	}
	for i := range resources {
		if err := resourceRepo.Create(ctx, &resources[i]); err != nil {
			log.Fatalf("Failed to seed resource %s: %v", resources[i].ResourceID, err)
		}
	}
	log.Printf("Seeded %d resources", len(resources))

	connections := []resource.Connection{
		{PhoneNumberID: "phone-100", AgentID: "agent-support"},
		{PhoneNumberID: "phone-101", AgentID: "agent-sales"},
		{PhoneNumberID: "phone-102", AgentID: "agent-intake"},
	}
	for i := range connections {
		if err := connRepo.Create(ctx, &connections[i]); err != nil {
			log.Fatalf("Failed to seed connection %s: %v", connections[i].PhoneNumberID, err)
		}
	}
	log.Printf("Seeded %d connections", len(connections))

	fmt.Println("Seeding complete. Run the reconciliation endpoint to set counters.")
}
