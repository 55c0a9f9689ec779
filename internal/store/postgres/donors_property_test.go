package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/jeevandhara/bloodbank/internal/database"
	"github.com/jeevandhara/bloodbank/internal/models"
)

// getTestDSN returns the database DSN for testing.
// Set TEST_DATABASE_URL environment variable to run these tests.
func getTestDSN() string {
	return os.Getenv("TEST_DATABASE_URL")
}

// setupTestDB creates a test database connection and applies the schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := getTestDSN()
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Fatalf("failed to ping database: %v", err)
	}

	// Start from a clean slate so the embedded migrations apply fully.
	for _, table := range []string{"blood_requests", "blood_units", "appointments", "donors", "schema_migrations"} {
		if _, err := db.Exec("DROP TABLE IF EXISTS " + table + " CASCADE"); err != nil {
			db.Close()
			t.Fatalf("failed to drop table %s: %v", table, err)
		}
	}

	if err := database.RunMigrations(dsn); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// cleanupTestDB cleans up test data and closes the connection.
func cleanupTestDB(t *testing.T, db *sql.DB) {
	t.Helper()
	db.Exec("DELETE FROM blood_requests")
	db.Exec("DELETE FROM blood_units")
	db.Exec("DELETE FROM appointments")
	db.Exec("DELETE FROM donors")
	db.Close()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// genBloodType generates a random blood type.
func genBloodType() gopter.Gen {
	return gen.OneConstOf(
		models.BloodTypeAPos, models.BloodTypeANeg,
		models.BloodTypeBPos, models.BloodTypeBNeg,
		models.BloodTypeABPos, models.BloodTypeABNeg,
		models.BloodTypeOPos, models.BloodTypeONeg,
	)
}

// genNonEmptyAlphaString generates a non-empty alpha string with length 1-63.
func genNonEmptyAlphaString() gopter.Gen {
	return gen.IntRange(1, 63).FlatMap(func(v interface{}) gopter.Gen {
		length := v.(int)
		return gen.SliceOfN(length, gen.AlphaChar()).Map(func(chars []rune) string {
			return string(chars)
		})
	}, reflect.TypeOf(""))
}

// genDonorInput generates a random donor for creation. Emails embed a fresh
// UUID so iterations never collide on the unique index.
func genDonorInput() gopter.Gen {
	return gopter.CombineGens(
		genNonEmptyAlphaString(), // Name
		genBloodType(),
		gen.AlphaString(), // Phone
		gen.AlphaString(), // Address
		gen.Bool(),        // Eligible
	).Map(func(vals []interface{}) models.Donor {
		id := uuid.New().String()
		return models.Donor{
			ID:           id,
			Name:         vals[0].(string),
			Email:        id + "@example.com",
			PasswordHash: "x",
			Role:         models.RoleDonor,
			BloodType:    vals[1].(models.BloodType),
			Phone:        vals[2].(string),
			Address:      vals[3].(string),
			Eligible:     vals[4].(bool),
		}
	})
}

func TestDonorCreationRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	store := &DonorStore{db: db, logger: testLogger()}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("Donor creation round-trip preserves data", prop.ForAll(
		func(input models.Donor) bool {
			ctx := context.Background()

			if err := store.Create(ctx, &input); err != nil {
				t.Logf("Create error: %v", err)
				return false
			}

			retrieved, err := store.GetByID(ctx, input.ID)
			if err != nil {
				t.Logf("GetByID error: %v", err)
				return false
			}

			if retrieved.Name != input.Name {
				t.Logf("Name mismatch: got %s, want %s", retrieved.Name, input.Name)
				return false
			}
			if retrieved.Email != input.Email {
				t.Logf("Email mismatch: got %s, want %s", retrieved.Email, input.Email)
				return false
			}
			if retrieved.Role != input.Role {
				t.Logf("Role mismatch: got %s, want %s", retrieved.Role, input.Role)
				return false
			}
			if retrieved.BloodType != input.BloodType {
				t.Logf("BloodType mismatch: got %s, want %s", retrieved.BloodType, input.BloodType)
				return false
			}
			if retrieved.Phone != input.Phone || retrieved.Address != input.Address {
				t.Logf("contact mismatch: got %q/%q, want %q/%q", retrieved.Phone, retrieved.Address, input.Phone, input.Address)
				return false
			}
			if retrieved.Eligible != input.Eligible {
				t.Logf("Eligible mismatch: got %v, want %v", retrieved.Eligible, input.Eligible)
				return false
			}

			return true
		},
		genDonorInput(),
	))

	properties.TestingRun(t)
}

func TestDonorEmailUniqueness(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	store := &DonorStore{db: db, logger: testLogger()}
	ctx := context.Background()

	first := models.Donor{
		ID:           uuid.New().String(),
		Name:         "First",
		Email:        "unique@example.com",
		PasswordHash: "x",
		Role:         models.RoleDonor,
		BloodType:    models.BloodTypeOPos,
	}
	if err := store.Create(ctx, &first); err != nil {
		t.Fatalf("create first donor: %v", err)
	}

	second := first
	second.ID = uuid.New().String()
	second.Name = "Second"
	if err := store.Create(ctx, &second); !errors.Is(err, models.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate email, got %v", err)
	}
}

func TestDonorRecordDonation(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	store := &DonorStore{db: db, logger: testLogger()}
	ctx := context.Background()

	donor := models.Donor{
		ID:           uuid.New().String(),
		Name:         "Counter",
		Email:        "counter@example.com",
		PasswordHash: "x",
		Role:         models.RoleDonor,
		BloodType:    models.BloodTypeBPos,
	}
	if err := store.Create(ctx, &donor); err != nil {
		t.Fatalf("create donor: %v", err)
	}

	at := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	if err := store.RecordDonation(ctx, donor.ID, at); err != nil {
		t.Fatalf("record donation: %v", err)
	}

	got, err := store.GetByID(ctx, donor.ID)
	if err != nil {
		t.Fatalf("get donor: %v", err)
	}
	if got.TotalDonations != 1 {
		t.Errorf("expected 1 donation, got %d", got.TotalDonations)
	}
	if got.LastDonation == nil || !got.LastDonation.Equal(at) {
		t.Errorf("last donation not recorded: %v", got.LastDonation)
	}
}
