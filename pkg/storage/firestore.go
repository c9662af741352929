package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/log"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

const runsCollection = "runs"

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. Each run is a document in "runs" holding the run as a JSON
// string plus the fields needed to query it.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// an empty project ID is detected from the environment
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// SaveRun implements Database.
func (f *FirestoreProvider) SaveRun(ctx context.Context, run types.FleetRun) error {
	if run.ID == "" {
		return fmt.Errorf("run id cannot be empty")
	}
	jsonBytes, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	_, err = f.client.Collection(runsCollection).Doc(run.ID).Set(ctx, map[string]any{
		"json":      string(jsonBytes),
		"month":     run.Month.String(),
		"createdAt": run.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun implements Database.
func (f *FirestoreProvider) GetRun(ctx context.Context, id string) (types.FleetRun, error) {
	if id == "" {
		return types.FleetRun{}, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}
	doc, err := f.client.Collection(runsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.FleetRun{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return types.FleetRun{}, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return decodeRun(ctx, doc)
}

// ListRuns implements Database.
func (f *FirestoreProvider) ListRuns(ctx context.Context, month types.Month) ([]types.FleetRun, error) {
	q := f.client.Collection(runsCollection).Query
	if !month.IsZero() {
		q = q.Where("month", "==", month.String())
	}
	iter := q.Documents(ctx)
	defer iter.Stop()

	var runs []types.FleetRun
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating runs: %w", err)
		}
		run, err := decodeRun(ctx, doc)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	// sorted here so the equality filter needs no composite index
	sortNewestFirst(runs)
	return runs, nil
}

func decodeRun(ctx context.Context, doc *firestore.DocumentSnapshot) (types.FleetRun, error) {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "run doc missing json", slog.String("runID", doc.Ref.ID), slog.Any("err", err))
		return types.FleetRun{}, fmt.Errorf("run %s missing json: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "run doc json not string", slog.String("runID", doc.Ref.ID))
		return types.FleetRun{}, fmt.Errorf("run %s json not string", doc.Ref.ID)
	}

	var run types.FleetRun
	if err := json.Unmarshal([]byte(jsonStr), &run); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal run", slog.String("runID", doc.Ref.ID), slog.Any("err", err))
		return types.FleetRun{}, fmt.Errorf("failed to unmarshal run %s: %w", doc.Ref.ID, err)
	}
	return run, nil
}
