// Package mongo persists ABR decision history, grounded on this
// codebase's settings-repository pattern but append-only rather than
// upsert-one-document: every nextAutoLevel decision is its own
// record.
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"llhlsabr/internal/abr/domain"
	"llhlsabr/internal/abr/orchestrator"
)

type decisionDoc struct {
	Quality   int     `bson:"quality"`
	Rate      float64 `bson:"rate"`
	Rule      string  `bson:"rule"`
	Timestamp int64   `bson:"timestamp"` // unix millis
}

// Repository persists a stream of orchestrator decisions for offline
// analysis.
type Repository struct {
	collection *mongo.Collection
}

func NewRepository(client *mongo.Client, dbName, collectionName string) *Repository {
	return &Repository{collection: client.Database(dbName).Collection(collectionName)}
}

// Record appends one decision.
func (r *Repository) Record(ctx context.Context, d orchestrator.Decision) error {
	_, err := r.collection.InsertOne(ctx, toDoc(d))
	return err
}

// RecordBatch appends the full history slice in one bulk insert,
// matching the orchestrator's History() ring shape.
func (r *Repository) RecordBatch(ctx context.Context, decisions []orchestrator.Decision) error {
	if len(decisions) == 0 {
		return nil
	}
	docs := make([]interface{}, len(decisions))
	for i, d := range decisions {
		docs[i] = toDoc(d)
	}
	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return err
}

// RecentByRule returns the most recently recorded decisions for a
// given rule tag, newest first.
func (r *Repository) RecentByRule(ctx context.Context, rule string, limit int64) ([]orchestrator.Decision, error) {
	opts := options.Find().SetSort(bson.M{"timestamp": -1}).SetLimit(limit)
	cur, err := r.collection.Find(ctx, bson.M{"rule": rule}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []orchestrator.Decision
	for cur.Next(ctx) {
		var doc decisionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, orchestrator.Decision{
			Quality:   doc.Quality,
			Rate:      doc.Rate,
			Rule:      domain.RuleTag(doc.Rule),
			Timestamp: time.UnixMilli(doc.Timestamp),
		})
	}
	return out, cur.Err()
}

func toDoc(d orchestrator.Decision) decisionDoc {
	return decisionDoc{
		Quality:   d.Quality,
		Rate:      d.Rate,
		Rule:      string(d.Rule),
		Timestamp: d.Timestamp.UnixMilli(),
	}
}
