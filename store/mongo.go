// store/mongo.go
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dalemusser/leadcapture/lead"
)

// Mongo stores leads in a MongoDB collection with a unique index on email.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoLead struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Email       string    `bson:"email"`
	Industry    string    `bson:"industry"`
	Country     string    `bson:"country,omitempty"`
	SubmittedAt time.Time `bson:"submitted_at"`
}

// NewMongo connects, pings, and ensures the unique email index.
func NewMongo(ctx context.Context, uri, dbName string, timeout time.Duration) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	coll := client.Database(dbName).Collection("leads")
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ensure index: %w", err)
	}

	return &Mongo{client: client, coll: coll}, nil
}

func (m *Mongo) SaveLead(ctx context.Context, l lead.Lead) error {
	doc := mongoLead{
		ID:          l.ID,
		Name:        l.Name,
		Email:       l.Email,
		Industry:    string(l.Industry),
		Country:     l.Country,
		SubmittedAt: l.SubmittedAt,
	}
	if _, err := m.coll.InsertOne(ctx, doc); err != nil {
		if isMongoDup(err) {
			return fmt.Errorf("email %s: %w", l.Email, ErrDuplicate)
		}
		return fmt.Errorf("mongo insert lead: %w", err)
	}
	return nil
}

func (m *Mongo) ListLeads(ctx context.Context) ([]lead.Lead, error) {
	cur, err := m.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "submitted_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo list leads: %w", err)
	}
	defer cur.Close(ctx)

	var out []lead.Lead
	for cur.Next(ctx) {
		var doc mongoLead
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo decode lead: %w", err)
		}
		out = append(out, lead.Lead{
			ID:          doc.ID,
			Name:        doc.Name,
			Email:       doc.Email,
			Industry:    lead.Industry(doc.Industry),
			Country:     doc.Country,
			SubmittedAt: doc.SubmittedAt,
		})
	}
	return out, cur.Err()
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// isMongoDup reports whether err is a Mongo duplicate-key error (E11000).
// It handles WriteException, BulkWriteException, CommandError, and falls back
// to a string contains check for robustness across driver versions.
func isMongoDup(err error) bool {
	if err == nil {
		return false
	}

	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, we := range bwe.WriteErrors {
			if we.Code == 11000 {
				return true
			}
		}
		if bwe.WriteConcernError != nil && bwe.WriteConcernError.Code == 11000 {
			return true
		}
	}

	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
		if we.WriteConcernError != nil && we.WriteConcernError.Code == 11000 {
			return true
		}
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}

	s := strings.ToLower(err.Error())
	return strings.Contains(s, "e11000") || strings.Contains(s, "duplicate key")
}
