package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	zap "go.uber.org/zap"
)

const listingCollectionName = "listings"

type listingDocument struct {
	Collection      string    `bson:"collection"`
	AssetID         string    `bson:"asset_id"`
	Seller          string    `bson:"seller"`
	AssetKind       string    `bson:"asset_kind"`
	UnitPrice       int64     `bson:"unit_price"`
	RemainingAmount int64     `bson:"remaining_amount"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func fromDomainListing(l *domain.Listing) listingDocument {
	return listingDocument{
		Collection:      l.Collection,
		AssetID:         l.AssetID,
		Seller:          l.Seller,
		AssetKind:       string(l.AssetKind),
		UnitPrice:       l.UnitPrice,
		RemainingAmount: l.RemainingAmount,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

func (d listingDocument) toDomainListing() *domain.Listing {
	return &domain.Listing{
		Collection:      d.Collection,
		AssetID:         d.AssetID,
		Seller:          d.Seller,
		AssetKind:       domain.AssetKind(d.AssetKind),
		UnitPrice:       d.UnitPrice,
		RemainingAmount: d.RemainingAmount,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func keyFilter(key domain.ListingKey) bson.M {
	return bson.M{"collection": key.Collection, "asset_id": key.AssetID}
}

// NewClient connects to MongoDB and pings the primary.
func NewClient(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// ListingRepository implements domain.ListingStore on a MongoDB collection.
// WithinTx needs a replica set; single-node deployments must run as a one-member set.
type ListingRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *logger.Logger
}

// NewListingRepository creates the repository and ensures the unique listing-key index.
func NewListingRepository(client *mongo.Client, db *mongo.Database, log *logger.Logger) (*ListingRepository, error) {
	collection := db.Collection(listingCollectionName)

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "collection", Value: 1}, {Key: "asset_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "seller", Value: 1}}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Error("Failed to create indexes for listings collection", zap.Error(err))
		return nil, fmt.Errorf("failed to create indexes for %s: %w", listingCollectionName, err)
	}
	log.Info("Successfully ensured indexes for listings collection")

	return &ListingRepository{
		client:     client,
		collection: collection,
		logger:     log.Named("ListingRepository"),
	}, nil
}

func (r *ListingRepository) Get(ctx context.Context, key domain.ListingKey) (*domain.Listing, error) {
	r.logger.Debug("Getting listing from DB", zap.String("key", key.String()))
	var doc listingDocument
	err := r.collection.FindOne(ctx, keyFilter(key)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to get listing from DB", zap.Error(err), zap.String("key", key.String()))
		return nil, fmt.Errorf("db findone failed: %w", err)
	}
	return doc.toDomainListing(), nil
}

// Put inserts or replaces the listing stored under its key.
func (r *ListingRepository) Put(ctx context.Context, listing *domain.Listing) error {
	if err := listing.Validate(); err != nil {
		return err
	}
	doc := fromDomainListing(listing)
	key := listing.Key()

	_, err := r.collection.ReplaceOne(ctx, keyFilter(key), doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Warn("Concurrent listing insert lost the race", zap.String("key", key.String()))
			return domain.ErrAlreadyListed
		}
		r.logger.Error("Failed to upsert listing", zap.Error(err), zap.String("key", key.String()))
		return fmt.Errorf("db replace failed: %w", err)
	}
	r.logger.Debug("Listing stored", zap.String("key", key.String()), zap.Int64("remaining", listing.RemainingAmount))
	return nil
}

func (r *ListingRepository) Remove(ctx context.Context, key domain.ListingKey) error {
	if _, err := r.collection.DeleteOne(ctx, keyFilter(key)); err != nil {
		r.logger.Error("Failed to delete listing", zap.Error(err), zap.String("key", key.String()))
		return fmt.Errorf("db delete failed: %w", err)
	}
	return nil
}

func (r *ListingRepository) ListByCollection(ctx context.Context, collection string) ([]*domain.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "asset_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"collection": collection}, opts)
	if err != nil {
		r.logger.Error("Failed to find listings by collection", zap.Error(err), zap.String("collection", collection))
		return nil, fmt.Errorf("db find failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode listings", zap.Error(err))
		return nil, fmt.Errorf("db cursor decode failed: %w", err)
	}
	out := make([]*domain.Listing, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomainListing())
	}
	return out, nil
}

// WithinTx runs fn in a multi-document transaction. A ctx that already carries a session
// joins it. The transaction is driven by hand rather than through Session.WithTransaction,
// whose automatic retry would run fn's payments and asset transfers a second time.
func (r *ListingRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start mongo session: %w", err)
	}
	defer sess.EndSession(context.Background())

	if err := sess.StartTransaction(); err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	sessCtx := mongo.NewSessionContext(ctx, sess)

	if err := fn(sessCtx); err != nil {
		if abortErr := sess.AbortTransaction(context.Background()); abortErr != nil {
			r.logger.Error("Failed to abort transaction", zap.Error(abortErr))
		}
		return err
	}
	if err := sess.CommitTransaction(context.Background()); err != nil {
		r.logger.Error("Failed to commit transaction", zap.Error(err))
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyListed
		}
		return fmt.Errorf("%w: commit failed: %v", domain.ErrRepository, err)
	}
	return nil
}
