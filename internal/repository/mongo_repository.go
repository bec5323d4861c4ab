package repository

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fjod/go_cart/shopcore/internal/domain"
)

const cartItemsCollection = "cart_items"

type lineItemDocument struct {
	ProductID   int64     `bson:"product_id"`
	ProductName string    `bson:"product_name"`
	ImageURL    string    `bson:"image_url"`
	UnitPrice   string    `bson:"unit_price"`
	Quantity    int       `bson:"quantity"`
	Seq         int64     `bson:"seq"`
	AddedAt     time.Time `bson:"added_at"`
}

func (d lineItemDocument) toDomain() (*domain.LineItem, error) {
	price, err := decimal.NewFromString(d.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("corrupt unit_price for product %d: %w", d.ProductID, err)
	}
	return &domain.LineItem{
		ProductID:   d.ProductID,
		ProductName: d.ProductName,
		ImageURL:    d.ImageURL,
		UnitPrice:   price,
		Quantity:    d.Quantity,
		AddedAt:     d.AddedAt,
	}, nil
}

// MongoTable keeps one document per cart line. Insertion order is tracked in
// a seq field that is only written on insert.
type MongoTable struct {
	client     *mongo.Client
	collection *mongo.Collection
	seq        atomic.Int64
}

// ConnectMongo dials uri, verifies the connection, ensures indexes and
// returns a table over database.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoTable, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(20)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	t, err := NewMongoTable(ctx, client.Database(database))
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	t.client = client
	return t, nil
}

// NewMongoTable uses an existing database handle. Close on the result does
// not disconnect the client.
func NewMongoTable(ctx context.Context, db *mongo.Database) (*MongoTable, error) {
	t := &MongoTable{collection: db.Collection(cartItemsCollection)}
	if err := t.createIndexes(ctx); err != nil {
		return nil, err
	}

	var last lineItemDocument
	err := t.collection.FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}})).Decode(&last)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to read last sequence: %w", err)
	}
	t.seq.Store(last.Seq)
	return t, nil
}

func (t *MongoTable) createIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "product_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "seq", Value: 1}},
		},
	}

	if _, err := t.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (t *MongoTable) Upsert(ctx context.Context, item domain.LineItem) error {
	filter := bson.M{"product_id": item.ProductID}
	update := bson.M{
		"$set": bson.M{
			"product_name": item.ProductName,
			"image_url":    item.ImageURL,
			"unit_price":   item.UnitPrice.String(),
			"quantity":     item.Quantity,
		},
		"$setOnInsert": bson.M{
			"seq":      t.seq.Add(1),
			"added_at": item.AddedAt,
		},
	}

	_, err := t.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", domain.ErrInvariantViolation, err)
		}
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	return nil
}

func (t *MongoTable) Get(ctx context.Context, productID int64) (*domain.LineItem, error) {
	var doc lineItemDocument
	err := t.collection.FindOne(ctx, bson.M{"product_id": productID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return doc.toDomain()
}

func (t *MongoTable) Delete(ctx context.Context, productID int64) (bool, error) {
	result, err := t.collection.DeleteOne(ctx, bson.M{"product_id": productID})
	if err != nil {
		return false, fmt.Errorf("failed to delete item: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (t *MongoTable) DeleteAll(ctx context.Context) (int64, error) {
	result, err := t.collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	return result.DeletedCount, nil
}

func (t *MongoTable) List(ctx context.Context) ([]domain.LineItem, error) {
	cur, err := t.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer cur.Close(ctx)

	items := []domain.LineItem{}
	for cur.Next(ctx) {
		var doc lineItemDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}
		item, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return items, nil
}

func (t *MongoTable) Close(ctx context.Context) error {
	if t.client == nil {
		return nil
	}
	return t.client.Disconnect(ctx)
}
