package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ProductColName = "products"

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name" validate:"required"`
	Price       float64            `bson:"price" json:"price" validate:"required,gt=0"`
	Description string             `bson:"description" json:"description"`
	Image       string             `bson:"image" json:"image"`
	Category    string             `bson:"category" json:"category" validate:"required"`
	Stock       int                `bson:"stock" json:"stock" validate:"min=0"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

func (p *Product) BeforeCreate() error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

type ProductsRepo interface {
	CreateProduct(ctx context.Context, product *Product) (*Product, error)
	GetProductByID(ctx context.Context, productId primitive.ObjectID) (*Product, error)
	ListProducts(ctx context.Context, category string) ([]*Product, error)
	SearchProducts(ctx context.Context, query string) ([]*Product, error)
	UpdateProduct(ctx context.Context, productId primitive.ObjectID, fields map[string]interface{}) (*Product, error)
	DeleteProduct(ctx context.Context, productId primitive.ObjectID) error
}

func (mdb *MongodbRepo) CreateProduct(ctx context.Context, product *Product) (*Product, error) {
	if err := Validate.Struct(product); err != nil {
		return nil, fmt.Errorf("invalid product data: %w", err)
	}

	if err := product.BeforeCreate(); err != nil {
		return nil, fmt.Errorf("failed to prepare product for creation: %w", err)
	}

	col, err := mdb.GetCollection(ctx, ReviewDbName, ProductColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %v", err)
	}

	if _, err := col.InsertOne(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to insert product into database: %w", err)
	}

	return product, nil
}

func (mdb *MongodbRepo) GetProductByID(ctx context.Context, productId primitive.ObjectID) (*Product, error) {
	col, err := mdb.GetCollection(ctx, ReviewDbName, ProductColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %v", err)
	}

	var product Product
	err = col.FindOne(ctx, bson.M{"_id": productId}).Decode(&product)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("error finding product: %v", err)
	}

	return &product, nil
}

func (mdb *MongodbRepo) ListProducts(ctx context.Context, category string) ([]*Product, error) {
	col, err := mdb.GetCollection(ctx, ReviewDbName, ProductColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %v", err)
	}

	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding products: %v", err)
	}
	defer cursor.Close(ctx)

	return decodeProducts(ctx, cursor)
}

func (mdb *MongodbRepo) SearchProducts(ctx context.Context, query string) ([]*Product, error) {
	col, err := mdb.GetCollection(ctx, ReviewDbName, ProductColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %v", err)
	}

	pattern := primitive.Regex{Pattern: strings.TrimSpace(query), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"name": pattern},
		bson.M{"category": pattern},
		bson.M{"description": pattern},
	}}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error searching products: %v", err)
	}
	defer cursor.Close(ctx)

	return decodeProducts(ctx, cursor)
}

func (mdb *MongodbRepo) UpdateProduct(ctx context.Context, productId primitive.ObjectID, fields map[string]interface{}) (*Product, error) {
	col, err := mdb.GetCollection(ctx, ReviewDbName, ProductColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %v", err)
	}

	set := bson.M{"updated_at": time.Now()}
	for key, value := range fields {
		set[key] = value
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated Product
	err = col.FindOneAndUpdate(ctx,
		bson.M{"_id": productId},
		bson.M{"$set": set},
		opts,
	).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("error updating product: %v", err)
	}

	return &updated, nil
}

func (mdb *MongodbRepo) DeleteProduct(ctx context.Context, productId primitive.ObjectID) error {
	col, err := mdb.GetCollection(ctx, ReviewDbName, ProductColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %v", err)
	}

	res, err := col.DeleteOne(ctx, bson.M{"_id": productId})
	if err != nil {
		return fmt.Errorf("error deleting product: %v", err)
	}
	if res.DeletedCount == 0 {
		return ErrProductNotFound
	}

	return nil
}

func decodeProducts(ctx context.Context, cursor *mongo.Cursor) ([]*Product, error) {
	var products []*Product
	for cursor.Next(ctx) {
		var product Product
		if err := cursor.Decode(&product); err != nil {
			return nil, fmt.Errorf("error decoding product: %v", err)
		}
		products = append(products, &product)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %v", err)
	}

	return products, nil
}
