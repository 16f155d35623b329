package services

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/zeloura/api/internal/models"
)

// ProductService is a thin pass-through over the products collection. The
// catalog has no moderation-style logic of its own; the admin dashboard
// uses it to resolve product IDs into display names.
type ProductService struct {
	productsRepo models.ProductsRepo
}

func NewProductService(productsRepo models.ProductsRepo) *ProductService {
	return &ProductService{
		productsRepo: productsRepo,
	}
}

func (ps *ProductService) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := models.Validate.Struct(product); err != nil {
		return nil, fmt.Errorf("invalid product data provided: %v", err)
	}

	return ps.productsRepo.CreateProduct(ctx, product)
}

func (ps *ProductService) GetProductByID(ctx context.Context, productId string) (*models.Product, error) {
	id, err := primitive.ObjectIDFromHex(productId)
	if err != nil {
		return nil, fmt.Errorf("invalid product ID format")
	}

	return ps.productsRepo.GetProductByID(ctx, id)
}

func (ps *ProductService) ListProducts(ctx context.Context, category string) ([]*models.Product, error) {
	return ps.productsRepo.ListProducts(ctx, strings.TrimSpace(category))
}

func (ps *ProductService) SearchProducts(ctx context.Context, query string) ([]*models.Product, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}

	return ps.productsRepo.SearchProducts(ctx, query)
}

func (ps *ProductService) UpdateProduct(ctx context.Context, productId string, fields map[string]interface{}) (*models.Product, error) {
	id, err := primitive.ObjectIDFromHex(productId)
	if err != nil {
		return nil, fmt.Errorf("invalid product ID format")
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	// Immutable bookkeeping fields never come from the client.
	delete(fields, "_id")
	delete(fields, "id")
	delete(fields, "created_at")
	delete(fields, "updated_at")

	return ps.productsRepo.UpdateProduct(ctx, id, fields)
}

func (ps *ProductService) DeleteProduct(ctx context.Context, productId string) error {
	id, err := primitive.ObjectIDFromHex(productId)
	if err != nil {
		return fmt.Errorf("invalid product ID format")
	}

	return ps.productsRepo.DeleteProduct(ctx, id)
}
