package container

import (
	"log/slog"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/redis/go-redis/v9"
	"github.com/supabase-community/supabase-go"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/zeloura/api/internal/models"
	"github.com/zeloura/api/internal/services"
	"github.com/zeloura/api/internal/store"
)

const summaryCacheTTL = 15 * time.Minute

// Container holds all application dependencies
type Container struct {
	Logger     *slog.Logger
	Cloudinary *cloudinary.Cloudinary
	// Database clients
	SupabaseClient *supabase.Client
	MongoDBClient  *mongo.Client
	RedisClient    *redis.Client

	ReviewStore       *store.Store
	UserService       *services.UserService
	ReviewService     *services.ReviewService
	ModerationService *services.ModerationService
	ProductService    *services.ProductService
}

// NewContainer creates a new dependency injection container
func NewContainer(
	logger *slog.Logger,
	cloudinary *cloudinary.Cloudinary,
	supabaseClient *supabase.Client,
	mongoDBClient *mongo.Client,
	redisClient *redis.Client,
	supaUrl, supaKey string,
) *Container {
	// Initialize repositories
	supa := models.SupabaseNewRepo(supabaseClient, supaUrl, supaKey)
	mongo := models.MongodbNewRepo(mongoDBClient)

	reviewStore := store.New(mongo, logger)
	summaries := store.NewSummaryCache(redisClient, summaryCacheTTL)

	userService := services.NewUserService(supa)
	reviewService := services.NewReviewService(reviewStore, summaries, logger)
	moderationService := services.NewModerationService(reviewStore, mongo, summaries, logger)
	productService := services.NewProductService(mongo)

	return &Container{
		Logger:            logger,
		Cloudinary:        cloudinary,
		SupabaseClient:    supabaseClient,
		MongoDBClient:     mongoDBClient,
		RedisClient:       redisClient,
		ReviewStore:       reviewStore,
		UserService:       userService,
		ReviewService:     reviewService,
		ModerationService: moderationService,
		ProductService:    productService,
	}
}
