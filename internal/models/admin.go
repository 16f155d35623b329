package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type AdminRole string

const (
	RoleSuperAdmin      AdminRole = "super_admin"
	RoleModerator       AdminRole = "moderator"
	RoleCustomerService AdminRole = "customer_service"

	AdminColName = "admin_users"
)

// Resource and action names used in permission grants.
const (
	ResourceReviews   = "reviews"
	ResourceProducts  = "products"
	ResourceUsers     = "users"
	ResourceOrders    = "orders"
	ResourceAnalytics = "analytics"

	ActionRead     = "read"
	ActionWrite    = "write"
	ActionDelete   = "delete"
	ActionModerate = "moderate"
)

type AdminPermission struct {
	Resource string   `bson:"resource" json:"resource"`
	Actions  []string `bson:"actions" json:"actions"`
}

type AdminUser struct {
	ID          string            `bson:"_id" json:"id"`
	Email       string            `bson:"email" json:"email" validate:"required,email"`
	Name        string            `bson:"name" json:"name"`
	Role        AdminRole         `bson:"role" json:"role"`
	Avatar      string            `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Permissions []AdminPermission `bson:"permissions" json:"permissions"`
	LastLoginAt *time.Time        `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
}

// HasPermission is the single authorization path for admin operations.
// A super_admin holds every grant implicitly; everyone else is decided by
// the granular permission list.
func (a *AdminUser) HasPermission(resource, action string) bool {
	if a == nil {
		return false
	}
	if a.Role == RoleSuperAdmin {
		return true
	}

	for _, p := range a.Permissions {
		if p.Resource != resource {
			continue
		}
		for _, allowed := range p.Actions {
			if allowed == action {
				return true
			}
		}
	}

	return false
}

type AdminRepo interface {
	GetAdminByID(ctx context.Context, adminId string) (*AdminUser, error)
	TouchLastLogin(ctx context.Context, adminId string) error
}

func (mdb *MongodbRepo) GetAdminByID(ctx context.Context, adminId string) (*AdminUser, error) {
	col, err := mdb.GetCollection(ctx, ReviewDbName, AdminColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %v", err)
	}

	var admin AdminUser
	err = col.FindOne(ctx, bson.M{"_id": adminId}).Decode(&admin)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("error finding admin user: %v", err)
	}

	return &admin, nil
}

func (mdb *MongodbRepo) TouchLastLogin(ctx context.Context, adminId string) error {
	col, err := mdb.GetCollection(ctx, ReviewDbName, AdminColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %v", err)
	}

	_, err = col.UpdateOne(ctx,
		bson.M{"_id": adminId},
		bson.M{"$set": bson.M{"last_login_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("error updating last login: %v", err)
	}

	return nil
}
