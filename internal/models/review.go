package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
	ReviewStatusFlagged  ReviewStatus = "flagged"
)

const (
	ReviewDbName  = "zeloura"
	ReviewColName = "reviews"

	MaxReviewImages  = 3
	MinCommentLength = 10
)

// AdminReply is a staff response attached to a review. Replies are
// append-only: they are never removed or reordered once written.
type AdminReply struct {
	ID        string    `bson:"id" json:"id"`
	AdminID   string    `bson:"admin_id" json:"admin_id"`
	AdminName string    `bson:"admin_name" json:"admin_name"`
	AdminRole string    `bson:"admin_role" json:"admin_role"`
	Message   string    `bson:"message" json:"message"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// ReviewFlag records a shopper report against a review. Append-only.
type ReviewFlag struct {
	Reason     string    `bson:"reason" json:"reason"`
	ReportedBy string    `bson:"reported_by" json:"reported_by"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

type Review struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID          string             `bson:"product_id" json:"product_id" validate:"required"`
	UserID             string             `bson:"user_id" json:"user_id" validate:"required"`
	UserName           string             `bson:"user_name" json:"user_name"`
	Rating             int                `bson:"rating" json:"rating" validate:"required,min=1,max=5"`
	Title              string             `bson:"title" json:"title"`
	Comment            string             `bson:"comment" json:"comment"`
	Images             []string           `bson:"images,omitempty" json:"images,omitempty"`
	Size               string             `bson:"size,omitempty" json:"size,omitempty"`
	Color              string             `bson:"color,omitempty" json:"color,omitempty"`
	IsVerifiedPurchase bool               `bson:"is_verified_purchase" json:"is_verified_purchase"`
	HelpfulCount       int                `bson:"helpful_count" json:"helpful_count"`
	Status             ReviewStatus       `bson:"status" json:"status"`
	ModeratedBy        string             `bson:"moderated_by,omitempty" json:"moderated_by,omitempty"`
	ModeratedAt        *time.Time         `bson:"moderated_at,omitempty" json:"moderated_at,omitempty"`
	ModerationNote     string             `bson:"moderation_note,omitempty" json:"moderation_note,omitempty"`
	AdminReplies       []AdminReply       `bson:"admin_replies,omitempty" json:"admin_replies,omitempty"`
	Flags              []ReviewFlag       `bson:"flags,omitempty" json:"flags,omitempty"`
	Version            int64              `bson:"version" json:"version"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
}

// ModerationAction is an admin decision on a pending or flagged review.
type ModerationAction string

const (
	ModerationActionApprove ModerationAction = "approve"
	ModerationActionReject  ModerationAction = "reject"
	ModerationActionFlag    ModerationAction = "flag"
)

// TargetStatus maps a moderation action to the status it applies. Any
// review can be re-targeted: re-approving an already approved review is
// legal and leaves the status approved.
func (a ModerationAction) TargetStatus() (ReviewStatus, error) {
	switch a {
	case ModerationActionApprove:
		return ReviewStatusApproved, nil
	case ModerationActionReject:
		return ReviewStatusRejected, nil
	case ModerationActionFlag:
		return ReviewStatusFlagged, nil
	default:
		return "", fmt.Errorf("unknown moderation action: %q", a)
	}
}

func (r *Review) BeforeCreate() error {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	r.Status = ReviewStatusPending
	r.HelpfulCount = 0
	r.Version = 0
	r.AdminReplies = nil
	r.Flags = nil
	r.ModeratedBy = ""
	r.ModeratedAt = nil
	r.ModerationNote = ""
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return nil
}

// ValidateDraft checks a submitted review before any persistence attempt.
func (r Review) ValidateDraft() error {
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5")
	}

	if strings.TrimSpace(r.ProductID) == "" {
		return fmt.Errorf("product ID is required")
	}

	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("user ID is required")
	}

	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("review title is required")
	}

	if len(strings.TrimSpace(r.Comment)) < MinCommentLength {
		return fmt.Errorf("review comment must be at least %d characters long", MinCommentLength)
	}

	if len(r.Images) > MaxReviewImages {
		return fmt.Errorf("a review can carry at most %d images", MaxReviewImages)
	}

	return nil
}

func (r *Review) Sanitize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Comment = strings.TrimSpace(r.Comment)
	r.UserName = strings.TrimSpace(r.UserName)
	r.Size = strings.TrimSpace(r.Size)
	r.Color = strings.TrimSpace(r.Color)

	kept := r.Images[:0]
	for _, img := range r.Images {
		if strings.TrimSpace(img) != "" {
			kept = append(kept, strings.TrimSpace(img))
		}
	}
	r.Images = kept
}

// Visible reports whether the review may appear in shopper-facing
// listings and aggregates. Only approved reviews ever qualify.
func (r Review) Visible() bool {
	return r.Status == ReviewStatusApproved
}
