package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// UserProfile is the login identity stored in the user-profiles collection.
// Only the password hash and role ever change after registration.
type UserProfile struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID       string             `bson:"user_id" json:"userId"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"` // Never expose this via JSON
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
}

func (u *UserProfile) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Identity is the resolved caller of a request: who they are and what they may do.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

// Anonymous reports whether the caller has not been resolved to a stored user
// (walk-in onboarding chats).
func (i Identity) Anonymous() bool {
	return i.UserID == ""
}

// CanAccess reports whether the caller may read or modify data owned by ownerID.
func (i Identity) CanAccess(ownerID string) bool {
	return i.Role == RoleAdmin || (i.UserID != "" && i.UserID == ownerID)
}

// UserDetails holds the free-form profile attributes gathered at onboarding.
// Memories are free-text notes the assistants may consult.
type UserDetails struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID         string             `bson:"user_id" json:"userId"`
	PersonalInfo   map[string]any     `bson:"personal_info,omitempty" json:"personalInfo,omitempty"`
	FitnessProfile map[string]any     `bson:"fitness_profile,omitempty" json:"fitnessProfile,omitempty"`
	HealthInfo     map[string]any     `bson:"health_info,omitempty" json:"healthInfo,omitempty"`
	Lifestyle      map[string]any     `bson:"lifestyle,omitempty" json:"lifestyle,omitempty"`
	Memories       []string           `bson:"memories,omitempty" json:"memories,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updatedAt"`
}

// WithoutMemories returns a copy stripped of memories and storage metadata,
// the shape handed to plan generation prompts.
func (d UserDetails) WithoutMemories() map[string]any {
	out := map[string]any{}
	if len(d.PersonalInfo) > 0 {
		out["personal_info"] = d.PersonalInfo
	}
	if len(d.FitnessProfile) > 0 {
		out["fitness_profile"] = d.FitnessProfile
	}
	if len(d.HealthInfo) > 0 {
		out["health_info"] = d.HealthInfo
	}
	if len(d.Lifestyle) > 0 {
		out["lifestyle"] = d.Lifestyle
	}
	return out
}

// AudioUpload stores metadata about an archived voice note. The clip itself lives in object storage.
type AudioUpload struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"user_id" json:"userId"`
	ObjectKey   string             `bson:"object_key" json:"-"` // internal use
	FileName    string             `bson:"file_name" json:"fileName"`
	ContentType string             `bson:"content_type" json:"contentType"`
	Size        int64              `bson:"size" json:"size"`
	Transcript  string             `bson:"transcript" json:"transcript"`
	UploadedAt  time.Time          `bson:"uploaded_at" json:"uploadedAt"`
}
