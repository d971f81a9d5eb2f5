package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a local identity, optionally linked to one account per provider.
// Nullable columns keep the unique indexes free of collisions on unset values.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        *string   `gorm:"size:255;uniqueIndex:idx_users_email" json:"email,omitempty"`
	Password     string    `gorm:"size:255" json:"-"`
	FirstName    string    `gorm:"size:100" json:"firstName"`
	LastName     string    `gorm:"size:100" json:"lastName"`
	DisplayName  string    `gorm:"size:255" json:"displayName"`
	ProfilePhoto string    `gorm:"size:1024" json:"profilePhoto,omitempty"`
	FacebookID   *string   `gorm:"size:255;uniqueIndex:idx_users_facebook_id" json:"-"`
	GoogleID     *string   `gorm:"size:255;uniqueIndex:idx_users_google_id" json:"-"`
	Verified     string    `gorm:"size:3;default:'no'" json:"verified"`
	Timezone     string    `gorm:"size:64;default:'UTC'" json:"timezone"`
	Source       string    `gorm:"size:32" json:"source"`
	SocialMedia  string    `gorm:"size:32" json:"socialMedia,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FederatedIDColumn returns the column holding the provider's subject id.
func FederatedIDColumn(p Provider) string {
	switch p {
	case ProviderFacebook:
		return "facebook_id"
	case ProviderGoogle:
		return "google_id"
	}
	return ""
}

func (u *User) federatedField(p Provider) **string {
	switch p {
	case ProviderFacebook:
		return &u.FacebookID
	case ProviderGoogle:
		return &u.GoogleID
	}
	return nil
}

// FederatedID returns the linked subject id, or "" when not linked.
func (u *User) FederatedID(p Provider) string {
	f := u.federatedField(p)
	if f == nil || *f == nil {
		return ""
	}
	return **f
}

// SetFederatedID links the provider subject id. An empty id unlinks.
func (u *User) SetFederatedID(p Provider, id string) {
	f := u.federatedField(p)
	if f == nil {
		return
	}
	if id == "" {
		*f = nil
		return
	}
	*f = &id
}

// FederatedIDs returns every linked provider and its subject id.
func (u *User) FederatedIDs() map[Provider]string {
	ids := make(map[Provider]string, len(Providers))
	for _, p := range Providers {
		if id := u.FederatedID(p); id != "" {
			ids[p] = id
		}
	}
	return ids
}

// EmailAddress returns the email or "" when the user has none.
func (u *User) EmailAddress() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

// SetEmail stores a normalized email; blank clears it.
func (u *User) SetEmail(email string) {
	email = NormalizeEmail(email)
	if email == "" {
		u.Email = nil
		return
	}
	u.Email = &email
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail is the lookup key form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Clone returns a copy that shares no pointers with u.
func (u *User) Clone() *User {
	c := *u
	if u.Email != nil {
		e := *u.Email
		c.Email = &e
	}
	if u.FacebookID != nil {
		id := *u.FacebookID
		c.FacebookID = &id
	}
	if u.GoogleID != nil {
		id := *u.GoogleID
		c.GoogleID = &id
	}
	return &c
}
