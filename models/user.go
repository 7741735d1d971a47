// models/user.go
package models

import "time"

// Role is the account classification driving dashboards and profile rules.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Roles lists every accepted role in display order.
var Roles = []Role{RoleStudent, RoleTeacher}

// UserProfile is the per-user document stored under the identity's uid.
type UserProfile struct {
	UID       string    `json:"uid" bson:"id" firestore:"uid"`
	FullName  string    `json:"fullName" bson:"fullName" firestore:"fullName"`
	Email     string    `json:"email" bson:"email" firestore:"email"`
	Role      Role      `json:"role" bson:"role" firestore:"role"`
	NIC       string    `json:"nic,omitempty" bson:"nic,omitempty" firestore:"nic,omitempty"`
	ContactNo string    `json:"contactNo,omitempty" bson:"contactNo,omitempty" firestore:"contactNo,omitempty"`
	Batch     string    `json:"batch,omitempty" bson:"batch,omitempty" firestore:"batch,omitempty"`
	Stream    string    `json:"stream,omitempty" bson:"stream,omitempty" firestore:"stream,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt" firestore:"updatedAt"`
}

// ProfilePatch is a partial profile; nil fields are left untouched on upsert.
type ProfilePatch struct {
	FullName  *string
	Email     *string
	Role      *Role
	NIC       *string
	ContactNo *string
	Batch     *string
	Stream    *string
}

// Fields returns the set fields keyed by their stored names.
func (p ProfilePatch) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if p.FullName != nil {
		fields["fullName"] = *p.FullName
	}
	if p.Email != nil {
		fields["email"] = *p.Email
	}
	if p.Role != nil {
		fields["role"] = string(*p.Role)
	}
	if p.NIC != nil {
		fields["nic"] = *p.NIC
	}
	if p.ContactNo != nil {
		fields["contactNo"] = *p.ContactNo
	}
	if p.Batch != nil {
		fields["batch"] = *p.Batch
	}
	if p.Stream != nil {
		fields["stream"] = *p.Stream
	}
	return fields
}

// Apply merges the patch into profile.
func (p ProfilePatch) Apply(profile *UserProfile) {
	if p.FullName != nil {
		profile.FullName = *p.FullName
	}
	if p.Email != nil {
		profile.Email = *p.Email
	}
	if p.Role != nil {
		profile.Role = *p.Role
	}
	if p.NIC != nil {
		profile.NIC = *p.NIC
	}
	if p.ContactNo != nil {
		profile.ContactNo = *p.ContactNo
	}
	if p.Batch != nil {
		profile.Batch = *p.Batch
	}
	if p.Stream != nil {
		profile.Stream = *p.Stream
	}
}

// String returns a pointer to s, for building patches.
func String(s string) *string { return &s }

// RolePtr returns a pointer to r, for building patches.
func RolePtr(r Role) *Role { return &r }
