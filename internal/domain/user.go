package domain

import (
	"time"
)

// User represents a user record. Identity is the stable external subject
// identifier issued by the identity provider; it never changes once the
// record exists. Nickname uniqueness is enforced on the normalized
// (lowercase) form.
type User struct {
	Identity           string    `json:"identity"`
	Nickname           string    `json:"nickname"`
	NicknameNormalized string    `json:"-"`
	ImageURL           string    `json:"image_url,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	Identity  string    `json:"identity"`
	Nickname  string    `json:"nickname"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToResponse converts User to UserResponse.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		Identity:  u.Identity,
		Nickname:  u.Nickname,
		ImageURL:  u.ImageURL,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// CreateUserRequest represents a user creation request.
type CreateUserRequest struct {
	Nickname string `json:"nickname" binding:"required"`
}

// PhotoUploadRequest represents a profile photo upload. Image carries the
// photo bytes base64-encoded, optionally as a data URL. Nickname is only
// consulted when the caller has no record yet (first-upload creation).
type PhotoUploadRequest struct {
	Image    string `json:"image" binding:"required"`
	Nickname string `json:"nickname"`
}

// PhotoInfo reports the normalization outcome for an uploaded photo.
// ReductionPercent may be zero or negative when the canonical re-encode
// does not shrink the input.
type PhotoInfo struct {
	Key              string  `json:"key"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	OriginalSize     int     `json:"original_size"`
	OutputSize       int     `json:"output_size"`
	ReductionPercent float64 `json:"reduction_percent"`
}

// PhotoUploadResponse is returned after a successful photo attach.
type PhotoUploadResponse struct {
	User  UserResponse `json:"user"`
	Photo PhotoInfo    `json:"photo"`
}

// PhotoDetachResponse is returned after removing a user's photo.
type PhotoDetachResponse struct {
	User        UserResponse `json:"user"`
	RemovedKeys []string     `json:"removed_keys"`
}

// PhotoRefreshResponse is returned after re-issuing the photo access URL.
type PhotoRefreshResponse struct {
	User      UserResponse `json:"user"`
	Key       string       `json:"key"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// DeleteUserRequest is the optional body of a delete request; the
// confirmation flag travels as a query parameter.
type DeleteUserRequest struct {
	Reason string `json:"reason"`
}

// DeleteUserResponse reports the outcome of a user deletion, including
// which photo objects were actually removed (partial storage failures do
// not hide the keys that did get removed).
type DeleteUserResponse struct {
	User        UserResponse `json:"user"`
	RemovedKeys []string     `json:"removed_keys"`
	Reason      string       `json:"reason"`
	Warning     string       `json:"warning"`
}

// BatchDeleteRequest asks for up to MaxBatchDeleteSize users to be deleted.
type BatchDeleteRequest struct {
	Identities []string `json:"identities" binding:"required,min=1,max=50"`
	Confirmed  bool     `json:"confirmed"`
	Reason     string   `json:"reason"`
}

// BatchDeleteFailure reports one identity that could not be deleted.
type BatchDeleteFailure struct {
	Identity string `json:"identity"`
	Error    string `json:"error"`
}

// BatchDeleteResponse aggregates per-identity outcomes.
type BatchDeleteResponse struct {
	Deleted []string             `json:"deleted"`
	Failed  []BatchDeleteFailure `json:"failed,omitempty"`
}

// NicknameAvailabilityResponse reports whether a nickname can be claimed.
type NicknameAvailabilityResponse struct {
	Nickname  string `json:"nickname"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}
