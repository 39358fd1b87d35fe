package panelsdk

import (
	"encoding/json"
	"time"
)

// ============================================================================
// Envelope
// ============================================================================

// Envelope is the wrapper the archive backend puts around every response.
// A response with Error set is a failure regardless of its HTTP status.
type Envelope[T any] struct {
	// TrackID is the request id the backend assigned (or echoed) for this call
	TrackID string `json:"track_id"`

	// Error marks the call as failed
	Error bool `json:"error"`

	// Message is a human readable status or failure description
	Message string `json:"message"`

	// Data is the resource specific payload
	Data T `json:"data"`
}

// ============================================================================
// Identity Types
// ============================================================================

// Identity is the user record returned by GET /auth/me.
// It is fetched on demand and never cached by the SDK.
type Identity struct {
	ID                 int64     `json:"id"`
	Username           string    `json:"username"`
	Email              string    `json:"email"`
	IsAdmin            bool      `json:"is_admin"`
	MustChangePassword bool      `json:"change_initial_password"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// IdentityProjection is the minimal identity the view layer displays.
type IdentityProjection struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
}

// PermissionLevel is the coarse authorization class derived from Identity.
type PermissionLevel string

const (
	// PermissionUnknown is returned with every error. It must not be read as USER.
	PermissionUnknown PermissionLevel = ""
	PermissionUser    PermissionLevel = "USER"
	PermissionAdmin   PermissionLevel = "ADMIN"
)

// PermissionOf derives the permission level of an identity.
func PermissionOf(id *Identity) PermissionLevel {
	if id == nil {
		return PermissionUnknown
	}
	if id.IsAdmin {
		return PermissionAdmin
	}
	return PermissionUser
}

// ============================================================================
// Auth Requests
// ============================================================================

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterAdminRequest is the body of POST /auth/admin/register.
// It only succeeds while no admin exists.
type RegisterAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,alphanum"`
	Password string `json:"password" validate:"required,min=8"`
}

// ChangeInitialPasswordRequest is the body of POST /pre-auth/change-user-initial-pass.
type ChangeInitialPasswordRequest struct {
	InitialPassword string `json:"initial_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,nefield=InitialPassword"`
}

type loginData struct {
	AccessToken string `json:"access_token,omitempty"`
}

type meData struct {
	User *Identity `json:"user"`
}

type adminExistenceData struct {
	AdminExist bool `json:"admin_exist"`
}

type registerAdminData struct {
	Admin *Identity `json:"admin"`
}

// ============================================================================
// List Types
// ============================================================================

// Record is one heterogeneous row of a resource listing.
type Record map[string]any

// ListResult is the normalized answer of ResourceAdapter.List.
type ListResult struct {
	// Items is at most PerPage long
	Items []Record `json:"items"`

	// Total is the server's count across all pages
	Total int `json:"total"`
}

// listData is the data part of every list envelope.
type listData struct {
	List  []Record `json:"list"`
	Total int      `json:"total"`
}

// CreateResult is the normalized answer of ResourceAdapter.Create.
type CreateResult struct {
	// Record is the submitted payload plus the server assigned id
	Record Record `json:"record"`

	// Raw is the untouched envelope data. Some resources return values the
	// client cannot know (e.g. a server's one-time API key).
	Raw json.RawMessage `json:"raw,omitempty"`
}

// ============================================================================
// Resource Records
// ============================================================================

// Server is a registered source server.
type Server struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NewServer is returned once when a source server is created.
type NewServer struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	APIKey string `json:"api_key"`
}

// File is a backed-up file of a source server.
type File struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Snapshots int       `json:"snapshots"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot is one stored version of a File.
type Snapshot struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Size      string    `json:"size"`
	ByteSize  int64     `json:"byte_size"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a panel user as listed by /users.
type User struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	IsAdmin     bool       `json:"is_admin"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// UserActivity is one audit entry of a user.
type UserActivity struct {
	ID        int64     `json:"id"`
	Act       string    `json:"act"`
	CreatedAt time.Time `json:"created_at"`
}

// ============================================================================
// Metrics Types
// ============================================================================

// CommonMetrics are the dashboard counters.
type CommonMetrics struct {
	BackupFilesCount     int64 `json:"backup_files_count"`
	SourceServersCount   int64 `json:"source_servers_count"`
	SnapshotOccupiedSize int64 `json:"snapshot_occupied_size"`
}

// ActivityDetail holds per source server counts inside a bucket.
type ActivityDetail struct {
	SuccessCount int64 `json:"SuccessCount"`
	FailCount    int64 `json:"FailCount"`
}

// ActivityBucket is one time slice of backup activity.
type ActivityBucket struct {
	From         time.Time                 `json:"from"`
	To           time.Time                 `json:"to"`
	TotalSuccess int64                     `json:"total_success"`
	TotalFail    int64                     `json:"total_fail"`
	Details      map[string]ActivityDetail `json:"details"`
}

type activitiesData struct {
	Metrics []ActivityBucket `json:"metrics"`
}
