package domain

import "context"

// Storage is the persistence surface for user self-management
type Storage interface {
	ProfileByID(ctx context.Context, userID string) (Profile, bool, error)
	UpdateProfile(ctx context.Context, userID string, displayName, timezone *string) (Profile, bool, error)

	SetAvatar(ctx context.Context, userID string, data []byte, mime string) error
	AvatarByID(ctx context.Context, userID string) (Avatar, bool, error)
	ClearAvatar(ctx context.Context, userID string) error

	GroupsForUser(ctx context.Context, userID string) ([]GroupSummary, error)

	SoftDeleteUser(ctx context.Context, userID string) error
	RevokeRefreshTokens(ctx context.Context, userID string) error
	DeleteDevices(ctx context.Context, userID string) error
}

// ServicePort is the users surface mounted over HTTP
type ServicePort interface {
	Me(ctx context.Context, userID string) (Profile, error)
	UpdateMe(ctx context.Context, userID string, in UpdateProfileInput) (Profile, error)
	UploadAvatar(ctx context.Context, userID string, data []byte) (Profile, error)
	Avatar(ctx context.Context, userID string) (Avatar, error)
	DeleteAvatar(ctx context.Context, userID string) error
	MyGroups(ctx context.Context, userID string) ([]GroupSummary, error)
	DeleteAccount(ctx context.Context, userID string) error
}

// MembershipsPort is implemented by the groups service. Account deletion
// walks the user out of every group through the normal leave semantics so
// successor promotion and empty-group cleanup still happen
type MembershipsPort interface {
	RemoveUserFromAllGroups(ctx context.Context, userID string) error
}
