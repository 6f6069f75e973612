package local

const keyPrefix = "game-schedule-"

// KeySet names the cache keys for one storage mode.
type KeySet struct {
	Project       string
	Settings      string
	AdminPassword string
}

var (
	// PrimaryKeys is used in local-only mode and always written as a mirror.
	PrimaryKeys = KeySet{
		Project:       keyPrefix + "project",
		Settings:      keyPrefix + "settings",
		AdminPassword: keyPrefix + "admin-password",
	}

	// FallbackKeys is used when a remote backend is configured.
	FallbackKeys = KeySet{
		Project:       keyPrefix + "project-fallback",
		Settings:      keyPrefix + "settings-fallback",
		AdminPassword: keyPrefix + "admin-password-fallback",
	}
)

const (
	OwnerIDKey = keyPrefix + "owner-id"
	SessionKey = keyPrefix + "admin-session"
)

func (k KeySet) all() []string {
	return []string{k.Project, k.Settings, k.AdminPassword}
}
