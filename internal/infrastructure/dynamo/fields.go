package dynamo

// Attribute names shared by update expressions across repos. Constants keep
// the write paths honest: a typo here fails review, a typo in a string
// literal silently creates a new attribute.
const (
	fieldEnable           = "enable"             // soft-delete flag on users, projects, files
	fieldDeletedAt        = "deleted_at"         // set alongside enable=false
	fieldRead             = "read"               // notification read flag
	fieldStatus           = "status"             // application / milestone lifecycle
	fieldRefreshToken     = "refresh_token"      // session rotation
	fieldRefreshExpiresAt = "refresh_expires_at" //
	fieldUpdatedAt        = "updated_at"         // touched on every update
)
