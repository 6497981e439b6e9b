package api

const (
	// PrmFile form param for an audio file
	PrmFile = "audio_file"
	// PrmUser form param for user ID
	PrmUser = "user_id"
	// HeaderUser is an alternative way to pass user ID
	HeaderUser = "x-user-id"
)
