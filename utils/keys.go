package utils

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

var avatarExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

// AvatarKey builds the object key for an uploaded avatar, e.g.
// "avatars/jose-maria-1b4e....png".
func AvatarKey(username, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if !avatarExtensions[ext] {
		ext = ".png"
	}
	name := slug.Make(username)
	if name == "" {
		name = "user"
	}
	return "avatars/" + name + "-" + uuid.NewString() + ext
}

// IsImageType reports whether an upload's content type is an accepted image.
func IsImageType(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return true
	}
	return false
}
