package config

import (
	"strings"
	"time"
)

// GetAPIPrefix returns the prefix every huma route is mounted under
func GetAPIPrefix() string {
	prefix := GetEnv("API_PREFIX", "/api")
	if prefix == "" || prefix == "/" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return strings.TrimSuffix(prefix, "/")
}

// GetHost returns the interface the HTTP server binds to
func GetHost() string {
	return GetEnv("HOST", "0.0.0.0")
}

// GetJWTSecret returns the HMAC secret used to sign session tokens
func GetJWTSecret() []byte {
	return []byte(GetEnv("JWT_SECRET", "change-me-in-production"))
}

// GetJWTTTL returns how long an issued session token stays valid
func GetJWTTTL() time.Duration {
	return GetDurationEnv("JWT_TTL", 24*time.Hour)
}

// GetUploadDir returns the directory uploaded screenshots are written to
func GetUploadDir() string {
	return GetEnv("UPLOAD_DIR", "./uploads")
}

// GetUploadMaxBytes returns the largest accepted upload
func GetUploadMaxBytes() int64 {
	return int64(GetIntEnv("UPLOAD_MAX_BYTES", 5<<20))
}

// GetCORSOrigins returns the origins allowed to call the API from a browser
func GetCORSOrigins() []string {
	raw := GetEnv("CORS_ORIGINS", "http://localhost:3000")
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// GetDatabaseName returns the MongoDB database name
func GetDatabaseName(fallback string) string {
	return GetEnv("MONGODB_DATABASE", fallback)
}
