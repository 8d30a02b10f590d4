package config

import "github.com/yndnr/kvmesh-go/internal/telemetry/logger"

// Sanitize returns a copy of cfg that is safe to log: every secret is
// masked and the original is left untouched.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	out := *cfg
	for _, secret := range []*string{
		&out.Security.EncryptionKey,
		&out.Security.EncryptionPassphrase,
		&out.Server.Redis.RequirePass,
	} {
		if *secret != "" {
			*secret = logger.RedactString(*secret)
		}
	}
	return &out
}
