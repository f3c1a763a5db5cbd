package contentstore

import (
	"context"

	"trip_hotel/internal/domain"
	"trip_hotel/internal/shared"
)

// Store is a content store the binaries can release at shutdown.
type Store interface {
	domain.ContentStore
	Close() error
}

// Open picks the backend named by CONTENT_STORE: "sftp" or the local filesystem.
func Open(ctx context.Context, cfg shared.Config) (Store, error) {
	if cfg.ContentStore == "sftp" {
		return DialSFTP(ctx, SFTPConfig{
			Host: cfg.SFTPHost, Port: cfg.SFTPPort,
			User: cfg.SFTPUser, Pass: cfg.SFTPPass,
			RemoteDir: cfg.SFTPDir,

			KnownHosts:            cfg.SFTPKnownHosts,
			InsecureIgnoreHostKey: cfg.SFTPInsecureIgnoreHostKey,
		})
	}
	return NewFS(cfg.ImagesStore)
}
