package domain

// StorageType identifies the backend serving a file tree
type StorageType string

const (
	// StorageWebDAV is the platform's own WebDAV file API
	StorageWebDAV StorageType = "webdav"

	// StorageLocal is a directory on this machine
	StorageLocal StorageType = "local"

	// StorageGDrive is an external, read-only Google Drive folder
	StorageGDrive StorageType = "gdrive"
)

// IsValid checks if the storage type is a known value
func (t StorageType) IsValid() bool {
	switch t {
	case StorageWebDAV, StorageLocal, StorageGDrive:
		return true
	}
	return false
}

// IsExternal reports whether the storage is an external storage.
// External storages are browsable but never written to by mercury.
func (t StorageType) IsExternal() bool {
	return t == StorageGDrive
}
