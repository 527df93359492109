package services

// BlobStore is the local key/value store. Writes are atomic per key.
type BlobStore interface {
	Get(key string) (string, bool, error)
	Put(key string, value string) error
	Delete(key string) error
}
