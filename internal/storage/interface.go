package storage

// Archiver stores serialized run snapshots for later inspection.
type Archiver interface {
	Store(name string, data []byte) error
	Retrieve(name string) ([]byte, error)
	List(prefix string) ([]string, error)
	Delete(name string) error
}
