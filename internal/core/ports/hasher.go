package ports

// Hasher defines the interface for computing fingerprints.
//
//go:generate mockgen -destination=mocks/hasher_mock.go -package=mocks -source=hasher.go
type Hasher interface {
	// ComputeInputHash computes a single hash over the given files and salt values.
	// Files are resolved relative to root.
	ComputeInputHash(files []string, salt []string, root string) (string, error)

	// ComputeFileHash computes the hash of one file's content.
	ComputeFileHash(path string) (string, error)
}
