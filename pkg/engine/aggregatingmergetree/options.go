package aggregatingmergetree

type Options struct {
	DataPath string

	// Compression names the algorithm for new parts and plans (none,
	// snappy, lz4, zstd). Existing files are read with whatever algorithm
	// their header records.
	Compression string
}
