package domain

// Archiver packs a prepared scratch directory into an archive package and back.
type Archiver interface {
	Write(manifest Manifest, scratchDir, destPath string) error
	Read(archivePath, scratchDir string) (Manifest, error)
	Validate(archivePath string) (bool, string)
}
