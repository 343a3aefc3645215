package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Variant names the processing stage an image file belongs to.
type Variant string

const (
	VariantOriginal    Variant = "original"
	VariantCropped     Variant = "cropped"
	VariantTransparent Variant = "transparent"
	VariantThumbnail   Variant = "thumbnail"
)

// Store persists image variants keyed by image ID.
type Store interface {
	// Save writes one variant and returns its path.
	Save(imageID string, variant Variant, data []byte) (string, error)
	// Load reads one variant back.
	Load(imageID string, variant Variant) ([]byte, error)
	// Exists reports whether the variant was saved.
	Exists(imageID string, variant Variant) bool
}

// Local stores variants on the local filesystem, one directory per
// image ID.
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("could not create storage directory: %w", err)
	}
	return &Local{root: root}, nil
}

func (l *Local) path(imageID string, variant Variant) string {
	return filepath.Join(l.root, imageID, string(variant)+".png")
}

func (l *Local) Save(imageID string, variant Variant, data []byte) (string, error) {
	if imageID == "" {
		return "", fmt.Errorf("image ID is required")
	}

	dir := filepath.Join(l.root, imageID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create image directory: %w", err)
	}

	path := l.path(imageID, variant)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("could not write %s variant: %w", variant, err)
	}
	return path, nil
}

func (l *Local) Load(imageID string, variant Variant) ([]byte, error) {
	data, err := os.ReadFile(l.path(imageID, variant))
	if err != nil {
		return nil, fmt.Errorf("could not read %s variant of %s: %w", variant, imageID, err)
	}
	return data, nil
}

func (l *Local) Exists(imageID string, variant Variant) bool {
	_, err := os.Stat(l.path(imageID, variant))
	return err == nil
}
