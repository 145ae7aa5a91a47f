package handlers

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxImageSize = 5 << 20
	maxImageEdge = 1200
)

var allowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// Uploads stores product images below Root/uploads and hands back paths
// relative to Root.
type Uploads struct {
	Root string
}

// SaveProductImage validates and stores an uploaded image. JPEG and PNG
// images larger than maxImageEdge are scaled down to fit.
func (u Uploads) SaveProductImage(file *multipart.FileHeader) (string, error) {
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if extension == "" {
		return "", fmt.Errorf("image file extension is required")
	}
	if _, ok := allowedImageExtensions[extension]; !ok {
		return "", fmt.Errorf("unsupported image type: %s", extension)
	}
	if file.Size > maxImageSize {
		return "", fmt.Errorf("image file too large (max 5MB)")
	}

	filename := primitive.NewObjectID().Hex() + extension
	dir := filepath.Join(u.Root, "uploads", "products")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("[UPLOAD] failed to create directory %s: %v", dir, err)
		return "", err
	}
	fullPath := filepath.Join(dir, filename)

	in, err := file.Open()
	if err != nil {
		return "", err
	}
	defer in.Close()

	if extension == ".webp" {
		if err := copyTo(fullPath, in); err != nil {
			return "", err
		}
	} else {
		img, err := imaging.Decode(in, imaging.AutoOrientation(true))
		if err != nil {
			return "", fmt.Errorf("image could not be decoded: %w", err)
		}
		bounds := img.Bounds()
		if bounds.Dx() > maxImageEdge || bounds.Dy() > maxImageEdge {
			img = imaging.Fit(img, maxImageEdge, maxImageEdge, imaging.Lanczos)
		}
		if err := imaging.Save(img, fullPath); err != nil {
			log.Printf("[UPLOAD] failed to save %s: %v", fullPath, err)
			return "", err
		}
	}

	log.Printf("[UPLOAD] stored %s", fullPath)
	return path.Join("uploads", "products", filename), nil
}

func copyTo(fullPath string, in io.Reader) error {
	out, err := os.Create(fullPath)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// Delete removes a previously stored upload. Paths outside Root/uploads are refused.
func (u Uploads) Delete(relPath string) error {
	trimmed := strings.TrimSpace(relPath)
	if trimmed == "" {
		return nil
	}

	cleanRel := path.Clean("/" + strings.TrimPrefix(trimmed, "/"))
	cleanRel = strings.TrimPrefix(cleanRel, "/")
	if !strings.HasPrefix(cleanRel, "uploads/") {
		return fmt.Errorf("refusing to delete non-upload path: %s", relPath)
	}

	cleanBase := filepath.Clean(u.Root)
	cleanTarget := filepath.Clean(filepath.Join(cleanBase, filepath.FromSlash(cleanRel)))
	if !strings.HasPrefix(cleanTarget, cleanBase+string(os.PathSeparator)) {
		return fmt.Errorf("refusing to delete path outside upload root: %s", relPath)
	}

	if err := os.Remove(cleanTarget); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
