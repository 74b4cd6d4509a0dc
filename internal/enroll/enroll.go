// Package enroll implements Phase A: scanning a flat directory of labelled
// reference photos and building the owner registry each photo's largest
// face contributes a PersonFace embedding to.
package enroll

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/your-org/memoryd/internal/store"
	"github.com/your-org/memoryd/internal/vision"
)

var imageExt = regexp.MustCompile(`(?i)\.(jpe?g|png)$`)

type Registry struct {
	store  *store.Store
	models *vision.Models
	log    *slog.Logger
}

func New(st *store.Store, models *vision.Models, log *slog.Logger) *Registry {
	return &Registry{store: st, models: models, log: log}
}

// Result summarizes one enrollment pass.
type Result struct {
	PersonsCreated int
	FacesAdded     int
	Skipped        []string
}

// ScanDir walks dir for image files, derives each photo's person name from
// its filename (extension stripped, cut at the first '_', lower-cased, e.g.
// "alice_01.jpg" names "alice" and "Bob.png" names "bob"), detects the
// largest face in the photo, and idempotently upserts Person(role=owner)
// and a PersonFace keyed by the photo's basename.
func (r *Registry) ScanDir(ctx context.Context, dir string) (Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}, fmt.Errorf("read enrollment dir: %w", err)
	}

	var result Result
	seenNames := map[string]bool{}

	for _, entry := range entries {
		if entry.IsDir() || !imageExt.MatchString(entry.Name()) {
			continue
		}

		name := personNameFromFilename(entry.Name())
		path := filepath.Join(dir, entry.Name())

		if err := r.enrollOne(ctx, name, entry.Name(), path, &result, seenNames); err != nil {
			r.log.Warn("skipping enrollment photo", "file", entry.Name(), "error", err)
			result.Skipped = append(result.Skipped, entry.Name())
		}
	}

	return result, nil
}

func (r *Registry) enrollOne(ctx context.Context, name, sourceImage, path string, result *Result, seenNames map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read photo: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode photo: %w", err)
	}

	boxes, err := r.models.DetectPersons(img)
	if err != nil {
		return fmt.Errorf("detect faces: %w", err)
	}
	if len(boxes) == 0 {
		return fmt.Errorf("no face detected")
	}

	largest := boxes[0]
	largestArea := boxArea(largest.BBox)
	for _, b := range boxes[1:] {
		if a := boxArea(b.BBox); a > largestArea {
			largest, largestArea = b, a
		}
	}

	faceVec, err := r.models.ExtractFace(img, largest.BBox)
	if err != nil {
		return fmt.Errorf("extract face embedding: %w", err)
	}

	person, err := r.store.FindPersonByName(ctx, name)
	if err != nil {
		return fmt.Errorf("lookup person: %w", err)
	}
	if person == nil {
		person, err = r.store.UpsertOwner(ctx, name)
		if err != nil {
			return fmt.Errorf("create owner: %w", err)
		}
		if !seenNames[name] {
			result.PersonsCreated++
			seenNames[name] = true
		}
	}

	if err := r.store.UpsertPersonFace(ctx, person.ID, faceVec, sourceImage); err != nil {
		return fmt.Errorf("upsert person face: %w", err)
	}
	result.FacesAdded++

	return nil
}

func personNameFromFilename(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if idx := strings.Index(base, "_"); idx >= 0 {
		base = base[:idx]
	}
	return strings.ToLower(base)
}

func boxArea(b [4]float32) float32 {
	return (b[2] - b[0]) * (b[3] - b[1])
}
