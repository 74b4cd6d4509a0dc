package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// ClipRef is one clip file discovered under the video base directory,
// organized as <baseDir>/<camera>/<file>. The camera is the immediate
// parent directory name; the start time is parsed from a
// YYYYMMDD_HHMMSS substring of the filename, falling back to the file's
// modification time when the name doesn't match.
type ClipRef struct {
	Path      string
	Camera    string
	StartTime time.Time
}

var timestampRe = regexp.MustCompile(`(\d{8}_\d{6})`)

// DiscoverClips walks baseDir for clip files one directory deep (camera
// subdirectories only — not a general recursive video search), sorted by
// start time ascending so Fuse receives them in a stable order even before
// its own internal sort.
func DiscoverClips(baseDir string) ([]ClipRef, error) {
	cameraDirs, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("read video base dir: %w", err)
	}

	var refs []ClipRef
	for _, camDir := range cameraDirs {
		if !camDir.IsDir() {
			continue
		}
		camera := camDir.Name()
		camPath := filepath.Join(baseDir, camera)

		files, err := os.ReadDir(camPath)
		if err != nil {
			return nil, fmt.Errorf("read camera dir %s: %w", camera, err)
		}

		for _, f := range files {
			if f.IsDir() || !videoExt(f.Name()) {
				continue
			}
			path := filepath.Join(camPath, f.Name())
			refs = append(refs, ClipRef{Path: path, Camera: camera, StartTime: clipStartTime(f.Name(), path)})
		}
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].StartTime.Before(refs[j].StartTime) })
	return refs, nil
}

func videoExt(name string) bool {
	switch filepath.Ext(name) {
	case ".mp4", ".mkv", ".avi", ".mov":
		return true
	default:
		return false
	}
}

func clipStartTime(filename, path string) time.Time {
	if m := timestampRe.FindString(filename); m != "" {
		if t, err := time.ParseInLocation("20060102_150405", m, time.Local); err == nil {
			return t
		}
	}
	if info, err := os.Stat(path); err == nil {
		return info.ModTime()
	}
	return time.Now()
}
