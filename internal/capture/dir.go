package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DirSource replays image files from a directory as if they were live
// captures. Files are served in name order and the sequence loops.
type DirSource struct {
	mu     sync.Mutex
	dir    string
	files  []string
	cache  map[string]image.Image
	next   int
	seq    uint64
	width  int
	height int
}

// NewDirSource scans dir for .png, .jpg and .jpeg files.
// Returns an error if the directory cannot be read or holds no images.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frame directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}
	sort.Strings(files)

	return &DirSource{
		dir:   dir,
		files: files,
		cache: make(map[string]image.Image, len(files)),
	}, nil
}

// Len returns the number of frames in the replay loop.
func (s *DirSource) Len() int {
	return len(s.files)
}

func (s *DirSource) CapturePermitted() bool { return true }

// Connected always reports true once the directory has been scanned.
func (s *DirSource) Connected() bool { return true }

func (s *DirSource) Frame(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)

	img, ok := s.cache[path]
	if !ok {
		var err error
		img, err = decodeFile(path)
		if err != nil {
			return nil, err
		}
		s.cache[path] = img
	}

	s.seq++
	f := NewFrame(img)
	f.Seq = s.seq
	f.CapturedAt = time.Now()
	s.width, s.height = f.Width, f.Height
	return f, nil
}

func (s *DirSource) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func decodeFile(path string) (image.Image, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening frame %s: %w", path, err)
	}
	defer fh.Close()

	img, _, err := image.Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("decoding frame %s: %w", path, err)
	}
	return img, nil
}
