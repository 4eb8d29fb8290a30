// Package staging prepares uploaded files for the grading pipeline:
// it copies PDFs, extracts and flattens ZIP archives, converts images
// to PDF, and rejects unsupported formats with human-readable warnings.
// The workflow's only contract with it is the JSON result shape
// {directory_path, file_count, warnings, status}.
package staging

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"
)

// Result reports the outcome of staging a batch of uploaded files.
type Result struct {
	DirectoryPath string   `json:"directory_path"`
	FileCount     int      `json:"file_count"`
	Warnings      []string `json:"warnings"`
	Status        string   `json:"status"`
}

// JSON renders the result in the wire shape the workflow reads.
func (r *Result) JSON() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"status": "error", "message": %q}`, err.Error())
	}
	return string(data)
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff"}

// PrepareFiles stages the uploaded files into a fresh clean directory
// of PDFs. Unsupported inputs produce warnings rather than failures;
// image conversions fan out across a bounded worker pool.
func PrepareFiles(ctx context.Context, paths []string) (*Result, error) {
	dir, err := os.MkdirTemp("", "proctor-staging-*")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}

	st := &stager{dir: dir}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			st.warn("File not found: %s", path)
			continue
		}

		if strings.EqualFold(filepath.Ext(path), ".zip") {
			st.stageZip(path)
			continue
		}

		st.stageFile(path)
	}

	if err := st.convertImages(ctx); err != nil {
		return nil, fmt.Errorf("convert images: %w", err)
	}

	status := "success"
	if st.count == 0 {
		status = "error"
	}

	return &Result{
		DirectoryPath: dir,
		FileCount:     st.count,
		Warnings:      st.warnings,
		Status:        status,
	}, nil
}

type stager struct {
	mu       sync.Mutex
	dir      string
	count    int
	warnings []string
	images   []imageJob
}

type imageJob struct {
	src string
	dst string
}

func (s *stager) warn(format string, args ...any) {
	s.mu.Lock()
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
	s.mu.Unlock()
}

func (s *stager) staged() {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
}

// stageFile routes one file by extension: PDFs are copied, images are
// queued for conversion, and rejected formats produce warnings.
func (s *stager) stageFile(path string) {
	name := filepath.Base(path)
	if hiddenFile(name) {
		return
	}

	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == ".pdf":
		dst := s.reservePath(name)
		if err := copyFile(path, dst); err != nil {
			s.warn("Failed to copy %s: %s", name, err)
			return
		}
		s.staged()

	case ext == ".gdoc" || ext == ".gsheet" || ext == ".gslides":
		s.warn("Rejected Google Doc shortcut: %s. Please export as PDF from Google Drive.", name)

	case ext == ".docx":
		s.warn("Rejected Word document: %s. Please export as PDF before uploading.", name)

	case isImage(ext):
		base := strings.TrimSuffix(name, filepath.Ext(name))
		dst := s.reservePath(base + ".pdf")
		s.images = append(s.images, imageJob{src: path, dst: dst})

	default:
		s.warn("Skipped unsupported file type: %s", name)
	}
}

// stageZip extracts an archive into a scratch directory, flattening
// its structure, and stages every contained file.
func (s *stager) stageZip(path string) {
	scratch, err := os.MkdirTemp("", "proctor-unzip-*")
	if err != nil {
		s.warn("Failed to process ZIP %s: %s", filepath.Base(path), err)
		return
	}
	defer os.RemoveAll(scratch)

	if err := extractZip(path, scratch); err != nil {
		s.warn("Failed to process ZIP %s: %s", filepath.Base(path), err)
		return
	}

	filepath.WalkDir(scratch, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		s.stageFile(p)
		return nil
	})
}

// convertImages runs the queued image-to-PDF conversions concurrently.
func (s *stager) convertImages(ctx context.Context) error {
	if len(s.images) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conversionWorkerCount(len(s.images)))

	for _, job := range s.images {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			if err := api.ImportImagesFile([]string{job.src}, job.dst, nil, nil); err != nil {
				s.warn("Failed to convert image %s: %s", filepath.Base(job.src), err)
				return nil
			}

			s.staged()
			return nil
		})
	}

	return g.Wait()
}

// reservePath returns a collision-free destination path in the staging
// directory, renaming duplicates as name_1.pdf, name_2.pdf, and so on.
func (s *stager) reservePath(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	dst := filepath.Join(s.dir, name)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	ext := filepath.Ext(name)

	for counter := 1; ; counter++ {
		if _, err := os.Stat(dst); os.IsNotExist(err) {
			break
		}
		dst = filepath.Join(s.dir, fmt.Sprintf("%s_%d%s", base, counter, ext))
	}

	// Reserve the name so concurrent conversions cannot collide.
	f, err := os.Create(dst)
	if err == nil {
		f.Close()
	}

	return dst
}

func extractZip(path, dest string) error {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		name := filepath.Base(entry.Name)
		if hiddenFile(name) || strings.Contains(entry.Name, "__MACOSX") {
			continue
		}

		src, err := entry.Open()
		if err != nil {
			return err
		}

		dst, err := os.Create(filepath.Join(dest, name))
		if err != nil {
			src.Close()
			return err
		}

		_, err = io.Copy(dst, src)
		src.Close()
		dst.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func hiddenFile(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "__MACOSX")
}

func isImage(ext string) bool {
	for _, e := range imageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func conversionWorkerCount(jobs int) int {
	return max(min(runtime.NumCPU(), jobs), 1)
}
