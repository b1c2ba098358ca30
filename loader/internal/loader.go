package internal

import (
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"wikichat/config"
	"wikichat/types"

	"github.com/google/uuid"
)

// FileLoader watches the source directory and turns dropped files into
// documents with their raw text. Plain text and markdown are read
// directly, PDFs go through the converter sidecar.
type FileLoader struct {
	cfg       config.Config
	converter *DoclingConverter

	mu         sync.Mutex
	firstSeen  map[string]time.Time
	processing map[string]bool
}

func NewFileLoader(cfg config.Config) *FileLoader {
	createDirectories(cfg.SourceDir, cfg.ArchiveDir, cfg.BadDir)
	return &FileLoader{
		cfg:        cfg,
		converter:  NewDoclingConverter(cfg.ConverterURL),
		firstSeen:  make(map[string]time.Time),
		processing: make(map[string]bool),
	}
}

// WatchFiles polls the source directory and sends a file path once the
// file has sat unchanged longer than the monitoring window. A file that
// keeps being written never fires early.
func (l *FileLoader) WatchFiles(ctx context.Context, fileChan chan<- string) {
	fmt.Printf("Start monitoring folder: %s\n", l.cfg.SourceDir)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	defer fmt.Println("File watcher stopped and cleaned up")

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Stopping file watcher (context cancelled)...")
			return
		case <-ticker.C:
			files, err := os.ReadDir(l.cfg.SourceDir)
			if err != nil {
				fmt.Printf("error while reading source directory: %s\n", err)
				continue
			}

			currentFiles := make(map[string]bool)

			for _, file := range files {
				if file.IsDir() {
					continue
				}

				filePath := filepath.Join(l.cfg.SourceDir, file.Name())
				currentFiles[filePath] = true

				l.mu.Lock()
				if l.processing[filePath] {
					l.mu.Unlock()
					continue
				}

				if _, exists := l.firstSeen[filePath]; !exists {
					l.firstSeen[filePath] = time.Now()
					fmt.Printf("New file detected: %s\n", filePath)
					l.mu.Unlock()
					continue
				}

				firstSeen := l.firstSeen[filePath]
				l.mu.Unlock()

				if time.Since(firstSeen) > l.cfg.MonitoringTime {
					l.mu.Lock()
					l.processing[filePath] = true
					l.mu.Unlock()

					select {
					case fileChan <- filePath:
					case <-ctx.Done():
						return
					}
				}
			}

			// Files removed from the directory drop out of tracking.
			l.mu.Lock()
			for filePath := range l.firstSeen {
				if !currentFiles[filePath] {
					delete(l.firstSeen, filePath)
					delete(l.processing, filePath)
				}
			}
			l.mu.Unlock()
		}
	}
}

// LoadFile reads one source file and returns the document record plus
// its raw text. The document ID is derived from the path, so re-drops
// of the same file map onto the same document.
func (l *FileLoader) LoadFile(ctx context.Context, filePath string) (*types.Document, string, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("stat %s: %w", filePath, err)
	}

	var text, source string
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".txt", ".md":
		raw, err := os.ReadFile(filePath)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", filePath, err)
		}
		text = string(raw)
		source = "file"
	case ".pdf":
		// Headers and footers repeat on every page and only pollute the
		// chunks, crop them before conversion.
		if err := CropHeaderFooter(filePath, filePath, 46, 57); err != nil {
			return nil, "", err
		}
		text, err = l.converter.Convert(ctx, filePath)
		if err != nil {
			return nil, "", err
		}
		source = "pdf"
	default:
		return nil, "", fmt.Errorf("unsupported file type: %s", ext)
	}

	doc := &types.Document{
		ID:         documentID(filePath),
		Title:      documentTitle(filePath),
		Source:     source,
		SourcePath: filePath,
		Status:     types.StatusPending,
		CreatedAt:  fileInfo.ModTime(),
		UpdatedAt:  fileInfo.ModTime(),
		Version:    1,
	}
	return doc, text, nil
}

// MarkDone releases the file from the processing set so a future drop of
// the same path gets picked up again.
func (l *FileLoader) MarkDone(filePath string) {
	l.mu.Lock()
	delete(l.processing, filePath)
	delete(l.firstSeen, filePath)
	l.mu.Unlock()
}

// MoveToArchive copies the file into a dated subdirectory of the archive
// (or the bad directory on failures) and removes the original.
func (l *FileLoader) MoveToArchive(filePath string, failed bool) {
	destRoot := l.cfg.ArchiveDir
	if failed {
		destRoot = l.cfg.BadDir
	}

	currentDate := time.Now().Format("2006-01-02")
	destDir := filepath.Join(destRoot, currentDate)

	if _, err := os.Stat(destDir); os.IsNotExist(err) {
		if err := os.MkdirAll(destDir, 0755); err != nil {
			fmt.Printf("error creating directory: %s\n", err)
			return
		}
	}

	destPath := filepath.Join(destDir, filepath.Base(filePath))

	counter := 1
	for {
		if _, err := os.Stat(destPath); os.IsNotExist(err) {
			break
		}
		ext := filepath.Ext(destPath)
		baseName := strings.TrimSuffix(filepath.Base(filePath), ext)
		destPath = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", baseName, counter, ext))
		counter++
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Printf("error reading file for archive: %s\n", err)
		return
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		fmt.Printf("error moving file to archive: %s\n", err)
		return
	}

	fmt.Printf("File moved to archive: %s\n", destPath)
	os.Remove(filePath)
}

func documentTitle(filePath string) string {
	fileName := filepath.Base(filePath)
	fileName = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	fileName = strings.ReplaceAll(fileName, "_", " ")
	fileName = strings.ReplaceAll(fileName, "-", " ")
	return fileName
}

func documentID(filePath string) uuid.UUID {
	hash := md5.Sum([]byte(filePath))
	id, _ := uuid.FromBytes(hash[:])
	return id
}

func createDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
