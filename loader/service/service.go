package service

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"wikichat/config"
	"wikichat/ingest"
	"wikichat/loader/internal"
	"wikichat/types"

	"github.com/google/uuid"
)

// Store is the document storage the loader needs.
type Store interface {
	SaveDocument(ctx context.Context, doc types.Document) error
	GetDocumentByID(ctx context.Context, docID uuid.UUID) (*types.Document, error)
}

// Service drives the ingestion side of the system: watch the source
// directory, load each stable file, run it through the chunk/embed
// pipeline and archive the original.
type Service struct {
	logger   *slog.Logger
	store    Store
	ingester *ingest.Service
	loader   *internal.FileLoader
}

func New(store Store, ingester *ingest.Service, cfg config.Config) *Service {
	return &Service{
		logger:   slog.Default(),
		store:    store,
		ingester: ingester,
		loader:   internal.NewFileLoader(cfg),
	}
}

func (s *Service) Stop() {
	s.logger.Info("Loader Service stopped")
}

func (s *Service) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fileChan := make(chan string, 10)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(fileChan)
		s.loader.WatchFiles(ctx, fileChan)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.processFiles(ctx, fileChan)
	}()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)

	<-sigch
	log.Println("Received shutdown signal, shutting down gracefully...")

	cancel()
	signal.Stop(sigch)
	close(sigch)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("All goroutines stopped successfully")
	case <-shutdownCtx.Done():
		log.Println("Timeout waiting for goroutines to stop, forcing shutdown...")
	}

	s.Stop()
	log.Println("Service stopped successfully")
}

func (s *Service) processFiles(ctx context.Context, fileChan <-chan string) {
	defer fmt.Println("File processor stopped and cleaned up")

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Stopping file processor (context cancelled)...")
			return
		case filePath, ok := <-fileChan:
			if !ok {
				fmt.Println("File channel closed, stopping processor...")
				return
			}

			fmt.Printf("Processing file: %s\n", filePath)
			if err := s.handleFile(ctx, filePath); err != nil {
				fmt.Printf("Error processing file %s: %v\n", filePath, err)
				s.loader.MoveToArchive(filePath, true)
			}
			s.loader.MarkDone(filePath)
		}
	}
}

// handleFile loads one file and runs the full ingestion. An unchanged
// re-drop of a known file is skipped, a newer drop bumps the version
// and replaces the chunks.
func (s *Service) handleFile(ctx context.Context, filePath string) error {
	doc, text, err := s.loader.LoadFile(ctx, filePath)
	if err != nil {
		return err
	}

	existing, err := s.store.GetDocumentByID(ctx, doc.ID)
	if err == nil {
		if !doc.UpdatedAt.After(existing.UpdatedAt) {
			fmt.Printf("Document %s is up to date, skipping\n", doc.Title)
			s.loader.MoveToArchive(filePath, false)
			return nil
		}
		doc.Version = existing.Version + 1
		doc.CreatedAt = existing.CreatedAt
	}

	if err := s.store.SaveDocument(ctx, *doc); err != nil {
		return err
	}

	if err := s.ingester.Ingest(ctx, doc.ID, doc.Title, text); err != nil {
		return err
	}

	fmt.Printf("Successfuly Saved document %s (version %d)\n", doc.Title, doc.Version)
	s.loader.MoveToArchive(filePath, false)
	return nil
}
