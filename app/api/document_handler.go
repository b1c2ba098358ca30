package api

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"wikichat/ingest"
	"wikichat/store"
	"wikichat/types"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type DocumentHandler struct {
	store    store.DBStorer
	ingester *ingest.Service
}

func NewDocumentHandler(st store.DBStorer, ingester *ingest.Service) *DocumentHandler {
	return &DocumentHandler{
		store:    st,
		ingester: ingester,
	}
}

// HandleUpload accepts a plain-text or markdown file, records the
// document as pending and hands it to the ingestion pipeline in the
// background. The response does not wait for chunking or embedding.
func (h *DocumentHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest()
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".txt" && ext != ".md" {
		return NewError(fiber.StatusBadRequest, "only .txt and .md uploads are supported")
	}

	f, err := file.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	doc := types.Document{
		ID:        uuid.New(),
		Title:     file.Filename,
		Source:    "upload",
		Status:    types.StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Version:   1,
	}
	if err := h.store.SaveDocument(c.Context(), doc); err != nil {
		return err
	}
	log.Printf("[UPLOAD] accepted %s as document %s", file.Filename, doc.ID)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := h.ingester.Ingest(ctx, doc.ID, doc.Title, string(content)); err != nil {
			log.Printf("[UPLOAD] ingestion of %s failed: %v", doc.ID, err)
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(types.UploadResponse{
		ID:     doc.ID.String(),
		Title:  doc.Title,
		Status: doc.Status,
	})
}

func (h *DocumentHandler) HandleList(c *fiber.Ctx) error {
	docs, err := h.store.ListDocuments(c.Context())
	if err != nil {
		return err
	}

	resp := make([]types.DocumentResponse, len(docs))
	for i, doc := range docs {
		resp[i] = documentResponse(doc)
	}
	return c.JSON(resp)
}

func (h *DocumentHandler) HandleGet(c *fiber.Ctx) error {
	docID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrInvalidID()
	}

	doc, err := h.store.GetDocumentByID(c.Context(), docID)
	if err != nil {
		return err
	}
	return c.JSON(documentResponse(*doc))
}

// HandleDelete removes a document and its chunks. Citations already
// recorded in conversation history keep their snapshots.
func (h *DocumentHandler) HandleDelete(c *fiber.Ctx) error {
	docID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrInvalidID()
	}

	if err := h.store.DeleteDocument(c.Context(), docID); err != nil {
		return err
	}
	log.Printf("[DELETE] document %s removed", docID)
	return c.JSON(fiber.Map{"deleted": docID.String()})
}

func documentResponse(doc types.Document) types.DocumentResponse {
	return types.DocumentResponse{
		ID:        doc.ID.String(),
		Title:     doc.Title,
		Source:    doc.Source,
		Status:    doc.Status,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}
