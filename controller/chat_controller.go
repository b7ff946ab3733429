package controller

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/elimu-hub/cbc-chatbot/models"
	"github.com/elimu-hub/cbc-chatbot/services"
)

// ChatController handles the HTTP surface of the chatbot. All business logic
// lives in the service layer; handlers only bind, delegate, and map errors.
type ChatController struct {
	chatService    services.ChatService
	ingestService  services.IngestService
	requestTimeout time.Duration
}

func NewChatController(chatService services.ChatService, ingestService services.IngestService, requestTimeout time.Duration) *ChatController {
	return &ChatController{
		chatService:    chatService,
		ingestService:  ingestService,
		requestTimeout: requestTimeout,
	}
}

// Chat is the handler for POST /api/v1/chat.
func (c *ChatController) Chat(ctx *gin.Context) {
	var req models.ChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if len(req.Messages) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "messages must not be empty"})
		return
	}

	// The pipeline makes several provider round-trips; the deadline bounds
	// their sum so a stalled provider cannot hold the connection open.
	reqCtx := ctx.Request.Context()
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(reqCtx, c.requestTimeout)
		defer cancel()
	}

	response, err := c.chatService.ProcessChat(reqCtx, req.Messages)
	if err != nil {
		if errors.Is(err, services.ErrEmptyQuery) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "conversation contains no user question"})
			return
		}
		// The actual cause is logged by the service layer; the caller gets a
		// generic failure.
		log.Printf("CONTROLLER ERROR: chat pipeline failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate a response. Please try again in a moment."})
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// IngestText is the handler for POST /api/v1/ingest-text.
func (c *ChatController) IngestText(ctx *gin.Context) {
	var req models.IngestTextRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	title := req.Title
	if title == "" {
		title = "Untitled"
	}

	count, err := c.ingestService.IngestText(ctx.Request.Context(), title, req.Text, map[string]string{"type": "pasted_text"})
	if err != nil {
		log.Printf("CONTROLLER ERROR: text ingestion failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest text"})
		return
	}

	ctx.JSON(http.StatusCreated, models.IngestTextResponse{Success: true, IndexedChunks: count})
}

// IngestFile is the handler for POST /api/v1/ingest. The upload is saved to a
// temp file and processed in the background so large PDFs do not hold the
// connection open.
func (c *ChatController) IngestFile(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing file upload: " + err.Error()})
		return
	}

	tmpPath, err := tempUploadPath(file.Filename)
	if err != nil {
		log.Printf("CONTROLLER ERROR: could not create temp file for %s: %v", file.Filename, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save uploaded file"})
		return
	}
	if err := ctx.SaveUploadedFile(file, tmpPath); err != nil {
		os.Remove(tmpPath)
		log.Printf("CONTROLLER ERROR: could not save upload %s: %v", file.Filename, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save uploaded file"})
		return
	}

	go func() {
		defer os.Remove(tmpPath)

		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		content, err := services.ExtractText(tmpPath)
		if err != nil {
			log.Printf("CONTROLLER ERROR: extraction failed for %s: %v", file.Filename, err)
			return
		}
		if _, err := c.ingestService.IngestText(bgCtx, file.Filename, content, map[string]string{"type": "file_upload"}); err != nil {
			log.Printf("CONTROLLER ERROR: ingestion failed for %s: %v", file.Filename, err)
		}
	}()

	ctx.JSON(http.StatusAccepted, gin.H{"success": true, "message": "File " + file.Filename + " queued for ingestion."})
}

// tempUploadPath reserves a unique temp file for an upload, keeping the
// original extension so the extractor can dispatch on it. Concurrent uploads
// of the same filename must never share a path.
func tempUploadPath(filename string) (string, error) {
	f, err := os.CreateTemp("", "upload-*"+filepath.Ext(filename))
	if err != nil {
		return "", err
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
