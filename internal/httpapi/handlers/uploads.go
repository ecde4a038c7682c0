package handlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/axionslab/datavault/internal/apierr"
	"github.com/axionslab/datavault/internal/auth"
	"github.com/axionslab/datavault/internal/download"
	"github.com/axionslab/datavault/internal/models"
	"github.com/axionslab/datavault/internal/storage"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UploadLimits caps accepted CSV files.
type UploadLimits struct {
	MaxFileSizeMB int
	MaxRows       int
	MaxColumns    int
}

// UploadHandler serves CSV upload, listing, deletion, and download link
// creation.
type UploadHandler struct {
	db            *gorm.DB
	blobs         storage.BlobStore
	tokens        *download.Manager
	limits        UploadLimits
	publicBaseURL string
}

// NewUploadHandler constructs an UploadHandler.
func NewUploadHandler(db *gorm.DB, blobs storage.BlobStore, tokens *download.Manager, limits UploadLimits, publicBaseURL string) *UploadHandler {
	return &UploadHandler{
		db:            db,
		blobs:         blobs,
		tokens:        tokens,
		limits:        limits,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Create accepts a multipart CSV upload, validates it against the size and
// shape caps, deduplicates by content hash, and stores the bytes in the blob
// store with only metadata in the database.
func (h *UploadHandler) Create(c *gin.Context) {
	user, _, ok := auth.FromGinContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": apierr.Message(apierr.ErrUnauthorized)})
		return
	}

	fileHeader, errFile := c.FormFile("file")
	if errFile != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .csv files are accepted"})
		return
	}

	maxBytes := int64(h.limits.MaxFileSizeMB) * 1024 * 1024
	if fileHeader.Size > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("file exceeds %d MB limit", h.limits.MaxFileSizeMB),
		})
		return
	}

	file, errOpen := fileHeader.Open()
	if errOpen != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer file.Close()

	// Size declared in the multipart header is client-controlled; re-check
	// the actual byte count while reading.
	body, errRead := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	if int64(len(body)) > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("file exceeds %d MB limit", h.limits.MaxFileSizeMB),
		})
		return
	}

	header, rowCount, errParse := h.parseCSV(body)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errParse.Error()})
		return
	}

	sum := sha256.Sum256(body)
	fileHash := hex.EncodeToString(sum[:])

	var existing models.Upload
	errDup := h.db.WithContext(c.Request.Context()).
		Where("user_id = ? AND file_hash = ?", user.ID, fileHash).
		First(&existing).Error
	switch {
	case errDup == nil:
		c.JSON(http.StatusOK, gin.H{
			"message":     "Identical file already uploaded",
			"upload_id":   existing.ID,
			"filename":    existing.Filename,
			"file_hash":   existing.FileHash,
			"uploaded_at": existing.UploadedAt,
		})
		return
	case !errors.Is(errDup, gorm.ErrRecordNotFound):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": apierr.Message(apierr.ErrStoreUnavailable)})
		return
	}

	objectKey := storage.ObjectKey(user.ID)
	metadata := map[string]string{
		"username": user.Username,
		"filename": fileHeader.Filename,
	}
	if errPut := h.blobs.Put(c.Request.Context(), objectKey, body, "text/csv", metadata); errPut != nil {
		log.WithError(errPut).Error("upload: blob put failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": apierr.Message(apierr.ErrStoreUnavailable)})
		return
	}

	columnsJSON, errMarshal := json.Marshal(header)
	if errMarshal != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode columns failed"})
		return
	}
	row := models.Upload{
		UserID:      user.ID,
		Username:    user.Username,
		Filename:    fileHeader.Filename,
		ObjectKey:   objectKey,
		FileHash:    fileHash,
		FileSize:    int64(len(body)),
		RowCount:    rowCount,
		ColumnCount: len(header),
		Columns:     columnsJSON,
		UploadedAt:  time.Now().UTC(),
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).Error("upload: create row failed")
		if errDelete := h.blobs.Delete(c.Request.Context(), objectKey); errDelete != nil {
			log.WithError(errDelete).Warn("upload: orphan blob cleanup failed")
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": apierr.Message(apierr.ErrStoreUnavailable)})
		return
	}

	response := gin.H{
		"message":      "Upload stored",
		"upload_id":    row.ID,
		"filename":     row.Filename,
		"file_hash":    row.FileHash,
		"file_size":    row.FileSize,
		"row_count":    row.RowCount,
		"column_count": row.ColumnCount,
		"columns":      header,
		"uploaded_at":  row.UploadedAt,
	}

	// A fresh upload ships with a first one-time link so the common
	// upload-then-fetch flow needs no second call. Failure to mint it does
	// not fail the upload.
	issued, errIssue := h.tokens.Issue(c.Request.Context(), user.ID, objectKey, download.RequestContext{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if errIssue != nil {
		log.WithError(errIssue).Warn("upload: issue download token failed")
	} else {
		response["download_url"] = h.downloadLink(issued.Token)
		response["download_expires_at"] = issued.ExpiresAt
	}

	c.JSON(http.StatusCreated, response)
}

// parseCSV validates shape and returns the header plus the data row count.
func (h *UploadHandler) parseCSV(body []byte) ([]string, int, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	header, errHeader := reader.Read()
	if errHeader != nil {
		return nil, 0, errors.New("file is not parseable CSV")
	}
	if len(header) > h.limits.MaxColumns {
		return nil, 0, fmt.Errorf("too many columns: %d (max %d)", len(header), h.limits.MaxColumns)
	}

	rowCount := 0
	for {
		record, errRow := reader.Read()
		if errRow == io.EOF {
			break
		}
		if errRow != nil {
			return nil, 0, errors.New("file is not parseable CSV")
		}
		if len(record) > h.limits.MaxColumns {
			return nil, 0, fmt.Errorf("too many columns: %d (max %d)", len(record), h.limits.MaxColumns)
		}
		rowCount++
		if rowCount > h.limits.MaxRows {
			return nil, 0, fmt.Errorf("too many rows (max %d)", h.limits.MaxRows)
		}
	}
	return header, rowCount, nil
}

// List returns the caller's uploads, newest first.
func (h *UploadHandler) List(c *gin.Context) {
	user, _, ok := auth.FromGinContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": apierr.Message(apierr.ErrUnauthorized)})
		return
	}

	var rows []models.Upload
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", user.ID).
		Order("uploaded_at DESC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": apierr.Message(apierr.ErrStoreUnavailable)})
		return
	}

	items := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		items = append(items, gin.H{
			"upload_id":    row.ID,
			"filename":     row.Filename,
			"file_hash":    row.FileHash,
			"file_size":    row.FileSize,
			"row_count":    row.RowCount,
			"column_count": row.ColumnCount,
			"uploaded_at":  row.UploadedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"uploads": items, "total": len(items)})
}

// Get returns one upload's metadata, including the parsed column names.
func (h *UploadHandler) Get(c *gin.Context) {
	user, _, ok := auth.FromGinContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": apierr.Message(apierr.ErrUnauthorized)})
		return
	}
	row, done := h.findOwned(c, user.ID)
	if done {
		return
	}

	var columns []string
	if len(row.Columns) > 0 {
		if errUnmarshal := json.Unmarshal(row.Columns, &columns); errUnmarshal != nil {
			log.WithError(errUnmarshal).Warn("upload: decode columns failed")
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"upload_id":    row.ID,
		"filename":     row.Filename,
		"file_hash":    row.FileHash,
		"file_size":    row.FileSize,
		"row_count":    row.RowCount,
		"column_count": row.ColumnCount,
		"columns":      columns,
		"uploaded_at":  row.UploadedAt,
	})
}

// Delete removes an upload: blob first, then metadata, then any download
// tokens still pointing at the object.
func (h *UploadHandler) Delete(c *gin.Context) {
	user, _, ok := auth.FromGinContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": apierr.Message(apierr.ErrUnauthorized)})
		return
	}
	row, done := h.findOwned(c, user.ID)
	if done {
		return
	}

	if errDelete := h.blobs.Delete(c.Request.Context(), row.ObjectKey); errDelete != nil {
		log.WithError(errDelete).Error("upload: blob delete failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": apierr.Message(apierr.ErrStoreUnavailable)})
		return
	}
	if errDelete := h.db.WithContext(c.Request.Context()).Delete(&models.Upload{}, row.ID).Error; errDelete != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": apierr.Message(apierr.ErrStoreUnavailable)})
		return
	}
	// Orphaned tokens would 503 at presign time anyway; removing them keeps
	// the failure a clean 404.
	if errTokens := h.db.WithContext(c.Request.Context()).
		Where("object_key = ?", row.ObjectKey).
		Delete(&models.DownloadToken{}).Error; errTokens != nil {
		log.WithError(errTokens).Warn("upload: token cleanup failed")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Upload deleted", "upload_id": row.ID})
}

// CreateLink issues a one-time download token for an upload and returns the
// redemption URL.
func (h *UploadHandler) CreateLink(c *gin.Context) {
	user, _, ok := auth.FromGinContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": apierr.Message(apierr.ErrUnauthorized)})
		return
	}
	row, done := h.findOwned(c, user.ID)
	if done {
		return
	}

	issued, errIssue := h.tokens.Issue(c.Request.Context(), user.ID, row.ObjectKey, download.RequestContext{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if errIssue != nil {
		c.JSON(apierr.Status(errIssue), gin.H{"error": apierr.Message(errIssue)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"download_url": h.downloadLink(issued.Token),
		"expires_at":   issued.ExpiresAt,
		"one_time":     true,
	})
}

func (h *UploadHandler) downloadLink(token string) string {
	link := fmt.Sprintf("/data/download/%s", token)
	if h.publicBaseURL != "" {
		link = h.publicBaseURL + link
	}
	return link
}

// findOwned loads the upload named by the :id param, scoped to the caller.
// It writes the error response itself and reports done=true when it did.
func (h *UploadHandler) findOwned(c *gin.Context, userID uint64) (models.Upload, bool) {
	uploadID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload id"})
		return models.Upload{}, true
	}

	var row models.Upload
	errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", uploadID, userID).
		First(&row).Error
	switch {
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "upload not found"})
		return models.Upload{}, true
	case errFind != nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": apierr.Message(apierr.ErrStoreUnavailable)})
		return models.Upload{}, true
	}
	return row, false
}
