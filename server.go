package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"bitbucket.org/mmagritech/farm_backend/backup"
	"bitbucket.org/mmagritech/farm_backend/bulk"
	"bitbucket.org/mmagritech/farm_backend/config"
	"bitbucket.org/mmagritech/farm_backend/models"
	"bitbucket.org/mmagritech/farm_backend/utils"
	"bitbucket.org/mmagritech/farm_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// handlers bundles the long-lived components behind the ops HTTP surface.
type handlers struct {
	pipeline     *workflow.Pipeline
	engine       *bulk.Engine
	orchestrator *backup.Orchestrator
}

// farmContext resolves the acting farm from the x-farm-id header (or the
// farm_id query param for GETs) and stamps it into the request context along
// with a system operator identity.
func farmContext(c *gin.Context) (context.Context, string, bool) {
	farmId := strings.TrimSpace(c.GetHeader("x-farm-id"))
	if farmId == "" {
		farmId = strings.TrimSpace(c.Query("farm_id"))
	}
	if farmId == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "farm id is required (x-farm-id header or farm_id param)"})
		return nil, "", false
	}
	ctx := utils.SetFarmIdInContext(c.Request.Context(), farmId)
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "System")
	return ctx, farmId, true
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, utils.ErrPrecondition), errors.Is(err, utils.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrIntegrity):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
	c.JSON(statusForError(err), gin.H{"error": err.Error(), "correlation_id": cid})
}

type propagationRequest struct {
	RecordId int `json:"record_id"`
}

// propagationHandler adapts one Pipeline handler to HTTP. The handler runs in
// its own transaction (no caller tx over HTTP).
func (h *handlers) propagationHandler(run func(ctx context.Context, recordId int) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, farmId, ok := farmContext(c)
		if !ok {
			return
		}
		var req propagationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if req.RecordId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "record_id is required"})
			return
		}
		if err := run(ctx, req.RecordId); err != nil {
			abortWithError(c, err)
			return
		}
		cid, _ := utils.GetCorrelationIdFromContext(ctx)
		c.JSON(http.StatusOK, gin.H{
			"farm_id":        farmId,
			"record_id":      req.RecordId,
			"correlation_id": cid,
		})
	}
}

func (h *handlers) eventHistoryHandler(c *gin.Context) {
	ctx, farmId, ok := farmContext(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := models.EventHistory(ctx, farmId, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"farm_id": farmId, "events": events})
}

func (h *handlers) pendingEventsHandler(c *gin.Context) {
	ctx, farmId, ok := farmContext(c)
	if !ok {
		return
	}
	events, err := models.PendingEvents(ctx, farmId)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"farm_id": farmId, "pending": len(events), "events": events})
}

func (h *handlers) recentEventsHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	c.JSON(http.StatusOK, gin.H{"events": h.pipeline.Events.Recent(limit)})
}

func (h *handlers) consistencyCheckHandler(c *gin.Context) {
	ctx, farmId, ok := farmContext(c)
	if !ok {
		return
	}
	report, err := h.pipeline.RunFullConsistencyCheck(ctx, farmId)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"farm_id": farmId,
		"report":  report,
		"score":   workflow.QualityScore(report),
	})
}

type fixRequest struct {
	FindingIds []int `json:"finding_ids"`
}

func (h *handlers) consistencyFixHandler(c *gin.Context) {
	ctx, farmId, ok := farmContext(c)
	if !ok {
		return
	}
	var req fixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if len(req.FindingIds) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "finding_ids is required"})
		return
	}
	outcomes, err := h.pipeline.FixInconsistencies(ctx, farmId, req.FindingIds)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"farm_id": farmId, "outcomes": outcomes})
}

type importRequest struct {
	Table             string            `json:"table"`
	FilePath          string            `json:"file_path"`
	Format            string            `json:"format"`
	SheetName         string            `json:"sheet_name"`
	FieldMapping      map[string]string `json:"field_mapping"`
	BatchSize         int               `json:"batch_size"`
	SkipDuplicates    bool              `json:"skip_duplicates"`
	UpdateOnDuplicate bool              `json:"update_on_duplicate"`
}

func (h *handlers) bulkImportHandler(c *gin.Context) {
	ctx, _, ok := farmContext(c)
	if !ok {
		return
	}
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Table == "" || req.FilePath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "table and file_path are required"})
		return
	}
	result, err := h.engine.Import(ctx, req.FilePath, req.Table, bulk.ImportOptions{
		Format:            req.Format,
		SheetName:         req.SheetName,
		FieldMapping:      req.FieldMapping,
		BatchSize:         req.BatchSize,
		SkipDuplicates:    req.SkipDuplicates,
		UpdateOnDuplicate: req.UpdateOnDuplicate,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type exportRequest struct {
	Table          string           `json:"table"`
	Format         string           `json:"format"`
	OutputPath     string           `json:"output_path"`
	Columns        []string         `json:"columns"`
	Predicates     []bulk.Predicate `json:"predicates"`
	Limit          int              `json:"limit"`
	IncludeHeaders bool             `json:"include_headers"`
}

func (h *handlers) bulkExportHandler(c *gin.Context) {
	ctx, _, ok := farmContext(c)
	if !ok {
		return
	}
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Table == "" || req.OutputPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "table and output_path are required"})
		return
	}
	result, err := h.engine.Export(ctx, req.Table, bulk.ExportOptions{
		Format:         req.Format,
		OutputPath:     req.OutputPath,
		Columns:        req.Columns,
		Predicates:     req.Predicates,
		Limit:          req.Limit,
		IncludeHeaders: req.IncludeHeaders,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type transformRequest struct {
	SourceTable     string            `json:"source_table"`
	DestTable       string            `json:"dest_table"`
	ColumnMapping   map[string]string `json:"column_mapping"`
	Predicates      []bulk.Predicate  `json:"predicates"`
	BatchSize       int               `json:"batch_size"`
	StopAfterErrors int               `json:"stop_after_errors"`
	SkipDuplicates  bool              `json:"skip_duplicates"`
}

func (h *handlers) bulkTransformHandler(c *gin.Context) {
	ctx, _, ok := farmContext(c)
	if !ok {
		return
	}
	var req transformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.SourceTable == "" || req.DestTable == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_table and dest_table are required"})
		return
	}
	result, err := h.engine.Transform(ctx, req.SourceTable, req.DestTable, bulk.TransformRules{
		ColumnMapping:   req.ColumnMapping,
		Predicates:      req.Predicates,
		BatchSize:       req.BatchSize,
		StopAfterErrors: req.StopAfterErrors,
		SkipDuplicates:  req.SkipDuplicates,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type backupRequest struct {
	Dir            string `json:"dir"`
	Type           string `json:"type"`
	Compress       bool   `json:"compress"`
	Encrypt        bool   `json:"encrypt"`
	RemoteUpload   bool   `json:"remote_upload"`
	RetentionCount int    `json:"retention_count"`
}

func (h *handlers) createBackupHandler(c *gin.Context) {
	ctx, farmId, ok := farmContext(c)
	if !ok {
		return
	}
	var req backupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Dir == "" {
		req.Dir = os.Getenv("BACKUP_DIR")
	}
	info, err := h.orchestrator.CreateBackup(ctx, farmId, backup.Options{
		Dir:            req.Dir,
		Type:           models.BackupType(req.Type),
		Compress:       req.Compress,
		Encrypt:        req.Encrypt,
		RemoteUpload:   req.RemoteUpload,
		RetentionCount: req.RetentionCount,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *handlers) backupHistoryHandler(c *gin.Context) {
	ctx, farmId, ok := farmContext(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	backups, err := h.orchestrator.BackupHistory(ctx, farmId, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"farm_id": farmId, "backups": backups})
}

type restoreRequest struct {
	Confirm bool `json:"confirm"`
	Clean   bool `json:"clean"`
}

func (h *handlers) restoreBackupHandler(c *gin.Context) {
	ctx, _, ok := farmContext(c)
	if !ok {
		return
	}
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	backupId := c.Param("backup_id")
	if err := h.orchestrator.RestoreBackup(ctx, backupId, backup.RestoreOptions{
		Confirm: req.Confirm,
		Clean:   req.Clean,
	}); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"backup_id": backupId, "restored": true})
}

func (h *handlers) deleteBackupHandler(c *gin.Context) {
	ctx, _, ok := farmContext(c)
	if !ok {
		return
	}
	backupId := c.Param("backup_id")
	if err := h.orchestrator.DeleteBackup(ctx, backupId); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"backup_id": backupId, "deleted": true})
}

func (h *handlers) syncStatusHandler(c *gin.Context) {
	ctx, farmId, ok := farmContext(c)
	if !ok {
		return
	}
	report, err := h.orchestrator.SyncStatus(ctx, farmId)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"farm_id": farmId, "sync": report})
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger logs only requests that accumulated gin errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the platform considers the revision
	// healthy. Until the DB is ready, app endpoints return 503.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	var ready atomic.Bool
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if !ready.Load() || config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production require an explicit allowlist; allow all elsewhere.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "x-farm-id", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	// Handlers are constructed lazily against the global DB handle, which is
	// nil until ConnectDatabaseWithRetry finishes; the readiness gate above
	// keeps requests out until then.
	h := &handlers{}
	install := func() {
		db := config.GetDB()
		h.pipeline = workflow.NewPipeline(db, logger)
		h.engine = bulk.NewEngine(db, logger)
		h.orchestrator = backup.NewOrchestrator(db, logger)
	}

	r.POST("/api/propagations/purchase-order", h.propagationHandler(func(ctx context.Context, id int) error {
		return h.pipeline.HandlePurchaseOrderCompletion(ctx, nil, id)
	}))
	r.POST("/api/propagations/sales-order", h.propagationHandler(func(ctx context.Context, id int) error {
		return h.pipeline.HandleSalesOrderCompletion(ctx, nil, id)
	}))
	r.POST("/api/propagations/feeding-record", h.propagationHandler(func(ctx context.Context, id int) error {
		return h.pipeline.HandleFeedingRecordCreation(ctx, nil, id)
	}))
	r.POST("/api/propagations/health-record", h.propagationHandler(func(ctx context.Context, id int) error {
		return h.pipeline.HandleHealthRecordUpdate(ctx, nil, id)
	}))

	r.GET("/api/events", h.eventHistoryHandler)
	r.GET("/api/events/pending", h.pendingEventsHandler)
	r.GET("/api/events/recent", h.recentEventsHandler)

	r.POST("/api/consistency/check", h.consistencyCheckHandler)
	r.POST("/api/consistency/fix", h.consistencyFixHandler)

	r.POST("/api/bulk/import", h.bulkImportHandler)
	r.POST("/api/bulk/export", h.bulkExportHandler)
	r.POST("/api/bulk/transform", h.bulkTransformHandler)

	r.POST("/api/backups", h.createBackupHandler)
	r.GET("/api/backups", h.backupHistoryHandler)
	r.POST("/api/backups/:backup_id/restore", h.restoreBackupHandler)
	r.DELETE("/api/backups/:backup_id", h.deleteBackupHandler)
	r.GET("/api/backups/sync-status", h.syncStatusHandler)

	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	install()
	ready.Store(true)

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations as
	// a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
		if err := workflow.RunMigrations(context.Background(), db, logger, workflow.DataMigrations()); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	drainCtx, cancelDrain := context.WithCancel(context.Background())
	defer cancelDrain()
	if config.EventDrainEnabled() {
		go NewEventDrainWorker(db, logger, h.pipeline.Events).Run(drainCtx)
	} else {
		logger.WithFields(logrus.Fields{"field": "EventDrainWorker"}).Warn("event drain disabled by EVENT_DRAIN=false")
	}

	// Propagation handlers rely on row locks, not gap locks.
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	log.Println("Server started successfully on port " + port)

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop the drain worker first so it does not claim new events mid-drain.
	cancelDrain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
