package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"premisewatch/internal/access"
	"premisewatch/internal/auth"
	"premisewatch/internal/briefing"
	"premisewatch/internal/config"
	"premisewatch/internal/export"
	"premisewatch/internal/httpmiddleware"
	"premisewatch/internal/metrics"
	"premisewatch/internal/monitor"
	"premisewatch/internal/queue"
	"premisewatch/internal/store"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

// recordView augments a record with its remaining window at render time.
// Remaining is recomputed per response, never cached.
type recordView struct {
	access.AccessRecord
	Remaining string `json:"remaining"`
}

func viewRecords(records []access.AccessRecord, now time.Time, window time.Duration) []recordView {
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		d, ok := access.RemainingTime(rec, now, window)
		views = append(views, recordView{AccessRecord: rec, Remaining: access.FormatRemaining(d, ok)})
	}
	return views
}

func filterFromQuery(c *gin.Context) access.Filter {
	return access.Filter{
		Query:    c.Query("q"),
		Role:     access.Role(c.Query("role")),
		Status:   access.Status(c.Query("status")),
		Location: c.Query("location"),
		OnSite:   c.Query("on_site") == "true",
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		if db == nil {
			return err
		}
		// Ping failures are tolerated at boot; the pool reconnects once
		// Postgres is up and /healthz reports the gap meanwhile.
		log.Printf("warning: db not reachable: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "premisewatch:alerts")
	}

	repo := access.NewRepository(db.Client)
	svc := access.NewService(repo, cfg.AccessWindow)
	logger := log.New(os.Stdout, "", log.LstdFlags)

	// Each view owns its poller: the live monitor refreshes fast, the
	// dashboard slower over a wider slice. Both are torn down on shutdown.
	live := monitor.New(svc, monitor.Config{
		View:     "live",
		Interval: cfg.LivePollInterval,
		Limit:    cfg.RecordFetchLimit,
	}, logger)
	dash := monitor.New(svc, monitor.Config{
		View:     "dashboard",
		Interval: cfg.DashboardPollInterval,
		Limit:    cfg.RecordFetchLimit * 4,
	}, logger)

	pollCtx, stopPolling := context.WithCancel(context.Background())
	live.Start(pollCtx)
	dash.Start(pollCtx)
	defer func() {
		stopPolling()
		live.Stop()
		dash.Stop()
	}()

	brief := briefing.New(cfg.BriefingURL, cfg.BriefingAPIKey, cfg.BriefingModel, cfg.BriefingSkip)

	// Alert publication is best-effort: a failed publish is logged, never
	// surfaced to the operator.
	notify := func(ctx context.Context, recordID, reason string) {
		body, _ := json.Marshal(access.Alert{RecordID: recordID, Reason: reason, NotedAt: time.Now().UTC()})
		if err := q.Publish(ctx, queue.Message{Type: "alert", Body: body}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
	}

	r := gin.New()

	// Recovery middleware
	r.Use(gin.Recovery())

	// Custom logger
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	// CORS middleware
	r.Use(corsMiddleware())

	// Security headers
	r.Use(securityHeaders())

	// Rate limiting
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/operators/login", func(c *gin.Context) {
		var req struct {
			OperatorID string `json:"operator_id" binding:"required"`
			Secret     string `json:"secret" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Secret != cfg.OperatorSecret {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		tokens, err := auth.Issue(req.OperatorID, "operator", cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	authGroup := r.Group("/v1", auth.OperatorAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	authGroup.GET("/logs", func(c *gin.Context) {
		records := filterFromQuery(c).Apply(live.Records())
		if v := c.Query("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed < len(records) {
				records = records[:parsed]
			}
		}
		now := time.Now()
		c.JSON(http.StatusOK, gin.H{
			"records":      viewRecords(records, now, svc.Window()),
			"generated_at": now.UTC(),
		})
	})

	authGroup.POST("/logs", func(c *gin.Context) {
		var req struct {
			SubjectID    string `json:"subject_id" binding:"required"`
			LocationID   string `json:"location_id" binding:"required"`
			Purpose      string `json:"purpose"`
			VehiclePlate string `json:"vehicle_plate"`
			Status       string `json:"status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		rec, err := svc.RecordEntry(c.Request.Context(), access.EntryRequest{
			SubjectID:    req.SubjectID,
			LocationID:   req.LocationID,
			Purpose:      req.Purpose,
			VehiclePlate: req.VehiclePlate,
			Status:       access.Status(req.Status),
		})
		if !respondMutation(c, "grant", err) {
			return
		}
		if rec.Status == access.StatusDenied {
			notify(c.Request.Context(), rec.ID, "entry_denied")
		}
		if err := live.Refresh(c.Request.Context()); err != nil {
			log.Printf("refresh after grant failed: %v", err)
		}
		c.JSON(http.StatusCreated, rec)
	})

	authGroup.POST("/logs/:id/extend", func(c *gin.Context) {
		var req struct {
			Hours   int `json:"hours"`
			Minutes int `json:"minutes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id := c.Param("id")
		err := live.Extend(c.Request.Context(), id, req.Hours, req.Minutes)
		if errors.Is(err, access.ErrPreconditionFailed) {
			notify(c.Request.Context(), id, "extend_conflict")
		}
		if !respondMutation(c, "extend", err) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "extended"})
	})

	authGroup.POST("/logs/:id/revoke", func(c *gin.Context) {
		id := c.Param("id")
		err := live.Revoke(c.Request.Context(), id)
		if !respondMutation(c, "revoke", err) {
			return
		}
		notify(c.Request.Context(), id, "access_revoked")
		c.JSON(http.StatusOK, gin.H{"status": "revoked"})
	})

	authGroup.POST("/logs/:id/reinstate", func(c *gin.Context) {
		err := live.Reinstate(c.Request.Context(), c.Param("id"))
		if !respondMutation(c, "reinstate", err) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "reinstated"})
	})

	authGroup.POST("/logs/:id/checkout", func(c *gin.Context) {
		err := live.CheckOut(c.Request.Context(), c.Param("id"))
		if !respondMutation(c, "checkout", err) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "checked out"})
	})

	authGroup.GET("/logs/export", func(c *gin.Context) {
		records := filterFromQuery(c).Apply(live.Records())
		now := time.Now()
		switch c.Query("format") {
		case "pdf":
			c.Header("Content-Type", "application/pdf")
			c.Header("Content-Disposition", "attachment; filename="+export.Filename("pdf", now))
			if err := export.PDF(c.Writer, records); err != nil {
				log.Printf("pdf export failed: %v", err)
			}
		default:
			c.Header("Content-Type", "text/csv; charset=utf-8")
			c.Header("Content-Disposition", "attachment; filename="+export.Filename("csv", now))
			if err := export.CSV(c.Writer, records); err != nil {
				log.Printf("csv export failed: %v", err)
			}
		}
	})

	authGroup.GET("/stats", func(c *gin.Context) {
		stats := dash.Stats(time.Now())
		c.JSON(http.StatusOK, gin.H{
			"total_entries_today": stats.TotalEntriesToday,
			"active_on_site":      stats.ActiveOnSiteCount,
			"alert_count":         stats.AlertCount,
			"avg_visit_duration":  stats.AvgVisitDuration.String(),
		})
	})

	authGroup.GET("/zones", func(c *gin.Context) {
		now := time.Now()
		zones := dash.Zones(now)
		occupancy := make(map[string]gin.H, len(zones))
		for id, recs := range zones {
			occupancy[id] = gin.H{
				"count":     len(recs),
				"occupants": viewRecords(recs, now, svc.Window()),
			}
		}
		c.JSON(http.StatusOK, gin.H{"zones": occupancy, "generated_at": now.UTC()})
	})

	authGroup.GET("/briefing", func(c *gin.Context) {
		records := dash.Records()
		stats := access.ComputeStats(records, time.Now())
		text, err := brief.Generate(c.Request.Context(), stats, records)
		if err != nil {
			// Best-effort collaborator: degrade, never fail the dashboard.
			log.Printf("briefing generation failed: %v", err)
			metrics.Briefings.WithLabelValues("error").Inc()
			text = briefing.Unavailable
		} else {
			metrics.Briefings.WithLabelValues("ok").Inc()
		}
		c.JSON(http.StatusOK, gin.H{"briefing": text})
	})

	authGroup.GET("/people", func(c *gin.Context) {
		people, err := svc.People(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"people": people})
	})

	authGroup.POST("/people", func(c *gin.Context) {
		var req struct {
			Name      string `json:"name" binding:"required"`
			Role      string `json:"role" binding:"required"`
			Company   string `json:"company"`
			Phone     string `json:"phone"`
			Email     string `json:"email"`
			AvatarURL string `json:"avatar_url"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		p, err := svc.Register(c.Request.Context(), access.Person{
			Name:      req.Name,
			Role:      access.Role(req.Role),
			Company:   req.Company,
			Phone:     req.Phone,
			Email:     req.Email,
			AvatarURL: req.AvatarURL,
		})
		if !respondMutation(c, "register", err) {
			return
		}
		c.JSON(http.StatusCreated, p)
	})

	authGroup.POST("/people/:id/blacklist", func(c *gin.Context) {
		var req struct {
			Reason string `json:"reason" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		err := svc.Blacklist(c.Request.Context(), c.Param("id"), req.Reason)
		if !respondMutation(c, "blacklist", err) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "blacklisted"})
	})

	authGroup.POST("/people/:id/unblacklist", func(c *gin.Context) {
		err := svc.Unblacklist(c.Request.Context(), c.Param("id"))
		if !respondMutation(c, "unblacklist", err) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "active"})
	})

	authGroup.GET("/sessions", func(c *gin.Context) {
		sessions, err := svc.Sessions(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessions": sessions})
	})

	authGroup.POST("/sessions", func(c *gin.Context) {
		var req struct {
			HostID       string `json:"host_id"`
			EventName    string `json:"event_name" binding:"required"`
			Venue        string `json:"venue" binding:"required"`
			Participants string `json:"participants"`
			SessionDate  string `json:"session_date"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sess, err := svc.CreateSession(c.Request.Context(), access.SessionRequest{
			HostID:       req.HostID,
			EventName:    req.EventName,
			Venue:        req.Venue,
			Participants: req.Participants,
			SessionDate:  req.SessionDate,
		})
		if !respondMutation(c, "create_session", err) {
			return
		}
		c.JSON(http.StatusCreated, sess)
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// respondMutation maps the error taxonomy onto HTTP responses and records
// the mutation outcome. Returns true when the caller should continue with
// its success response.
func respondMutation(c *gin.Context, op string, err error) bool {
	switch {
	case err == nil:
		metrics.Mutations.WithLabelValues(op, "ok").Inc()
		return true
	case errors.Is(err, access.ErrValidationFailed):
		metrics.Mutations.WithLabelValues(op, "validation_failed").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, access.ErrNotFound):
		metrics.Mutations.WithLabelValues(op, "not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.Is(err, access.ErrPreconditionFailed):
		metrics.Mutations.WithLabelValues(op, "precondition_failed").Inc()
		c.JSON(http.StatusConflict, gin.H{"error": "record changed concurrently; view refreshed"})
	case errors.Is(err, access.ErrStoreUnavailable):
		metrics.Mutations.WithLabelValues(op, "store_unavailable").Inc()
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
	default:
		metrics.Mutations.WithLabelValues(op, "error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
	return false
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
