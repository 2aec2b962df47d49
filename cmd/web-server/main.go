// Sonde Scope Web Server
// Serves the REST API and WebSocket live feed over the radiosonde archive
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/unklstewy/sonde-scope/internal/auth"
	"github.com/unklstewy/sonde-scope/internal/db"
	"github.com/unklstewy/sonde-scope/pkg/config"
	"github.com/unklstewy/sonde-scope/pkg/descent"
	"github.com/unklstewy/sonde-scope/pkg/geodesy"
	"github.com/unklstewy/sonde-scope/pkg/kml"
	"github.com/unklstewy/sonde-scope/pkg/telemetry"
	"github.com/unklstewy/sonde-scope/pkg/visibility"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file")
	port       = flag.Int("port", 8080, "HTTP server port")
)

// contextKey keeps auth values out of collision range of other packages.
type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxUsername contextKey = "username"
	ctxRole     contextKey = "role"
)

// Server holds the HTTP server and its dependencies
type Server struct {
	router  *chi.Mux
	db      *db.DB
	authSvc *auth.Service
	users   *db.UserRepository
	flights *db.FlightRepository
	points  *db.TelemetryRepository
	sites   *db.ObservationSiteRepository
	ws      *wsRegistry
	cfg     *config.Config
}

func main() {
	flag.Parse()

	log.Println("🚀 Starting Sonde Scope Web Server...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	authSvc := auth.NewService(auth.Config{
		JWTSecret:     getEnvOrDefault("JWT_SECRET", "dev-secret-change-in-production"),
		TokenDuration: 24 * time.Hour,
	})

	users := db.NewUserRepository(database.DB)
	if err := seedAdminUser(ctx, users, authSvc); err != nil {
		log.Printf("Warning: Failed to seed admin user: %v", err)
	}

	srv := &Server{
		router:  chi.NewRouter(),
		db:      database,
		authSvc: authSvc,
		users:   users,
		flights: db.NewFlightRepository(database),
		points:  db.NewTelemetryRepository(database),
		sites:   db.NewObservationSiteRepository(database),
		ws:      newWSRegistry(),
		cfg:     cfg,
	}

	srv.setupRoutes()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("📡 Server listening on http://localhost:%d", *port)
		log.Printf("💡 API root: http://localhost:%d/api/v1", *port)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n👋 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped")
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))

	// CORS for development
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes. The live feed carries the same positions
		// SondeHub publishes, so it stays open.
		r.Post("/auth/login", s.handleLogin)
		r.Get("/ws", s.handleWebSocket)

		// Protected routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/logout", s.handleLogout)
			r.Get("/auth/me", s.handleGetCurrentUser)

			// Flight archive endpoints
			r.Get("/flights", s.handleListFlights)
			r.Get("/flights/{serial}", s.handleGetFlight)
			r.Get("/flights/{serial}/kml", s.handleFlightKML)
			r.Get("/flights/{serial}/landing", s.handleFlightLanding)

			// Visibility search over the archive
			r.Post("/visibility/search", s.handleVisibilitySearch)

			// Observation site endpoints
			r.Get("/observer/sites", s.handleGetSites)
			r.Get("/observer/active", s.handleGetActiveSite)
			r.Post("/observer/sites", s.handleCreateSite)
			r.Put("/observer/sites/{id}", s.handleUpdateSite)
			r.Delete("/observer/sites/{id}", s.handleDeleteSite)
			r.Post("/observer/sites/{id}/activate", s.handleActivateSite)

			// User management (admin only)
			r.Get("/users", s.handleListUsers)
			r.Post("/users", s.handleCreateUser)
			r.Delete("/users/{id}", s.handleDeleteUser)

			// System endpoints
			r.Get("/system/status", s.handleSystemStatus)
		})
	})

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
}

// Auth middleware
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing authorization header", http.StatusUnauthorized)
			return
		}

		// Header format: "Bearer <token>"
		var token string
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		} else {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := s.authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxUsername, claims.Username)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestUserID(r *http.Request) int {
	id, _ := r.Context().Value(ctxUserID).(int)
	return id
}

func requestRole(r *http.Request) string {
	role, _ := r.Context().Value(ctxRole).(string)
	return role
}

// handleLogin handles user login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := s.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := s.authSvc.ComparePassword(user.PasswordHash, req.Password); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if !user.IsActive {
		http.Error(w, "Account is disabled", http.StatusForbidden)
		return
	}

	token, err := s.authSvc.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	_ = s.users.UpdateLastLogin(r.Context(), user.ID)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	})
}

// handleLogout handles user logout. Tokens are stateless, so this only
// exists for client symmetry.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// handleGetCurrentUser returns the currently authenticated user
func (s *Server) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	username, _ := r.Context().Value(ctxUsername).(string)
	role := requestRole(r)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":       userID,
		"username": username,
		"role":     role,
	})
}

// Flight archive handlers

func (s *Server) handleListFlights(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 100)
	if limit > 500 {
		limit = 500
	}
	offset := parseIntQuery(r, "offset", 0)

	flights, err := s.flights.ListFlights(r.Context(), limit, offset)
	if err != nil {
		log.Printf("Error listing flights: %v", err)
		http.Error(w, "Failed to list flights", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"flights": flights,
		"count":   len(flights),
	})
}

func (s *Server) handleGetFlight(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")

	flight, err := s.flights.GetFlight(r.Context(), serial)
	if err != nil {
		log.Printf("Error getting flight %s: %v", serial, err)
		http.Error(w, "Failed to get flight", http.StatusInternalServerError)
		return
	}
	if flight == nil {
		http.Error(w, "Flight not found", http.StatusNotFound)
		return
	}

	points, err := s.points.CountPoints(r.Context(), serial)
	if err != nil {
		log.Printf("Error counting points for %s: %v", serial, err)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"flight":     flight,
		"pointCount": points,
	})
}

func (s *Server) handleFlightKML(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")

	flight, err := s.points.FlightTrack(r.Context(), serial)
	if err != nil {
		log.Printf("Error loading track for %s: %v", serial, err)
		http.Error(w, "Failed to load flight track", http.StatusInternalServerError)
		return
	}
	if flight == nil {
		http.Error(w, "No telemetry for flight", http.StatusNotFound)
		return
	}

	doc := kml.FlightsDocument([]*telemetry.Flight{flight}, kml.DefaultTrackOptions())

	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", serial+".kml"))
	if err := kml.WriteDocument(w, doc); err != nil {
		log.Printf("Error writing KML for %s: %v", serial, err)
	}
}

func (s *Server) handleFlightLanding(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")

	flight, err := s.points.FlightTrack(r.Context(), serial)
	if err != nil {
		log.Printf("Error loading track for %s: %v", serial, err)
		http.Error(w, "Failed to load flight track", http.StatusInternalServerError)
		return
	}
	if flight == nil {
		http.Error(w, "No telemetry for flight", http.StatusNotFound)
		return
	}

	last := flight.LastPoint()

	// Ground altitude defaults to the observer's elevation, which is close
	// enough for flights landing in the chase area.
	ground := s.resolveObserver(r.Context(), requestUserID(r)).Altitude
	if g := r.URL.Query().Get("ground"); g != "" {
		parsed, err := strconv.ParseFloat(g, 64)
		if err != nil {
			http.Error(w, "Invalid ground altitude", http.StatusBadRequest)
			return
		}
		ground = parsed
	}

	est, err := descent.EstimateFromRecord(last, ground)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"serial":              serial,
		"lastHeard":           last.Datetime,
		"altitude":            last.Alt,
		"groundAltitude":      ground,
		"seaLevelDescentRate": est.SeaLevelRate,
		"timeToGroundSeconds": est.TimeToGround.Seconds(),
		"touchdown":           est.Touchdown,
	})
}

// handleVisibilitySearch runs the look-angle filter over the archived
// flight summaries.
func (s *Server) handleVisibilitySearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Latitude      *float64  `json:"latitude"`
		Longitude     *float64  `json:"longitude"`
		Altitude      float64   `json:"altitude"`
		Time          time.Time `json:"time"`
		MinElevation  *float64  `json:"minElevation"`
		WindowSeconds int       `json:"windowSeconds"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Time.IsZero() {
		http.Error(w, "time is required (RFC3339)", http.StatusBadRequest)
		return
	}

	observer := s.resolveObserver(r.Context(), requestUserID(r))
	if req.Latitude != nil && req.Longitude != nil {
		observer = geodesy.Position{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
			Altitude:  req.Altitude,
		}
	}

	minElevation := -5.0
	if req.MinElevation != nil {
		minElevation = *req.MinElevation
	}
	window := 4 * time.Hour
	if req.WindowSeconds > 0 {
		window = time.Duration(req.WindowSeconds) * time.Second
	}

	flights, err := s.flights.FlightsInWindow(r.Context(), req.Time.Add(-window), req.Time.Add(window))
	if err != nil {
		log.Printf("Error querying flights in window: %v", err)
		http.Error(w, "Failed to search archive", http.StatusInternalServerError)
		return
	}

	var records []telemetry.Record
	for _, f := range flights {
		records = append(records, f.SummaryRecords()...)
	}

	criteria := visibility.Criteria{
		Observer:     observer,
		Time:         req.Time,
		MinElevation: minElevation,
		Window:       window,
	}
	matches := visibility.FindVisible(criteria, records)

	type matchResponse struct {
		Serial    string    `json:"serial"`
		Time      time.Time `json:"time"`
		Altitude  float64   `json:"altitude"`
		Azimuth   float64   `json:"azimuth"`
		Elevation float64   `json:"elevation"`
		RangeKm   float64   `json:"rangeKm"`
	}

	serials := matches.Serials()
	results := make([]matchResponse, len(serials))
	for i, serial := range serials {
		rec := matches[serial]
		look := geodesy.ComputeLookAngle(observer, rec.Position())
		results[i] = matchResponse{
			Serial:    serial,
			Time:      rec.Datetime,
			Altitude:  rec.Alt,
			Azimuth:   look.Bearing,
			Elevation: look.Elevation,
			RangeKm:   look.GreatCircleDistance / 1000.0,
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"matches":  results,
		"count":    len(results),
		"searched": len(flights),
		"observer": map[string]interface{}{
			"latitude":  observer.Latitude,
			"longitude": observer.Longitude,
			"altitude":  observer.Altitude,
		},
	})
}

// resolveObserver returns the user's active observation site, falling back
// to the configured default observer.
func (s *Server) resolveObserver(ctx context.Context, userID int) geodesy.Position {
	site, err := s.sites.GetActiveSite(ctx, userID)
	if err != nil {
		log.Printf("Error getting active observation site: %v", err)
	}
	if site != nil {
		return site.Position()
	}
	return s.cfg.Observer.Position()
}

// Observation site handlers

func (s *Server) handleGetSites(w http.ResponseWriter, r *http.Request) {
	sites, err := s.sites.GetUserSites(r.Context(), requestUserID(r))
	if err != nil {
		log.Printf("Error getting observation sites: %v", err)
		http.Error(w, "Failed to get observation sites", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sites": sites,
		"count": len(sites),
	})
}

func (s *Server) handleGetActiveSite(w http.ResponseWriter, r *http.Request) {
	site, err := s.sites.GetActiveSite(r.Context(), requestUserID(r))
	if err != nil {
		log.Printf("Error getting active observation site: %v", err)
		http.Error(w, "Failed to get active observation site", http.StatusInternalServerError)
		return
	}
	if site == nil {
		http.Error(w, "No active observation site found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, site)
}

func (s *Server) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	if !auth.CanManageSites(requestRole(r)) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	var req struct {
		Name            string  `json:"name"`
		Latitude        float64 `json:"latitude"`
		Longitude       float64 `json:"longitude"`
		ElevationMeters float64 `json:"elevationMeters"`
		IsActive        bool    `json:"isActive"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	site := &db.ObservationSite{
		UserID:          requestUserID(r),
		Name:            req.Name,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		ElevationMeters: req.ElevationMeters,
		IsActive:        req.IsActive,
	}

	if err := s.sites.Create(r.Context(), site); err != nil {
		log.Printf("Error creating observation site: %v", err)
		http.Error(w, "Failed to create observation site", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, site)
}

func (s *Server) handleUpdateSite(w http.ResponseWriter, r *http.Request) {
	if !auth.CanManageSites(requestRole(r)) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	siteID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid site ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Name            string  `json:"name"`
		Latitude        float64 `json:"latitude"`
		Longitude       float64 `json:"longitude"`
		ElevationMeters float64 `json:"elevationMeters"`
		IsActive        bool    `json:"isActive"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	site := &db.ObservationSite{
		ID:              siteID,
		UserID:          requestUserID(r),
		Name:            req.Name,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		ElevationMeters: req.ElevationMeters,
		IsActive:        req.IsActive,
	}

	if err := s.sites.Update(r.Context(), site); err != nil {
		log.Printf("Error updating observation site: %v", err)
		http.Error(w, "Failed to update observation site", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, site)
}

func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	if !auth.CanManageSites(requestRole(r)) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	siteID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid site ID", http.StatusBadRequest)
		return
	}

	if err := s.sites.Delete(r.Context(), siteID, requestUserID(r)); err != nil {
		log.Printf("Error deleting observation site: %v", err)
		http.Error(w, "Failed to delete observation site", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

func (s *Server) handleActivateSite(w http.ResponseWriter, r *http.Request) {
	if !auth.CanManageSites(requestRole(r)) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	siteID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid site ID", http.StatusBadRequest)
		return
	}

	if err := s.sites.SetActive(r.Context(), siteID, requestUserID(r)); err != nil {
		log.Printf("Error activating observation site: %v", err)
		http.Error(w, "Failed to activate observation site", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// User management handlers

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if !auth.CanManageUsers(requestRole(r)) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	limit := parseIntQuery(r, "limit", 100)
	offset := parseIntQuery(r, "offset", 0)

	users, err := s.users.List(r.Context(), limit, offset)
	if err != nil {
		log.Printf("Error listing users: %v", err)
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if !auth.CanManageUsers(requestRole(r)) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}
	if req.Role == "" {
		req.Role = auth.RoleViewer
	}

	hash, err := s.authSvc.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	user := &db.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
	}

	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, db.ErrUserExists) {
			http.Error(w, "User already exists", http.StatusConflict)
			return
		}
		log.Printf("Error creating user: %v", err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !auth.CanManageUsers(requestRole(r)) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	userID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	if userID == requestUserID(r) {
		http.Error(w, "Cannot delete your own account", http.StatusBadRequest)
		return
	}

	if err := s.users.Delete(r.Context(), userID); err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		log.Printf("Error deleting user: %v", err)
		http.Error(w, "Failed to delete user", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// System handlers

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	healthy := db.HealthCheck(s.db)

	stats, err := s.db.GetStats(r.Context())
	if err != nil {
		log.Printf("Error getting stats: %v", err)
		stats = map[string]interface{}{}
	}

	types, err := s.flights.CountByType(r.Context())
	if err != nil {
		log.Printf("Error counting sonde types: %v", err)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"database":   healthy,
		"stats":      stats,
		"sondeTypes": types,
		"wsClients":  s.ws.count(),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"service":   "sonde-scope",
		"api":       "/api/v1",
		"websocket": "/api/v1/ws",
	})
}

// handleHealth provides a health check endpoint for container orchestration.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// Helper functions

// seedAdminUser creates the default admin account on first run so a fresh
// install is immediately usable. The password must be changed afterwards.
func seedAdminUser(ctx context.Context, users *db.UserRepository, authSvc *auth.Service) error {
	_, err := users.GetByUsername(ctx, "admin")
	if err == nil {
		return nil
	}
	if !errors.Is(err, db.ErrUserNotFound) {
		return err
	}

	hash, err := authSvc.HashPassword("admin")
	if err != nil {
		return err
	}

	admin := &db.User{
		Username:      "admin",
		Email:         "admin@sonde-scope.local",
		PasswordHash:  hash,
		Role:          auth.RoleAdmin,
		IsActive:      true,
		EmailVerified: true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}

	log.Println("💡 Created default admin user (admin / admin), change the password")
	return nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func parseIntQuery(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
