package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"relaydash/internal/config"
	"relaydash/internal/devices"
	"relaydash/internal/observability"
	"relaydash/internal/sessions"
	"relaydash/pkg/auth"
	"relaydash/pkg/httpx"
	"relaydash/pkg/relay"
)

// Version is reported by /api/health and the CLI; set at build time.
var Version = "dev"

func Logger(cfg config.Config) *zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	logger := log.Logger.Level(cfg.LogLevel).With().Timestamp().Logger()
	return &logger
}

// Server wires the device store, session table and relay client behind the
// dashboard's routes.
type Server struct {
	cfg      config.Config
	log      zerolog.Logger
	devices  *devices.Store
	sessions *sessions.Store
	codec    *auth.SessionCodec
	users    auth.Credentials
	relay    *relay.Client
	pages    *pages
}

type Option func(*Server)

// WithRelayClient replaces the client used for outbound device calls.
func WithRelayClient(c *relay.Client) Option {
	return func(s *Server) { s.relay = c }
}

// WithLogger replaces the logger derived from the config.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

func New(cfg config.Config, opts ...Option) *Server {
	s := &Server{cfg: cfg, log: *Logger(cfg)}
	for _, o := range opts {
		o(s)
	}

	hashKey, blockKey, generated := cfg.SessionKeys()
	if generated {
		s.log.Warn().Msg("no session secret configured; using a random key, sessions end on restart")
	}
	s.codec = auth.NewSessionCodec(hashKey, blockKey, cfg.SessionTTL, cfg.SecureCookie)
	s.sessions = sessions.New(cfg.SessionsPath, cfg.SessionTTL)
	s.devices = devices.NewStore(cfg.DevicesPath, s.log)

	s.users = auth.Credentials(cfg.Users)
	if len(s.users) == 0 {
		s.users = auth.DefaultCredentials()
	}
	if s.relay == nil {
		s.relay = relay.New(relay.Options{Timeout: cfg.DeviceTimeout, DNSCacheTTL: cfg.DNSCacheTTL})
	}
	s.pages = mustLoadPages()
	return s
}

// NewRouter builds a Server from cfg and returns its handler.
func NewRouter(cfg config.Config) http.Handler {
	return New(cfg).Router()
}

// Close releases the relay client's background resolver.
func (s *Server) Close() { s.relay.Close() }

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(zerologMiddleware(&s.log))
	r.Use(securityHeaders)
	if s.cfg.CORSOrigin != "" {
		c := cors.New(cors.Options{
			AllowedOrigins:   []string{s.cfg.CORSOrigin},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowCredentials: true,
		})
		r.Use(c.Handler)
	}

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "version": Version})
	})
	if s.cfg.MetricsEnabled {
		r.Handle("/metrics", observability.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/login", s.handleLoginPage)
		r.Post("/login", s.handleLogin)
		r.Get("/logout", s.handleLogout)

		r.Group(func(pr chi.Router) {
			pr.Use(s.requireLogin)

			pr.Get("/", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, s.defaultLanding(), http.StatusFound)
			})
			pr.Get("/landing/{deviceIP}/{deviceType}/{channel}", s.handleLanding)
			pr.Get("/add", s.handleAddPage)
			pr.Post("/add", s.handleAdd)
			pr.Get("/edit/{deviceIP}", s.handleEditPage)
			pr.Post("/edit/{deviceIP}", s.handleEdit)

			pr.Get("/api/get_device_state", s.handleDeviceState)
			pr.Get("/api/toggle_relay", s.handleToggleRelay)
		})
	})
	return r
}

func landingURL(ip, typ, channel string) string {
	return "/landing/" + url.PathEscape(ip) + "/" + url.PathEscape(typ) + "/" + url.PathEscape(channel)
}

func (s *Server) defaultLanding() string {
	return landingURL(s.cfg.LandingIP, s.cfg.LandingType, s.cfg.LandingChannel)
}

// pathParam returns an unescaped route parameter. chi matches on RawPath when
// the request has one, so only then is the parameter still escaped.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}
