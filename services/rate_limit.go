package services

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	appcontext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/shared"
	log "github.com/sirupsen/logrus"
)

const (
	RateLimitLogin      = "login"
	RateLimitImport     = "content_import"
	RateLimitQuizStart  = "quiz_start"
	RateLimitAPIGeneral = "api_general"
)

// RateLimitService applies fixed-window limits kept in Redis. Requests are
// allowed when Redis is not configured or unreachable.
type RateLimitService struct {
	appcontext.DefaultService

	configs map[string]*RateLimitConfig
	mutex   sync.RWMutex

	redis *RedisService
	now   func() time.Time
}

type RateLimitConfig struct {
	EndpointType string
	MaxRequests  int
	WindowSize   time.Duration
	Description  string
	IsActive     bool
}

const RATE_LIMIT_SVC = "rate_limit_svc"

func (svc *RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

func (svc *RateLimitService) Start() error {
	var redis *RedisService
	if r, ok := svc.Service(REDIS_SVC).(*RedisService); ok {
		redis = r
	}
	svc.setup(redis)
	return nil
}

func (svc *RateLimitService) setup(redis *RedisService) {
	svc.redis = redis
	svc.now = time.Now
	svc.initDefaultConfigs()
}

func (svc *RateLimitService) initDefaultConfigs() {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	svc.configs = map[string]*RateLimitConfig{
		RateLimitLogin: {
			EndpointType: RateLimitLogin,
			MaxRequests:  20,
			WindowSize:   15 * time.Minute,
			Description:  "Login attempts per IP",
			IsActive:     true,
		},
		RateLimitImport: {
			EndpointType: RateLimitImport,
			MaxRequests:  60,
			WindowSize:   time.Hour,
			Description:  "Metadata lookups per user",
			IsActive:     true,
		},
		RateLimitQuizStart: {
			EndpointType: RateLimitQuizStart,
			MaxRequests:  30,
			WindowSize:   time.Hour,
			Description:  "Quiz generations per user",
			IsActive:     true,
		},
		RateLimitAPIGeneral: {
			EndpointType: RateLimitAPIGeneral,
			MaxRequests:  1000,
			WindowSize:   time.Hour,
			Description:  "General API rate limit per IP",
			IsActive:     true,
		},
	}
}

// SetConfig replaces the limit for an endpoint type.
func (svc *RateLimitService) SetConfig(cfg RateLimitConfig) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()
	svc.configs[cfg.EndpointType] = &cfg
}

func rateLimitKey(endpointType, identifier string) string {
	return fmt.Sprintf("ratelimit:%s:%s", endpointType, identifier)
}

// IsAllowed counts one request for identifier against the endpoint's window.
func (svc *RateLimitService) IsAllowed(ctx context.Context, identifier, endpointType string) (bool, *dto.RateLimitInfo, error) {
	svc.mutex.RLock()
	config, exists := svc.configs[endpointType]
	svc.mutex.RUnlock()

	if !exists || !config.IsActive || !svc.redis.Enabled() {
		return true, &dto.RateLimitInfo{Allowed: true, Remaining: -1}, nil
	}

	count, ttl, err := svc.redis.IncrementWindow(ctx, rateLimitKey(endpointType, identifier), config.WindowSize)
	if err != nil {
		return true, nil, err
	}
	if ttl <= 0 {
		ttl = config.WindowSize
	}

	remaining := config.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	info := &dto.RateLimitInfo{
		Allowed:   int(count) <= config.MaxRequests,
		Limit:     config.MaxRequests,
		Remaining: remaining,
		ResetTime: svc.now().Add(ttl),
	}
	return info.Allowed, info, nil
}

// RateLimit limits by user when authenticated and by client IP otherwise.
func (svc *RateLimitService) RateLimit(endpointType string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := getClientIP(c)
		if userID, ok := c.Locals(shared.UserID).(string); ok && userID != "" {
			identifier = userID
		}

		allowed, info, err := svc.IsAllowed(c.UserContext(), identifier, endpointType)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"endpoint_type": endpointType,
				"identifier":    identifier,
			}).Warn("Rate limit check failed, allowing request")
			return c.Next()
		}

		svc.addRateLimitHeaders(c, info)

		if !allowed {
			rateLimitedTotal.WithLabelValues(endpointType).Inc()
			return shared.NewTooManyRequestsError(svc.getRateLimitMessage(endpointType))
		}
		return c.Next()
	}
}

// IPRateLimit applies the general per-IP limit.
func (svc *RateLimitService) IPRateLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := getClientIP(c)

		allowed, info, err := svc.IsAllowed(c.UserContext(), ip, RateLimitAPIGeneral)
		if err != nil {
			log.WithError(err).WithField("ip", ip).Warn("IP rate limit check failed, allowing request")
			return c.Next()
		}

		svc.addRateLimitHeaders(c, info)

		if !allowed {
			rateLimitedTotal.WithLabelValues(RateLimitAPIGeneral).Inc()
			return shared.NewTooManyRequestsError(svc.getRateLimitMessage(RateLimitAPIGeneral))
		}
		return c.Next()
	}
}

func (svc *RateLimitService) addRateLimitHeaders(c *fiber.Ctx, info *dto.RateLimitInfo) {
	if info == nil || info.Remaining < 0 {
		return
	}

	c.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))

	if !info.Allowed {
		retryAfter := int(info.ResetTime.Sub(svc.now()).Seconds())
		if retryAfter > 0 {
			c.Set("Retry-After", strconv.Itoa(retryAfter))
		}
	}
}

func (svc *RateLimitService) getRateLimitMessage(endpointType string) string {
	messages := map[string]string{
		RateLimitLogin:      "Too many login attempts. Please try again later.",
		RateLimitImport:     "Too many imports. Please try again later.",
		RateLimitQuizStart:  "Too many quizzes started. Please take a break.",
		RateLimitAPIGeneral: "Too many requests. Please slow down.",
	}

	if message, exists := messages[endpointType]; exists {
		return message
	}
	return "Too many requests. Please try again later."
}

func getClientIP(c *fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		if ip := strings.TrimSpace(strings.Split(forwarded, ",")[0]); ip != "" {
			return ip
		}
	}

	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	if cfIP := c.Get("CF-Connecting-IP"); cfIP != "" {
		return cfIP
	}

	ip, _, err := net.SplitHostPort(c.Context().RemoteAddr().String())
	if err != nil {
		return c.Context().RemoteAddr().String()
	}
	return ip
}
