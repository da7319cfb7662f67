package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
)

const (
	requestIdKey    = "reqid"
	headerRequestId = "X-Request-ID"
)

// requestId tags each request with an id, reusing the caller's when given.
func requestId() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(headerRequestId)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(headerRequestId, id)
		c.Locals(requestIdKey, id)
		return c.Next()
	}
}

func corsMiddleware(origins []string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: strings.Join(origins, ", "),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	})
}

// allowedHosts rejects requests whose Host is not listed. "*" allows any.
func allowedHosts(hosts []string) fiber.Handler {
	allowed := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		allowed[strings.ToLower(strings.TrimSpace(h))] = true
	}
	return func(c *fiber.Ctx) error {
		if len(allowed) == 0 || allowed["*"] || allowed[strings.ToLower(c.Hostname())] {
			return c.Next()
		}
		host := strings.ToLower(c.Hostname())
		if i := strings.LastIndexByte(host, ':'); i > 0 && !strings.HasSuffix(host, "]") {
			host = host[:i]
		}
		if allowed[host] {
			return c.Next()
		}
		return Error(c, fiber.StatusBadRequest, "host not allowed")
	}
}

func loggerMiddleware() fiber.Handler {
	return logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${ip} - ${method} ${path} - ${status} - ${latency} ${locals:reqid}\n",
	})
}

func recoveryMiddleware() fiber.Handler {
	return recover.New(recover.Config{EnableStackTrace: true})
}

// credentialLimiter guards the endpoint that forwards credentials upstream.
func credentialLimiter(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return Error(c, fiber.StatusTooManyRequests, "too many attempts, try again later")
		},
	})
}
