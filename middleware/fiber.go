// The concrete Fiber middleware implementation lives in the fibermw
// sub-package to avoid pulling github.com/gofiber/fiber into projects
// that only need the net/http middleware in this package. Fiber uses
// fasthttp (not net/http) so a dedicated adapter is required.
//
// Import:
//
//	import "github.com/krishna-kudari/redlock/middleware/fibermw"
//
// Usage:
//
//	coord, _ := redlock.New(stores)
//	app := fiber.New()
//	app.Use(fibermw.Lock(coord, fibermw.KeyByParam("id")))
//
// Key extractors:
//
//	fibermw.KeyByParam("id")          — value from a route parameter
//	fibermw.KeyByHeader("X-Idempotency-Key") — value from a request header
//	fibermw.KeyByPathAndIP            — path + client IP
//
// Full config:
//
//	fibermw.LockWithConfig(fibermw.Config{
//	    Locker:          coord,
//	    KeyFunc:         fibermw.KeyByParam("id"),
//	    ExcludePaths:    map[string]bool{"/health": true},
//	    ConflictHandler: customHandler,
//	})
//
// See package github.com/krishna-kudari/redlock/middleware/fibermw for the full API.
package middleware
