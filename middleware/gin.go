// The concrete Gin middleware implementation lives in the ginmw
// sub-package to avoid pulling github.com/gin-gonic/gin into projects
// that only need the net/http middleware in this package.
//
// Import:
//
//	import "github.com/krishna-kudari/redlock/middleware/ginmw"
//
// Usage:
//
//	coord, _ := redlock.New(stores)
//	r := gin.Default()
//	r.Use(ginmw.Lock(coord, ginmw.KeyByParam("id")))
//
// Key extractors:
//
//	ginmw.KeyByParam("id")          — value from a URL parameter
//	ginmw.KeyByHeader("X-Idempotency-Key") — value from a request header
//	ginmw.KeyByPathAndClientIP      — path + client IP
//
// Full config:
//
//	ginmw.LockWithConfig(ginmw.Config{
//	    Locker:          coord,
//	    KeyFunc:         ginmw.KeyByParam("id"),
//	    ExcludePaths:    map[string]bool{"/health": true},
//	    ConflictHandler: customHandler,
//	})
//
// See package github.com/krishna-kudari/redlock/middleware/ginmw for the full API.
package middleware
