// The concrete Echo middleware implementation lives in the echomw
// sub-package to avoid pulling github.com/labstack/echo into projects
// that only need the net/http middleware in this package.
//
// Import:
//
//	import "github.com/krishna-kudari/redlock/middleware/echomw"
//
// Usage:
//
//	coord, _ := redlock.New(stores)
//	e := echo.New()
//	e.Use(echomw.Lock(coord, echomw.KeyByParam("id")))
//
// Key extractors:
//
//	echomw.KeyByParam("id")          — value from a path parameter
//	echomw.KeyByHeader("X-Idempotency-Key") — value from a request header
//	echomw.KeyByPathAndRealIP        — path + real IP
//
// Full config:
//
//	echomw.LockWithConfig(echomw.Config{
//	    Locker:          coord,
//	    KeyFunc:         echomw.KeyByParam("id"),
//	    ExcludePaths:    map[string]bool{"/health": true},
//	    ConflictHandler: customHandler,
//	})
//
// See package github.com/krishna-kudari/redlock/middleware/echomw for the full API.
package middleware
