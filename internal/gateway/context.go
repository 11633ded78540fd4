package gateway

import "github.com/labstack/echo/v4"

const ContextKeyPathClass = "path_class"

// PathClass says how much authentication a path demands.
type PathClass int

const (
	ClassProtected PathClass = iota
	ClassOptionalAuth
	ClassPublic
)

func (p PathClass) String() string {
	switch p {
	case ClassPublic:
		return "public"
	case ClassOptionalAuth:
		return "optional_auth"
	default:
		return "protected"
	}
}

func SetPathClass(c echo.Context, class PathClass) {
	c.Set(ContextKeyPathClass, class)
}

// GetPathClass returns ClassProtected when nothing classified the request.
func GetPathClass(c echo.Context) PathClass {
	if class, ok := c.Get(ContextKeyPathClass).(PathClass); ok {
		return class
	}
	return ClassProtected
}
