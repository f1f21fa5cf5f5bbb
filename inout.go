package chaindi

import (
	"github.com/junioryono/chaindi/internal/reflection"
	"github.com/junioryono/chaindi/internal/resolver"
)

// In marks a parameter object. When a constructor accepts a single struct
// that embeds chaindi.In, every exported field of that struct is resolved as
// a separate dependency, in field order.
//
// Supported tags:
//   - `optional:"true"` - the field keeps its zero value when nothing can provide it
//   - `name:"serviceName"` - the field is resolved as a named service
//   - `inject:"-"` - the field is skipped
//
// Example:
//
//	type ServiceParams struct {
//	    chaindi.In
//
//	    Database *sql.DB
//	    Logger   Logger `optional:"true"`
//	    Cache    Cache  `name:"redis"`
//	}
//
//	func NewService(params ServiceParams) *Service {
//	    return &Service{
//	        db:     params.Database,
//	        logger: params.Logger, // nil if not registered
//	        cache:  params.Cache,
//	    }
//	}
//
// The In struct must be embedded anonymously:
//
//	type ServiceParams struct {
//	    chaindi.In  // ✓ Correct - anonymous embedding
//	    // ...
//	}
//
//	type ServiceParams struct {
//	    In chaindi.In  // ✗ Wrong - named field
//	    // ...
//	}
type In = reflection.In

// RegisteredName is the name under which a string parameter receives the
// name of the registration being constructed.
const RegisteredName = resolver.RegisteredName
