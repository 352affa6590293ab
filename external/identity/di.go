package identity

import (
	"github.com/samber/do/v2"
	"github.com/talkcircle/sentinel/internal/config"
	"github.com/talkcircle/sentinel/internal/identity"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (identity.Resolver, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewHTTPResolver(cfg.AuthServiceURL), nil
	})
}
