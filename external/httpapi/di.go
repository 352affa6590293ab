package httpapi

import (
	"github.com/samber/do/v2"

	alertimpl "github.com/talkcircle/sentinel/external/alert"
	"github.com/talkcircle/sentinel/internal/config"
	"github.com/talkcircle/sentinel/internal/identity"
	"github.com/talkcircle/sentinel/internal/session"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		return NewServer(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*session.Coordinator](i),
			do.MustInvoke[*session.Finalizer](i),
			do.MustInvoke[identity.Resolver](i),
			do.MustInvoke[*alertimpl.WebSocketHandler](i),
		), nil
	})
}
